package env

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Chooser asks the user to pick one of a list of environment names.
//
// The response is the 1 indexed position of the chosen name, as typed.
type Chooser interface {
	Choose(names []string) (string, error)
}

// SelectionError is returned when the user's choice of environment is not valid.
//
// It is never fatal, the chosen variables are simply empty.
type SelectionError struct {
	Err      error  // Underlying error, if any
	Response string // What the chooser returned
	Reason   string // Why it wasn't valid
}

// Error implements the error interface for [SelectionError].
func (e *SelectionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid environment selection %q: %s: %v", e.Response, e.Reason, e.Err)
	}

	return fmt.Sprintf("invalid environment selection %q: %s", e.Response, e.Reason)
}

// Unwrap returns the underlying error.
func (e *SelectionError) Unwrap() error {
	return e.Err
}

// Choose picks the variables to use from set.
//
// An empty set gives empty variables and a set of one is returned without asking, otherwise
// the chooser is asked. An invalid response returns empty variables and a [*SelectionError].
func Choose(set Set, chooser Chooser) (Vars, error) {
	switch set.Len() {
	case 0:
		return Vars{}, nil
	case 1:
		return set.envs[set.names[0]], nil
	}

	response, err := chooser.Choose(set.Names())
	if err != nil {
		return Vars{}, &SelectionError{Response: response, Reason: "chooser failed", Err: err}
	}

	index, err := strconv.Atoi(strings.TrimSpace(response))
	if err != nil {
		return Vars{}, &SelectionError{Response: response, Reason: "not a number"}
	}

	if index < 1 || index > set.Len() {
		return Vars{}, &SelectionError{
			Response: response,
			Reason:   fmt.Sprintf("must be between 1 and %d", set.Len()),
		}
	}

	return set.envs[set.names[index-1]], nil
}

// ChooseByName picks the variables of the environment called name.
//
// An unknown name returns empty variables and a [*SelectionError].
func ChooseByName(set Set, name string) (Vars, error) {
	vars, ok := set.Get(name)
	if !ok {
		return Vars{}, &SelectionError{
			Response: name,
			Reason:   fmt.Sprintf("no such environment, choose from %v", set.Names()),
		}
	}

	return vars, nil
}

// PromptChooser is a [Chooser] asking on Out and reading a line from In.
type PromptChooser struct {
	In  io.Reader // Where the response is read from
	Out io.Writer // Where the prompt is written
}

// Choose implements [Chooser] for a [PromptChooser].
func (p PromptChooser) Choose(names []string) (string, error) {
	builder := &strings.Builder{}
	builder.WriteString("Select an environment\n\n")
	for i, name := range names {
		fmt.Fprintf(builder, "%d: %s\n", i+1, name)
	}
	builder.WriteString("\n> ")

	if _, err := io.WriteString(p.Out, builder.String()); err != nil {
		return "", err
	}

	line, err := bufio.NewReader(p.In).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}

	return strings.TrimSpace(line), nil
}
