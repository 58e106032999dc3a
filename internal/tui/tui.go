// Package tui implements the terminal user interface for picking request files, request
// blocks and environments.
package tui

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	tea "github.com/charmbracelet/bubbletea"
	"go.followtheprocess.codes/httprun/internal/syntax"
	"go.followtheprocess.codes/httprun/internal/tui/components/filepicker"
	"go.followtheprocess.codes/httprun/internal/tui/components/list"
	"go.followtheprocess.codes/httprun/internal/tui/theme"
)

// ErrCancelled is returned when the user quits without picking anything.
var ErrCancelled = errors.New("nothing was selected")

// PickFile lets the user browse from dir and pick a request file.
func PickFile(dir string, in io.Reader, out io.Writer) (string, error) {
	model := filepicker.New(dir, theme.Default())

	tm, err := tea.NewProgram(&model, tea.WithInput(in), tea.WithOutput(out)).Run()
	if err != nil {
		return "", err
	}

	var final filepicker.Model
	switch model := tm.(type) {
	case filepicker.Model:
		final = model
	case *filepicker.Model:
		final = *model
	default:
		return "", fmt.Errorf("tui error, final model was not as expected: %T", tm)
	}

	file, ok := final.Selected()
	if !ok {
		return "", ErrCancelled
	}

	return file, nil
}

// PickBlock lets the user pick one of the request blocks in file.
func PickBlock(file string, blocks []syntax.Block, in io.Reader, out io.Writer) (syntax.Block, error) {
	items := make([]list.Item, 0, len(blocks))
	for _, block := range blocks {
		items = append(items, block)
	}

	index, err := pick("HTTP Requests in "+file, items, in, out, tea.WithAltScreen())
	if err != nil {
		return syntax.Block{}, err
	}

	return blocks[index], nil
}

// EnvironmentChooser is an env.Chooser showing the environments in a list.
type EnvironmentChooser struct {
	In  io.Reader // Where key presses are read from
	Out io.Writer // Where the list is drawn, this should be a terminal
}

// Choose implements env.Chooser for an [EnvironmentChooser], returning the 1 indexed
// position of the picked environment.
//
// Quitting without picking returns an empty response.
func (e EnvironmentChooser) Choose(names []string) (string, error) {
	items := make([]list.Item, 0, len(names))
	for i, name := range names {
		items = append(items, environment{name: name, position: i + 1})
	}

	index, err := pick("Select an environment", items, e.In, e.Out)
	if err != nil {
		if errors.Is(err, ErrCancelled) {
			return "", nil
		}
		return "", err
	}

	return strconv.Itoa(index + 1), nil
}

// pick runs a list of items, returning the index of the picked one.
func pick(title string, items []list.Item, in io.Reader, out io.Writer, options ...tea.ProgramOption) (int, error) {
	model := list.New(title, items, theme.Default())

	options = append(options, tea.WithInput(in), tea.WithOutput(out))

	tm, err := tea.NewProgram(&model, options...).Run()
	if err != nil {
		return 0, err
	}

	// The program only hands back the pointer if it quit before any update
	var final list.Model
	switch model := tm.(type) {
	case list.Model:
		final = model
	case *list.Model:
		final = *model
	default:
		return 0, fmt.Errorf("tui error, list final model was not as expected: %T", tm)
	}

	index, ok := final.Selected()
	if !ok {
		return 0, ErrCancelled
	}

	return index, nil
}

// environment is a named environment as a list item.
type environment struct {
	name     string
	position int // 1 indexed
}

func (e environment) FilterValue() string {
	return e.name
}

func (e environment) Title() string {
	return e.name
}

func (e environment) Description() string {
	return fmt.Sprintf("environment %d", e.position)
}
