// Package resolve implements variable interpolation of request text.
//
// Resolution happens in two steps, in order:
//
//  1. Every {{NAME}} is replaced with the value of NAME from the variables in scope,
//     unknown names are left exactly as written.
//  2. If the [Resolver] was given an [Executor], every $(command) not preceded by
//     a '\' is replaced with the trimmed standard output of running command.
//
// Step 2 runs arbitrary commands taken from request and environment files, this is
// the whole point of it but callers handling untrusted text should build a [Resolver]
// without [WithShell].
package resolve

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// variablePattern matches a {{NAME}} template tag.
var variablePattern = regexp.MustCompile(`\{\{([A-Za-z0-9_-]+)\}\}`)

// Executor runs a shell command, returning its standard output.
type Executor interface {
	Run(ctx context.Context, command string) (string, error)
}

// Option is a functional option for configuring a [Resolver].
type Option func(*Resolver)

// WithShell enables $(command) expansion, running commands with exec.
func WithShell(exec Executor) Option {
	return func(r *Resolver) {
		r.shell = exec
	}
}

// Resolver resolves variables and shell expansions in text.
//
// The zero value is ready to use and performs variable substitution only.
type Resolver struct {
	shell Executor // Runs $(...) commands, nil disables shell expansion
}

// New returns a new [Resolver].
func New(options ...Option) Resolver {
	var r Resolver
	for _, option := range options {
		option(&r)
	}

	return r
}

// Resolve substitutes variables from vars into text and then performs shell
// expansion if enabled.
//
// Shell output is never re-scanned for further templates.
func (r Resolver) Resolve(ctx context.Context, text string, vars map[string]string) (string, error) {
	substituted := Substitute(text, vars)
	if r.shell == nil {
		return substituted, nil
	}

	return r.expand(ctx, substituted)
}

// Substitute replaces every {{NAME}} in text with vars[NAME], leaving unknown
// names as they are.
func Substitute(text string, vars map[string]string) string {
	if !strings.Contains(text, "{{") {
		return text
	}

	return variablePattern.ReplaceAllStringFunc(text, func(match string) string {
		name := match[2 : len(match)-2]
		if value, ok := vars[name]; ok {
			return value
		}

		return match
	})
}

// expand replaces every unescaped $(command) in text with the command's trimmed output.
//
// A command is everything from the "$(" up to the first ')', it must be non empty. An
// escaped "\$(" is left verbatim, escape character included.
func (r Resolver) expand(ctx context.Context, text string) (string, error) {
	if !strings.Contains(text, "$(") {
		return text, nil
	}

	builder := &strings.Builder{}
	rest := text
	for {
		open := strings.Index(rest, "$(")
		if open == -1 {
			builder.WriteString(rest)
			break
		}

		end := strings.IndexByte(rest[open+2:], ')')
		// No closing paren, or the "$()" case, neither is a command
		if end <= 0 {
			builder.WriteString(rest[:open+2])
			rest = rest[open+2:]
			continue
		}

		command := rest[open+2 : open+2+end]
		after := rest[open+2+end+1:]

		if open > 0 && rest[open-1] == '\\' {
			builder.WriteString(rest[:open+2])
			rest = rest[open+2:]
			continue
		}

		out, err := r.shell.Run(ctx, command)
		if err != nil {
			return "", fmt.Errorf("could not expand $(%s): %w", command, err)
		}

		builder.WriteString(rest[:open])
		builder.WriteString(strings.TrimSpace(out))
		rest = after
	}

	return builder.String(), nil
}
