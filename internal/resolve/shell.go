package resolve

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// ShellError is returned when a $(command) could not be run or exited non zero.
type ShellError struct {
	Err     error  // The underlying error from exec
	Command string // The command that was run
	Stderr  string // Captured standard error of the command, may be empty
}

// Error implements the error interface for [ShellError].
func (e *ShellError) Error() string {
	stderr := strings.TrimSpace(e.Stderr)
	if stderr == "" {
		return fmt.Sprintf("shell command %q failed: %v", e.Command, e.Err)
	}

	return fmt.Sprintf("shell command %q failed: %v: %s", e.Command, e.Err, stderr)
}

// Unwrap returns the underlying error.
func (e *ShellError) Unwrap() error {
	return e.Err
}

// Shell is an [Executor] that runs commands with "sh -c".
type Shell struct {
	Dir string   // Working directory for commands, empty means the current directory
	Env []string // Environment for commands, nil means the current process environment
}

// Run runs command through the shell and returns what it wrote to stdout.
//
// A non zero exit status is a [*ShellError] carrying whatever the command wrote to stderr.
func (s Shell) Run(ctx context.Context, command string) (string, error) {
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = s.Dir
	cmd.Env = s.Env
	if cmd.Env == nil {
		cmd.Env = os.Environ()
	}

	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	if err := cmd.Run(); err != nil {
		return "", &ShellError{Command: command, Stderr: stderr.String(), Err: err}
	}

	return stdout.String(), nil
}
