// Package cmd implements httprun's CLI.
package cmd

import (
	"context"
	"os"
	"time"

	"go.followtheprocess.codes/cli"
	"go.followtheprocess.codes/httprun/internal/httprun"
	"go.followtheprocess.codes/httprun/internal/inflight"
)

var (
	version = "dev"
	commit  = ""
	date    = ""
)

const rootLong = `
With no arguments, httprun lets you pick a .http or .rest file under the
current directory and then a request in it, which is then sent.

The subcommands are what an editor integration drives, pointing httprun at
the line the cursor is on.
`

// Build returns the root httprun CLI command, any options are applied after the defaults.
func Build(options ...cli.Option) (*cli.Command, error) {
	var runOptions httprun.RunOptions
	var debug bool
	var timeout float64
	defaults := []cli.Option{
		cli.Short("Run the HTTP requests in .http files"),
		cli.Long(rootLong),
		cli.Allow(cli.NoArgs()),
		cli.Version(version),
		cli.Commit(commit),
		cli.BuildDate(date),
		cli.Flag(&timeout, "timeout", cli.NoShortHand, httprun.DefaultTimeout.Seconds(), "Timeout for the request in seconds"),
		cli.Flag(&runOptions.NoShell, "no-shell", cli.NoShortHand, false, "Disable $(...) shell expansion"),
		cli.Flag(&debug, "verbose", 'v', false, "Enable debug logging"),
		cli.Run(func(cmd *cli.Command, args []string) error {
			runOptions.Timeout = seconds(timeout)
			app := httprun.New(os.Stdin, cmd.Stdout(), cmd.Stderr(), debug)
			return app.Interactive(context.Background(), runOptions)
		}),
		cli.SubCommands(run, stop, check, show, envs),
	}

	return cli.New("httprun", append(defaults, options...)...)
}

// seconds converts a timeout in (possibly fractional) seconds to a [time.Duration].
func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

const runLong = `
The request is the one enclosing the line given by '--line', from the
closest request line at or above it down to the next '###' separator.
An explicit range of lines can be given with '--end' instead, for example
an editor's visual selection.

Variables are taken from the environment files next to the request file,
if there is more than one environment you will be asked to choose unless
'--env' is used.

By default the response is written to stdout. With one of '--vertical',
'--horizontal' or '--tab' it is written to a response.http file instead
and the editor command to open it is printed.

Any request already running is stopped first.
`

// run returns the run subcommand.
func run() (*cli.Command, error) {
	var options httprun.RunOptions
	var debug bool
	var timeout float64
	return cli.New(
		"run",
		cli.Short("Send the request under a line of a .http file"),
		cli.Long(runLong),
		cli.RequiredArg("file", "Path of the .http file, '-' for stdin"),
		cli.Flag(&options.Line, "line", 'l', 1, "Line the cursor is on"),
		cli.Flag(&options.End, "end", 'e', 0, "Last line of an explicit selection"),
		cli.Flag(&options.Env, "env", cli.NoShortHand, "", "Name of the environment to use"),
		cli.Flag(&options.Vertical, "vertical", cli.NoShortHand, false, "Show the response in a vertical split"),
		cli.Flag(&options.Horizontal, "horizontal", cli.NoShortHand, false, "Show the response in a horizontal split"),
		cli.Flag(&options.Tab, "tab", cli.NoShortHand, false, "Show the response in a new tab"),
		cli.Flag(&options.OutputDir, "output-dir", cli.NoShortHand, "", "Directory for response.http, defaults to the temp dir"),
		cli.Flag(&timeout, "timeout", cli.NoShortHand, httprun.DefaultTimeout.Seconds(), "Timeout for the request in seconds"),
		cli.Flag(&options.PIDFile, "pid-file", cli.NoShortHand, inflight.DefaultPath(), "Where the running request is recorded"),
		cli.Flag(&options.NoShell, "no-shell", cli.NoShortHand, false, "Disable $(...) shell expansion"),
		cli.Flag(&options.DefaultWins, "default-wins", cli.NoShortHand, false, "Let .env values override named environments"),
		cli.Flag(&debug, "verbose", 'v', false, "Enable debug logging"),
		cli.Run(func(cmd *cli.Command, args []string) error {
			options.Timeout = seconds(timeout)
			app := httprun.New(os.Stdin, cmd.Stdout(), cmd.Stderr(), debug)
			return app.Run(context.Background(), cmd.Arg("file"), options)
		}),
	)
}

// stop returns the stop subcommand.
func stop() (*cli.Command, error) {
	var options httprun.StopOptions
	return cli.New(
		"stop",
		cli.Short("Stop the running request"),
		cli.Allow(cli.NoArgs()),
		cli.Flag(&options.PIDFile, "pid-file", cli.NoShortHand, inflight.DefaultPath(), "Where the running request is recorded"),
		cli.Run(func(cmd *cli.Command, args []string) error {
			app := httprun.New(os.Stdin, cmd.Stdout(), cmd.Stderr(), false)
			return app.Stop(options)
		}),
	)
}

// check returns the check subcommand.
func check() (*cli.Command, error) {
	var options httprun.CheckOptions
	return cli.New(
		"check",
		cli.Short("Check .http files for syntax errors"),
		cli.Allow(cli.MinArgs(1)),
		cli.Run(func(cmd *cli.Command, args []string) error {
			app := httprun.New(os.Stdin, cmd.Stdout(), cmd.Stderr(), false)
			return app.Check(args, options)
		}),
	)
}

// show returns the show subcommand.
func show() (*cli.Command, error) {
	var options httprun.ShowOptions
	var debug bool
	return cli.New(
		"show",
		cli.Short("Show the resolved request under a line of a .http file without sending it"),
		cli.RequiredArg("file", "Path of the .http file, '-' for stdin"),
		cli.Flag(&options.Line, "line", 'l', 1, "Line the cursor is on"),
		cli.Flag(&options.End, "end", 'e', 0, "Last line of an explicit selection"),
		cli.Flag(&options.Env, "env", cli.NoShortHand, "", "Name of the environment to use"),
		cli.Flag(&options.JSON, "json", 'j', false, "Output the request as JSON"),
		cli.Flag(&options.NoShell, "no-shell", cli.NoShortHand, false, "Disable $(...) shell expansion"),
		cli.Flag(&options.DefaultWins, "default-wins", cli.NoShortHand, false, "Let .env values override named environments"),
		cli.Flag(&debug, "verbose", 'v', false, "Enable debug logging"),
		cli.Run(func(cmd *cli.Command, args []string) error {
			app := httprun.New(os.Stdin, cmd.Stdout(), cmd.Stderr(), debug)
			return app.Show(context.Background(), cmd.Arg("file"), options)
		}),
	)
}

// envs returns the envs subcommand.
func envs() (*cli.Command, error) {
	var options httprun.EnvsOptions
	return cli.New(
		"envs",
		cli.Short("List the environments available to a .http file"),
		cli.RequiredArg("file", "Path of the .http file"),
		cli.Flag(&options.Verbose, "verbose", 'v', false, "Show the variables in each environment"),
		cli.Flag(&options.DefaultWins, "default-wins", cli.NoShortHand, false, "Let .env values override named environments"),
		cli.Run(func(cmd *cli.Command, args []string) error {
			app := httprun.New(os.Stdin, cmd.Stdout(), cmd.Stderr(), false)
			return app.Envs(cmd.Arg("file"), options)
		}),
	)
}
