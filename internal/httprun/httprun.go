// Package httprun implements the actual functionality exposed via the CLI.
package httprun

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"go.followtheprocess.codes/httprun/internal/env"
	"go.followtheprocess.codes/httprun/internal/inflight"
	"go.followtheprocess.codes/httprun/internal/render"
	"go.followtheprocess.codes/httprun/internal/resolve"
	"go.followtheprocess.codes/httprun/internal/spec"
	"go.followtheprocess.codes/httprun/internal/syntax"
	"go.followtheprocess.codes/httprun/internal/syntax/parser"
	"go.followtheprocess.codes/httprun/internal/transport"
	"go.followtheprocess.codes/httprun/internal/tui"
	"go.followtheprocess.codes/log"
	"go.followtheprocess.codes/msg"
)

// DefaultTimeout is the default timeout for running a request, including any shell expansion
// but not the time spent choosing an environment.
const DefaultTimeout = 10 * time.Second

// ResponseFile is the name of the file responses are written to for an editor to display.
const ResponseFile = "response.http"

// stdinName is the name used for a document read from stdin.
const stdinName = "stdin"

// App holds the state of the program.
type App struct {
	stdin   io.Reader         // Documents and environment choices may be read from here
	stdout  io.Writer         // Normal program output is written here
	stderr  io.Writer         // Logs, prompts and debug info
	logger  *log.Logger       // The logger
	tracker *inflight.Tracker // Tracks the request in flight
	chooser env.Chooser       // Picks an environment when there's more than one, nil for the default
}

// Option is a functional option for configuring an [App].
type Option func(*App)

// WithChooser sets the [env.Chooser] used to pick an environment, by default
// this is a TUI if stdin is a terminal or a line prompt if not.
func WithChooser(chooser env.Chooser) Option {
	return func(a *App) {
		a.chooser = chooser
	}
}

// New returns a new instance of [App].
func New(stdin io.Reader, stdout, stderr io.Writer, debug bool, options ...Option) App {
	logger := log.New(stderr)
	if debug {
		logger = log.New(stderr, log.WithLevel(log.LevelDebug))
	}

	app := App{
		stdin:   stdin,
		stdout:  stdout,
		stderr:  stderr,
		logger:  logger,
		tracker: &inflight.Tracker{},
	}

	for _, option := range options {
		option(&app)
	}

	return app
}

// CheckOptions are the flags passed to the `httprun check` subcommand.
type CheckOptions struct{}

// Check implements the `httprun check` subcommand.
//
// Every request block in every file is parsed, variables are not resolved and no
// shell commands are run.
func (a App) Check(files []string, options CheckOptions) error {
	invalid := 0
	for _, file := range files {
		src, err := a.open(file)
		if err != nil {
			return err
		}

		blocks := syntax.Blocks(src.doc)
		if len(blocks) == 0 {
			msg.Fwarn(a.stderr, "%s contains no requests", src.name)
			continue
		}

		handler := syntax.PrettyConsoleHandler(a.stderr, src.doc)

		ok := true
		for _, block := range blocks {
			p := parser.New(src.name, src.doc.Text(block), resolve.New(), handler, parser.StartLine(block.Start+1))
			if _, err := p.Parse(context.Background(), nil); err != nil {
				a.logger.Debug("Invalid request", "file", src.name, "line", block.Start+1, "error", err.Error())
				ok = false
			}
		}

		if !ok {
			invalid++
			continue
		}

		msg.Fsuccess(a.stdout, "%s is valid", src.name)
	}

	if invalid != 0 {
		return fmt.Errorf("%d of %d files are not valid http syntax", invalid, len(files))
	}

	return nil
}

// RequestOptions select and resolve a single request, they are shared by
// `httprun run` and `httprun show`.
type RequestOptions struct {
	Env         string // Name of the environment to use, empty to choose
	Line        int    // Line the cursor is on (1 indexed)
	End         int    // Last line of an explicit selection (1 indexed), 0 to locate the request
	NoShell     bool   // Disable $(...) shell expansion
	DefaultWins bool   // Let .env values override those of named environments
}

// ShowOptions are the flags passed to the `httprun show` subcommand.
type ShowOptions struct {
	RequestOptions

	JSON bool // Output the request as JSON
}

// Show implements the `httprun show` subcommand, printing the resolved request
// without sending it.
func (a App) Show(ctx context.Context, file string, options ShowOptions) error {
	selected, err := a.prepare(file, options.RequestOptions)
	if err != nil {
		return err
	}

	request, err := a.parse(ctx, selected)
	if err != nil {
		return err
	}

	if options.JSON {
		encoder := json.NewEncoder(a.stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(request)
	}

	fmt.Fprintln(a.stdout, strings.TrimSpace(request.String()))
	return nil
}

// Display is where a response is shown.
type Display int

const (
	DisplayStdout     Display = iota // Straight to stdout
	DisplayVertical                  // A vertical split in the editor
	DisplayHorizontal                // A horizontal split in the editor
	DisplayTab                       // A new tab in the editor
)

// command returns the editor command opening a file in d.
func (d Display) command() string {
	switch d {
	case DisplayVertical:
		return "vsplit"
	case DisplayHorizontal:
		return "split"
	case DisplayTab:
		return "tabnew"
	default:
		return ""
	}
}

// RunOptions are the flags passed to the `httprun run` subcommand.
type RunOptions struct {
	RequestOptions

	PIDFile    string        // Where the pid of the running request is recorded, empty for the default
	OutputDir  string        // Where ResponseFile is written for an editor display, empty for the temp dir
	Timeout    time.Duration // Timeout for the whole request
	Vertical   bool          // Show the response in a vertical split
	Horizontal bool          // Show the response in a horizontal split
	Tab        bool          // Show the response in a new tab
}

// display returns where the response should be shown.
func (r RunOptions) display() (Display, error) {
	display := DisplayStdout
	count := 0
	for _, flag := range []struct {
		display Display
		set     bool
	}{
		{DisplayVertical, r.Vertical},
		{DisplayHorizontal, r.Horizontal},
		{DisplayTab, r.Tab},
	} {
		if flag.set {
			display = flag.display
			count++
		}
	}

	if count > 1 {
		return DisplayStdout, errors.New("only one of --vertical, --horizontal and --tab may be used")
	}

	return display, nil
}

// Run implements the `httprun run` subcommand, sending the request under the cursor.
//
// Any request already running is stopped first. If the request is stopped while running,
// either by `httprun stop` or an interrupt, it is reported rather than treated as an error.
func (a App) Run(ctx context.Context, file string, options RunOptions) error {
	display, err := options.display()
	if err != nil {
		return err
	}

	timeout := options.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	pidFile := options.PIDFile
	if pidFile == "" {
		pidFile = inflight.DefaultPath()
	}

	lock, err := inflight.Acquire(pidFile)
	if err != nil {
		return err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			a.logger.Warn("Could not release pid file", "path", pidFile, "error", err.Error())
		}
	}()

	// Choosing an environment may wait on the user so it happens before the clock starts
	selected, err := a.prepare(file, options.RequestOptions)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ctx, handle := a.tracker.Begin(ctx)
	defer handle.Done()

	interrupts := make(chan os.Signal, 1)
	signal.Notify(interrupts, os.Interrupt)
	defer signal.Stop(interrupts)

	go func() {
		select {
		case <-interrupts:
			a.logger.Debug("Interrupted")
			handle.Stop()
		case <-ctx.Done():
		}
	}()

	response, err := a.send(ctx, selected)
	if err != nil {
		switch {
		case errors.Is(err, inflight.ErrTerminated):
			msg.Fwarn(a.stderr, "The request was terminated")
			return nil
		case errors.Is(err, context.DeadlineExceeded):
			return fmt.Errorf("request timed out after %s: %w", timeout, err)
		default:
			return err
		}
	}

	msg.Finfo(a.stderr, "The HTTP request ran in %.3f seconds", response.Elapsed.Seconds())

	if display == DisplayStdout {
		return render.Response(a.stdout, response, render.Options{Color: isTerminal(a.stdout)})
	}

	dir := options.OutputDir
	if dir == "" {
		dir = os.TempDir()
	}

	path := filepath.Join(dir, ResponseFile)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("could not create response file: %w", err)
	}
	defer f.Close()

	if err := render.Response(f, response, render.Options{}); err != nil {
		return err
	}

	fmt.Fprintf(a.stdout, "%s %s\n", display.command(), path)

	return f.Close()
}

// send resolves the selected request and sends it.
func (a App) send(ctx context.Context, selected selection) (transport.Response, error) {
	request, err := a.parse(ctx, selected)
	if err != nil {
		return transport.Response{}, err
	}

	msg.Finfo(a.stderr, "Running HTTP request: %s %s", strings.ToUpper(request.Method), request.URL)

	return transport.New(a.logger).Do(ctx, request)
}

// StopOptions are the flags passed to the `httprun stop` subcommand.
type StopOptions struct {
	PIDFile string // Where the pid of the running request is recorded, empty for the default
}

// Stop implements the `httprun stop` subcommand.
func (a App) Stop(options StopOptions) error {
	pidFile := options.PIDFile
	if pidFile == "" {
		pidFile = inflight.DefaultPath()
	}

	stopped, err := inflight.Signal(pidFile)
	if err != nil {
		return err
	}

	if !stopped {
		msg.Finfo(a.stdout, "No request is running")
		return nil
	}

	msg.Fsuccess(a.stdout, "Stopped the running request")
	return nil
}

// EnvsOptions are the flags passed to the `httprun envs` subcommand.
type EnvsOptions struct {
	DefaultWins bool // Let .env values override those of named environments
	Verbose     bool // Show the variables in each environment too
}

// Envs implements the `httprun envs` subcommand, listing the environments available
// to file in the order they would be offered.
func (a App) Envs(file string, options EnvsOptions) error {
	set, err := a.environments(file, options.DefaultWins)
	if err != nil {
		return err
	}

	if set.Len() == 0 {
		msg.Fwarn(a.stderr, "No environments found for %s", file)
		return nil
	}

	for i, name := range set.Names() {
		fmt.Fprintf(a.stdout, "%d: %s\n", i+1, name)
		if !options.Verbose {
			continue
		}

		vars, _ := set.Get(name)
		keys := make([]string, 0, len(vars))
		for key := range vars {
			keys = append(keys, key)
		}
		slices.Sort(keys)

		for _, key := range keys {
			fmt.Fprintf(a.stdout, "   %s=%s\n", key, vars[key])
		}
	}

	return nil
}

// Interactive runs the TUI, this is what happens when users call `httprun` with no arguments.
//
// The user picks a request file under the current directory, then a request in it
// which is run as if by `httprun run`.
func (a App) Interactive(ctx context.Context, options RunOptions) error {
	file, err := tui.PickFile(".", a.stdin, a.stderr)
	if err != nil {
		return err
	}

	src, err := a.open(file)
	if err != nil {
		return err
	}

	blocks := syntax.Blocks(src.doc)
	if len(blocks) == 0 {
		return fmt.Errorf("%s contains no requests", file)
	}

	block, err := tui.PickBlock(file, blocks, a.stdin, a.stderr)
	if err != nil {
		return err
	}

	options.Line = block.Start + 1
	options.End = 0

	return a.Run(ctx, file, options)
}

// source is a document along with where it came from.
type source struct {
	doc  syntax.Document // The document
	name string          // Name for error messages, the path or "stdin"
	path string          // Path to the file, empty for stdin
}

// open reads file, "-" means stdin.
func (a App) open(file string) (source, error) {
	if file == "-" {
		doc, err := syntax.ReadDocument(a.stdin)
		if err != nil {
			return source{}, err
		}
		return source{doc: doc, name: stdinName}, nil
	}

	f, err := os.Open(file)
	if err != nil {
		return source{}, err
	}
	defer f.Close()

	doc, err := syntax.ReadDocument(f)
	if err != nil {
		return source{}, err
	}

	return source{doc: doc, name: file, path: file}, nil
}

// selection is a located request block and the variables chosen for it.
type selection struct {
	src     source       // The document the block is in
	vars    env.Vars     // Variables in scope
	block   syntax.Block // The request block
	noShell bool         // Disable $(...) shell expansion
}

// prepare reads the document, locates the request selected by options and chooses
// the environment to resolve it with.
func (a App) prepare(file string, options RequestOptions) (selection, error) {
	src, err := a.open(file)
	if err != nil {
		return selection{}, err
	}

	block, err := selectBlock(src.doc, options.Line, options.End)
	if err != nil {
		return selection{}, fmt.Errorf("%s: %w", src.name, err)
	}

	a.logger.Debug("Selected request", "file", src.name, "start", block.Start+1, "end", block.End+1)

	set, err := a.environments(src.path, options.DefaultWins)
	if err != nil {
		return selection{}, err
	}

	vars, err := a.choose(set, options.Env, src.path == "")
	if err != nil {
		var selectionErr *env.SelectionError
		if !errors.As(err, &selectionErr) {
			return selection{}, err
		}
		msg.Fwarn(a.stderr, "%v, continuing without variables", err)
	}

	return selection{src: src, block: block, vars: vars, noShell: options.NoShell}, nil
}

// parse parses the selected block, resolving variables and shell expansions.
func (a App) parse(ctx context.Context, selected selection) (spec.Request, error) {
	src := selected.src

	var resolverOptions []resolve.Option
	if !selected.noShell {
		dir := "."
		if src.path != "" {
			dir = filepath.Dir(src.path)
		}
		resolverOptions = append(resolverOptions, resolve.WithShell(resolve.Shell{Dir: dir}))
	}

	p := parser.New(
		src.name,
		src.doc.Text(selected.block),
		resolve.New(resolverOptions...),
		syntax.PrettyConsoleHandler(a.stderr, src.doc),
		parser.StartLine(selected.block.Start+1),
	)

	request, err := p.Parse(ctx, selected.vars)
	if err != nil {
		var malformed *syntax.MalformedRequestError
		if errors.As(err, &malformed) {
			return spec.Request{}, fmt.Errorf("%w: %s is not valid http syntax", err, src.name)
		}
		return spec.Request{}, err
	}

	return request, nil
}

// environments loads the environments available to the document at path, an empty
// path only searches the current directory.
func (a App) environments(path string, defaultWins bool) (env.Set, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return env.Set{}, fmt.Errorf("could not get current directory: %w", err)
	}

	order := env.NamedWins
	if defaultWins {
		order = env.DefaultWins
	}

	loader := env.NewLoader(a.logger, env.WithMergeOrder(order))

	return loader.Load(env.SearchDirs(cwd, path)...), nil
}

// errStdinTaken is why the default chooser can't ask when the document came from stdin.
var errStdinTaken = errors.New("the document was read from stdin, use --env to pick an environment")

// choose picks the variables to use from set, fromStdin is whether the document
// itself was read from stdin.
func (a App) choose(set env.Set, name string, fromStdin bool) (env.Vars, error) {
	if name != "" {
		return env.ChooseByName(set, name)
	}

	chooser := a.chooser
	switch {
	case chooser != nil:
	case fromStdin:
		// Nothing is left on stdin to answer a prompt with
		chooser = unavailableChooser{err: errStdinTaken}
	default:
		chooser = a.defaultChooser()
	}

	return env.Choose(set, chooser)
}

// unavailableChooser is an [env.Chooser] for when there is no way to ask.
type unavailableChooser struct {
	err error // Why not
}

func (u unavailableChooser) Choose(names []string) (string, error) {
	return "", u.err
}

// defaultChooser returns the TUI chooser if stdin is a terminal, otherwise a line prompt.
func (a App) defaultChooser() env.Chooser {
	if f, ok := a.stdin.(*os.File); ok && isTTY(f) {
		return tui.EnvironmentChooser{In: a.stdin, Out: a.stderr}
	}

	return env.PromptChooser{In: a.stdin, Out: a.stderr}
}

// selectBlock returns the block at line (1 indexed), either located around it or
// the explicit selection line..end.
func selectBlock(doc syntax.Document, line, end int) (syntax.Block, error) {
	if line < 1 {
		line = 1
	}

	if end == 0 {
		return syntax.Locate(doc, line-1)
	}

	if end < line || end > doc.Len() {
		return syntax.Block{}, fmt.Errorf("invalid selection: lines %d-%d of a %d line document", line, end, doc.Len())
	}

	return syntax.Block{
		Head:  strings.TrimSpace(doc.Lines()[line-1]),
		Start: line - 1,
		End:   end - 1,
	}, nil
}

// isTerminal reports whether w is a terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && isTTY(f)
}

// isTTY reports whether f is a terminal.
func isTTY(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
