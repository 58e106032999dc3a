// Package env loads the environments available to a request document.
//
// Environments are discovered in files living alongside the document:
//
//   - JSON files whose name ends in "env.json" e.g. "http-client.env.json", holding an object
//     of environment name to a flat object of variables.
//   - Plain ".env" files of KEY=VALUE lines, these make up the "default" environment
//     which is shared by every named environment.
//
// Loading is lenient, a file that cannot be read or parsed is skipped and reported
// rather than failing the whole load.
package env

import (
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"go.followtheprocess.codes/log"
)

// DefaultName is the name of the environment synthesised from .env files when
// no JSON environments are found.
const DefaultName = "default"

// Vars is a flat mapping of variable name to value.
type Vars map[string]string

// Set is an ordered collection of named environments.
//
// The zero value is an empty Set.
type Set struct {
	envs  map[string]Vars // Environment name -> variables
	names []string        // Environment names in the order they were discovered
}

// Len returns the number of environments in the set.
func (s Set) Len() int {
	return len(s.names)
}

// Names returns the environment names in discovery order.
func (s Set) Names() []string {
	return slices.Clone(s.names)
}

// Get returns the variables of the environment called name.
func (s Set) Get(name string) (Vars, bool) {
	vars, ok := s.envs[name]
	return vars, ok
}

// put stores vars under name, a new name is appended to the order while an
// existing one keeps its position and has its variables replaced.
func (s *Set) put(name string, vars Vars) {
	if s.envs == nil {
		s.envs = make(map[string]Vars)
	}

	if _, exists := s.envs[name]; !exists {
		s.names = append(s.names, name)
	}

	s.envs[name] = vars
}

// MergeOrder controls which side wins when the default environment and a named
// environment define the same variable.
type MergeOrder int

const (
	// NamedWins keeps a named environment's own value over the default.
	NamedWins MergeOrder = iota

	// DefaultWins overwrites a named environment's value with the default.
	DefaultWins
)

// String implements [fmt.Stringer] for a [MergeOrder].
func (m MergeOrder) String() string {
	switch m {
	case NamedWins:
		return "named-wins"
	case DefaultWins:
		return "default-wins"
	default:
		return fmt.Sprintf("MergeOrder(%d)", int(m))
	}
}

// LoadError describes an environment file (or directory) that was skipped.
type LoadError struct {
	Err  error  // What went wrong
	Path string // The file or directory
}

// Error implements the error interface for [LoadError].
func (e *LoadError) Error() string {
	return fmt.Sprintf("skipping %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *LoadError) Unwrap() error {
	return e.Err
}

// Option is a functional option for configuring a [Loader].
type Option func(*Loader)

// WithMergeOrder sets the [MergeOrder] used when applying the default environment,
// the default is [NamedWins].
func WithMergeOrder(order MergeOrder) Option {
	return func(l *Loader) {
		l.order = order
	}
}

// OnError installs a hook called with every file skipped during a load.
func OnError(fn func(err *LoadError)) Option {
	return func(l *Loader) {
		l.onError = fn
	}
}

// Loader discovers and merges environment files.
type Loader struct {
	logger  *log.Logger      // Skipped files are logged here
	onError func(*LoadError) // Optional hook for skipped files
	order   MergeOrder       // How the default environment is merged
}

// NewLoader returns a new [Loader].
func NewLoader(logger *log.Logger, options ...Option) Loader {
	loader := Loader{
		logger: logger.Prefixed("env"),
	}

	for _, option := range options {
		option(&loader)
	}

	return loader
}

// SearchDirs returns the directories to search for environment files given
// the current working directory and the path to the document being edited.
//
// An empty file (e.g. the document came from stdin) searches only cwd.
func SearchDirs(cwd, file string) []string {
	dirs := []string{cwd}
	if file == "" {
		return dirs
	}

	dir := filepath.Dir(file)
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(cwd, dir)
	}

	return append(dirs, dir)
}

// Load scans dirs for environment files and merges them into a [Set].
//
// Directories are searched in order, duplicates and directories that don't exist
// are skipped, as are files that cannot be read or parsed. Load never fails, the
// worst case is an empty Set.
func (l Loader) Load(dirs ...string) Set {
	var (
		named    Set
		defaults = make(Vars)
		dotEnv   bool // Whether we found any .env file at all
	)

	seen := make(map[string]bool, len(dirs))
	for _, dir := range dirs {
		dir = filepath.Clean(dir)
		if seen[dir] {
			continue
		}
		seen[dir] = true

		entries, err := os.ReadDir(dir)
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				l.skip(&LoadError{Path: dir, Err: err})
			}
			continue
		}

		// os.ReadDir returns entries sorted by filename
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}

			name := entry.Name()
			path := filepath.Join(dir, name)

			switch {
			case isJSONEnv(name):
				l.logger.Debug("Loading environments", "file", path)
				if err := l.loadJSON(path, &named); err != nil {
					l.skip(&LoadError{Path: path, Err: err})
				}
			case isDotEnv(name):
				l.logger.Debug("Loading default environment", "file", path)
				vars, err := LoadDotEnv(path)
				if err != nil {
					l.skip(&LoadError{Path: path, Err: err})
					continue
				}
				dotEnv = true
				maps.Copy(defaults, vars)
			}
		}
	}

	if named.Len() == 0 {
		if !dotEnv {
			return Set{}
		}

		var set Set
		set.put(DefaultName, defaults)
		return set
	}

	for _, name := range named.names {
		named.envs[name] = merge(named.envs[name], defaults, l.order)
	}

	return named
}

// skip reports a skipped file.
func (l Loader) skip(err *LoadError) {
	l.logger.Warn("Skipping environment file", "path", err.Path, "error", err.Err.Error())
	if l.onError != nil {
		l.onError(err)
	}
}

// loadJSON parses the JSON environment file at path into set.
func (l Loader) loadJSON(path string, set *Set) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	envs, err := parseJSON(data)
	if err != nil {
		return err
	}

	for _, env := range envs {
		if env.err != nil {
			l.skip(&LoadError{Path: path, Err: env.err})
			continue
		}
		set.put(env.name, env.vars)
	}

	return nil
}

// merge returns a copy of named with defaults applied according to order.
func merge(named, defaults Vars, order MergeOrder) Vars {
	merged := make(Vars, len(named)+len(defaults))
	maps.Copy(merged, named)

	for key, value := range defaults {
		if _, exists := merged[key]; exists && order == NamedWins {
			continue
		}
		merged[key] = value
	}

	return merged
}

// isJSONEnv reports whether a filename looks like a JSON environment file.
func isJSONEnv(name string) bool {
	return strings.HasSuffix(name, "env.json")
}

// isDotEnv reports whether a filename looks like a plain .env file.
func isDotEnv(name string) bool {
	return strings.HasSuffix(name, ".env")
}
