package inflight

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

// DefaultPath returns the default location of the pid file.
func DefaultPath() string {
	return filepath.Join(os.TempDir(), "httprun.pid")
}

// Lock is a pid file recording the process currently sending a request.
type Lock struct {
	path string // Location of the pid file
	pid  int    // Our pid, as written to the file
}

// Acquire writes the current pid to the file at path, interrupting the process
// holding it beforehand if there is one. A corrupt pid file is overwritten.
func Acquire(path string) (*Lock, error) {
	pid := os.Getpid()
	if holder, err := readPidFile(path); err == nil && holder.pid != pid {
		if _, err := Signal(path); err != nil {
			return nil, err
		}
	}

	// Not knowing our own executable only loses the recycled pid check
	exe, _ := os.Executable()

	if err := writePidFile(path, pidFile{pid: pid, exe: exe}); err != nil {
		return nil, err
	}

	return &Lock{path: path, pid: pid}, nil
}

// Release removes the pid file, unless another process has since taken it over.
func (l *Lock) Release() error {
	holder, err := readPidFile(l.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}

	if holder.pid != l.pid {
		return nil
	}

	if err := os.Remove(l.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("could not remove pid file: %w", err)
	}

	return nil
}

// Signal interrupts the process recorded in the pid file at path, reporting
// whether there was one to interrupt.
//
// A missing pid file means nothing is running. A pid file is stale, and removed
// without signalling anything, if its process no longer exists, belongs to another
// user or (where the system can tell) is running a different executable than the
// one that wrote the file, i.e. the pid has been recycled.
func Signal(path string) (bool, error) {
	holder, err := readPidFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}

	if holder.exe != "" {
		if exe, ok := executable(holder.pid); ok && exe != holder.exe {
			return false, removeStale(path)
		}
	}

	process, err := os.FindProcess(holder.pid)
	if err == nil {
		err = process.Signal(os.Interrupt)
	}

	if err != nil {
		if isStale(err) {
			return false, removeStale(path)
		}
		return false, fmt.Errorf("could not interrupt process %d: %w", holder.pid, err)
	}

	return true, nil
}

// pidFile is the contents of a pid file, the pid on the first line and the
// executable of that process on the second.
type pidFile struct {
	exe string // Path to the executable of the process, empty if unknown
	pid int    // The process id
}

// isStale reports whether err from signalling a process means the pid file naming
// it is stale: the process is gone or belongs to another user, which can only
// happen once the pid has been recycled.
func isStale(err error) bool {
	return errors.Is(err, os.ErrProcessDone) || errors.Is(err, syscall.ESRCH) || errors.Is(err, syscall.EPERM)
}

// removeStale removes a pid file left behind by a process that is long gone.
func removeStale(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("could not remove stale pid file: %w", err)
	}
	return nil
}

// writePidFile writes contents to the file at path.
func writePidFile(path string, contents pidFile) error {
	data := strconv.Itoa(contents.pid) + "\n"
	if contents.exe != "" {
		data += contents.exe + "\n"
	}

	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		return fmt.Errorf("could not write pid file: %w", err)
	}

	return nil
}

// readPidFile reads the pid file at path, the executable line is optional.
func readPidFile(path string) (pidFile, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return pidFile{}, err
	}

	first, rest, _ := strings.Cut(strings.TrimSpace(string(contents)), "\n")

	pid, err := strconv.Atoi(strings.TrimSpace(first))
	if err != nil || pid <= 0 {
		return pidFile{}, fmt.Errorf("pid file %s is corrupt: %q", path, contents)
	}

	return pidFile{pid: pid, exe: strings.TrimSpace(rest)}, nil
}

// executable returns the executable running as pid, ok is false if the
// system doesn't say, which is everywhere but linux.
func executable(pid int) (string, bool) {
	exe, err := os.Readlink(filepath.Join("/proc", strconv.Itoa(pid), "exe"))
	if err != nil {
		return "", false
	}

	// The binary may have been replaced on disk since it started
	return strings.TrimSuffix(exe, " (deleted)"), true
}
