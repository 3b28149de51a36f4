// Package lockfile makes a reveal server the sole owner of its state directory.
//
// The SQLite visitor database lives in that directory, so a second server on the
// same directory is refused. The flock goes away with the process, which means a
// leftover file from a crash never blocks a restart.
package lockfile

import (
	"bufio"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// LockFileName is created inside the state directory.
const LockFileName = "reveal.lock"

// Holder is the server recorded in a lock file.
type Holder struct {
	PID     int
	Started time.Time
	Alive   bool
}

func (h Holder) String() string {
	state := "running"
	if !h.Alive {
		state = "gone"
	}
	if h.Started.IsZero() {
		return fmt.Sprintf("pid %d (%s)", h.PID, state)
	}
	return fmt.Sprintf("pid %d since %s (%s)", h.PID, h.Started.Format(time.RFC3339), state)
}

// Lock is a held state directory.
type Lock struct {
	f    *os.File
	path string
}

// AcquireLock takes the state directory for this process, creating the
// directory when needed. A held directory yields a *LockError.
func AcquireLock(stateDir string) (*Lock, error) {
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create state directory %s: %w", stateDir, err)
	}
	path := filepath.Join(stateDir, LockFileName)

	// No O_TRUNC: the current holder's record must survive a refused attempt
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open lock file %s: %w", path, err)
	}

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		f.Close()
		lerr := &LockError{Path: path, Cause: err}
		if h, ok := readHolder(path); ok {
			lerr.Holder = &h
		}
		slog.Error("lockfile.AcquireLock: state directory in use", "lock_path", path, "holder", lerr.holderText())
		return nil, lerr
	}

	if err := writeHolder(f, os.Getpid(), time.Now()); err != nil {
		_ = syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
		f.Close()
		return nil, fmt.Errorf("failed to record lock holder in %s: %w", path, err)
	}

	slog.Info("lockfile.AcquireLock: state directory locked", "lock_path", path, "pid", os.Getpid())
	return &Lock{f: f, path: path}, nil
}

// Path returns the lock file path.
func (l *Lock) Path() string { return l.path }

// Release unlocks and removes the lock file. Calling it again is a no-op.
func (l *Lock) Release() error {
	if l.f == nil {
		return nil
	}
	var errs []error
	if err := syscall.Flock(int(l.f.Fd()), syscall.LOCK_UN); err != nil {
		errs = append(errs, fmt.Errorf("unlock: %w", err))
	}
	if err := l.f.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close: %w", err))
	}
	l.f = nil
	// A missing file only means someone cleaned up before us
	if err := os.Remove(l.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("lockfile.Release: lock file left behind", "lock_path", l.path, "error", err)
	}
	slog.Debug("lockfile.Release: state directory unlocked", "lock_path", l.path)
	return errors.Join(errs...)
}

// LockError reports a state directory held by another server.
type LockError struct {
	Path   string
	Holder *Holder // nil when the record could not be read
	Cause  error
}

func (e *LockError) Error() string {
	return fmt.Sprintf("state directory is locked by another reveal server (%s, held by %s)", e.Path, e.holderText())
}

// Stale reports whether the recorded holder has exited.
func (e *LockError) Stale() bool {
	return e.Holder != nil && !e.Holder.Alive
}

func (e *LockError) Unwrap() error { return e.Cause }

func (e *LockError) holderText() string {
	if e.Holder == nil {
		return "an unknown process"
	}
	return e.Holder.String()
}

func writeHolder(f *os.File, pid int, started time.Time) error {
	if err := f.Truncate(0); err != nil {
		return err
	}
	if _, err := f.Seek(0, 0); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(f, "pid=%d\nstarted=%s\n", pid, started.UTC().Format(time.RFC3339)); err != nil {
		return err
	}
	if err := f.Sync(); err != nil {
		slog.Warn("lockfile.writeHolder: sync failed", "error", err)
	}
	return nil
}

func readHolder(path string) (Holder, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Holder{}, false
	}
	h, ok := parseHolder(string(data))
	if !ok {
		return Holder{}, false
	}
	h.Alive = processAlive(h.PID)
	return h, true
}

// parseHolder reads the key=value lines of a lock file. A record without a
// valid pid is rejected.
func parseHolder(content string) (Holder, bool) {
	var h Holder
	sc := bufio.NewScanner(strings.NewReader(content))
	for sc.Scan() {
		key, value, ok := strings.Cut(strings.TrimSpace(sc.Text()), "=")
		if !ok {
			continue
		}
		switch key {
		case "pid":
			pid, err := strconv.Atoi(value)
			if err != nil || pid <= 0 {
				return Holder{}, false
			}
			h.PID = pid
		case "started":
			if t, err := time.Parse(time.RFC3339, value); err == nil {
				h.Started = t
			}
		}
	}
	return h, h.PID > 0
}

// processAlive probes pid with signal 0. EPERM still means the process exists.
func processAlive(pid int) bool {
	p, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = p.Signal(syscall.Signal(0))
	return err == nil || errors.Is(err, syscall.EPERM)
}
