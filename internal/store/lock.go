package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"
)

// LockFileName is the name of the run lock inside the data directory.
const LockFileName = ".reconcile.lock"

// ErrLocked is returned when another process holds the run lock.
var ErrLocked = errors.New("another reconciliation run holds the lock")

// LockInfo is the content of the lock file.
type LockInfo struct {
	Holder    string    `json:"holder"`
	PID       int       `json:"pid"`
	Hostname  string    `json:"hostname"`
	StartedAt time.Time `json:"started_at"`
}

// RunLock is a lock file that keeps two processes from reconciling the same
// data directory at once. A lock left by a dead local process is stale and
// is taken over.
type RunLock struct {
	path string
}

// NewRunLock creates the lock for a data directory.
func NewRunLock(dir string) *RunLock {
	return &RunLock{path: filepath.Join(dir, LockFileName)}
}

// Path returns the lock file path.
func (l *RunLock) Path() string {
	return l.path
}

// Acquire takes the lock for holder. It fails with an error wrapping
// ErrLocked while a live process holds it. The lock file is created
// exclusively, so two processes racing for it cannot both succeed.
func (l *RunLock) Acquire(holder string) error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("failed to create lock directory: %w", err)
	}

	hostname, err := os.Hostname()
	if err != nil {
		return fmt.Errorf("failed to get hostname: %w", err)
	}
	data, err := json.MarshalIndent(LockInfo{
		Holder:    holder,
		PID:       os.Getpid(),
		Hostname:  hostname,
		StartedAt: time.Now().UTC(),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal lock: %w", err)
	}

	// One retry after clearing a stale lock.
	for attempt := 0; attempt < 2; attempt++ {
		created, err := l.create(data)
		if err != nil {
			return err
		}
		if created {
			return nil
		}

		existing, err := l.Read()
		switch {
		case errors.Is(err, os.ErrNotExist):
			continue
		case err != nil:
			// Unreadable lock: possibly still being written by its creator.
			return fmt.Errorf("%w: %s (%v)", ErrLocked, l.path, err)
		case isProcessAlive(existing.PID, existing.Hostname):
			return fmt.Errorf("%w: %s (PID %d on %s, started %s)", ErrLocked,
				existing.Holder, existing.PID, existing.Hostname, existing.StartedAt.Format(time.RFC3339))
		}

		if err := os.Remove(l.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to remove stale run lock: %w", err)
		}
	}
	return fmt.Errorf("%w: %s", ErrLocked, l.path)
}

// create writes the lock file if it does not exist yet. Reports false when
// another lock file is already present.
func (l *RunLock) create(data []byte) (bool, error) {
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to create run lock: %w", err)
	}
	_, werr := f.Write(data)
	cerr := f.Close()
	if werr == nil {
		werr = cerr
	}
	if werr != nil {
		_ = os.Remove(l.path)
		return false, fmt.Errorf("failed to write run lock: %w", werr)
	}
	return true, nil
}

// Read returns the current lock holder.
func (l *RunLock) Read() (*LockInfo, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, err
	}
	var info LockInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("invalid lock file: %w", err)
	}
	return &info, nil
}

// Release removes the lock file if this process holds it.
func (l *RunLock) Release() error {
	info, err := l.Read()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return os.Remove(l.path)
	}
	if info.PID != os.Getpid() {
		return nil
	}
	if err := os.Remove(l.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove run lock: %w", err)
	}
	return nil
}

// isProcessAlive reports whether pid is running on hostname. Processes on
// other hosts cannot be checked and are assumed alive.
func isProcessAlive(pid int, hostname string) bool {
	currentHost, err := os.Hostname()
	if err != nil {
		return true
	}
	if !strings.EqualFold(hostname, currentHost) {
		return true
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = process.Signal(syscall.Signal(0))
	if err == nil {
		return true
	}
	// EPERM: the process exists but belongs to someone else
	return errors.Is(err, syscall.EPERM)
}
