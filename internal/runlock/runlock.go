// Package runlock serializes deployment and cleanup runs against a
// config directory. The lock is advisory (flock), so a crashed process
// releases it automatically.
package runlock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// ErrHeld indicates another process currently holds the lock.
var ErrHeld = errors.New("another deployment is already running")

// Lock is a held advisory file lock.
type Lock struct {
	file *os.File
}

// Acquire takes an exclusive non-blocking lock on the given path,
// creating the file if needed. ErrHeld is returned when another
// process already holds it.
func Acquire(path string) (*Lock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open lock file %s: %w", path, err)
	}

	if err := unix.Flock(int(file.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		file.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, ErrHeld
		}
		return nil, fmt.Errorf("failed to lock %s: %w", path, err)
	}

	// Record the owner for operators inspecting a stale-looking lock.
	// Failures here do not affect the lock itself.
	if err := file.Truncate(0); err == nil {
		fmt.Fprintf(file, "%d\n", os.Getpid())
	}

	return &Lock{file: file}, nil
}

// Release drops the lock. Safe to call once after a successful Acquire.
func (l *Lock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	err := unix.Flock(int(l.file.Fd()), unix.LOCK_UN)
	closeErr := l.file.Close()
	l.file = nil
	if err != nil {
		return fmt.Errorf("failed to unlock: %w", err)
	}
	return closeErr
}
