// Package commands implements the lattice CLI verbs behind the root
// command's flags: deploy (the default), status, and clean.
package commands

import (
	"errors"
	"fmt"

	"github.com/catalystcommunity/lattice/internal/config"
	"github.com/catalystcommunity/lattice/internal/runlock"
	"github.com/catalystcommunity/lattice/internal/runlog"
)

// ErrCancelled reports that the operator declined a confirmation. The
// command has already said why, so main exits non-zero without printing
// anything further.
var ErrCancelled = errors.New("cancelled by user")

// Options carries the root command's flags.
type Options struct {
	// ConfigPath is the --config flag: a saved deployment record to
	// replay instead of prompting.
	ConfigPath string
	// Components is the --components flag: a comma-separated selection
	// that narrows or preselects the component menu.
	Components string
	// DryRun writes artifacts and prints the plan without deploying.
	DryRun bool
	// SkipPrerequisites bypasses the tool probe.
	SkipPrerequisites bool
}

// openRunLog opens the append-only deploy log, degrading to a no-op
// logger when the config directory is not writable.
func openRunLog() *runlog.Logger {
	path, err := config.RunLogPath()
	if err != nil {
		return runlog.Nop()
	}
	logger, err := runlog.Open(path)
	if err != nil {
		return runlog.Nop()
	}
	return logger
}

// acquireLock serializes deploy and clean runs against the same config
// directory. Status runs are read-only and never take it.
func acquireLock() (*runlock.Lock, error) {
	path, err := config.LockPath()
	if err != nil {
		return nil, err
	}
	lock, err := runlock.Acquire(path)
	if err != nil {
		if errors.Is(err, runlock.ErrHeld) {
			return nil, fmt.Errorf("%w (lock file: %s)", err, path)
		}
		return nil, err
	}
	return lock, nil
}
