// Package localexec runs commands on the local host. It is the local
// counterpart of a remote execution session: callers get stdout,
// stderr, and the exit code back, and a non-zero exit is reported in
// the result rather than as an error.
package localexec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// Result contains the result of a command execution
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Runner executes local commands, mirroring each invocation to the
// run log at debug level.
type Runner struct {
	logger *slog.Logger
}

// NewRunner returns a Runner. A nil logger disables command logging.
func NewRunner(logger *slog.Logger) *Runner {
	return &Runner{logger: logger}
}

// Run executes a command with explicit arguments. A non-zero exit code
// comes back in the Result; an error is returned only when the command
// could not run at all or the context ended.
func (r *Runner) Run(ctx context.Context, name string, args ...string) (*Result, error) {
	if name == "" {
		return nil, fmt.Errorf("command cannot be empty")
	}
	cmd := exec.CommandContext(ctx, name, args...)
	return r.run(ctx, cmd, strings.Join(append([]string{name}, args...), " "))
}

// RunShell executes a script through `sh -c`, for the few places that
// genuinely need shell features such as pipelines.
func (r *Runner) RunShell(ctx context.Context, script string) (*Result, error) {
	if script == "" {
		return nil, fmt.Errorf("command cannot be empty")
	}
	cmd := exec.CommandContext(ctx, "sh", "-c", script)
	return r.run(ctx, cmd, script)
}

func (r *Runner) run(ctx context.Context, cmd *exec.Cmd, display string) (*Result, error) {
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	// A context cancellation takes precedence over whatever partial
	// exit state the killed process reported.
	if ctx.Err() != nil {
		r.log(display, -1, elapsed, ctx.Err())
		return nil, ctx.Err()
	}

	result := &Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: 0,
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		} else {
			r.log(display, -1, elapsed, err)
			return nil, fmt.Errorf("failed to execute command: %w", err)
		}
	}

	r.log(display, result.ExitCode, elapsed, nil)
	return result, nil
}

func (r *Runner) log(command string, exitCode int, elapsed time.Duration, err error) {
	if r.logger == nil {
		return
	}
	if err != nil {
		r.logger.Debug("command failed",
			"command", command,
			"duration", elapsed.Round(time.Millisecond).String(),
			"error", err.Error(),
		)
		return
	}
	r.logger.Debug("command finished",
		"command", command,
		"exitCode", exitCode,
		"duration", elapsed.Round(time.Millisecond).String(),
	)
}
