package systemd

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/catalystcommunity/lattice/internal/localexec"
)

// CommandRunner defines the interface for executing host commands
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) (*localexec.Result, error)
}

// EnableService enables a systemd service to start on boot
func EnableService(ctx context.Context, runner CommandRunner, name string) error {
	return systemctl(ctx, runner, "enable", name)
}

// StartService starts a systemd service
func StartService(ctx context.Context, runner CommandRunner, name string) error {
	return systemctl(ctx, runner, "start", name)
}

// StopService stops a systemd service
func StopService(ctx context.Context, runner CommandRunner, name string) error {
	return systemctl(ctx, runner, "stop", name)
}

// RestartService restarts a systemd service
func RestartService(ctx context.Context, runner CommandRunner, name string) error {
	return systemctl(ctx, runner, "restart", name)
}

// DisableService disables a systemd service from starting on boot
func DisableService(ctx context.Context, runner CommandRunner, name string) error {
	return systemctl(ctx, runner, "disable", name)
}

// systemctl runs a state-changing systemctl verb under sudo
func systemctl(ctx context.Context, runner CommandRunner, verb, name string) error {
	name = normalizeUnit(name)

	result, err := runner.Run(ctx, "sudo", "systemctl", verb, name)
	if err != nil {
		return fmt.Errorf("failed to %s service %s: %w", verb, name, err)
	}
	if result.ExitCode != 0 {
		return fmt.Errorf("failed to %s service %s: %s", verb, name, strings.TrimSpace(result.Stderr))
	}

	return nil
}

// GetServiceStatus queries the status of a systemd service. Units that
// are not installed come back with Loaded false rather than an error.
func GetServiceStatus(ctx context.Context, runner CommandRunner, name string) (*ServiceStatus, error) {
	name = normalizeUnit(name)

	status := &ServiceStatus{
		Name: name,
	}

	result, err := runner.Run(ctx, "systemctl", "show", name, "--no-pager")
	if err != nil {
		return nil, fmt.Errorf("failed to get service status: %w", err)
	}
	if result.ExitCode != 0 {
		return nil, fmt.Errorf("failed to get service status: %s", strings.TrimSpace(result.Stderr))
	}

	// Parse systemctl show output
	lines := strings.Split(result.Stdout, "\n")
	for _, line := range lines {
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := parts[0]
		value := parts[1]

		switch key {
		case "LoadState":
			status.LoadState = value
			status.Loaded = value == "loaded"
		case "ActiveState":
			status.ActiveState = value
			status.Active = value == "active"
		case "SubState":
			status.SubState = value
			status.Running = value == "running"
		case "UnitFileState":
			status.Enabled = value == "enabled"
		case "MainPID":
			if pid, err := strconv.Atoi(value); err == nil {
				status.MainPID = pid
			}
		case "ActiveEnterTimestamp":
			if t, err := parseSystemdTimestamp(value); err == nil {
				status.Since = t
			}
		case "MemoryCurrent":
			if value != "[not set]" {
				if mem, err := strconv.ParseUint(value, 10, 64); err == nil {
					status.Memory = mem
				}
			}
		case "TasksCurrent":
			if value != "[not set]" {
				if tasks, err := strconv.Atoi(value); err == nil {
					status.Tasks = tasks
				}
			}
		}
	}

	return status, nil
}

// IsServiceRunning checks if a service is currently running
func IsServiceRunning(ctx context.Context, runner CommandRunner, name string) (bool, error) {
	status, err := GetServiceStatus(ctx, runner, name)
	if err != nil {
		return false, err
	}
	return status.Running, nil
}

// IsServiceEnabled checks if a service is enabled to start on boot
func IsServiceEnabled(ctx context.Context, runner CommandRunner, name string) (bool, error) {
	status, err := GetServiceStatus(ctx, runner, name)
	if err != nil {
		return false, err
	}
	return status.Enabled, nil
}

// normalizeUnit appends the .service suffix to bare unit names.
// Instantiated template units like magma@magmad pass through the same
// rule, yielding magma@magmad.service.
func normalizeUnit(name string) string {
	if strings.HasSuffix(name, ".service") {
		return name
	}
	return name + ".service"
}

// parseSystemdTimestamp parses systemd timestamp format
func parseSystemdTimestamp(ts string) (time.Time, error) {
	if ts == "" || ts == "n/a" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}

	// Systemd timestamps are in the format: "Day YYYY-MM-DD HH:MM:SS TZ"
	// Example: "Mon 2024-01-15 10:30:45 UTC"
	re := regexp.MustCompile(`\w+ (\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}) \w+`)
	matches := re.FindStringSubmatch(ts)
	if len(matches) < 2 {
		return time.Time{}, fmt.Errorf("invalid timestamp format: %s", ts)
	}

	t, err := time.Parse("2006-01-02 15:04:05", matches[1])
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse timestamp: %w", err)
	}

	return t, nil
}
