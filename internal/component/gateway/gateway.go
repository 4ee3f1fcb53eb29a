package gateway

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/catalystcommunity/lattice/internal/component"
	"github.com/catalystcommunity/lattice/internal/config"
	"github.com/catalystcommunity/lattice/internal/localexec"
	"github.com/catalystcommunity/lattice/internal/systemd"
)

// Shared mechanics for the LTE access gateway and the federation
// gateway: both build from the magma source tree, install an mconfig
// under /etc/magma, and run under the magmad systemd unit.

const (
	// SourceRepoURL is the upstream repository holding the gateway
	// sources.
	SourceRepoURL = "https://github.com/magma/magma.git"

	// ConfigDir is the root-owned directory gateway services read
	// their mconfig from.
	ConfigDir = "/etc/magma"

	// Unit is the systemd unit the deployment manages. magmad
	// supervises the remaining gateway services.
	Unit = "magma@magmad"
)

// CommandRunner captures the command execution the gateways need. It is
// satisfied by localexec.Runner.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) (*localexec.Result, error)
	RunShell(ctx context.Context, command string) (*localexec.Result, error)
}

// mconfigDir is ConfigDir unless tests point it elsewhere.
var mconfigDir = ConfigDir

// SourceDir names the checkout location for the gateway sources, kept
// under the lattice config directory so cleanup can find it.
func SourceDir() (string, error) {
	configDir, err := config.GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "build", "magma"), nil
}

// EnsureSources clones the gateway repository unless a checkout is
// already present at dir.
func EnsureSources(ctx context.Context, runner CommandRunner, dir string) error {
	if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(dir), 0755); err != nil {
		return err
	}
	result, err := runner.Run(ctx, "git", "clone", SourceRepoURL, dir)
	if err != nil {
		return err
	}
	if result.ExitCode != 0 {
		return fmt.Errorf("git clone failed: %s", strings.TrimSpace(result.Stderr))
	}
	return nil
}

// Build runs make build in the given gateway subtree.
func Build(ctx context.Context, runner CommandRunner, dir string) error {
	result, err := runner.RunShell(ctx, fmt.Sprintf("cd %s && make build", dir))
	if err != nil {
		return err
	}
	if result.ExitCode != 0 {
		return fmt.Errorf("make build failed: %s", strings.TrimSpace(result.Stderr))
	}
	return nil
}

// InstallMconfig copies the rendered artifact into /etc/magma under the
// given name. Both steps go through sudo because the directory is
// root-owned.
func InstallMconfig(ctx context.Context, runner CommandRunner, artifactPath, name string) error {
	steps := [][]string{
		{"sudo", "mkdir", "-p", mconfigDir},
		{"sudo", "cp", artifactPath, filepath.Join(mconfigDir, name)},
	}
	for _, argv := range steps {
		result, err := runner.Run(ctx, argv[0], argv[1:]...)
		if err != nil {
			return err
		}
		if result.ExitCode != 0 {
			return fmt.Errorf("%s failed: %s", strings.Join(argv, " "), strings.TrimSpace(result.Stderr))
		}
	}
	return nil
}

// EnableAndStart enables and starts the magmad unit.
func EnableAndStart(ctx context.Context, runner CommandRunner) error {
	if err := systemd.EnableService(ctx, runner, Unit); err != nil {
		return err
	}
	return systemd.StartService(ctx, runner, Unit)
}

// StopAndDisable stops and disables the magmad unit.
func StopAndDisable(ctx context.Context, runner CommandRunner) error {
	if err := systemd.StopService(ctx, runner, Unit); err != nil {
		return err
	}
	return systemd.DisableService(ctx, runner, Unit)
}

// Installed reports whether the magmad unit is known to systemd.
func Installed(ctx context.Context, runner CommandRunner) (bool, error) {
	status, err := systemd.GetServiceStatus(ctx, runner, Unit)
	if err != nil {
		return false, err
	}
	return status.LoadState != "not-found", nil
}

// ServiceStatus builds a component status from the magmad unit state
// and the presence of the named mconfig.
func ServiceStatus(ctx context.Context, runner CommandRunner, configName string) (*component.Status, error) {
	status, err := systemd.GetServiceStatus(ctx, runner, Unit)
	if err != nil {
		return &component.Status{
			Installed: false,
			Healthy:   false,
			Message:   fmt.Sprintf("failed to query service: %v", err),
		}, nil
	}
	if status.LoadState == "not-found" {
		return &component.Status{
			Installed: false,
			Healthy:   false,
			Message:   "gateway service not installed",
		}, nil
	}

	healthy := status.Active && status.Running
	message := fmt.Sprintf("service %s (%s)", status.ActiveState, status.SubState)
	if _, err := os.Stat(filepath.Join(mconfigDir, configName)); err != nil {
		healthy = false
		message += fmt.Sprintf("; %s missing", configName)
	}
	return &component.Status{
		Installed: true,
		Healthy:   healthy,
		Message:   message,
	}, nil
}
