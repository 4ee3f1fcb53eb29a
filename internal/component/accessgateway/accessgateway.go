package accessgateway

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/catalystcommunity/lattice/internal/component"
	"github.com/catalystcommunity/lattice/internal/component/gateway"
	"github.com/catalystcommunity/lattice/internal/config"
)

const (
	buildSubdir = "lte/gateway"
	mconfigName = "gateway.mconfig"
)

// Activate builds the access gateway from source, installs the rendered
// mconfig under /etc/magma, and enables and starts the magmad unit.
func (c *Component) Activate(ctx context.Context, rec *config.Record, artifactPath string) error {
	if rec.AccessGateway == nil {
		return &component.AdapterError{
			Component: c.ID(),
			Op:        "activate",
			Err:       errors.New("record has no accessGateway section"),
		}
	}

	srcDir, err := gateway.SourceDir()
	if err != nil {
		return &component.AdapterError{Component: c.ID(), Op: "locate source directory", Err: err}
	}

	fmt.Println("  Fetching gateway sources...")
	if err := gateway.EnsureSources(ctx, c.runner, srcDir); err != nil {
		return &component.AdapterError{Component: c.ID(), Op: "fetch sources", Retryable: true, Err: err}
	}

	fmt.Println("  Building gateway services...")
	if err := gateway.Build(ctx, c.runner, filepath.Join(srcDir, buildSubdir)); err != nil {
		return &component.AdapterError{Component: c.ID(), Op: "build gateway", Err: err}
	}

	fmt.Println("  Installing gateway configuration...")
	if err := gateway.InstallMconfig(ctx, c.runner, artifactPath, mconfigName); err != nil {
		return &component.AdapterError{Component: c.ID(), Op: "install mconfig", Err: err}
	}

	fmt.Println("  Starting gateway services...")
	if err := gateway.EnableAndStart(ctx, c.runner); err != nil {
		return &component.AdapterError{Component: c.ID(), Op: "start service", Err: err}
	}
	return nil
}

// Status reports the state of the magmad unit and the installed mconfig.
func (c *Component) Status(ctx context.Context, _ *config.Record) (*component.Status, error) {
	return gateway.ServiceStatus(ctx, c.runner, mconfigName)
}

// Deactivate stops and disables the magmad unit. A gateway that was
// never installed is left alone.
func (c *Component) Deactivate(ctx context.Context, _ *config.Record) error {
	installed, err := gateway.Installed(ctx, c.runner)
	if err != nil {
		return &component.AdapterError{Component: c.ID(), Op: "query service", Err: err}
	}
	if !installed {
		return nil
	}

	fmt.Println("  Stopping gateway services...")
	if err := gateway.StopAndDisable(ctx, c.runner); err != nil {
		return &component.AdapterError{Component: c.ID(), Op: "stop service", Err: err}
	}
	return nil
}
