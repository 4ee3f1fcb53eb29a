package component

import (
	"context"
	"fmt"

	"github.com/catalystcommunity/lattice/internal/config"
)

// Component represents a deployable piece of the stack (orchestrator,
// gateways, NMS).
type Component interface {
	// ID returns the canonical component identifier.
	ID() string

	// Dependencies returns the component IDs that must be active
	// before this one activates.
	Dependencies() []string

	// Activate deploys the component. The artifact at artifactPath was
	// rendered from the same record and is the declarative input the
	// adapter works from.
	Activate(ctx context.Context, rec *config.Record, artifactPath string) error

	// Status queries the current status of the component.
	Status(ctx context.Context, rec *config.Record) (*Status, error)

	// Deactivate removes the component's workloads. It must be safe to
	// call when the component was never activated.
	Deactivate(ctx context.Context, rec *config.Record) error
}

// Status represents the runtime status of a component
type Status struct {
	// Installed indicates whether the component is installed
	Installed bool

	// Version is the currently installed version (empty if not installed)
	Version string

	// Healthy indicates whether the component is functioning correctly
	Healthy bool

	// Message provides additional status information (errors, warnings, etc.)
	Message string
}

// ErrComponentNotFound returns an error indicating that a component was not found
func ErrComponentNotFound(id string) error {
	return fmt.Errorf("component %q not found in registry", id)
}
