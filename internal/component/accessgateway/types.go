package accessgateway

import (
	"github.com/catalystcommunity/lattice/internal/component"
	"github.com/catalystcommunity/lattice/internal/component/gateway"
	"github.com/catalystcommunity/lattice/internal/config"
)

// Component deploys the LTE access gateway: it builds the gateway
// services from source, installs the rendered mconfig, and manages the
// magmad systemd unit.
type Component struct {
	runner gateway.CommandRunner
}

var _ component.Component = (*Component)(nil)

// New creates an access gateway component backed by the given runner.
func New(runner gateway.CommandRunner) *Component {
	return &Component{runner: runner}
}

// ID returns the canonical component identifier.
func (c *Component) ID() string {
	return config.ComponentAccessGateway
}

// Dependencies returns the components that must activate first.
func (c *Component) Dependencies() []string {
	return nil
}
