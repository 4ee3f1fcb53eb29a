package nms

import (
	"context"

	"github.com/catalystcommunity/lattice/internal/component"
	"github.com/catalystcommunity/lattice/internal/config"
	"github.com/catalystcommunity/lattice/internal/helm"
)

// HelmClient captures the helm operations the NMS needs.
type HelmClient interface {
	AddRepo(ctx context.Context, opts helm.RepoAddOptions) error
	Install(ctx context.Context, opts helm.InstallOptions) error
	Upgrade(ctx context.Context, opts helm.UpgradeOptions) error
	Uninstall(ctx context.Context, opts helm.UninstallOptions) error
	Exists(ctx context.Context, releaseName, namespace string) (bool, error)
	List(ctx context.Context, namespace string) ([]helm.Release, error)
}

// Component deploys the network management system portal next to the
// orchestrator it administers.
type Component struct {
	helm HelmClient
}

var _ component.Component = (*Component)(nil)

// New creates an NMS component backed by the given helm client.
func New(helmClient HelmClient) *Component {
	return &Component{helm: helmClient}
}

// ID returns the canonical component identifier.
func (c *Component) ID() string {
	return config.ComponentNMS
}

// Dependencies returns the components that must activate first. The
// portal talks to the orchestrator API, so the orchestrator goes in
// ahead of it.
func (c *Component) Dependencies() []string {
	return []string{config.ComponentOrchestrator}
}
