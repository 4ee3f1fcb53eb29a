package orchestrator

import (
	"context"
	"time"

	"github.com/catalystcommunity/lattice/internal/component"
	"github.com/catalystcommunity/lattice/internal/config"
	"github.com/catalystcommunity/lattice/internal/helm"
)

// HelmClient captures the helm operations the orchestrator needs.
type HelmClient interface {
	AddRepo(ctx context.Context, opts helm.RepoAddOptions) error
	Install(ctx context.Context, opts helm.InstallOptions) error
	Upgrade(ctx context.Context, opts helm.UpgradeOptions) error
	Uninstall(ctx context.Context, opts helm.UninstallOptions) error
	Exists(ctx context.Context, releaseName, namespace string) (bool, error)
	List(ctx context.Context, namespace string) ([]helm.Release, error)
}

// KubeClient captures the Kubernetes operations the orchestrator needs.
type KubeClient interface {
	WaitForPodsReady(ctx context.Context, namespace, selector string, timeout time.Duration) error
}

// Component deploys the orchestrator control plane: a PostgreSQL
// backing store and the orc8r chart on top of it.
type Component struct {
	helm HelmClient
	kube KubeClient
}

var _ component.Component = (*Component)(nil)

// New creates an orchestrator component backed by the given clients.
func New(helmClient HelmClient, kubeClient KubeClient) *Component {
	return &Component{
		helm: helmClient,
		kube: kubeClient,
	}
}

// ID returns the canonical component identifier.
func (c *Component) ID() string {
	return config.ComponentOrchestrator
}

// Dependencies returns the components that must activate first.
func (c *Component) Dependencies() []string {
	return nil
}
