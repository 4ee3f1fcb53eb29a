// Package registry wires component adapters for the contexts the CLI
// runs them in: deploying with live clients, inspecting with
// best-effort clients, and planning with no clients at all.
package registry

import (
	"fmt"
	"log/slog"

	"github.com/catalystcommunity/lattice/internal/component"
	"github.com/catalystcommunity/lattice/internal/component/accessgateway"
	"github.com/catalystcommunity/lattice/internal/component/federatedgateway"
	"github.com/catalystcommunity/lattice/internal/component/nms"
	"github.com/catalystcommunity/lattice/internal/component/orchestrator"
	"github.com/catalystcommunity/lattice/internal/config"
	"github.com/catalystcommunity/lattice/internal/helm"
	"github.com/catalystcommunity/lattice/internal/k8s"
	"github.com/catalystcommunity/lattice/internal/localexec"
)

// Runtime wires adapters with live clients for every selected
// component. Clients are only constructed for components that need
// them, so a gateway-only deployment works without cluster access.
func Runtime(rec *config.Record, logger *slog.Logger) (*component.Registry, error) {
	reg := component.NewRegistry()

	var helmClient *helm.Client
	if rec.HasComponent(config.ComponentOrchestrator) || rec.HasComponent(config.ComponentNMS) {
		var err error
		helmClient, err = helm.NewClient(namespaceFor(rec), logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create helm client: %w", err)
		}
	}
	var kubeClient *k8s.Client
	if rec.HasComponent(config.ComponentOrchestrator) {
		var err error
		kubeClient, err = k8s.NewClient()
		if err != nil {
			return nil, fmt.Errorf("failed to create kubernetes client: %w", err)
		}
	}
	var runner *localexec.Runner
	if rec.HasComponent(config.ComponentAccessGateway) || rec.HasComponent(config.ComponentFederatedGateway) {
		runner = localexec.NewRunner(logger)
	}

	if rec.HasComponent(config.ComponentOrchestrator) {
		if err := reg.Register(orchestrator.New(helmClient, kubeClient)); err != nil {
			return nil, err
		}
	}
	if rec.HasComponent(config.ComponentAccessGateway) {
		if err := reg.Register(accessgateway.New(runner)); err != nil {
			return nil, err
		}
	}
	if rec.HasComponent(config.ComponentFederatedGateway) {
		if err := reg.Register(federatedgateway.New(runner)); err != nil {
			return nil, err
		}
	}
	if rec.HasComponent(config.ComponentNMS) {
		if err := reg.Register(nms.New(helmClient)); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// Inspection wires every adapter for read-only status queries. A helm
// client that cannot be constructed leaves the cluster components
// unregistered; their status then reads as unknown instead of failing
// the whole status command.
func Inspection(rec *config.Record, logger *slog.Logger) (*component.Registry, error) {
	reg := component.NewRegistry()

	helmClient, helmErr := helm.NewClient(namespaceFor(rec), logger)
	if helmErr == nil {
		// Status queries never reach for the kubernetes client.
		if err := reg.Register(orchestrator.New(helmClient, nil)); err != nil {
			return nil, err
		}
		if err := reg.Register(nms.New(helmClient)); err != nil {
			return nil, err
		}
	} else {
		fmt.Printf("⚠ helm unavailable: %v\n", helmErr)
	}

	runner := localexec.NewRunner(logger)
	if err := reg.Register(accessgateway.New(runner)); err != nil {
		return nil, err
	}
	if err := reg.Register(federatedgateway.New(runner)); err != nil {
		return nil, err
	}
	return reg, nil
}

// Planning wires inert adapters for the selected components: enough
// for dependency resolution and artifact rendering, never for
// activation. A dry run must not open cluster or host connections.
func Planning(rec *config.Record) (*component.Registry, error) {
	reg := component.NewRegistry()
	for _, id := range rec.SelectedComponents {
		var comp component.Component
		switch id {
		case config.ComponentOrchestrator:
			comp = orchestrator.New(nil, nil)
		case config.ComponentAccessGateway:
			comp = accessgateway.New(nil)
		case config.ComponentFederatedGateway:
			comp = federatedgateway.New(nil)
		case config.ComponentNMS:
			comp = nms.New(nil)
		default:
			return nil, fmt.Errorf("unknown component %q", id)
		}
		if err := reg.Register(comp); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

func namespaceFor(rec *config.Record) string {
	if rec != nil && rec.Orchestrator != nil && rec.Orchestrator.Namespace != "" {
		return rec.Orchestrator.Namespace
	}
	return config.DefaultNamespace
}
