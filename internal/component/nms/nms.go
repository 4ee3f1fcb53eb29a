package nms

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/catalystcommunity/lattice/internal/component"
	"github.com/catalystcommunity/lattice/internal/config"
	"github.com/catalystcommunity/lattice/internal/helm"
)

const (
	repoName = "magma"
	repoURL  = "https://magma.github.io/magma/helm-charts"

	nmsRelease = "nms"
	nmsChart   = "magma/nms"

	installTimeout = 10 * time.Minute
)

// Activate deploys the NMS chart into the orchestrator's namespace. The
// rendered values artifact carries the portal settings verbatim.
func (c *Component) Activate(ctx context.Context, rec *config.Record, artifactPath string) error {
	if rec.Orchestrator == nil {
		return &component.AdapterError{
			Component: c.ID(),
			Op:        "activate",
			Err:       errors.New("record has no orchestrator section to deploy alongside"),
		}
	}
	namespace := rec.Orchestrator.Namespace

	fmt.Println("  Adding magma helm repository...")
	err := c.helm.AddRepo(ctx, helm.RepoAddOptions{
		Name:        repoName,
		URL:         repoURL,
		ForceUpdate: true,
	})
	if err != nil {
		return &component.AdapterError{Component: c.ID(), Op: "add helm repository", Retryable: true, Err: err}
	}

	data, err := os.ReadFile(artifactPath)
	if err != nil {
		return &component.AdapterError{
			Component: c.ID(),
			Op:        "load nms values",
			Err:       fmt.Errorf("failed to read values artifact: %w", err),
		}
	}
	values, err := helm.ValuesFromYAML(data)
	if err != nil {
		return &component.AdapterError{
			Component: c.ID(),
			Op:        "load nms values",
			Err:       fmt.Errorf("failed to parse values artifact: %w", err),
		}
	}

	fmt.Println("  Installing NMS portal...")
	if err := c.installOrUpgrade(ctx, namespace, values); err != nil {
		return &component.AdapterError{Component: c.ID(), Op: "install nms", Err: err}
	}
	return nil
}

// Status reports whether the nms release is installed and healthy.
func (c *Component) Status(ctx context.Context, rec *config.Record) (*component.Status, error) {
	releases, err := c.helm.List(ctx, nmsNamespace(rec))
	if err != nil {
		return &component.Status{
			Installed: false,
			Healthy:   false,
			Message:   fmt.Sprintf("failed to list releases: %v", err),
		}, nil
	}

	for _, rel := range releases {
		if rel.Name == nmsRelease {
			return &component.Status{
				Installed: true,
				Version:   rel.AppVersion,
				Healthy:   rel.Status == "deployed",
				Message:   fmt.Sprintf("release status: %s", rel.Status),
			}, nil
		}
	}

	return &component.Status{
		Installed: false,
		Healthy:   false,
		Message:   "nms release not found",
	}, nil
}

// Deactivate uninstalls the nms release if it is installed.
func (c *Component) Deactivate(ctx context.Context, rec *config.Record) error {
	namespace := nmsNamespace(rec)
	exists, err := c.helm.Exists(ctx, nmsRelease, namespace)
	if err != nil {
		return &component.AdapterError{Component: c.ID(), Op: "check release " + nmsRelease, Err: err}
	}
	if !exists {
		return nil
	}

	fmt.Printf("  Uninstalling %s...\n", nmsRelease)
	if err := c.helm.Uninstall(ctx, helm.UninstallOptions{ReleaseName: nmsRelease, Namespace: namespace}); err != nil {
		return &component.AdapterError{Component: c.ID(), Op: "uninstall " + nmsRelease, Err: err}
	}
	return nil
}

// installOrUpgrade converges the nms release: upgrade when a deployed
// release exists, replace a stuck one, install otherwise.
func (c *Component) installOrUpgrade(ctx context.Context, namespace string, values map[string]interface{}) error {
	releases, err := c.helm.List(ctx, namespace)
	if err != nil {
		return fmt.Errorf("failed to list releases: %w", err)
	}

	for _, rel := range releases {
		if rel.Name != nmsRelease {
			continue
		}
		if rel.Status == "deployed" {
			return c.helm.Upgrade(ctx, helm.UpgradeOptions{
				ReleaseName: nmsRelease,
				Namespace:   namespace,
				Chart:       nmsChart,
				Values:      values,
				Timeout:     installTimeout,
			})
		}
		fmt.Printf("  Removing %s release in status %s...\n", nmsRelease, rel.Status)
		if err := c.helm.Uninstall(ctx, helm.UninstallOptions{ReleaseName: nmsRelease, Namespace: namespace}); err != nil {
			return fmt.Errorf("failed to remove release in status %s: %w", rel.Status, err)
		}
		break
	}

	return c.helm.Install(ctx, helm.InstallOptions{
		ReleaseName:     nmsRelease,
		Namespace:       namespace,
		Chart:           nmsChart,
		Values:          values,
		CreateNamespace: true,
		Timeout:         installTimeout,
	})
}

func nmsNamespace(rec *config.Record) string {
	if rec != nil && rec.Orchestrator != nil {
		return rec.Orchestrator.Namespace
	}
	return config.DefaultNamespace
}
