package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/catalystcommunity/lattice/internal/component"
	"github.com/catalystcommunity/lattice/internal/config"
	"github.com/catalystcommunity/lattice/internal/helm"
	"github.com/catalystcommunity/lattice/internal/k8s"
)

const (
	repoName = "magma"
	repoURL  = "https://magma.github.io/magma/helm-charts"

	postgresRelease = "postgresql"
	postgresChart   = "oci://registry-1.docker.io/bitnamicharts/postgresql"

	orc8rRelease = "orc8r"
	orc8rChart   = "magma/orc8r"

	postgresReadySelector = "app.kubernetes.io/name=postgresql"
	postgresReadyTimeout  = 5 * time.Minute

	installTimeout = 10 * time.Minute
)

// Activate deploys PostgreSQL and the orc8r chart into the configured
// namespace. The values artifact rendered for this component carries
// everything except the database password and the TLS material, which
// are overlaid here so they never land in the artifact directory.
func (c *Component) Activate(ctx context.Context, rec *config.Record, artifactPath string) error {
	cfg := rec.Orchestrator
	if cfg == nil {
		return &component.AdapterError{
			Component: c.ID(),
			Op:        "activate",
			Err:       errors.New("record has no orchestrator section"),
		}
	}

	fmt.Println("  Adding magma helm repository...")
	err := c.helm.AddRepo(ctx, helm.RepoAddOptions{
		Name:        repoName,
		URL:         repoURL,
		ForceUpdate: true,
	})
	if err != nil {
		return &component.AdapterError{Component: c.ID(), Op: "add helm repository", Retryable: true, Err: err}
	}

	certPEM, keyPEM, err := ensureTLS(rec.Domain, cfg)
	if err != nil {
		return &component.AdapterError{Component: c.ID(), Op: "provision tls certificate", Err: err}
	}

	fmt.Println("  Installing PostgreSQL...")
	if err := c.installOrUpgrade(ctx, postgresRelease, postgresChart, cfg.Namespace, postgresValues(cfg)); err != nil {
		return &component.AdapterError{Component: c.ID(), Op: "install postgresql", Err: err}
	}

	fmt.Println("  Waiting for PostgreSQL to become ready...")
	if err := c.kube.WaitForPodsReady(ctx, cfg.Namespace, postgresReadySelector, postgresReadyTimeout); err != nil {
		if errors.Is(err, k8s.ErrWaitTimeout) {
			return &component.ReadinessTimeoutError{
				Component: c.ID(),
				Target:    "postgresql pods",
				Timeout:   postgresReadyTimeout,
			}
		}
		return &component.AdapterError{Component: c.ID(), Op: "wait for postgresql", Err: err}
	}

	values, err := controllerValues(artifactPath, cfg, certPEM, keyPEM)
	if err != nil {
		return &component.AdapterError{Component: c.ID(), Op: "load orchestrator values", Err: err}
	}

	fmt.Println("  Installing orchestrator...")
	if err := c.installOrUpgrade(ctx, orc8rRelease, orc8rChart, cfg.Namespace, values); err != nil {
		return &component.AdapterError{Component: c.ID(), Op: "install orchestrator", Err: err}
	}
	return nil
}

// Status reports whether the orc8r release is installed and healthy.
func (c *Component) Status(ctx context.Context, rec *config.Record) (*component.Status, error) {
	releases, err := c.helm.List(ctx, orchestratorNamespace(rec))
	if err != nil {
		return &component.Status{
			Installed: false,
			Healthy:   false,
			Message:   fmt.Sprintf("failed to list releases: %v", err),
		}, nil
	}

	for _, rel := range releases {
		if rel.Name == orc8rRelease {
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
		Message:   "orchestrator release not found",
	}, nil
}

// Deactivate uninstalls the orc8r release and then its PostgreSQL
// store. Releases that are not installed are skipped.
func (c *Component) Deactivate(ctx context.Context, rec *config.Record) error {
	namespace := orchestratorNamespace(rec)
	for _, releaseName := range []string{orc8rRelease, postgresRelease} {
		exists, err := c.helm.Exists(ctx, releaseName, namespace)
		if err != nil {
			return &component.AdapterError{Component: c.ID(), Op: "check release " + releaseName, Err: err}
		}
		if !exists {
			continue
		}
		fmt.Printf("  Uninstalling %s...\n", releaseName)
		if err := c.helm.Uninstall(ctx, helm.UninstallOptions{ReleaseName: releaseName, Namespace: namespace}); err != nil {
			return &component.AdapterError{Component: c.ID(), Op: "uninstall " + releaseName, Err: err}
		}
	}
	return nil
}

// installOrUpgrade converges a release: upgrade when a deployed release
// exists, replace a stuck one, install otherwise.
func (c *Component) installOrUpgrade(ctx context.Context, releaseName, chart, namespace string, values map[string]interface{}) error {
	releases, err := c.helm.List(ctx, namespace)
	if err != nil {
		return fmt.Errorf("failed to list releases: %w", err)
	}

	for _, rel := range releases {
		if rel.Name != releaseName {
			continue
		}
		if rel.Status == "deployed" {
			return c.helm.Upgrade(ctx, helm.UpgradeOptions{
				ReleaseName: releaseName,
				Namespace:   namespace,
				Chart:       chart,
				Values:      values,
				Timeout:     installTimeout,
			})
		}
		fmt.Printf("  Removing %s release in status %s...\n", releaseName, rel.Status)
		if err := c.helm.Uninstall(ctx, helm.UninstallOptions{ReleaseName: releaseName, Namespace: namespace}); err != nil {
			return fmt.Errorf("failed to remove release in status %s: %w", rel.Status, err)
		}
		break
	}

	return c.helm.Install(ctx, helm.InstallOptions{
		ReleaseName:     releaseName,
		Namespace:       namespace,
		Chart:           chart,
		Values:          values,
		CreateNamespace: true,
		Timeout:         installTimeout,
	})
}

// controllerValues loads the rendered values artifact and overlays the
// material that must not land on disk: the database password and the
// contents of the TLS pair. The artifact names certificate paths; the
// chart wants the bytes.
func controllerValues(artifactPath string, cfg *config.OrchestratorConfig, certPEM, keyPEM []byte) (map[string]interface{}, error) {
	data, err := os.ReadFile(artifactPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read values artifact: %w", err)
	}
	values, err := helm.ValuesFromYAML(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse values artifact: %w", err)
	}

	pg, ok := values["postgresql"].(map[string]interface{})
	if !ok {
		pg = map[string]interface{}{}
		values["postgresql"] = pg
	}
	pg["password"] = cfg.DBPassword

	values["tls"] = map[string]interface{}{
		"crt": string(certPEM),
		"key": string(keyPEM),
	}
	return values, nil
}

func postgresValues(cfg *config.OrchestratorConfig) map[string]interface{} {
	return map[string]interface{}{
		"auth": map[string]interface{}{
			"postgresPassword": cfg.DBPassword,
			"username":         cfg.DBUser,
			"database":         cfg.DBName,
		},
		"primary": map[string]interface{}{
			"persistence": map[string]interface{}{
				"storageClass": cfg.StorageClass,
			},
		},
	}
}

func orchestratorNamespace(rec *config.Record) string {
	if rec != nil && rec.Orchestrator != nil {
		return rec.Orchestrator.Namespace
	}
	return config.DefaultNamespace
}
