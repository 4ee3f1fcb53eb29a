// Package cleanup tears down the host and cluster resources a
// deployment leaves behind. Resources are grouped into classes so the
// caller can confirm destructive removals class by class; ephemeral
// classes are removed without ceremony because the next deployment
// recreates them.
package cleanup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/catalystcommunity/lattice/internal/component/gateway"
	"github.com/catalystcommunity/lattice/internal/config"
	"github.com/catalystcommunity/lattice/internal/container"
	"github.com/catalystcommunity/lattice/internal/helm"
	"github.com/catalystcommunity/lattice/internal/localexec"
	"github.com/catalystcommunity/lattice/internal/secrets"
	"github.com/catalystcommunity/lattice/internal/systemd"
)

// Scope classifies how much a resource class matters once removed.
type Scope string

const (
	// ScopeEphemeral marks resources the next deployment recreates.
	ScopeEphemeral Scope = "ephemeral"
	// ScopeDestructive marks resources whose removal loses data or
	// configuration.
	ScopeDestructive Scope = "destructive"
)

const uninstallTimeout = 5 * time.Minute

// Host directories a deployment writes outside the config directory.
// Tests point these at scratch space.
var (
	systemConfigDir = gateway.ConfigDir
	magmaDataDir    = "/var/opt/magma"
	magmaCertsDir   = "/opt/magma/certs"
)

// managedReleases lists the Helm releases a deployment installs,
// dependents first so the portal is gone before the API it talks to.
var managedReleases = []string{"nms", "orc8r", "postgresql"}

// ResourceClass is one confirmable unit of cleanup work.
type ResourceClass struct {
	Name        string
	Scope       Scope
	Description string

	remove func(ctx context.Context) error
	verify func(ctx context.Context) (string, error)
}

// Result records what happened to one resource class.
type Result struct {
	Class   string
	Scope   Scope
	Skipped bool
	Err     error
	Residue string
}

// ContainerClient captures the Docker operations cleanup needs. It is
// satisfied by container.Client.
type ContainerClient interface {
	ListContainers(ctx context.Context, deployment string) ([]container.Container, error)
	RemoveContainers(ctx context.Context, containers []container.Container) error
	ListNetworks(ctx context.Context, deployment string) ([]container.Network, error)
	RemoveNetworks(ctx context.Context, networks []container.Network) error
	ListVolumes(ctx context.Context, deployment string) ([]container.Volume, error)
	RemoveVolumes(ctx context.Context, volumes []container.Volume) error
}

// HelmClient captures the release operations cleanup needs. It is
// satisfied by helm.Client.
type HelmClient interface {
	Exists(ctx context.Context, releaseName, namespace string) (bool, error)
	Uninstall(ctx context.Context, opts helm.UninstallOptions) error
	List(ctx context.Context, namespace string) ([]helm.Release, error)
}

// KubeClient captures the namespace operations cleanup needs. It is
// satisfied by k8s.Client.
type KubeClient interface {
	NamespaceExists(ctx context.Context, name string) (bool, error)
	DeleteNamespace(ctx context.Context, name string) error
}

// CommandRunner executes host commands. It is satisfied by
// localexec.Runner.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) (*localexec.Result, error)
}

// Coordinator plans and executes cleanup for one deployment.
type Coordinator struct {
	record     *config.Record
	configPath string
	containers ContainerClient
	helmClient HelmClient
	kube       KubeClient
	runner     CommandRunner

	clearSecret func(name string) error
}

// CoordinatorOptions configures a Coordinator. Any client may be nil
// when its backend is unreachable; the classes that need it report an
// error instead of silently succeeding.
type CoordinatorOptions struct {
	// Record is the saved deployment record, or nil when none exists.
	Record *config.Record
	// ConfigPath is the deployment record file to remove.
	ConfigPath string
	Containers ContainerClient
	Helm       HelmClient
	Kube       KubeClient
	Runner     CommandRunner
}

// NewCoordinator creates a cleanup coordinator.
func NewCoordinator(opts CoordinatorOptions) *Coordinator {
	return &Coordinator{
		record:      opts.Record,
		configPath:  opts.ConfigPath,
		containers:  opts.Containers,
		helmClient:  opts.Helm,
		kube:        opts.Kube,
		runner:      opts.Runner,
		clearSecret: secrets.Clear,
	}
}

// Plan returns the resource classes in removal order: ephemeral
// classes first, then destructive classes from the cluster inward to
// the saved configuration.
func (c *Coordinator) Plan() []ResourceClass {
	return []ResourceClass{
		c.containerClass(),
		c.networkClass(),
		c.volumeClass(),
		c.releaseClass(),
		c.gatewayServiceClass(),
		c.systemDirectoryClass(),
		c.certificateClass(),
		c.configurationClass(),
	}
}

// Execute removes each class in order. Ephemeral classes are always
// removed; a destructive class runs only when confirmed[class.Name] is
// true and is reported as skipped otherwise. Removal errors are
// recorded per class and do not stop later classes.
func (c *Coordinator) Execute(ctx context.Context, classes []ResourceClass, confirmed map[string]bool) []Result {
	results := make([]Result, 0, len(classes))
	for _, class := range classes {
		if class.Scope == ScopeDestructive && !confirmed[class.Name] {
			fmt.Printf("\nSkipping %s.\n", class.Name)
			results = append(results, Result{Class: class.Name, Scope: class.Scope, Skipped: true})
			continue
		}

		fmt.Printf("\nRemoving %s...\n", class.Name)
		err := class.remove(ctx)
		if err != nil {
			fmt.Printf("✗ Failed to remove %s: %v\n", class.Name, err)
		} else {
			fmt.Printf("✓ Removed %s\n", class.Name)
		}
		results = append(results, Result{Class: class.Name, Scope: class.Scope, Err: err})
	}
	return results
}

// Verify re-probes every class that was removed and records what is
// still present. Residue is a warning, not a failure: namespaces in
// particular take time to disappear after deletion. Probe errors leave
// the result as-is rather than masking the removal outcome.
func (c *Coordinator) Verify(ctx context.Context, classes []ResourceClass, results []Result) []Result {
	for i := range results {
		if i >= len(classes) || results[i].Skipped || results[i].Err != nil {
			continue
		}
		residue, err := classes[i].verify(ctx)
		if err != nil {
			continue
		}
		if residue != "" {
			fmt.Printf("⚠ %s: %s\n", classes[i].Name, residue)
			results[i].Residue = residue
		}
	}
	return results
}

func (c *Coordinator) containerClass() ResourceClass {
	return ResourceClass{
		Name:        "containers",
		Scope:       ScopeEphemeral,
		Description: "Docker containers created by the deployment",
		remove: func(ctx context.Context) error {
			if c.containers == nil {
				return fmt.Errorf("docker daemon not reachable")
			}
			found, err := c.containers.ListContainers(ctx, "")
			if err != nil {
				return fmt.Errorf("failed to list containers: %w", err)
			}
			if len(found) == 0 {
				return nil
			}
			fmt.Printf("  Removing %d containers...\n", len(found))
			return c.containers.RemoveContainers(ctx, found)
		},
		verify: func(ctx context.Context) (string, error) {
			if c.containers == nil {
				return "", nil
			}
			found, err := c.containers.ListContainers(ctx, "")
			if err != nil {
				return "", err
			}
			if len(found) > 0 {
				return fmt.Sprintf("%d containers still present", len(found)), nil
			}
			return "", nil
		},
	}
}

func (c *Coordinator) networkClass() ResourceClass {
	return ResourceClass{
		Name:        "networks",
		Scope:       ScopeEphemeral,
		Description: "Docker networks created by the deployment",
		remove: func(ctx context.Context) error {
			if c.containers == nil {
				return fmt.Errorf("docker daemon not reachable")
			}
			found, err := c.containers.ListNetworks(ctx, "")
			if err != nil {
				return fmt.Errorf("failed to list networks: %w", err)
			}
			if len(found) == 0 {
				return nil
			}
			fmt.Printf("  Removing %d networks...\n", len(found))
			return c.containers.RemoveNetworks(ctx, found)
		},
		verify: func(ctx context.Context) (string, error) {
			if c.containers == nil {
				return "", nil
			}
			found, err := c.containers.ListNetworks(ctx, "")
			if err != nil {
				return "", err
			}
			if len(found) > 0 {
				return fmt.Sprintf("%d networks still present", len(found)), nil
			}
			return "", nil
		},
	}
}

func (c *Coordinator) volumeClass() ResourceClass {
	return ResourceClass{
		Name:        "volumes",
		Scope:       ScopeEphemeral,
		Description: "Docker volumes created by the deployment",
		remove: func(ctx context.Context) error {
			if c.containers == nil {
				return fmt.Errorf("docker daemon not reachable")
			}
			found, err := c.containers.ListVolumes(ctx, "")
			if err != nil {
				return fmt.Errorf("failed to list volumes: %w", err)
			}
			if len(found) == 0 {
				return nil
			}
			fmt.Printf("  Removing %d volumes...\n", len(found))
			return c.containers.RemoveVolumes(ctx, found)
		},
		verify: func(ctx context.Context) (string, error) {
			if c.containers == nil {
				return "", nil
			}
			found, err := c.containers.ListVolumes(ctx, "")
			if err != nil {
				return "", err
			}
			if len(found) > 0 {
				return fmt.Sprintf("%d volumes still present", len(found)), nil
			}
			return "", nil
		},
	}
}

func (c *Coordinator) releaseClass() ResourceClass {
	return ResourceClass{
		Name:        "cluster releases",
		Scope:       ScopeDestructive,
		Description: "Helm releases and the deployment namespace",
		remove: func(ctx context.Context) error {
			if c.helmClient == nil {
				return fmt.Errorf("cluster not reachable")
			}
			ns := c.namespace()
			for _, name := range managedReleases {
				exists, err := c.helmClient.Exists(ctx, name, ns)
				if err != nil {
					return fmt.Errorf("failed to check release %s: %w", name, err)
				}
				if !exists {
					continue
				}
				fmt.Printf("  Uninstalling %s...\n", name)
				err = c.helmClient.Uninstall(ctx, helm.UninstallOptions{
					ReleaseName: name,
					Namespace:   ns,
					Wait:        true,
					Timeout:     uninstallTimeout,
				})
				if err != nil {
					return fmt.Errorf("failed to uninstall %s: %w", name, err)
				}
			}
			if c.kube == nil {
				return nil
			}
			exists, err := c.kube.NamespaceExists(ctx, ns)
			if err != nil {
				return fmt.Errorf("failed to check namespace %s: %w", ns, err)
			}
			if exists {
				fmt.Printf("  Deleting namespace %s...\n", ns)
				if err := c.kube.DeleteNamespace(ctx, ns); err != nil {
					return fmt.Errorf("failed to delete namespace %s: %w", ns, err)
				}
			}
			return nil
		},
		verify: func(ctx context.Context) (string, error) {
			if c.helmClient == nil {
				return "", nil
			}
			ns := c.namespace()
			releases, err := c.helmClient.List(ctx, ns)
			if err != nil {
				return "", err
			}
			if len(releases) > 0 {
				return fmt.Sprintf("%d releases still installed", len(releases)), nil
			}
			if c.kube != nil {
				exists, err := c.kube.NamespaceExists(ctx, ns)
				if err != nil {
					return "", err
				}
				if exists {
					return fmt.Sprintf("namespace %s still present", ns), nil
				}
			}
			return "", nil
		},
	}
}

func (c *Coordinator) gatewayServiceClass() ResourceClass {
	return ResourceClass{
		Name:        "gateway services",
		Scope:       ScopeDestructive,
		Description: "gateway systemd services",
		remove: func(ctx context.Context) error {
			if c.runner == nil {
				return fmt.Errorf("no command runner available")
			}
			status, err := systemd.GetServiceStatus(ctx, c.runner, gateway.Unit)
			if err != nil {
				return fmt.Errorf("failed to query %s: %w", gateway.Unit, err)
			}
			if status.LoadState == "not-found" {
				return nil
			}
			fmt.Printf("  Stopping %s...\n", gateway.Unit)
			if err := systemd.StopService(ctx, c.runner, gateway.Unit); err != nil {
				return fmt.Errorf("failed to stop %s: %w", gateway.Unit, err)
			}
			if err := systemd.DisableService(ctx, c.runner, gateway.Unit); err != nil {
				return fmt.Errorf("failed to disable %s: %w", gateway.Unit, err)
			}
			return nil
		},
		verify: func(ctx context.Context) (string, error) {
			if c.runner == nil {
				return "", nil
			}
			running, err := systemd.IsServiceRunning(ctx, c.runner, gateway.Unit)
			if err != nil {
				return "", err
			}
			if running {
				return fmt.Sprintf("%s still running", gateway.Unit), nil
			}
			return "", nil
		},
	}
}

func (c *Coordinator) systemDirectoryClass() ResourceClass {
	return ResourceClass{
		Name:        "system directories",
		Scope:       ScopeDestructive,
		Description: "gateway configuration, data, and build trees",
		remove: func(ctx context.Context) error {
			for _, dir := range []string{systemConfigDir, magmaDataDir} {
				if err := c.sudoRemove(ctx, dir); err != nil {
					return err
				}
			}
			// The source checkout is user-owned, no sudo needed.
			srcDir, err := gateway.SourceDir()
			if err != nil {
				return nil
			}
			buildDir := filepath.Dir(srcDir)
			if err := os.RemoveAll(buildDir); err != nil {
				return fmt.Errorf("failed to remove build directory %s: %w", buildDir, err)
			}
			return nil
		},
		verify: func(ctx context.Context) (string, error) {
			for _, dir := range []string{systemConfigDir, magmaDataDir} {
				if _, err := os.Stat(dir); err == nil {
					return fmt.Sprintf("%s still present", dir), nil
				}
			}
			return "", nil
		},
	}
}

func (c *Coordinator) certificateClass() ResourceClass {
	return ResourceClass{
		Name:        "certificates",
		Scope:       ScopeDestructive,
		Description: "TLS certificates",
		remove: func(ctx context.Context) error {
			if err := c.sudoRemove(ctx, magmaCertsDir); err != nil {
				return err
			}
			configDir, err := config.GetConfigDir()
			if err != nil {
				return nil
			}
			generatedDir := filepath.Join(configDir, "certs")
			if err := os.RemoveAll(generatedDir); err != nil {
				return fmt.Errorf("failed to remove generated certificates: %w", err)
			}
			return nil
		},
		verify: func(ctx context.Context) (string, error) {
			if _, err := os.Stat(magmaCertsDir); err == nil {
				return fmt.Sprintf("%s still present", magmaCertsDir), nil
			}
			return "", nil
		},
	}
}

func (c *Coordinator) configurationClass() ResourceClass {
	return ResourceClass{
		Name:        "configuration",
		Scope:       ScopeDestructive,
		Description: "saved configuration, run state, and credentials",
		remove: func(ctx context.Context) error {
			if err := c.clearSecret(config.DBPasswordSecret); err != nil {
				return fmt.Errorf("failed to clear stored credentials: %w", err)
			}
			for _, path := range c.configurationPaths() {
				if err := os.RemoveAll(path); err != nil {
					return fmt.Errorf("failed to remove %s: %w", path, err)
				}
			}
			return nil
		},
		verify: func(ctx context.Context) (string, error) {
			for _, path := range c.configurationPaths() {
				if _, err := os.Stat(path); err == nil {
					return fmt.Sprintf("%s still present", path), nil
				}
			}
			return "", nil
		},
	}
}

// configurationPaths lists the files and directories the configuration
// class removes. The run log and lock file stay: the log records what
// cleanup did, and the lock is held for the duration of the run.
func (c *Coordinator) configurationPaths() []string {
	var paths []string
	if c.configPath != "" {
		paths = append(paths, c.configPath)
	}
	if statePath, err := config.StatePath(); err == nil {
		paths = append(paths, statePath)
	}
	if artifactsDir, err := config.ArtifactsDir(); err == nil {
		paths = append(paths, artifactsDir)
	}
	if secretsDir, err := config.SecretsDir(); err == nil {
		paths = append(paths, secretsDir)
	}
	if helmDir, err := config.HelmDir(); err == nil {
		paths = append(paths, helmDir)
	}
	return paths
}

// sudoRemove deletes a root-owned path, skipping paths that are
// already gone.
func (c *Coordinator) sudoRemove(ctx context.Context, path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if c.runner == nil {
		return fmt.Errorf("no command runner available to remove %s", path)
	}
	result, err := c.runner.Run(ctx, "sudo", "rm", "-rf", path)
	if err != nil {
		return fmt.Errorf("failed to remove %s: %w", path, err)
	}
	if result.ExitCode != 0 {
		return fmt.Errorf("failed to remove %s: %s", path, strings.TrimSpace(result.Stderr))
	}
	return nil
}

func (c *Coordinator) namespace() string {
	if c.record != nil && c.record.Orchestrator != nil && c.record.Orchestrator.Namespace != "" {
		return c.record.Orchestrator.Namespace
	}
	return config.DefaultNamespace
}
