package cleanup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/catalystcommunity/lattice/internal/config"
	"github.com/catalystcommunity/lattice/internal/container"
	"github.com/catalystcommunity/lattice/internal/helm"
	"github.com/catalystcommunity/lattice/internal/localexec"
)

type fakeContainers struct {
	containers []container.Container
	networks   []container.Network
	volumes    []container.Volume

	listContainersErr error

	removedContainers int
	removedNetworks   int
	removedVolumes    int
}

func (f *fakeContainers) ListContainers(ctx context.Context, deployment string) ([]container.Container, error) {
	if f.listContainersErr != nil {
		return nil, f.listContainersErr
	}
	return f.containers, nil
}

func (f *fakeContainers) RemoveContainers(ctx context.Context, containers []container.Container) error {
	f.removedContainers += len(containers)
	f.containers = nil
	return nil
}

func (f *fakeContainers) ListNetworks(ctx context.Context, deployment string) ([]container.Network, error) {
	return f.networks, nil
}

func (f *fakeContainers) RemoveNetworks(ctx context.Context, networks []container.Network) error {
	f.removedNetworks += len(networks)
	f.networks = nil
	return nil
}

func (f *fakeContainers) ListVolumes(ctx context.Context, deployment string) ([]container.Volume, error) {
	return f.volumes, nil
}

func (f *fakeContainers) RemoveVolumes(ctx context.Context, volumes []container.Volume) error {
	f.removedVolumes += len(volumes)
	f.volumes = nil
	return nil
}

type fakeHelm struct {
	existing map[string]bool
	releases map[string][]helm.Release

	existsErr    error
	uninstallErr error

	uninstalls []string
}

func (f *fakeHelm) Exists(ctx context.Context, releaseName, namespace string) (bool, error) {
	if f.existsErr != nil {
		return false, f.existsErr
	}
	return f.existing[namespace+"/"+releaseName], nil
}

func (f *fakeHelm) Uninstall(ctx context.Context, opts helm.UninstallOptions) error {
	if f.uninstallErr != nil {
		return f.uninstallErr
	}
	key := opts.Namespace + "/" + opts.ReleaseName
	f.uninstalls = append(f.uninstalls, key)
	delete(f.existing, key)
	return nil
}

func (f *fakeHelm) List(ctx context.Context, namespace string) ([]helm.Release, error) {
	return f.releases[namespace], nil
}

type fakeKube struct {
	namespaces map[string]bool
	deleted    []string
}

func (f *fakeKube) NamespaceExists(ctx context.Context, name string) (bool, error) {
	return f.namespaces[name], nil
}

func (f *fakeKube) DeleteNamespace(ctx context.Context, name string) error {
	f.deleted = append(f.deleted, name)
	return nil
}

type fakeRunner struct {
	commands []string
	results  map[string]*localexec.Result
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{results: map[string]*localexec.Result{}}
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) (*localexec.Result, error) {
	cmd := strings.Join(append([]string{name}, args...), " ")
	f.commands = append(f.commands, cmd)
	if result, ok := f.results[cmd]; ok {
		return result, nil
	}
	return &localexec.Result{ExitCode: 0}, nil
}

const runningShowOutput = `MainPID=1234
LoadState=loaded
ActiveState=active
SubState=running
UnitFileState=enabled
`

const missingShowOutput = `MainPID=0
LoadState=not-found
ActiveState=inactive
SubState=dead
UnitFileState=
`

const showCommand = "systemctl show magma@magmad.service --no-pager"

func setConfigDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	orig := os.Getenv("LATTICE_CONFIG_DIR")
	os.Setenv("LATTICE_CONFIG_DIR", dir)
	t.Cleanup(func() {
		os.Setenv("LATTICE_CONFIG_DIR", orig)
	})
	return dir
}

func overrideHostDirs(t *testing.T) (string, string, string) {
	t.Helper()
	base := t.TempDir()
	origConfig, origData, origCerts := systemConfigDir, magmaDataDir, magmaCertsDir
	systemConfigDir = filepath.Join(base, "etc-magma")
	magmaDataDir = filepath.Join(base, "var-opt-magma")
	magmaCertsDir = filepath.Join(base, "opt-magma-certs")
	t.Cleanup(func() {
		systemConfigDir, magmaDataDir, magmaCertsDir = origConfig, origData, origCerts
	})
	return systemConfigDir, magmaDataDir, magmaCertsDir
}

func findClass(t *testing.T, classes []ResourceClass, name string) ResourceClass {
	t.Helper()
	for _, class := range classes {
		if class.Name == name {
			return class
		}
	}
	t.Fatalf("no class named %s", name)
	return ResourceClass{}
}

func confirmAll(classes []ResourceClass) map[string]bool {
	confirmed := make(map[string]bool, len(classes))
	for _, class := range classes {
		confirmed[class.Name] = true
	}
	return confirmed
}

func TestPlanOrder(t *testing.T) {
	coord := NewCoordinator(CoordinatorOptions{})

	classes := coord.Plan()

	var names []string
	for _, class := range classes {
		names = append(names, class.Name)
		assert.NotEmpty(t, class.Description)
	}
	assert.Equal(t, []string{
		"containers",
		"networks",
		"volumes",
		"cluster releases",
		"gateway services",
		"system directories",
		"certificates",
		"configuration",
	}, names)

	for i, class := range classes {
		if i < 3 {
			assert.Equal(t, ScopeEphemeral, class.Scope, class.Name)
		} else {
			assert.Equal(t, ScopeDestructive, class.Scope, class.Name)
		}
	}
}

func TestExecuteSkipsUnconfirmedDestructiveClasses(t *testing.T) {
	setConfigDir(t)
	overrideHostDirs(t)
	containers := &fakeContainers{
		containers: []container.Container{{ID: "abc123", Name: "postgres"}},
		networks:   []container.Network{{ID: "net1", Name: "magma"}},
	}
	coord := NewCoordinator(CoordinatorOptions{Containers: containers})

	results := coord.Execute(context.Background(), coord.Plan(), nil)

	require.Len(t, results, 8)
	for _, result := range results[:3] {
		assert.False(t, result.Skipped, result.Class)
		assert.NoError(t, result.Err, result.Class)
	}
	for _, result := range results[3:] {
		assert.True(t, result.Skipped, result.Class)
		assert.NoError(t, result.Err, result.Class)
	}
	assert.Equal(t, 1, containers.removedContainers)
	assert.Equal(t, 1, containers.removedNetworks)
	assert.Equal(t, 0, containers.removedVolumes)
}

func TestExecuteRemovesConfirmedClasses(t *testing.T) {
	configDir := setConfigDir(t)
	sysDir, dataDir, certsDir := overrideHostDirs(t)
	for _, dir := range []string{sysDir, dataDir, certsDir} {
		require.NoError(t, os.MkdirAll(dir, 0755))
	}

	configPath := filepath.Join(configDir, config.DefaultConfigName)
	require.NoError(t, os.WriteFile(configPath, []byte("Domain: magma.example.com\n"), 0644))
	statePath, err := config.StatePath()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(statePath, []byte("domain: magma.example.com\n"), 0644))
	artifactsDir, err := config.ArtifactsDir()
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Join(artifactsDir, "orchestrator"), 0755))

	helmFake := &fakeHelm{existing: map[string]bool{
		"magma/orc8r":      true,
		"magma/postgresql": true,
	}}
	kube := &fakeKube{namespaces: map[string]bool{"magma": true}}
	runner := newFakeRunner()
	runner.results[showCommand] = &localexec.Result{Stdout: runningShowOutput}

	rec := &config.Record{
		Domain:       "magma.example.com",
		Orchestrator: &config.OrchestratorConfig{Namespace: "magma"},
	}
	coord := NewCoordinator(CoordinatorOptions{
		Record:     rec,
		ConfigPath: configPath,
		Helm:       helmFake,
		Kube:       kube,
		Runner:     runner,
	})
	var cleared []string
	coord.clearSecret = func(name string) error {
		cleared = append(cleared, name)
		return nil
	}

	classes := coord.Plan()
	results := coord.Execute(context.Background(), classes, confirmAll(classes))

	require.Len(t, results, 8)
	for _, result := range results {
		assert.False(t, result.Skipped, result.Class)
		// The container classes fail without a Docker client.
		if result.Class == "containers" || result.Class == "networks" || result.Class == "volumes" {
			continue
		}
		assert.NoError(t, result.Err, result.Class)
	}

	assert.Equal(t, []string{"magma/orc8r", "magma/postgresql"}, helmFake.uninstalls)
	assert.Equal(t, []string{"magma"}, kube.deleted)

	assert.Contains(t, runner.commands, "sudo systemctl stop magma@magmad.service")
	assert.Contains(t, runner.commands, "sudo systemctl disable magma@magmad.service")
	assert.Contains(t, runner.commands, "sudo rm -rf "+sysDir)
	assert.Contains(t, runner.commands, "sudo rm -rf "+dataDir)
	assert.Contains(t, runner.commands, "sudo rm -rf "+certsDir)

	assert.Equal(t, []string{config.DBPasswordSecret}, cleared)
	assert.NoFileExists(t, configPath)
	assert.NoFileExists(t, statePath)
	assert.NoDirExists(t, artifactsDir)
}

func TestExecuteRecordsErrorsAndContinues(t *testing.T) {
	containers := &fakeContainers{
		listContainersErr: errors.New("daemon busy"),
		networks:          []container.Network{{ID: "net1", Name: "magma"}},
	}
	coord := NewCoordinator(CoordinatorOptions{Containers: containers})

	results := coord.Execute(context.Background(), coord.Plan()[:3], nil)

	require.Len(t, results, 3)
	require.Error(t, results[0].Err)
	assert.Contains(t, results[0].Err.Error(), "failed to list containers")
	assert.NoError(t, results[1].Err)
	assert.NoError(t, results[2].Err)
	assert.Equal(t, 1, containers.removedNetworks)
}

func TestExecuteWithoutDockerClient(t *testing.T) {
	coord := NewCoordinator(CoordinatorOptions{})

	results := coord.Execute(context.Background(), coord.Plan()[:1], nil)

	require.Len(t, results, 1)
	require.Error(t, results[0].Err)
	assert.Contains(t, results[0].Err.Error(), "docker daemon not reachable")
}

func TestVerifyReportsResidue(t *testing.T) {
	containers := &fakeContainers{containers: []container.Container{{ID: "abc123"}}}
	coord := NewCoordinator(CoordinatorOptions{Containers: containers})
	classes := coord.Plan()[:3]

	results := coord.Execute(context.Background(), classes, nil)
	require.Len(t, results, 3)
	for _, result := range results {
		require.NoError(t, result.Err)
	}

	containers.containers = []container.Container{{ID: "abc123"}, {ID: "def456"}}
	results = coord.Verify(context.Background(), classes, results)

	assert.Equal(t, "2 containers still present", results[0].Residue)
	assert.Empty(t, results[1].Residue)
	assert.Empty(t, results[2].Residue)
}

func TestVerifySkipsSkippedAndFailedClasses(t *testing.T) {
	containers := &fakeContainers{listContainersErr: errors.New("daemon busy")}
	coord := NewCoordinator(CoordinatorOptions{Containers: containers})
	classes := coord.Plan()

	results := coord.Execute(context.Background(), classes, nil)
	require.Error(t, results[0].Err)
	require.True(t, results[3].Skipped)

	// A probe that would now find stragglers must not overwrite the
	// recorded outcome of failed or skipped classes.
	containers.listContainersErr = nil
	containers.containers = []container.Container{{ID: "abc123"}}
	results = coord.Verify(context.Background(), classes, results)

	assert.Empty(t, results[0].Residue)
	assert.Empty(t, results[3].Residue)
}

func TestReleaseClassNamespaceSelection(t *testing.T) {
	t.Run("uses record namespace", func(t *testing.T) {
		helmFake := &fakeHelm{existing: map[string]bool{"lte-core/orc8r": true}}
		kube := &fakeKube{namespaces: map[string]bool{}}
		rec := &config.Record{Orchestrator: &config.OrchestratorConfig{Namespace: "lte-core"}}
		coord := NewCoordinator(CoordinatorOptions{Record: rec, Helm: helmFake, Kube: kube})

		classes := []ResourceClass{coord.releaseClass()}
		results := coord.Execute(context.Background(), classes, confirmAll(classes))

		require.NoError(t, results[0].Err)
		assert.Equal(t, []string{"lte-core/orc8r"}, helmFake.uninstalls)
	})

	t.Run("defaults without a record", func(t *testing.T) {
		helmFake := &fakeHelm{existing: map[string]bool{"magma/postgresql": true}}
		coord := NewCoordinator(CoordinatorOptions{Helm: helmFake})

		classes := []ResourceClass{coord.releaseClass()}
		results := coord.Execute(context.Background(), classes, confirmAll(classes))

		require.NoError(t, results[0].Err)
		assert.Equal(t, []string{"magma/postgresql"}, helmFake.uninstalls)
	})
}

func TestReleaseClassVerifyReportsLingeringNamespace(t *testing.T) {
	helmFake := &fakeHelm{existing: map[string]bool{}}
	kube := &fakeKube{namespaces: map[string]bool{"magma": true}}
	coord := NewCoordinator(CoordinatorOptions{Helm: helmFake, Kube: kube})

	classes := []ResourceClass{coord.releaseClass()}
	results := coord.Execute(context.Background(), classes, confirmAll(classes))
	require.NoError(t, results[0].Err)
	assert.Equal(t, []string{"magma"}, kube.deleted)

	// Namespace termination is asynchronous; the fake keeps it listed.
	results = coord.Verify(context.Background(), classes, results)
	assert.Equal(t, "namespace magma still present", results[0].Residue)
}

func TestGatewayServiceClassSkipsUninstalledUnit(t *testing.T) {
	runner := newFakeRunner()
	runner.results[showCommand] = &localexec.Result{Stdout: missingShowOutput}
	coord := NewCoordinator(CoordinatorOptions{Runner: runner})

	classes := []ResourceClass{findClass(t, coord.Plan(), "gateway services")}
	results := coord.Execute(context.Background(), classes, confirmAll(classes))

	require.NoError(t, results[0].Err)
	assert.Equal(t, []string{showCommand}, runner.commands)
}

func TestSystemDirectoryClassSkipsMissingPaths(t *testing.T) {
	setConfigDir(t)
	overrideHostDirs(t)
	runner := newFakeRunner()
	coord := NewCoordinator(CoordinatorOptions{Runner: runner})

	classes := []ResourceClass{findClass(t, coord.Plan(), "system directories")}
	results := coord.Execute(context.Background(), classes, confirmAll(classes))

	require.NoError(t, results[0].Err)
	assert.Empty(t, runner.commands)
}

func TestSudoRemoveReportsCommandFailure(t *testing.T) {
	setConfigDir(t)
	sysDir, _, _ := overrideHostDirs(t)
	require.NoError(t, os.MkdirAll(sysDir, 0755))

	runner := newFakeRunner()
	runner.results["sudo rm -rf "+sysDir] = &localexec.Result{
		ExitCode: 1,
		Stderr:   "rm: permission denied\n",
	}
	coord := NewCoordinator(CoordinatorOptions{Runner: runner})

	classes := []ResourceClass{findClass(t, coord.Plan(), "system directories")}
	results := coord.Execute(context.Background(), classes, confirmAll(classes))

	require.Error(t, results[0].Err)
	assert.Contains(t, results[0].Err.Error(), fmt.Sprintf("failed to remove %s", sysDir))
	assert.Contains(t, results[0].Err.Error(), "rm: permission denied")
}

func TestConfigurationClassClearFailure(t *testing.T) {
	setConfigDir(t)
	coord := NewCoordinator(CoordinatorOptions{})
	coord.clearSecret = func(name string) error {
		return errors.New("keyring locked")
	}

	classes := []ResourceClass{findClass(t, coord.Plan(), "configuration")}
	results := coord.Execute(context.Background(), classes, confirmAll(classes))

	require.Error(t, results[0].Err)
	assert.Contains(t, results[0].Err.Error(), "failed to clear stored credentials")
}
