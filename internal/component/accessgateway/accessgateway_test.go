package accessgateway

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/catalystcommunity/lattice/internal/component"
	"github.com/catalystcommunity/lattice/internal/config"
	"github.com/catalystcommunity/lattice/internal/localexec"
)

type fakeRunner struct {
	commands []string
	shells   []string
	results  map[string]*localexec.Result
	errors   map[string]error
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{
		results: make(map[string]*localexec.Result),
		errors:  make(map[string]error),
	}
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) (*localexec.Result, error) {
	key := strings.Join(append([]string{name}, args...), " ")
	f.commands = append(f.commands, key)
	return f.lookup(key)
}

func (f *fakeRunner) RunShell(_ context.Context, command string) (*localexec.Result, error) {
	f.shells = append(f.shells, command)
	return f.lookup(command)
}

func (f *fakeRunner) lookup(key string) (*localexec.Result, error) {
	if err, ok := f.errors[key]; ok {
		return nil, err
	}
	if result, ok := f.results[key]; ok {
		return result, nil
	}
	return &localexec.Result{ExitCode: 0}, nil
}

func setConfigDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	orig := os.Getenv("LATTICE_CONFIG_DIR")
	os.Setenv("LATTICE_CONFIG_DIR", dir)
	t.Cleanup(func() { os.Setenv("LATTICE_CONFIG_DIR", orig) })
	return dir
}

func testRecord(t *testing.T) *config.Record {
	t.Helper()
	rec := &config.Record{
		Domain:             "magma.example.com",
		AdminEmail:         "admin@example.com",
		ExternalIP:         "203.0.113.10",
		SelectedComponents: []string{config.ComponentAccessGateway},
		AccessGateway: &config.AccessGatewayConfig{
			Interface: "eth0",
			IP:        "10.0.2.1",
			MCC:       "001",
			MNC:       "01",
			TAC:       "1",
			S1APIP:    "10.0.2.1",
			S1APPort:  "36412",
		},
	}
	require.NoError(t, rec.Validate())
	return rec
}

func TestComponentIdentity(t *testing.T) {
	comp := New(newFakeRunner())
	assert.Equal(t, config.ComponentAccessGateway, comp.ID())
	assert.Empty(t, comp.Dependencies())
}

func TestActivate(t *testing.T) {
	configDir := setConfigDir(t)
	runner := newFakeRunner()
	comp := New(runner)

	err := comp.Activate(context.Background(), testRecord(t), "/tmp/agw/gateway.mconfig")
	require.NoError(t, err)

	srcDir := filepath.Join(configDir, "build", "magma")
	assert.Equal(t, []string{
		"git clone https://github.com/magma/magma.git " + srcDir,
		"sudo mkdir -p /etc/magma",
		"sudo cp /tmp/agw/gateway.mconfig /etc/magma/gateway.mconfig",
		"sudo systemctl enable magma@magmad.service",
		"sudo systemctl start magma@magmad.service",
	}, runner.commands)
	assert.Equal(t, []string{
		"cd " + filepath.Join(srcDir, "lte/gateway") + " && make build",
	}, runner.shells)
}

func TestActivateMissingSection(t *testing.T) {
	comp := New(newFakeRunner())
	rec := &config.Record{
		Domain:             "magma.example.com",
		SelectedComponents: []string{config.ComponentAccessGateway},
	}

	err := comp.Activate(context.Background(), rec, "unused")
	var adapterErr *component.AdapterError
	require.ErrorAs(t, err, &adapterErr)
	assert.Equal(t, config.ComponentAccessGateway, adapterErr.Component)
	assert.Equal(t, "activate", adapterErr.Op)
}

func TestActivateCloneFailureIsRetryable(t *testing.T) {
	configDir := setConfigDir(t)
	runner := newFakeRunner()
	srcDir := filepath.Join(configDir, "build", "magma")
	runner.results["git clone https://github.com/magma/magma.git "+srcDir] = &localexec.Result{
		ExitCode: 128,
		Stderr:   "fatal: could not resolve host",
	}
	comp := New(runner)

	err := comp.Activate(context.Background(), testRecord(t), "/tmp/agw/gateway.mconfig")
	var adapterErr *component.AdapterError
	require.ErrorAs(t, err, &adapterErr)
	assert.Equal(t, "fetch sources", adapterErr.Op)
	assert.True(t, adapterErr.Retryable)
}

func TestActivateBuildFailure(t *testing.T) {
	configDir := setConfigDir(t)
	runner := newFakeRunner()
	srcDir := filepath.Join(configDir, "build", "magma")
	runner.results["cd "+filepath.Join(srcDir, "lte/gateway")+" && make build"] = &localexec.Result{
		ExitCode: 2,
		Stderr:   "make: *** [build] Error 2",
	}
	comp := New(runner)

	err := comp.Activate(context.Background(), testRecord(t), "/tmp/agw/gateway.mconfig")
	var adapterErr *component.AdapterError
	require.ErrorAs(t, err, &adapterErr)
	assert.Equal(t, "build gateway", adapterErr.Op)
	assert.False(t, adapterErr.Retryable)
}

const showCommand = "systemctl show magma@magmad.service --no-pager"

func TestStatus(t *testing.T) {
	runner := newFakeRunner()
	runner.results[showCommand] = &localexec.Result{
		Stdout: "MainPID=1234\nLoadState=loaded\nActiveState=active\nSubState=running\nUnitFileState=enabled\n",
	}
	comp := New(runner)

	status, err := comp.Status(context.Background(), testRecord(t))
	require.NoError(t, err)
	assert.True(t, status.Installed)
	assert.Contains(t, status.Message, "service active (running)")
}

func TestDeactivate(t *testing.T) {
	t.Run("stops installed gateway", func(t *testing.T) {
		runner := newFakeRunner()
		runner.results[showCommand] = &localexec.Result{
			Stdout: "LoadState=loaded\nActiveState=active\nSubState=running\n",
		}
		comp := New(runner)

		require.NoError(t, comp.Deactivate(context.Background(), testRecord(t)))
		assert.Contains(t, runner.commands, "sudo systemctl stop magma@magmad.service")
		assert.Contains(t, runner.commands, "sudo systemctl disable magma@magmad.service")
	})

	t.Run("skips unknown unit", func(t *testing.T) {
		runner := newFakeRunner()
		runner.results[showCommand] = &localexec.Result{
			Stdout: "LoadState=not-found\nActiveState=inactive\nSubState=dead\n",
		}
		comp := New(runner)

		require.NoError(t, comp.Deactivate(context.Background(), testRecord(t)))
		assert.Equal(t, []string{showCommand}, runner.commands)
	})

	t.Run("query failure", func(t *testing.T) {
		runner := newFakeRunner()
		runner.errors[showCommand] = errors.New("systemctl: not found")
		comp := New(runner)

		err := comp.Deactivate(context.Background(), testRecord(t))
		var adapterErr *component.AdapterError
		require.ErrorAs(t, err, &adapterErr)
		assert.Equal(t, "query service", adapterErr.Op)
	})
}
