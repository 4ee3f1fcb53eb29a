package status

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/catalystcommunity/lattice/internal/component"
	"github.com/catalystcommunity/lattice/internal/config"
	"github.com/catalystcommunity/lattice/internal/deploy"
	"github.com/catalystcommunity/lattice/internal/k8s"
)

type stubComponent struct {
	id     string
	status *component.Status
	err    error
}

func (s *stubComponent) ID() string             { return s.id }
func (s *stubComponent) Dependencies() []string { return nil }
func (s *stubComponent) Activate(context.Context, *config.Record, string) error {
	return nil
}
func (s *stubComponent) Status(context.Context, *config.Record) (*component.Status, error) {
	return s.status, s.err
}
func (s *stubComponent) Deactivate(context.Context, *config.Record) error { return nil }

type fakeContainerProbe struct{ available bool }

func (f *fakeContainerProbe) IsAvailable(context.Context) bool { return f.available }

type fakeClusterProbe struct {
	nodes []*k8s.Node
	err   error
}

func (f *fakeClusterProbe) GetNodes(context.Context) ([]*k8s.Node, error) {
	return f.nodes, f.err
}

func testRecord(t *testing.T) *config.Record {
	t.Helper()
	rec := &config.Record{
		Domain:             "magma.example.com",
		AdminEmail:         "admin@example.com",
		ExternalIP:         "203.0.113.10",
		SelectedComponents: []string{config.ComponentOrchestrator, config.ComponentNMS},
		Orchestrator: &config.OrchestratorConfig{
			Namespace:    "magma",
			StorageClass: "standard",
			DBHost:       "postgresql",
			DBPort:       "5432",
			DBUser:       "magma",
			DBPassword:   "s3cret",
			DBName:       "magma",
			TLSCertPath:  "/opt/magma/certs/tls.crt",
			TLSKeyPath:   "/opt/magma/certs/tls.key",
		},
	}
	require.NoError(t, rec.Validate())
	return rec
}

func findFacet(t *testing.T, facets []Facet, name string) Facet {
	t.Helper()
	for _, f := range facets {
		if f.Name == name {
			return f
		}
	}
	t.Fatalf("facet %q not found", name)
	return Facet{}
}

func TestSnapshotComponentStatuses(t *testing.T) {
	registry := component.NewRegistry()
	require.NoError(t, registry.Register(&stubComponent{
		id:     config.ComponentOrchestrator,
		status: &component.Status{Installed: true, Healthy: true, Version: "1.8.0", Message: "release status: deployed"},
	}))
	require.NoError(t, registry.Register(&stubComponent{
		id:  config.ComponentNMS,
		err: errors.New("connection refused"),
	}))

	inspector := NewInspector(InspectorOptions{
		Record:    testRecord(t),
		Registry:  registry,
		Container: &fakeContainerProbe{available: true},
		Cluster:   &fakeClusterProbe{nodes: []*k8s.Node{{Name: "node-1", Ready: true}}},
	})

	report := inspector.Snapshot(context.Background())

	assert.Equal(t, []string{config.ComponentOrchestrator, config.ComponentNMS}, report.Order)

	orc := report.Components[config.ComponentOrchestrator]
	require.NotNil(t, orc)
	assert.True(t, orc.Installed)
	assert.True(t, orc.Healthy)

	nms := report.Components[config.ComponentNMS]
	require.NotNil(t, nms)
	assert.False(t, nms.Installed)
	assert.Contains(t, nms.Message, "error querying status")

	assert.Equal(t, FacetOK, findFacet(t, report.Facets, "container runtime").State)
	cluster := findFacet(t, report.Facets, "kubernetes cluster")
	assert.Equal(t, FacetOK, cluster.State)
	assert.Contains(t, cluster.Detail, "1/1 nodes ready")
}

func TestSnapshotFoldsLastRunIntoMessage(t *testing.T) {
	statePath := filepath.Join(t.TempDir(), "state.yaml")
	require.NoError(t, deploy.SaveRunState(statePath, &deploy.RunState{
		Domain: "magma.example.com",
		Outcomes: []deploy.Outcome{
			{
				ComponentID: config.ComponentOrchestrator,
				State:       deploy.StateFailed,
				Detail:      "chart install failed",
			},
		},
	}))

	registry := component.NewRegistry()
	require.NoError(t, registry.Register(&stubComponent{
		id:     config.ComponentOrchestrator,
		status: &component.Status{Installed: false, Healthy: false, Message: "orchestrator release not found"},
	}))
	require.NoError(t, registry.Register(&stubComponent{
		id:     config.ComponentNMS,
		status: &component.Status{Installed: false, Healthy: false, Message: "nms release not found"},
	}))

	inspector := NewInspector(InspectorOptions{
		Record:    testRecord(t),
		Registry:  registry,
		StatePath: statePath,
	})

	report := inspector.Snapshot(context.Background())

	orc := report.Components[config.ComponentOrchestrator]
	assert.Contains(t, orc.Message, "last run failed: chart install failed")

	// No outcome recorded for the NMS, so its message stays as queried.
	nms := report.Components[config.ComponentNMS]
	assert.Equal(t, "nms release not found", nms.Message)
}

func TestSnapshotUnregisteredComponent(t *testing.T) {
	inspector := NewInspector(InspectorOptions{
		Record:   testRecord(t),
		Registry: component.NewRegistry(),
	})

	report := inspector.Snapshot(context.Background())
	orc := report.Components[config.ComponentOrchestrator]
	require.NotNil(t, orc)
	assert.Equal(t, "not found in registry", orc.Message)
}

func TestSnapshotWithoutRecord(t *testing.T) {
	inspector := NewInspector(InspectorOptions{
		Registry:  component.NewRegistry(),
		Container: &fakeContainerProbe{available: false},
	})

	report := inspector.Snapshot(context.Background())
	assert.Empty(t, report.Order)
	assert.Empty(t, report.Components)
	assert.NotEmpty(t, report.Facets)
}

func TestContainerFacet(t *testing.T) {
	t.Run("reachable", func(t *testing.T) {
		inspector := NewInspector(InspectorOptions{Container: &fakeContainerProbe{available: true}})
		facet := inspector.containerFacet(context.Background())
		assert.Equal(t, FacetOK, facet.State)
	})

	t.Run("unreachable", func(t *testing.T) {
		inspector := NewInspector(InspectorOptions{Container: &fakeContainerProbe{available: false}})
		facet := inspector.containerFacet(context.Background())
		assert.Equal(t, FacetError, facet.State)
		assert.Contains(t, facet.Detail, "not reachable")
	})

	t.Run("no client", func(t *testing.T) {
		inspector := NewInspector(InspectorOptions{})
		facet := inspector.containerFacet(context.Background())
		assert.Equal(t, FacetUnknown, facet.State)
	})
}

func TestClusterFacet(t *testing.T) {
	tests := []struct {
		name       string
		nodes      []*k8s.Node
		err        error
		wantState  FacetState
		wantDetail string
	}{
		{
			name:       "all ready",
			nodes:      []*k8s.Node{{Name: "a", Ready: true}, {Name: "b", Ready: true}},
			wantState:  FacetOK,
			wantDetail: "2/2 nodes ready",
		},
		{
			name:       "one not ready",
			nodes:      []*k8s.Node{{Name: "a", Ready: true}, {Name: "b", Ready: false}},
			wantState:  FacetWarn,
			wantDetail: "1/2 nodes ready",
		},
		{
			name:       "no nodes",
			nodes:      nil,
			wantState:  FacetWarn,
			wantDetail: "no nodes found",
		},
		{
			name:       "unreachable",
			err:        errors.New("connection refused"),
			wantState:  FacetError,
			wantDetail: "cluster unreachable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			facet := clusterFacet(tt.nodes, tt.err)
			assert.Equal(t, tt.wantState, facet.State)
			assert.Contains(t, facet.Detail, tt.wantDetail)
		})
	}
}

func TestMemoryFacet(t *testing.T) {
	assert.Equal(t, FacetOK, memoryFacet(42.0).State)
	assert.Equal(t, FacetWarn, memoryFacet(81.5).State)
	assert.Equal(t, FacetError, memoryFacet(95.0).State)
	assert.Contains(t, memoryFacet(42.0).Detail, "42.0% used")
}

func TestLoadFacet(t *testing.T) {
	assert.Equal(t, FacetOK, loadFacet(1.0, 4).State)
	assert.Equal(t, FacetWarn, loadFacet(9.0, 4).State)
	// Zero cores never divides by zero.
	assert.Equal(t, FacetWarn, loadFacet(2.5, 0).State)
}

func TestDiskFacet(t *testing.T) {
	assert.Equal(t, FacetOK, diskFacet(50.0).State)
	assert.Equal(t, FacetWarn, diskFacet(86.0).State)
	assert.Equal(t, FacetError, diskFacet(97.0).State)
}
