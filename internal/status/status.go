// Package status gathers a point-in-time view of the deployment:
// per-component state, environment reachability, and host resources.
// Every probe is isolated; one failing never hides the others.
package status

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/load"
	"github.com/shirou/gopsutil/v4/mem"

	"github.com/catalystcommunity/lattice/internal/component"
	"github.com/catalystcommunity/lattice/internal/config"
	"github.com/catalystcommunity/lattice/internal/deploy"
	"github.com/catalystcommunity/lattice/internal/k8s"
)

// FacetState classifies an environment or resource probe result.
type FacetState string

const (
	FacetOK      FacetState = "ok"
	FacetWarn    FacetState = "warn"
	FacetError   FacetState = "error"
	FacetUnknown FacetState = "unknown"
)

// Facet is one probed aspect of the environment.
type Facet struct {
	Name   string
	State  FacetState
	Detail string
}

// Resource thresholds. Memory and disk get a warn and an error band;
// load warns when the 1-minute average exceeds the limit per core.
const (
	memoryWarnPercent  = 80.0
	memoryErrorPercent = 90.0
	loadWarnPerCore    = 2.0
	diskWarnPercent    = 85.0
	diskErrorPercent   = 95.0

	clusterProbeTimeout = 10 * time.Second
)

// ContainerProbe reports container runtime availability. Satisfied by
// container.Client.
type ContainerProbe interface {
	IsAvailable(ctx context.Context) bool
}

// ClusterProbe lists cluster nodes. Satisfied by k8s.Client.
type ClusterProbe interface {
	GetNodes(ctx context.Context) ([]*k8s.Node, error)
}

// Report is the full snapshot: component statuses in activation-plan
// order plus environment facets.
type Report struct {
	Order      []string
	Components map[string]*component.Status
	Facets     []Facet
}

// Inspector aggregates status probes.
type Inspector struct {
	record    *config.Record
	registry  *component.Registry
	container ContainerProbe
	cluster   ClusterProbe
	statePath string
}

// InspectorOptions configures an Inspector. Nil probes degrade to
// unknown facets instead of failing the snapshot.
type InspectorOptions struct {
	// Record is the deployment configuration; nil means none exists yet.
	Record *config.Record
	// Registry holds the component adapters.
	Registry *component.Registry
	// Container probes the container runtime.
	Container ContainerProbe
	// Cluster probes the Kubernetes cluster.
	Cluster ClusterProbe
	// StatePath locates the last run-state checkpoint.
	StatePath string
}

// NewInspector creates an inspector.
func NewInspector(opts InspectorOptions) *Inspector {
	return &Inspector{
		record:    opts.Record,
		registry:  opts.Registry,
		container: opts.Container,
		cluster:   opts.Cluster,
		statePath: opts.StatePath,
	}
}

// Snapshot probes everything and never fails: probe errors surface as
// unknown facets or per-component messages.
func (i *Inspector) Snapshot(ctx context.Context) *Report {
	report := &Report{
		Components: make(map[string]*component.Status),
	}

	lastRun := i.loadLastRun()
	if i.record != nil {
		report.Order = append(report.Order, i.record.SelectedComponents...)
		for _, id := range report.Order {
			report.Components[id] = i.componentStatus(ctx, id, lastRun)
		}
	}

	report.Facets = append(report.Facets, i.containerFacet(ctx))
	report.Facets = append(report.Facets, i.clusterFacet(ctx))
	report.Facets = append(report.Facets, resourceFacets(ctx)...)

	return report
}

// componentStatus queries one adapter and folds in the last run outcome
// when the component is not installed.
func (i *Inspector) componentStatus(ctx context.Context, id string, lastRun *deploy.RunState) *component.Status {
	comp := i.registry.Get(id)
	if comp == nil {
		return &component.Status{
			Installed: false,
			Healthy:   false,
			Message:   "not found in registry",
		}
	}

	status, err := comp.Status(ctx, i.record)
	if err != nil {
		status = &component.Status{
			Installed: false,
			Healthy:   false,
			Message:   fmt.Sprintf("error querying status: %v", err),
		}
	}

	if !status.Installed && lastRun != nil {
		if outcome, ok := lastRun.Outcome(id); ok {
			detail := string(outcome.State)
			if outcome.Detail != "" {
				detail += ": " + outcome.Detail
			}
			status.Message = fmt.Sprintf("%s; last run %s", status.Message, detail)
		}
	}
	return status
}

// loadLastRun reads the run-state checkpoint; any problem reading it is
// treated as no previous run.
func (i *Inspector) loadLastRun() *deploy.RunState {
	if i.statePath == "" {
		return nil
	}
	state, err := deploy.LoadRunState(i.statePath)
	if err != nil {
		return nil
	}
	return state
}

func (i *Inspector) containerFacet(ctx context.Context) Facet {
	if i.container == nil {
		return Facet{Name: "container runtime", State: FacetUnknown, Detail: "docker client unavailable"}
	}
	if !i.container.IsAvailable(ctx) {
		return Facet{Name: "container runtime", State: FacetError, Detail: "docker daemon not reachable"}
	}
	return Facet{Name: "container runtime", State: FacetOK, Detail: "docker daemon reachable"}
}

func (i *Inspector) clusterFacet(ctx context.Context) Facet {
	if i.cluster == nil {
		return Facet{Name: "kubernetes cluster", State: FacetUnknown, Detail: "kubernetes client unavailable"}
	}
	probeCtx, cancel := context.WithTimeout(ctx, clusterProbeTimeout)
	defer cancel()

	nodes, err := i.cluster.GetNodes(probeCtx)
	return clusterFacet(nodes, err)
}

// clusterFacet classifies a node list probe.
func clusterFacet(nodes []*k8s.Node, err error) Facet {
	if err != nil {
		return Facet{
			Name:   "kubernetes cluster",
			State:  FacetError,
			Detail: fmt.Sprintf("cluster unreachable: %v", err),
		}
	}

	ready := 0
	for _, node := range nodes {
		if node.Ready {
			ready++
		}
	}
	detail := fmt.Sprintf("%d/%d nodes ready", ready, len(nodes))
	switch {
	case len(nodes) == 0:
		return Facet{Name: "kubernetes cluster", State: FacetWarn, Detail: "no nodes found"}
	case ready < len(nodes):
		return Facet{Name: "kubernetes cluster", State: FacetWarn, Detail: detail}
	default:
		return Facet{Name: "kubernetes cluster", State: FacetOK, Detail: detail}
	}
}

// resourceFacets probes host memory, CPU load, and root disk usage.
func resourceFacets(ctx context.Context) []Facet {
	facets := make([]Facet, 0, 3)

	if vm, err := mem.VirtualMemoryWithContext(ctx); err != nil {
		facets = append(facets, Facet{Name: "memory", State: FacetUnknown, Detail: err.Error()})
	} else {
		facets = append(facets, memoryFacet(vm.UsedPercent))
	}

	if avg, err := load.AvgWithContext(ctx); err != nil {
		facets = append(facets, Facet{Name: "cpu load", State: FacetUnknown, Detail: err.Error()})
	} else {
		facets = append(facets, loadFacet(avg.Load1, runtime.NumCPU()))
	}

	if usage, err := disk.UsageWithContext(ctx, "/"); err != nil {
		facets = append(facets, Facet{Name: "disk /", State: FacetUnknown, Detail: err.Error()})
	} else {
		facets = append(facets, diskFacet(usage.UsedPercent))
	}

	return facets
}

func memoryFacet(usedPercent float64) Facet {
	facet := Facet{
		Name:   "memory",
		State:  FacetOK,
		Detail: fmt.Sprintf("%.1f%% used", usedPercent),
	}
	switch {
	case usedPercent >= memoryErrorPercent:
		facet.State = FacetError
	case usedPercent >= memoryWarnPercent:
		facet.State = FacetWarn
	}
	return facet
}

func loadFacet(load1 float64, cpus int) Facet {
	if cpus < 1 {
		cpus = 1
	}
	perCore := load1 / float64(cpus)
	facet := Facet{
		Name:   "cpu load",
		State:  FacetOK,
		Detail: fmt.Sprintf("load1 %.2f across %d cores", load1, cpus),
	}
	if perCore >= loadWarnPerCore {
		facet.State = FacetWarn
	}
	return facet
}

func diskFacet(usedPercent float64) Facet {
	facet := Facet{
		Name:   "disk /",
		State:  FacetOK,
		Detail: fmt.Sprintf("%.1f%% used", usedPercent),
	}
	switch {
	case usedPercent >= diskErrorPercent:
		facet.State = FacetError
	case usedPercent >= diskWarnPercent:
		facet.State = FacetWarn
	}
	return facet
}
