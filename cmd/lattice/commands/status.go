package commands

import (
	"context"
	"fmt"

	"github.com/catalystcommunity/lattice/cmd/lattice/registry"
	"github.com/catalystcommunity/lattice/internal/component"
	"github.com/catalystcommunity/lattice/internal/config"
	"github.com/catalystcommunity/lattice/internal/container"
	"github.com/catalystcommunity/lattice/internal/k8s"
	"github.com/catalystcommunity/lattice/internal/secrets"
	"github.com/catalystcommunity/lattice/internal/status"
)

// Status reports on the deployed stack: per-component install and
// health state, environment probes, and an overall summary. It is
// read-only and never takes the run lock.
func Status(ctx context.Context, opts Options) error {
	logger := openRunLog()
	defer logger.Close()

	rec := loadRecordForStatus(opts.ConfigPath)

	reg, err := registry.Inspection(rec, logger.Logger)
	if err != nil {
		return err
	}

	statePath, err := config.StatePath()
	if err != nil {
		return err
	}
	inspOpts := status.InspectorOptions{
		Record:    rec,
		Registry:  reg,
		StatePath: statePath,
	}
	// A typed nil assigned to the interface would dodge the inspector's
	// nil checks, so only set probes that actually constructed.
	if cc, err := container.NewClient(); err == nil {
		inspOpts.Container = cc
	}
	if kc, err := k8s.NewClient(); err == nil {
		inspOpts.Cluster = kc
	}

	report := status.NewInspector(inspOpts).Snapshot(ctx)

	if len(report.Order) > 0 {
		displayStatusTable(report.Order, report.Components)
		fmt.Println()
	}

	displayFacets(report.Facets)

	if len(report.Order) > 0 {
		health := calculateOverallHealth(report.Components)
		fmt.Println()
		displayOverallHealth(health)
	}
	return nil
}

// loadRecordForStatus loads the configuration if one exists. Status
// still reports environment facets without it.
func loadRecordForStatus(configPath string) *config.Record {
	path, err := config.ResolveConfigPath(configPath)
	if err != nil {
		return nil
	}
	rec, err := config.Load(path, secrets.KeyringResolver{})
	if err != nil {
		fmt.Printf("⚠ No deployment configuration loaded: %v\n\n", err)
		return nil
	}
	return rec
}

// displayStatusTable shows a formatted table of component statuses
func displayStatusTable(order []string, statuses map[string]*component.Status) {
	fmt.Println("Stack Component Status:")
	fmt.Println()
	fmt.Printf("  %-26s %-12s %-10s %-15s %s\n", "COMPONENT", "INSTALLED", "HEALTHY", "VERSION", "MESSAGE")
	fmt.Printf("  %-26s %-12s %-10s %-15s %s\n", "─────────", "─────────", "───────", "───────", "───────")

	for _, name := range order {
		st := statuses[name]
		if st == nil {
			continue
		}

		// Status symbol
		symbol := "✓"
		if !st.Installed {
			symbol = "✗"
		} else if !st.Healthy {
			symbol = "⚠"
		}

		// Installed and Healthy indicators
		installedStr := "no"
		if st.Installed {
			installedStr = "yes"
		}
		healthyStr := "no"
		if st.Healthy {
			healthyStr = "yes"
		}

		// Version (use "-" if not available)
		version := st.Version
		if version == "" {
			version = "-"
		}

		// Message (truncate if too long)
		message := st.Message
		if len(message) > 50 {
			message = message[:47] + "..."
		}

		fmt.Printf("  %s %-24s %-12s %-10s %-15s %s\n",
			symbol, name, installedStr, healthyStr, version, message)
	}
}

// displayFacets shows the environment probe results.
func displayFacets(facets []status.Facet) {
	fmt.Println("Environment:")
	for _, facet := range facets {
		detail := facet.Detail
		if len(detail) > 60 {
			detail = detail[:57] + "..."
		}
		fmt.Printf("  %s %-20s %s\n", facetSymbol(facet.State), facet.Name, detail)
	}
}

func facetSymbol(state status.FacetState) string {
	switch state {
	case status.FacetOK:
		return "✓"
	case status.FacetWarn:
		return "⚠"
	case status.FacetError:
		return "✗"
	default:
		return "-"
	}
}

// StackHealth represents the overall health of the stack
type StackHealth struct {
	TotalComponents     int
	InstalledComponents int
	HealthyComponents   int
	UnhealthyComponents int
	NotInstalledCount   int
	OverallHealthy      bool
}

// calculateOverallHealth determines the overall health of the stack
func calculateOverallHealth(statuses map[string]*component.Status) StackHealth {
	health := StackHealth{
		TotalComponents: len(statuses),
	}

	for _, st := range statuses {
		if st.Installed {
			health.InstalledComponents++
			if st.Healthy {
				health.HealthyComponents++
			} else {
				health.UnhealthyComponents++
			}
		} else {
			health.NotInstalledCount++
		}
	}

	// Stack is healthy if all installed components are healthy
	health.OverallHealthy = health.InstalledComponents > 0 &&
		health.UnhealthyComponents == 0

	return health
}

// displayOverallHealth shows the overall health summary
func displayOverallHealth(health StackHealth) {
	fmt.Println("Overall Stack Health:")
	fmt.Printf("  Total components:       %d\n", health.TotalComponents)
	fmt.Printf("  Installed:              %d\n", health.InstalledComponents)
	fmt.Printf("  Healthy:                %d\n", health.HealthyComponents)
	fmt.Printf("  Unhealthy:              %d\n", health.UnhealthyComponents)
	fmt.Printf("  Not installed:          %d\n", health.NotInstalledCount)
	fmt.Println()

	if health.OverallHealthy {
		fmt.Println("  Status: ✓ All installed components are healthy")
	} else if health.InstalledComponents == 0 {
		fmt.Println("  Status: ⚠ No components are installed")
	} else if health.UnhealthyComponents > 0 {
		fmt.Printf("  Status: ✗ %d component(s) are unhealthy\n", health.UnhealthyComponents)
	}
}
