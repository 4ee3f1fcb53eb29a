package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/catalystcommunity/lattice/internal/cleanup"
	"github.com/catalystcommunity/lattice/internal/config"
	"github.com/catalystcommunity/lattice/internal/container"
	"github.com/catalystcommunity/lattice/internal/helm"
	"github.com/catalystcommunity/lattice/internal/k8s"
	"github.com/catalystcommunity/lattice/internal/localexec"
	"github.com/catalystcommunity/lattice/internal/secrets"
)

// Clean tears down everything the deploy command created. Ephemeral
// resources are removed once the operator confirms the run; the
// destructive classes are each confirmed separately.
func Clean(ctx context.Context, opts Options) error {
	path, err := config.ResolveConfigPath(opts.ConfigPath)
	if err != nil {
		return err
	}
	rec, err := config.Load(path, secrets.KeyringResolver{})
	if err != nil {
		// Cleanup still works without the configuration; labeled
		// resources and default paths are found either way.
		fmt.Printf("⚠ No deployment configuration loaded: %v\n", err)
		rec = nil
	}

	line := strings.Repeat("=", 60)
	fmt.Println(line)
	fmt.Println("LATTICE CLEANUP")
	fmt.Println(line)
	fmt.Println("\nThis removes the deployed components, their containers, and the")
	fmt.Println("saved configuration. Destructive steps are confirmed one by one.")

	prompter := config.NewStdPrompter()
	proceed, err := prompter.Confirm("\nDo you want to continue with cleanup?")
	if err != nil {
		return err
	}
	if !proceed {
		fmt.Println("Cleanup cancelled.")
		return ErrCancelled
	}

	lock, err := acquireLock()
	if err != nil {
		return err
	}
	defer lock.Release()

	logger := openRunLog()
	defer logger.Close()

	copts := cleanup.CoordinatorOptions{
		Record:     rec,
		ConfigPath: path,
		Runner:     localexec.NewRunner(logger.Logger),
	}
	// Backends that are down report their classes as failed instead of
	// blocking the rest, so each client is optional.
	if cc, err := container.NewClient(); err == nil {
		copts.Containers = cc
	}
	namespace := config.DefaultNamespace
	if rec != nil && rec.Orchestrator != nil && rec.Orchestrator.Namespace != "" {
		namespace = rec.Orchestrator.Namespace
	}
	if hc, err := helm.NewClient(namespace, logger.Logger); err == nil {
		copts.Helm = hc
	}
	if kc, err := k8s.NewClient(); err == nil {
		copts.Kube = kc
	}

	coord := cleanup.NewCoordinator(copts)
	classes := coord.Plan()

	confirmed := make(map[string]bool)
	for _, class := range classes {
		if class.Scope != cleanup.ScopeDestructive {
			continue
		}
		yes, err := prompter.Confirm(fmt.Sprintf("Remove %s (%s)?", class.Name, class.Description))
		if err != nil {
			return err
		}
		confirmed[class.Name] = yes
	}

	results := coord.Execute(ctx, classes, confirmed)
	results = coord.Verify(ctx, classes, results)

	if failed := countFailures(results); failed > 0 {
		return fmt.Errorf("cleanup finished with %d failure(s)", failed)
	}
	fmt.Println("\n✓ Cleanup complete")
	return nil
}

func countFailures(results []cleanup.Result) int {
	failed := 0
	for _, result := range results {
		if result.Err != nil {
			failed++
		}
	}
	return failed
}
