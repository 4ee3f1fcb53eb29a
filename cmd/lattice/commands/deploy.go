package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/catalystcommunity/lattice/cmd/lattice/registry"
	"github.com/catalystcommunity/lattice/internal/artifact"
	"github.com/catalystcommunity/lattice/internal/component"
	"github.com/catalystcommunity/lattice/internal/config"
	"github.com/catalystcommunity/lattice/internal/deploy"
	"github.com/catalystcommunity/lattice/internal/localexec"
	"github.com/catalystcommunity/lattice/internal/prereq"
	"github.com/catalystcommunity/lattice/internal/secrets"
)

// Deploy runs the full deployment workflow: welcome screen,
// prerequisite check, configuration, confirmation, and sequenced
// activation. With --dry-run it stops after printing the plan.
func Deploy(ctx context.Context, opts Options) error {
	printWelcome()

	prompter := config.NewStdPrompter()
	proceed, err := prompter.Confirm("Do you want to continue with the deployment?")
	if err != nil {
		return err
	}
	if !proceed {
		fmt.Println("Deployment cancelled.")
		return ErrCancelled
	}

	logger := openRunLog()
	defer logger.Close()

	if !opts.SkipPrerequisites {
		if err := ensurePrerequisites(ctx, prompter, logger.Logger); err != nil {
			return err
		}
	}

	rec, configPath, err := resolveRecord(opts, prompter)
	if err != nil {
		return err
	}

	proceed, err = prompter.Confirm("\nDo you want to proceed with the deployment?")
	if err != nil {
		return err
	}
	if !proceed {
		fmt.Println("Deployment cancelled by user.")
		return ErrCancelled
	}

	lock, err := acquireLock()
	if err != nil {
		return err
	}
	defer lock.Release()

	artifactsDir, err := config.ArtifactsDir()
	if err != nil {
		return err
	}

	if opts.DryRun {
		return printPlan(rec, artifactsDir)
	}

	statePath, err := config.StatePath()
	if err != nil {
		return err
	}
	reg, err := registry.Runtime(rec, logger.Logger)
	if err != nil {
		return err
	}

	fmt.Println("\nSTARTING DEPLOYMENT")
	fmt.Println(strings.Repeat("=", 40))

	seq := deploy.NewSequencer(deploy.SequencerOptions{
		Registry:    reg,
		ArtifactDir: artifactsDir,
		StatePath:   statePath,
		Logger:      logger.Logger,
	})
	state, err := seq.Run(ctx, rec)
	if err != nil {
		return err
	}

	printSummary(rec, state, configPath)

	if hasInterrupted(state) {
		fmt.Println("\n⚠ Deployment interrupted by user.")
		return fmt.Errorf("deployment interrupted")
	}
	if !state.Succeeded() {
		return fmt.Errorf("deployment failed")
	}
	fmt.Println("\nDeployment completed successfully!")
	return nil
}

func printWelcome() {
	line := strings.Repeat("=", 60)
	fmt.Println(line)
	fmt.Println("LATTICE DEPLOYMENT TOOL")
	fmt.Println(line)
	fmt.Println("\nThis tool will guide you through deploying Magma components:")
	for _, id := range config.Components() {
		fmt.Printf("  %s - %s\n", config.ComponentDisplayName(id), componentBlurb(id))
	}
	fmt.Println("\nPrerequisites:")
	fmt.Println("- Docker and Docker Compose installed")
	fmt.Println("- Kubernetes cluster (for orchestrator)")
	fmt.Println("- Sufficient system resources (8GB+ RAM recommended)")
	fmt.Println("- Network connectivity for downloading images")
	fmt.Println(line)
}

func componentBlurb(id string) string {
	switch id {
	case config.ComponentOrchestrator:
		return "central management plane"
	case config.ComponentAccessGateway:
		return "radio access network gateway"
	case config.ComponentFederatedGateway:
		return "federation with external networks"
	case config.ComponentNMS:
		return "web-based management"
	default:
		return ""
	}
}

// ensurePrerequisites probes for the required host tools and offers to
// install anything missing. Declining the offer fails the deployment;
// the operator is told what to install manually.
func ensurePrerequisites(ctx context.Context, prompter config.Prompter, logger *slog.Logger) error {
	fmt.Println("\nChecking prerequisites...")
	set := prereq.Check(prereq.DefaultTools)
	for _, status := range set.Statuses {
		if status.Present {
			fmt.Printf("✓ %s found\n", status.Tool.Name)
		} else {
			fmt.Printf("✗ %s not found - %s\n", status.Tool.Name, status.Tool.Description)
		}
	}

	missing := set.Missing()
	if len(missing) == 0 {
		fmt.Println("✓ All prerequisites are available")
		return nil
	}

	names := make([]string, 0, len(missing))
	for _, tool := range missing {
		names = append(names, tool.Name)
	}
	fmt.Printf("\n⚠ Missing dependencies: %s\n", strings.Join(names, ", "))

	install, err := prompter.Confirm("Do you want to install missing dependencies automatically?")
	if err != nil {
		return err
	}
	if !install {
		return fmt.Errorf("missing prerequisites: %s; install them manually and run lattice again", strings.Join(names, ", "))
	}

	family, err := prereq.DetectOSFamily()
	if err != nil {
		return err
	}
	plan, err := prereq.InstallPlan(family, missing)
	if err != nil {
		return err
	}

	fmt.Println("\nInstalling prerequisites...")
	installer := prereq.NewInstaller(localexec.NewRunner(logger), logger)
	installed, err := installer.Install(ctx, plan)
	for _, tool := range installed {
		fmt.Printf("✓ %s installed\n", tool)
		if tool == "docker" {
			fmt.Println("⚠ Log out and back in to use Docker without sudo")
		}
	}
	if err != nil {
		return fmt.Errorf("failed to install prerequisites: %w", err)
	}
	return nil
}

// resolveRecord loads the saved configuration when --config was given
// and collects one interactively otherwise. The --components flag
// narrows a loaded record and preselects the interactive menu.
func resolveRecord(opts Options, prompter config.Prompter) (*config.Record, string, error) {
	var selected []string
	if opts.Components != "" {
		var err error
		selected, err = config.ParseComponents(opts.Components)
		if err != nil {
			return nil, "", err
		}
	}

	if opts.ConfigPath != "" {
		path, err := config.ResolveConfigPath(opts.ConfigPath)
		if err != nil {
			return nil, "", err
		}
		rec, err := config.Load(path, secrets.KeyringResolver{})
		if err != nil {
			return nil, "", fmt.Errorf("failed to load configuration: %w", err)
		}
		if selected != nil {
			rec, err = rec.WithComponents(selected)
			if err != nil {
				return nil, "", err
			}
		}
		fmt.Printf("✓ Configuration loaded from %s\n", path)
		return rec, path, nil
	}

	fmt.Println("\nDEPLOYMENT CONFIGURATION")
	fmt.Println(strings.Repeat("=", 40))
	var rec *config.Record
	var err error
	if selected != nil {
		rec, err = config.CollectWithSelection(prompter, selected)
	} else {
		rec, err = config.Collect(prompter)
	}
	if err != nil {
		return nil, "", err
	}

	// The password lives in the secret store; the file only carries a
	// reference, so store it before saving.
	if rec.Orchestrator != nil {
		if err := secrets.Store(config.DBPasswordSecret, rec.Orchestrator.DBPassword); err != nil {
			return nil, "", fmt.Errorf("failed to store database password: %w", err)
		}
	}

	path, err := config.DefaultConfigPath()
	if err != nil {
		return nil, "", err
	}
	if err := config.Save(rec, path); err != nil {
		return nil, "", fmt.Errorf("failed to save configuration: %w", err)
	}
	fmt.Printf("\n✓ Configuration saved to %s\n", path)
	return rec, path, nil
}

// printPlan resolves the activation order and writes every artifact
// without activating anything.
func printPlan(rec *config.Record, artifactsDir string) error {
	reg, err := registry.Planning(rec)
	if err != nil {
		return err
	}
	order, err := component.ResolveActivationOrder(reg, rec.SelectedComponents)
	if err != nil {
		return err
	}

	fmt.Println("\nDEPLOYMENT PLAN (dry run)")
	fmt.Println(strings.Repeat("=", 40))
	for i, id := range order {
		path, err := artifact.Write(rec, id, artifactsDir)
		if err != nil {
			return fmt.Errorf("failed to render artifact for %s: %w", id, err)
		}
		fmt.Printf("%d. %s\n", i+1, config.ComponentDisplayName(id))
		fmt.Printf("   artifact: %s\n", path)
		if deps := reg.Get(id).Dependencies(); len(deps) > 0 {
			fmt.Printf("   after: %s\n", strings.Join(deps, ", "))
		}
	}
	fmt.Println("\nDry run complete. No components were activated.")
	return nil
}

// summaryLines builds the access endpoint lines for every component
// that reached Succeeded.
func summaryLines(rec *config.Record, state *deploy.RunState) []string {
	succeeded := func(id string) bool {
		outcome, ok := state.Outcome(id)
		return ok && outcome.State == deploy.StateSucceeded
	}

	var lines []string
	if succeeded(config.ComponentOrchestrator) && rec.Orchestrator != nil {
		lines = append(lines,
			fmt.Sprintf("Orchestrator: https://%s", rec.Domain),
			fmt.Sprintf("  Namespace: %s", rec.Orchestrator.Namespace),
		)
	}
	if succeeded(config.ComponentNMS) {
		lines = append(lines,
			fmt.Sprintf("NMS Portal: https://%s:8080", rec.Domain),
			fmt.Sprintf("  Admin Email: %s", rec.AdminEmail),
		)
	}
	if succeeded(config.ComponentAccessGateway) && rec.AccessGateway != nil {
		lines = append(lines,
			fmt.Sprintf("Access Gateway: %s", rec.AccessGateway.IP),
			fmt.Sprintf("  Network: %s-%s", rec.AccessGateway.MCC, rec.AccessGateway.MNC),
		)
	}
	if succeeded(config.ComponentFederatedGateway) && rec.FederatedGateway != nil {
		lines = append(lines,
			fmt.Sprintf("Federated Gateway: %s", rec.FederatedGateway.FederationID),
			fmt.Sprintf("  Diameter: %s:%s", rec.FederatedGateway.DiameterHost, rec.FederatedGateway.DiameterPort),
		)
	}
	return lines
}

func printSummary(rec *config.Record, state *deploy.RunState, configPath string) {
	fmt.Println("\nDEPLOYMENT SUMMARY")
	fmt.Println(strings.Repeat("=", 40))
	for _, outcome := range state.Outcomes {
		display := config.ComponentDisplayName(outcome.ComponentID)
		switch outcome.State {
		case deploy.StateSucceeded:
			fmt.Printf("✓ %s deployed\n", display)
		case deploy.StateFailed:
			fmt.Printf("✗ %s failed: %s\n", display, outcome.Detail)
		case deploy.StateInterrupted:
			fmt.Printf("⚠ %s interrupted\n", display)
		default:
			detail := outcome.Detail
			if detail == "" {
				detail = "not started"
			}
			fmt.Printf("- %s pending: %s\n", display, detail)
		}
	}

	if lines := summaryLines(rec, state); len(lines) > 0 {
		fmt.Println()
		for _, line := range lines {
			fmt.Println(line)
		}
	}

	if state.Succeeded() {
		fmt.Println("\nNext Steps:")
		fmt.Println("1. Verify all services are running")
		fmt.Println("2. Configure your network devices to connect to the gateways")
		fmt.Println("3. Access the NMS portal to manage your network")
		fmt.Println("4. Monitor logs for any issues")
	}

	fmt.Printf("\nConfiguration saved in: %s\n", configPath)
	if logPath, err := config.RunLogPath(); err == nil {
		fmt.Printf("Logs available in: %s\n", logPath)
	}
}

// hasInterrupted reports whether any component ended Interrupted.
func hasInterrupted(state *deploy.RunState) bool {
	for _, outcome := range state.Outcomes {
		if outcome.State == deploy.StateInterrupted {
			return true
		}
	}
	return false
}
