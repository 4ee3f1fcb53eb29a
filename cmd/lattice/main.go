package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/catalystcommunity/lattice/cmd/lattice/commands"
	"github.com/urfave/cli/v3"
)

var (
	// Version information (will be set by build flags)
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func main() {
	// A SIGINT or SIGTERM cancels the context; the sequencer finishes
	// the in-flight component's bookkeeping and stops.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := &cli.Command{
		Name:    "lattice",
		Usage:   "An interactive deployment tool for the Magma network stack",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to a saved deployment configuration",
				Sources: cli.EnvVars("LATTICE_CONFIG"),
			},
			&cli.BoolFlag{
				Name:  "status",
				Usage: "show the health of the deployed stack",
			},
			&cli.BoolFlag{
				Name:  "clean",
				Usage: "remove everything the deployment created",
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "write artifacts and print the activation plan without deploying",
			},
			&cli.StringFlag{
				Name:  "components",
				Usage: "comma-separated components to deploy (orchestrator, accessGateway, federatedGateway, networkManagementSystem; aliases orc8r, agw, fgw, nms)",
			},
			&cli.BoolFlag{
				Name:  "skip-prerequisites",
				Usage: "skip the prerequisite check",
			},
		},
		Action: run,
	}

	if err := cmd.Run(ctx, os.Args); err != nil {
		// Declined confirmations already explained themselves.
		if !errors.Is(err, commands.ErrCancelled) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	opts := commands.Options{
		ConfigPath:        cmd.String("config"),
		Components:        cmd.String("components"),
		DryRun:            cmd.Bool("dry-run"),
		SkipPrerequisites: cmd.Bool("skip-prerequisites"),
	}

	switch {
	case cmd.Bool("status"):
		return commands.Status(ctx, opts)
	case cmd.Bool("clean"):
		return commands.Clean(ctx, opts)
	default:
		return commands.Deploy(ctx, opts)
	}
}
