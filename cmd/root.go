package cmd

import (
	"context"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return newRootCmd().ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "fleetplan",
		Short:         "Plan pick-and-place work for a fleet of manipulators",
		Long:          "fleetplan assigns pick-and-place operations to robots, plans trapezoidal-profile trajectories, detects clearance violations and inserts safety pauses.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	app := wireApp()
	rootCmd.PersistentFlags().StringVar(&app.configPath, "config", "", "Config file (default: ./fleetplan.toml or ~/.config/fleetplan/fleetplan.toml)")
	rootCmd.PersistentFlags().String("log-mode", "", "Log mode: dev or prod")
	rootCmd.PersistentFlags().String("metrics", "", "Write Prometheus metrics to this textfile after the run")

	rootCmd.AddCommand(
		newVersionCmd(),
		newConfigCmd(app),
		newPlanCmd(app),
		newDetectCmd(app),
		newSimulateCmd(app),
		newGenCmd(),
		newBenchCmd(app),
	)

	return rootCmd
}
