package cmd

import (
	"fmt"

	"github.com/elektrokombinacija/fleetplan/internal/config"
	"github.com/elektrokombinacija/fleetplan/internal/scenario"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
)

func newPlanCmd(app *app) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "plan <scenario>",
		Short: "Assign operations and plan robot trajectories",
		Long:  "plan reads a JSON or YAML scenario, assigns its operations with the configured method, plans every robot from its base at t=0 and optionally inserts safety pauses. The plan is written as JSON to stdout unless --out names a .json or .txt file.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlan(cmd, app, args[0], out)
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "Plan file (.json or .txt)")
	cmd.Flags().String("method", config.Default().Assign.Method, "Assignment method: round_robin, balanced, distance_based, genetic")
	addPlanningFlags(cmd)

	return cmd
}

func addPlanningFlags(cmd *cobra.Command) {
	d := config.Default()
	cmd.Flags().Int64("seed", d.Assign.Seed, "Genetic algorithm seed")
	cmd.Flags().Int("workers", d.Assign.Workers, "Concurrent fitness evaluations (0 = unlimited)")
	cmd.Flags().Float64("budget", d.Assign.TimeBudget, "Genetic search wall-clock budget in seconds (0 = none)")
	cmd.Flags().Bool("safety", d.Safety.Enabled, "Insert pauses at detected collisions")
	cmd.Flags().Float64("pause", d.Safety.PauseDuration, "Pause duration in seconds")
	cmd.Flags().Float64("time-step", d.Collision.TimeStep, "Collision sampling step in seconds")
}

func runPlan(cmd *cobra.Command, app *app, path, out string) (err error) {
	s, err := app.start(cmd)
	if err != nil {
		return err
	}
	defer multierr.AppendInvoke(&err, multierr.Invoke(s.close))

	sc, err := scenario.Load(path)
	if err != nil {
		return err
	}
	asm, err := s.assembler(s.cfg.Assign.Method)
	if err != nil {
		return err
	}

	started := app.now()
	res, err := asm.Build(cmd.Context(), sc)
	if err != nil {
		s.log.Error("planning failed", "scenario", sc.Name, "error", err)
		return err
	}
	res.Plan.RunID = s.runID
	s.log.Info("plan built",
		"scenario", sc.Name,
		"method", res.Plan.Method,
		"robots", len(sc.Robots),
		"operations", len(sc.Operations),
		"makespan", res.Plan.Makespan,
		"elapsed", app.now().Sub(started))
	if res.Safety != nil {
		s.log.Info("safety pass",
			"collisions_before", res.Safety.CollisionsBefore,
			"pauses", res.Safety.PausesInserted,
			"makespan_before", res.Safety.MakespanBefore,
			"remaining", len(res.Safety.Remaining))
	}

	if out == "" {
		return scenario.WritePlanJSON(cmd.OutOrStdout(), res.Plan)
	}
	if err := scenario.SavePlan(out, res.Plan); err != nil {
		return fmt.Errorf("save plan: %w", err)
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s: %s makespan %.3fs -> %s\n", sc.Name, res.Plan.Method, res.Plan.Makespan, out)
	return err
}
