package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/elektrokombinacija/fleetplan/internal/collision"
	"github.com/elektrokombinacija/fleetplan/internal/config"
	"github.com/elektrokombinacija/fleetplan/internal/core"
	"github.com/elektrokombinacija/fleetplan/internal/scenario"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
)

type detectOptions struct {
	scenarioPath string
	safeDist     float64
	asJSON       bool
}

type detectOutput struct {
	Summary    collision.Summary
	Collisions []core.Collision
}

func newDetectCmd(app *app) *cobra.Command {
	var opts detectOptions

	cmd := &cobra.Command{
		Use:   "detect <plan>",
		Short: "Report clearance violations in a plan",
		Long:  "detect samples a JSON or TXT plan on a fixed time grid and reports every robot pair closer than the plan's safe distance plus both tool clearances. With --scenario the scenario's static obstacles are checked too.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDetect(cmd, app, args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.scenarioPath, "scenario", "", "Scenario file providing static obstacles")
	cmd.Flags().Float64Var(&opts.safeDist, "safe-dist", 0, "Override the plan's safe distance")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "Render JSON output")
	cmd.Flags().Float64("time-step", config.Default().Collision.TimeStep, "Sampling step in seconds")

	return cmd
}

func runDetect(cmd *cobra.Command, app *app, path string, opts detectOptions) (err error) {
	s, err := app.start(cmd)
	if err != nil {
		return err
	}
	defer multierr.AppendInvoke(&err, multierr.Invoke(s.close))

	plan, err := scenario.LoadPlan(path)
	if err != nil {
		return err
	}
	var obstacles []*core.Obstacle
	if opts.scenarioPath != "" {
		sc, err := scenario.Load(opts.scenarioPath)
		if err != nil {
			return err
		}
		obstacles = sc.Obstacles
		if plan.SafeDist == 0 {
			plan.SafeDist = sc.SafeDist
		}
	}
	if cmd.Flags().Changed("safe-dist") {
		plan.SafeDist = opts.safeDist
	}

	det := s.detector()
	collisions, err := det.Detect(cmd.Context(), plan)
	if err != nil {
		return err
	}
	collisions = append(collisions, det.DetectStatic(plan, obstacles)...)

	summary := collision.Summarize(collisions)
	s.log.Info("detection finished",
		"plan", path,
		"collisions", summary.Total,
		"robot_robot", summary.RobotRobot,
		"robot_obstacle", summary.RobotObstacle)

	if opts.asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(detectOutput{Summary: summary, Collisions: collisions})
	}
	return writeSummary(cmd.OutOrStdout(), summary)
}

func writeSummary(w io.Writer, s collision.Summary) error {
	if s.Total == 0 {
		_, err := fmt.Fprintln(w, "collisions: 0")
		return err
	}
	_, err := fmt.Fprintf(w, "collisions: %d (robot-robot %d, robot-obstacle %d)\nwindow: %.3fs .. %.3fs (%.3fs)\nrobots: %v\n",
		s.Total, s.RobotRobot, s.RobotObstacle, s.Start, s.End, s.Span(), s.Robots)
	return err
}
