package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/elektrokombinacija/fleetplan/internal/core"
	"github.com/elektrokombinacija/fleetplan/internal/scenario"
	"github.com/elektrokombinacija/fleetplan/internal/sim"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
)

type simulateOptions struct {
	scenarioPath string
	step         float64
	duration     float64
	framesPath   string
	metricsOut   string
}

func newSimulateCmd(app *app) *cobra.Command {
	opts := simulateOptions{step: sim.DefaultConfig().TimeStep}

	cmd := &cobra.Command{
		Use:   "simulate <plan>",
		Short: "Play back a plan and report clearance and utilisation metrics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulate(cmd, app, args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.scenarioPath, "scenario", "", "Scenario file providing static obstacles")
	cmd.Flags().Float64Var(&opts.step, "step", opts.step, "Playback step in seconds")
	cmd.Flags().Float64Var(&opts.duration, "duration", 0, "Simulated duration in seconds (0 = makespan)")
	cmd.Flags().StringVar(&opts.framesPath, "frames", "", "Write frames as JSON lines to this file")
	cmd.Flags().StringVar(&opts.metricsOut, "metrics-out", "", "Write playback metrics as JSON to this file")

	return cmd
}

func runSimulate(cmd *cobra.Command, app *app, path string, opts simulateOptions) (err error) {
	s, err := app.start(cmd)
	if err != nil {
		return err
	}
	defer multierr.AppendInvoke(&err, multierr.Invoke(s.close))

	plan, err := scenario.LoadPlan(path)
	if err != nil {
		return err
	}

	cfg := sim.DefaultConfig()
	cfg.Plan = plan
	cfg.TimeStep = opts.step
	cfg.Duration = opts.duration
	if opts.scenarioPath != "" {
		sc, err := scenario.Load(opts.scenarioPath)
		if err != nil {
			return err
		}
		cfg.Obstacles = sc.Obstacles
		if plan.SafeDist == 0 {
			plan.SafeDist = sc.SafeDist
		}
	}

	if opts.framesPath != "" {
		var file *os.File
		if file, err = os.Create(opts.framesPath); err != nil {
			return fmt.Errorf("create frames file: %w", err)
		}
		defer multierr.AppendInvoke(&err, multierr.Close(file))
		bw := bufio.NewWriter(file)
		defer multierr.AppendInvoke(&err, multierr.Invoke(bw.Flush))

		enc := json.NewEncoder(bw)
		cfg.OnFrame = func(f sim.Frame) {
			if encErr := enc.Encode(f); encErr != nil {
				s.log.Warn("frame dropped", "t", f.Time, "error", encErr)
			}
		}
	}

	simulator := sim.NewSimulator(cfg)
	m, err := simulator.Run(cmd.Context())
	if err != nil {
		return err
	}
	s.log.Info("playback finished",
		"steps", m.Steps,
		"simulated_time", m.SimulatedTime,
		"violating_samples", m.ViolatingSamples,
		"elapsed", m.EndTime.Sub(m.StartTime))

	if opts.metricsOut != "" {
		if err := simulator.ExportMetrics(opts.metricsOut); err != nil {
			return fmt.Errorf("export metrics: %w", err)
		}
	}
	return writeSimMetrics(cmd, m)
}

func writeSimMetrics(cmd *cobra.Command, m *sim.SimulationMetrics) error {
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "makespan:            %.3fs\n", m.Makespan)
	fmt.Fprintf(w, "simulated:           %.3fs in %d steps\n", m.SimulatedTime, m.Steps)
	fmt.Fprintf(w, "min clearance:       %.4f\n", m.MinClearanceMargin)
	fmt.Fprintf(w, "violating samples:   %d (pairs %d, obstacles %d)\n", m.ViolatingSamples, m.PairViolations, m.ObstacleViolations)
	fmt.Fprintf(w, "operations:          %d/%d\n", m.OperationsCompleted, m.OperationsTotal)
	fmt.Fprintf(w, "utilization:         %.1f%%\n", m.Utilization*100)

	ids := make([]int, 0, len(m.PathLength))
	for id := range m.PathLength {
		ids = append(ids, int(id))
	}
	sort.Ints(ids)
	for _, id := range ids {
		rid := core.RobotID(id)
		if _, err := fmt.Fprintf(w, "robot %-3d path %8.3f  moving %8.3fs  idle %8.3fs\n",
			id, m.PathLength[rid], m.MovingTime[rid], m.IdleTime[rid]); err != nil {
			return err
		}
	}
	return nil
}
