package cmd

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/elektrokombinacija/fleetplan/internal/algo"
	"github.com/elektrokombinacija/fleetplan/internal/config"
	"github.com/elektrokombinacija/fleetplan/internal/core"
	"github.com/elektrokombinacija/fleetplan/internal/scenario"
	"github.com/elektrokombinacija/fleetplan/internal/store"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
)

type benchOptions struct {
	methods []string
	csvPath string
}

func newBenchCmd(app *app) *cobra.Command {
	opts := benchOptions{methods: algo.Methods()}

	cmd := &cobra.Command{
		Use:   "bench <scenario>...",
		Short: "Compare assignment methods on scenarios and record the results",
		Long:  "bench plans every scenario with every selected method, checks the plans for collisions, records one row per run in the benchmark database and prints a summary table.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBench(cmd, app, args, opts)
		},
	}

	cmd.PersistentFlags().String("db", config.Default().Store.Path, "Benchmark database file")
	cmd.Flags().StringSliceVar(&opts.methods, "methods", opts.methods, "Methods to run")
	cmd.Flags().StringVar(&opts.csvPath, "csv", "", "Also write the rows to this CSV file")
	addPlanningFlags(cmd)

	cmd.AddCommand(newBenchStatsCmd(app))

	return cmd
}

func newBenchStatsCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Summarise recorded runs per method",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBenchStats(cmd, app)
		},
	}
}

func runBench(cmd *cobra.Command, app *app, paths []string, opts benchOptions) (err error) {
	s, err := app.start(cmd)
	if err != nil {
		return err
	}
	defer multierr.AppendInvoke(&err, multierr.Invoke(s.close))

	for _, method := range opts.methods {
		if _, err := algo.New(method, s.cfg.AssignParams(), nil); err != nil {
			return err
		}
	}

	st, err := store.Open(s.cfg.Store.Path, s.log)
	if err != nil {
		return err
	}
	defer multierr.AppendInvoke(&err, multierr.Close(st))

	ctx := cmd.Context()
	var rows []store.BenchmarkRun
	for _, path := range paths {
		sc, err := scenario.Load(path)
		if err != nil {
			return err
		}
		for _, method := range opts.methods {
			row, err := benchOne(ctx, app, s, sc, method)
			if err != nil {
				return err
			}
			row.RunID = s.runID
			if err := st.Record(ctx, &row); err != nil {
				return err
			}
			rows = append(rows, row)
		}
	}

	if opts.csvPath != "" {
		if err := writeBenchCSV(opts.csvPath, rows); err != nil {
			return fmt.Errorf("write results: %w", err)
		}
		s.log.Info("results written", "path", opts.csvPath, "rows", len(rows))
	}
	return writeBenchTable(cmd.OutOrStdout(), rows)
}

// benchOne plans sc with method. Planning failures land in the row; only
// cancellation is returned as an error.
func benchOne(ctx context.Context, app *app, s *session, sc *core.Scenario, method string) (store.BenchmarkRun, error) {
	row := store.BenchmarkRun{
		Scenario:   sc.Name,
		Method:     method,
		Robots:     len(sc.Robots),
		Operations: len(sc.Operations),
	}

	asm, err := s.assembler(method)
	if err != nil {
		row.Error = err.Error()
		return row, nil
	}

	started := app.now()
	res, err := asm.Build(ctx, sc)
	row.RuntimeMs = float64(app.now().Sub(started).Microseconds()) / 1000.0
	if err != nil {
		if ctx.Err() != nil {
			return row, ctx.Err()
		}
		row.Error = err.Error()
		s.log.Warn("benchmark run failed", "scenario", sc.Name, "method", method, "error", err)
		return row, nil
	}

	row.Success = true
	row.Makespan = res.Plan.Makespan
	if res.Safety != nil {
		row.Makespan = res.Safety.MakespanBefore
		row.Collisions = res.Safety.CollisionsBefore
		row.PausesInserted = res.Safety.PausesInserted
		row.SafeMakespan = res.Safety.MakespanAfter
		return row, nil
	}

	collisions, err := s.detector().Detect(ctx, res.Plan)
	if err != nil {
		if ctx.Err() != nil {
			return row, ctx.Err()
		}
		row.Success = false
		row.Error = err.Error()
		return row, nil
	}
	row.Collisions = len(collisions)
	return row, nil
}

func writeBenchTable(w io.Writer, rows []store.BenchmarkRun) error {
	fmt.Fprintf(w, "%-24s %-16s %6s %5s %10s %11s %6s %6s %10s\n",
		"Scenario", "Method", "Robots", "Ops", "Makespan", "Time(ms)", "Coll", "Pauses", "Safe")
	fmt.Fprintln(w, strings.Repeat("-", 104))
	for _, r := range rows {
		if !r.Success {
			fmt.Fprintf(w, "%-24s %-16s FAILED: %s\n", r.Scenario, r.Method, r.Error)
			continue
		}
		safe := "-"
		if r.SafeMakespan > 0 {
			safe = fmt.Sprintf("%.3f", r.SafeMakespan)
		}
		if _, err := fmt.Fprintf(w, "%-24s %-16s %6d %5d %10.3f %11.2f %6d %6d %10s\n",
			r.Scenario, r.Method, r.Robots, r.Operations, r.Makespan, r.RuntimeMs,
			r.Collisions, r.PausesInserted, safe); err != nil {
			return err
		}
	}
	return nil
}

func writeBenchCSV(path string, rows []store.BenchmarkRun) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer multierr.AppendInvoke(&err, multierr.Close(file))

	writer := csv.NewWriter(file)

	header := []string{
		"run_id", "scenario", "method", "robots", "operations",
		"makespan", "runtime_ms", "collisions", "pauses_inserted", "safe_makespan",
		"success", "error",
	}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, r := range rows {
		row := []string{
			r.RunID, r.Scenario, r.Method,
			fmt.Sprintf("%d", r.Robots), fmt.Sprintf("%d", r.Operations),
			fmt.Sprintf("%.6f", r.Makespan), fmt.Sprintf("%.3f", r.RuntimeMs),
			fmt.Sprintf("%d", r.Collisions), fmt.Sprintf("%d", r.PausesInserted),
			fmt.Sprintf("%.6f", r.SafeMakespan),
			fmt.Sprintf("%t", r.Success), r.Error,
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

func runBenchStats(cmd *cobra.Command, app *app) (err error) {
	s, err := app.start(cmd)
	if err != nil {
		return err
	}
	defer multierr.AppendInvoke(&err, multierr.Invoke(s.close))

	st, err := store.Open(s.cfg.Store.Path, s.log)
	if err != nil {
		return err
	}
	defer multierr.AppendInvoke(&err, multierr.Close(st))

	stats, err := st.Stats(cmd.Context())
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "%-16s %6s %14s %14s\n", "Method", "Runs", "Avg Makespan", "Avg Time(ms)")
	fmt.Fprintln(w, strings.Repeat("-", 53))
	for _, m := range stats {
		if _, err := fmt.Fprintf(w, "%-16s %6d %14.3f %14.2f\n", m.Method, m.Runs, m.MeanMakespan, m.MeanRuntime); err != nil {
			return err
		}
	}
	return nil
}
