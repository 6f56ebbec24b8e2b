package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/elektrokombinacija/fleetplan/internal/scenario"
	"github.com/spf13/cobra"
)

type genOptions struct {
	params scenario.GenerateParams
	out    string
	dir    string
	count  int
	format string
}

func newGenCmd() *cobra.Command {
	opts := genOptions{params: scenario.DefaultGenerateParams(), count: 1, format: string(scenario.FormatYAML)}

	cmd := &cobra.Command{
		Use:   "gen",
		Short: "Generate seeded random scenarios",
		Long:  "gen places robots on a ring and draws pick and place points, hold times and obstacles from a seeded source. With --count N it writes N scenarios with consecutive seeds into --dir.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runGen(cmd, opts)
		},
	}

	p := &opts.params
	cmd.Flags().Int64Var(&p.Seed, "seed", p.Seed, "Random seed")
	cmd.Flags().IntVar(&p.Robots, "robots", p.Robots, "Number of robots")
	cmd.Flags().IntVar(&p.Operations, "operations", p.Operations, "Number of operations")
	cmd.Flags().IntVar(&p.Obstacles, "obstacles", p.Obstacles, "Number of static obstacles")
	cmd.Flags().Float64Var(&p.RingRadius, "ring-radius", p.RingRadius, "Radius of the circle robot bases sit on")
	cmd.Flags().Float64Var(&p.Extent, "extent", p.Extent, "Half-width of the square pick and place points lie in")
	cmd.Flags().Float64Var(&p.SafeDist, "safe-dist", p.SafeDist, "Scenario safe distance")
	cmd.Flags().Float64Var(&p.MaxVelocity, "max-velocity", p.MaxVelocity, "Per-joint max velocity")
	cmd.Flags().Float64Var(&p.MaxAccel, "max-accel", p.MaxAccel, "Per-joint max acceleration")
	cmd.Flags().Float64Var(&p.Clearance, "clearance", p.Clearance, "Tool clearance radius")
	cmd.Flags().Float64Var(&p.HoldMean, "hold-mean", p.HoldMean, "Mean hold time in seconds")
	cmd.Flags().Float64Var(&p.HoldStdDev, "hold-stddev", p.HoldStdDev, "Hold time standard deviation")
	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "Scenario file (.json or .yaml); stdout when empty")
	cmd.Flags().StringVar(&opts.dir, "dir", "", "Output directory for --count > 1")
	cmd.Flags().IntVar(&opts.count, "count", opts.count, "Number of scenarios to generate")
	cmd.Flags().StringVar(&opts.format, "format", opts.format, "Format for --dir output and stdout: json or yaml")

	return cmd
}

func runGen(cmd *cobra.Command, opts genOptions) error {
	format := scenario.Format(opts.format)
	if format != scenario.FormatJSON && format != scenario.FormatYAML {
		return fmt.Errorf("unsupported scenario format %q", opts.format)
	}

	if opts.count <= 1 {
		sc, err := scenario.Generate(opts.params)
		if err != nil {
			return err
		}
		if opts.out == "" {
			return scenario.Encode(cmd.OutOrStdout(), sc, format)
		}
		if err := scenario.Save(opts.out, sc); err != nil {
			return err
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "Generated: %s\n", opts.out)
		return err
	}

	if opts.dir == "" {
		return fmt.Errorf("--dir is required with --count %d", opts.count)
	}
	if err := os.MkdirAll(opts.dir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	params := opts.params
	for i := 0; i < opts.count; i++ {
		params.Seed = opts.params.Seed + int64(i)
		sc, err := scenario.Generate(params)
		if err != nil {
			return err
		}
		path := filepath.Join(opts.dir, sc.Name+"."+string(format))
		if err := scenario.Save(path, sc); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "Generated: %s\n", path); err != nil {
			return err
		}
	}
	return nil
}
