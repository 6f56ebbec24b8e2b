package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elektrokombinacija/fleetplan/internal/algo"
	"github.com/elektrokombinacija/fleetplan/internal/core"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load(nil, "")
	require.NoError(t, err)
	assert.Equal(t, Default(), *cfg)
	assert.Equal(t, algo.DefaultParams(), cfg.AssignParams())
}

func TestLoadFileEnvAndFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fleetplan.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[assign]
method = "genetic"
generations = 7
time_budget = 1.5

[motion]
workers = 3

[collision]
time_step = 0.05
`), 0o600))
	t.Setenv("FLEETPLAN_SAFETY_ENABLED", "true")
	t.Setenv("FLEETPLAN_ASSIGN_SEED", "9")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Float64("time-step", 0.1, "")
	require.NoError(t, flags.Parse([]string{"--time-step", "0.2"}))
	v := viper.New()
	require.NoError(t, v.BindPFlag("collision.time_step", flags.Lookup("time-step")))

	cfg, err := Load(v, path)
	require.NoError(t, err)
	assert.Equal(t, algo.MethodGenetic, cfg.Assign.Method)
	assert.Equal(t, 7, cfg.Assign.Generations)
	assert.Equal(t, int64(9), cfg.Assign.Seed)
	assert.True(t, cfg.Safety.Enabled)
	assert.Equal(t, 3, cfg.Motion.Workers)
	assert.Equal(t, 0.2, cfg.Collision.TimeStep, "flags override the file")
	assert.Equal(t, 50, cfg.Assign.PopulationSize, "unset keys keep defaults")
	assert.Equal(t, 1500*time.Millisecond, cfg.AssignParams().TimeBudget)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(nil, filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := Default()
	cfg.Assign.Method = "simulated_annealing"
	cfg.Assign.CrossoverRate = 1.5
	cfg.Collision.TimeStep = 0
	cfg.Log.Mode = "loud"

	err := cfg.Validate()
	require.ErrorIs(t, err, core.ErrInvalidParameter)
	for _, want := range []string{"assign.method", "assign.crossover_rate", "collision.time_step", "log.mode"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestValidateRejectsNegativeWorkers(t *testing.T) {
	cfg := Default()
	cfg.Motion.Workers = -1
	assert.ErrorIs(t, cfg.Validate(), core.ErrInvalidParameter)
}

func TestWriteTOMLLoadsBack(t *testing.T) {
	cfg := Default()
	cfg.Assign.Method = algo.MethodDistanceBased
	cfg.Safety.Enabled = true

	var buf bytes.Buffer
	require.NoError(t, WriteTOML(&buf, &cfg))
	assert.Contains(t, buf.String(), "[assign]")
	assert.Contains(t, buf.String(), "population_size = 50")

	path := filepath.Join(t.TempDir(), "fleetplan.toml")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))
	loaded, err := Load(nil, path)
	require.NoError(t, err)
	assert.Equal(t, cfg, *loaded)
}
