// Package config loads fleetplan settings from file, environment and flags.
package config

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
	"go.uber.org/multierr"

	"github.com/elektrokombinacija/fleetplan/internal/algo"
	"github.com/elektrokombinacija/fleetplan/internal/core"
	"github.com/elektrokombinacija/fleetplan/internal/motion"
)

const (
	configName = "fleetplan"
	envPrefix  = "FLEETPLAN"
	configDir  = ".config/fleetplan"
)

// Config is the effective fleetplan configuration.
type Config struct {
	Assign    AssignConfig    `mapstructure:"assign" toml:"assign"`
	Motion    MotionConfig    `mapstructure:"motion" toml:"motion"`
	Collision CollisionConfig `mapstructure:"collision" toml:"collision"`
	Safety    SafetyConfig    `mapstructure:"safety" toml:"safety"`
	Log       LogConfig       `mapstructure:"log" toml:"log"`
	Metrics   MetricsConfig   `mapstructure:"metrics" toml:"metrics"`
	Store     StoreConfig     `mapstructure:"store" toml:"store"`
}

type AssignConfig struct {
	Method         string  `mapstructure:"method" toml:"method"`
	PopulationSize int     `mapstructure:"population_size" toml:"population_size"`
	Generations    int     `mapstructure:"generations" toml:"generations"`
	CrossoverRate  float64 `mapstructure:"crossover_rate" toml:"crossover_rate"`
	MutationRate   float64 `mapstructure:"mutation_rate" toml:"mutation_rate"`
	TournamentSize int     `mapstructure:"tournament_size" toml:"tournament_size"`
	Seed           int64   `mapstructure:"seed" toml:"seed"`
	Workers        int     `mapstructure:"workers" toml:"workers"`         // 0 = unlimited
	TimeBudget     float64 `mapstructure:"time_budget" toml:"time_budget"` // Seconds; 0 = unlimited
}

type MotionConfig struct {
	SegmentPoints int `mapstructure:"segment_points" toml:"segment_points"` // Waypoints per segment, endpoints included
	Workers       int `mapstructure:"workers" toml:"workers"`               // 0 = unlimited
}

type CollisionConfig struct {
	TimeStep   float64 `mapstructure:"time_step" toml:"time_step"`
	MaxSamples int     `mapstructure:"max_samples" toml:"max_samples"`
	Workers    int     `mapstructure:"workers" toml:"workers"`
}

type SafetyConfig struct {
	Enabled       bool    `mapstructure:"enabled" toml:"enabled"`
	PauseDuration float64 `mapstructure:"pause_duration" toml:"pause_duration"`
}

type LogConfig struct {
	Mode string `mapstructure:"mode" toml:"mode"` // dev or prod
}

type MetricsConfig struct {
	Path string `mapstructure:"path" toml:"path"` // Prometheus textfile; empty disables export
}

type StoreConfig struct {
	Path string `mapstructure:"path" toml:"path"`
}

// Default returns the built-in configuration.
func Default() Config {
	params := algo.DefaultParams()
	return Config{
		Assign: AssignConfig{
			Method:         algo.MethodBalanced,
			PopulationSize: params.PopulationSize,
			Generations:    params.Generations,
			CrossoverRate:  params.CrossoverRate,
			MutationRate:   params.MutationRate,
			TournamentSize: params.TournamentSize,
			Seed:           params.Seed,
		},
		Motion:    MotionConfig{SegmentPoints: motion.DefaultSegmentPoints},
		Collision: CollisionConfig{TimeStep: 0.1, MaxSamples: 200000},
		Safety:    SafetyConfig{PauseDuration: 1.0},
		Log:       LogConfig{Mode: "dev"},
		Store:     StoreConfig{Path: "fleetplan-bench.db"},
	}
}

// SetDefaults registers every key with its default so environment variables
// and bound flags resolve during Unmarshal.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("assign.method", d.Assign.Method)
	v.SetDefault("assign.population_size", d.Assign.PopulationSize)
	v.SetDefault("assign.generations", d.Assign.Generations)
	v.SetDefault("assign.crossover_rate", d.Assign.CrossoverRate)
	v.SetDefault("assign.mutation_rate", d.Assign.MutationRate)
	v.SetDefault("assign.tournament_size", d.Assign.TournamentSize)
	v.SetDefault("assign.seed", d.Assign.Seed)
	v.SetDefault("assign.workers", d.Assign.Workers)
	v.SetDefault("assign.time_budget", d.Assign.TimeBudget)
	v.SetDefault("motion.segment_points", d.Motion.SegmentPoints)
	v.SetDefault("motion.workers", d.Motion.Workers)
	v.SetDefault("collision.time_step", d.Collision.TimeStep)
	v.SetDefault("collision.max_samples", d.Collision.MaxSamples)
	v.SetDefault("collision.workers", d.Collision.Workers)
	v.SetDefault("safety.enabled", d.Safety.Enabled)
	v.SetDefault("safety.pause_duration", d.Safety.PauseDuration)
	v.SetDefault("log.mode", d.Log.Mode)
	v.SetDefault("metrics.path", d.Metrics.Path)
	v.SetDefault("store.path", d.Store.Path)
}

// Load resolves the configuration from path (or the standard search paths
// when empty), FLEETPLAN_* environment variables and any flags already bound
// to v. A missing config file is not an error unless path names it.
func Load(v *viper.Viper, path string) (*Config, error) {
	if v == nil {
		v = viper.New()
	}
	SetDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(configName)
		v.AddConfigPath(".")
		if homeDir, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(homeDir, configDir))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports every out-of-range value at once.
func (c *Config) Validate() error {
	var err error
	rate := func(key string, v float64) {
		if !(v >= 0 && v <= 1) {
			err = multierr.Append(err, fmt.Errorf("%s %v outside [0, 1]", key, v))
		}
	}
	positive := func(key string, v float64) {
		if !(v > 0) || math.IsInf(v, 0) {
			err = multierr.Append(err, fmt.Errorf("%s %v must be positive", key, v))
		}
	}

	if _, e := algo.New(c.Assign.Method, algo.DefaultParams(), nil); e != nil {
		err = multierr.Append(err, fmt.Errorf("assign.method: %w", e))
	}
	positive("assign.population_size", float64(c.Assign.PopulationSize))
	if c.Assign.Generations < 0 {
		err = multierr.Append(err, fmt.Errorf("assign.generations %d is negative", c.Assign.Generations))
	}
	rate("assign.crossover_rate", c.Assign.CrossoverRate)
	rate("assign.mutation_rate", c.Assign.MutationRate)
	positive("assign.tournament_size", float64(c.Assign.TournamentSize))
	if c.Assign.Workers < 0 || c.Motion.Workers < 0 || c.Collision.Workers < 0 {
		err = multierr.Append(err, errors.New("worker counts must not be negative"))
	}
	if c.Assign.TimeBudget < 0 {
		err = multierr.Append(err, fmt.Errorf("assign.time_budget %v is negative", c.Assign.TimeBudget))
	}
	if c.Motion.SegmentPoints < 2 {
		err = multierr.Append(err, fmt.Errorf("motion.segment_points %d must be at least 2", c.Motion.SegmentPoints))
	}
	positive("collision.time_step", c.Collision.TimeStep)
	positive("collision.max_samples", float64(c.Collision.MaxSamples))
	positive("safety.pause_duration", c.Safety.PauseDuration)
	switch strings.ToLower(c.Log.Mode) {
	case "dev", "development", "prod", "production":
	default:
		err = multierr.Append(err, fmt.Errorf("log.mode %q is not dev or prod", c.Log.Mode))
	}

	if err != nil {
		return fmt.Errorf("%w: config: %w", core.ErrInvalidParameter, err)
	}
	return nil
}

// AssignParams converts the assign section to algorithm parameters.
func (c *Config) AssignParams() algo.Params {
	return algo.Params{
		PopulationSize: c.Assign.PopulationSize,
		Generations:    c.Assign.Generations,
		CrossoverRate:  c.Assign.CrossoverRate,
		MutationRate:   c.Assign.MutationRate,
		TournamentSize: c.Assign.TournamentSize,
		Seed:           c.Assign.Seed,
		Workers:        c.Assign.Workers,
		TimeBudget:     time.Duration(c.Assign.TimeBudget * float64(time.Second)),
	}
}

// WriteTOML encodes c as TOML.
func WriteTOML(w io.Writer, c *Config) error {
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	_, err = w.Write(data)
	return err
}
