package cmd

import (
	"fmt"
	"time"

	"github.com/elektrokombinacija/fleetplan/internal/algo"
	"github.com/elektrokombinacija/fleetplan/internal/collision"
	"github.com/elektrokombinacija/fleetplan/internal/config"
	"github.com/elektrokombinacija/fleetplan/internal/logger"
	"github.com/elektrokombinacija/fleetplan/internal/metrics"
	"github.com/elektrokombinacija/fleetplan/internal/motion"
	"github.com/elektrokombinacija/fleetplan/internal/observer"
	"github.com/elektrokombinacija/fleetplan/internal/planner"
	"github.com/elektrokombinacija/fleetplan/internal/safety"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type app struct {
	configPath string
	newRunID   func() string
	now        func() time.Time
}

func wireApp() *app {
	metrics.RegisterDefault()
	return &app{
		newRunID: uuid.NewString,
		now:      time.Now,
	}
}

// flagKeys maps command flags to the config keys they override.
var flagKeys = map[string]string{
	"method":    "assign.method",
	"seed":      "assign.seed",
	"workers":   "assign.workers",
	"budget":    "assign.time_budget",
	"time-step": "collision.time_step",
	"safety":    "safety.enabled",
	"pause":     "safety.pause_duration",
	"log-mode":  "log.mode",
	"metrics":   "metrics.path",
	"db":        "store.path",
}

// session is the per-invocation wiring: effective config, a logger tagged
// with the run id, and the observers handed to the planning packages.
type session struct {
	cfg   *config.Config
	log   *logger.Logger
	obs   observer.Observer
	runID string
}

func (a *app) start(cmd *cobra.Command) (*session, error) {
	v := viper.New()
	for flag, key := range flagKeys {
		if f := cmd.Flags().Lookup(flag); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("bind flag %s: %w", flag, err)
			}
		}
	}

	cfg, err := config.Load(v, a.configPath)
	if err != nil {
		return nil, err
	}

	logg, err := logger.New(cfg.Log.Mode)
	if err != nil {
		return nil, fmt.Errorf("wire logger: %w", err)
	}
	runID := a.newRunID()
	logg = logg.With("run_id", runID, "command", cmd.Name())

	return &session{
		cfg:   cfg,
		log:   logg,
		obs:   observer.Multi{observer.NewLog(logg), observer.NewMetrics()},
		runID: runID,
	}, nil
}

func (s *session) close() error {
	defer s.log.Sync()
	if s.cfg.Metrics.Path == "" {
		return nil
	}
	if err := metrics.WriteTextfile(s.cfg.Metrics.Path); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	s.log.Debug("metrics written", "path", s.cfg.Metrics.Path)
	return nil
}

func (s *session) detector() *collision.Detector {
	det := collision.NewDetector(s.cfg.Collision.TimeStep, s.obs)
	det.MaxSamples = s.cfg.Collision.MaxSamples
	det.Workers = s.cfg.Collision.Workers
	return det
}

func (s *session) planner() *motion.Planner {
	p := motion.NewPlanner(s.cfg.Motion.SegmentPoints, s.obs)
	p.Workers = s.cfg.Motion.Workers
	return p
}

func (s *session) assembler(method string) (*planner.Assembler, error) {
	assigner, err := algo.New(method, s.cfg.AssignParams(), s.obs)
	if err != nil {
		return nil, err
	}
	asm := planner.NewAssembler(assigner, s.planner(), nil)
	if s.cfg.Safety.Enabled {
		asm.Enforcer = safety.NewEnforcer(s.cfg.Collision.TimeStep, s.cfg.Safety.PauseDuration, s.detector(), s.obs)
	}
	return asm, nil
}
