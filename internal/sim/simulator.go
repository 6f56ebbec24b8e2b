// Package sim plays back fleet plans on a fixed clock.
//
// Playback produces one frame per step (robot TCP and payload positions) and
// collects the metrics used to compare plans:
// - clearance margin between robots and to static obstacles
// - per-robot path length, idle time and utilisation
// - completed operations
package sim

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sync"
	"time"

	"github.com/elektrokombinacija/fleetplan/internal/core"
)

// minMove is the per-step displacement below which a robot counts as idle.
const minMove = 1e-9

// SimulationConfig configures a playback run
type SimulationConfig struct {
	// Plan to play back
	Plan *core.Plan

	// Static obstacles checked at every step
	Obstacles []*core.Obstacle

	// Time step for playback (seconds)
	TimeStep float64

	// Simulated duration; 0 plays until the plan's makespan
	Duration float64

	// OnFrame receives every frame in time order; nil discards frames
	OnFrame func(Frame)
}

// DefaultConfig returns default playback configuration
func DefaultConfig() SimulationConfig {
	return SimulationConfig{
		TimeStep: 0.1, // 100ms
	}
}

// RobotState is one robot's TCP at a frame.
type RobotState struct {
	ID     core.RobotID `json:"id"`
	Pos    core.Pos     `json:"pos"`
	Moving bool         `json:"moving"`
}

// ObjectState is one payload at a frame.
type ObjectState struct {
	ID      int           `json:"id"`
	Pos     core.Pos      `json:"pos"`
	Carried bool          `json:"carried"`
	Carrier *core.RobotID `json:"carrier,omitempty"`
}

// Frame is the fleet state at one playback instant.
type Frame struct {
	Time    float64       `json:"t"`
	Robots  []RobotState  `json:"robots"`
	Objects []ObjectState `json:"objects,omitempty"`
}

// SimulationMetrics collects metrics during playback
type SimulationMetrics struct {
	// Timing
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
	SimulatedTime float64   `json:"simulated_time"`
	Steps         int       `json:"steps"`
	Makespan      float64   `json:"makespan"`

	// Clearance; margin is distance minus required distance, negative on violation
	MinClearanceMargin float64 `json:"min_clearance_margin"`
	ViolatingSamples   int     `json:"violating_samples"`
	PairViolations     int     `json:"pair_violations"`
	ObstacleViolations int     `json:"obstacle_violations"`

	// Per robot
	PathLength  map[core.RobotID]float64 `json:"path_length"`
	IdleTime    map[core.RobotID]float64 `json:"idle_time"`
	MovingTime  map[core.RobotID]float64 `json:"moving_time"`
	Utilization float64                  `json:"utilization"` // Mean moving share of simulated time

	// Operations
	OperationsTotal     int `json:"operations_total"`
	OperationsCompleted int `json:"operations_completed"`
}

// Simulator plays back a plan
type Simulator struct {
	mu sync.Mutex

	config SimulationConfig

	// State
	currentTime float64
	positions   []core.Pos

	// Metrics
	metrics SimulationMetrics
}

// NewSimulator creates a new playback instance
func NewSimulator(config SimulationConfig) *Simulator {
	return &Simulator{
		config: config,
		metrics: SimulationMetrics{
			MinClearanceMargin: math.Inf(1),
			PathLength:         make(map[core.RobotID]float64),
			IdleTime:           make(map[core.RobotID]float64),
			MovingTime:         make(map[core.RobotID]float64),
		},
	}
}

// Run executes the playback
func (s *Simulator) Run(ctx context.Context) (*SimulationMetrics, error) {
	plan := s.config.Plan
	if plan == nil {
		return nil, fmt.Errorf("%w: no plan to simulate", core.ErrInvalidParameter)
	}
	step := s.config.TimeStep
	if !(step > 0) || math.IsInf(step, 0) {
		return nil, fmt.Errorf("%w: time step %v must be positive", core.ErrInvalidParameter, step)
	}
	duration := s.config.Duration
	if duration <= 0 {
		duration = plan.Makespan
	}
	n := math.Ceil(duration/step - 1e-9)
	if math.IsNaN(n) || n >= math.MaxInt32 {
		return nil, fmt.Errorf("%w: time step %v over %vs gives too many frames", core.ErrInvalidParameter, step, duration)
	}

	s.mu.Lock()
	s.metrics.StartTime = time.Now()
	s.metrics.Makespan = plan.Makespan
	for _, rp := range plan.Robots {
		s.metrics.PathLength[rp.RobotID] = rp.Trajectory.Length()
		s.metrics.OperationsTotal += len(rp.Timings)
	}
	s.mu.Unlock()

	steps := int(n)
	for i := 0; i <= steps; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		t := math.Min(float64(i)*step, duration)
		frame := s.step(t)
		if s.config.OnFrame != nil {
			s.config.OnFrame(frame)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics.EndTime = time.Now()
	s.metrics.SimulatedTime = s.currentTime
	s.finish()
	out := s.metrics
	return &out, nil
}

// step advances playback to time t
func (s *Simulator) step(t float64) Frame {
	s.mu.Lock()
	defer s.mu.Unlock()

	plan := s.config.Plan
	dt := t - s.currentTime
	frame := Frame{Time: t, Robots: make([]RobotState, len(plan.Robots))}

	first := s.positions == nil
	if first {
		s.positions = make([]core.Pos, len(plan.Robots))
	}
	for i, rp := range plan.Robots {
		pos, ok := rp.Trajectory.PositionAt(t)
		if !ok {
			pos = rp.Base
		}
		moving := !first && core.Distance(pos, s.positions[i]) > minMove
		if !first {
			if moving {
				s.metrics.MovingTime[rp.RobotID] += dt
			} else {
				s.metrics.IdleTime[rp.RobotID] += dt
			}
		}
		s.positions[i] = pos
		frame.Robots[i] = RobotState{ID: rp.RobotID, Pos: pos, Moving: moving}
	}

	s.checkClearance()

	for _, obj := range plan.Objects {
		state := ObjectState{ID: obj.ID, Pos: obj.PositionAt(plan, t)}
		if rid, ok := obj.CarrierAt(t); ok {
			state.Carried = true
			state.Carrier = &rid
		}
		frame.Objects = append(frame.Objects, state)
	}

	s.currentTime = t
	s.metrics.Steps++
	return frame
}

// checkClearance measures robot-robot and robot-obstacle margins at the
// current positions
func (s *Simulator) checkClearance() {
	plan := s.config.Plan
	violated := false

	for i := 0; i < len(plan.Robots); i++ {
		for j := i + 1; j < len(plan.Robots); j++ {
			required := plan.SafeDist + plan.Robots[i].Clearance + plan.Robots[j].Clearance
			margin := core.Distance(s.positions[i], s.positions[j]) - required
			s.metrics.MinClearanceMargin = math.Min(s.metrics.MinClearanceMargin, margin)
			if margin < 0 {
				s.metrics.PairViolations++
				violated = true
			}
		}
		for _, o := range s.config.Obstacles {
			required := plan.Robots[i].Clearance + o.EffectiveRadius()
			margin := core.Distance(s.positions[i], o.Center) - required
			s.metrics.MinClearanceMargin = math.Min(s.metrics.MinClearanceMargin, margin)
			if margin < 0 {
				s.metrics.ObstacleViolations++
				violated = true
			}
		}
	}

	if violated {
		s.metrics.ViolatingSamples++
	}
}

// finish derives summary metrics; caller holds mu
func (s *Simulator) finish() {
	plan := s.config.Plan
	for _, rp := range plan.Robots {
		for _, tm := range rp.Timings {
			if tm.PlaceArrival <= s.currentTime+core.TimeTolerance {
				s.metrics.OperationsCompleted++
			}
		}
	}

	if len(plan.Robots) > 0 && s.currentTime > 0 {
		total := 0.0
		for _, rp := range plan.Robots {
			total += s.metrics.MovingTime[rp.RobotID] / s.currentTime
		}
		s.metrics.Utilization = total / float64(len(plan.Robots))
	}
	if math.IsInf(s.metrics.MinClearanceMargin, 1) {
		s.metrics.MinClearanceMargin = 0
	}
}

// Metrics returns current playback metrics
func (s *Simulator) Metrics() SimulationMetrics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.metrics
}

// ExportMetrics writes metrics to a JSON file
func (s *Simulator) ExportMetrics(path string) error {
	s.mu.Lock()
	metrics := s.metrics
	s.mu.Unlock()

	data, err := json.MarshalIndent(metrics, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// SimulationResult is the final output of a playback run
type SimulationResult struct {
	Metrics SimulationMetrics `json:"metrics"`
	Success bool              `json:"success"`
	Error   string            `json:"error,omitempty"`
}

// RunSimulation is a convenience function to run a complete playback
func RunSimulation(ctx context.Context, config SimulationConfig) (*SimulationResult, error) {
	sim := NewSimulator(config)

	metrics, err := sim.Run(ctx)

	result := &SimulationResult{
		Success: err == nil,
	}

	if err != nil {
		result.Error = err.Error()
	}

	if metrics != nil {
		result.Metrics = *metrics
	}

	return result, err
}
