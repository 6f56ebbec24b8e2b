package sim

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elektrokombinacija/fleetplan/internal/core"
)

func wp(t, x float64) core.Waypoint {
	return core.Waypoint{T: t, Pos: core.Pos{X: x}}
}

func testPlan() *core.Plan {
	p := core.NewPlan("test", 0.5)
	p.Robots = []core.RobotPlan{
		{
			RobotID:    0,
			Trajectory: core.Trajectory{wp(0, 0), wp(2, 2)},
			Timings:    []core.OperationTiming{{PlaceArrival: 2}},
		},
		{RobotID: 1, Base: core.Pos{X: 5}, Trajectory: core.Trajectory{wp(0, 5), wp(4, 5)}},
	}
	p.Objects = []core.Object{{ID: 0, Initial: core.Pos{X: 1}, CarryIntervals: []core.CarryInterval{{Robot: 0, Start: 1, End: 2}}}}
	p.ComputeMakespan()
	return p
}

func TestSimulatorMetrics(t *testing.T) {
	var frames []Frame
	cfg := DefaultConfig()
	cfg.Plan = testPlan()
	cfg.TimeStep = 0.5
	cfg.OnFrame = func(f Frame) { frames = append(frames, f) }

	m, err := NewSimulator(cfg).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 9, m.Steps)
	require.Len(t, frames, 9)
	assert.Equal(t, 4.0, frames[8].Time)
	assert.Equal(t, 4.0, m.SimulatedTime)

	assert.InDelta(t, 2.0, m.MovingTime[0], 1e-9)
	assert.InDelta(t, 2.0, m.IdleTime[0], 1e-9)
	assert.InDelta(t, 4.0, m.IdleTime[1], 1e-9)
	assert.InDelta(t, 0.25, m.Utilization, 1e-9)
	assert.InDelta(t, 2.0, m.PathLength[0], 1e-12)

	// Closest approach is 3 at t >= 2 against a required 0.5.
	assert.InDelta(t, 2.5, m.MinClearanceMargin, 1e-9)
	assert.Zero(t, m.ViolatingSamples)
	assert.Equal(t, 1, m.OperationsTotal)
	assert.Equal(t, 1, m.OperationsCompleted)

	mid := frames[3] // t = 1.5
	require.Len(t, mid.Objects, 1)
	assert.True(t, mid.Objects[0].Carried)
	require.NotNil(t, mid.Objects[0].Carrier)
	assert.Equal(t, core.RobotID(0), *mid.Objects[0].Carrier)
	assert.Nil(t, frames[0].Objects[0].Carrier)

	data, err := json.Marshal(mid.Objects[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), `"carrier":0`)
	assert.InDelta(t, 1.5, mid.Objects[0].Pos.X, 1e-9)
	assert.True(t, mid.Robots[0].Moving)
	assert.False(t, mid.Robots[1].Moving)
}

func TestSimulatorCountsViolations(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Plan = testPlan()
	cfg.Plan.SafeDist = 4
	cfg.Obstacles = []*core.Obstacle{{Kind: core.ObstacleSphere, Center: core.Pos{X: 2}, Radius: 0.5}}

	m, err := NewSimulator(cfg).Run(context.Background())
	require.NoError(t, err)
	assert.Greater(t, m.PairViolations, 0)
	assert.Greater(t, m.ObstacleViolations, 0)
	assert.Greater(t, m.ViolatingSamples, 0)
	assert.Less(t, m.MinClearanceMargin, 0.0)
}

func TestSimulatorRejectsBadConfig(t *testing.T) {
	_, err := NewSimulator(DefaultConfig()).Run(context.Background())
	assert.ErrorIs(t, err, core.ErrInvalidParameter)

	cfg := DefaultConfig()
	cfg.Plan = testPlan()
	cfg.TimeStep = 0
	_, err = NewSimulator(cfg).Run(context.Background())
	assert.ErrorIs(t, err, core.ErrInvalidParameter)

	cfg = DefaultConfig()
	cfg.Plan = testPlan()
	cfg.TimeStep = 1e-300
	frames := 0
	cfg.OnFrame = func(Frame) { frames++ }
	_, err = NewSimulator(cfg).Run(context.Background())
	assert.ErrorIs(t, err, core.ErrInvalidParameter)
	assert.Zero(t, frames)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := RunSimulation(ctx, SimulationConfig{Plan: testPlan(), TimeStep: 0.1})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, res.Success)
}

func TestExportMetrics(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Plan = testPlan()
	s := NewSimulator(cfg)
	_, err := s.Run(context.Background())
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "metrics.json")
	require.NoError(t, s.ExportMetrics(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, 4.0, decoded["makespan"])
}
