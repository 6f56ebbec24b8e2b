package collision

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elektrokombinacija/fleetplan/internal/core"
)

func wp(t, x, y, z float64) core.Waypoint {
	return core.Waypoint{T: t, Pos: core.Pos{X: x, Y: y, Z: z}}
}

// crossingPlan has two robots swapping places along the x axis over [0, 2].
func crossingPlan() *core.Plan {
	p := core.NewPlan("test", 0.3)
	p.Robots = []core.RobotPlan{
		{RobotID: 0, Clearance: 0.1, Trajectory: core.Trajectory{wp(0, 0, 0, 0), wp(2, 2, 0, 0)}},
		{RobotID: 1, Clearance: 0.1, Trajectory: core.Trajectory{wp(0, 2, 0, 0), wp(2, 0, 0, 0)}},
	}
	p.ComputeMakespan()
	return p
}

func TestDetectCrossingRobots(t *testing.T) {
	got, err := NewDetector(0.1, nil).Detect(context.Background(), crossingPlan())
	require.NoError(t, err)

	// Distance is |2-2t|; the 0.5 threshold is violated for t in (0.75, 1.25).
	require.Len(t, got, 5)
	wantTimes := []float64{0.8, 0.9, 1.0, 1.1, 1.2}
	for i, c := range got {
		assert.InDelta(t, wantTimes[i], c.Time, 1e-9)
		assert.Equal(t, core.RobotID(0), c.RobotA)
		assert.Equal(t, core.RobotID(1), c.RobotB)
		assert.InDelta(t, 0.5, c.MinDistance, 1e-12)
		assert.InDelta(t, abs(2-2*c.Time), c.Distance, 1e-9)
		assert.False(t, c.IsObstacle())
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func TestDetectIsSymmetric(t *testing.T) {
	forward := crossingPlan()
	swapped := crossingPlan()
	swapped.Robots[0], swapped.Robots[1] = swapped.Robots[1], swapped.Robots[0]

	d := NewDetector(0.1, nil)
	a, err := d.Detect(context.Background(), forward)
	require.NoError(t, err)
	b, err := d.Detect(context.Background(), swapped)
	require.NoError(t, err)

	require.Len(t, b, len(a))
	for i := range a {
		assert.Equal(t, a[i].Time, b[i].Time)
		assert.InDelta(t, a[i].Distance, b[i].Distance, 1e-12)
		assert.Equal(t, a[i].MinDistance, b[i].MinDistance)
		assert.Equal(t, a[i].RobotA, b[i].RobotB)
	}

	type key struct {
		t    float64
		a, b core.RobotID
	}
	seen := make(map[key]bool)
	for _, c := range a {
		lo, hi := c.RobotA, c.RobotB
		if lo > hi {
			lo, hi = hi, lo
		}
		k := key{c.Time, lo, hi}
		assert.False(t, seen[k], "pair reported twice at t=%v", c.Time)
		seen[k] = true
	}
}

func TestDetectTrivialInputs(t *testing.T) {
	d := NewDetector(0.1, nil)

	single := core.NewPlan("test", 0.5)
	single.Robots = []core.RobotPlan{{RobotID: 0, Trajectory: core.Trajectory{wp(0, 0, 0, 0)}}}
	got, err := d.Detect(context.Background(), single)
	require.NoError(t, err)
	assert.Empty(t, got)

	empty := core.NewPlan("test", 0.5)
	empty.Robots = []core.RobotPlan{{RobotID: 0}, {RobotID: 1}}
	got, err = d.Detect(context.Background(), empty)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = d.Detect(context.Background(), core.NewPlan("test", 0.5))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDetectRejectsBadParameters(t *testing.T) {
	for _, step := range []float64{0, -0.1} {
		_, err := NewDetector(step, nil).Detect(context.Background(), crossingPlan())
		assert.ErrorIs(t, err, core.ErrInvalidParameter)
	}

	d := NewDetector(0.001, nil)
	d.MaxSamples = 100
	_, err := d.Detect(context.Background(), crossingPlan())
	assert.ErrorIs(t, err, core.ErrInvalidParameter)
}

func TestDetectRejectsOversizedSampleGrid(t *testing.T) {
	huge := core.NewPlan("test", 0.3)
	huge.Robots = []core.RobotPlan{
		{RobotID: 0, Trajectory: core.Trajectory{wp(0, 0, 0, 0), wp(1e18, 1, 0, 0)}},
		{RobotID: 1, Trajectory: core.Trajectory{wp(0, 5, 0, 0), wp(1e18, 6, 0, 0)}},
	}
	huge.ComputeMakespan()

	tests := []struct {
		name       string
		step       float64
		maxSamples int
		plan       *core.Plan
	}{
		{name: "tiny step", step: 1e-300, maxSamples: DefaultMaxSamples, plan: crossingPlan()},
		{name: "tiny step unlimited", step: 1e-300, maxSamples: 0, plan: crossingPlan()},
		{name: "long span", step: 0.1, maxSamples: DefaultMaxSamples, plan: huge},
		{name: "long span unlimited", step: 0.1, maxSamples: 0, plan: huge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDetector(tt.step, nil)
			d.MaxSamples = tt.maxSamples
			var err error
			require.NotPanics(t, func() {
				_, err = d.Detect(context.Background(), tt.plan)
			})
			assert.ErrorIs(t, err, core.ErrInvalidParameter)
		})
	}
}

func TestSampleTimesFitExactBudget(t *testing.T) {
	d := NewDetector(0.1, nil)
	d.MaxSamples = 4

	times, err := d.sampleTimes(0, 0.3)
	require.NoError(t, err)
	assert.Len(t, times, 4)

	_, err = d.sampleTimes(0, 0.35)
	assert.ErrorIs(t, err, core.ErrInvalidParameter)
}

func TestDetectCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewDetector(0.1, nil).Detect(ctx, crossingPlan())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSampleTimesIncludeEnd(t *testing.T) {
	d := NewDetector(0.1, nil)

	times, err := d.sampleTimes(0, 0.25)
	require.NoError(t, err)
	require.Len(t, times, 4)
	assert.InDelta(t, 0.2, times[2], 1e-12)
	assert.Equal(t, 0.25, times[3])

	times, err = d.sampleTimes(1, 1.3)
	require.NoError(t, err)
	assert.Len(t, times, 4, "grid landing on the end adds no extra sample")

	times, err = d.sampleTimes(2, 2)
	require.NoError(t, err)
	assert.Equal(t, []float64{2}, times)
}

func TestDetectChunksPreserveOrder(t *testing.T) {
	p := core.NewPlan("test", 0.5)
	p.Robots = []core.RobotPlan{
		{RobotID: 3, Trajectory: core.Trajectory{wp(0, 0, 0, 0), wp(100, 0, 0, 0)}},
		{RobotID: 7, Trajectory: core.Trajectory{wp(0, 0.2, 0, 0), wp(100, 0.2, 0, 0)}},
	}

	serial := NewDetector(0.1, nil)
	serial.Workers = 1
	a, err := serial.Detect(context.Background(), p)
	require.NoError(t, err)

	b, err := NewDetector(0.1, nil).Detect(context.Background(), p)
	require.NoError(t, err)

	require.Len(t, a, 1001)
	assert.Equal(t, a, b)
	for i := 1; i < len(b); i++ {
		assert.Less(t, b[i-1].Time, b[i].Time)
	}
}

func TestDetectStatic(t *testing.T) {
	p := core.NewPlan("test", 0.5)
	p.Robots = []core.RobotPlan{
		{RobotID: 2, Clearance: 0.1, Trajectory: core.Trajectory{wp(0, 0, 0, 0), wp(1, 1, 0, 0), wp(2, 2, 0, 0)}},
	}
	obstacles := []*core.Obstacle{
		{ID: 4, Kind: core.ObstacleSphere, Center: core.Pos{X: 1}, Radius: 0.3},
		{ID: 5, Kind: core.ObstacleBox, Center: core.Pos{X: 10}, Size: core.Pos{X: 2, Y: 2, Z: 1}},
	}

	got := NewDetector(0.1, nil).DetectStatic(p, obstacles)
	require.Len(t, got, 1)
	c := got[0]
	assert.Equal(t, core.RobotID(2), c.RobotA)
	assert.Equal(t, core.ObstacleID, c.RobotB)
	assert.True(t, c.IsObstacle())
	assert.Equal(t, 4, c.Obstacle)
	assert.Equal(t, 1.0, c.Time)
	assert.InDelta(t, 0.4, c.MinDistance, 1e-12)
	assert.Zero(t, c.Distance)

	// Box effective radius 1.5 plus the 0.1 tool clearance.
	p.Robots[0].Trajectory = core.Trajectory{wp(0, 8.5, 0, 0)}
	got = NewDetector(0.1, nil).DetectStatic(p, obstacles)
	require.Len(t, got, 1)
	assert.Equal(t, 5, got[0].Obstacle)
	assert.InDelta(t, 1.6, got[0].MinDistance, 1e-12)

	p.Robots[0].Trajectory = core.Trajectory{wp(0, 8.3, 0, 0)}
	assert.Empty(t, NewDetector(0.1, nil).DetectStatic(p, obstacles))
}

func TestSummarize(t *testing.T) {
	assert.Equal(t, Summary{}, Summarize(nil))

	s := Summarize([]core.Collision{
		{RobotA: 3, RobotB: 1, Time: 2.5},
		{RobotA: 5, RobotB: core.ObstacleID, Time: 0.5},
		{RobotA: 1, RobotB: 3, Time: 4},
	})
	assert.Equal(t, 3, s.Total)
	assert.Equal(t, 2, s.RobotRobot)
	assert.Equal(t, 1, s.RobotObstacle)
	assert.Equal(t, 0.5, s.Start)
	assert.Equal(t, 4.0, s.End)
	assert.Equal(t, 3.5, s.Span())
	assert.Equal(t, []core.RobotID{1, 3, 5}, s.Robots)
}
