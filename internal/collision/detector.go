// Package collision finds clearance violations in a fleet plan.
package collision

import (
	"context"
	"fmt"
	"math"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/elektrokombinacija/fleetplan/internal/core"
	"github.com/elektrokombinacija/fleetplan/internal/observer"
)

// Defaults for Detector.
const (
	DefaultTimeStep   = 0.1
	DefaultMaxSamples = 200000
)

// samplesPerChunk bounds the work handed to one goroutine.
const samplesPerChunk = 256

// Detector samples robot positions over the plan's shared time domain and
// reports every pair closer than safe distance plus both tool clearances.
type Detector struct {
	TimeStep   float64
	MaxSamples int // Upper bound on time samples; 0 = unlimited
	Workers    int // Max concurrent chunks; 0 = unlimited
	Observer   observer.Observer
}

// NewDetector creates a detector with the default sample budget.
func NewDetector(timeStep float64, obs observer.Observer) *Detector {
	return &Detector{
		TimeStep:   timeStep,
		MaxSamples: DefaultMaxSamples,
		Observer:   observer.OrNop(obs),
	}
}

type track struct {
	id        core.RobotID
	clearance float64
	traj      core.Trajectory
}

// sampleTimes returns start, start+step, ... and finally end when the grid
// does not land on it.
func (d *Detector) sampleTimes(start, end float64) ([]float64, error) {
	if !(d.TimeStep > 0) || math.IsInf(d.TimeStep, 0) {
		return nil, fmt.Errorf("%w: time step %v must be positive", core.ErrInvalidParameter, d.TimeStep)
	}
	n := math.Floor((end-start)/d.TimeStep + 1e-9)
	if math.IsNaN(n) || n >= math.MaxInt32 || (d.MaxSamples > 0 && n+1 > float64(d.MaxSamples)) {
		return nil, fmt.Errorf("%w: time step %v over [%v, %v] exceeds the sample budget of %d",
			core.ErrInvalidParameter, d.TimeStep, start, end, d.MaxSamples)
	}
	steps := int(n)
	count := steps + 1
	last := start + float64(steps)*d.TimeStep
	if end-last > 1e-9 {
		count++
	}
	if d.MaxSamples > 0 && count > d.MaxSamples {
		return nil, fmt.Errorf("%w: %d time samples exceed the budget of %d (time step %v over [%v, %v])",
			core.ErrInvalidParameter, count, d.MaxSamples, d.TimeStep, start, end)
	}

	times := make([]float64, 0, count)
	for i := 0; i <= steps; i++ {
		times = append(times, start+float64(i)*d.TimeStep)
	}
	if len(times) < count {
		times = append(times, end)
	}
	return times, nil
}

// Detect returns robot-robot collisions ordered by time, then by robot pair in
// plan order. Each unordered pair is reported at most once per sample. Robots
// without waypoints are ignored.
func (d *Detector) Detect(ctx context.Context, plan *core.Plan) ([]core.Collision, error) {
	tracks := make([]track, 0, len(plan.Robots))
	start, end := math.Inf(1), math.Inf(-1)
	for _, rp := range plan.Robots {
		if len(rp.Trajectory) == 0 {
			continue
		}
		tracks = append(tracks, track{id: rp.RobotID, clearance: rp.Clearance, traj: rp.Trajectory})
		start = math.Min(start, rp.Trajectory.Start())
		end = math.Max(end, rp.Trajectory.End())
	}
	if len(tracks) < 2 {
		return nil, nil
	}

	times, err := d.sampleTimes(start, end)
	if err != nil {
		return nil, err
	}

	numChunks := (len(times) + samplesPerChunk - 1) / samplesPerChunk
	results := make([][]core.Collision, numChunks)

	eg, gctx := errgroup.WithContext(ctx)
	if d.Workers > 0 {
		eg.SetLimit(d.Workers)
	}
	for c := 0; c < numChunks; c++ {
		c := c
		lo := c * samplesPerChunk
		hi := min(lo+samplesPerChunk, len(times))
		eg.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[c] = checkSamples(tracks, plan.SafeDist, times[lo:hi])
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	var out []core.Collision
	for _, r := range results {
		out = append(out, r...)
	}
	obs := observer.OrNop(d.Observer)
	for _, c := range out {
		obs.OnCollision(c)
	}
	return out, nil
}

func checkSamples(tracks []track, safeDist float64, times []float64) []core.Collision {
	var out []core.Collision
	pos := make([]core.Pos, len(tracks))
	for _, t := range times {
		for i, tr := range tracks {
			pos[i], _ = tr.traj.PositionAt(t)
		}
		for i := 0; i < len(tracks); i++ {
			for j := i + 1; j < len(tracks); j++ {
				required := safeDist + tracks[i].clearance + tracks[j].clearance
				if dist := core.Distance(pos[i], pos[j]); dist < required {
					out = append(out, core.Collision{
						RobotA:      tracks[i].id,
						RobotB:      tracks[j].id,
						Time:        t,
						PosA:        pos[i],
						PosB:        pos[j],
						Distance:    dist,
						MinDistance: required,
					})
				}
			}
		}
	}
	return out
}

// DetectStatic checks every waypoint of every robot against static obstacles.
// A waypoint violates an obstacle when it is closer than the robot's tool
// clearance plus the obstacle's effective radius. Results are ordered by time.
func (d *Detector) DetectStatic(plan *core.Plan, obstacles []*core.Obstacle) []core.Collision {
	var out []core.Collision
	for _, rp := range plan.Robots {
		for _, wp := range rp.Trajectory {
			for _, o := range obstacles {
				required := rp.Clearance + o.EffectiveRadius()
				if dist := core.Distance(wp.Pos, o.Center); dist < required {
					out = append(out, core.Collision{
						RobotA:      rp.RobotID,
						RobotB:      core.ObstacleID,
						Time:        wp.T,
						PosA:        wp.Pos,
						PosB:        o.Center,
						Distance:    dist,
						MinDistance: required,
						Obstacle:    o.ID,
					})
				}
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time < out[j].Time })

	obs := observer.OrNop(d.Observer)
	for _, c := range out {
		obs.OnCollision(c)
	}
	return out
}
