// Package safety inserts stationary pauses into plans to mitigate collisions.
package safety

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/elektrokombinacija/fleetplan/internal/collision"
	"github.com/elektrokombinacija/fleetplan/internal/core"
	"github.com/elektrokombinacija/fleetplan/internal/observer"
)

// DefaultPauseDuration is the pause inserted per robot and collision time.
const DefaultPauseDuration = 1.0

// Report describes one enforcement pass.
type Report struct {
	CollisionsBefore int
	DistinctTimes    int
	PausesInserted   int
	MakespanBefore   float64
	MakespanAfter    float64
	Remaining        []core.Collision // Robot-robot collisions found by the single re-check
}

// Enforcer pauses robots at their collision times.
//
// Collision times are quantized to the nearest TimeStep multiple. For each
// distinct time, in ascending order, every robot involved in a robot-robot
// collision at that time holds its position for PauseDuration and everything
// it does afterwards is shifted later. Only involved robots are touched, and
// the result is not searched for a collision-free fixpoint.
type Enforcer struct {
	TimeStep      float64
	PauseDuration float64
	Detector      *collision.Detector
	Observer      observer.Observer
}

// NewEnforcer creates an enforcer that detects with det.
func NewEnforcer(timeStep, pauseDuration float64, det *collision.Detector, obs observer.Observer) *Enforcer {
	return &Enforcer{
		TimeStep:      timeStep,
		PauseDuration: pauseDuration,
		Detector:      det,
		Observer:      observer.OrNop(obs),
	}
}

func (e *Enforcer) validate() error {
	if !(e.TimeStep > 0) || math.IsInf(e.TimeStep, 0) {
		return fmt.Errorf("%w: time step %v must be positive", core.ErrInvalidParameter, e.TimeStep)
	}
	if !(e.PauseDuration >= 0) || math.IsInf(e.PauseDuration, 0) {
		return fmt.Errorf("%w: pause duration %v must not be negative", core.ErrInvalidParameter, e.PauseDuration)
	}
	return nil
}

// Enforce detects robot-robot collisions, resolves them, and re-checks the
// result once. The input plan is not modified.
func (e *Enforcer) Enforce(ctx context.Context, plan *core.Plan) (*core.Plan, Report, error) {
	report := Report{MakespanBefore: plan.Makespan}
	if e.Detector == nil {
		return nil, report, fmt.Errorf("%w: enforcer has no collision detector", core.ErrInvalidParameter)
	}

	collisions, err := e.Detector.Detect(ctx, plan)
	if err != nil {
		return nil, report, err
	}
	report.CollisionsBefore = len(collisions)

	out, times, pauses, err := e.resolve(plan, collisions)
	if err != nil {
		return nil, report, err
	}
	report.DistinctTimes = times
	report.PausesInserted = pauses
	report.MakespanAfter = out.Makespan

	if pauses > 0 {
		report.Remaining, err = e.Detector.Detect(ctx, out)
		if err != nil {
			return nil, report, err
		}
	}
	return out, report, nil
}

// Resolve returns a copy of plan with pauses inserted for collisions. Obstacle
// records are ignored. With no robot-robot collisions the copy is identical
// to plan.
func (e *Enforcer) Resolve(plan *core.Plan, collisions []core.Collision) (*core.Plan, error) {
	out, _, _, err := e.resolve(plan, collisions)
	return out, err
}

func (e *Enforcer) resolve(plan *core.Plan, collisions []core.Collision) (*core.Plan, int, int, error) {
	if err := e.validate(); err != nil {
		return nil, 0, 0, err
	}
	out := plan.Clone()

	involved := make(map[int64]map[core.RobotID]bool)
	for _, c := range collisions {
		if c.IsObstacle() {
			continue
		}
		slot := int64(math.Round(c.Time / e.TimeStep))
		if involved[slot] == nil {
			involved[slot] = make(map[core.RobotID]bool)
		}
		involved[slot][c.RobotA] = true
		involved[slot][c.RobotB] = true
	}
	if len(involved) == 0 {
		return out, 0, 0, nil
	}

	slots := make([]int64, 0, len(involved))
	for s := range involved {
		slots = append(slots, s)
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i] < slots[j] })

	obs := observer.OrNop(e.Observer)
	pauses := 0
	for _, slot := range slots {
		t := float64(slot) * e.TimeStep
		for _, rid := range sortedIDs(involved[slot]) {
			rp := out.RobotPlan(rid)
			if rp == nil || len(rp.Trajectory) == 0 {
				continue
			}
			pauseRobot(out, rp, t, e.PauseDuration)
			obs.OnPauseInserted(rid, t, e.PauseDuration)
			pauses++
		}
	}

	out.ComputeMakespan()
	return out, len(slots), pauses, nil
}

func sortedIDs(set map[core.RobotID]bool) []core.RobotID {
	ids := make([]core.RobotID, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// pauseRobot holds rp at its position at time t for d seconds and shifts every
// later waypoint, operation milestone and carry interval bound by d.
func pauseRobot(plan *core.Plan, rp *core.RobotPlan, t, d float64) {
	rp.Trajectory = insertPause(rp.Trajectory, t, d)

	shift := func(v *float64) {
		if *v >= t {
			*v += d
		}
	}
	for i := range rp.Timings {
		tm := &rp.Timings[i]
		shift(&tm.Start)
		shift(&tm.PickArrival)
		shift(&tm.HoldEnd)
		shift(&tm.PlaceArrival)
	}
	for i := range plan.Objects {
		for j := range plan.Objects[i].CarryIntervals {
			iv := &plan.Objects[i].CarryIntervals[j]
			if iv.Robot != rp.RobotID {
				continue
			}
			shift(&iv.Start)
			shift(&iv.End)
		}
	}
}

// insertPause returns traj with a stationary hold of length d starting at t.
// Waypoints at or after t move d later. A collision after the last waypoint
// extends the trajectory at its final position.
func insertPause(traj core.Trajectory, t, d float64) core.Trajectory {
	idx := sort.Search(len(traj), func(i int) bool { return traj[i].T >= t })
	if idx == len(traj) {
		last := traj[len(traj)-1].Pos
		return append(traj,
			core.Waypoint{T: t, Pos: last},
			core.Waypoint{T: t + d, Pos: last},
		)
	}

	pos, _ := traj.PositionAt(t)
	out := make(core.Trajectory, 0, len(traj)+2)
	out = append(out, traj[:idx]...)
	out = append(out,
		core.Waypoint{T: t, Pos: pos},
		core.Waypoint{T: t + d, Pos: pos},
	)
	for i, w := range traj[idx:] {
		if i == 0 && w.T == t && core.SamePos(w.Pos, pos) {
			continue
		}
		out = append(out, core.Waypoint{T: w.T + d, Pos: w.Pos})
	}
	return out
}
