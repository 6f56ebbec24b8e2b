package motion

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/elektrokombinacija/fleetplan/internal/core"
	"github.com/elektrokombinacija/fleetplan/internal/observer"
)

// DefaultSegmentPoints is the number of waypoints per straight-line segment,
// endpoints included.
const DefaultSegmentPoints = 10

// minMove below which a segment is treated as stationary.
const minMove = 1e-9

// GenerateSegmentWaypoints samples a straight-line move from start to end
// as totalPoints waypoints, both endpoints included. Positions advance by
// the profile's distance law, not uniformly in time.
func GenerateSegmentWaypoints(start, end core.Pos, vmax, amax, tStart float64, totalPoints int) (core.Trajectory, error) {
	dist := core.Distance(start, end)
	if dist < minMove {
		return core.Trajectory{{T: tStart, Pos: start}}, nil
	}

	prof, err := NewProfile(dist, vmax, amax)
	if err != nil {
		return nil, err
	}

	if totalPoints < 2 {
		totalPoints = 2
	}
	seg := make(core.Trajectory, totalPoints)
	for i := 0; i < totalPoints; i++ {
		dt := prof.TTotal * float64(i) / float64(totalPoints-1)
		frac := prof.DistanceAt(dt) / dist
		seg[i] = core.Waypoint{T: tStart + dt, Pos: core.Lerp(start, end, frac)}
	}
	seg[0].Pos = start
	seg[totalPoints-1] = core.Waypoint{T: tStart + prof.TTotal, Pos: end}
	return seg, nil
}

// Planner turns ordered operation lists into robot trajectories.
type Planner struct {
	SegmentPoints int
	Workers       int // Max robots planned concurrently; 0 = unlimited
	Observer      observer.Observer
}

// NewPlanner creates a trajectory planner.
func NewPlanner(segmentPoints int, obs observer.Observer) *Planner {
	if segmentPoints <= 0 {
		segmentPoints = DefaultSegmentPoints
	}
	return &Planner{SegmentPoints: segmentPoints, Observer: observer.OrNop(obs)}
}

// PlanRobot builds the trajectory for one robot executing ops in order,
// starting at its base at time t0. Each operation is a move to the pick point,
// a stationary hold, then a move to the place point.
func (p *Planner) PlanRobot(robot *core.Robot, ops []*core.Operation, t0 float64) (core.Trajectory, []core.OperationTiming, error) {
	obs := observer.OrNop(p.Observer)
	vmax, amax := robot.Speed(), robot.Accel()

	traj := core.Trajectory{{T: t0, Pos: robot.Base}}
	timings := make([]core.OperationTiming, 0, len(ops))
	cur, t := robot.Base, t0

	for _, op := range ops {
		timing := core.OperationTiming{Operation: op.ID, Robot: robot.ID, Start: t}
		for _, target := range [...]core.Pos{op.Pick, op.Place} {
			if !robot.Reachable(target) {
				obs.OnUnreachable(robot.ID, op.ID, target)
			}
		}

		// Move to pick
		seg, err := GenerateSegmentWaypoints(cur, op.Pick, vmax, amax, t, p.SegmentPoints)
		if err != nil {
			return nil, nil, fmt.Errorf("robot %d, operation %d: approach segment: %w", robot.ID, op.ID, err)
		}
		// Skip duplicate waypoint at junction (end of previous = start of next)
		traj = append(traj, seg[1:]...)
		t = seg[len(seg)-1].T
		timing.PickArrival = t

		// Hold at pick
		if op.Hold > 0 {
			t += op.Hold
			traj = append(traj, core.Waypoint{T: t, Pos: op.Pick})
		}
		timing.HoldEnd = t

		// Carry to place
		seg, err = GenerateSegmentWaypoints(op.Pick, op.Place, vmax, amax, t, p.SegmentPoints)
		if err != nil {
			return nil, nil, fmt.Errorf("robot %d, operation %d: carry segment: %w", robot.ID, op.ID, err)
		}
		traj = append(traj, seg[1:]...)
		t = seg[len(seg)-1].T
		timing.PlaceArrival = t

		cur = op.Place
		timings = append(timings, timing)
	}

	obs.OnTrajectoryPlanned(robot.ID, len(traj), t)
	return traj, timings, nil
}

// PlanFleet plans every robot concurrently. ops[i] is the ordered operation
// list of robots[i]; the result is index-aligned with robots.
func (p *Planner) PlanFleet(ctx context.Context, robots []*core.Robot, ops [][]*core.Operation, t0 float64) ([]core.RobotPlan, error) {
	if len(ops) != len(robots) {
		return nil, fmt.Errorf("%w: %d operation lists for %d robots", core.ErrAssignmentFailure, len(ops), len(robots))
	}

	plans := make([]core.RobotPlan, len(robots))
	g, gctx := errgroup.WithContext(ctx)
	if p.Workers > 0 {
		g.SetLimit(p.Workers)
	}

	for i, robot := range robots {
		i, robot := i, robot
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			traj, timings, err := p.PlanRobot(robot, ops[i], t0)
			if err != nil {
				return err
			}
			plans[i] = core.RobotPlan{
				RobotID:        robot.ID,
				Base:           robot.Base,
				Clearance:      robot.Clearance,
				Trajectory:     traj,
				OperationCount: len(ops[i]),
				Timings:        timings,
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return plans, nil
}
