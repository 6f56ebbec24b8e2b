package algo

import (
	"context"

	"github.com/elektrokombinacija/fleetplan/internal/core"
	"github.com/elektrokombinacija/fleetplan/internal/observer"
)

// RoundRobin binds operation i to robot i mod K.
type RoundRobin struct {
	Observer observer.Observer
}

// NewRoundRobin creates a round-robin assigner.
func NewRoundRobin(obs observer.Observer) *RoundRobin {
	return &RoundRobin{Observer: observer.OrNop(obs)}
}

// Name returns the method name.
func (rr *RoundRobin) Name() string { return MethodRoundRobin }

// Assign implements Assigner.
func (rr *RoundRobin) Assign(_ context.Context, sc *core.Scenario) (core.Assignment, error) {
	obs := observer.OrNop(rr.Observer)
	k := len(sc.Robots)
	if k == 0 {
		return nil, errNoRobots
	}
	a := core.NewAssignment(k)
	for i := range sc.Operations {
		a[i%k] = append(a[i%k], i)
		obs.OnAssignmentDecision(MethodRoundRobin, i, i%k)
	}
	return a, nil
}

// Balanced greedily assigns each operation to the robot whose cumulative
// estimated busy time grows the least.
type Balanced struct {
	Observer observer.Observer
}

// NewBalanced creates a load-balancing assigner.
func NewBalanced(obs observer.Observer) *Balanced {
	return &Balanced{Observer: observer.OrNop(obs)}
}

// Name returns the method name.
func (b *Balanced) Name() string { return MethodBalanced }

// Cost estimates the time a robot spends on an operation when starting from
// its base: travel divided by the robot's scalar speed, plus the hold.
func Cost(robot *core.Robot, op *core.Operation) float64 {
	travel := core.Distance(robot.Base, op.Pick) + op.TravelDistance()
	return travel/robot.Speed() + op.Hold
}

// Assign implements Assigner.
func (b *Balanced) Assign(_ context.Context, sc *core.Scenario) (core.Assignment, error) {
	obs := observer.OrNop(b.Observer)
	k, n := len(sc.Robots), len(sc.Operations)
	if k == 0 {
		return nil, errNoRobots
	}
	if n <= k {
		return forceOnePerRobot(n, k, MethodBalanced, obs), nil
	}

	a := core.NewAssignment(k)
	load := make([]float64, k)
	for i, op := range sc.Operations {
		best, bestLoad := 0, 0.0
		for r, robot := range sc.Robots {
			if l := load[r] + Cost(robot, op); r == 0 || l < bestLoad {
				best, bestLoad = r, l
			}
		}
		load[best] = bestLoad
		a[best] = append(a[best], i)
		obs.OnAssignmentDecision(MethodBalanced, i, best)
	}

	repairEmpty(a, func(r int, ops []int) float64 {
		sum := 0.0
		for _, i := range ops {
			sum += Cost(sc.Robots[r], sc.Operations[i])
		}
		return sum
	}, MethodBalanced, obs)
	return a, nil
}

// DistanceBased assigns each operation to the robot whose current position
// (its last place point, initially its base) is nearest the pick point.
type DistanceBased struct {
	Observer observer.Observer
}

// NewDistanceBased creates a nearest-robot assigner.
func NewDistanceBased(obs observer.Observer) *DistanceBased {
	return &DistanceBased{Observer: observer.OrNop(obs)}
}

// Name returns the method name.
func (d *DistanceBased) Name() string { return MethodDistanceBased }

// Assign implements Assigner.
func (d *DistanceBased) Assign(_ context.Context, sc *core.Scenario) (core.Assignment, error) {
	obs := observer.OrNop(d.Observer)
	k, n := len(sc.Robots), len(sc.Operations)
	if k == 0 {
		return nil, errNoRobots
	}
	if n <= k {
		return forceOnePerRobot(n, k, MethodDistanceBased, obs), nil
	}

	a := core.NewAssignment(k)
	cur := make([]core.Pos, k)
	for r, robot := range sc.Robots {
		cur[r] = robot.Base
	}
	for i, op := range sc.Operations {
		best, bestDist := 0, 0.0
		for r := range sc.Robots {
			if dist := core.Distance(cur[r], op.Pick); r == 0 || dist < bestDist {
				best, bestDist = r, dist
			}
		}
		cur[best] = op.Place
		a[best] = append(a[best], i)
		obs.OnAssignmentDecision(MethodDistanceBased, i, best)
	}

	repairEmpty(a, func(_ int, ops []int) float64 {
		return float64(len(ops))
	}, MethodDistanceBased, obs)
	return a, nil
}
