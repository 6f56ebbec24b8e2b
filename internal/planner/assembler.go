// Package planner assembles fleet plans from scenarios.
package planner

import (
	"context"
	"fmt"

	"github.com/elektrokombinacija/fleetplan/internal/algo"
	"github.com/elektrokombinacija/fleetplan/internal/collision"
	"github.com/elektrokombinacija/fleetplan/internal/core"
	"github.com/elektrokombinacija/fleetplan/internal/motion"
	"github.com/elektrokombinacija/fleetplan/internal/observer"
	"github.com/elektrokombinacija/fleetplan/internal/safety"
)

// Assembler runs assignment, trajectory planning and the optional safety pass.
type Assembler struct {
	Assigner algo.Assigner
	Planner  *motion.Planner
	Enforcer *safety.Enforcer // nil skips the safety pass
}

// Result is the output of one Build.
type Result struct {
	Plan       *core.Plan
	Assignment core.Assignment
	Safety     *safety.Report // nil when the safety pass is disabled
}

// NewAssembler creates an assembler.
func NewAssembler(assigner algo.Assigner, planner *motion.Planner, enforcer *safety.Enforcer) *Assembler {
	return &Assembler{Assigner: assigner, Planner: planner, Enforcer: enforcer}
}

// NewDefault creates an assembler for method with default parameters and no
// safety pass.
func NewDefault(method string, obs observer.Observer) (*Assembler, error) {
	assigner, err := algo.New(method, algo.DefaultParams(), obs)
	if err != nil {
		return nil, err
	}
	return NewAssembler(assigner, motion.NewPlanner(motion.DefaultSegmentPoints, obs), nil), nil
}

// WithSafety enables the pause-insertion pass.
func (a *Assembler) WithSafety(timeStep, pauseDuration float64, obs observer.Observer) *Assembler {
	a.Enforcer = safety.NewEnforcer(timeStep, pauseDuration, collision.NewDetector(timeStep, obs), obs)
	return a
}

// Build validates sc, assigns its operations, and plans every robot from its
// base at t=0.
func (a *Assembler) Build(ctx context.Context, sc *core.Scenario) (*Result, error) {
	if err := sc.Validate(); err != nil {
		return nil, err
	}

	assignment, err := a.Assigner.Assign(ctx, sc)
	if err != nil {
		return nil, fmt.Errorf("assign with %s: %w", a.Assigner.Name(), err)
	}
	if err := assignment.Validate(len(sc.Operations), len(sc.Robots)); err != nil {
		return nil, fmt.Errorf("assign with %s: %w", a.Assigner.Name(), err)
	}

	robotPlans, err := a.Planner.PlanFleet(ctx, sc.Robots, assignment.Resolve(sc.Operations), 0)
	if err != nil {
		return nil, fmt.Errorf("plan trajectories: %w", err)
	}

	plan := core.NewPlan(a.Assigner.Name(), sc.SafeDist)
	plan.Robots = robotPlans
	plan.Objects = carriedObjects(sc, robotPlans)
	plan.ComputeMakespan()
	if err := plan.Validate(); err != nil {
		return nil, err
	}

	res := &Result{Plan: plan, Assignment: assignment}
	if a.Enforcer == nil {
		return res, nil
	}

	safePlan, report, err := a.Enforcer.Enforce(ctx, plan)
	if err != nil {
		return nil, fmt.Errorf("safety pass: %w", err)
	}
	res.Plan, res.Safety = safePlan, &report
	return res, nil
}

// carriedObjects creates one payload per operation, in scenario order. Each is
// carried by its robot from the end of the hold to arrival at the place point.
func carriedObjects(sc *core.Scenario, plans []core.RobotPlan) []core.Object {
	if len(sc.Operations) == 0 {
		return nil
	}

	timings := make(map[core.OperationID]core.OperationTiming, len(sc.Operations))
	for _, rp := range plans {
		for _, tm := range rp.Timings {
			timings[tm.Operation] = tm
		}
	}

	objects := make([]core.Object, 0, len(sc.Operations))
	for i, op := range sc.Operations {
		obj := core.Object{
			ID:        i,
			Name:      fmt.Sprintf("payload-%d", op.ID),
			Operation: op.ID,
			Initial:   op.Pick,
		}
		if tm, ok := timings[op.ID]; ok {
			obj.CarryIntervals = []core.CarryInterval{{Robot: tm.Robot, Start: tm.HoldEnd, End: tm.PlaceArrival}}
		}
		objects = append(objects, obj)
	}
	return objects
}
