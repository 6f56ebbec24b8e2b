package core

import (
	"fmt"

	"go.uber.org/multierr"
)

// OperationTiming records when a robot reaches the milestones of one operation.
type OperationTiming struct {
	Operation    OperationID
	Robot        RobotID
	Start        float64 // Robot leaves for the pick point
	PickArrival  float64
	HoldEnd      float64 // Hold finished; payload leaves the pick point
	PlaceArrival float64
}

// RobotPlan is the planned output for one robot.
type RobotPlan struct {
	RobotID        RobotID
	Base           Pos
	Clearance      float64
	Trajectory     Trajectory
	OperationCount int
	Timings        []OperationTiming
}

// Plan represents a complete fleet plan.
type Plan struct {
	RunID    string
	Method   string
	Robots   []RobotPlan
	Makespan float64
	SafeDist float64
	Objects  []Object
}

// NewPlan creates an empty plan.
func NewPlan(method string, safeDist float64) *Plan {
	return &Plan{
		Method:   method,
		SafeDist: safeDist,
	}
}

// Trajectories returns the robot trajectories in plan order.
func (p *Plan) Trajectories() []Trajectory {
	out := make([]Trajectory, len(p.Robots))
	for i, rp := range p.Robots {
		out[i] = rp.Trajectory
	}
	return out
}

// ComputeMakespan recalculates and stores the makespan.
func (p *Plan) ComputeMakespan() float64 {
	p.Makespan = CalculateMakespan(p.Trajectories())
	return p.Makespan
}

// RobotPlan returns the plan entry for a robot, or nil.
func (p *Plan) RobotPlan(id RobotID) *RobotPlan {
	for i := range p.Robots {
		if p.Robots[i].RobotID == id {
			return &p.Robots[i]
		}
	}
	return nil
}

// Clone returns a deep copy sharing no slices with p.
func (p *Plan) Clone() *Plan {
	out := *p
	if p.Robots != nil {
		out.Robots = make([]RobotPlan, len(p.Robots))
		for i, rp := range p.Robots {
			rp.Trajectory = rp.Trajectory.Clone()
			if rp.Timings != nil {
				rp.Timings = append([]OperationTiming(nil), rp.Timings...)
			}
			out.Robots[i] = rp
		}
	}
	if p.Objects != nil {
		out.Objects = make([]Object, len(p.Objects))
		for i, obj := range p.Objects {
			if obj.CarryIntervals != nil {
				obj.CarryIntervals = append([]CarryInterval(nil), obj.CarryIntervals...)
			}
			out.Objects[i] = obj
		}
	}
	return &out
}

// Validate checks ordering and reference invariants consumers rely on.
func (p *Plan) Validate() error {
	var err error
	ids := make(map[RobotID]bool, len(p.Robots))
	for _, rp := range p.Robots {
		ids[rp.RobotID] = true
		if !rp.Trajectory.IsTimeOrdered() {
			err = multierr.Append(err, fmt.Errorf("robot %d: trajectory is not time-ordered", rp.RobotID))
		}
		if len(rp.Trajectory) > 0 && rp.Trajectory.Start() < 0 {
			err = multierr.Append(err, fmt.Errorf("robot %d: negative start time %v", rp.RobotID, rp.Trajectory.Start()))
		}
	}
	for _, obj := range p.Objects {
		for _, iv := range obj.CarryIntervals {
			if !ids[iv.Robot] {
				err = multierr.Append(err, fmt.Errorf("object %d: unknown carrier robot %d", obj.ID, iv.Robot))
			}
			if iv.Start < 0 || iv.End < iv.Start || iv.End > p.Makespan+TimeTolerance {
				err = multierr.Append(err, fmt.Errorf("object %d: carry interval [%v, %v] outside [0, %v]",
					obj.ID, iv.Start, iv.End, p.Makespan))
			}
		}
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPlan, err)
	}
	return nil
}
