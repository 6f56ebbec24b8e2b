package core

import (
	"errors"
	"fmt"
	"math"

	"go.uber.org/multierr"
)

// Scenario is the planning input: a fleet, its operations, and the global clearance.
type Scenario struct {
	Name       string
	Robots     []*Robot
	Operations []*Operation
	Obstacles  []*Obstacle
	SafeDist   float64 // Minimum extra centre-to-centre clearance between robots
}

// NewScenario creates an empty scenario.
func NewScenario() *Scenario {
	return &Scenario{}
}

// Validate checks scenario consistency. Every violation is reported, wrapped
// in ErrInvalidScenario.
func (sc *Scenario) Validate() error {
	var err error
	if len(sc.Robots) == 0 {
		err = multierr.Append(err, errors.New("scenario has no robots"))
	}
	if sc.SafeDist < 0 || math.IsNaN(sc.SafeDist) || math.IsInf(sc.SafeDist, 0) {
		err = multierr.Append(err, fmt.Errorf("invalid safe distance %v", sc.SafeDist))
	}

	robotIDs := make(map[RobotID]bool, len(sc.Robots))
	for i, r := range sc.Robots {
		if r == nil {
			err = multierr.Append(err, fmt.Errorf("robot at index %d is nil", i))
			continue
		}
		if r.ID < 0 {
			err = multierr.Append(err, fmt.Errorf("robot at index %d: negative id %d", i, r.ID))
		}
		if robotIDs[r.ID] {
			err = multierr.Append(err, fmt.Errorf("duplicate robot id %d", r.ID))
		}
		robotIDs[r.ID] = true
		err = multierr.Append(err, multierr.Combine(r.validate()...))
	}

	opIDs := make(map[OperationID]bool, len(sc.Operations))
	for i, op := range sc.Operations {
		if op == nil {
			err = multierr.Append(err, fmt.Errorf("operation at index %d is nil", i))
			continue
		}
		if opIDs[op.ID] {
			err = multierr.Append(err, fmt.Errorf("duplicate operation id %d", op.ID))
		}
		opIDs[op.ID] = true
		err = multierr.Append(err, multierr.Combine(op.validate()...))
	}

	for i, ob := range sc.Obstacles {
		if ob == nil {
			err = multierr.Append(err, fmt.Errorf("obstacle at index %d is nil", i))
			continue
		}
		err = multierr.Append(err, multierr.Combine(ob.validate()...))
	}

	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidScenario, err)
	}
	return nil
}

// RobotByID finds robot by ID.
func (sc *Scenario) RobotByID(id RobotID) *Robot {
	for _, r := range sc.Robots {
		if r.ID == id {
			return r
		}
	}
	return nil
}

// OperationByID finds operation by ID.
func (sc *Scenario) OperationByID(id OperationID) *Operation {
	for _, op := range sc.Operations {
		if op.ID == id {
			return op
		}
	}
	return nil
}
