package core

import "errors"

var (
	// ErrInvalidScenario marks scenario input that violates the model invariants.
	ErrInvalidScenario = errors.New("invalid scenario")
	// ErrInvalidParameter marks a bad numeric parameter (vmax, amax, time step, budget).
	ErrInvalidParameter = errors.New("invalid parameter")
	// ErrAssignmentFailure marks an assignment that could not be produced or validated.
	ErrAssignmentFailure = errors.New("assignment failure")
	// ErrInvalidPlan marks a plan that violates ordering or reference invariants.
	ErrInvalidPlan = errors.New("invalid plan")
)
