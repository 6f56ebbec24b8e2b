package core

import (
	"fmt"
	"math"
)

// OperationID is a unique operation identifier.
type OperationID int

// Operation is a single pick-and-place job.
type Operation struct {
	ID    OperationID
	Pick  Pos
	Place Pos
	Hold  float64 // Dwell time (seconds) between pick and place motion
}

// TravelDistance returns the pick-to-place distance.
func (o *Operation) TravelDistance() float64 {
	return Distance(o.Pick, o.Place)
}

func (o *Operation) validate() []error {
	var errs []error
	if !o.Pick.IsFinite() {
		errs = append(errs, fmt.Errorf("operation %d: pick point is not finite", o.ID))
	}
	if !o.Place.IsFinite() {
		errs = append(errs, fmt.Errorf("operation %d: place point is not finite", o.ID))
	}
	if o.Hold < 0 || math.IsNaN(o.Hold) || math.IsInf(o.Hold, 0) {
		errs = append(errs, fmt.Errorf("operation %d: invalid hold time %v", o.ID, o.Hold))
	}
	return errs
}
