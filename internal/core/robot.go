package core

import (
	"fmt"
	"math"
)

// RobotID is a unique robot identifier.
type RobotID int

// ObstacleID is the peer id used in collision records against static obstacles.
const ObstacleID RobotID = -1

// NumJoints is the fixed joint count of a manipulator.
const NumJoints = 6

// JointVector holds one value per joint.
type JointVector [NumJoints]float64

// JointLimit is the [Min, Max] angle range of one joint (radians).
type JointLimit struct {
	Min, Max float64
}

// Robot represents a manipulator in the fleet.
type Robot struct {
	ID          RobotID
	Base        Pos // Mounting position; TCP starts here at t=0
	JointLimits [NumJoints]JointLimit
	MaxVelocity JointVector // Per-joint max velocity
	MaxAccel    JointVector // Per-joint max acceleration
	Clearance   float64     // Tool clearance radius (m)
}

// Uniform returns a joint vector with every entry set to v.
func Uniform(v float64) JointVector {
	var jv JointVector
	for i := range jv {
		jv[i] = v
	}
	return jv
}

// Min returns the smallest entry.
func (jv JointVector) Min() float64 {
	m := jv[0]
	for _, v := range jv[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

// Mean returns the arithmetic mean of the entries.
func (jv JointVector) Mean() float64 {
	sum := 0.0
	for _, v := range jv {
		sum += v
	}
	return sum / NumJoints
}

// Speed returns the conservative scalar TCP speed (minimum across joints).
func (r *Robot) Speed() float64 {
	return r.MaxVelocity.Min()
}

// Accel returns the conservative scalar TCP acceleration (minimum across joints).
func (r *Robot) Accel() float64 {
	return r.MaxAccel.Min()
}

// Reachable is a coarse 3-axis envelope check. The first three joint limit pairs
// bound an axis-aligned box around the base; half-extent i is max(|Min|, |Max|).
// An all-zero limit set disables the filter.
func (r *Robot) Reachable(p Pos) bool {
	offset := [3]float64{p.X - r.Base.X, p.Y - r.Base.Y, p.Z - r.Base.Z}
	for i := 0; i < 3; i++ {
		lim := r.JointLimits[i]
		half := math.Max(math.Abs(lim.Min), math.Abs(lim.Max))
		if half == 0 {
			continue
		}
		if math.Abs(offset[i]) > half {
			return false
		}
	}
	return true
}

// validate reports every problem with this robot record.
func (r *Robot) validate() []error {
	var errs []error
	if !r.Base.IsFinite() {
		errs = append(errs, fmt.Errorf("robot %d: base position is not finite", r.ID))
	}
	if r.Clearance < 0 || math.IsNaN(r.Clearance) {
		errs = append(errs, fmt.Errorf("robot %d: negative tool clearance %v", r.ID, r.Clearance))
	}
	for j := 0; j < NumJoints; j++ {
		if lim := r.JointLimits[j]; lim.Min > lim.Max {
			errs = append(errs, fmt.Errorf("robot %d: joint %d limit min %v > max %v", r.ID, j, lim.Min, lim.Max))
		}
		if v := r.MaxVelocity[j]; !(v > 0) || math.IsInf(v, 0) {
			errs = append(errs, fmt.Errorf("robot %d: joint %d max velocity %v must be positive", r.ID, j, v))
		}
		if a := r.MaxAccel[j]; !(a > 0) || math.IsInf(a, 0) {
			errs = append(errs, fmt.Errorf("robot %d: joint %d max acceleration %v must be positive", r.ID, j, a))
		}
	}
	return errs
}
