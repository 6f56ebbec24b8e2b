// Package motion generates time-parameterized TCP trajectories from
// trapezoidal velocity profiles.
package motion

import (
	"fmt"
	"math"

	"github.com/elektrokombinacija/fleetplan/internal/core"
)

// Profile is a trapezoidal (or triangular) speed law for a 1D displacement.
// All distances in metres, velocities in m/s, time in seconds.
type Profile struct {
	Distance   float64
	VMax       float64
	AMax       float64
	TAccel     float64 // Duration of the acceleration phase (equal to deceleration)
	TConst     float64 // Duration of the cruise phase; 0 when triangular
	TTotal     float64
	Triangular bool
}

// NewProfile computes the profile for moving distance with limits vmax and amax.
// Non-positive limits are rejected with core.ErrInvalidParameter.
func NewProfile(distance, vmax, amax float64) (Profile, error) {
	if !(vmax > 0) || math.IsInf(vmax, 0) {
		return Profile{}, fmt.Errorf("%w: vmax must be positive, got %v", core.ErrInvalidParameter, vmax)
	}
	if !(amax > 0) || math.IsInf(amax, 0) {
		return Profile{}, fmt.Errorf("%w: amax must be positive, got %v", core.ErrInvalidParameter, amax)
	}
	if !(distance >= 0) || math.IsInf(distance, 0) {
		return Profile{}, fmt.Errorf("%w: distance must be non-negative, got %v", core.ErrInvalidParameter, distance)
	}

	p := Profile{Distance: distance, VMax: vmax, AMax: amax}
	if distance == 0 {
		return p, nil
	}

	// vmax is unreachable within half the distance: no cruise phase
	if vmax*vmax/amax > distance {
		p.Triangular = true
		p.TAccel = math.Sqrt(distance / amax)
		p.TTotal = 2 * p.TAccel
		return p, nil
	}

	p.TAccel = vmax / amax
	distAccel := vmax * vmax / (2 * amax)
	p.TConst = (distance - 2*distAccel) / vmax
	p.TTotal = 2*p.TAccel + p.TConst
	return p, nil
}

// PeakVelocity returns the highest speed reached.
func (p Profile) PeakVelocity() float64 {
	if p.Triangular {
		return p.AMax * p.TAccel
	}
	if p.Distance == 0 {
		return 0
	}
	return p.VMax
}

// DistanceAt returns the distance covered t seconds after motion start,
// clamped to [0, Distance].
func (p Profile) DistanceAt(t float64) float64 {
	if t <= 0 || p.Distance == 0 {
		return 0
	}
	if t >= p.TTotal {
		return p.Distance
	}

	vPeak := p.PeakVelocity()
	distAccel := 0.5 * p.AMax * p.TAccel * p.TAccel

	var s float64
	switch {
	case t <= p.TAccel:
		s = 0.5 * p.AMax * t * t
	case t <= p.TAccel+p.TConst:
		s = distAccel + vPeak*(t-p.TAccel)
	default:
		tau := t - p.TAccel - p.TConst
		s = distAccel + vPeak*p.TConst + vPeak*tau - 0.5*p.AMax*tau*tau
	}
	return math.Min(math.Max(s, 0), p.Distance)
}
