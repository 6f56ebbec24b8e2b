// Package core defines domain models for fleet pick-and-place planning.
package core

import (
	"math"

	"github.com/golang/geo/r3"
)

// TimeTolerance for floating-point time comparison.
const TimeTolerance = 0.001

// PosTolerance for floating-point position comparison (metres).
const PosTolerance = 1e-3

// Pos represents a 3D position.
type Pos struct {
	X, Y, Z float64
}

// Vec converts the position to an r3 vector.
func (p Pos) Vec() r3.Vector {
	return r3.Vector{X: p.X, Y: p.Y, Z: p.Z}
}

// PosFromVec converts an r3 vector back to a position.
func PosFromVec(v r3.Vector) Pos {
	return Pos{X: v.X, Y: v.Y, Z: v.Z}
}

// IsFinite reports whether all coordinates are finite numbers.
func (p Pos) IsFinite() bool {
	for _, c := range [...]float64{p.X, p.Y, p.Z} {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

// Distance returns the Euclidean distance between two positions.
func Distance(a, b Pos) float64 {
	return a.Vec().Distance(b.Vec())
}

// Lerp interpolates linearly between a and b; f=0 yields a, f=1 yields b.
func Lerp(a, b Pos, f float64) Pos {
	av := a.Vec()
	return PosFromVec(av.Add(b.Vec().Sub(av).Mul(f)))
}

// SamePos compares positions within PosTolerance.
func SamePos(a, b Pos) bool {
	return Distance(a, b) < PosTolerance
}

// TimeEqual compares times with tolerance.
func TimeEqual(t1, t2 float64) bool {
	return math.Abs(t1-t2) < TimeTolerance
}
