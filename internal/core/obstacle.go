package core

import (
	"fmt"
	"math"
)

// ObstacleKind classifies static obstacle shapes.
type ObstacleKind string

const (
	ObstacleSphere ObstacleKind = "sphere"
	ObstacleBox    ObstacleKind = "box"
)

// Obstacle is a static volume robots must keep clear of.
type Obstacle struct {
	ID     int
	Kind   ObstacleKind
	Center Pos
	Radius float64 // Sphere radius
	Size   Pos     // Box dimensions (full edge lengths)
}

// EffectiveRadius returns the bounding sphere radius. Boxes are approximated
// by half their space diagonal.
func (o *Obstacle) EffectiveRadius() float64 {
	switch o.Kind {
	case ObstacleBox:
		return o.Size.Vec().Norm() / 2
	default:
		return o.Radius
	}
}

func (o *Obstacle) validate() []error {
	var errs []error
	if !o.Center.IsFinite() {
		errs = append(errs, fmt.Errorf("obstacle %d: center is not finite", o.ID))
	}
	switch o.Kind {
	case ObstacleSphere:
		if o.Radius < 0 || math.IsNaN(o.Radius) {
			errs = append(errs, fmt.Errorf("obstacle %d: negative radius %v", o.ID, o.Radius))
		}
	case ObstacleBox:
		if !o.Size.IsFinite() || o.Size.X < 0 || o.Size.Y < 0 || o.Size.Z < 0 {
			errs = append(errs, fmt.Errorf("obstacle %d: invalid box size %+v", o.ID, o.Size))
		}
	default:
		errs = append(errs, fmt.Errorf("obstacle %d: unknown kind %q", o.ID, o.Kind))
	}
	return errs
}
