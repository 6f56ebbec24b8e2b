package core

// CarryInterval is a window during which an object follows a robot's TCP.
type CarryInterval struct {
	Robot RobotID
	Start float64
	End   float64
}

// Object is a demonstration payload moved by the fleet.
type Object struct {
	ID             int
	Name           string
	Operation      OperationID
	Initial        Pos
	CarryIntervals []CarryInterval // Sorted by Start, non-overlapping
}

// PositionAt resolves where the object is at time t. Between intervals it
// rests where its last carrier released it.
func (o *Object) PositionAt(p *Plan, t float64) Pos {
	pos := o.Initial
	for _, iv := range o.CarryIntervals {
		if t < iv.Start {
			break
		}
		rp := p.RobotPlan(iv.Robot)
		if rp == nil {
			break
		}
		at := iv.End
		if t < iv.End {
			at = t
		}
		if tcp, ok := rp.Trajectory.PositionAt(at); ok {
			pos = tcp
		}
	}
	return pos
}

// CarrierAt returns the robot carrying the object at time t.
func (o *Object) CarrierAt(t float64) (RobotID, bool) {
	for _, iv := range o.CarryIntervals {
		if t >= iv.Start && t <= iv.End {
			return iv.Robot, true
		}
	}
	return 0, false
}
