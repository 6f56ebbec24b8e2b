package core

import "sort"

// Waypoint is a TCP position at a specific time.
type Waypoint struct {
	T float64
	Pos
}

// Trajectory is a time-ordered sequence of waypoints.
type Trajectory []Waypoint

// Start returns the first timestamp, or 0 for an empty trajectory.
func (tr Trajectory) Start() float64 {
	if len(tr) == 0 {
		return 0
	}
	return tr[0].T
}

// End returns the final timestamp, or 0 for an empty trajectory.
func (tr Trajectory) End() float64 {
	if len(tr) == 0 {
		return 0
	}
	return tr[len(tr)-1].T
}

// IsTimeOrdered reports whether timestamps are non-decreasing.
func (tr Trajectory) IsTimeOrdered() bool {
	for i := 1; i < len(tr); i++ {
		if tr[i].T < tr[i-1].T {
			return false
		}
	}
	return true
}

// Clone returns an independent copy.
func (tr Trajectory) Clone() Trajectory {
	if tr == nil {
		return nil
	}
	out := make(Trajectory, len(tr))
	copy(out, tr)
	return out
}

// Length returns the travelled path length.
func (tr Trajectory) Length() float64 {
	total := 0.0
	for i := 1; i < len(tr); i++ {
		total += Distance(tr[i-1].Pos, tr[i].Pos)
	}
	return total
}

// PositionAt returns the TCP position at time t via linear interpolation.
// Outside the trajectory's time range the first/last waypoint is held.
func (tr Trajectory) PositionAt(t float64) (Pos, bool) {
	if len(tr) == 0 {
		return Pos{}, false
	}

	// Before path start
	if t <= tr[0].T {
		return tr[0].Pos, true
	}

	// After path end - stay at last position
	last := tr[len(tr)-1]
	if t >= last.T {
		return last.Pos, true
	}

	// First waypoint strictly after t; tr[i-1].T <= t < tr[i].T
	i := sort.Search(len(tr), func(k int) bool { return tr[k].T > t })
	a, b := tr[i-1], tr[i]
	if a.T == t {
		return a.Pos, true
	}
	span := b.T - a.T
	if span <= 0 {
		return b.Pos, true
	}
	return Lerp(a.Pos, b.Pos, (t-a.T)/span), true
}

// CalculateMakespan returns the latest final timestamp across trajectories.
func CalculateMakespan(trajectories []Trajectory) float64 {
	maxT := 0.0
	for _, tr := range trajectories {
		if len(tr) == 0 {
			continue
		}
		if end := tr.End(); end > maxT {
			maxT = end
		}
	}
	return maxT
}
