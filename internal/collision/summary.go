package collision

import (
	"math"
	"sort"

	"github.com/elektrokombinacija/fleetplan/internal/core"
)

// Summary aggregates a list of collision records.
type Summary struct {
	Total         int
	RobotRobot    int
	RobotObstacle int
	Start         float64 // Earliest record time; 0 when empty
	End           float64 // Latest record time; 0 when empty
	Robots        []core.RobotID
}

// Span returns End - Start.
func (s Summary) Span() float64 {
	return s.End - s.Start
}

// Summarize counts records by kind, measures the covered time span, and
// lists every robot involved in ascending id order.
func Summarize(collisions []core.Collision) Summary {
	s := Summary{Total: len(collisions)}
	if len(collisions) == 0 {
		return s
	}

	s.Start, s.End = math.Inf(1), math.Inf(-1)
	involved := make(map[core.RobotID]bool)
	for _, c := range collisions {
		if c.IsObstacle() {
			s.RobotObstacle++
		} else {
			s.RobotRobot++
			involved[c.RobotB] = true
		}
		involved[c.RobotA] = true
		s.Start = math.Min(s.Start, c.Time)
		s.End = math.Max(s.End, c.Time)
	}

	s.Robots = make([]core.RobotID, 0, len(involved))
	for id := range involved {
		s.Robots = append(s.Robots, id)
	}
	sort.Slice(s.Robots, func(i, j int) bool { return s.Robots[i] < s.Robots[j] })
	return s
}
