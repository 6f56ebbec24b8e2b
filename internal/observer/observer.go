// Package observer provides hooks for watching planning algorithms run.
//
// Algorithms never log or count on their own; callers inject an Observer.
// Implementations must be safe for concurrent use because trajectory planning
// and collision detection fan out across goroutines.
package observer

import (
	"github.com/elektrokombinacija/fleetplan/internal/core"
)

// GenerationStats summarises one genetic algorithm generation.
type GenerationStats struct {
	Generation    int
	BestMakespan  float64
	WorstMakespan float64
	AvgMakespan   float64
}

// Observer is the interface for observing planning execution.
type Observer interface {
	// OnAssignmentDecision is called when an operation index is bound to a robot index.
	OnAssignmentDecision(method string, opIndex, robotIndex int)

	// OnGeneration is called after each genetic generation is evaluated.
	OnGeneration(stats GenerationStats)

	// OnFallback is called when a strategy fails and a fallback strategy takes over.
	OnFallback(method string, cause error)

	// OnUnreachable is called when a target lies outside a robot's coarse envelope.
	OnUnreachable(robot core.RobotID, op core.OperationID, target core.Pos)

	// OnTrajectoryPlanned is called once per robot trajectory.
	OnTrajectoryPlanned(robot core.RobotID, waypoints int, end float64)

	// OnCollision is called for each detected clearance violation.
	OnCollision(c core.Collision)

	// OnPauseInserted is called when the safety pass pauses a robot.
	OnPauseInserted(robot core.RobotID, at, duration float64)
}

// Nop ignores every event. Embed it to implement a subset of Observer.
type Nop struct{}

func (Nop) OnAssignmentDecision(string, int, int)                  {}
func (Nop) OnGeneration(GenerationStats)                           {}
func (Nop) OnFallback(string, error)                               {}
func (Nop) OnUnreachable(core.RobotID, core.OperationID, core.Pos) {}
func (Nop) OnTrajectoryPlanned(core.RobotID, int, float64)         {}
func (Nop) OnCollision(core.Collision)                             {}
func (Nop) OnPauseInserted(core.RobotID, float64, float64)         {}

// OrNop returns o, or Nop when o is nil.
func OrNop(o Observer) Observer {
	if o == nil {
		return Nop{}
	}
	return o
}

// Multi fans events out to several observers in order.
type Multi []Observer

func (m Multi) OnAssignmentDecision(method string, opIndex, robotIndex int) {
	for _, o := range m {
		o.OnAssignmentDecision(method, opIndex, robotIndex)
	}
}

func (m Multi) OnGeneration(stats GenerationStats) {
	for _, o := range m {
		o.OnGeneration(stats)
	}
}

func (m Multi) OnFallback(method string, cause error) {
	for _, o := range m {
		o.OnFallback(method, cause)
	}
}

func (m Multi) OnUnreachable(robot core.RobotID, op core.OperationID, target core.Pos) {
	for _, o := range m {
		o.OnUnreachable(robot, op, target)
	}
}

func (m Multi) OnTrajectoryPlanned(robot core.RobotID, waypoints int, end float64) {
	for _, o := range m {
		o.OnTrajectoryPlanned(robot, waypoints, end)
	}
}

func (m Multi) OnCollision(c core.Collision) {
	for _, o := range m {
		o.OnCollision(c)
	}
}

func (m Multi) OnPauseInserted(robot core.RobotID, at, duration float64) {
	for _, o := range m {
		o.OnPauseInserted(robot, at, duration)
	}
}
