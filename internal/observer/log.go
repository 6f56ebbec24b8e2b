package observer

import (
	"github.com/elektrokombinacija/fleetplan/internal/core"
	"github.com/elektrokombinacija/fleetplan/internal/logger"
)

// Log writes events to a structured logger. Per-decision and per-collision
// events go to debug; fallbacks and unreachable targets are warnings.
type Log struct {
	log *logger.Logger
}

// NewLog creates a logging observer.
func NewLog(l *logger.Logger) *Log {
	return &Log{log: l}
}

func (o *Log) OnAssignmentDecision(method string, opIndex, robotIndex int) {
	o.log.Debug("operation assigned", "method", method, "op_index", opIndex, "robot_index", robotIndex)
}

func (o *Log) OnGeneration(stats GenerationStats) {
	o.log.Debug("generation evaluated",
		"generation", stats.Generation,
		"best_makespan", stats.BestMakespan,
		"avg_makespan", stats.AvgMakespan,
		"worst_makespan", stats.WorstMakespan,
	)
}

func (o *Log) OnFallback(method string, cause error) {
	o.log.Warn("assignment fell back to balanced strategy", "method", method, "error", cause)
}

func (o *Log) OnUnreachable(robot core.RobotID, op core.OperationID, target core.Pos) {
	o.log.Warn("target outside coarse reach envelope",
		"robot_id", int(robot), "operation_id", int(op),
		"x", target.X, "y", target.Y, "z", target.Z,
	)
}

func (o *Log) OnTrajectoryPlanned(robot core.RobotID, waypoints int, end float64) {
	o.log.Debug("trajectory planned", "robot_id", int(robot), "waypoints", waypoints, "end", end)
}

func (o *Log) OnCollision(c core.Collision) {
	o.log.Debug("collision detected",
		"robot_a", int(c.RobotA), "robot_b", int(c.RobotB), "t", c.Time,
		"distance", c.Distance, "min_distance", c.MinDistance,
	)
}

func (o *Log) OnPauseInserted(robot core.RobotID, at, duration float64) {
	o.log.Info("pause inserted", "robot_id", int(robot), "t", at, "duration", duration)
}
