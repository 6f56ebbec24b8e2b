package observer

import (
	"github.com/elektrokombinacija/fleetplan/internal/core"
	"github.com/elektrokombinacija/fleetplan/internal/metrics"
)

// Metrics records events into the Prometheus collectors of package metrics.
type Metrics struct{}

// NewMetrics registers the default collectors and returns the observer.
func NewMetrics() Metrics {
	metrics.RegisterDefault()
	return Metrics{}
}

func (Metrics) OnAssignmentDecision(method string, _, _ int) {
	metrics.AssignmentDecisions.WithLabelValues(method).Inc()
}

func (Metrics) OnGeneration(stats GenerationStats) {
	metrics.GAGenerations.Inc()
	metrics.GABestMakespan.Set(stats.BestMakespan)
}

func (Metrics) OnFallback(method string, _ error) {
	metrics.AssignmentFallbacks.WithLabelValues(method).Inc()
}

func (Metrics) OnUnreachable(core.RobotID, core.OperationID, core.Pos) {
	metrics.UnreachableTargets.Inc()
}

func (Metrics) OnTrajectoryPlanned(_ core.RobotID, waypoints int, _ float64) {
	metrics.TrajectoryWaypoints.Observe(float64(waypoints))
}

func (Metrics) OnCollision(c core.Collision) {
	kind := "robot"
	if c.IsObstacle() {
		kind = "obstacle"
	}
	metrics.Collisions.WithLabelValues(kind).Inc()
}

func (Metrics) OnPauseInserted(core.RobotID, float64, float64) {
	metrics.PausesInserted.Inc()
}
