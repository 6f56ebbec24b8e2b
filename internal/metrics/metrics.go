// Package metrics holds the Prometheus collectors for planning runs.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Registry is the dedicated Prometheus registry for fleetplan
	Registry = prometheus.NewRegistry()

	// AssignmentDecisions counts operation-to-robot decisions by method
	AssignmentDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "fleetplan_assignment_decisions_total", Help: "Operation-to-robot assignment decisions."},
		[]string{"method"},
	)
	// AssignmentFallbacks counts genetic runs that fell back to another strategy
	AssignmentFallbacks = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "fleetplan_assignment_fallbacks_total", Help: "Assignment fallbacks by failing method."},
		[]string{"method"},
	)
	// GAGenerations counts completed genetic generations
	GAGenerations = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "fleetplan_ga_generations_total", Help: "Completed genetic algorithm generations."},
	)
	// GABestMakespan tracks the best estimated makespan of the latest generation
	GABestMakespan = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "fleetplan_ga_best_makespan_seconds", Help: "Best estimated makespan in the latest generation."},
	)
	// TrajectoryWaypoints records waypoint counts per planned robot trajectory
	TrajectoryWaypoints = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "fleetplan_trajectory_waypoints", Help: "Waypoints per robot trajectory.", Buckets: []float64{1, 10, 50, 100, 500, 1000, 5000}},
	)
	// Collisions counts detected clearance violations by peer kind
	Collisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "fleetplan_collisions_total", Help: "Detected clearance violations by kind."},
		[]string{"kind"},
	)
	// PausesInserted counts safety pauses
	PausesInserted = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "fleetplan_pauses_inserted_total", Help: "Safety pauses inserted into trajectories."},
	)
	// UnreachableTargets counts targets outside the coarse reach envelope
	UnreachableTargets = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "fleetplan_unreachable_targets_total", Help: "Targets outside a robot's coarse reach envelope."},
	)
)

// RegisterDefault registers collectors to the fleetplan registry.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(AssignmentDecisions)
		Registry.MustRegister(AssignmentFallbacks)
		Registry.MustRegister(GAGenerations)
		Registry.MustRegister(GABestMakespan)
		Registry.MustRegister(TrajectoryWaypoints)
		Registry.MustRegister(Collisions)
		Registry.MustRegister(PausesInserted)
		Registry.MustRegister(UnreachableTargets)
		Registry.MustRegister(collectors.NewGoCollector())
	})
}

// WriteTextfile writes the registry in the Prometheus text format.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, Registry)
}

var regOnce sync.Once
