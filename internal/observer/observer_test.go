package observer

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/elektrokombinacija/fleetplan/internal/core"
	"github.com/elektrokombinacija/fleetplan/internal/logger"
	"github.com/elektrokombinacija/fleetplan/internal/metrics"
)

type recorder struct {
	Nop
	events []string
}

func (r *recorder) OnFallback(method string, _ error) {
	r.events = append(r.events, "fallback:"+method)
}

func (r *recorder) OnPauseInserted(core.RobotID, float64, float64) {
	r.events = append(r.events, "pause")
}

func TestOrNop(t *testing.T) {
	assert.Equal(t, Nop{}, OrNop(nil))
	rec := &recorder{}
	assert.Same(t, rec, OrNop(rec))
}

func TestMultiFansOutInOrder(t *testing.T) {
	a, b := &recorder{}, &recorder{}
	m := Multi{a, NewLog(logger.Nop()), b}

	m.OnFallback("genetic", errors.New("boom"))
	m.OnPauseInserted(1, 0.5, 1)
	m.OnCollision(core.Collision{RobotA: 0, RobotB: 1})

	assert.Equal(t, []string{"fallback:genetic", "pause"}, a.events)
	assert.Equal(t, a.events, b.events)
}

func TestMetricsObserverCounts(t *testing.T) {
	obs := NewMetrics()

	decisions := testutil.ToFloat64(metrics.AssignmentDecisions.WithLabelValues("round_robin"))
	robot := testutil.ToFloat64(metrics.Collisions.WithLabelValues("robot"))
	obstacle := testutil.ToFloat64(metrics.Collisions.WithLabelValues("obstacle"))
	pauses := testutil.ToFloat64(metrics.PausesInserted)

	obs.OnAssignmentDecision("round_robin", 0, 0)
	obs.OnAssignmentDecision("round_robin", 1, 1)
	obs.OnCollision(core.Collision{RobotA: 0, RobotB: 1})
	obs.OnCollision(core.Collision{RobotA: 0, RobotB: core.ObstacleID})
	obs.OnPauseInserted(0, 1, 1)
	obs.OnGeneration(GenerationStats{Generation: 3, BestMakespan: 12.5})

	assert.Equal(t, decisions+2, testutil.ToFloat64(metrics.AssignmentDecisions.WithLabelValues("round_robin")))
	assert.Equal(t, robot+1, testutil.ToFloat64(metrics.Collisions.WithLabelValues("robot")))
	assert.Equal(t, obstacle+1, testutil.ToFloat64(metrics.Collisions.WithLabelValues("obstacle")))
	assert.Equal(t, pauses+1, testutil.ToFloat64(metrics.PausesInserted))
	assert.Equal(t, 12.5, testutil.ToFloat64(metrics.GABestMakespan))
}
