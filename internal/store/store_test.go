package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elektrokombinacija/fleetplan/internal/logger"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "bench.db"), logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRecordAndList(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	rows := []*BenchmarkRun{
		{RunID: "a", Scenario: "cell", Method: "balanced", Robots: 2, Operations: 4, Makespan: 10, RuntimeMs: 1, Success: true},
		{RunID: "a", Scenario: "cell", Method: "genetic", Robots: 2, Operations: 4, Makespan: 8, RuntimeMs: 30, Success: true},
		{RunID: "b", Scenario: "cell", Method: "balanced", Robots: 2, Operations: 4, Makespan: 12, RuntimeMs: 3, Success: true},
		{RunID: "b", Scenario: "bad", Method: "genetic", Success: false, Error: "invalid scenario"},
	}
	for _, r := range rows {
		require.NoError(t, s.Record(ctx, r))
		assert.NotEqual(t, uuid.Nil, r.ID)
	}

	runs, err := s.Runs(ctx, "a")
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, rows[0].ID, runs[0].ID)
	assert.Equal(t, "genetic", runs[1].Method)
	assert.Equal(t, 8.0, runs[1].Makespan)

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	require.Len(t, stats, 2)
	assert.Equal(t, MethodStats{Method: "balanced", Runs: 2, MeanMakespan: 11, MeanRuntime: 2}, stats[0])
	assert.Equal(t, "genetic", stats[1].Method)
	assert.Equal(t, 1, stats[1].Runs)
}

func TestRecordKeepsExplicitID(t *testing.T) {
	s := openTestStore(t)
	id := uuid.New()
	run := &BenchmarkRun{ID: id, RunID: "x", Method: "round_robin", Success: true}
	require.NoError(t, s.Record(context.Background(), run))

	runs, err := s.Runs(context.Background(), "x")
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, id, runs[0].ID)

	assert.Error(t, s.Record(context.Background(), &BenchmarkRun{ID: id}), "duplicate primary key")
}
