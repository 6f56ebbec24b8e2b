package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionWiresWorkerLimits(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	chdir(t, t.TempDir())
	t.Setenv("FLEETPLAN_MOTION_WORKERS", "2")
	t.Setenv("FLEETPLAN_COLLISION_WORKERS", "3")
	t.Setenv("FLEETPLAN_LOG_MODE", "prod")

	a := wireApp()
	s, err := a.start(newPlanCmd(a))
	require.NoError(t, err)
	defer s.log.Sync()

	assert.Equal(t, 2, s.planner().Workers)
	assert.Equal(t, 3, s.detector().Workers)

	asm, err := s.assembler("round_robin")
	require.NoError(t, err)
	assert.Equal(t, 2, asm.Planner.Workers)
}
