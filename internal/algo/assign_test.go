package algo

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elektrokombinacija/fleetplan/internal/core"
	"github.com/elektrokombinacija/fleetplan/internal/observer"
)

func robotAt(id core.RobotID, base core.Pos, speed float64) *core.Robot {
	return &core.Robot{
		ID:          id,
		Base:        base,
		MaxVelocity: core.Uniform(speed),
		MaxAccel:    core.Uniform(2 * speed),
	}
}

func randomScenario(rng *rand.Rand, numRobots, numOps int) *core.Scenario {
	sc := core.NewScenario()
	randPos := func() core.Pos {
		return core.Pos{X: rng.Float64()*10 - 5, Y: rng.Float64()*10 - 5, Z: rng.Float64() * 2}
	}
	for i := 0; i < numRobots; i++ {
		sc.Robots = append(sc.Robots, robotAt(core.RobotID(i), randPos(), 0.5+rng.Float64()))
	}
	for i := 0; i < numOps; i++ {
		sc.Operations = append(sc.Operations, &core.Operation{
			ID:    core.OperationID(i),
			Pick:  randPos(),
			Place: randPos(),
			Hold:  rng.Float64(),
		})
	}
	return sc
}

func testParams() Params {
	p := DefaultParams()
	p.PopulationSize = 8
	p.Generations = 4
	return p
}

func TestAssignCoversEveryOperationOnce(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	ctx := context.Background()

	for _, method := range Methods() {
		t.Run(method, func(t *testing.T) {
			a, err := New(method, testParams(), nil)
			require.NoError(t, err)
			assert.Equal(t, method, a.Name())

			for trial := 0; trial < 12; trial++ {
				k := 1 + rng.Intn(50)
				n := rng.Intn(501)
				sc := randomScenario(rng, k, n)

				got, err := a.Assign(ctx, sc)
				require.NoError(t, err, "robots=%d ops=%d", k, n)
				require.NoError(t, got.Validate(n, k), "robots=%d ops=%d", k, n)
			}
		})
	}
}

func TestRoundRobin(t *testing.T) {
	sc := randomScenario(rand.New(rand.NewSource(3)), 3, 7)
	got, err := NewRoundRobin(nil).Assign(context.Background(), sc)
	require.NoError(t, err)
	assert.Equal(t, core.Assignment{{0, 3, 6}, {1, 4}, {2, 5}}, got)
}

func TestGreedyForcesOnePerRobotForSmallInputs(t *testing.T) {
	sc := randomScenario(rand.New(rand.NewSource(4)), 3, 2)
	for _, a := range []Assigner{NewBalanced(nil), NewDistanceBased(nil)} {
		got, err := a.Assign(context.Background(), sc)
		require.NoError(t, err)
		assert.Equal(t, core.Assignment{{0}, {1}, nil}, got, a.Name())
	}
}

func TestBalancedTiesGoToLowestIndex(t *testing.T) {
	sc := core.NewScenario()
	sc.Robots = []*core.Robot{robotAt(0, core.Pos{}, 1), robotAt(1, core.Pos{}, 1)}
	for i := 0; i < 3; i++ {
		sc.Operations = append(sc.Operations, &core.Operation{
			ID: core.OperationID(i), Pick: core.Pos{X: 1}, Place: core.Pos{X: 2}, Hold: 0.5,
		})
	}

	got, err := NewBalanced(nil).Assign(context.Background(), sc)
	require.NoError(t, err)
	assert.Equal(t, core.Assignment{{0, 2}, {1}}, got)
}

func TestBalancedCost(t *testing.T) {
	robot := robotAt(0, core.Pos{}, 2)
	op := &core.Operation{Pick: core.Pos{X: 3}, Place: core.Pos{X: 3, Y: 4}, Hold: 1.5}
	// (3 + 4) / 2 + 1.5; the hold is not divided by speed
	assert.InDelta(t, 5.0, Cost(robot, op), 1e-12)
}

func TestGeneticMakespanEstimate(t *testing.T) {
	sc := core.NewScenario()
	sc.Robots = []*core.Robot{robotAt(0, core.Pos{}, 2), robotAt(1, core.Pos{X: 10}, 1)}
	sc.Operations = []*core.Operation{
		{ID: 0, Pick: core.Pos{X: 3}, Place: core.Pos{X: 3, Y: 4}, Hold: 1.5},
		{ID: 1, Pick: core.Pos{X: 3, Y: 8}, Place: core.Pos{X: 6, Y: 8}, Hold: 0.5},
	}
	m := newFitnessModel(sc)

	// (3 + 4 + 4 + 3) / 2 + 1.5 + 0.5; holds are seconds and are not divided by speed
	assert.InDelta(t, 9.0, m.robotTime(0, []int{0, 1}), 1e-12)
	assert.Zero(t, m.robotTime(1, nil))
	assert.InDelta(t, 9.0, m.makespan([][]int{{0, 1}, {}}), 1e-12)
}

type decisionRecorder struct {
	observer.Nop
	decisions [][2]int
	fallbacks []error
	stats     []observer.GenerationStats
}

func (r *decisionRecorder) OnAssignmentDecision(_ string, op, robot int) {
	r.decisions = append(r.decisions, [2]int{op, robot})
}

func (r *decisionRecorder) OnFallback(_ string, cause error) {
	r.fallbacks = append(r.fallbacks, cause)
}

func (r *decisionRecorder) OnGeneration(s observer.GenerationStats) {
	r.stats = append(r.stats, s)
}

func TestBalancedRepairsIdleRobots(t *testing.T) {
	sc := core.NewScenario()
	sc.Robots = []*core.Robot{robotAt(0, core.Pos{}, 1), robotAt(1, core.Pos{X: 1000}, 1)}
	for i := 0; i < 4; i++ {
		sc.Operations = append(sc.Operations, &core.Operation{
			ID: core.OperationID(i), Pick: core.Pos{Y: float64(i)}, Place: core.Pos{Y: float64(i) + 0.5},
		})
	}

	rec := &decisionRecorder{}
	got, err := NewBalanced(rec).Assign(context.Background(), sc)
	require.NoError(t, err)
	assert.Equal(t, core.Assignment{{0, 1, 2}, {3}}, got)
	assert.Equal(t, [2]int{3, 1}, rec.decisions[len(rec.decisions)-1], "the moved operation is reported again")
}

func TestDistanceBasedTracksCurrentPosition(t *testing.T) {
	sc := core.NewScenario()
	sc.Robots = []*core.Robot{robotAt(0, core.Pos{}, 1), robotAt(1, core.Pos{X: 10}, 1)}
	sc.Operations = []*core.Operation{
		{ID: 0, Pick: core.Pos{X: 9}, Place: core.Pos{X: 0.5}},
		{ID: 1, Pick: core.Pos{X: 1}, Place: core.Pos{X: 5}},
		{ID: 2, Pick: core.Pos{X: 9.5}, Place: core.Pos{X: 9}},
	}

	got, err := NewDistanceBased(nil).Assign(context.Background(), sc)
	require.NoError(t, err)
	// Robot 1 takes everything greedily; the repair pass hands its last
	// operation to the idle robot 0.
	assert.Equal(t, core.Assignment{{2}, {0, 1}}, got)
}

func TestGeneticIsDeterministicForSeed(t *testing.T) {
	sc := randomScenario(rand.New(rand.NewSource(5)), 4, 30)

	p := testParams()
	p.Workers = 3
	a1, err := NewGenetic(p, nil).Assign(context.Background(), sc)
	require.NoError(t, err)
	p.Workers = 1
	a2, err := NewGenetic(p, nil).Assign(context.Background(), sc)
	require.NoError(t, err)

	assert.Equal(t, a1, a2)
}

func TestGeneticElitismNeverLosesBest(t *testing.T) {
	sc := randomScenario(rand.New(rand.NewSource(6)), 5, 40)
	rec := &decisionRecorder{}

	p := testParams()
	p.Generations = 15
	got, err := NewGenetic(p, rec).Assign(context.Background(), sc)
	require.NoError(t, err)
	require.NoError(t, got.Validate(40, 5))

	require.Len(t, rec.stats, p.Generations+1)
	for i := 1; i < len(rec.stats); i++ {
		assert.LessOrEqual(t, rec.stats[i].BestMakespan, rec.stats[i-1].BestMakespan+1e-12)
		assert.LessOrEqual(t, rec.stats[i].BestMakespan, rec.stats[i].AvgMakespan+1e-12)
		assert.LessOrEqual(t, rec.stats[i].AvgMakespan, rec.stats[i].WorstMakespan+1e-12)
	}
	assert.Len(t, rec.decisions, 40)
	assert.Empty(t, rec.fallbacks)
}

func overflowScenario() *core.Scenario {
	sc := core.NewScenario()
	sc.Robots = []*core.Robot{robotAt(0, core.Pos{}, 1), robotAt(1, core.Pos{X: 1}, 1)}
	for i := 0; i < 4; i++ {
		sc.Operations = append(sc.Operations, &core.Operation{
			ID: core.OperationID(i), Pick: core.Pos{X: 1e308}, Place: core.Pos{X: -1e308},
		})
	}
	return sc
}

func TestGeneticFallsBackToBalanced(t *testing.T) {
	sc := overflowScenario()
	rec := &decisionRecorder{}

	got, err := NewGenetic(testParams(), rec).Assign(context.Background(), sc)
	require.NoError(t, err)
	require.Len(t, rec.fallbacks, 1)
	assert.ErrorIs(t, rec.fallbacks[0], errNonFiniteFitness)

	want, err := NewBalanced(nil).Assign(context.Background(), sc)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestGeneticWithoutFallback(t *testing.T) {
	g := NewGenetic(testParams(), nil)
	g.Fallback = NoFallback{}

	_, err := g.Assign(context.Background(), overflowScenario())
	require.ErrorIs(t, err, core.ErrAssignmentFailure)
	assert.ErrorIs(t, err, errNonFiniteFitness)
}

func TestGeneticCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewGenetic(testParams(), nil).Assign(ctx, randomScenario(rand.New(rand.NewSource(8)), 2, 5))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGeneticEmptyOperations(t *testing.T) {
	sc := randomScenario(rand.New(rand.NewSource(9)), 3, 0)
	got, err := NewGenetic(testParams(), nil).Assign(context.Background(), sc)
	require.NoError(t, err)
	assert.Equal(t, core.Assignment{nil, nil, nil}, got)
}

func TestNewRejectsBadInput(t *testing.T) {
	_, err := New("simulated_annealing", DefaultParams(), nil)
	assert.ErrorIs(t, err, core.ErrInvalidParameter)

	bad := []func(*Params){
		func(p *Params) { p.PopulationSize = 0 },
		func(p *Params) { p.Generations = -1 },
		func(p *Params) { p.CrossoverRate = 1.5 },
		func(p *Params) { p.MutationRate = -0.1 },
		func(p *Params) { p.TournamentSize = 0 },
	}
	for i, mutate := range bad {
		p := DefaultParams()
		mutate(&p)
		_, err := New(MethodGenetic, p, nil)
		assert.ErrorIs(t, err, core.ErrInvalidParameter, "case %d", i)
	}

	a, err := New(" Balanced ", DefaultParams(), nil)
	require.NoError(t, err)
	assert.Equal(t, MethodBalanced, a.Name())
}

func TestAssignmentValidate(t *testing.T) {
	assert.NoError(t, core.Assignment{{1}, {0, 2}}.Validate(3, 2))
	assert.ErrorIs(t, core.Assignment{{1}, {0, 1}}.Validate(3, 2), core.ErrAssignmentFailure)
	assert.ErrorIs(t, core.Assignment{{1}, {0}}.Validate(3, 2), core.ErrAssignmentFailure)
	assert.ErrorIs(t, core.Assignment{{1}, {0, 3}}.Validate(3, 2), core.ErrAssignmentFailure)
	assert.ErrorIs(t, core.Assignment{{0, 1, 2}}.Validate(3, 2), core.ErrAssignmentFailure)
}
