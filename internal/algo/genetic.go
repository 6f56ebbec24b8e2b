package algo

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"

	"golang.org/x/sync/errgroup"

	"github.com/elektrokombinacija/fleetplan/internal/core"
	"github.com/elektrokombinacija/fleetplan/internal/observer"
)

// fitnessEpsilon keeps fitness finite for a zero makespan.
const fitnessEpsilon = 1e-3

var errNonFiniteFitness = errors.New("non-finite fitness")

// Genetic searches assignment partitions with a generational genetic
// algorithm: tournament selection, single-point crossover over the robot
// dimension, move mutation and single-individual elitism. It runs a fixed
// number of generations; a context deadline ends the search early with the
// best partition found so far.
type Genetic struct {
	Params
	Fallback FallbackPolicy
	Observer observer.Observer
}

// NewGenetic creates a genetic assigner that falls back to Balanced.
func NewGenetic(params Params, obs observer.Observer) *Genetic {
	obs = observer.OrNop(obs)
	return &Genetic{
		Params:   params,
		Fallback: BalancedFallback{Observer: obs},
		Observer: obs,
	}
}

// Name returns the method name.
func (g *Genetic) Name() string { return MethodGenetic }

func (g *Genetic) validate() error {
	switch {
	case g.PopulationSize < 1:
		return fmt.Errorf("%w: population size %d must be at least 1", core.ErrInvalidParameter, g.PopulationSize)
	case g.Generations < 0:
		return fmt.Errorf("%w: generations %d must not be negative", core.ErrInvalidParameter, g.Generations)
	case !(g.CrossoverRate >= 0 && g.CrossoverRate <= 1):
		return fmt.Errorf("%w: crossover rate %v outside [0, 1]", core.ErrInvalidParameter, g.CrossoverRate)
	case !(g.MutationRate >= 0 && g.MutationRate <= 1):
		return fmt.Errorf("%w: mutation rate %v outside [0, 1]", core.ErrInvalidParameter, g.MutationRate)
	case g.TournamentSize < 1:
		return fmt.Errorf("%w: tournament size %d must be at least 1", core.ErrInvalidParameter, g.TournamentSize)
	}
	return nil
}

// Assign implements Assigner. Search faults are handed to the fallback
// policy; invalid parameters and cancellation are returned as is.
func (g *Genetic) Assign(ctx context.Context, sc *core.Scenario) (core.Assignment, error) {
	if len(sc.Robots) == 0 {
		return nil, errNoRobots
	}
	if err := g.validate(); err != nil {
		return nil, err
	}

	searchCtx := ctx
	if g.TimeBudget > 0 {
		var cancel context.CancelFunc
		searchCtx, cancel = context.WithTimeout(ctx, g.TimeBudget)
		defer cancel()
	}

	a, err := g.evolve(searchCtx, sc)
	if err == nil {
		err = a.Validate(len(sc.Operations), len(sc.Robots))
	}
	if err == nil {
		obs := observer.OrNop(g.Observer)
		for r, ops := range a {
			for _, op := range ops {
				obs.OnAssignmentDecision(MethodGenetic, op, r)
			}
		}
		return a, nil
	}
	if errors.Is(err, context.Canceled) || ctx.Err() != nil {
		return nil, err
	}

	observer.OrNop(g.Observer).OnFallback(MethodGenetic, err)
	policy := g.Fallback
	if policy == nil {
		policy = NoFallback{}
	}
	return policy.Fallback(ctx, sc, err)
}

// individual is one partition of operation indices across robots.
// Each individual owns its genes; parents and children never share slices.
type individual struct {
	genes     [][]int
	makespan  float64
	fitness   float64
	evaluated bool
}

func (ind *individual) clone() *individual {
	out := *ind
	out.genes = make([][]int, len(ind.genes))
	for r, ops := range ind.genes {
		out.genes[r] = append([]int(nil), ops...)
	}
	return &out
}

func (ind *individual) invalidate() {
	ind.evaluated = false
	ind.makespan, ind.fitness = 0, 0
}

// fitnessModel estimates a partition's makespan from straight-line travel.
type fitnessModel struct {
	bases  []core.Pos
	speeds []float64
	ops    []*core.Operation
}

func newFitnessModel(sc *core.Scenario) *fitnessModel {
	m := &fitnessModel{
		bases:  make([]core.Pos, len(sc.Robots)),
		speeds: make([]float64, len(sc.Robots)),
		ops:    sc.Operations,
	}
	for r, robot := range sc.Robots {
		m.bases[r] = robot.Base
		m.speeds[r] = robot.Speed()
	}
	return m
}

// robotTime is the busy time of robot r executing ops in order.
func (m *fitnessModel) robotTime(r int, ops []int) float64 {
	travel, hold := 0.0, 0.0
	pos := m.bases[r]
	for _, i := range ops {
		op := m.ops[i]
		travel += core.Distance(pos, op.Pick) + op.TravelDistance()
		hold += op.Hold
		pos = op.Place
	}
	return travel/m.speeds[r] + hold
}

func (m *fitnessModel) makespan(genes [][]int) float64 {
	worst := 0.0
	for r, ops := range genes {
		if t := m.robotTime(r, ops); t > worst || math.IsNaN(t) {
			worst = t
		}
	}
	return worst
}

// evaluate scores every individual without a cached fitness.
func (g *Genetic) evaluate(ctx context.Context, m *fitnessModel, pop []*individual) error {
	eg, ctx := errgroup.WithContext(ctx)
	if g.Workers > 0 {
		eg.SetLimit(g.Workers)
	}
	for _, ind := range pop {
		ind := ind
		if ind.evaluated {
			continue
		}
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			ms := m.makespan(ind.genes)
			if math.IsNaN(ms) || math.IsInf(ms, 0) {
				return fmt.Errorf("%w: makespan %v", errNonFiniteFitness, ms)
			}
			ind.makespan = ms
			ind.fitness = 1 / (ms + fitnessEpsilon)
			ind.evaluated = true
			return nil
		})
	}
	return eg.Wait()
}

func (g *Genetic) evolve(ctx context.Context, sc *core.Scenario) (core.Assignment, error) {
	n, k := len(sc.Operations), len(sc.Robots)
	if n == 0 {
		return core.NewAssignment(k), nil
	}

	obs := observer.OrNop(g.Observer)
	rng := rand.New(rand.NewSource(g.Seed))
	m := newFitnessModel(sc)

	pop := make([]*individual, g.PopulationSize)
	for i := range pop {
		genes := make([][]int, k)
		for op := 0; op < n; op++ {
			r := rng.Intn(k)
			genes[r] = append(genes[r], op)
		}
		pop[i] = &individual{genes: genes}
	}
	if err := g.evaluate(ctx, m, pop); err != nil {
		return nil, err
	}
	best := fittest(pop)
	obs.OnGeneration(populationStats(0, pop))

	for gen := 1; gen <= g.Generations; gen++ {
		if err := ctx.Err(); err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				break
			}
			return nil, err
		}

		parents := make([]*individual, g.PopulationSize)
		for i := range parents {
			parents[i] = g.tournament(rng, pop)
		}

		next := make([]*individual, 0, g.PopulationSize+2)
		next = append(next, best.clone())
		for i := 0; i < len(parents); i += 2 {
			p1, p2 := parents[i], parents[(i+1)%len(parents)]
			var c1, c2 *individual
			if rng.Float64() < g.CrossoverRate {
				c1, c2 = crossover(rng, m, p1, p2)
			} else {
				c1, c2 = p1.clone(), p2.clone()
			}
			for _, c := range [...]*individual{c1, c2} {
				if rng.Float64() < g.MutationRate {
					mutate(rng, c)
				}
				next = append(next, c)
			}
		}
		pop = next[:g.PopulationSize]

		if err := g.evaluate(ctx, m, pop); err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				break
			}
			return nil, err
		}
		best = fittest(pop)
		obs.OnGeneration(populationStats(gen, pop))
	}

	return core.Assignment(best.clone().genes), nil
}

// fittest returns the highest-fitness evaluated individual; ties go to the
// lowest index.
func fittest(pop []*individual) *individual {
	var best *individual
	for _, ind := range pop {
		if !ind.evaluated {
			continue
		}
		if best == nil || ind.fitness > best.fitness {
			best = ind
		}
	}
	return best
}

func populationStats(gen int, pop []*individual) observer.GenerationStats {
	stats := observer.GenerationStats{Generation: gen, BestMakespan: math.Inf(1)}
	sum := 0.0
	for _, ind := range pop {
		stats.BestMakespan = math.Min(stats.BestMakespan, ind.makespan)
		stats.WorstMakespan = math.Max(stats.WorstMakespan, ind.makespan)
		sum += ind.makespan
	}
	stats.AvgMakespan = sum / float64(len(pop))
	return stats
}

func (g *Genetic) tournament(rng *rand.Rand, pop []*individual) *individual {
	best := pop[rng.Intn(len(pop))]
	for i := 1; i < g.TournamentSize; i++ {
		if c := pop[rng.Intn(len(pop))]; c.fitness > best.fitness {
			best = c
		}
	}
	return best
}

// crossover swaps whole robot lists after a random cut point. Parents are
// patched first so every operation is present; children are repaired after.
func crossover(rng *rand.Rand, m *fitnessModel, p1, p2 *individual) (*individual, *individual) {
	a, b := patchMissing(p1, len(m.ops)), patchMissing(p2, len(m.ops))
	k := len(a.genes)
	if k < 2 {
		return a, b
	}

	cut := 1 + rng.Intn(k-1)
	c1 := &individual{genes: make([][]int, k)}
	c2 := &individual{genes: make([][]int, k)}
	for r := 0; r < k; r++ {
		if r < cut {
			c1.genes[r], c2.genes[r] = a.genes[r], b.genes[r]
		} else {
			c1.genes[r], c2.genes[r] = b.genes[r], a.genes[r]
		}
	}
	repairChild(c1, m)
	repairChild(c2, m)
	return c1, c2
}

// patchMissing returns a copy of p with absent operation indices appended to robot 0.
func patchMissing(p *individual, numOps int) *individual {
	out := p.clone()
	present := make([]bool, numOps)
	for _, ops := range out.genes {
		for _, op := range ops {
			present[op] = true
		}
	}
	for op, ok := range present {
		if !ok {
			out.genes[0] = append(out.genes[0], op)
			out.invalidate()
		}
	}
	return out
}

// repairChild drops repeated operations, keeping the first occurrence in robot
// order, and appends each missing operation to the robot that would finish it
// earliest.
func repairChild(c *individual, m *fitnessModel) {
	seen := make([]bool, len(m.ops))
	for r, ops := range c.genes {
		kept := ops[:0:0]
		for _, op := range ops {
			if !seen[op] {
				seen[op] = true
				kept = append(kept, op)
			}
		}
		c.genes[r] = kept
	}

	busy := make([]float64, len(c.genes))
	last := make([]core.Pos, len(c.genes))
	for r, ops := range c.genes {
		busy[r] = m.robotTime(r, ops)
		last[r] = m.bases[r]
		if len(ops) > 0 {
			last[r] = m.ops[ops[len(ops)-1]].Place
		}
	}
	for i, ok := range seen {
		if ok {
			continue
		}
		op := m.ops[i]
		best, bestTime := 0, 0.0
		for r := range c.genes {
			t := busy[r] + (core.Distance(last[r], op.Pick)+op.TravelDistance())/m.speeds[r] + op.Hold
			if r == 0 || t < bestTime {
				best, bestTime = r, t
			}
		}
		c.genes[best] = append(c.genes[best], i)
		busy[best], last[best] = bestTime, op.Place
	}
	c.invalidate()
}

// mutate moves one uniformly chosen (robot, operation) pair to the end of a
// uniformly chosen robot's list.
func mutate(rng *rand.Rand, c *individual) {
	total := 0
	for _, ops := range c.genes {
		total += len(ops)
	}
	if total == 0 {
		return
	}

	idx := rng.Intn(total)
	for r, ops := range c.genes {
		if idx >= len(ops) {
			idx -= len(ops)
			continue
		}
		op := ops[idx]
		c.genes[r] = append(ops[:idx:idx], ops[idx+1:]...)
		dst := rng.Intn(len(c.genes))
		c.genes[dst] = append(c.genes[dst], op)
		break
	}
	c.invalidate()
}
