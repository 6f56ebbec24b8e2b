// Package algo implements operation-to-robot assignment strategies.
package algo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/elektrokombinacija/fleetplan/internal/core"
	"github.com/elektrokombinacija/fleetplan/internal/observer"
)

// Assignment method names.
const (
	MethodRoundRobin    = "round_robin"
	MethodBalanced      = "balanced"
	MethodDistanceBased = "distance_based"
	MethodGenetic       = "genetic"
)

// Methods returns every supported method name.
func Methods() []string {
	return []string{MethodRoundRobin, MethodBalanced, MethodDistanceBased, MethodGenetic}
}

var errNoRobots = fmt.Errorf("%w: scenario has no robots", core.ErrAssignmentFailure)

// Assigner is the interface for assignment strategies.
type Assigner interface {
	// Assign distributes the scenario's operations across its robots.
	// The result is indexed like sc.Robots and covers every operation index once.
	Assign(ctx context.Context, sc *core.Scenario) (core.Assignment, error)

	// Name returns the method name.
	Name() string
}

// Params tunes the strategies that take parameters. Only Genetic uses them today.
type Params struct {
	PopulationSize int
	Generations    int
	CrossoverRate  float64
	MutationRate   float64
	TournamentSize int
	Seed           int64
	Workers        int           // Max concurrent fitness evaluations; 0 = unlimited
	TimeBudget     time.Duration // Wall-clock cap on the search; 0 = none
}

// DefaultParams returns the default genetic parameters.
func DefaultParams() Params {
	return Params{
		PopulationSize: 50,
		Generations:    100,
		CrossoverRate:  0.8,
		MutationRate:   0.1,
		TournamentSize: 3,
		Seed:           42,
	}
}

// New returns the assigner for a method name.
func New(method string, params Params, obs observer.Observer) (Assigner, error) {
	switch strings.ToLower(strings.TrimSpace(method)) {
	case MethodRoundRobin:
		return NewRoundRobin(obs), nil
	case MethodBalanced:
		return NewBalanced(obs), nil
	case MethodDistanceBased:
		return NewDistanceBased(obs), nil
	case MethodGenetic:
		g := NewGenetic(params, obs)
		if err := g.validate(); err != nil {
			return nil, err
		}
		return g, nil
	}
	return nil, fmt.Errorf("%w: unknown assignment method %q (want one of %s)",
		core.ErrInvalidParameter, method, strings.Join(Methods(), ", "))
}

// forceOnePerRobot binds operation i to robot i. Callers guarantee numOps <= numRobots.
func forceOnePerRobot(numOps, numRobots int, method string, obs observer.Observer) core.Assignment {
	a := core.NewAssignment(numRobots)
	for i := 0; i < numOps; i++ {
		a[i] = []int{i}
		obs.OnAssignmentDecision(method, i, i)
	}
	return a
}

// repairEmpty gives every idle robot one operation taken from the end of the
// most loaded robot that has more than one to give. Ties go to the lowest index.
func repairEmpty(a core.Assignment, load func(robot int, ops []int) float64, method string, obs observer.Observer) {
	for {
		empty := -1
		for r, ops := range a {
			if len(ops) == 0 {
				empty = r
				break
			}
		}
		if empty < 0 {
			return
		}

		donor, donorLoad := -1, 0.0
		for r, ops := range a {
			if len(ops) <= 1 {
				continue
			}
			if l := load(r, ops); donor < 0 || l > donorLoad {
				donor, donorLoad = r, l
			}
		}
		if donor < 0 {
			return
		}

		last := len(a[donor]) - 1
		op := a[donor][last]
		a[donor] = a[donor][:last]
		a[empty] = append(a[empty], op)
		obs.OnAssignmentDecision(method, op, empty)
	}
}
