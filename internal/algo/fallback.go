package algo

import (
	"context"
	"fmt"

	"go.uber.org/multierr"

	"github.com/elektrokombinacija/fleetplan/internal/core"
	"github.com/elektrokombinacija/fleetplan/internal/observer"
)

// FallbackPolicy decides what a failed strategy returns instead.
type FallbackPolicy interface {
	Fallback(ctx context.Context, sc *core.Scenario, cause error) (core.Assignment, error)
}

// BalancedFallback reruns the assignment with the Balanced strategy.
type BalancedFallback struct {
	Observer observer.Observer
}

// Fallback implements FallbackPolicy.
func (f BalancedFallback) Fallback(ctx context.Context, sc *core.Scenario, cause error) (core.Assignment, error) {
	a, err := NewBalanced(f.Observer).Assign(ctx, sc)
	if err != nil {
		return nil, multierr.Combine(fmt.Errorf("%w: %w", core.ErrAssignmentFailure, cause), err)
	}
	return a, nil
}

// NoFallback surfaces the failure as an assignment error.
type NoFallback struct{}

// Fallback implements FallbackPolicy.
func (NoFallback) Fallback(_ context.Context, _ *core.Scenario, cause error) (core.Assignment, error) {
	return nil, fmt.Errorf("%w: %w", core.ErrAssignmentFailure, cause)
}
