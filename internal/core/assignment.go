package core

import "fmt"

// Assignment lists, per robot index, the operation indices in execution order.
type Assignment [][]int

// NewAssignment creates an assignment with numRobots empty lists.
func NewAssignment(numRobots int) Assignment {
	return make(Assignment, numRobots)
}

// Clone returns a deep copy sharing no slices with a.
func (a Assignment) Clone() Assignment {
	out := make(Assignment, len(a))
	for i, ops := range a {
		out[i] = append([]int(nil), ops...)
	}
	return out
}

// Counts returns the number of operations per robot.
func (a Assignment) Counts() []int {
	counts := make([]int, len(a))
	for i, ops := range a {
		counts[i] = len(ops)
	}
	return counts
}

// Validate checks that a covers operation indices 0..numOps-1 exactly once
// across numRobots lists.
func (a Assignment) Validate(numOps, numRobots int) error {
	if len(a) != numRobots {
		return fmt.Errorf("%w: %d operation lists for %d robots", ErrAssignmentFailure, len(a), numRobots)
	}
	seen := make([]bool, numOps)
	total := 0
	for r, ops := range a {
		for _, op := range ops {
			if op < 0 || op >= numOps {
				return fmt.Errorf("%w: robot %d has out-of-range operation index %d", ErrAssignmentFailure, r, op)
			}
			if seen[op] {
				return fmt.Errorf("%w: operation index %d assigned more than once", ErrAssignmentFailure, op)
			}
			seen[op] = true
			total++
		}
	}
	if total != numOps {
		return fmt.Errorf("%w: %d of %d operations assigned", ErrAssignmentFailure, total, numOps)
	}
	return nil
}

// Resolve maps operation indices to operations.
func (a Assignment) Resolve(ops []*Operation) [][]*Operation {
	out := make([][]*Operation, len(a))
	for r, idxs := range a {
		out[r] = make([]*Operation, len(idxs))
		for i, idx := range idxs {
			out[r][i] = ops[idx]
		}
	}
	return out
}
