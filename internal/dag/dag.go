// Package dag implements the Dependency Resolver (C1): it builds the
// step dependency graph, detects cycles, and groups steps into
// parallelizable execution groups. Grounded on the teacher's
// packages/core/workflow graph-shaped, index-first handling style
// (explicit validation errors rather than panics).
package dag

import (
	"fmt"
	"strconv"

	"github.com/grandcanyonsmith/lead-magnet-ai-platform-sub001/internal/models"
)

// Group is one topological layer of the DAG.
type Group struct {
	GroupIndex       int   `json:"group_index"`
	StepIndices      []int `json:"step_indices"`
	CanRunInParallel bool  `json:"can_run_in_parallel"`
}

// Result is the resolver's output: the execution groups plus the
// normalized dependency list for every step (array-index form).
type Result struct {
	ExecutionGroups []Group `json:"execution_groups"`
	TotalSteps      int     `json:"total_steps"`
	NormalizedDeps  [][]int `json:"-"`
}

// ValidationError is a single normalization or structural problem found
// while resolving a workflow's steps. Validation errors abort the job
// before any step runs.
type ValidationError struct {
	StepIndex int
	Message   string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("step %d: %s", e.StepIndex, e.Message)
}

// Resolve builds the DAG for steps and returns execution groups in
// dependency order, or the validation errors that prevented it.
func Resolve(steps []models.Step) (*Result, []ValidationError) {
	n := len(steps)
	if n == 0 {
		return &Result{ExecutionGroups: nil, TotalSteps: 0}, nil
	}

	orderToIndex := make(map[int]int, n)
	for i, s := range steps {
		if existing, ok := orderToIndex[s.StepOrder]; ok {
			return nil, []ValidationError{{StepIndex: i, Message: fmt.Sprintf("duplicate step_order %d (also used by step %d)", s.StepOrder, existing)}}
		}
		orderToIndex[s.StepOrder] = i
	}

	normalized := make([][]int, n)
	var errs []ValidationError

	for i, s := range steps {
		deps, depErrs := normalizeDeps(i, s, steps, orderToIndex, n)
		errs = append(errs, depErrs...)
		normalized[i] = deps
	}
	if len(errs) > 0 {
		return nil, errs
	}

	if cyclePath, ok := detectCycle(normalized); ok {
		return nil, []ValidationError{{StepIndex: cyclePath[0], Message: "Circular dependency detected: " + formatCycle(cyclePath)}}
	}

	groups, err := buildGroups(normalized, n)
	if err != nil {
		return nil, []ValidationError{{StepIndex: -1, Message: err.Error()}}
	}

	return &Result{ExecutionGroups: groups, TotalSteps: n, NormalizedDeps: normalized}, nil
}

// normalizeDeps coerces one step's depends_on list to array-index form, or
// auto-detects it from step_order ordering when absent.
func normalizeDeps(i int, s models.Step, steps []models.Step, orderToIndex map[int]int, n int) ([]int, []ValidationError) {
	if len(s.DependsOn) == 0 {
		var auto []int
		for j, other := range steps {
			if j != i && other.StepOrder < s.StepOrder {
				auto = append(auto, j)
			}
		}
		return auto, nil
	}

	var out []int
	var errs []ValidationError
	seen := make(map[int]bool, len(s.DependsOn))

	for _, raw := range s.DependsOn {
		idx, ok := coerceIndex(raw, orderToIndex, n)
		if !ok {
			errs = append(errs, ValidationError{StepIndex: i, Message: fmt.Sprintf("depends_on entry %v could not be resolved to a step", raw)})
			continue
		}
		if idx == i {
			errs = append(errs, ValidationError{StepIndex: i, Message: "step cannot depend on itself"})
			continue
		}
		if seen[idx] {
			continue
		}
		seen[idx] = true
		out = append(out, idx)
	}
	return out, errs
}

// coerceIndex implements the three-step resolution rule: (1) known
// step_order, (2) valid array index, (3) drop with error. Non-numeric
// stringly-typed integers are coerced first.
func coerceIndex(raw any, orderToIndex map[int]int, n int) (int, bool) {
	var asInt int
	switch v := raw.(type) {
	case int:
		asInt = v
	case int64:
		asInt = int(v)
	case float64:
		asInt = int(v)
	case string:
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return 0, false
		}
		asInt = parsed
	default:
		return 0, false
	}

	if idx, ok := orderToIndex[asInt]; ok {
		return idx, true
	}
	if asInt >= 0 && asInt < n {
		return asInt, true
	}
	return 0, false
}

// detectCycle runs DFS cycle detection over the normalized dependency
// graph (edges point from a step to its dependencies). Returns the path
// that formed a cycle, if any.
func detectCycle(deps [][]int) ([]int, bool) {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make([]int, len(deps))
	var path []int

	var visit func(i int) ([]int, bool)
	visit = func(i int) ([]int, bool) {
		color[i] = gray
		path = append(path, i)
		for _, d := range deps[i] {
			switch color[d] {
			case gray:
				return append(append([]int{}, path...), d), true
			case white:
				if cyc, found := visit(d); found {
					return cyc, true
				}
			}
		}
		path = path[:len(path)-1]
		color[i] = black
		return nil, false
	}

	for i := range deps {
		if color[i] == white {
			if cyc, found := visit(i); found {
				return cyc, true
			}
		}
	}
	return nil, false
}

func formatCycle(path []int) string {
	s := ""
	for i, p := range path {
		if i > 0 {
			s += " -> "
		}
		s += strconv.Itoa(p)
	}
	return s
}

// buildGroups iteratively collects ready steps (all deps completed) into
// groups. A group's CanRunInParallel is true unless two of its own
// members depend on each other — which cannot happen by construction
// (both would not be simultaneously ready) but is checked defensively.
func buildGroups(deps [][]int, n int) ([]Group, error) {
	completed := make([]bool, n)
	remaining := n
	var groups []Group
	groupIndex := 0

	for remaining > 0 {
		var ready []int
		for i := 0; i < n; i++ {
			if completed[i] {
				continue
			}
			if allCompleted(deps[i], completed) {
				ready = append(ready, i)
			}
		}
		if len(ready) == 0 {
			return nil, fmt.Errorf("Circular dependency detected: no ready steps remain with %d steps unresolved", remaining)
		}

		parallel := true
		readySet := make(map[int]bool, len(ready))
		for _, r := range ready {
			readySet[r] = true
		}
		for _, r := range ready {
			for _, d := range deps[r] {
				if readySet[d] {
					parallel = false
				}
			}
		}

		groups = append(groups, Group{GroupIndex: groupIndex, StepIndices: ready, CanRunInParallel: parallel})
		groupIndex++
		for _, r := range ready {
			completed[r] = true
			remaining--
		}
	}
	return groups, nil
}

func allCompleted(deps []int, completed []bool) bool {
	for _, d := range deps {
		if !completed[d] {
			return false
		}
	}
	return true
}
