package assign

import (
	"fmt"

	"github.com/tasknet/dispatch/internal/types"
)

// ExecutionPlan is the dependency analysis for a task batch.
type ExecutionPlan struct {
	// Order is a topological execution order over the batch.
	Order []string
	// ParallelGroups holds sets of tasks eligible for parallel execution.
	// Only the zero-dependency tier is identified; later tiers are not
	// recursively discovered.
	ParallelGroups [][]string
	// CriticalPath approximates the critical path as the single task with
	// the maximum estimated effort. This is a reporting aid, not a true
	// longest-path computation over the DAG.
	CriticalPath []string
}

// analyzeDependencies builds the dependency graph and execution plan for a
// batch. Dependencies referencing tasks outside the batch are treated as
// already satisfied externally.
func analyzeDependencies(tasks []*types.Task) (*ExecutionPlan, error) {
	inBatch := make(map[string]bool, len(tasks))
	for _, t := range tasks {
		inBatch[t.ID] = true
	}

	// dependency -> dependents adjacency, in-batch edges only
	dependents := make(map[string][]string, len(tasks))
	inDegree := make(map[string]int, len(tasks))
	for _, t := range tasks {
		inDegree[t.ID] = 0
	}
	for _, t := range tasks {
		for _, dep := range t.Dependencies {
			if !inBatch[dep] {
				continue
			}
			dependents[dep] = append(dependents[dep], t.ID)
			inDegree[t.ID]++
		}
	}

	// Kahn's algorithm. Seeding the queue in input order keeps the result
	// deterministic for identical inputs.
	var queue []string
	for _, t := range tasks {
		if inDegree[t.ID] == 0 {
			queue = append(queue, t.ID)
		}
	}

	order := make([]string, 0, len(tasks))
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		order = append(order, current)
		for _, dep := range dependents[current] {
			inDegree[dep]--
			if inDegree[dep] == 0 {
				queue = append(queue, dep)
			}
		}
	}

	if len(order) != len(tasks) {
		return nil, fmt.Errorf("dependency cycle detected: only %d of %d tasks orderable", len(order), len(tasks))
	}

	plan := &ExecutionPlan{Order: order}

	// Single parallel tier: every task with no in-batch dependencies.
	var independent []string
	for _, t := range tasks {
		deps := 0
		for _, dep := range t.Dependencies {
			if inBatch[dep] {
				deps++
			}
		}
		if deps == 0 {
			independent = append(independent, t.ID)
		}
	}
	if len(independent) > 0 {
		plan.ParallelGroups = append(plan.ParallelGroups, independent)
	}

	// Critical path approximation: the max-effort task. Ties resolve to the
	// earliest task in input order.
	if len(tasks) > 0 {
		longest := tasks[0]
		for _, t := range tasks[1:] {
			if t.EstimatedEffortHours > longest.EstimatedEffortHours {
				longest = t
			}
		}
		plan.CriticalPath = []string{longest.ID}
	}

	return plan, nil
}
