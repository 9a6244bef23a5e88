// Package balancer redistributes task assignments away from workers that
// would exceed the overload ceiling. The pass is greedy and strictly
// sequential: each decision updates a running load tracker that later
// assignments in the same batch observe, so the algorithm is order-dependent
// by design and must not be parallelized internally.
package balancer

import (
	"fmt"
	"time"

	"github.com/tasknet/dispatch/internal/types"
)

const (
	// OverloadThreshold is the projected-load ceiling, as a fraction of
	// capacity, above which an assignment triggers a reassignment search.
	OverloadThreshold = 0.9

	// Optimal operating band. Informational only; nothing below the 90%
	// ceiling triggers action.
	OptimalLoadLow  = 0.4
	OptimalLoadHigh = 0.8
)

// Rebalance describes one reassignment performed during a balancing pass.
type Rebalance struct {
	TaskID           string
	OriginalWorkerID string
	NewWorkerID      string
	Reason           string
	ConfidenceChange float64
	EstimatedEffort  float64
}

// Balancer rebalances assignment batches against worker capacities.
type Balancer struct {
	threshold float64
}

// New creates a load balancer with the standard 90% overload threshold.
func New() *Balancer {
	return &Balancer{threshold: OverloadThreshold}
}

// EstimateEffort derives an effort assumption in hours from assignment
// confidence. The relationship is inverse: a low-confidence match was likely
// hard to place, so assume more effort. The estimate is scaled down slightly
// when more alternative workers exist, since flexibility implies the task is
// less demanding.
func EstimateEffort(confidence float64, alternativeCount int) float64 {
	var base float64
	switch {
	case confidence > 0.8:
		base = 2.0
	case confidence > 0.6:
		base = 4.0
	case confidence > 0.4:
		base = 6.0
	default:
		base = 8.0
	}

	factor := 1.0 - float64(alternativeCount)*0.05
	if factor < 0.8 {
		factor = 0.8
	}
	return base * factor
}

// Balance walks the assignments in arrival order and reassigns any that
// would push its worker past the overload threshold. Assignments are
// mutated in place and the same slice is returned along with the
// rebalancing actions taken.
//
// When neither a stored alternative nor any non-blocked worker has headroom,
// the original (overloaded) assignment is kept with a warning appended to
// its reasoning. Overload is a soft constraint, not a hard failure.
func (b *Balancer) Balance(assignments []*types.Assignment, workers []*types.Worker) ([]*types.Assignment, []Rebalance) {
	loads := make(map[string]float64, len(workers))
	workerByID := make(map[string]*types.Worker, len(workers))
	for _, w := range workers {
		loads[w.ID] = w.CurrentLoadHours
		workerByID[w.ID] = w
	}

	var actions []Rebalance

	for _, assignment := range assignments {
		worker, ok := workerByID[assignment.WorkerID]
		if !ok {
			// Unknown worker; leave the assignment untouched.
			continue
		}

		effort := EstimateEffort(assignment.Confidence, len(assignment.Alternatives))
		projected := (loads[assignment.WorkerID] + effort) / worker.MaxCapacityHours

		if projected > b.threshold {
			if action := b.findAlternative(assignment, workers, workerByID, loads, effort); action != nil {
				assignment.WorkerID = action.NewWorkerID
				assignment.Reasoning += fmt.Sprintf(" (Load balanced: %s)", action.Reason)
				assignment.Confidence *= 1 + action.ConfidenceChange
				if assignment.Confidence > 1 {
					assignment.Confidence = 1
				}
				if assignment.Confidence < 0 {
					assignment.Confidence = 0
				}
				actions = append(actions, *action)
			} else {
				assignment.Reasoning += fmt.Sprintf(
					" (Warning: worker at %.1f%% projected load, no alternative with headroom)",
					projected*100)
			}
		}

		// Later assignments in this batch must see the effect of this
		// decision, whichever worker it landed on.
		loads[assignment.WorkerID] += effort
	}

	return assignments, actions
}

// findAlternative looks for a replacement worker: first the assignment's
// stored alternatives in rank order, then any non-blocked worker with
// headroom as a last resort (with a fixed confidence penalty).
func (b *Balancer) findAlternative(
	assignment *types.Assignment,
	workers []*types.Worker,
	workerByID map[string]*types.Worker,
	loads map[string]float64,
	effort float64,
) *Rebalance {
	original := assignment.WorkerID

	for _, alt := range assignment.Alternatives {
		worker, ok := workerByID[alt.WorkerID]
		if !ok {
			continue
		}
		projected := (loads[alt.WorkerID] + effort) / worker.MaxCapacityHours
		if projected <= b.threshold && alt.Confidence > 0.5 {
			change := (alt.Confidence - assignment.Confidence) / assignment.Confidence
			return &Rebalance{
				TaskID:           assignment.TaskID,
				OriginalWorkerID: original,
				NewWorkerID:      alt.WorkerID,
				Reason:           fmt.Sprintf("%.1f%% load, %.2f confidence", projected*100, alt.Confidence),
				ConfidenceChange: change,
				EstimatedEffort:  effort,
			}
		}
	}

	for _, worker := range workers {
		if worker.ID == original || worker.Availability == types.AvailabilityBlocked {
			continue
		}
		projected := (loads[worker.ID] + effort) / worker.MaxCapacityHours
		if projected <= b.threshold {
			return &Rebalance{
				TaskID:           assignment.TaskID,
				OriginalWorkerID: original,
				NewWorkerID:      worker.ID,
				Reason:           fmt.Sprintf("underutilized worker, %.1f%% load", projected*100),
				ConfidenceChange: -0.1,
				EstimatedEffort:  effort,
			}
		}
	}

	return nil
}

// DistributionReport summarizes pool utilization after a balancing pass.
type DistributionReport struct {
	TotalWorkers       int       `json:"total_workers"`
	OverallUtilization float64   `json:"overall_utilization_percentage"`
	OverloadedWorkers  int       `json:"overloaded_workers"`
	Status             string    `json:"load_balance_status"` // "balanced" or "unbalanced"
	GeneratedAt        time.Time `json:"generated_at"`
}

// Distribution builds a utilization report for the pool. When loads is nil
// the workers' recorded current loads are used.
func (b *Balancer) Distribution(workers []*types.Worker, loads map[string]float64) DistributionReport {
	if loads == nil {
		loads = make(map[string]float64, len(workers))
		for _, w := range workers {
			loads[w.ID] = w.CurrentLoadHours
		}
	}

	var totalCapacity, totalUsed float64
	overloaded := 0
	for _, w := range workers {
		totalCapacity += w.MaxCapacityHours
		totalUsed += loads[w.ID]
		if loads[w.ID]/w.MaxCapacityHours > b.threshold {
			overloaded++
		}
	}

	report := DistributionReport{
		TotalWorkers:      len(workers),
		OverloadedWorkers: overloaded,
		Status:            "balanced",
		GeneratedAt:       time.Now(),
	}
	if totalCapacity > 0 {
		report.OverallUtilization = totalUsed / totalCapacity * 100
	}
	if overloaded > 0 {
		report.Status = "unbalanced"
	}
	return report
}
