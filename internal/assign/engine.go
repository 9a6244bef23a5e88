// Package assign orchestrates task assignment: dependency analysis,
// capability scoring, strategy-weighted optimization, and load balancing.
package assign

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/tasknet/dispatch/internal/balancer"
	"github.com/tasknet/dispatch/internal/clock"
	"github.com/tasknet/dispatch/internal/decision"
	"github.com/tasknet/dispatch/internal/matcher"
	"github.com/tasknet/dispatch/internal/types"
)

// ErrNoSuitableWorker is returned when no worker scores above zero for a
// task. The engine does not silently substitute a default; callers decide
// the fallback (leave unassigned, flag for human review).
var ErrNoSuitableWorker = errors.New("no suitable worker")

// Strategy selects the optimization formula applied on top of capability
// scores.
type Strategy string

const (
	StrategySpeed       Strategy = "speed"
	StrategyQuality     Strategy = "quality"
	StrategyBalanced    Strategy = "balanced"
	StrategyLoadBalance Strategy = "load_balance"
)

// IsValid checks if the strategy value is one of the defined strategies.
func (s Strategy) IsValid() bool {
	switch s {
	case StrategySpeed, StrategyQuality, StrategyBalanced, StrategyLoadBalance:
		return true
	}
	return false
}

// effective normalizes unknown strategies to balanced. The fallthrough is
// deliberate and surfaced in assignment reasoning rather than raised as an
// error.
func (s Strategy) effective() Strategy {
	if !s.IsValid() {
		return StrategyBalanced
	}
	return s
}

// AssignmentStore persists assignments. Persistence failures never discard
// the in-memory result; they are surfaced so callers can retry the write.
type AssignmentStore interface {
	SaveAssignment(ctx context.Context, a *types.Assignment) error
}

// Config holds assignment engine configuration.
type Config struct {
	Matcher   *matcher.Matcher
	Balancer  *balancer.Balancer
	Store     AssignmentStore // optional
	Decisions decision.Sink   // optional
	Clock     clock.Clock     // defaults to the system clock
}

// Engine coordinates matching, optimization, and load balancing for task
// batches.
type Engine struct {
	matcher   *matcher.Matcher
	balancer  *balancer.Balancer
	store     AssignmentStore
	decisions decision.Sink
	clock     clock.Clock
}

// New creates a task assignment engine.
func New(cfg Config) (*Engine, error) {
	if cfg.Matcher == nil {
		return nil, fmt.Errorf("matcher is required")
	}
	if cfg.Balancer == nil {
		return nil, fmt.Errorf("balancer is required")
	}
	e := &Engine{
		matcher:   cfg.Matcher,
		balancer:  cfg.Balancer,
		store:     cfg.Store,
		decisions: cfg.Decisions,
		clock:     cfg.Clock,
	}
	if e.clock == nil {
		e.clock = clock.System()
	}
	if e.decisions == nil {
		e.decisions = decision.Discard{}
	}
	return e, nil
}

// TaskFailure records a task that could not be assigned. Batch assignment
// has partial-failure semantics: one unassignable task does not abort the
// batch.
type TaskFailure struct {
	TaskID string
	Err    error
}

// Report summarizes an assignment run.
type Report struct {
	TotalAssigned     int       `json:"total_tasks_assigned"`
	TotalEffortHours  float64   `json:"total_estimated_effort"`
	MeanConfidence    float64   `json:"average_assignment_confidence"`
	ParallelGroups    int       `json:"parallel_execution_opportunities"`
	CriticalPathLen   int       `json:"critical_path_length"`
	Strategy          Strategy  `json:"strategy"`
	Rebalances        int       `json:"rebalances"`
	OptimizedAt       time.Time `json:"optimization_timestamp"`
}

// Result is the outcome of an Assign call.
type Result struct {
	Assignments []*types.Assignment
	Failures    []TaskFailure
	Plan        *ExecutionPlan
	Report      Report
}

// Assign assigns a batch of tasks to workers under the given strategy.
//
// Input validation fails fast before any scoring runs. After computation,
// assignments are persisted when a store is configured; a persistence error
// is returned alongside the completed Result so callers can retry the write
// without recomputation.
func (e *Engine) Assign(ctx context.Context, tasks []*types.Task, workers []*types.Worker, strategy Strategy) (*Result, error) {
	for _, t := range tasks {
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("invalid task %s: %w", t.ID, err)
		}
	}
	for _, w := range workers {
		if err := w.Validate(); err != nil {
			return nil, fmt.Errorf("invalid worker %s: %w", w.ID, err)
		}
	}

	plan, err := analyzeDependencies(tasks)
	if err != nil {
		return nil, err
	}

	matrix := e.matcher.BuildMatrix(tasks, workers)

	assignments, failures := e.optimize(tasks, workers, matrix, strategy, plan)

	assignments, rebalances := e.balancer.Balance(assignments, workers)

	result := &Result{
		Assignments: assignments,
		Failures:    failures,
		Plan:        plan,
		Report:      e.buildReport(assignments, plan, strategy.effective(), len(rebalances)),
	}

	e.recordDecision(result, strategy)

	if e.store != nil {
		for _, a := range assignments {
			if err := e.store.SaveAssignment(ctx, a); err != nil {
				return result, fmt.Errorf("persisting assignment for task %s: %w", a.TaskID, err)
			}
		}
	}

	return result, nil
}

// optimize assigns each task to its best-scoring worker under the strategy.
// Tasks are processed in (priority, complexity) descending order.
func (e *Engine) optimize(
	tasks []*types.Task,
	workers []*types.Worker,
	matrix map[string]map[string]float64,
	strategy Strategy,
	plan *ExecutionPlan,
) ([]*types.Assignment, []TaskFailure) {
	sorted := make([]*types.Task, len(tasks))
	copy(sorted, tasks)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Priority != sorted[j].Priority {
			return sorted[i].Priority > sorted[j].Priority
		}
		return sorted[i].Complexity.Rank() > sorted[j].Complexity.Rank()
	})

	parallel := map[string]bool{}
	if len(plan.ParallelGroups) > 0 {
		for _, id := range plan.ParallelGroups[0] {
			parallel[id] = true
		}
	}

	var assignments []*types.Assignment
	var failures []TaskFailure

	for _, task := range sorted {
		a, err := e.optimizeOne(task, workers, matrix[task.ID], strategy)
		if err != nil {
			failures = append(failures, TaskFailure{TaskID: task.ID, Err: err})
			continue
		}
		if parallel[task.ID] {
			for id := range parallel {
				if id != task.ID {
					a.ParallelOpportunities = append(a.ParallelOpportunities, id)
				}
			}
			sort.Strings(a.ParallelOpportunities)
		}
		assignments = append(assignments, a)
	}

	return assignments, failures
}

func (e *Engine) optimizeOne(
	task *types.Task,
	workers []*types.Worker,
	row map[string]float64,
	strategy Strategy,
) (*types.Assignment, error) {
	effective := strategy.effective()

	type scored struct {
		worker *types.Worker
		score  float64
	}
	var candidates []scored

	for _, w := range workers {
		if w.Availability == types.AvailabilityBlocked {
			continue
		}
		capability := row[w.ID]

		var score float64
		switch effective {
		case StrategySpeed:
			score = capability * w.EfficiencyScore
		case StrategyQuality:
			score = capability * (2 - w.LoadPercentage()/100)
		default: // balanced, load_balance
			score = capability * w.EfficiencyScore * (1 - w.LoadPercentage()/100)
		}
		candidates = append(candidates, scored{worker: w, score: score})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].worker.ID < candidates[j].worker.ID
	})

	if len(candidates) == 0 || candidates[0].score <= 0 {
		return nil, fmt.Errorf("task %s: %w", task.ID, ErrNoSuitableWorker)
	}

	best := candidates[0]

	// Strategy factors can push raw scores past 1; confidence is contracted
	// to [0,1] so ranking uses the raw score and the stored value is clamped.
	alternatives := make([]types.AlternativeWorker, 0, 3)
	for _, c := range candidates[1:] {
		if len(alternatives) == 3 {
			break
		}
		alternatives = append(alternatives, types.AlternativeWorker{
			WorkerID:   c.worker.ID,
			Confidence: clamp01(c.score),
		})
	}

	completion := e.clock.Now().Add(
		time.Duration(task.EstimatedEffortHours / best.worker.EfficiencyScore * float64(time.Hour)))

	reasoning := fmt.Sprintf("Selected based on %s strategy", effective)
	if effective != strategy {
		reasoning = fmt.Sprintf("Selected based on %s strategy (unknown strategy %q)", effective, strategy)
	}

	return &types.Assignment{
		TaskID:                task.ID,
		WorkerID:              best.worker.ID,
		Confidence:            clamp01(best.score),
		EstimatedCompletion:   completion,
		Reasoning:             reasoning,
		Alternatives:          alternatives,
		DependenciesSatisfied: true,
	}, nil
}

func (e *Engine) buildReport(assignments []*types.Assignment, plan *ExecutionPlan, strategy Strategy, rebalances int) Report {
	report := Report{
		TotalAssigned:   len(assignments),
		ParallelGroups:  len(plan.ParallelGroups),
		CriticalPathLen: len(plan.CriticalPath),
		Strategy:        strategy,
		Rebalances:      rebalances,
		OptimizedAt:     e.clock.Now(),
	}

	var totalEffort, totalConfidence float64
	for _, a := range assignments {
		// Bare confidence step function, the same table the balancer scales
		// for its projections.
		totalEffort += balancer.EstimateEffort(a.Confidence, 0)
		totalConfidence += a.Confidence
	}
	report.TotalEffortHours = totalEffort
	if len(assignments) > 0 {
		report.MeanConfidence = math.Round(totalConfidence/float64(len(assignments))*1000) / 1000
	}
	return report
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// recordDecision emits a decision record for the batch. Sink failures are
// deliberately not propagated; reasoning capture must never invalidate a
// completed assignment run.
func (e *Engine) recordDecision(result *Result, strategy Strategy) {
	confidence := int(math.Round(result.Report.MeanConfidence * 10))
	if confidence < 1 {
		confidence = 1
	}
	if confidence > 10 {
		confidence = 10
	}

	rec := decision.New(
		decision.TypeTaskAssignment,
		fmt.Sprintf("Assigned %d task(s) using %s strategy, %d rebalanced, %d unassignable",
			result.Report.TotalAssigned, strategy.effective(), result.Report.Rebalances, len(result.Failures)),
		"assigned",
		confidence,
	)
	rec.Context = map[string]interface{}{
		"strategy":        string(strategy),
		"tasks_assigned":  result.Report.TotalAssigned,
		"mean_confidence": result.Report.MeanConfidence,
		"parallel_groups": result.Report.ParallelGroups,
	}
	if len(result.Failures) > 0 {
		rec.Outcome = "partially_assigned"
	}
	if err := e.decisions.Record(rec); err != nil {
		fmt.Printf("warning: failed to record assignment decision: %v\n", err)
	}
}
