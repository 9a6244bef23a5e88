// Package storage defines the persistence interface for the engine and a
// factory for the SQLite backend.
package storage

import (
	"context"
	"time"

	"github.com/tasknet/dispatch/internal/decision"
	"github.com/tasknet/dispatch/internal/escalation"
	"github.com/tasknet/dispatch/internal/storage/sqlite"
	"github.com/tasknet/dispatch/internal/types"
)

// Storage is the row-store surface the engine persists through. Components
// consume the narrow slice they need (assign.AssignmentStore,
// gates.ResultStore, escalation.Store, metrics sources); this interface is
// the union the backend must satisfy.
type Storage interface {
	// Task assignments
	SaveAssignment(ctx context.Context, a *types.Assignment) error
	GetAssignment(ctx context.Context, taskID string) (*types.Assignment, error)
	ListAssignmentsByWorker(ctx context.Context, workerID string) ([]*types.Assignment, error)

	// Quality gate executions
	SaveQualityResult(ctx context.Context, r *types.QualityResult) error
	ListQualityResults(ctx context.Context, since time.Time) ([]*types.QualityResult, error)
	ListQualityResultsByWorker(ctx context.Context, workerID string, since time.Time) ([]*types.QualityResult, error)
	ListQualityResultsByDeliverable(ctx context.Context, deliverableID string) ([]*types.QualityResult, error)

	// Escalations
	SaveEscalation(ctx context.Context, e *types.Escalation) error
	UpdateEscalation(ctx context.Context, e *types.Escalation) error
	GetEscalation(ctx context.Context, id string) (*types.Escalation, error)
	ListOverdueEscalations(ctx context.Context, now time.Time) ([]*types.Escalation, error)
	ListActiveEscalations(ctx context.Context) ([]*types.Escalation, error)
	LogWorkflowStep(ctx context.Context, escalationID string, step types.WorkflowStep, at time.Time) error
	LogEscalationTrigger(ctx context.Context, rec *escalation.TriggerRecord) error
	LogExpertAssignment(ctx context.Context, escalationID, expertID string, at time.Time) error
	EscalationStats(ctx context.Context, periodDays int, now time.Time) (*types.EscalationStats, error)

	// Expert roster
	SaveExpert(ctx context.Context, e *types.Expert) error
	GetExpert(ctx context.Context, id string) (*types.Expert, error)
	ListExperts(ctx context.Context) ([]*types.Expert, error)

	// Decision log
	SaveDecision(ctx context.Context, rec *decision.Record) error
	ListRecentDecisions(ctx context.Context, limit int) ([]*decision.Record, error)

	// Quality benchmarks
	GetBenchmarks(ctx context.Context) (map[string]float64, error)
	SaveBenchmark(ctx context.Context, name string, value float64) error

	Close() error
}

// New creates a SQLite-backed Storage at the given path.
func New(path string) (Storage, error) {
	return sqlite.New(path)
}

// DecisionSink adapts Storage to the decision.Sink interface so engines can
// write decision records without carrying the full store.
type DecisionSink struct {
	Store Storage
}

// Record implements decision.Sink.
func (s DecisionSink) Record(rec *decision.Record) error {
	return s.Store.SaveDecision(context.Background(), rec)
}
