package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/tasknet/dispatch/internal/types"
)

// SaveQualityResult appends one gate execution row. Enum values cross into
// the database as strings; they are re-typed on the way back out.
func (s *Store) SaveQualityResult(ctx context.Context, r *types.QualityResult) error {
	if err := r.Validate(); err != nil {
		return fmt.Errorf("invalid quality result: %w", err)
	}
	var workerID sql.NullString
	if r.WorkerID != "" {
		workerID = sql.NullString{String: r.WorkerID, Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO quality_gate_executions (deliverable_id, stage, decision, score, reasoning, worker_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, r.DeliverableID, string(r.Stage), string(r.Decision), r.Score, r.Reasoning, workerID, r.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to save quality result for %s: %w", r.DeliverableID, err)
	}
	return nil
}

// ListQualityResults loads gate executions since the given instant.
func (s *Store) ListQualityResults(ctx context.Context, since time.Time) ([]*types.QualityResult, error) {
	return s.queryQualityResults(ctx, `
		SELECT deliverable_id, stage, decision, score, reasoning, worker_id, created_at
		FROM quality_gate_executions WHERE created_at >= ? ORDER BY created_at
	`, since.UTC())
}

// ListQualityResultsByWorker loads one worker's gate executions since the
// given instant.
func (s *Store) ListQualityResultsByWorker(ctx context.Context, workerID string, since time.Time) ([]*types.QualityResult, error) {
	return s.queryQualityResults(ctx, `
		SELECT deliverable_id, stage, decision, score, reasoning, worker_id, created_at
		FROM quality_gate_executions WHERE worker_id = ? AND created_at >= ? ORDER BY created_at
	`, workerID, since.UTC())
}

// ListQualityResultsByDeliverable loads every gate execution for one
// deliverable.
func (s *Store) ListQualityResultsByDeliverable(ctx context.Context, deliverableID string) ([]*types.QualityResult, error) {
	return s.queryQualityResults(ctx, `
		SELECT deliverable_id, stage, decision, score, reasoning, worker_id, created_at
		FROM quality_gate_executions WHERE deliverable_id = ? ORDER BY created_at
	`, deliverableID)
}

func (s *Store) queryQualityResults(ctx context.Context, query string, args ...interface{}) ([]*types.QualityResult, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query quality results: %w", err)
	}
	defer rows.Close()

	var results []*types.QualityResult
	for rows.Next() {
		var r types.QualityResult
		var stage, decision string
		var workerID sql.NullString
		if err := rows.Scan(&r.DeliverableID, &stage, &decision, &r.Score, &r.Reasoning, &workerID, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan quality result: %w", err)
		}
		r.Stage = types.QualityStage(stage)
		r.Decision = types.QualityDecision(decision)
		if workerID.Valid {
			r.WorkerID = workerID.String
		}
		results = append(results, &r)
	}
	return results, rows.Err()
}
