package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/tasknet/dispatch/internal/types"
)

// SaveAssignment upserts an assignment row. Re-running an assignment for the
// same task replaces the previous binding.
func (s *Store) SaveAssignment(ctx context.Context, a *types.Assignment) error {
	alternatives, err := marshalJSON(a.Alternatives, "[]")
	if err != nil {
		return err
	}
	parallel, err := marshalJSON(a.ParallelOpportunities, "[]")
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO task_assignments (task_id, worker_id, confidence, estimated_completion,
			reasoning, alternatives, dependencies_satisfied, parallel_opportunities, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(task_id) DO UPDATE SET
			worker_id = excluded.worker_id,
			confidence = excluded.confidence,
			estimated_completion = excluded.estimated_completion,
			reasoning = excluded.reasoning,
			alternatives = excluded.alternatives,
			dependencies_satisfied = excluded.dependencies_satisfied,
			parallel_opportunities = excluded.parallel_opportunities
	`, a.TaskID, a.WorkerID, a.Confidence, a.EstimatedCompletion,
		a.Reasoning, alternatives, a.DependenciesSatisfied, parallel, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to save assignment for task %s: %w", a.TaskID, err)
	}
	return nil
}

// GetAssignment loads the assignment for a task.
func (s *Store) GetAssignment(ctx context.Context, taskID string) (*types.Assignment, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT task_id, worker_id, confidence, estimated_completion,
			reasoning, alternatives, dependencies_satisfied, parallel_opportunities
		FROM task_assignments WHERE task_id = ?
	`, taskID)

	a, err := scanAssignment(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("assignment for task %s not found", taskID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get assignment for task %s: %w", taskID, err)
	}
	return a, nil
}

// ListAssignmentsByWorker loads every assignment bound to a worker.
func (s *Store) ListAssignmentsByWorker(ctx context.Context, workerID string) ([]*types.Assignment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT task_id, worker_id, confidence, estimated_completion,
			reasoning, alternatives, dependencies_satisfied, parallel_opportunities
		FROM task_assignments WHERE worker_id = ? ORDER BY created_at
	`, workerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments for worker %s: %w", workerID, err)
	}
	defer rows.Close()

	var assignments []*types.Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}
		assignments = append(assignments, a)
	}
	return assignments, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAssignment(row rowScanner) (*types.Assignment, error) {
	var a types.Assignment
	var completion sql.NullTime
	var alternatives, parallel string

	err := row.Scan(&a.TaskID, &a.WorkerID, &a.Confidence, &completion,
		&a.Reasoning, &alternatives, &a.DependenciesSatisfied, &parallel)
	if err != nil {
		return nil, err
	}
	if completion.Valid {
		a.EstimatedCompletion = completion.Time
	}
	if err := json.Unmarshal([]byte(alternatives), &a.Alternatives); err != nil {
		return nil, fmt.Errorf("failed to decode alternatives: %w", err)
	}
	if err := json.Unmarshal([]byte(parallel), &a.ParallelOpportunities); err != nil {
		return nil, fmt.Errorf("failed to decode parallel opportunities: %w", err)
	}
	return &a, nil
}
