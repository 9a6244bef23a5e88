package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/tasknet/dispatch/internal/escalation"
	"github.com/tasknet/dispatch/internal/types"
)

const escalationColumns = `id, deliverable_id, issue_description, level, status,
	requested_by, created_at, updated_at, resolution_target, expert_assigned, resolution_notes`

// SaveEscalation inserts a new escalation row.
func (s *Store) SaveEscalation(ctx context.Context, e *types.Escalation) error {
	if err := e.Validate(); err != nil {
		return fmt.Errorf("invalid escalation: %w", err)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO escalation_requests (`+escalationColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.DeliverableID, e.IssueDescription, string(e.Level), string(e.Status),
		e.RequestedBy, e.CreatedAt.UTC(), e.UpdatedAt.UTC(), nullableTime(e.ResolutionTarget),
		nullableString(e.ExpertAssigned), e.ResolutionNotes)
	if err != nil {
		return fmt.Errorf("failed to save escalation %s: %w", e.ID, err)
	}
	return nil
}

// UpdateEscalation rewrites the mutable columns of an existing escalation.
func (s *Store) UpdateEscalation(ctx context.Context, e *types.Escalation) error {
	if err := e.Validate(); err != nil {
		return fmt.Errorf("invalid escalation: %w", err)
	}
	result, err := s.db.ExecContext(ctx, `
		UPDATE escalation_requests
		SET level = ?, status = ?, updated_at = ?, resolution_target = ?,
			expert_assigned = ?, resolution_notes = ?
		WHERE id = ?
	`, string(e.Level), string(e.Status), e.UpdatedAt.UTC(), nullableTime(e.ResolutionTarget),
		nullableString(e.ExpertAssigned), e.ResolutionNotes, e.ID)
	if err != nil {
		return fmt.Errorf("failed to update escalation %s: %w", e.ID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update of escalation %s: %w", e.ID, err)
	}
	if affected == 0 {
		return fmt.Errorf("escalation %s not found", e.ID)
	}
	return nil
}

// GetEscalation loads one escalation by id.
func (s *Store) GetEscalation(ctx context.Context, id string) (*types.Escalation, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+escalationColumns+` FROM escalation_requests WHERE id = ?`, id)
	e, err := scanEscalation(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("escalation %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get escalation %s: %w", id, err)
	}
	return e, nil
}

// ListOverdueEscalations loads non-terminal escalations whose resolution
// target has passed.
func (s *Store) ListOverdueEscalations(ctx context.Context, now time.Time) ([]*types.Escalation, error) {
	return s.queryEscalations(ctx, `
		SELECT `+escalationColumns+` FROM escalation_requests
		WHERE status NOT IN ('resolved', 'escalated_further')
		  AND resolution_target IS NOT NULL AND resolution_target < ?
		ORDER BY resolution_target
	`, now.UTC())
}

// ListActiveEscalations loads non-terminal escalations.
func (s *Store) ListActiveEscalations(ctx context.Context) ([]*types.Escalation, error) {
	return s.queryEscalations(ctx, `
		SELECT `+escalationColumns+` FROM escalation_requests
		WHERE status NOT IN ('resolved', 'escalated_further')
		ORDER BY created_at
	`)
}

// LogWorkflowStep appends a step execution record.
func (s *Store) LogWorkflowStep(ctx context.Context, escalationID string, step types.WorkflowStep, at time.Time) error {
	expertise, err := marshalJSON(step.RequiredExpertise, "[]")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO escalation_workflow_log (escalation_id, step_id, step_name, required_expertise, max_duration_hours, executed_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, escalationID, step.StepID, step.StepName, expertise, step.MaxDurationHours, at.UTC())
	if err != nil {
		return fmt.Errorf("failed to log workflow step for %s: %w", escalationID, err)
	}
	return nil
}

// LogEscalationTrigger appends a trigger audit row.
func (s *Store) LogEscalationTrigger(ctx context.Context, rec *escalation.TriggerRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO escalation_triggers (escalation_id, deliverable_id, trigger_type, level, detail, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, rec.EscalationID, rec.DeliverableID, string(rec.Trigger), string(rec.Level), rec.Detail, rec.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to log escalation trigger for %s: %w", rec.EscalationID, err)
	}
	return nil
}

// LogExpertAssignment appends an expert assignment row.
func (s *Store) LogExpertAssignment(ctx context.Context, escalationID, expertID string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO expert_assignments (escalation_id, expert_id, assigned_at)
		VALUES (?, ?, ?)
	`, escalationID, expertID, at.UTC())
	if err != nil {
		return fmt.Errorf("failed to log expert assignment for %s: %w", escalationID, err)
	}
	return nil
}

// EscalationStats aggregates activity over the trailing period.
func (s *Store) EscalationStats(ctx context.Context, periodDays int, now time.Time) (*types.EscalationStats, error) {
	since := now.AddDate(0, 0, -periodDays).UTC()

	stats := &types.EscalationStats{
		PeriodDays:    periodDays,
		CountsByLevel: make(map[types.EscalationLevel]int),
		GeneratedAt:   now,
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT level, COUNT(*) FROM escalation_requests
		WHERE created_at >= ? GROUP BY level
	`, since)
	if err != nil {
		return nil, fmt.Errorf("failed to count escalations by level: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var level string
		var count int
		if err := rows.Scan(&level, &count); err != nil {
			return nil, fmt.Errorf("failed to scan level count: %w", err)
		}
		stats.CountsByLevel[types.EscalationLevel(level)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Average resolution time over escalations resolved in the period.
	var avgHours sql.NullFloat64
	err = s.db.QueryRowContext(ctx, `
		SELECT AVG((julianday(updated_at) - julianday(created_at)) * 24)
		FROM escalation_requests
		WHERE status = 'resolved' AND updated_at >= ?
	`, since).Scan(&avgHours)
	if err != nil {
		return nil, fmt.Errorf("failed to compute average resolution time: %w", err)
	}
	if avgHours.Valid {
		stats.AverageResolutionHrs = avgHours.Float64
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM escalation_requests
		WHERE status NOT IN ('resolved', 'escalated_further')
	`).Scan(&stats.ActiveEscalations)
	if err != nil {
		return nil, fmt.Errorf("failed to count active escalations: %w", err)
	}

	return stats, nil
}

func (s *Store) queryEscalations(ctx context.Context, query string, args ...interface{}) ([]*types.Escalation, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query escalations: %w", err)
	}
	defer rows.Close()

	var escalations []*types.Escalation
	for rows.Next() {
		e, err := scanEscalation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan escalation: %w", err)
		}
		escalations = append(escalations, e)
	}
	return escalations, rows.Err()
}

func scanEscalation(row rowScanner) (*types.Escalation, error) {
	var e types.Escalation
	var level, status string
	var target sql.NullTime
	var expert sql.NullString

	err := row.Scan(&e.ID, &e.DeliverableID, &e.IssueDescription, &level, &status,
		&e.RequestedBy, &e.CreatedAt, &e.UpdatedAt, &target, &expert, &e.ResolutionNotes)
	if err != nil {
		return nil, err
	}
	e.Level = types.EscalationLevel(level)
	e.Status = types.EscalationStatus(status)
	if target.Valid {
		t := target.Time
		e.ResolutionTarget = &t
	}
	if expert.Valid {
		e.ExpertAssigned = expert.String
	}
	return &e, nil
}

func nullableTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC()
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
