package sqlite

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tasknet/dispatch/internal/decision"
)

// SaveDecision appends a decision record.
func (s *Store) SaveDecision(ctx context.Context, rec *decision.Record) error {
	if err := rec.Validate(); err != nil {
		return fmt.Errorf("invalid decision record: %w", err)
	}
	contextJSON, err := marshalJSON(rec.Context, "{}")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO decision_log (id, type, context, reasoning, outcome, confidence, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, rec.ID, string(rec.Type), contextJSON, rec.Reasoning, rec.Outcome, rec.Confidence, rec.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to save decision %s: %w", rec.ID, err)
	}
	return nil
}

// ListRecentDecisions loads the newest records, newest first.
func (s *Store) ListRecentDecisions(ctx context.Context, limit int) ([]*decision.Record, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, type, context, reasoning, outcome, confidence, created_at
		FROM decision_log ORDER BY created_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list decisions: %w", err)
	}
	defer rows.Close()

	var records []*decision.Record
	for rows.Next() {
		var rec decision.Record
		var typ, contextJSON string
		if err := rows.Scan(&rec.ID, &typ, &contextJSON, &rec.Reasoning, &rec.Outcome, &rec.Confidence, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan decision: %w", err)
		}
		rec.Type = decision.Type(typ)
		if err := json.Unmarshal([]byte(contextJSON), &rec.Context); err != nil {
			return nil, fmt.Errorf("failed to decode decision context: %w", err)
		}
		records = append(records, &rec)
	}
	return records, rows.Err()
}
