package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/tasknet/dispatch/internal/types"
)

// SaveExpert upserts an expert roster row.
func (s *Store) SaveExpert(ctx context.Context, e *types.Expert) error {
	if err := e.Validate(); err != nil {
		return fmt.Errorf("invalid expert: %w", err)
	}
	areas, err := marshalJSON(e.ExpertiseAreas, "[]")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO experts (id, name, expertise_areas, current_workload, availability, response_time_hours, success_rate)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			expertise_areas = excluded.expertise_areas,
			current_workload = excluded.current_workload,
			availability = excluded.availability,
			response_time_hours = excluded.response_time_hours,
			success_rate = excluded.success_rate
	`, e.ID, e.Name, areas, e.CurrentWorkload, string(e.Availability), e.ResponseTimeHours, e.SuccessRate)
	if err != nil {
		return fmt.Errorf("failed to save expert %s: %w", e.ID, err)
	}
	return nil
}

// GetExpert loads one expert by id.
func (s *Store) GetExpert(ctx context.Context, id string) (*types.Expert, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, expertise_areas, current_workload, availability, response_time_hours, success_rate
		FROM experts WHERE id = ?
	`, id)
	e, err := scanExpert(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("expert %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get expert %s: %w", id, err)
	}
	return e, nil
}

// ListExperts loads the full roster.
func (s *Store) ListExperts(ctx context.Context) ([]*types.Expert, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, expertise_areas, current_workload, availability, response_time_hours, success_rate
		FROM experts ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list experts: %w", err)
	}
	defer rows.Close()

	var experts []*types.Expert
	for rows.Next() {
		e, err := scanExpert(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan expert: %w", err)
		}
		experts = append(experts, e)
	}
	return experts, rows.Err()
}

func scanExpert(row rowScanner) (*types.Expert, error) {
	var e types.Expert
	var areas, availability string
	err := row.Scan(&e.ID, &e.Name, &areas, &e.CurrentWorkload, &availability, &e.ResponseTimeHours, &e.SuccessRate)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(areas), &e.ExpertiseAreas); err != nil {
		return nil, fmt.Errorf("failed to decode expertise areas: %w", err)
	}
	e.Availability = types.Availability(availability)
	return &e, nil
}
