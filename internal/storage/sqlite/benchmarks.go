package sqlite

import (
	"context"
	"fmt"
	"time"
)

// GetBenchmarks loads all stored performance targets.
func (s *Store) GetBenchmarks(ctx context.Context) (map[string]float64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, value FROM quality_benchmarks`)
	if err != nil {
		return nil, fmt.Errorf("failed to load benchmarks: %w", err)
	}
	defer rows.Close()

	benchmarks := make(map[string]float64)
	for rows.Next() {
		var name string
		var value float64
		if err := rows.Scan(&name, &value); err != nil {
			return nil, fmt.Errorf("failed to scan benchmark: %w", err)
		}
		benchmarks[name] = value
	}
	return benchmarks, rows.Err()
}

// SaveBenchmark upserts one performance target.
func (s *Store) SaveBenchmark(ctx context.Context, name string, value float64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO quality_benchmarks (name, value, updated_at)
		VALUES (?, ?, ?)
	`, name, value, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to save benchmark %s: %w", name, err)
	}
	return nil
}
