package escalation

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Sweeper periodically runs the overdue sweep until its context is canceled.
type Sweeper struct {
	manager  *Manager
	interval time.Duration
	done     chan struct{}
}

// NewSweeper creates a sweeper. Intervals below one minute are raised to one
// minute so a misconfigured sweeper cannot hammer the store.
func NewSweeper(manager *Manager, interval time.Duration) (*Sweeper, error) {
	if manager == nil {
		return nil, fmt.Errorf("manager is required")
	}
	if interval <= 0 {
		return nil, fmt.Errorf("sweep interval must be positive (got %s)", interval)
	}
	if interval < time.Minute {
		interval = time.Minute
	}
	return &Sweeper{
		manager:  manager,
		interval: interval,
		done:     make(chan struct{}),
	}, nil
}

// Run sweeps on the configured interval until ctx is canceled. One sweep
// runs immediately on startup so a restart does not delay overdue handling
// by a full interval.
func (s *Sweeper) Run(ctx context.Context) {
	defer close(s.done)

	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			fmt.Println("Escalation sweeper stopping")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

// Done is closed once Run has returned, for shutdown sequencing.
func (s *Sweeper) Done() <-chan struct{} {
	return s.done
}

func (s *Sweeper) sweep(ctx context.Context) {
	result, err := s.manager.SweepOverdue(ctx)
	switch {
	case errors.Is(err, ErrSweepInProgress), errors.Is(err, ErrSweepThrottled):
		// Another trigger beat us to it; the next tick will retry.
		return
	case err != nil:
		fmt.Printf("warning: overdue sweep failed: %v\n", err)
		return
	}
	if result.Escalated > 0 {
		fmt.Printf("Overdue sweep: escalated %d of %d checked\n", result.Escalated, result.Checked)
	}
}
