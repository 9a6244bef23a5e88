// Package escalation manages the escalation lifecycle: creation, workflow
// step execution, expert assignment, resolution, and timeout-driven
// auto-escalation.
package escalation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/tasknet/dispatch/internal/clock"
	"github.com/tasknet/dispatch/internal/decision"
	"github.com/tasknet/dispatch/internal/types"
)

var (
	// ErrSweepInProgress means another overdue sweep currently holds the
	// single-flight guard.
	ErrSweepInProgress = errors.New("overdue sweep already in progress")

	// ErrSweepThrottled means on-demand sweeps are arriving faster than the
	// configured rate allows.
	ErrSweepThrottled = errors.New("sweep rate limit exceeded")

	// ErrInvalidTransition is returned for status updates the state machine
	// does not permit.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// TriggerRecord is a write-through audit row for what caused an escalation.
type TriggerRecord struct {
	EscalationID  string
	DeliverableID string
	Trigger       types.EscalationTrigger
	Level         types.EscalationLevel
	Detail        string
	CreatedAt     time.Time
}

// Store is the persistence surface the workflow manager needs.
type Store interface {
	SaveEscalation(ctx context.Context, e *types.Escalation) error
	UpdateEscalation(ctx context.Context, e *types.Escalation) error
	GetEscalation(ctx context.Context, id string) (*types.Escalation, error)
	ListOverdueEscalations(ctx context.Context, now time.Time) ([]*types.Escalation, error)
	ListActiveEscalations(ctx context.Context) ([]*types.Escalation, error)
	LogWorkflowStep(ctx context.Context, escalationID string, step types.WorkflowStep, at time.Time) error
	LogEscalationTrigger(ctx context.Context, rec *TriggerRecord) error
	LogExpertAssignment(ctx context.Context, escalationID, expertID string, at time.Time) error
	EscalationStats(ctx context.Context, periodDays int, now time.Time) (*types.EscalationStats, error)
}

// Config holds workflow manager configuration. Windows and Steps are
// configuration data, typically loaded from the escalation definitions file.
type Config struct {
	Windows   Windows
	Steps     Steps
	Store     Store
	Decisions decision.Sink // optional
	Clock     clock.Clock

	// SweepRate throttles on-demand sweep triggers. Zero disables throttling.
	SweepRate rate.Limit
	// SweepBurst is the limiter burst; defaults to 1 when SweepRate is set.
	SweepBurst int

	// PendingTimeout is how long a deliverable may await review before
	// EscalatePendingTimeout opens a medium escalation. Defaults to 24h.
	PendingTimeout time.Duration
}

// Manager drives escalations through the workflow state machine.
type Manager struct {
	windows   Windows
	steps     Steps
	store     Store
	decisions decision.Sink
	clock     clock.Clock

	// sweepGuard makes the overdue sweep exclusive. A sweep double-running
	// would double-escalate the same rows.
	sweepGuard     *semaphore.Weighted
	sweepRate      *rate.Limiter
	pendingTimeout time.Duration
}

// NewManager creates an escalation workflow manager.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	windows := cfg.Windows
	if len(windows) == 0 {
		windows = DefaultWindows()
	}
	if err := windows.Validate(); err != nil {
		return nil, err
	}
	steps := cfg.Steps
	if len(steps) == 0 {
		steps = DefaultSteps()
	}

	m := &Manager{
		windows:        windows,
		steps:          steps,
		store:          cfg.Store,
		decisions:      cfg.Decisions,
		clock:          cfg.Clock,
		sweepGuard:     semaphore.NewWeighted(1),
		pendingTimeout: cfg.PendingTimeout,
	}
	if m.pendingTimeout <= 0 {
		m.pendingTimeout = DefaultPendingTimeout
	}
	if m.clock == nil {
		m.clock = clock.System()
	}
	if m.decisions == nil {
		m.decisions = decision.Discard{}
	}
	if cfg.SweepRate > 0 {
		burst := cfg.SweepBurst
		if burst < 1 {
			burst = 1
		}
		m.sweepRate = rate.NewLimiter(cfg.SweepRate, burst)
	}
	return m, nil
}

// newID builds an escalation id from the creation time and the deliverable
// prefix, e.g. ESC_20260828T141502_DELIV-42.
func newID(now time.Time, deliverableID string) string {
	prefix := deliverableID
	if len(prefix) > 12 {
		prefix = prefix[:12]
	}
	prefix = strings.ReplaceAll(prefix, " ", "_")
	return fmt.Sprintf("ESC_%s_%s", now.UTC().Format("20060102T150405"), prefix)
}

// Create opens a new escalation at the given level, persists it, and fires
// the level's workflow step.
func (m *Manager) Create(ctx context.Context, deliverableID, issue, requestedBy string, level types.EscalationLevel, trigger types.EscalationTrigger) (*types.Escalation, error) {
	if deliverableID == "" {
		return nil, fmt.Errorf("deliverable_id is required")
	}
	if !level.IsValid() {
		return nil, fmt.Errorf("invalid escalation level: %s", level)
	}
	if !trigger.IsValid() {
		return nil, fmt.Errorf("invalid escalation trigger: %s", trigger)
	}

	now := m.clock.Now()
	target := now.Add(m.windows.Window(level))

	esc := &types.Escalation{
		ID:               newID(now, deliverableID),
		DeliverableID:    deliverableID,
		IssueDescription: issue,
		Level:            level,
		Status:           types.EscalationPending,
		RequestedBy:      requestedBy,
		CreatedAt:        now,
		UpdatedAt:        now,
		ResolutionTarget: &target,
	}

	if err := m.store.SaveEscalation(ctx, esc); err != nil {
		return esc, fmt.Errorf("persisting escalation %s: %w", esc.ID, err)
	}

	if err := m.store.LogEscalationTrigger(ctx, &TriggerRecord{
		EscalationID:  esc.ID,
		DeliverableID: deliverableID,
		Trigger:       trigger,
		Level:         level,
		Detail:        issue,
		CreatedAt:     now,
	}); err != nil {
		fmt.Printf("warning: failed to log escalation trigger for %s: %v\n", esc.ID, err)
	}

	if step, ok := m.steps.Step(level); ok {
		if err := m.store.LogWorkflowStep(ctx, esc.ID, step, now); err != nil {
			fmt.Printf("warning: failed to log workflow step for %s: %v\n", esc.ID, err)
		}
	}

	m.record(fmt.Sprintf("Escalation %s opened at %s for %s (%s)", esc.ID, level, deliverableID, trigger),
		"created", map[string]interface{}{
			"escalation_id": esc.ID,
			"level":         string(level),
			"trigger":       string(trigger),
		})

	return esc, nil
}

// EscalateQualityFailure bridges a failing quality result into the workflow.
// It satisfies the gates engine's Escalator interface.
func (m *Manager) EscalateQualityFailure(ctx context.Context, result *types.QualityResult, level types.EscalationLevel) error {
	issue := fmt.Sprintf("quality gate %s scored %.1f: %s", result.Stage, result.Score, result.Reasoning)
	_, err := m.Create(ctx, result.DeliverableID, issue, "quality_gate", level, types.TriggerQualityFailure)
	return err
}

// EscalatePendingTimeout opens a medium escalation for a deliverable that has
// been awaiting review since pendingSince and is now past the pending
// timeout. Deliverables still inside the window return (nil, nil).
func (m *Manager) EscalatePendingTimeout(ctx context.Context, deliverableID string, pendingSince time.Time) (*types.Escalation, error) {
	if deliverableID == "" {
		return nil, fmt.Errorf("deliverable_id is required")
	}

	pending := m.clock.Now().Sub(pendingSince)
	if pending <= m.pendingTimeout {
		return nil, nil
	}

	issue := fmt.Sprintf("deliverable pending review for %.1fh (limit %.0fh)",
		pending.Hours(), m.pendingTimeout.Hours())
	return m.Create(ctx, deliverableID, issue, "pending_monitor", types.LevelMedium, types.TriggerTimeout)
}

// StepFor returns the workflow step configured for a level.
func (m *Manager) StepFor(level types.EscalationLevel) (types.WorkflowStep, bool) {
	return m.steps.Step(level)
}

// UpdateStatus moves an escalation to a new workflow state, enforcing the
// state machine.
func (m *Manager) UpdateStatus(ctx context.Context, id string, target types.EscalationStatus) (*types.Escalation, error) {
	esc, err := m.store.GetEscalation(ctx, id)
	if err != nil {
		return nil, err
	}
	if !esc.Status.CanTransitionTo(target) {
		return nil, fmt.Errorf("escalation %s: %s -> %s: %w", id, esc.Status, target, ErrInvalidTransition)
	}

	esc.Status = target
	esc.UpdatedAt = m.clock.Now()
	if err := m.store.UpdateEscalation(ctx, esc); err != nil {
		return esc, fmt.Errorf("persisting status change for %s: %w", id, err)
	}
	return esc, nil
}

// AssignExpert records the expert on the escalation and moves it to
// expert_assigned. The escalation must be in_progress.
func (m *Manager) AssignExpert(ctx context.Context, id, expertID string) (*types.Escalation, error) {
	esc, err := m.store.GetEscalation(ctx, id)
	if err != nil {
		return nil, err
	}
	if !esc.Status.CanTransitionTo(types.EscalationExpertAssigned) {
		return nil, fmt.Errorf("escalation %s: %s -> %s: %w", id, esc.Status, types.EscalationExpertAssigned, ErrInvalidTransition)
	}

	now := m.clock.Now()
	esc.ExpertAssigned = expertID
	esc.Status = types.EscalationExpertAssigned
	esc.UpdatedAt = now
	if err := m.store.UpdateEscalation(ctx, esc); err != nil {
		return esc, fmt.Errorf("persisting expert assignment for %s: %w", id, err)
	}

	if err := m.store.LogExpertAssignment(ctx, id, expertID, now); err != nil {
		fmt.Printf("warning: failed to log expert assignment for %s: %v\n", id, err)
	}

	m.record(fmt.Sprintf("Expert %s assigned to escalation %s", expertID, id),
		"expert_assigned", map[string]interface{}{
			"escalation_id": id,
			"expert_id":     expertID,
		})

	return esc, nil
}

// Resolve closes an escalation with resolution notes. The escalation must be
// under_review.
func (m *Manager) Resolve(ctx context.Context, id, notes string) (*types.Escalation, error) {
	esc, err := m.store.GetEscalation(ctx, id)
	if err != nil {
		return nil, err
	}
	if !esc.Status.CanTransitionTo(types.EscalationResolved) {
		return nil, fmt.Errorf("escalation %s: %s -> %s: %w", id, esc.Status, types.EscalationResolved, ErrInvalidTransition)
	}

	esc.Status = types.EscalationResolved
	esc.ResolutionNotes = notes
	esc.UpdatedAt = m.clock.Now()
	if err := m.store.UpdateEscalation(ctx, esc); err != nil {
		return esc, fmt.Errorf("persisting resolution for %s: %w", id, err)
	}

	m.record(fmt.Sprintf("Escalation %s resolved", id), "resolved",
		map[string]interface{}{"escalation_id": id})

	return esc, nil
}

// SweepResult summarizes one overdue sweep.
type SweepResult struct {
	Checked   int
	Escalated int
	SweptAt   time.Time
}

// SweepOverdue escalates every non-terminal escalation past its resolution
// target to the next level, recomputing a fresh target from the sweep time
// and resetting status to pending. Exactly one sweep runs at a time;
// concurrent callers get ErrSweepInProgress.
func (m *Manager) SweepOverdue(ctx context.Context) (*SweepResult, error) {
	if m.sweepRate != nil && !m.sweepRate.Allow() {
		return nil, ErrSweepThrottled
	}
	if !m.sweepGuard.TryAcquire(1) {
		return nil, ErrSweepInProgress
	}
	defer m.sweepGuard.Release(1)

	now := m.clock.Now()
	overdue, err := m.store.ListOverdueEscalations(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("listing overdue escalations: %w", err)
	}

	result := &SweepResult{Checked: len(overdue), SweptAt: now}

	for _, esc := range overdue {
		if err := ctx.Err(); err != nil {
			return result, fmt.Errorf("sweep stopped after %d escalation(s): %w", result.Escalated, err)
		}
		if !esc.Overdue(now) {
			continue
		}

		next := esc.Level.Next()
		if next == esc.Level {
			// Critical is absorbing; refresh the target so the row is not
			// re-reported every sweep, but do not change the level.
			target := now.Add(m.windows.Window(esc.Level))
			esc.ResolutionTarget = &target
			esc.UpdatedAt = now
			if err := m.store.UpdateEscalation(ctx, esc); err != nil {
				return result, fmt.Errorf("refreshing critical escalation %s: %w", esc.ID, err)
			}
			continue
		}

		target := now.Add(m.windows.Window(next))
		esc.Level = next
		esc.Status = types.EscalationPending
		esc.ResolutionTarget = &target
		esc.UpdatedAt = now
		if err := m.store.UpdateEscalation(ctx, esc); err != nil {
			return result, fmt.Errorf("escalating %s: %w", esc.ID, err)
		}

		if err := m.store.LogEscalationTrigger(ctx, &TriggerRecord{
			EscalationID:  esc.ID,
			DeliverableID: esc.DeliverableID,
			Trigger:       types.TriggerTimeout,
			Level:         next,
			Detail:        fmt.Sprintf("overdue at %s, auto-escalated to %s", now.Format(time.RFC3339), next),
			CreatedAt:     now,
		}); err != nil {
			fmt.Printf("warning: failed to log timeout trigger for %s: %v\n", esc.ID, err)
		}

		if step, ok := m.steps.Step(next); ok {
			if err := m.store.LogWorkflowStep(ctx, esc.ID, step, now); err != nil {
				fmt.Printf("warning: failed to log workflow step for %s: %v\n", esc.ID, err)
			}
		}

		result.Escalated++
	}

	if result.Escalated > 0 {
		m.record(fmt.Sprintf("Overdue sweep escalated %d of %d overdue escalation(s)", result.Escalated, result.Checked),
			"auto_escalated", map[string]interface{}{
				"checked":   result.Checked,
				"escalated": result.Escalated,
			})
	}

	return result, nil
}

// Active lists non-terminal escalations.
func (m *Manager) Active(ctx context.Context) ([]*types.Escalation, error) {
	return m.store.ListActiveEscalations(ctx)
}

// Stats summarizes escalation activity over the trailing period.
func (m *Manager) Stats(ctx context.Context, periodDays int) (*types.EscalationStats, error) {
	if periodDays <= 0 {
		periodDays = 7
	}
	return m.store.EscalationStats(ctx, periodDays, m.clock.Now())
}

func (m *Manager) record(reasoning, outcome string, context map[string]interface{}) {
	rec := decision.New(decision.TypeEscalation, reasoning, outcome, 8)
	rec.Context = context
	if err := m.decisions.Record(rec); err != nil {
		fmt.Printf("warning: failed to record escalation decision: %v\n", err)
	}
}
