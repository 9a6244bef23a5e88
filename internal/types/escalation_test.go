package types

import (
	"testing"
	"time"
)

func TestEscalationLevelNext(t *testing.T) {
	tests := []struct {
		from, want EscalationLevel
	}{
		{LevelLow, LevelMedium},
		{LevelMedium, LevelHigh},
		{LevelHigh, LevelCritical},
		{LevelCritical, LevelCritical}, // absorbing
	}
	for _, tt := range tests {
		if got := tt.from.Next(); got != tt.want {
			t.Errorf("Next(%s) = %s, want %s", tt.from, got, tt.want)
		}
	}
}

func TestEscalationStatusTransitions(t *testing.T) {
	allowed := []struct {
		from, to EscalationStatus
	}{
		{EscalationPending, EscalationInProgress},
		{EscalationInProgress, EscalationExpertAssigned},
		{EscalationInProgress, EscalationUnderReview},
		{EscalationExpertAssigned, EscalationUnderReview},
		{EscalationUnderReview, EscalationResolved},
		{EscalationUnderReview, EscalationEscalatedFurther},
		{EscalationEscalatedFurther, EscalationPending}, // re-entry
	}
	for _, tt := range allowed {
		if !tt.from.CanTransitionTo(tt.to) {
			t.Errorf("expected %s -> %s to be allowed", tt.from, tt.to)
		}
	}

	forbidden := []struct {
		from, to EscalationStatus
	}{
		{EscalationPending, EscalationResolved},
		{EscalationPending, EscalationUnderReview},
		{EscalationResolved, EscalationPending},
		{EscalationResolved, EscalationInProgress},
		{EscalationExpertAssigned, EscalationInProgress},
	}
	for _, tt := range forbidden {
		if tt.from.CanTransitionTo(tt.to) {
			t.Errorf("expected %s -> %s to be forbidden", tt.from, tt.to)
		}
	}
}

func TestEscalationStatusTerminal(t *testing.T) {
	if !EscalationResolved.IsTerminal() {
		t.Error("resolved should be terminal")
	}
	if !EscalationEscalatedFurther.IsTerminal() {
		t.Error("escalated_further should be terminal for its row")
	}
	if EscalationPending.IsTerminal() {
		t.Error("pending should not be terminal")
	}
}

func TestEscalationOverdue(t *testing.T) {
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	esc := &Escalation{
		ID:               "ESC_1",
		DeliverableID:    "d-1",
		Level:            LevelMedium,
		Status:           EscalationPending,
		ResolutionTarget: &past,
	}
	if !esc.Overdue(now) {
		t.Error("escalation past its target should be overdue")
	}

	esc.ResolutionTarget = &future
	if esc.Overdue(now) {
		t.Error("escalation before its target should not be overdue")
	}

	esc.ResolutionTarget = &past
	esc.Status = EscalationResolved
	if esc.Overdue(now) {
		t.Error("terminal escalations are never overdue")
	}

	esc.Status = EscalationPending
	esc.ResolutionTarget = nil
	if esc.Overdue(now) {
		t.Error("escalations without a target are never overdue")
	}
}
