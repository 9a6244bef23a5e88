package types

import (
	"fmt"
	"time"
)

// EscalationLevel is the ordinal severity of an escalation.
type EscalationLevel string

const (
	LevelLow      EscalationLevel = "low"
	LevelMedium   EscalationLevel = "medium"
	LevelHigh     EscalationLevel = "high"
	LevelCritical EscalationLevel = "critical"
)

// IsValid checks if the escalation level value is valid.
func (l EscalationLevel) IsValid() bool {
	switch l {
	case LevelLow, LevelMedium, LevelHigh, LevelCritical:
		return true
	}
	return false
}

// Next returns the level an overdue escalation is upgraded to.
// Critical is absorbing: Next(critical) == critical.
func (l EscalationLevel) Next() EscalationLevel {
	switch l {
	case LevelLow:
		return LevelMedium
	case LevelMedium:
		return LevelHigh
	case LevelHigh:
		return LevelCritical
	default:
		return LevelCritical
	}
}

// EscalationStatus represents the workflow state of an escalation.
type EscalationStatus string

const (
	EscalationPending          EscalationStatus = "pending"
	EscalationInProgress       EscalationStatus = "in_progress"
	EscalationExpertAssigned   EscalationStatus = "expert_assigned"
	EscalationUnderReview      EscalationStatus = "under_review"
	EscalationResolved         EscalationStatus = "resolved"
	EscalationEscalatedFurther EscalationStatus = "escalated_further"
)

// IsValid checks if the escalation status value is valid.
func (s EscalationStatus) IsValid() bool {
	switch s {
	case EscalationPending, EscalationInProgress, EscalationExpertAssigned,
		EscalationUnderReview, EscalationResolved, EscalationEscalatedFurther:
		return true
	}
	return false
}

// IsTerminal reports whether the status ends workflow processing.
// resolved is truly terminal; escalated_further is recorded as terminal for
// the current row but re-enters the workflow as a fresh pending state at a
// higher level.
func (s EscalationStatus) IsTerminal() bool {
	return s == EscalationResolved || s == EscalationEscalatedFurther
}

// ValidTransitions defines the escalation workflow state machine.
//
// State Machine Diagram:
//
//	pending → in_progress → expert_assigned → under_review → resolved
//	    ↑          ↓               ↓               ↓
//	    └── escalated_further ←────┴───────────────┘
//
// escalated_further re-enters as pending at the next level (via the overdue
// sweep or explicit escalation), so it is a re-entry trigger rather than a
// true absorbing state.
func (s EscalationStatus) ValidTransitions() []EscalationStatus {
	switch s {
	case EscalationPending:
		return []EscalationStatus{EscalationInProgress, EscalationEscalatedFurther}
	case EscalationInProgress:
		return []EscalationStatus{EscalationExpertAssigned, EscalationUnderReview, EscalationEscalatedFurther}
	case EscalationExpertAssigned:
		return []EscalationStatus{EscalationUnderReview, EscalationEscalatedFurther}
	case EscalationUnderReview:
		return []EscalationStatus{EscalationResolved, EscalationEscalatedFurther}
	case EscalationResolved:
		return []EscalationStatus{} // Terminal state
	case EscalationEscalatedFurther:
		return []EscalationStatus{EscalationPending} // Re-entry at higher level
	default:
		return []EscalationStatus{}
	}
}

// CanTransitionTo checks if a transition from this status to the target is valid.
func (s EscalationStatus) CanTransitionTo(target EscalationStatus) bool {
	for _, valid := range s.ValidTransitions() {
		if valid == target {
			return true
		}
	}
	return false
}

// EscalationTrigger categorizes what caused an escalation.
type EscalationTrigger string

const (
	TriggerQualityFailure EscalationTrigger = "quality_failure"
	TriggerTimeout        EscalationTrigger = "timeout"
	TriggerExpertRequest  EscalationTrigger = "expert_request"
	TriggerManual         EscalationTrigger = "manual"
)

// IsValid checks if the trigger value is valid.
func (t EscalationTrigger) IsValid() bool {
	switch t {
	case TriggerQualityFailure, TriggerTimeout, TriggerExpertRequest, TriggerManual:
		return true
	}
	return false
}

// Escalation tracks a quality problem from creation through expert review
// to resolution. The resolution target is recomputed whenever the level
// changes.
type Escalation struct {
	ID               string           `json:"id"`
	DeliverableID    string           `json:"deliverable_id"`
	IssueDescription string           `json:"issue_description"`
	Level            EscalationLevel  `json:"level"`
	Status           EscalationStatus `json:"status"`
	RequestedBy      string           `json:"requested_by"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
	ResolutionTarget *time.Time       `json:"resolution_target,omitempty"`
	ExpertAssigned   string           `json:"expert_assigned,omitempty"`
	ResolutionNotes  string           `json:"resolution_notes,omitempty"`
}

// Validate checks if the escalation has valid field values.
func (e *Escalation) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("escalation id is required")
	}
	if e.DeliverableID == "" {
		return fmt.Errorf("deliverable_id is required")
	}
	if !e.Level.IsValid() {
		return fmt.Errorf("invalid escalation level: %s", e.Level)
	}
	if !e.Status.IsValid() {
		return fmt.Errorf("invalid escalation status: %s", e.Status)
	}
	return nil
}

// Overdue reports whether the escalation is non-terminal and past its
// resolution target at the given instant.
func (e *Escalation) Overdue(now time.Time) bool {
	if e.Status.IsTerminal() || e.ResolutionTarget == nil {
		return false
	}
	return e.ResolutionTarget.Before(now)
}

// WorkflowStep is one canned review step executed when an escalation enters
// a level. Steps are configuration data, not hardcoded logic.
type WorkflowStep struct {
	StepID            string   `json:"step_id" yaml:"step_id"`
	StepName          string   `json:"step_name" yaml:"step_name"`
	Description       string   `json:"description" yaml:"description"`
	RequiredExpertise []string `json:"required_expertise" yaml:"required_expertise"`
	MaxDurationHours  int      `json:"max_duration_hours" yaml:"max_duration_hours"`
	AutoEscalate      bool     `json:"auto_escalate" yaml:"auto_escalate"`
}

// EscalationStats summarizes escalation activity over a period.
type EscalationStats struct {
	PeriodDays            int                     `json:"period_days"`
	CountsByLevel         map[EscalationLevel]int `json:"counts_by_level"`
	AverageResolutionHrs  float64                 `json:"average_resolution_hours"`
	ActiveEscalations     int                     `json:"active_escalations"`
	GeneratedAt           time.Time               `json:"generated_at"`
}
