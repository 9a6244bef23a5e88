// Package decision defines the structured records the engine emits for every
// consequential choice (assignments, gate outcomes, escalations). The engine
// only produces these records; analysis of them lives outside this module.
package decision

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Type classifies a decision record.
type Type string

const (
	TypeTaskAssignment     Type = "task_assignment"
	TypeQualityGate        Type = "quality_gate"
	TypeResourceAllocation Type = "resource_allocation"
	TypeEscalation         Type = "escalation"
	TypeWorkflowSelection  Type = "workflow_selection"
)

// IsValid checks if the decision type value is valid.
func (t Type) IsValid() bool {
	switch t {
	case TypeTaskAssignment, TypeQualityGate, TypeResourceAllocation,
		TypeEscalation, TypeWorkflowSelection:
		return true
	}
	return false
}

// Record captures the context and reasoning behind one decision.
type Record struct {
	ID         string                 `json:"id"`
	Type       Type                   `json:"type"`
	Context    map[string]interface{} `json:"context,omitempty"`
	Reasoning  string                 `json:"reasoning"`
	Outcome    string                 `json:"outcome"`
	Confidence int                    `json:"confidence"` // 1-10
	CreatedAt  time.Time              `json:"created_at"`
}

// New creates a record with a fresh id and timestamp.
func New(t Type, reasoning, outcome string, confidence int) *Record {
	return &Record{
		ID:         uuid.New().String(),
		Type:       t,
		Reasoning:  reasoning,
		Outcome:    outcome,
		Confidence: confidence,
		CreatedAt:  time.Now(),
	}
}

// Validate checks if the record has valid field values.
func (r *Record) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("decision id is required")
	}
	if !r.Type.IsValid() {
		return fmt.Errorf("invalid decision type: %s", r.Type)
	}
	if r.Confidence < 1 || r.Confidence > 10 {
		return fmt.Errorf("confidence must be between 1 and 10 (got %d)", r.Confidence)
	}
	return nil
}

// Sink is a write-only destination for decision records. Failures writing a
// record must not invalidate the computation that produced it.
type Sink interface {
	Record(rec *Record) error
}

// Discard is a Sink that drops every record. Useful for tests and for
// callers that do not capture reasoning.
type Discard struct{}

// Record implements Sink.
func (Discard) Record(*Record) error { return nil }
