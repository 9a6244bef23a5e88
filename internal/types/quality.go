package types

import (
	"fmt"
	"time"
)

// QualityStage identifies the pipeline checkpoint a deliverable is scored at.
type QualityStage string

const (
	StageInputValidation QualityStage = "input_validation"
	StageContentReview   QualityStage = "content_review"
	StagePMApproval      QualityStage = "pm_approval"
)

// IsValid checks if the quality stage value is valid.
func (s QualityStage) IsValid() bool {
	switch s {
	case StageInputValidation, StageContentReview, StagePMApproval:
		return true
	}
	return false
}

// QualityDecision is the outcome of a quality gate.
type QualityDecision string

const (
	DecisionApproved      QualityDecision = "approved"
	DecisionNeedsRevision QualityDecision = "needs_revision"
	DecisionRejected      QualityDecision = "rejected"
)

// IsValid checks if the decision value is valid.
func (d QualityDecision) IsValid() bool {
	switch d {
	case DecisionApproved, DecisionNeedsRevision, DecisionRejected:
		return true
	}
	return false
}

// QualityResult is a scored gate outcome for one deliverable at one stage.
type QualityResult struct {
	DeliverableID string          `json:"deliverable_id"`
	Stage         QualityStage    `json:"stage"`
	Decision      QualityDecision `json:"decision"`
	Score         float64         `json:"score"` // 0-10
	Reasoning     string          `json:"reasoning,omitempty"`
	WorkerID      string          `json:"worker_id,omitempty"` // producing worker, for performance metrics
	CreatedAt     time.Time       `json:"created_at"`
}

// Validate checks if the quality result has valid field values.
func (r *QualityResult) Validate() error {
	if r.DeliverableID == "" {
		return fmt.Errorf("deliverable_id is required")
	}
	if !r.Stage.IsValid() {
		return fmt.Errorf("invalid quality stage: %s", r.Stage)
	}
	if !r.Decision.IsValid() {
		return fmt.Errorf("invalid quality decision: %s", r.Decision)
	}
	if r.Score < 0 || r.Score > 10 {
		return fmt.Errorf("score must be between 0 and 10 (got %.2f)", r.Score)
	}
	return nil
}

// Deliverable is one item submitted to a quality gate.
// Content carries caller-supplied assessment inputs (accuracy_score,
// completeness_score, pm_score, required_fields) keyed by field name.
type Deliverable struct {
	ID       string                 `json:"id"`
	WorkerID string                 `json:"worker_id,omitempty"`
	Content  map[string]interface{} `json:"content"`
}
