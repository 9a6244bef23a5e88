// Package gates scores deliverables at pipeline checkpoints and decides
// approve / needs_revision / reject per stage. Low scores bridge into the
// escalation workflow.
package gates

import (
	"context"
	"fmt"

	"github.com/tasknet/dispatch/internal/clock"
	"github.com/tasknet/dispatch/internal/decision"
	"github.com/tasknet/dispatch/internal/types"
)

// Default per-stage decision thresholds. Later stages demand more.
func DefaultThresholds() map[types.QualityStage]float64 {
	return map[types.QualityStage]float64{
		types.StageInputValidation: 6.0,
		types.StageContentReview:   7.0,
		types.StagePMApproval:      8.0,
	}
}

// revisionBand is how far below the threshold a score can land and still get
// needs_revision instead of rejected.
const revisionBand = 2.0

// LevelForScore maps a failing quality score to the escalation level it
// warrants. Scores above 6 do not escalate.
type LevelMapping struct {
	HighBelow   float64 // score <= HighBelow -> high
	MediumBelow float64 // score <= MediumBelow -> medium
	LowBelow    float64 // score <= LowBelow -> low
}

// DefaultLevelMapping returns the standard score-to-level bands.
func DefaultLevelMapping() LevelMapping {
	return LevelMapping{HighBelow: 2.0, MediumBelow: 4.0, LowBelow: 6.0}
}

// Level returns the escalation level for a score, or false when the score is
// above every band.
func (m LevelMapping) Level(score float64) (types.EscalationLevel, bool) {
	switch {
	case score <= m.HighBelow:
		return types.LevelHigh, true
	case score <= m.MediumBelow:
		return types.LevelMedium, true
	case score <= m.LowBelow:
		return types.LevelLow, true
	}
	return "", false
}

// ResultStore persists gate outcomes.
type ResultStore interface {
	SaveQualityResult(ctx context.Context, r *types.QualityResult) error
}

// Escalator receives quality failures that warrant escalation. Implemented
// by the escalation workflow manager.
type Escalator interface {
	EscalateQualityFailure(ctx context.Context, result *types.QualityResult, level types.EscalationLevel) error
}

// Config holds quality gate engine configuration.
type Config struct {
	// Thresholds overrides the per-stage decision thresholds. Missing stages
	// fall back to the defaults.
	Thresholds map[types.QualityStage]float64

	Levels    LevelMapping
	Store     ResultStore   // optional
	Escalator Escalator     // optional
	Decisions decision.Sink // optional
	Clock     clock.Clock
}

// Engine evaluates deliverables against stage gates.
type Engine struct {
	thresholds map[types.QualityStage]float64
	levels     LevelMapping
	store      ResultStore
	escalator  Escalator
	decisions  decision.Sink
	clock      clock.Clock
}

// New creates a quality gate engine.
func New(cfg Config) (*Engine, error) {
	thresholds := DefaultThresholds()
	for stage, t := range cfg.Thresholds {
		if !stage.IsValid() {
			return nil, fmt.Errorf("invalid quality stage in thresholds: %s", stage)
		}
		if t < 0 || t > 10 {
			return nil, fmt.Errorf("threshold for %s must be between 0 and 10 (got %.2f)", stage, t)
		}
		thresholds[stage] = t
	}

	levels := cfg.Levels
	if levels == (LevelMapping{}) {
		levels = DefaultLevelMapping()
	}

	e := &Engine{
		thresholds: thresholds,
		levels:     levels,
		store:      cfg.Store,
		escalator:  cfg.Escalator,
		decisions:  cfg.Decisions,
		clock:      cfg.Clock,
	}
	if e.clock == nil {
		e.clock = clock.System()
	}
	if e.decisions == nil {
		e.decisions = decision.Discard{}
	}
	return e, nil
}

// Threshold returns the decision threshold for a stage.
func (e *Engine) Threshold(stage types.QualityStage) float64 {
	return e.thresholds[stage]
}

// Execute scores a deliverable at the given stage and persists the result.
//
// Persistence and escalation errors are returned after the result is fully
// built, so callers always get the scored outcome.
func (e *Engine) Execute(ctx context.Context, d *types.Deliverable, stage types.QualityStage) (*types.QualityResult, error) {
	if d == nil || d.ID == "" {
		return nil, fmt.Errorf("deliverable with an id is required")
	}
	if !stage.IsValid() {
		return nil, fmt.Errorf("invalid quality stage: %s", stage)
	}

	score, rationale, err := e.scoreStage(d, stage)
	if err != nil {
		return nil, fmt.Errorf("scoring %s at %s: %w", d.ID, stage, err)
	}

	result := e.buildResult(d, stage, score, rationale)

	if err := e.finish(ctx, result); err != nil {
		return result, err
	}
	return result, nil
}

// ExecuteBatch scores a list of deliverables. Partial-failure semantics: an
// item that fails scoring yields a rejected result with score 0 and the
// error in its rationale, and the batch continues. Context cancellation is
// honored between items; the in-flight item finishes first.
func (e *Engine) ExecuteBatch(ctx context.Context, deliverables []*types.Deliverable, stage types.QualityStage) ([]*types.QualityResult, error) {
	if !stage.IsValid() {
		return nil, fmt.Errorf("invalid quality stage: %s", stage)
	}

	results := make([]*types.QualityResult, 0, len(deliverables))
	for i, d := range deliverables {
		if err := ctx.Err(); err != nil {
			return results, fmt.Errorf("batch stopped after %d of %d items: %w", i, len(deliverables), err)
		}

		result, err := e.Execute(ctx, d, stage)
		if err != nil && result == nil {
			id := fmt.Sprintf("item-%d", i)
			workerID := ""
			if d != nil {
				if d.ID != "" {
					id = d.ID
				}
				workerID = d.WorkerID
			}
			result = &types.QualityResult{
				DeliverableID: id,
				Stage:         stage,
				Decision:      types.DecisionRejected,
				Score:         0,
				Reasoning:     fmt.Sprintf("gate execution failed: %v", err),
				WorkerID:      workerID,
				CreatedAt:     e.clock.Now(),
			}
			// Degraded results are persisted too so the failure is auditable.
			if e.store != nil {
				if saveErr := e.store.SaveQualityResult(ctx, result); saveErr != nil {
					fmt.Printf("warning: failed to persist degraded gate result for %s: %v\n", id, saveErr)
				}
			}
		} else if err != nil {
			// Scored fine but persistence or escalation failed downstream.
			fmt.Printf("warning: gate post-processing for %s: %v\n", result.DeliverableID, err)
		}
		results = append(results, result)
	}
	return results, nil
}

// scoreStage computes the stage-specific score and rationale.
func (e *Engine) scoreStage(d *types.Deliverable, stage types.QualityStage) (float64, string, error) {
	switch stage {
	case types.StageInputValidation:
		return scoreInputValidation(d.Content)
	case types.StageContentReview:
		return scoreContentReview(d.Content)
	case types.StagePMApproval:
		return scorePMApproval(d.Content)
	}
	return 0, "", fmt.Errorf("unhandled stage %s", stage)
}

// scoreInputValidation checks provided fields against the declared
// required_fields list. Base 8.0, +1.0 when the provided count covers the
// required count, -2.0 otherwise. Every content key counts as provided,
// required_fields itself included.
func scoreInputValidation(content map[string]interface{}) (float64, string, error) {
	required, err := stringSlice(content, "required_fields")
	if err != nil {
		return 0, "", err
	}

	provided := len(content)

	score := 8.0
	rationale := fmt.Sprintf("%d field(s) provided, %d required", provided, len(required))
	if provided >= len(required) {
		score += 1.0
	} else {
		score -= 2.0
		rationale += "; incomplete input"
	}
	return clampScore(score), rationale, nil
}

// scoreContentReview averages the caller-supplied accuracy and completeness
// assessments, defaulting each to 7.0 when absent.
func scoreContentReview(content map[string]interface{}) (float64, string, error) {
	accuracy, err := numberField(content, "accuracy_score", 7.0)
	if err != nil {
		return 0, "", err
	}
	completeness, err := numberField(content, "completeness_score", 7.0)
	if err != nil {
		return 0, "", err
	}
	score := (accuracy + completeness) / 2
	rationale := fmt.Sprintf("accuracy %.1f, completeness %.1f", accuracy, completeness)
	return clampScore(score), rationale, nil
}

// scorePMApproval passes through the supplied pm_score, defaulting to 8.0.
func scorePMApproval(content map[string]interface{}) (float64, string, error) {
	score, err := numberField(content, "pm_score", 8.0)
	if err != nil {
		return 0, "", err
	}
	return clampScore(score), fmt.Sprintf("pm score %.1f", score), nil
}

func (e *Engine) buildResult(d *types.Deliverable, stage types.QualityStage, score float64, rationale string) *types.QualityResult {
	threshold := e.thresholds[stage]

	var dec types.QualityDecision
	switch {
	case score >= threshold:
		dec = types.DecisionApproved
	case score >= threshold-revisionBand:
		dec = types.DecisionNeedsRevision
	default:
		dec = types.DecisionRejected
	}

	return &types.QualityResult{
		DeliverableID: d.ID,
		Stage:         stage,
		Decision:      dec,
		Score:         score,
		Reasoning:     fmt.Sprintf("%s (threshold %.1f): %s", stage, threshold, rationale),
		WorkerID:      d.WorkerID,
		CreatedAt:     e.clock.Now(),
	}
}

// finish persists the result, records the decision, and escalates failures.
func (e *Engine) finish(ctx context.Context, result *types.QualityResult) error {
	rec := decision.New(
		decision.TypeQualityGate,
		result.Reasoning,
		string(result.Decision),
		gateConfidence(result.Score),
	)
	rec.Context = map[string]interface{}{
		"deliverable_id": result.DeliverableID,
		"stage":          string(result.Stage),
		"score":          result.Score,
	}
	if err := e.decisions.Record(rec); err != nil {
		fmt.Printf("warning: failed to record gate decision: %v\n", err)
	}

	if e.store != nil {
		if err := e.store.SaveQualityResult(ctx, result); err != nil {
			return fmt.Errorf("persisting gate result for %s: %w", result.DeliverableID, err)
		}
	}

	if e.escalator != nil && result.Decision != types.DecisionApproved {
		if level, ok := e.levels.Level(result.Score); ok {
			if err := e.escalator.EscalateQualityFailure(ctx, result, level); err != nil {
				return fmt.Errorf("escalating %s: %w", result.DeliverableID, err)
			}
		}
	}
	return nil
}

// gateConfidence converts a 0-10 score to the 1-10 decision confidence scale.
func gateConfidence(score float64) int {
	c := int(score)
	if c < 1 {
		c = 1
	}
	if c > 10 {
		c = 10
	}
	return c
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 10 {
		return 10
	}
	return v
}

// numberField reads a numeric content field with a default. JSON decoding
// delivers float64; callers constructing content in Go may use ints.
func numberField(content map[string]interface{}, key string, def float64) (float64, error) {
	raw, ok := content[key]
	if !ok {
		return def, nil
	}
	switch v := raw.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	default:
		return 0, fmt.Errorf("field %s must be numeric (got %T)", key, raw)
	}
}

func stringSlice(content map[string]interface{}, key string) ([]string, error) {
	raw, ok := content[key]
	if !ok {
		return nil, nil
	}
	switch v := raw.(type) {
	case []string:
		return v, nil
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("field %s must contain strings (got %T)", key, item)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("field %s must be a string list (got %T)", key, raw)
	}
}
