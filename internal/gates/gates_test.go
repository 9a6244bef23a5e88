package gates

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tasknet/dispatch/internal/clock"
	"github.com/tasknet/dispatch/internal/types"
)

func newTestEngine(t *testing.T, cfg Config) *Engine {
	t.Helper()
	if cfg.Clock == nil {
		cfg.Clock = clock.NewFake(time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC))
	}
	e, err := New(cfg)
	require.NoError(t, err)
	return e
}

// pm_score 8.2 meets the 8.0 threshold: approved.
func TestPMApprovalPassesThreshold(t *testing.T) {
	e := newTestEngine(t, Config{})

	d := &types.Deliverable{ID: "d-1", Content: map[string]interface{}{"pm_score": 8.2}}
	result, err := e.Execute(context.Background(), d, types.StagePMApproval)
	require.NoError(t, err)
	assert.Equal(t, types.DecisionApproved, result.Decision)
	assert.InDelta(t, 8.2, result.Score, 1e-9)
}

func TestPMApprovalDefaultScore(t *testing.T) {
	e := newTestEngine(t, Config{})

	d := &types.Deliverable{ID: "d-1", Content: map[string]interface{}{}}
	result, err := e.Execute(context.Background(), d, types.StagePMApproval)
	require.NoError(t, err)
	assert.InDelta(t, 8.0, result.Score, 1e-9)
	assert.Equal(t, types.DecisionApproved, result.Decision)
}

func TestContentReviewAveragesScores(t *testing.T) {
	e := newTestEngine(t, Config{})

	d := &types.Deliverable{ID: "d-1", Content: map[string]interface{}{
		"accuracy_score":     6.0,
		"completeness_score": 8.0,
	}}
	result, err := e.Execute(context.Background(), d, types.StageContentReview)
	require.NoError(t, err)
	assert.InDelta(t, 7.0, result.Score, 1e-9)
	assert.Equal(t, types.DecisionApproved, result.Decision) // threshold 7.0
}

func TestInputValidationFieldCoverage(t *testing.T) {
	e := newTestEngine(t, Config{})

	complete := &types.Deliverable{ID: "d-1", Content: map[string]interface{}{
		"required_fields": []string{"title", "body"},
		"title":           "x",
		"body":            "y",
	}}
	result, err := e.Execute(context.Background(), complete, types.StageInputValidation)
	require.NoError(t, err)
	assert.InDelta(t, 9.0, result.Score, 1e-9)
	assert.Equal(t, types.DecisionApproved, result.Decision)

	incomplete := &types.Deliverable{ID: "d-2", Content: map[string]interface{}{
		"required_fields": []string{"title", "body", "summary"},
		"title":           "x",
	}}
	result, err = e.Execute(context.Background(), incomplete, types.StageInputValidation)
	require.NoError(t, err)
	assert.InDelta(t, 6.0, result.Score, 1e-9)
	assert.Equal(t, types.DecisionApproved, result.Decision) // exactly at threshold 6.0
}

// The required_fields key is a content key like any other: with two required
// fields and only one of them supplied, the declaration itself brings the
// provided count to two and the deliverable passes.
func TestInputValidationCountsDeclarationKey(t *testing.T) {
	e := newTestEngine(t, Config{})

	d := &types.Deliverable{ID: "d-1", Content: map[string]interface{}{
		"required_fields": []string{"title", "body"},
		"title":           "x",
	}}
	result, err := e.Execute(context.Background(), d, types.StageInputValidation)
	require.NoError(t, err)
	assert.InDelta(t, 9.0, result.Score, 1e-9)
	assert.Equal(t, types.DecisionApproved, result.Decision)
}

// Decision banding: approved at threshold, needs_revision down to
// threshold-2, rejected below that.
func TestDecisionBanding(t *testing.T) {
	e := newTestEngine(t, Config{})

	tests := []struct {
		pmScore float64
		want    types.QualityDecision
	}{
		{8.0, types.DecisionApproved},
		{7.9, types.DecisionNeedsRevision},
		{6.0, types.DecisionNeedsRevision},
		{5.9, types.DecisionRejected},
	}
	for _, tt := range tests {
		d := &types.Deliverable{ID: "d", Content: map[string]interface{}{"pm_score": tt.pmScore}}
		result, err := e.Execute(context.Background(), d, types.StagePMApproval)
		require.NoError(t, err)
		assert.Equal(t, tt.want, result.Decision, "pm_score %.1f", tt.pmScore)
	}
}

// A malformed item degrades to rejected/0 with the error in its rationale;
// the rest of the batch proceeds.
func TestBatchPartialFailure(t *testing.T) {
	e := newTestEngine(t, Config{})

	batch := []*types.Deliverable{
		{ID: "d-1", Content: map[string]interface{}{"pm_score": 8.5}},
		{ID: "d-2", Content: map[string]interface{}{"pm_score": "not-a-number"}},
		{ID: "d-3", Content: map[string]interface{}{"pm_score": 7.0}},
	}

	results, err := e.ExecuteBatch(context.Background(), batch, types.StagePMApproval)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, types.DecisionApproved, results[0].Decision)

	assert.Equal(t, types.DecisionRejected, results[1].Decision)
	assert.Zero(t, results[1].Score)
	assert.Contains(t, results[1].Reasoning, "failed")

	assert.Equal(t, types.DecisionNeedsRevision, results[2].Decision)
}

func TestBatchHonorsCancellation(t *testing.T) {
	e := newTestEngine(t, Config{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	batch := []*types.Deliverable{
		{ID: "d-1", Content: map[string]interface{}{"pm_score": 8.5}},
	}
	results, err := e.ExecuteBatch(ctx, batch, types.StagePMApproval)
	require.Error(t, err)
	assert.Empty(t, results)
}

func TestLevelMapping(t *testing.T) {
	m := DefaultLevelMapping()

	tests := []struct {
		score     float64
		wantLevel types.EscalationLevel
		wantOK    bool
	}{
		{1.5, types.LevelHigh, true},
		{2.0, types.LevelHigh, true},
		{3.0, types.LevelMedium, true},
		{5.5, types.LevelLow, true},
		{6.0, types.LevelLow, true},
		{6.1, "", false},
		{9.0, "", false},
	}
	for _, tt := range tests {
		level, ok := m.Level(tt.score)
		assert.Equal(t, tt.wantOK, ok, "score %.1f", tt.score)
		if ok {
			assert.Equal(t, tt.wantLevel, level, "score %.1f", tt.score)
		}
	}
}

type capturingEscalator struct {
	level  types.EscalationLevel
	result *types.QualityResult
	calls  int
}

func (c *capturingEscalator) EscalateQualityFailure(ctx context.Context, result *types.QualityResult, level types.EscalationLevel) error {
	c.calls++
	c.level = level
	c.result = result
	return nil
}

func TestFailingScoreTriggersEscalation(t *testing.T) {
	esc := &capturingEscalator{}
	e := newTestEngine(t, Config{Escalator: esc})

	d := &types.Deliverable{ID: "d-1", Content: map[string]interface{}{"pm_score": 3.0}}
	result, err := e.Execute(context.Background(), d, types.StagePMApproval)
	require.NoError(t, err)
	assert.Equal(t, types.DecisionRejected, result.Decision)

	require.Equal(t, 1, esc.calls)
	assert.Equal(t, types.LevelMedium, esc.level)
	assert.Equal(t, "d-1", esc.result.DeliverableID)
}

func TestApprovedScoreDoesNotEscalate(t *testing.T) {
	esc := &capturingEscalator{}
	e := newTestEngine(t, Config{Escalator: esc})

	d := &types.Deliverable{ID: "d-1", Content: map[string]interface{}{"pm_score": 9.0}}
	_, err := e.Execute(context.Background(), d, types.StagePMApproval)
	require.NoError(t, err)
	assert.Zero(t, esc.calls)
}

func TestCustomThresholds(t *testing.T) {
	e := newTestEngine(t, Config{
		Thresholds: map[types.QualityStage]float64{types.StagePMApproval: 9.0},
	})
	assert.Equal(t, 9.0, e.Threshold(types.StagePMApproval))
	// Unspecified stages keep their defaults.
	assert.Equal(t, 6.0, e.Threshold(types.StageInputValidation))

	_, err := New(Config{Thresholds: map[types.QualityStage]float64{types.StagePMApproval: 12}})
	assert.Error(t, err)
}
