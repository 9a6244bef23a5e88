package metrics

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tasknet/dispatch/internal/clock"
	"github.com/tasknet/dispatch/internal/types"
)

var t0 = time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC)

// memSource is an in-memory ResultSource/BenchmarkStore double.
type memSource struct {
	results    []*types.QualityResult
	benchmarks map[string]float64
}

func (s *memSource) ListQualityResults(ctx context.Context, since time.Time) ([]*types.QualityResult, error) {
	var out []*types.QualityResult
	for _, r := range s.results {
		if !r.CreatedAt.Before(since) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *memSource) ListQualityResultsByWorker(ctx context.Context, workerID string, since time.Time) ([]*types.QualityResult, error) {
	var out []*types.QualityResult
	for _, r := range s.results {
		if r.WorkerID == workerID && !r.CreatedAt.Before(since) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *memSource) GetBenchmarks(ctx context.Context) (map[string]float64, error) {
	return s.benchmarks, nil
}

func (s *memSource) SaveBenchmark(ctx context.Context, name string, value float64) error {
	if s.benchmarks == nil {
		s.benchmarks = make(map[string]float64)
	}
	s.benchmarks[name] = value
	return nil
}

func result(worker string, score float64, decision types.QualityDecision, at time.Time) *types.QualityResult {
	return &types.QualityResult{
		DeliverableID: "d",
		Stage:         types.StagePMApproval,
		Decision:      decision,
		Score:         score,
		WorkerID:      worker,
		CreatedAt:     at,
	}
}

func newTestEngine(t *testing.T, src *memSource) *Engine {
	t.Helper()
	e, err := New(Config{
		Results:    src,
		Benchmarks: src,
		Clock:      clock.NewFake(t0),
	})
	require.NoError(t, err)
	return e
}

func TestQualityTrendImproving(t *testing.T) {
	src := &memSource{results: []*types.QualityResult{
		result("w", 6.0, types.DecisionNeedsRevision, t0.Add(-4*time.Hour)),
		result("w", 6.5, types.DecisionNeedsRevision, t0.Add(-3*time.Hour)),
		result("w", 8.0, types.DecisionApproved, t0.Add(-2*time.Hour)),
		result("w", 8.5, types.DecisionApproved, t0.Add(-time.Hour)),
	}}
	e := newTestEngine(t, src)

	trend, err := e.QualityTrend(context.Background())
	require.NoError(t, err)
	assert.Equal(t, TrendImproving, trend.Direction)
	assert.InDelta(t, 6.25, trend.EarlyMean, 1e-9)
	assert.InDelta(t, 8.25, trend.RecentMean, 1e-9)
	assert.InDelta(t, 7.25, trend.Mean, 1e-9)
}

func TestQualityTrendDeclining(t *testing.T) {
	src := &memSource{results: []*types.QualityResult{
		result("w", 9.0, types.DecisionApproved, t0.Add(-4*time.Hour)),
		result("w", 8.5, types.DecisionApproved, t0.Add(-3*time.Hour)),
		result("w", 6.0, types.DecisionNeedsRevision, t0.Add(-2*time.Hour)),
		result("w", 5.0, types.DecisionRejected, t0.Add(-time.Hour)),
	}}
	e := newTestEngine(t, src)

	trend, err := e.QualityTrend(context.Background())
	require.NoError(t, err)
	assert.Equal(t, TrendDeclining, trend.Direction)
}

func TestQualityTrendStableWithinDelta(t *testing.T) {
	src := &memSource{results: []*types.QualityResult{
		result("w", 8.0, types.DecisionApproved, t0.Add(-4*time.Hour)),
		result("w", 8.0, types.DecisionApproved, t0.Add(-3*time.Hour)),
		result("w", 8.05, types.DecisionApproved, t0.Add(-2*time.Hour)),
		result("w", 8.05, types.DecisionApproved, t0.Add(-time.Hour)),
	}}
	e := newTestEngine(t, src)

	trend, err := e.QualityTrend(context.Background())
	require.NoError(t, err)
	assert.Equal(t, TrendStable, trend.Direction)
}

func TestQualityTrendFewSamplesIsStable(t *testing.T) {
	src := &memSource{results: []*types.QualityResult{
		result("w", 2.0, types.DecisionRejected, t0.Add(-2*time.Hour)),
		result("w", 9.0, types.DecisionApproved, t0.Add(-time.Hour)),
	}}
	e := newTestEngine(t, src)

	trend, err := e.QualityTrend(context.Background())
	require.NoError(t, err)
	assert.Equal(t, TrendStable, trend.Direction)
	assert.Equal(t, 2, trend.SampleCount)
}

func TestQualityTrendIgnoresResultsOutsideWindow(t *testing.T) {
	src := &memSource{results: []*types.QualityResult{
		result("w", 1.0, types.DecisionRejected, t0.AddDate(0, 0, -60)),
		result("w", 9.0, types.DecisionApproved, t0.Add(-time.Hour)),
	}}
	e := newTestEngine(t, src)

	trend, err := e.QualityTrend(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, trend.SampleCount)
	assert.InDelta(t, 9.0, trend.Mean, 1e-9)
}

func TestWorkerSnapshot(t *testing.T) {
	src := &memSource{results: []*types.QualityResult{
		result("w-1", 9.0, types.DecisionApproved, t0.Add(-3*time.Hour)),
		result("w-1", 8.0, types.DecisionApproved, t0.Add(-2*time.Hour)),
		result("w-1", 3.0, types.DecisionRejected, t0.Add(-time.Hour)),
		result("w-2", 5.0, types.DecisionNeedsRevision, t0.Add(-time.Hour)),
	}}
	e := newTestEngine(t, src)

	snap, err := e.WorkerSnapshot(context.Background(), "w-1")
	require.NoError(t, err)
	assert.Equal(t, 3, snap.SampleCount)
	assert.InDelta(t, 20.0/3, snap.AverageQuality, 1e-9)
	assert.InDelta(t, 2.0/3, snap.CompletionRate, 1e-9)
	assert.InDelta(t, 1.0/3, snap.ErrorRate, 1e-9)
}

func TestWorkerSnapshotNoHistory(t *testing.T) {
	e := newTestEngine(t, &memSource{})
	snap, err := e.WorkerSnapshot(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Zero(t, snap.SampleCount)
}

func TestBenchmarksMergeOverDefaults(t *testing.T) {
	src := &memSource{benchmarks: map[string]float64{BenchmarkQuality: 9.0}}
	e := newTestEngine(t, src)

	merged, err := e.Benchmarks(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 9.0, merged[BenchmarkQuality])
	assert.Equal(t, 0.95, merged[BenchmarkCompletion]) // default preserved
}

func TestSetBenchmarkValidates(t *testing.T) {
	e := newTestEngine(t, &memSource{})

	require.NoError(t, e.SetBenchmark(context.Background(), BenchmarkQuality, 8.5))
	assert.Error(t, e.SetBenchmark(context.Background(), "made_up", 1))
	assert.Error(t, e.SetBenchmark(context.Background(), BenchmarkQuality, -1))
}

func TestHealthNeutralWithNoData(t *testing.T) {
	e := newTestEngine(t, &memSource{})
	health, err := e.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 50.0, health.Score)
}

func TestHealthPerfectPool(t *testing.T) {
	src := &memSource{results: []*types.QualityResult{
		result("w", 9.0, types.DecisionApproved, t0.Add(-3*time.Hour)),
		result("w", 9.0, types.DecisionApproved, t0.Add(-2*time.Hour)),
		result("w", 9.0, types.DecisionApproved, t0.Add(-time.Hour)),
	}}
	e := newTestEngine(t, src)

	health, err := e.Health(context.Background())
	require.NoError(t, err)
	// Quality above target, completion 1.0 >= 0.95, zero errors.
	assert.Equal(t, 100.0, health.Score)
}

// failingSource errors on every read, as a downed store would.
type failingSource struct{ memSource }

func (failingSource) ListQualityResultsByWorker(ctx context.Context, workerID string, since time.Time) ([]*types.QualityResult, error) {
	return nil, fmt.Errorf("store unavailable")
}

func TestMultiplierNeutralWhenStoreFails(t *testing.T) {
	e, err := New(Config{
		Results: &failingSource{},
		Clock:   clock.NewFake(t0),
	})
	require.NoError(t, err)

	assert.InDelta(t, 1.0, e.Multiplier("w-1"), 1e-9)
}

func TestMultiplier(t *testing.T) {
	src := &memSource{results: []*types.QualityResult{
		result("good", 10, types.DecisionApproved, t0.Add(-time.Hour)),
		result("bad", 0, types.DecisionRejected, t0.Add(-time.Hour)),
	}}
	e := newTestEngine(t, src)

	assert.InDelta(t, 1.2, e.Multiplier("good"), 1e-9)
	assert.InDelta(t, 0.8, e.Multiplier("bad"), 1e-9)
	assert.InDelta(t, 1.0, e.Multiplier("unknown"), 1e-9)
}
