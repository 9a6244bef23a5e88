// Package metrics aggregates persisted quality results into rolling trends,
// per-worker performance snapshots, and a pool health score. Its performance
// multiplier feeds back into capability scoring.
package metrics

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/tasknet/dispatch/internal/clock"
	"github.com/tasknet/dispatch/internal/types"
)

// Benchmark names. Stored as rows so operators can tune targets without a
// release.
const (
	BenchmarkQuality    = "quality_score"
	BenchmarkCompletion = "completion_rate"
	BenchmarkError      = "error_rate"
	BenchmarkResponse   = "response_time_hours"
)

// DefaultBenchmarks returns the standard performance targets.
func DefaultBenchmarks() map[string]float64 {
	return map[string]float64{
		BenchmarkQuality:    8.0,
		BenchmarkCompletion: 0.95,
		BenchmarkError:      0.05,
		BenchmarkResponse:   2.0,
	}
}

// Trend direction over a rolling window.
type Trend string

const (
	TrendImproving Trend = "improving"
	TrendDeclining Trend = "declining"
	TrendStable    Trend = "stable"
)

// trendDelta is the minimum half-to-half mean shift that counts as a trend.
const trendDelta = 0.1

// ResultSource reads persisted quality results.
type ResultSource interface {
	ListQualityResults(ctx context.Context, since time.Time) ([]*types.QualityResult, error)
	ListQualityResultsByWorker(ctx context.Context, workerID string, since time.Time) ([]*types.QualityResult, error)
}

// BenchmarkStore reads and writes performance targets.
type BenchmarkStore interface {
	GetBenchmarks(ctx context.Context) (map[string]float64, error)
	SaveBenchmark(ctx context.Context, name string, value float64) error
}

// Config holds metrics engine configuration.
type Config struct {
	Results    ResultSource
	Benchmarks BenchmarkStore // optional; defaults used when nil or empty
	Clock      clock.Clock

	// WindowDays is the trailing window for trends and snapshots.
	// Defaults to 30.
	WindowDays int
}

// Engine computes rolling quality and performance aggregates.
type Engine struct {
	results    ResultSource
	benchmarks BenchmarkStore
	clock      clock.Clock
	windowDays int
}

// New creates a metrics engine.
func New(cfg Config) (*Engine, error) {
	if cfg.Results == nil {
		return nil, fmt.Errorf("result source is required")
	}
	e := &Engine{
		results:    cfg.Results,
		benchmarks: cfg.Benchmarks,
		clock:      cfg.Clock,
		windowDays: cfg.WindowDays,
	}
	if e.clock == nil {
		e.clock = clock.System()
	}
	if e.windowDays <= 0 {
		e.windowDays = 30
	}
	return e, nil
}

func (e *Engine) windowStart() time.Time {
	return e.clock.Now().AddDate(0, 0, -e.windowDays)
}

// QualityTrend is the rolling quality aggregate over the window.
type QualityTrend struct {
	WindowDays  int       `json:"window_days"`
	SampleCount int       `json:"sample_count"`
	Mean        float64   `json:"mean_score"`
	EarlyMean   float64   `json:"early_half_mean"`
	RecentMean  float64   `json:"recent_half_mean"`
	Direction   Trend     `json:"direction"`
	GeneratedAt time.Time `json:"generated_at"`
}

// QualityTrend computes the rolling trend over the trailing window. The
// window is split chronologically in half; a recent-half mean more than 0.1
// above (below) the early half reads as improving (declining). Fewer than
// four samples always read as stable.
func (e *Engine) QualityTrend(ctx context.Context) (*QualityTrend, error) {
	results, err := e.results.ListQualityResults(ctx, e.windowStart())
	if err != nil {
		return nil, fmt.Errorf("loading quality results: %w", err)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].CreatedAt.Before(results[j].CreatedAt)
	})

	trend := &QualityTrend{
		WindowDays:  e.windowDays,
		SampleCount: len(results),
		Direction:   TrendStable,
		GeneratedAt: e.clock.Now(),
	}
	if len(results) == 0 {
		return trend, nil
	}

	trend.Mean = meanScore(results)
	if len(results) < 4 {
		return trend, nil
	}

	mid := len(results) / 2
	trend.EarlyMean = meanScore(results[:mid])
	trend.RecentMean = meanScore(results[mid:])

	switch diff := trend.RecentMean - trend.EarlyMean; {
	case diff > trendDelta:
		trend.Direction = TrendImproving
	case diff < -trendDelta:
		trend.Direction = TrendDeclining
	}
	return trend, nil
}

// PerformanceSnapshot is one worker's rolling performance.
type PerformanceSnapshot struct {
	WorkerID       string    `json:"worker_id"`
	SampleCount    int       `json:"sample_count"`
	AverageQuality float64   `json:"average_quality"`
	CompletionRate float64   `json:"completion_rate"` // approved / total
	ErrorRate      float64   `json:"error_rate"`      // rejected / total
	GeneratedAt    time.Time `json:"generated_at"`
}

// WorkerSnapshot computes a worker's rolling performance from persisted gate
// results.
func (e *Engine) WorkerSnapshot(ctx context.Context, workerID string) (*PerformanceSnapshot, error) {
	if workerID == "" {
		return nil, fmt.Errorf("worker id is required")
	}
	results, err := e.results.ListQualityResultsByWorker(ctx, workerID, e.windowStart())
	if err != nil {
		return nil, fmt.Errorf("loading quality results for %s: %w", workerID, err)
	}

	snap := &PerformanceSnapshot{
		WorkerID:    workerID,
		SampleCount: len(results),
		GeneratedAt: e.clock.Now(),
	}
	if len(results) == 0 {
		return snap, nil
	}

	approved, rejected := 0, 0
	for _, r := range results {
		switch r.Decision {
		case types.DecisionApproved:
			approved++
		case types.DecisionRejected:
			rejected++
		}
	}
	total := float64(len(results))
	snap.AverageQuality = meanScore(results)
	snap.CompletionRate = float64(approved) / total
	snap.ErrorRate = float64(rejected) / total
	return snap, nil
}

// Benchmarks returns the stored targets merged over the defaults.
func (e *Engine) Benchmarks(ctx context.Context) (map[string]float64, error) {
	merged := DefaultBenchmarks()
	if e.benchmarks == nil {
		return merged, nil
	}
	stored, err := e.benchmarks.GetBenchmarks(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading benchmarks: %w", err)
	}
	for name, value := range stored {
		merged[name] = value
	}
	return merged, nil
}

// SetBenchmark upserts one target.
func (e *Engine) SetBenchmark(ctx context.Context, name string, value float64) error {
	if e.benchmarks == nil {
		return fmt.Errorf("no benchmark store configured")
	}
	switch name {
	case BenchmarkQuality, BenchmarkCompletion, BenchmarkError, BenchmarkResponse:
	default:
		return fmt.Errorf("unknown benchmark: %s", name)
	}
	if value < 0 {
		return fmt.Errorf("benchmark %s cannot be negative (got %.2f)", name, value)
	}
	return e.benchmarks.SaveBenchmark(ctx, name, value)
}

// HealthReport compares the window's aggregates against the benchmarks.
type HealthReport struct {
	Score       float64           `json:"health_score"` // 0-100
	Trend       *QualityTrend     `json:"quality_trend"`
	Benchmarks  map[string]float64 `json:"benchmarks"`
	GeneratedAt time.Time         `json:"generated_at"`
}

// Health scores the pool against its targets. Quality and completion count
// toward the target from below; error rate counts from above. A pool with no
// samples scores a neutral 50.
func (e *Engine) Health(ctx context.Context) (*HealthReport, error) {
	trend, err := e.QualityTrend(ctx)
	if err != nil {
		return nil, err
	}
	benchmarks, err := e.Benchmarks(ctx)
	if err != nil {
		return nil, err
	}

	report := &HealthReport{
		Trend:       trend,
		Benchmarks:  benchmarks,
		GeneratedAt: e.clock.Now(),
	}
	if trend.SampleCount == 0 {
		report.Score = 50
		return report, nil
	}

	results, err := e.results.ListQualityResults(ctx, e.windowStart())
	if err != nil {
		return nil, fmt.Errorf("loading quality results: %w", err)
	}
	approved, rejected := 0, 0
	for _, r := range results {
		switch r.Decision {
		case types.DecisionApproved:
			approved++
		case types.DecisionRejected:
			rejected++
		}
	}
	total := float64(len(results))

	qualityRatio := ratioToTarget(trend.Mean, benchmarks[BenchmarkQuality])
	completionRatio := ratioToTarget(float64(approved)/total, benchmarks[BenchmarkCompletion])
	errorRatio := inverseRatioToTarget(float64(rejected)/total, benchmarks[BenchmarkError])

	report.Score = math.Round((qualityRatio+completionRatio+errorRatio)/3*1000) / 10
	return report, nil
}

// Multiplier adjusts capability scores by rolling worker quality. It
// implements the matcher's PerformanceSource. Workers with no history get a
// neutral 1.0; established workers land in [0.8, 1.2] linearly on average
// quality. A store failure also falls back to neutral, with a warning so the
// degradation is visible.
func (e *Engine) Multiplier(workerID string) float64 {
	snap, err := e.WorkerSnapshot(context.Background(), workerID)
	if err != nil {
		fmt.Printf("warning: performance lookup for %s failed, using neutral multiplier: %v\n", workerID, err)
		return 1.0
	}
	if snap.SampleCount == 0 {
		return 1.0
	}
	m := 0.8 + 0.4*(snap.AverageQuality/10)
	if m < 0.8 {
		m = 0.8
	}
	if m > 1.2 {
		m = 1.2
	}
	return m
}

func meanScore(results []*types.QualityResult) float64 {
	if len(results) == 0 {
		return 0
	}
	var sum float64
	for _, r := range results {
		sum += r.Score
	}
	return sum / float64(len(results))
}

// ratioToTarget grades actual against a meet-or-exceed target, capped at 1.
func ratioToTarget(actual, target float64) float64 {
	if target <= 0 {
		return 1
	}
	r := actual / target
	if r > 1 {
		r = 1
	}
	if r < 0 {
		r = 0
	}
	return r
}

// inverseRatioToTarget grades actual against a stay-under target.
func inverseRatioToTarget(actual, target float64) float64 {
	if actual <= target {
		return 1
	}
	if actual <= 0 {
		return 1
	}
	r := target / actual
	if r < 0 {
		r = 0
	}
	return r
}
