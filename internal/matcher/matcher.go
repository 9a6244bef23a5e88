// Package matcher scores tasks against worker capabilities. Scoring is a
// pure function of (task, worker) with no hidden state, so matrices are
// deterministic and safe to build concurrently over unmutated inputs.
package matcher

import (
	"fmt"
	"sort"

	"github.com/tasknet/dispatch/internal/types"
)

// Scoring weights. Specialization terms are additive with the availability
// bonus; efficiency and complexity alignment apply as multipliers afterward.
const (
	primaryMatchWeight   = 0.5
	secondaryMatchWeight = 0.1
	secondaryMatchCap    = 0.3
)

// PerformanceSource supplies a rolling performance multiplier per worker,
// typically backed by the metrics engine. A nil source means no adjustment.
type PerformanceSource interface {
	Multiplier(workerID string) float64
}

// Config holds matcher configuration. The specialization registry is passed
// explicitly so independent matcher instances can carry different catalogs.
type Config struct {
	// Registry maps each recognized specialization to its category.
	// Defaults to the standard catalog when empty.
	Registry map[types.Specialization]string

	// MinScore is the threshold below which FindBestMatches drops a
	// candidate. Zero keeps every non-blocked worker.
	MinScore float64

	// Performance optionally scales scores by rolling worker performance.
	Performance PerformanceSource
}

// DefaultRegistry returns the standard specialization catalog.
func DefaultRegistry() map[types.Specialization]string {
	return map[types.Specialization]string{
		types.SpecProjectManagement: "orchestration",
		types.SpecCoordination:      "orchestration",
		types.SpecDevelopment:       "development",
		types.SpecArchitecture:      "architecture",
		types.SpecQualityAssurance:  "quality_assurance",
		types.SpecSecurityTesting:   "testing",
		types.SpecAutomation:        "testing",
		types.SpecUserExperience:    "user_experience",
		types.SpecResearch:          "research",
		types.SpecBusinessAnalysis:  "analysis",
	}
}

// Matcher scores one task against one worker and builds capability matrices.
type Matcher struct {
	registry    map[types.Specialization]string
	minScore    float64
	performance PerformanceSource
}

// New creates a capability matcher.
func New(cfg Config) (*Matcher, error) {
	registry := cfg.Registry
	if len(registry) == 0 {
		registry = DefaultRegistry()
	}
	if cfg.MinScore < 0 || cfg.MinScore > 1 {
		return nil, fmt.Errorf("min score must be between 0 and 1 (got %.2f)", cfg.MinScore)
	}
	return &Matcher{
		registry:    registry,
		minScore:    cfg.MinScore,
		performance: cfg.Performance,
	}, nil
}

// Known reports whether the specialization is in the registry.
func (m *Matcher) Known(s types.Specialization) bool {
	_, ok := m.registry[s]
	return ok
}

// Category returns the registry category for a specialization.
func (m *Matcher) Category(s types.Specialization) (string, bool) {
	cat, ok := m.registry[s]
	return cat, ok
}

// Score computes the match score between a task and a worker, in [0,1].
//
// A worker with zero specialization overlap can still score above zero from
// availability alone; that makes it a fallback candidate, and callers filter
// on MinScore before accepting a match.
func (m *Matcher) Score(task *types.Task, worker *types.Worker) float64 {
	return m.scoreWith(task, worker, m.multiplier(worker.ID))
}

// multiplier resolves the performance multiplier for one worker; neutral 1.0
// without a source.
func (m *Matcher) multiplier(workerID string) float64 {
	if m.performance == nil {
		return 1.0
	}
	return m.performance.Multiplier(workerID)
}

func (m *Matcher) scoreWith(task *types.Task, worker *types.Worker, multiplier float64) float64 {
	score := 0.0

	if task.RequiresSpecialization(worker.PrimarySpecialization) {
		score += primaryMatchWeight
	}

	secondaryMatches := 0
	for _, spec := range worker.SecondarySpecializations {
		if task.RequiresSpecialization(spec) {
			secondaryMatches++
		}
	}
	secondaryScore := float64(secondaryMatches) * secondaryMatchWeight
	if secondaryScore > secondaryMatchCap {
		secondaryScore = secondaryMatchCap
	}
	score += secondaryScore

	score += availabilityScore(worker)

	score *= worker.EfficiencyScore

	score *= complexityAlignment(task.Complexity, worker.EfficiencyScore)

	score *= multiplier

	return clamp01(score)
}

// availabilityScore grades how much headroom the worker has right now.
// The bonus is strictly additive with the specialization terms.
func availabilityScore(worker *types.Worker) float64 {
	loadPct := worker.LoadPercentage()

	switch worker.Availability {
	case types.AvailabilityAvailable:
		switch {
		case loadPct < 50:
			return 0.2
		case loadPct < 80:
			return 0.15
		default:
			return 0.1
		}
	case types.AvailabilityBusy:
		if loadPct < 80 {
			return 0.1
		}
		return 0.05
	default: // blocked
		return 0.0
	}
}

// complexityAlignment weights the score by how well the worker's efficiency
// fits the task's difficulty. Complex tasks compound the preference for
// capable workers; easy tasks flatten the penalty for low-efficiency ones.
func complexityAlignment(c types.Complexity, efficiency float64) float64 {
	base := 1.0
	switch c {
	case types.ComplexityTrivial:
		base = 0.9
	case types.ComplexityLow:
		base = 0.95
	case types.ComplexityMedium:
		base = 1.0
	case types.ComplexityHigh:
		base = 1.1
	case types.ComplexityVeryHigh:
		base = 1.2
	}

	if c == types.ComplexityHigh || c == types.ComplexityVeryHigh {
		return base * efficiency
	}
	flattened := efficiency + 0.2
	if flattened > 1.0 {
		flattened = 1.0
	}
	return base * flattened
}

// BuildMatrix computes the full task x worker score matrix. Deterministic
// given identical, unmutated inputs. Performance multipliers are resolved
// once per worker, not once per cell; a metrics-backed source would otherwise
// hit the store T times per worker.
func (m *Matcher) BuildMatrix(tasks []*types.Task, workers []*types.Worker) map[string]map[string]float64 {
	multipliers := make(map[string]float64, len(workers))
	for _, worker := range workers {
		multipliers[worker.ID] = m.multiplier(worker.ID)
	}

	matrix := make(map[string]map[string]float64, len(tasks))
	for _, task := range tasks {
		row := make(map[string]float64, len(workers))
		for _, worker := range workers {
			row[worker.ID] = m.scoreWith(task, worker, multipliers[worker.ID])
		}
		matrix[task.ID] = row
	}
	return matrix
}

// Match is a ranked candidate for a task.
type Match struct {
	WorkerID  string
	Score     float64
	Reasoning string
}

// FindBestMatches ranks non-blocked workers for a task, best first, dropping
// candidates below the configured minimum score. Ties break by worker ID so
// results stay deterministic.
func (m *Matcher) FindBestMatches(task *types.Task, workers []*types.Worker, maxResults int) []Match {
	matches := make([]Match, 0, len(workers))
	for _, worker := range workers {
		if worker.Availability == types.AvailabilityBlocked {
			continue
		}
		score := m.Score(task, worker)
		if score < m.minScore {
			continue
		}
		matches = append(matches, Match{
			WorkerID:  worker.ID,
			Score:     score,
			Reasoning: fmt.Sprintf("Score: %.2f, Load: %.0f%%", score, worker.LoadPercentage()),
		})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].WorkerID < matches[j].WorkerID
	})

	if maxResults > 0 && len(matches) > maxResults {
		matches = matches[:maxResults]
	}
	return matches
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
