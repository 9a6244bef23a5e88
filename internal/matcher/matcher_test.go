package matcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/tasknet/dispatch/internal/types"
)

func newTestMatcher(t *testing.T) *Matcher {
	t.Helper()
	m, err := New(Config{})
	require.NoError(t, err)
	return m
}

func TestNewRejectsBadMinScore(t *testing.T) {
	_, err := New(Config{MinScore: 1.5})
	assert.Error(t, err)
	_, err = New(Config{MinScore: -0.1})
	assert.Error(t, err)
}

// Specialization must dominate raw efficiency: a matching primary
// specialization beats a non-matching worker with better efficiency and load.
func TestPrimarySpecializationDominates(t *testing.T) {
	m := newTestMatcher(t)

	task := &types.Task{
		ID:                      "t-1",
		Complexity:              types.ComplexityHigh,
		RequiredSpecializations: []types.Specialization{types.SpecSecurityTesting},
		Priority:                5,
	}
	specialist := &types.Worker{
		ID:                    "a",
		PrimarySpecialization: types.SpecSecurityTesting,
		EfficiencyScore:       0.9,
		CurrentLoadHours:      8,
		MaxCapacityHours:      40, // 20% load
		Availability:          types.AvailabilityAvailable,
	}
	generalist := &types.Worker{
		ID:                    "b",
		PrimarySpecialization: types.SpecDevelopment,
		EfficiencyScore:       0.95,
		CurrentLoadHours:      4,
		MaxCapacityHours:      40, // 10% load
		Availability:          types.AvailabilityAvailable,
	}

	assert.Greater(t, m.Score(task, specialist), m.Score(task, generalist))
}

func TestZeroOverlapWorkerStillScores(t *testing.T) {
	m := newTestMatcher(t)

	task := &types.Task{
		ID:                      "t-1",
		Complexity:              types.ComplexityMedium,
		RequiredSpecializations: []types.Specialization{types.SpecResearch},
		Priority:                5,
	}
	worker := &types.Worker{
		ID:                    "w",
		PrimarySpecialization: types.SpecDevelopment,
		EfficiencyScore:       1.0,
		MaxCapacityHours:      40,
		Availability:          types.AvailabilityAvailable,
	}

	// Fallback candidates get a nonzero score from availability alone.
	score := m.Score(task, worker)
	assert.Greater(t, score, 0.0)
	assert.Less(t, score, 0.5)
}

func TestSecondaryMatchesAreCapped(t *testing.T) {
	m := newTestMatcher(t)

	task := &types.Task{
		ID:         "t-1",
		Complexity: types.ComplexityMedium,
		RequiredSpecializations: []types.Specialization{
			types.SpecDevelopment, types.SpecAutomation, types.SpecResearch, types.SpecCoordination,
		},
		Priority: 5,
	}
	base := &types.Worker{
		ID:                    "w",
		PrimarySpecialization: types.SpecArchitecture,
		EfficiencyScore:       1.0,
		MaxCapacityHours:      40,
		Availability:          types.AvailabilityAvailable,
	}

	three := *base
	three.SecondarySpecializations = []types.Specialization{
		types.SpecDevelopment, types.SpecAutomation, types.SpecResearch,
	}
	four := *base
	four.SecondarySpecializations = []types.Specialization{
		types.SpecDevelopment, types.SpecAutomation, types.SpecResearch, types.SpecCoordination,
	}

	// A fourth overlap adds nothing past the 0.3 cap.
	assert.InDelta(t, m.Score(task, &three), m.Score(task, &four), 1e-9)
}

func TestBlockedWorkerGetsNoAvailabilityBonus(t *testing.T) {
	if availabilityScore(&types.Worker{Availability: types.AvailabilityBlocked, MaxCapacityHours: 40}) != 0 {
		t.Error("blocked workers should get no availability bonus")
	}
}

func TestAvailabilityTiers(t *testing.T) {
	tests := []struct {
		availability types.Availability
		load         float64
		want         float64
	}{
		{types.AvailabilityAvailable, 10, 0.2},
		{types.AvailabilityAvailable, 25, 0.15},
		{types.AvailabilityAvailable, 35, 0.1},
		{types.AvailabilityBusy, 25, 0.1},
		{types.AvailabilityBusy, 35, 0.05},
	}
	for _, tt := range tests {
		w := &types.Worker{
			Availability:     tt.availability,
			CurrentLoadHours: tt.load,
			MaxCapacityHours: 40,
		}
		if got := availabilityScore(w); got != tt.want {
			t.Errorf("availabilityScore(%s, %.0fh/40h) = %.2f, want %.2f",
				tt.availability, tt.load, got, tt.want)
		}
	}
}

func TestFindBestMatchesFiltersAndSorts(t *testing.T) {
	m, err := New(Config{MinScore: 0.4})
	require.NoError(t, err)

	task := &types.Task{
		ID:                      "t-1",
		Complexity:              types.ComplexityMedium,
		RequiredSpecializations: []types.Specialization{types.SpecDevelopment},
		Priority:                5,
	}
	workers := []*types.Worker{
		{ID: "blocked", PrimarySpecialization: types.SpecDevelopment, EfficiencyScore: 1.0, MaxCapacityHours: 40, Availability: types.AvailabilityBlocked},
		{ID: "weak", PrimarySpecialization: types.SpecResearch, EfficiencyScore: 0.5, MaxCapacityHours: 40, Availability: types.AvailabilityAvailable},
		{ID: "strong", PrimarySpecialization: types.SpecDevelopment, EfficiencyScore: 1.0, MaxCapacityHours: 40, Availability: types.AvailabilityAvailable},
	}

	matches := m.FindBestMatches(task, workers, 0)
	require.Len(t, matches, 1)
	assert.Equal(t, "strong", matches[0].WorkerID)
}

// Score stays in [0,1] for arbitrary well-formed inputs.
func TestScoreBoundsProperty(t *testing.T) {
	m := newTestMatcher(t)

	specializations := []types.Specialization{
		types.SpecProjectManagement, types.SpecArchitecture, types.SpecDevelopment,
		types.SpecQualityAssurance, types.SpecUserExperience, types.SpecBusinessAnalysis,
		types.SpecResearch, types.SpecCoordination, types.SpecSecurityTesting, types.SpecAutomation,
	}
	complexities := []types.Complexity{
		types.ComplexityTrivial, types.ComplexityLow, types.ComplexityMedium,
		types.ComplexityHigh, types.ComplexityVeryHigh,
	}
	availabilities := []types.Availability{
		types.AvailabilityAvailable, types.AvailabilityBusy, types.AvailabilityBlocked,
	}

	rapid.Check(t, func(t *rapid.T) {
		task := &types.Task{
			ID:         "t",
			Complexity: rapid.SampledFrom(complexities).Draw(t, "complexity"),
			RequiredSpecializations: rapid.SliceOfN(
				rapid.SampledFrom(specializations), 0, 4).Draw(t, "required"),
			Priority: rapid.IntRange(1, 10).Draw(t, "priority"),
		}
		capacity := rapid.Float64Range(1, 80).Draw(t, "capacity")
		worker := &types.Worker{
			ID:                    "w",
			PrimarySpecialization: rapid.SampledFrom(specializations).Draw(t, "primary"),
			SecondarySpecializations: rapid.SliceOfN(
				rapid.SampledFrom(specializations), 0, 4).Draw(t, "secondary"),
			CurrentLoadHours: rapid.Float64Range(0, capacity).Draw(t, "load"),
			MaxCapacityHours: capacity,
			EfficiencyScore:  rapid.Float64Range(0, 1.2).Draw(t, "efficiency"),
			Availability:     rapid.SampledFrom(availabilities).Draw(t, "availability"),
		}

		score := m.Score(task, worker)
		if score < 0 || score > 1 {
			t.Fatalf("score %f out of [0,1]", score)
		}
	})
}

// countingSource records how many multiplier lookups each worker receives.
type countingSource struct {
	lookups map[string]int
}

func (c *countingSource) Multiplier(workerID string) float64 {
	c.lookups[workerID]++
	return 1.1
}

// A metrics-backed performance source hits the store on every lookup, so the
// matrix build must resolve each worker's multiplier once, not once per cell.
func TestBuildMatrixResolvesMultiplierOncePerWorker(t *testing.T) {
	src := &countingSource{lookups: make(map[string]int)}
	m, err := New(Config{Performance: src})
	require.NoError(t, err)

	tasks := []*types.Task{
		{ID: "t-1", Complexity: types.ComplexityMedium, RequiredSpecializations: []types.Specialization{types.SpecDevelopment}, Priority: 5},
		{ID: "t-2", Complexity: types.ComplexityLow, RequiredSpecializations: []types.Specialization{types.SpecResearch}, Priority: 3},
		{ID: "t-3", Complexity: types.ComplexityHigh, RequiredSpecializations: []types.Specialization{types.SpecDevelopment}, Priority: 8},
	}
	workers := []*types.Worker{
		{ID: "w-1", PrimarySpecialization: types.SpecDevelopment, EfficiencyScore: 0.9, MaxCapacityHours: 40, Availability: types.AvailabilityAvailable},
		{ID: "w-2", PrimarySpecialization: types.SpecResearch, EfficiencyScore: 1.0, MaxCapacityHours: 40, Availability: types.AvailabilityAvailable},
	}

	m.BuildMatrix(tasks, workers)

	assert.Equal(t, 1, src.lookups["w-1"])
	assert.Equal(t, 1, src.lookups["w-2"])
}

// BuildMatrix is deterministic over unmutated inputs.
func TestBuildMatrixDeterministic(t *testing.T) {
	m := newTestMatcher(t)

	tasks := []*types.Task{
		{ID: "t-1", Complexity: types.ComplexityHigh, RequiredSpecializations: []types.Specialization{types.SpecDevelopment}, Priority: 5},
		{ID: "t-2", Complexity: types.ComplexityLow, RequiredSpecializations: []types.Specialization{types.SpecResearch}, Priority: 3},
	}
	workers := []*types.Worker{
		{ID: "w-1", PrimarySpecialization: types.SpecDevelopment, EfficiencyScore: 0.9, MaxCapacityHours: 40, Availability: types.AvailabilityAvailable},
		{ID: "w-2", PrimarySpecialization: types.SpecResearch, EfficiencyScore: 1.1, CurrentLoadHours: 20, MaxCapacityHours: 40, Availability: types.AvailabilityBusy},
	}

	first := m.BuildMatrix(tasks, workers)
	second := m.BuildMatrix(tasks, workers)
	assert.Equal(t, first, second)
}
