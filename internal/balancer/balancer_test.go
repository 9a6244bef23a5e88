package balancer

import (
	"strings"
	"testing"

	"github.com/tasknet/dispatch/internal/types"
)

func TestEstimateEffortSteps(t *testing.T) {
	tests := []struct {
		confidence float64
		alts       int
		want       float64
	}{
		{0.9, 0, 2.0},
		{0.75, 0, 4.0},
		{0.5, 0, 6.0},
		{0.3, 0, 8.0},
		{0.9, 2, 2.0 * 0.9},  // 2 alternatives scale by 0.9
		{0.9, 10, 2.0 * 0.8}, // factor floors at 0.8
	}
	for _, tt := range tests {
		if got := EstimateEffort(tt.confidence, tt.alts); got != tt.want {
			t.Errorf("EstimateEffort(%.2f, %d) = %.2f, want %.2f", tt.confidence, tt.alts, got, tt.want)
		}
	}
}

// A worker at 87.5% load receiving a 4h estimate projects to 97.5%, past the
// 90% ceiling, and the assignment moves to the stored alternative.
func TestBalanceReassignsOverloadedWorker(t *testing.T) {
	b := New()

	workers := []*types.Worker{
		{ID: "busy", MaxCapacityHours: 40, CurrentLoadHours: 35, EfficiencyScore: 1.0, Availability: types.AvailabilityBusy},
		{ID: "idle", MaxCapacityHours: 40, CurrentLoadHours: 5, EfficiencyScore: 1.0, Availability: types.AvailabilityAvailable},
	}
	assignments := []*types.Assignment{
		{
			TaskID:     "t-1",
			WorkerID:   "busy",
			Confidence: 0.75, // 4h base estimate, 3.8h after the alternative-count scale
			Reasoning:  "initial",
			Alternatives: []types.AlternativeWorker{
				{WorkerID: "idle", Confidence: 0.7},
			},
		},
	}

	result, actions := b.Balance(assignments, workers)
	if len(actions) != 1 {
		t.Fatalf("expected 1 rebalance action, got %d", len(actions))
	}
	if result[0].WorkerID != "idle" {
		t.Errorf("assignment should move to idle, got %s", result[0].WorkerID)
	}
	if actions[0].OriginalWorkerID != "busy" {
		t.Errorf("action original = %s, want busy", actions[0].OriginalWorkerID)
	}
	if !strings.Contains(result[0].Reasoning, "Load balanced") {
		t.Errorf("reasoning should note the rebalance: %q", result[0].Reasoning)
	}
	// Confidence moves to the alternative's value: 0.75 * (1 + (0.7-0.75)/0.75)
	if result[0].Confidence < 0.69 || result[0].Confidence > 0.71 {
		t.Errorf("confidence = %.3f, want ~0.70", result[0].Confidence)
	}
}

func TestBalanceLeavesHealthyAssignmentsAlone(t *testing.T) {
	b := New()

	workers := []*types.Worker{
		{ID: "w", MaxCapacityHours: 40, CurrentLoadHours: 10, EfficiencyScore: 1.0, Availability: types.AvailabilityAvailable},
	}
	assignments := []*types.Assignment{
		{TaskID: "t-1", WorkerID: "w", Confidence: 0.9, Reasoning: "initial"},
	}

	result, actions := b.Balance(assignments, workers)
	if len(actions) != 0 {
		t.Fatalf("expected no rebalances, got %d", len(actions))
	}
	if result[0].WorkerID != "w" || result[0].Reasoning != "initial" {
		t.Error("healthy assignment should be untouched")
	}
}

// When no alternative has headroom the original assignment is kept with a
// warning; overload is soft degradation, not a failure.
func TestBalanceSoftDegradationWhenNoHeadroom(t *testing.T) {
	b := New()

	workers := []*types.Worker{
		{ID: "a", MaxCapacityHours: 40, CurrentLoadHours: 38, EfficiencyScore: 1.0, Availability: types.AvailabilityBusy},
		{ID: "b", MaxCapacityHours: 40, CurrentLoadHours: 38, EfficiencyScore: 1.0, Availability: types.AvailabilityBusy},
	}
	assignments := []*types.Assignment{
		{TaskID: "t-1", WorkerID: "a", Confidence: 0.3, Reasoning: "initial"},
	}

	result, actions := b.Balance(assignments, workers)
	if len(actions) != 0 {
		t.Fatalf("expected no rebalance, got %d", len(actions))
	}
	if result[0].WorkerID != "a" {
		t.Errorf("assignment should stay on a, got %s", result[0].WorkerID)
	}
	if !strings.Contains(result[0].Reasoning, "Warning") {
		t.Errorf("reasoning should carry the overload warning: %q", result[0].Reasoning)
	}
}

// The running load tracker makes decisions order-dependent: a second
// assignment must see the load added by the first.
func TestBalanceTracksRunningLoad(t *testing.T) {
	b := New()

	workers := []*types.Worker{
		{ID: "a", MaxCapacityHours: 10, CurrentLoadHours: 3, EfficiencyScore: 1.0, Availability: types.AvailabilityAvailable},
		{ID: "b", MaxCapacityHours: 10, CurrentLoadHours: 0, EfficiencyScore: 1.0, Availability: types.AvailabilityAvailable},
	}
	// Each assignment estimates 4h (confidence 0.75). First lands on a
	// (3+4=7h, 70%); second would project a to 11h (110%) and must move.
	assignments := []*types.Assignment{
		{TaskID: "t-1", WorkerID: "a", Confidence: 0.75, Reasoning: "r"},
		{TaskID: "t-2", WorkerID: "a", Confidence: 0.75, Reasoning: "r"},
	}

	result, actions := b.Balance(assignments, workers)
	if result[0].WorkerID != "a" {
		t.Errorf("first assignment should stay on a, got %s", result[0].WorkerID)
	}
	if result[1].WorkerID != "b" {
		t.Errorf("second assignment should move to b, got %s", result[1].WorkerID)
	}
	if len(actions) != 1 {
		t.Errorf("expected exactly 1 rebalance, got %d", len(actions))
	}
}

func TestDistributionReport(t *testing.T) {
	b := New()

	workers := []*types.Worker{
		{ID: "a", MaxCapacityHours: 40, CurrentLoadHours: 38, Availability: types.AvailabilityBusy},      // 95%
		{ID: "b", MaxCapacityHours: 40, CurrentLoadHours: 10, Availability: types.AvailabilityAvailable}, // 25%
	}

	report := b.Distribution(workers, nil)
	if report.TotalWorkers != 2 {
		t.Errorf("TotalWorkers = %d, want 2", report.TotalWorkers)
	}
	if report.OverloadedWorkers != 1 {
		t.Errorf("OverloadedWorkers = %d, want 1", report.OverloadedWorkers)
	}
	if report.Status != "unbalanced" {
		t.Errorf("Status = %s, want unbalanced", report.Status)
	}
	if report.OverallUtilization != 60 {
		t.Errorf("OverallUtilization = %.1f, want 60", report.OverallUtilization)
	}
}
