package types

import (
	"testing"
)

func validWorker() *Worker {
	return &Worker{
		ID:                    "worker-1",
		Name:                  "Worker One",
		PrimarySpecialization: SpecDevelopment,
		CurrentLoadHours:      10,
		MaxCapacityHours:      40,
		EfficiencyScore:       0.9,
		Availability:          AvailabilityAvailable,
	}
}

func TestTaskValidate(t *testing.T) {
	task := &Task{
		ID:                      "task-1",
		Description:             "implement the thing",
		Complexity:              ComplexityMedium,
		RequiredSpecializations: []Specialization{SpecDevelopment},
		EstimatedEffortHours:    4,
		Priority:                5,
	}
	if err := task.Validate(); err != nil {
		t.Errorf("valid task failed validation: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Task)
	}{
		{"missing id", func(task *Task) { task.ID = "" }},
		{"bad complexity", func(task *Task) { task.Complexity = "impossible" }},
		{"priority too low", func(task *Task) { task.Priority = 0 }},
		{"priority too high", func(task *Task) { task.Priority = 11 }},
		{"negative effort", func(task *Task) { task.EstimatedEffortHours = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bad := *task
			tt.mutate(&bad)
			if err := bad.Validate(); err == nil {
				t.Errorf("expected validation error for %s", tt.name)
			}
		})
	}
}

func TestWorkerValidate(t *testing.T) {
	if err := validWorker().Validate(); err != nil {
		t.Errorf("valid worker failed validation: %v", err)
	}

	w := validWorker()
	w.MaxCapacityHours = 0
	if err := w.Validate(); err == nil {
		t.Error("expected error for zero capacity")
	}

	w = validWorker()
	w.Availability = "on_vacation"
	if err := w.Validate(); err == nil {
		t.Error("expected error for unknown availability")
	}
}

func TestWorkerLoadPercentage(t *testing.T) {
	w := validWorker()
	w.CurrentLoadHours = 35
	w.MaxCapacityHours = 40
	if got := w.LoadPercentage(); got != 87.5 {
		t.Errorf("LoadPercentage() = %.2f, want 87.5", got)
	}
	if got := w.AvailableCapacity(); got != 5 {
		t.Errorf("AvailableCapacity() = %.2f, want 5", got)
	}

	w.CurrentLoadHours = 45
	if got := w.AvailableCapacity(); got != 0 {
		t.Errorf("AvailableCapacity() past capacity = %.2f, want 0", got)
	}
}

func TestComplexityRank(t *testing.T) {
	ordered := []Complexity{ComplexityTrivial, ComplexityLow, ComplexityMedium, ComplexityHigh, ComplexityVeryHigh}
	for i, c := range ordered {
		if c.Rank() != i {
			t.Errorf("Rank(%s) = %d, want %d", c, c.Rank(), i)
		}
		if !c.IsValid() {
			t.Errorf("IsValid(%s) = false", c)
		}
	}
	if Complexity("nope").Rank() != -1 {
		t.Error("unknown complexity should rank -1")
	}
}

func TestTaskRequiresSpecialization(t *testing.T) {
	task := &Task{RequiredSpecializations: []Specialization{SpecSecurityTesting, SpecAutomation}}
	if !task.RequiresSpecialization(SpecSecurityTesting) {
		t.Error("expected security_testing to be required")
	}
	if task.RequiresSpecialization(SpecResearch) {
		t.Error("research should not be required")
	}
}
