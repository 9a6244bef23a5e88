package types

import (
	"fmt"
	"time"
)

// Specialization is a declared domain of expertise for a worker.
// The set of valid specializations is configuration data (see the matcher
// registry), not a closed enum: deployments register their own catalogs.
type Specialization string

// Standard specialization catalog shipped with dispatch. Deployments may
// extend this via the matcher registry.
const (
	SpecProjectManagement Specialization = "project_management"
	SpecArchitecture      Specialization = "architecture"
	SpecDevelopment       Specialization = "development"
	SpecQualityAssurance  Specialization = "quality_assurance"
	SpecUserExperience    Specialization = "user_experience"
	SpecBusinessAnalysis  Specialization = "business_analysis"
	SpecResearch          Specialization = "research"
	SpecCoordination      Specialization = "coordination"
	SpecSecurityTesting   Specialization = "security_testing"
	SpecAutomation        Specialization = "automation"
)

// Complexity is the ordinal difficulty tier of a task.
type Complexity string

const (
	ComplexityTrivial  Complexity = "trivial"
	ComplexityLow      Complexity = "low"
	ComplexityMedium   Complexity = "medium"
	ComplexityHigh     Complexity = "high"
	ComplexityVeryHigh Complexity = "very_high"
)

// IsValid checks if the complexity value is one of the five defined tiers.
func (c Complexity) IsValid() bool {
	switch c {
	case ComplexityTrivial, ComplexityLow, ComplexityMedium, ComplexityHigh, ComplexityVeryHigh:
		return true
	}
	return false
}

// Rank returns the ordinal position of the tier (trivial=0 .. very_high=4).
// Used for priority/complexity ordering during assignment optimization.
func (c Complexity) Rank() int {
	switch c {
	case ComplexityTrivial:
		return 0
	case ComplexityLow:
		return 1
	case ComplexityMedium:
		return 2
	case ComplexityHigh:
		return 3
	case ComplexityVeryHigh:
		return 4
	default:
		return -1
	}
}

// Task describes a unit of work requiring assignment to a worker.
type Task struct {
	ID                      string           `json:"id"`
	Description             string           `json:"description"`
	Complexity              Complexity       `json:"complexity"`
	RequiredSpecializations []Specialization `json:"required_specializations"`
	EstimatedEffortHours    float64          `json:"estimated_effort_hours"`
	Dependencies            []string         `json:"dependencies,omitempty"` // other task IDs in the same batch
	Priority                int              `json:"priority"`               // 1-10
	Deadline                *time.Time       `json:"deadline,omitempty"`
	RequiresHumanApproval   bool             `json:"requires_human_approval,omitempty"`
}

// Validate checks if the task has valid field values.
// Malformed tasks fail fast here, before any scoring runs.
func (t *Task) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("task id is required")
	}
	if !t.Complexity.IsValid() {
		return fmt.Errorf("invalid complexity: %s", t.Complexity)
	}
	if t.Priority < 1 || t.Priority > 10 {
		return fmt.Errorf("priority must be between 1 and 10 (got %d)", t.Priority)
	}
	if t.EstimatedEffortHours < 0 {
		return fmt.Errorf("estimated_effort_hours cannot be negative (got %.1f)", t.EstimatedEffortHours)
	}
	return nil
}

// RequiresSpecialization reports whether the task's required set contains s.
func (t *Task) RequiresSpecialization(s Specialization) bool {
	for _, req := range t.RequiredSpecializations {
		if req == s {
			return true
		}
	}
	return false
}

// Availability represents the tri-state availability of a worker.
type Availability string

const (
	AvailabilityAvailable Availability = "available"
	AvailabilityBusy      Availability = "busy"
	AvailabilityBlocked   Availability = "blocked"
)

// IsValid checks if the availability value is valid.
func (a Availability) IsValid() bool {
	switch a {
	case AvailabilityAvailable, AvailabilityBusy, AvailabilityBlocked:
		return true
	}
	return false
}

// Worker is a member of the fixed worker pool with declared capabilities
// and current load state. Workers are created at registration and never
// deleted mid-session; stale workers become blocked.
type Worker struct {
	ID                       string           `json:"id"`
	Name                     string           `json:"name"`
	PrimarySpecialization    Specialization   `json:"primary_specialization"`
	SecondarySpecializations []Specialization `json:"secondary_specializations,omitempty"`
	CurrentLoadHours         float64          `json:"current_load_hours"`
	MaxCapacityHours         float64          `json:"max_capacity_hours"`
	EfficiencyScore          float64          `json:"efficiency_score"` // performance multiplier, conventionally <= 1.2
	Availability             Availability     `json:"availability"`
	CurrentTasks             []string         `json:"current_tasks,omitempty"`
	LastTaskCompletion       *time.Time       `json:"last_task_completion,omitempty"`
}

// Validate checks if the worker record has valid field values.
func (w *Worker) Validate() error {
	if w.ID == "" {
		return fmt.Errorf("worker id is required")
	}
	if w.MaxCapacityHours <= 0 {
		return fmt.Errorf("max_capacity_hours must be positive (got %.1f)", w.MaxCapacityHours)
	}
	if w.CurrentLoadHours < 0 {
		return fmt.Errorf("current_load_hours cannot be negative (got %.1f)", w.CurrentLoadHours)
	}
	if w.EfficiencyScore < 0 {
		return fmt.Errorf("efficiency_score cannot be negative (got %.2f)", w.EfficiencyScore)
	}
	if !w.Availability.IsValid() {
		return fmt.Errorf("invalid availability: %s", w.Availability)
	}
	return nil
}

// LoadPercentage returns the current workload as a percentage of capacity.
func (w *Worker) LoadPercentage() float64 {
	return (w.CurrentLoadHours / w.MaxCapacityHours) * 100
}

// AvailableCapacity returns the remaining capacity in hours, floored at zero.
func (w *Worker) AvailableCapacity() float64 {
	if w.CurrentLoadHours >= w.MaxCapacityHours {
		return 0
	}
	return w.MaxCapacityHours - w.CurrentLoadHours
}

// AlternativeWorker is a ranked fallback candidate for an assignment.
type AlternativeWorker struct {
	WorkerID   string  `json:"worker_id"`
	Confidence float64 `json:"confidence"`
}

// Assignment binds a task to a worker with selection confidence and
// reasoning. Created by the assignment engine and potentially mutated in
// place by the load balancer (reassignment, confidence adjustment,
// reasoning append).
type Assignment struct {
	TaskID                string              `json:"task_id"`
	WorkerID              string              `json:"worker_id"`
	Confidence            float64             `json:"confidence"` // 0.0-1.0
	EstimatedCompletion   time.Time           `json:"estimated_completion"`
	Reasoning             string              `json:"reasoning"`
	Alternatives          []AlternativeWorker `json:"alternatives,omitempty"`
	DependenciesSatisfied bool                `json:"dependencies_satisfied"`
	ParallelOpportunities []string            `json:"parallel_opportunities,omitempty"`
}
