package types

import "fmt"

// Expert is a reviewer who can be assigned to escalations.
type Expert struct {
	ID                string       `json:"id"`
	Name              string       `json:"name,omitempty"`
	ExpertiseAreas    []string     `json:"expertise_areas"`
	CurrentWorkload   int          `json:"current_workload"` // active escalations
	Availability      Availability `json:"availability"`
	ResponseTimeHours float64      `json:"response_time_hours"`
	SuccessRate       float64      `json:"success_rate"` // historical, 0.0-1.0
}

// Validate checks if the expert record has valid field values.
func (e *Expert) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("expert id is required")
	}
	if len(e.ExpertiseAreas) == 0 {
		return fmt.Errorf("at least one expertise area is required")
	}
	if e.CurrentWorkload < 0 {
		return fmt.Errorf("current_workload cannot be negative (got %d)", e.CurrentWorkload)
	}
	if !e.Availability.IsValid() {
		return fmt.Errorf("invalid availability: %s", e.Availability)
	}
	if e.SuccessRate < 0 || e.SuccessRate > 1 {
		return fmt.Errorf("success_rate must be between 0 and 1 (got %.2f)", e.SuccessRate)
	}
	if e.ResponseTimeHours < 0 {
		return fmt.Errorf("response_time_hours cannot be negative (got %.1f)", e.ResponseTimeHours)
	}
	return nil
}

// HasExpertise reports whether the expert covers any of the required areas.
func (e *Expert) HasExpertise(required []string) bool {
	for _, area := range e.ExpertiseAreas {
		for _, req := range required {
			if area == req {
				return true
			}
		}
	}
	return false
}
