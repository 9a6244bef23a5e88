package escalation

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tasknet/dispatch/internal/types"
)

// DefaultPendingTimeout is how long a deliverable may sit awaiting review
// before it escalates at medium level.
const DefaultPendingTimeout = 24 * time.Hour

// Windows maps each escalation level to its resolution window. The defaults
// give high a SHORTER window than medium; that inversion comes from the
// source workflow data and is kept as configuration so operators can correct
// it without a code change.
type Windows map[types.EscalationLevel]time.Duration

// DefaultWindows returns the standard resolution windows.
func DefaultWindows() Windows {
	return Windows{
		types.LevelLow:      24 * time.Hour,
		types.LevelMedium:   48 * time.Hour,
		types.LevelHigh:     12 * time.Hour,
		types.LevelCritical: 4 * time.Hour,
	}
}

// Window returns the resolution window for a level, falling back to the
// default table for levels the map does not carry.
func (w Windows) Window(level types.EscalationLevel) time.Duration {
	if d, ok := w[level]; ok {
		return d
	}
	return DefaultWindows()[level]
}

// Validate checks that every configured window is positive and keyed by a
// real level.
func (w Windows) Validate() error {
	for level, d := range w {
		if !level.IsValid() {
			return fmt.Errorf("invalid escalation level in windows: %s", level)
		}
		if d <= 0 {
			return fmt.Errorf("resolution window for %s must be positive (got %s)", level, d)
		}
	}
	return nil
}

// Steps maps each level to the workflow step fired when an escalation enters
// that level.
type Steps map[types.EscalationLevel]types.WorkflowStep

// DefaultSteps returns the standard per-level review steps.
func DefaultSteps() Steps {
	return Steps{
		types.LevelLow: {
			StepID:            "peer_review",
			StepName:          "Peer Review",
			Description:       "Deliverable reviewed by an available peer in the same specialization",
			RequiredExpertise: []string{"quality_assurance"},
			MaxDurationHours:  24,
			AutoEscalate:      true,
		},
		types.LevelMedium: {
			StepID:            "senior_review",
			StepName:          "Senior Review",
			Description:       "Senior specialist reviews the deliverable and the failing gate output",
			RequiredExpertise: []string{"quality_assurance", "architecture"},
			MaxDurationHours:  48,
			AutoEscalate:      true,
		},
		types.LevelHigh: {
			StepID:            "lead_intervention",
			StepName:          "Lead Intervention",
			Description:       "Team lead takes ownership and coordinates an expedited fix",
			RequiredExpertise: []string{"architecture", "project_management"},
			MaxDurationHours:  12,
			AutoEscalate:      true,
		},
		types.LevelCritical: {
			StepID:            "incident_response",
			StepName:          "Incident Response",
			Description:       "All-hands incident handling with mandatory resolution report",
			RequiredExpertise: []string{"project_management", "coordination"},
			MaxDurationHours:  4,
			AutoEscalate:      false,
		},
	}
}

// Step returns the workflow step for a level.
func (s Steps) Step(level types.EscalationLevel) (types.WorkflowStep, bool) {
	step, ok := s[level]
	return step, ok
}

// definitionsFile is the on-disk shape of the escalation definitions YAML.
type definitionsFile struct {
	Windows map[string]string             `yaml:"resolution_windows"`
	Steps   map[string]types.WorkflowStep `yaml:"workflow_steps"`
}

// LoadDefinitions reads windows and steps from a YAML file. Levels the file
// omits keep their defaults.
//
// Example:
//
//	resolution_windows:
//	  low: 24h
//	  medium: 48h
//	  high: 12h
//	  critical: 4h
//	workflow_steps:
//	  low:
//	    step_id: peer_review
//	    step_name: Peer Review
//	    max_duration_hours: 24
func LoadDefinitions(path string) (Windows, Steps, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("reading escalation definitions: %w", err)
	}

	var file definitionsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, nil, fmt.Errorf("parsing escalation definitions: %w", err)
	}

	windows := DefaultWindows()
	for key, raw := range file.Windows {
		level := types.EscalationLevel(key)
		if !level.IsValid() {
			return nil, nil, fmt.Errorf("unknown escalation level %q in %s", key, path)
		}
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, nil, fmt.Errorf("window for %s: %w", level, err)
		}
		windows[level] = d
	}
	if err := windows.Validate(); err != nil {
		return nil, nil, err
	}

	steps := DefaultSteps()
	for key, step := range file.Steps {
		level := types.EscalationLevel(key)
		if !level.IsValid() {
			return nil, nil, fmt.Errorf("unknown escalation level %q in %s", key, path)
		}
		steps[level] = step
	}

	return windows, steps, nil
}
