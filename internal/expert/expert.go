// Package expert selects reviewers for escalations. The scoring function is
// in the same family as capability matching but weighs expertise coverage,
// workload headroom, and response time, all damped by historical success.
package expert

import (
	"errors"
	"fmt"
	"sort"

	"github.com/tasknet/dispatch/internal/types"
)

// ErrNoExpertsAvailable means the pool is empty after filtering to available
// experts with at least one overlapping expertise area.
var ErrNoExpertsAvailable = errors.New("no experts available")

// Scoring weights. The weighted sum is multiplied by the expert's historical
// success rate, so an unreliable expert never outranks a reliable one with
// comparable coverage.
const (
	expertiseWeight    = 0.5
	availabilityWeight = 0.3
	responseTimeWeight = 0.2

	workloadCeiling  = 10.0 // active escalations at which headroom hits zero
	responseCeilingH = 24.0 // response hours at which timeliness hits zero
)

// Candidate is a scored expert.
type Candidate struct {
	Expert *types.Expert
	Score  float64
}

// Score computes the match score for one expert against the required
// expertise set.
func Score(e *types.Expert, required []string) float64 {
	overlap := 0
	for _, area := range e.ExpertiseAreas {
		for _, req := range required {
			if area == req {
				overlap++
				break
			}
		}
	}

	coverage := 1.0
	if len(required) > 0 {
		coverage = float64(overlap) / float64(len(required))
		if coverage > 1.0 {
			coverage = 1.0
		}
	}

	headroom := 1.0 - float64(e.CurrentWorkload)/workloadCeiling
	if headroom < 0 {
		headroom = 0
	}

	timeliness := 1.0 - e.ResponseTimeHours/responseCeilingH
	if timeliness < 0 {
		timeliness = 0
	}

	weighted := coverage*expertiseWeight + headroom*availabilityWeight + timeliness*responseTimeWeight
	return weighted * e.SuccessRate
}

// Select ranks the pool and returns the best expert for the required
// expertise. Experts who are not available, or who have zero expertise
// overlap, are never returned.
func Select(experts []*types.Expert, required []string) (*types.Expert, error) {
	ranked, err := Rank(experts, required)
	if err != nil {
		return nil, err
	}
	return ranked[0].Expert, nil
}

// Rank returns the filtered pool best-first. Ties break by expert ID so
// results stay deterministic.
func Rank(experts []*types.Expert, required []string) ([]Candidate, error) {
	var candidates []Candidate
	for _, e := range experts {
		if err := e.Validate(); err != nil {
			return nil, fmt.Errorf("invalid expert %s: %w", e.ID, err)
		}
		if e.Availability != types.AvailabilityAvailable {
			continue
		}
		if !e.HasExpertise(required) {
			continue
		}
		candidates = append(candidates, Candidate{Expert: e, Score: Score(e, required)})
	}

	if len(candidates) == 0 {
		return nil, fmt.Errorf("required expertise %v: %w", required, ErrNoExpertsAvailable)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].Expert.ID < candidates[j].Expert.ID
	})
	return candidates, nil
}
