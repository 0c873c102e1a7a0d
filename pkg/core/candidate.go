package core

import (
	"time"

	"github.com/google/uuid"
)

// Candidate is an immutable genome snapshot plus lineage and per-scenario
// scores. Mutation always produces a new Candidate; existing candidates are
// never modified, which is what makes concurrent evaluation safe without
// per-candidate locking.
type Candidate struct {
	ID         string             `json:"id"`
	Genome     *Genome            `json:"genome"`
	ParentID   string             `json:"parent_id,omitempty"`
	Generation int                `json:"generation"`
	Scores     map[string]float64 `json:"scores"` // scenario id -> score in [0,1]
	CreatedAt  time.Time          `json:"created_at"`
}

// NewCandidate creates an unscored candidate for the given genome.
func NewCandidate(genome *Genome, parentID string, generation int) *Candidate {
	return &Candidate{
		ID:         uuid.NewString(),
		Genome:     genome,
		ParentID:   parentID,
		Generation: generation,
		Scores:     map[string]float64{},
		CreatedAt:  time.Now(),
	}
}

// WithScores returns a copy of the candidate carrying the given score
// vector. The receiver is left untouched.
func (c *Candidate) WithScores(scores map[string]float64) *Candidate {
	copied := make(map[string]float64, len(scores))
	for k, v := range scores {
		copied[k] = v
	}
	clone := *c
	clone.Scores = copied
	return &clone
}

// Score returns the candidate's score for a scenario.
func (c *Candidate) Score(scenarioID string) (float64, bool) {
	s, ok := c.Scores[scenarioID]
	return s, ok
}

// MeanScore returns the mean over all scored scenarios, 0 when unscored.
func (c *Candidate) MeanScore() float64 {
	if len(c.Scores) == 0 {
		return 0.0
	}
	var total float64
	for _, s := range c.Scores {
		total += s
	}
	return total / float64(len(c.Scores))
}

// TextLength returns the total genome text length.
func (c *Candidate) TextLength() int {
	if c.Genome == nil {
		return 0
	}
	return c.Genome.TotalLength()
}

// Dominates reports whether a dominates b over the given scenario
// dimensions: a's score is >= b's on every dimension and strictly greater on
// at least one. Unscored dimensions count as 0.
func Dominates(a, b *Candidate, scenarioIDs []string) bool {
	if a == nil || b == nil {
		return false
	}

	allGreaterOrEqual := true
	atLeastOneGreater := false

	for _, id := range scenarioIDs {
		sa := a.Scores[id]
		sb := b.Scores[id]
		if sa < sb {
			allGreaterOrEqual = false
			break
		}
		if sa > sb {
			atLeastOneGreater = true
		}
	}

	return allGreaterOrEqual && atLeastOneGreater
}
