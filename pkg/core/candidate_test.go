package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testGenome() *Genome {
	return MustNewGenome(Component{Name: "instructions", Text: "You are an assistant."})
}

func TestNewCandidate(t *testing.T) {
	parent := NewCandidate(testGenome(), "", 0)
	child := NewCandidate(testGenome(), parent.ID, 1)

	assert.NotEmpty(t, parent.ID)
	assert.NotEqual(t, parent.ID, child.ID)
	assert.Equal(t, parent.ID, child.ParentID)
	assert.Equal(t, 1, child.Generation)
	assert.Empty(t, child.Scores)
}

func TestCandidateWithScores(t *testing.T) {
	c := NewCandidate(testGenome(), "", 0)
	scores := map[string]float64{"s1": 1.0, "s2": 0.5}

	scored := c.WithScores(scores)

	// Receiver is untouched, copy carries an independent map.
	assert.Empty(t, c.Scores)
	scores["s1"] = 0.0
	got, ok := scored.Score("s1")
	require.True(t, ok)
	assert.Equal(t, 1.0, got)
	assert.InDelta(t, 0.75, scored.MeanScore(), 1e-9)
}

func TestCandidateMeanScoreUnscored(t *testing.T) {
	c := NewCandidate(testGenome(), "", 0)
	assert.Equal(t, 0.0, c.MeanScore())
}

func TestDominates(t *testing.T) {
	ids := []string{"s1", "s2", "s3"}
	base := NewCandidate(testGenome(), "", 0)

	tests := []struct {
		name     string
		a, b     map[string]float64
		expected bool
	}{
		{
			name:     "Strictly better on one, equal elsewhere",
			a:        map[string]float64{"s1": 1.0, "s2": 0.5, "s3": 0.5},
			b:        map[string]float64{"s1": 0.5, "s2": 0.5, "s3": 0.5},
			expected: true,
		},
		{
			name:     "Better everywhere",
			a:        map[string]float64{"s1": 1.0, "s2": 1.0, "s3": 1.0},
			b:        map[string]float64{"s1": 0.0, "s2": 0.5, "s3": 0.9},
			expected: true,
		},
		{
			name:     "Equal vectors do not dominate",
			a:        map[string]float64{"s1": 0.5, "s2": 0.5, "s3": 0.5},
			b:        map[string]float64{"s1": 0.5, "s2": 0.5, "s3": 0.5},
			expected: false,
		},
		{
			name:     "Trade-off is non-dominated",
			a:        map[string]float64{"s1": 1.0, "s2": 0.0, "s3": 0.5},
			b:        map[string]float64{"s1": 0.0, "s2": 1.0, "s3": 0.5},
			expected: false,
		},
		{
			name:     "Unscored dimensions count as zero",
			a:        map[string]float64{"s1": 0.5},
			b:        map[string]float64{},
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := base.WithScores(tt.a)
			b := base.WithScores(tt.b)
			assert.Equal(t, tt.expected, Dominates(a, b, ids))
		})
	}

	assert.False(t, Dominates(nil, base, ids))
	assert.False(t, Dominates(base, nil, ids))
}
