package optimize

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/XiaoConstantine/textevo-go/pkg/core"
	"github.com/XiaoConstantine/textevo-go/pkg/errors"
)

func fastReflectionConfig() ReflectionConfig {
	cfg := DefaultReflectionConfig()
	cfg.RetryBackoff = time.Millisecond
	return cfg
}

func someFailures(candidateID string) []core.EvaluationResult {
	return []core.EvaluationResult{
		{CandidateID: candidateID, ScenarioID: "s0", Score: 0.0, Feedback: "missing keyword"},
	}
}

func TestReflectionProposesMutations(t *testing.T) {
	reflect := func(ctx context.Context, component, text string, failures []core.EvaluationResult) (string, error) {
		return text + " Be concise.", nil
	}
	engine := NewReflectionEngine(reflect, fastReflectionConfig())

	parent := core.NewCandidate(testGenomeOpt(), "", 0)
	phase := core.Phase{Name: "instructions", Components: []string{"instructions"}}

	proposals, err := engine.Propose(context.Background(), parent, someFailures(parent.ID), phase)
	require.NoError(t, err)
	require.Len(t, proposals, 2) // default reflection minibatch size

	for _, genome := range proposals {
		c, ok := genome.Component("instructions")
		require.True(t, ok)
		assert.Contains(t, c.Text, "Be concise.")
	}
	// The parent genome is untouched.
	c, _ := parent.Genome.Component("instructions")
	assert.Equal(t, "You are an assistant.", c.Text)
}

// TestSkipPerfectScoreMakesZeroCalls: an all-passing
// candidate must trigger no reflection callback invocations at all.
func TestSkipPerfectScoreMakesZeroCalls(t *testing.T) {
	var calls atomic.Int64
	reflect := func(ctx context.Context, component, text string, failures []core.EvaluationResult) (string, error) {
		calls.Add(1)
		return "mutated", nil
	}

	t.Run("Enabled: zero calls", func(t *testing.T) {
		cfg := fastReflectionConfig()
		cfg.SkipPerfectScore = true
		engine := NewReflectionEngine(reflect, cfg)

		parent := core.NewCandidate(testGenomeOpt(), "", 0)
		phase := core.Phase{Name: "instructions", Components: []string{"instructions"}}

		proposals, err := engine.Propose(context.Background(), parent, nil, phase)
		require.NoError(t, err)
		assert.Empty(t, proposals)
		assert.Equal(t, int64(0), calls.Load())
	})

	t.Run("Disabled: callback still invoked", func(t *testing.T) {
		cfg := fastReflectionConfig()
		cfg.SkipPerfectScore = false
		engine := NewReflectionEngine(reflect, cfg)

		parent := core.NewCandidate(testGenomeOpt(), "", 0)
		phase := core.Phase{Name: "instructions", Components: []string{"instructions"}}

		_, err := engine.Propose(context.Background(), parent, nil, phase)
		require.NoError(t, err)
		assert.Greater(t, calls.Load(), int64(0))
	})
}

func TestReflectionScopeRestriction(t *testing.T) {
	phase := core.Phase{Name: "tool_descriptions", Components: []string{"tool:search"}}
	parent := core.NewCandidate(phasedTestGenome(), "", 0)

	t.Run("Only phase components are offered to the callback", func(t *testing.T) {
		var requested []string
		reflect := func(ctx context.Context, component, text string, failures []core.EvaluationResult) (string, error) {
			requested = append(requested, component)
			return text + " v2", nil
		}
		engine := NewReflectionEngine(reflect, fastReflectionConfig())

		proposals, err := engine.Propose(context.Background(), parent, someFailures(parent.ID), phase)
		require.NoError(t, err)
		for _, comp := range requested {
			assert.Equal(t, "tool:search", comp)
		}
		for _, genome := range proposals {
			assert.Equal(t, []string{"tool:search"}, parent.Genome.Diff(genome))
		}
	})

	t.Run("Phase component missing from genome is fatal", func(t *testing.T) {
		reflect := func(ctx context.Context, component, text string, failures []core.EvaluationResult) (string, error) {
			return "x", nil
		}
		engine := NewReflectionEngine(reflect, fastReflectionConfig())

		badPhase := core.Phase{Name: "p", Components: []string{"missing"}}
		_, err := engine.Propose(context.Background(), parent, someFailures(parent.ID), badPhase)
		require.Error(t, err)
		assert.Equal(t, errors.InvalidGenomeScope, errors.CodeOf(err))
	})
}

func TestValidateScope(t *testing.T) {
	parent := phasedTestGenome()
	phase := core.Phase{Name: "tool_descriptions", Components: []string{"tool:search"}}

	inScope, err := parent.WithComponentText("tool:search", "Searches the public web.")
	require.NoError(t, err)
	assert.NoError(t, validateScope(parent, inScope, phase))

	outOfScope, err := parent.WithComponentText("instructions", "hacked")
	require.NoError(t, err)
	err = validateScope(parent, outOfScope, phase)
	require.Error(t, err)
	assert.Equal(t, errors.InvalidGenomeScope, errors.CodeOf(err))
}

func TestReflectionRetriesThenDegrades(t *testing.T) {
	var calls atomic.Int64
	reflect := func(ctx context.Context, component, text string, failures []core.EvaluationResult) (string, error) {
		calls.Add(1)
		return "", errors.New(errors.Timeout, "reflection model unavailable")
	}
	cfg := fastReflectionConfig()
	cfg.MaxRetries = 2
	engine := NewReflectionEngine(reflect, cfg)

	parent := core.NewCandidate(testGenomeOpt(), "", 0)
	phase := core.Phase{Name: "instructions", Components: []string{"instructions"}}

	_, err := engine.Propose(context.Background(), parent, someFailures(parent.ID), phase)
	require.Error(t, err)
	assert.Equal(t, errors.ReflectionFailed, errors.CodeOf(err))
	assert.Equal(t, int64(3), calls.Load()) // initial attempt + 2 retries
}

// Cancellation mid-reflect must surface with its Canceled code intact, not
// disguised as a failed callback.
func TestReflectionCancellationKeepsCode(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	reflect := func(callCtx context.Context, component, text string, failures []core.EvaluationResult) (string, error) {
		cancel()
		return "", callCtx.Err()
	}
	engine := NewReflectionEngine(reflect, fastReflectionConfig())

	parent := core.NewCandidate(testGenomeOpt(), "", 0)
	phase := core.Phase{Name: "instructions", Components: []string{"instructions"}}

	_, err := engine.Propose(ctx, parent, someFailures(parent.ID), phase)
	require.Error(t, err)
	assert.Equal(t, errors.Canceled, errors.CodeOf(err))
}

func TestReflectionSkipsNoOpProposals(t *testing.T) {
	reflect := func(ctx context.Context, component, text string, failures []core.EvaluationResult) (string, error) {
		return text, nil // proposes the unchanged text
	}
	engine := NewReflectionEngine(reflect, fastReflectionConfig())

	parent := core.NewCandidate(testGenomeOpt(), "", 0)
	phase := core.Phase{Name: "instructions", Components: []string{"instructions"}}

	proposals, err := engine.Propose(context.Background(), parent, someFailures(parent.ID), phase)
	require.NoError(t, err)
	assert.Empty(t, proposals)
}
