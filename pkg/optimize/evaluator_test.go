package optimize

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/XiaoConstantine/textevo-go/pkg/core"
	"github.com/XiaoConstantine/textevo-go/pkg/errors"
)

func newTestBudget(t *testing.T, calls int) *BudgetController {
	t.Helper()
	b, err := NewBudgetController(BudgetConfig{MaxMetricCalls: calls}, 1)
	require.NoError(t, err)
	return b
}

func fastEvaluatorConfig() EvaluatorConfig {
	cfg := DefaultEvaluatorConfig()
	cfg.RetryBackoff = time.Millisecond
	return cfg
}

func TestEvaluatorScoresAllScenarios(t *testing.T) {
	run := func(ctx context.Context, g *core.Genome, s core.Scenario) (float64, string, error) {
		return 0.5, "ok", nil
	}
	e := NewEvaluator(run, newTestBudget(t, 100), fastEvaluatorConfig(), 1)

	cand := core.NewCandidate(testGenomeOpt(), "", 0)
	results, stopped := e.Evaluate(context.Background(), cand, makeScenarioSet(5))

	assert.False(t, stopped)
	require.Len(t, results, 5)
	for _, r := range results {
		assert.Equal(t, 0.5, r.Score)
		assert.Equal(t, "ok", r.Feedback)
		assert.Equal(t, cand.ID, r.CandidateID)
	}
}

func TestEvaluatorDeterministicScoring(t *testing.T) {
	run := func(ctx context.Context, g *core.Genome, s core.Scenario) (float64, string, error) {
		if s.ID == "s0" {
			return 1.0, "", nil
		}
		return 0.25, "", nil
	}
	e := NewEvaluator(run, newTestBudget(t, 100), fastEvaluatorConfig(), 1)
	cand := core.NewCandidate(testGenomeOpt(), "", 0)
	set := makeScenarioSet(3)

	first, _ := e.Evaluate(context.Background(), cand, set)
	second, _ := e.Evaluate(context.Background(), cand, set)

	require.Equal(t, len(first), len(second))
	byID := func(rs []core.EvaluationResult) map[string]float64 {
		m := make(map[string]float64)
		for _, r := range rs {
			m[r.ScenarioID] = r.Score
		}
		return m
	}
	assert.Equal(t, byID(first), byID(second))
}

func TestEvaluatorRetriesTransientErrors(t *testing.T) {
	var calls atomic.Int64
	run := func(ctx context.Context, g *core.Genome, s core.Scenario) (float64, string, error) {
		if calls.Add(1) == 1 {
			return 0, "", errors.New(errors.Timeout, "simulated timeout")
		}
		return 1.0, "recovered", nil
	}
	e := NewEvaluator(run, newTestBudget(t, 100), fastEvaluatorConfig(), 1)
	cand := core.NewCandidate(testGenomeOpt(), "", 0)

	results, stopped := e.Evaluate(context.Background(), cand, makeScenarioSet(1))

	assert.False(t, stopped)
	require.Len(t, results, 1)
	assert.Equal(t, 1.0, results[0].Score)
	assert.Equal(t, int64(2), calls.Load())
}

func TestEvaluatorPermanentErrorScoredZero(t *testing.T) {
	var calls atomic.Int64
	run := func(ctx context.Context, g *core.Genome, s core.Scenario) (float64, string, error) {
		calls.Add(1)
		return 0, "", errors.New(errors.InvalidInput, "bad scenario shape")
	}
	e := NewEvaluator(run, newTestBudget(t, 100), fastEvaluatorConfig(), 1)
	cand := core.NewCandidate(testGenomeOpt(), "", 0)

	results, stopped := e.Evaluate(context.Background(), cand, makeScenarioSet(1))

	assert.False(t, stopped)
	require.Len(t, results, 1)
	assert.Equal(t, 0.0, results[0].Score)
	assert.Contains(t, results[0].Feedback, "evaluation failed")
	assert.Error(t, results[0].Err)
	// Permanent errors are not retried.
	assert.Equal(t, int64(1), calls.Load())
}

func TestEvaluatorTransientExhaustionScoredZero(t *testing.T) {
	run := func(ctx context.Context, g *core.Genome, s core.Scenario) (float64, string, error) {
		return 0, "", errors.New(errors.RateLimitExceeded, "throttled")
	}
	cfg := fastEvaluatorConfig()
	cfg.MaxRetries = 2
	e := NewEvaluator(run, newTestBudget(t, 100), cfg, 1)
	cand := core.NewCandidate(testGenomeOpt(), "", 0)

	results, _ := e.Evaluate(context.Background(), cand, makeScenarioSet(1))
	require.Len(t, results, 1)
	assert.Equal(t, 0.0, results[0].Score)
}

func TestEvaluatorHonorsBudget(t *testing.T) {
	var calls atomic.Int64
	run := func(ctx context.Context, g *core.Genome, s core.Scenario) (float64, string, error) {
		calls.Add(1)
		return 1.0, "", nil
	}
	budget := newTestBudget(t, 3)
	e := NewEvaluator(run, budget, fastEvaluatorConfig(), 1)
	cand := core.NewCandidate(testGenomeOpt(), "", 0)

	results, stopped := e.Evaluate(context.Background(), cand, makeScenarioSet(10))

	assert.True(t, stopped)
	assert.Len(t, results, 3)
	assert.LessOrEqual(t, calls.Load(), int64(3))
	assert.Equal(t, 3, budget.Used())
}

func TestEvaluatorClampsScores(t *testing.T) {
	scores := map[string]float64{"s0": -0.5, "s1": 1.5, "s2": 0.5}
	run := func(ctx context.Context, g *core.Genome, s core.Scenario) (float64, string, error) {
		return scores[s.ID], "", nil
	}
	e := NewEvaluator(run, newTestBudget(t, 100), fastEvaluatorConfig(), 1)
	cand := core.NewCandidate(testGenomeOpt(), "", 0)

	results, _ := e.Evaluate(context.Background(), cand, makeScenarioSet(3))
	for _, r := range results {
		assert.GreaterOrEqual(t, r.Score, 0.0)
		assert.LessOrEqual(t, r.Score, 1.0)
	}
}

func TestEvaluatorCallTimeout(t *testing.T) {
	run := func(ctx context.Context, g *core.Genome, s core.Scenario) (float64, string, error) {
		select {
		case <-ctx.Done():
			return 0, "", errors.Wrap(ctx.Err(), errors.Timeout, "callback timed out")
		case <-time.After(10 * time.Second):
			return 1.0, "", nil
		}
	}
	cfg := fastEvaluatorConfig()
	cfg.CallTimeout = 5 * time.Millisecond
	cfg.MaxRetries = 0
	e := NewEvaluator(run, newTestBudget(t, 100), cfg, 1)
	cand := core.NewCandidate(testGenomeOpt(), "", 0)

	start := time.Now()
	results, _ := e.Evaluate(context.Background(), cand, makeScenarioSet(1))
	require.Len(t, results, 1)
	assert.Equal(t, 0.0, results[0].Score)
	assert.Less(t, time.Since(start), 5*time.Second, "hung call must not stall the run")
}

func TestEvaluatorParallelism(t *testing.T) {
	var mu sync.Mutex
	inFlight, peak := 0, 0
	run := func(ctx context.Context, g *core.Genome, s core.Scenario) (float64, string, error) {
		mu.Lock()
		inFlight++
		if inFlight > peak {
			peak = inFlight
		}
		mu.Unlock()

		time.Sleep(10 * time.Millisecond)

		mu.Lock()
		inFlight--
		mu.Unlock()
		return 1.0, "", nil
	}
	cfg := fastEvaluatorConfig()
	cfg.MaxGoroutines = 4
	e := NewEvaluator(run, newTestBudget(t, 100), cfg, 1)
	cand := core.NewCandidate(testGenomeOpt(), "", 0)

	_, _ = e.Evaluate(context.Background(), cand, makeScenarioSet(12))

	mu.Lock()
	defer mu.Unlock()
	assert.Greater(t, peak, 1, "pairs should evaluate in parallel")
	assert.LessOrEqual(t, peak, 4, "pool must stay bounded")
}

func TestSampleMinibatch(t *testing.T) {
	e := NewEvaluator(nil, newTestBudget(t, 100), fastEvaluatorConfig(), 7)
	set := makeScenarioSet(10)

	t.Run("Without replacement", func(t *testing.T) {
		batch := e.SampleMinibatch(set, 4)
		require.Len(t, batch, 4)
		seen := make(map[string]struct{})
		for _, s := range batch {
			_, dup := seen[s.ID]
			assert.False(t, dup)
			seen[s.ID] = struct{}{}
		}
	})

	t.Run("Oversized batch returns the full set", func(t *testing.T) {
		batch := e.SampleMinibatch(set, 100)
		assert.Len(t, batch, 10)
	})

	t.Run("Seeded sampling replays identically", func(t *testing.T) {
		e1 := NewEvaluator(nil, newTestBudget(t, 100), fastEvaluatorConfig(), 3)
		e2 := NewEvaluator(nil, newTestBudget(t, 100), fastEvaluatorConfig(), 3)
		assert.Equal(t, e1.SampleMinibatch(set, 5).IDs(), e2.SampleMinibatch(set, 5).IDs())
	})
}

func TestApplyResults(t *testing.T) {
	cand := core.NewCandidate(testGenomeOpt(), "", 0).WithScores(map[string]float64{"old": 0.9})
	results := []core.EvaluationResult{
		{ScenarioID: "s0", Score: 1.0},
		{ScenarioID: "s1", Score: 0.0},
	}

	scored := applyResults(cand, results)

	assert.Len(t, scored.Scores, 3)
	assert.Equal(t, 0.9, scored.Scores["old"])
	assert.Equal(t, 1.0, scored.Scores["s0"])
	// The input candidate is untouched.
	assert.Len(t, cand.Scores, 1)
}
