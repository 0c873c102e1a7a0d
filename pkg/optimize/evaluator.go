package optimize

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/XiaoConstantine/textevo-go/pkg/core"
	"github.com/XiaoConstantine/textevo-go/pkg/errors"
	"github.com/XiaoConstantine/textevo-go/pkg/logging"
	"github.com/sourcegraph/conc/pool"
)

// EvaluatorConfig controls retry, timeout and concurrency behavior of
// scenario evaluation.
type EvaluatorConfig struct {
	MaxRetries    int           `json:"max_retries"`    // Default: 2
	RetryBackoff  time.Duration `json:"retry_backoff"`  // Default: 200ms, doubled per attempt
	CallTimeout   time.Duration `json:"call_timeout"`   // Default: 2m per callback invocation
	MaxGoroutines int           `json:"max_goroutines"` // Default: 8
}

// DefaultEvaluatorConfig returns the default evaluator configuration.
func DefaultEvaluatorConfig() EvaluatorConfig {
	return EvaluatorConfig{
		MaxRetries:    2,
		RetryBackoff:  200 * time.Millisecond,
		CallTimeout:   2 * time.Minute,
		MaxGoroutines: 8,
	}
}

// Evaluator runs candidate genomes against scenarios through the
// caller-supplied evaluate callback. Independent (candidate, scenario) pairs
// run through a bounded worker pool; every scenario invocation reserves one
// metric call from the budget before the callback fires.
type Evaluator struct {
	run    core.EvaluateFunc
	budget *BudgetController
	config EvaluatorConfig
	logger *logging.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// NewEvaluator creates an evaluator around the caller's run callback.
func NewEvaluator(run core.EvaluateFunc, budget *BudgetController, config EvaluatorConfig, seed int64) *Evaluator {
	if config.MaxGoroutines <= 0 {
		config.MaxGoroutines = DefaultEvaluatorConfig().MaxGoroutines
	}
	return &Evaluator{
		run:    run,
		budget: budget,
		config: config,
		logger: logging.GetLogger(),
		rng:    rand.New(rand.NewSource(seed)),
	}
}

// Evaluate scores one candidate against every scenario in the subset.
// Callback errors are absorbed per scenario: after bounded retries the
// scenario is scored 0 with diagnostic feedback. The returned stopped flag
// is true when the budget refused further calls; scenarios past that point
// carry no result.
func (e *Evaluator) Evaluate(ctx context.Context, candidate *core.Candidate, scenarios core.ScenarioSet) ([]core.EvaluationResult, bool) {
	results := make([]core.EvaluationResult, len(scenarios))
	evaluated := make([]bool, len(scenarios))
	var stopped sync.Once
	var budgetStopped bool

	p := pool.New().WithMaxGoroutines(e.config.MaxGoroutines)
	for i, scenario := range scenarios {
		i, scenario := i, scenario
		p.Go(func() {
			if !e.budget.TryConsume(1) {
				stopped.Do(func() { budgetStopped = true })
				return
			}
			results[i] = e.evaluateOne(ctx, candidate, scenario)
			evaluated[i] = true
		})
	}
	p.Wait()

	out := make([]core.EvaluationResult, 0, len(scenarios))
	for i := range results {
		if evaluated[i] {
			out = append(out, results[i])
		}
	}
	return out, budgetStopped
}

// evaluateOne invokes the callback for a single scenario with bounded retry
// and a per-call timeout so one hung external call cannot stall the run.
func (e *Evaluator) evaluateOne(ctx context.Context, candidate *core.Candidate, scenario core.Scenario) core.EvaluationResult {
	result := core.EvaluationResult{
		CandidateID: candidate.ID,
		ScenarioID:  scenario.ID,
	}

	var lastErr error
	backoff := e.config.RetryBackoff
	for attempt := 0; attempt <= e.config.MaxRetries; attempt++ {
		if err := errors.CheckContext(ctx, "evaluation"); err != nil {
			lastErr = err
			break
		}

		score, feedback, err := e.callOnce(ctx, candidate.Genome, scenario)
		if err == nil {
			result.Score = clampScore(score)
			result.Feedback = feedback
			return result
		}

		lastErr = err
		if !errors.IsTransient(err) {
			break
		}
		if attempt < e.config.MaxRetries {
			e.logger.Debug(ctx, "transient evaluation failure on scenario %s (attempt %d): %v",
				scenario.ID, attempt+1, err)
			time.Sleep(backoff)
			backoff *= 2
		}
	}

	// Permanent failure: never fatal, scored as 0 with diagnostics.
	result.Score = 0.0
	result.Feedback = fmt.Sprintf("evaluation failed: %v", lastErr)
	result.Err = lastErr
	e.logger.Warn(ctx, "scenario %s scored 0 after evaluation failure: %v", scenario.ID, lastErr)
	return result
}

func (e *Evaluator) callOnce(ctx context.Context, genome *core.Genome, scenario core.Scenario) (float64, string, error) {
	callCtx := ctx
	if e.config.CallTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, e.config.CallTimeout)
		defer cancel()
	}
	return e.run(callCtx, genome, scenario)
}

// SampleMinibatch draws a minibatch without replacement from the scenario
// subset. Sampling is seeded at construction, so a run replays identically.
func (e *Evaluator) SampleMinibatch(scenarios core.ScenarioSet, size int) core.ScenarioSet {
	if size <= 0 || size >= len(scenarios) {
		batch := make(core.ScenarioSet, len(scenarios))
		copy(batch, scenarios)
		return batch
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	indices := e.rng.Perm(len(scenarios))[:size]
	batch := make(core.ScenarioSet, 0, size)
	for _, i := range indices {
		batch = append(batch, scenarios[i])
	}
	return batch
}

// applyResults folds evaluation results into a candidate's score vector,
// returning a new candidate. Existing scores for other scenarios survive.
func applyResults(candidate *core.Candidate, results []core.EvaluationResult) *core.Candidate {
	scores := make(map[string]float64, len(candidate.Scores)+len(results))
	for k, v := range candidate.Scores {
		scores[k] = v
	}
	for _, r := range results {
		scores[r.ScenarioID] = r.Score
	}
	return candidate.WithScores(scores)
}

// clampScore forces a callback score into [0,1]; candidate scores outside
// the unit interval would break the domination invariant.
func clampScore(s float64) float64 {
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}
