package optimize

import (
	"sync/atomic"
	"time"

	"github.com/XiaoConstantine/textevo-go/pkg/errors"
)

// Tier names a predefined budget size.
type Tier string

const (
	TierLight  Tier = "light"
	TierMedium Tier = "medium"
	TierHeavy  Tier = "heavy"
)

// TierPolicy is the numeric policy behind a named tier. The defaults are a
// policy table, not constants baked into the engine; callers may swap the
// whole table via BudgetConfig.TierPolicies.
type TierPolicy struct {
	MaxGenerations int `json:"max_generations"`
	MinibatchSize  int `json:"minibatch_size"`
	MaxMetricCalls int `json:"max_metric_calls"`
}

// DefaultTierPolicies returns the built-in tier policy table.
func DefaultTierPolicies() map[Tier]TierPolicy {
	return map[Tier]TierPolicy{
		TierLight:  {MaxGenerations: 3, MinibatchSize: 4, MaxMetricCalls: 60},
		TierMedium: {MaxGenerations: 7, MinibatchSize: 8, MaxMetricCalls: 280},
		TierHeavy:  {MaxGenerations: 12, MinibatchSize: 16, MaxMetricCalls: 960},
	}
}

// BudgetConfig bounds one optimization run. Precedence: MaxMetricCalls >
// MaxFullEvals > tier defaults. MaxElapsed optionally adds a wall-clock
// limit on top of whichever call limit applies.
type BudgetConfig struct {
	Tier           Tier                `json:"tier,omitempty"`
	MaxMetricCalls int                 `json:"max_metric_calls,omitempty"`
	MaxFullEvals   int                 `json:"max_full_evals,omitempty"`
	MaxElapsed     time.Duration       `json:"max_elapsed,omitempty"`
	TierPolicies   map[Tier]TierPolicy `json:"tier_policies,omitempty"`
}

// BudgetController tracks consumed evaluator calls and elapsed time against
// the configured limit. Consumption is reserve-then-call: a worker that
// fails TryConsume must not invoke the callback, so the counter can never
// pass the cap. The counter is monotonic.
type BudgetController struct {
	limit      int64
	used       atomic.Int64
	start      time.Time
	maxElapsed time.Duration
	policy     TierPolicy
}

// NewBudgetController resolves the configured limit and starts the clock.
// fullEvalSize is the number of metric calls in one full evaluation (the
// train set size), used to translate MaxFullEvals into a call limit.
func NewBudgetController(cfg BudgetConfig, fullEvalSize int) (*BudgetController, error) {
	policies := cfg.TierPolicies
	if policies == nil {
		policies = DefaultTierPolicies()
	}

	tier := cfg.Tier
	if tier == "" {
		tier = TierLight
	}
	policy, ok := policies[tier]
	if !ok {
		return nil, errors.WithFields(
			errors.New(errors.ValidationFailed, "unknown budget tier"),
			errors.Fields{"tier": string(tier)},
		)
	}

	limit := int64(policy.MaxMetricCalls)
	switch {
	case cfg.MaxMetricCalls > 0:
		limit = int64(cfg.MaxMetricCalls)
	case cfg.MaxFullEvals > 0:
		limit = int64(cfg.MaxFullEvals) * int64(fullEvalSize)
	}
	if limit <= 0 {
		return nil, errors.New(errors.ValidationFailed, "budget resolves to a non-positive call limit")
	}

	return &BudgetController{
		limit:      limit,
		start:      time.Now(),
		maxElapsed: cfg.MaxElapsed,
		policy:     policy,
	}, nil
}

// TryConsume reserves n metric calls. It returns false, without consuming
// anything, when the reservation would push the counter past the limit.
func (b *BudgetController) TryConsume(n int) bool {
	if n <= 0 {
		return true
	}
	for {
		current := b.used.Load()
		next := current + int64(n)
		if next > b.limit {
			return false
		}
		if b.used.CompareAndSwap(current, next) {
			return true
		}
	}
}

// Used returns the number of consumed metric calls.
func (b *BudgetController) Used() int {
	return int(b.used.Load())
}

// Limit returns the resolved call limit.
func (b *BudgetController) Limit() int {
	return int(b.limit)
}

// Remaining returns how many metric calls are still available.
func (b *BudgetController) Remaining() int {
	r := b.limit - b.used.Load()
	if r < 0 {
		return 0
	}
	return int(r)
}

// Elapsed returns the wall-clock time since the controller started.
func (b *BudgetController) Elapsed() time.Duration {
	return time.Since(b.start)
}

// ShouldStop reports whether any configured limit has been reached. This is
// the StopOptimization signal; it is a controlled termination, not an error.
func (b *BudgetController) ShouldStop() bool {
	if b.used.Load() >= b.limit {
		return true
	}
	if b.maxElapsed > 0 && time.Since(b.start) >= b.maxElapsed {
		return true
	}
	return false
}

// Policy returns the tier policy the controller resolved at construction.
func (b *BudgetController) Policy() TierPolicy {
	return b.policy
}
