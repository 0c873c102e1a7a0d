package optimize

import (
	"context"
	"time"

	"github.com/XiaoConstantine/textevo-go/pkg/core"
	"github.com/XiaoConstantine/textevo-go/pkg/errors"
	"github.com/XiaoConstantine/textevo-go/pkg/logging"
	"github.com/google/uuid"
)

// State identifies a step of the orchestrator's state machine.
type State int

const (
	StateIdle State = iota
	StateSplitData
	StatePhaseInit
	StateEvaluate
	StateReflect
	StateArchive
	StateBudgetCheck
	StatePhaseComplete
	StateDone
)

// String provides readable state names for logs.
func (s State) String() string {
	return [...]string{
		"Idle", "SplitData", "PhaseInit", "Evaluate", "Reflect",
		"Archive", "BudgetCheck", "PhaseComplete", "Done",
	}[s]
}

// Config gathers every knob of an optimization run.
type Config struct {
	Budget         BudgetConfig
	Phases         []core.Phase // empty: derived from genome component phase tags
	Seed           int64        // Default: 42; drives split and minibatch sampling
	TrainFraction  float64      // Default: 0.8
	MinibatchSize  int          // 0: taken from the tier policy
	MaxGenerations int          // 0: taken from the tier policy

	Scheduler  SchedulerConfig
	Evaluation EvaluatorConfig
	Reflection ReflectionConfig
}

// DefaultConfig returns the default run configuration.
func DefaultConfig() Config {
	return Config{
		Budget:        BudgetConfig{Tier: TierLight},
		Seed:          42,
		TrainFraction: 0.8,
		Scheduler:     DefaultSchedulerConfig(),
		Evaluation:    DefaultEvaluatorConfig(),
		Reflection:    DefaultReflectionConfig(),
	}
}

// Option mutates the run configuration.
type Option func(*Config)

// WithBudget sets the budget configuration.
func WithBudget(budget BudgetConfig) Option {
	return func(c *Config) { c.Budget = budget }
}

// WithPhases sets an explicit phase order.
func WithPhases(phases ...core.Phase) Option {
	return func(c *Config) { c.Phases = phases }
}

// WithSeed sets the seed for the data split and minibatch sampling.
func WithSeed(seed int64) Option {
	return func(c *Config) { c.Seed = seed }
}

// WithTrainFraction sets the train share of the scenario split.
func WithTrainFraction(fraction float64) Option {
	return func(c *Config) { c.TrainFraction = fraction }
}

// WithMinibatchSize overrides the tier policy's minibatch size.
func WithMinibatchSize(size int) Option {
	return func(c *Config) { c.MinibatchSize = size }
}

// WithMaxGenerations overrides the tier policy's generation count per phase.
func WithMaxGenerations(n int) Option {
	return func(c *Config) { c.MaxGenerations = n }
}

// WithDiversityPenalty tunes how strongly repeated parent selection is
// down-weighted.
func WithDiversityPenalty(penalty float64) Option {
	return func(c *Config) { c.Scheduler.DiversityPenalty = penalty }
}

// WithParentsPerGeneration sets how many parents each generation mutates.
func WithParentsPerGeneration(n int) Option {
	return func(c *Config) { c.Scheduler.ParentsPerGeneration = n }
}

// WithSkipPerfectScore toggles skipping reflection for all-passing
// candidates.
func WithSkipPerfectScore(skip bool) Option {
	return func(c *Config) { c.Reflection.SkipPerfectScore = skip }
}

// WithCallTimeout bounds each evaluate/reflect callback invocation.
func WithCallTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		c.Evaluation.CallTimeout = timeout
		c.Reflection.CallTimeout = timeout
	}
}

// WithMaxGoroutines bounds the evaluation worker pool.
func WithMaxGoroutines(n int) Option {
	return func(c *Config) { c.Evaluation.MaxGoroutines = n }
}

// WithReflectionMinibatch sets the number of proposals per generation.
func WithReflectionMinibatch(n int) Option {
	return func(c *Config) { c.Reflection.MaxProposals = n }
}

// Optimizer is the top-level orchestrator sequencing phases, generations and
// termination for one optimization run.
type Optimizer struct {
	config Config
	logger *logging.Logger
}

// New creates an optimizer with the given options applied over defaults.
func New(opts ...Option) *Optimizer {
	config := DefaultConfig()
	for _, opt := range opts {
		opt(&config)
	}
	return &Optimizer{
		config: config,
		logger: logging.GetLogger(),
	}
}

// phaseOutcome carries one phase's conclusion back to the run loop.
type phaseOutcome struct {
	result   core.PhaseResult
	best     *core.Candidate
	stopped  bool // budget or cancellation stop: skip remaining phases
	degraded bool
}

// Optimize runs the full optimization: splits scenarios, executes each phase
// strictly in order, and assembles the final report. The report is always
// produced when the run starts successfully; only configuration errors and
// internal invariant violations abort it.
func (o *Optimizer) Optimize(ctx context.Context, genome *core.Genome, scenarios core.ScenarioSet, evaluate core.EvaluateFunc, reflect core.ReflectFunc) (*core.OptimizationResult, error) {
	start := time.Now()
	runID := uuid.NewString()
	ctx = logging.WithRunID(ctx, runID)

	// Idle: validate configuration. All failures here are fatal.
	if genome == nil {
		return nil, errors.New(errors.InvalidInput, "genome is required")
	}
	if evaluate == nil || reflect == nil {
		return nil, errors.New(errors.InvalidInput, "evaluate and reflect callbacks are required")
	}
	if err := scenarios.Validate(); err != nil {
		return nil, err
	}
	phases := o.config.Phases
	if len(phases) == 0 {
		phases = core.DefaultPhases(genome)
	}
	if err := core.ValidatePhases(phases, genome); err != nil {
		return nil, err
	}

	// SplitData: deterministic train/validation partition.
	o.logger.Debug(ctx, "state %s -> %s", StateIdle, StateSplitData)
	train, validation := scenarios.Split(o.config.Seed, o.config.TrainFraction)
	o.logger.Info(ctx, "split %d scenarios into %d train / %d validation (seed=%d)",
		len(scenarios), len(train), len(validation), o.config.Seed)

	budget, err := NewBudgetController(o.config.Budget, len(train))
	if err != nil {
		return nil, err
	}
	evaluator := NewEvaluator(evaluate, budget, o.config.Evaluation, o.config.Seed)
	engine := NewReflectionEngine(reflect, o.config.Reflection)

	result := &core.OptimizationResult{
		RunID:    runID,
		PerPhase: make(map[string]core.PhaseResult, len(phases)),
	}

	// Phases execute strictly sequentially: a later phase starts from the
	// earlier phase's best genome, with earlier components frozen.
	current := genome
	for _, phase := range phases {
		outcome, err := o.runPhase(ctx, phase, current, train, validation, budget, evaluator, engine)
		if err != nil {
			return nil, err
		}

		result.PerPhase[phase.Name] = outcome.result
		if outcome.degraded {
			result.DegradedPhases = append(result.DegradedPhases, phase.Name)
		}
		if outcome.best != nil {
			current = outcome.best.Genome
		}
		if outcome.stopped {
			o.logger.Info(ctx, "stopping after phase %s: budget or cancellation", phase.Name)
			break
		}
	}

	result.TotalCallsConsumed = budget.Used()
	result.ElapsedSeconds = time.Since(start).Seconds()
	o.logger.Info(ctx, "optimization done: %d calls consumed, %d/%d phases, %.2fs elapsed",
		result.TotalCallsConsumed, len(result.PerPhase), len(phases), result.ElapsedSeconds)
	return result, nil
}

// runPhase executes the per-phase state machine:
// PhaseInit -> Evaluate -> Reflect -> Archive -> BudgetCheck -> {Evaluate | PhaseComplete}.
func (o *Optimizer) runPhase(ctx context.Context, phase core.Phase, baseline *core.Genome, train, validation core.ScenarioSet, budget *BudgetController, evaluator *Evaluator, engine *ReflectionEngine) (phaseOutcome, error) {
	ctx = logging.WithPhase(ctx, phase.Name)
	phaseStart := budget.Used()

	policy := budget.Policy()
	minibatch := o.config.MinibatchSize
	if minibatch <= 0 {
		minibatch = policy.MinibatchSize
	}
	maxGenerations := o.config.MaxGenerations
	if maxGenerations <= 0 {
		maxGenerations = policy.MaxGenerations
	}

	archive := NewParetoArchive(train.IDs())
	scheduler := NewMutationScheduler(o.config.Scheduler, archive, engine, evaluator)

	outcome := phaseOutcome{}
	generation := 0
	var parents []*core.Candidate
	var failures map[string][]core.EvaluationResult
	var children []*core.Candidate

	state := StatePhaseInit
	for state != StatePhaseComplete {
		if err := errors.CheckContext(ctx, "phase "+phase.Name); err != nil {
			// Cooperative cancellation: conclude with the best so far.
			outcome.stopped = true
			state = StatePhaseComplete
			break
		}

		switch state {
		case StatePhaseInit:
			// The unmodified baseline is always evaluated first; its
			// score is the floor every mutation must beat.
			baselineCand := core.NewCandidate(baseline, "", 0)
			results, stopped := evaluator.Evaluate(ctx, baselineCand, train)
			scored := applyResults(baselineCand, results)
			if _, err := archive.Insert(scored); err != nil {
				return outcome, err
			}
			o.logger.Info(ctx, "baseline candidate %s scored %.4f on %d train scenarios",
				scored.ID, scored.MeanScore(), len(results))
			if stopped {
				outcome.stopped = true
				state = StatePhaseComplete
				break
			}
			state = StateEvaluate

		case StateEvaluate:
			generation++
			genCtx := logging.WithGeneration(ctx, generation)
			parents = scheduler.SelectParents(o.config.Scheduler.ParentsPerGeneration)
			batch := evaluator.SampleMinibatch(train, minibatch)

			var stopped bool
			failures, stopped = scheduler.CollectFailures(genCtx, parents, batch)
			if stopped {
				outcome.stopped = true
				state = StatePhaseComplete
				break
			}
			state = StateReflect

		case StateReflect:
			genCtx := logging.WithGeneration(ctx, generation)
			var err error
			children, err = scheduler.ProposeChildren(genCtx, phase, parents, failures, generation)
			if err != nil {
				if errors.CodeOf(err) == errors.InvalidGenomeScope {
					return outcome, err
				}
				if errors.CodeOf(err) == errors.Canceled {
					// Cancellation mid-reflect is a controlled stop, not a
					// degraded phase.
					outcome.stopped = true
					state = StatePhaseComplete
					break
				}
				// Reflection exhausted its retries: the phase proceeds
				// degraded with the best candidate found so far.
				o.logger.Warn(genCtx, "phase %s degraded, reflection failed: %v", phase.Name, err)
				outcome.degraded = true
				state = StatePhaseComplete
				break
			}
			state = StateArchive

		case StateArchive:
			genCtx := logging.WithGeneration(ctx, generation)
			admitted, stopped, err := scheduler.ScoreAndArchive(genCtx, children, train)
			if err != nil {
				return outcome, err
			}
			o.logger.Debug(genCtx, "generation %d: %d/%d children admitted",
				generation, admitted, len(children))
			if stopped {
				outcome.stopped = true
				state = StatePhaseComplete
				break
			}
			state = StateBudgetCheck

		case StateBudgetCheck:
			if budget.ShouldStop() {
				outcome.stopped = true
				state = StatePhaseComplete
			} else if generation >= maxGenerations {
				state = StatePhaseComplete
			} else {
				state = StateEvaluate
			}
		}
	}

	best := archive.Best()
	outcome.best = best
	outcome.result = core.PhaseResult{
		Generations:   generation,
		CallsConsumed: budget.Used() - phaseStart,
		Degraded:      outcome.degraded,
	}
	if best != nil {
		outcome.result.BestGenome = best.Genome
		outcome.result.Score = o.finalScore(ctx, best, validation, evaluator, &outcome)
	}
	outcome.result.CallsConsumed = budget.Used() - phaseStart
	o.logger.Info(ctx, "phase %s complete: score=%.4f generations=%d calls=%d degraded=%v",
		phase.Name, outcome.result.Score, generation, outcome.result.CallsConsumed, outcome.degraded)
	return outcome, nil
}

// finalScore scores the phase winner on the held-out validation split when
// one exists and the budget still permits a full pass; otherwise the train
// mean stands.
func (o *Optimizer) finalScore(ctx context.Context, best *core.Candidate, validation core.ScenarioSet, evaluator *Evaluator, outcome *phaseOutcome) float64 {
	if len(validation) == 0 || outcome.stopped {
		return best.MeanScore()
	}

	results, stopped := evaluator.Evaluate(ctx, best, validation)
	if stopped || len(results) < len(validation) {
		o.logger.Debug(ctx, "validation pass incomplete, using train mean for phase score")
		return best.MeanScore()
	}

	var total float64
	for _, r := range results {
		total += r.Score
	}
	return total / float64(len(results))
}
