// Package config loads and validates optimization run configuration from
// YAML files and environment variables.
package config

import (
	"time"

	"github.com/XiaoConstantine/textevo-go/pkg/logging"
	"github.com/XiaoConstantine/textevo-go/pkg/optimize"
)

// Config is the complete file-level configuration for an optimization run.
type Config struct {
	// Optimizer configuration
	Optimizer OptimizerConfig `yaml:"optimizer" validate:"required"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging,omitempty" validate:"omitempty"`

	// Artifact store configuration
	Store StoreConfig `yaml:"store,omitempty" validate:"omitempty"`

	// Reflection backend configuration
	Reflection ReflectionConfig `yaml:"reflection,omitempty" validate:"omitempty"`
}

// OptimizerConfig holds the run knobs.
type OptimizerConfig struct {
	// Budget bounds for the run
	Budget BudgetConfig `yaml:"budget,omitempty" validate:"omitempty"`

	// Seed for the data split and minibatch sampling
	Seed int64 `yaml:"seed,omitempty"`

	// Train share of the scenario split
	TrainFraction float64 `yaml:"train_fraction,omitempty" validate:"omitempty,gt=0,lt=1"`

	// Minibatch size; 0 takes the tier policy value
	MinibatchSize int `yaml:"minibatch_size,omitempty" validate:"min=0"`

	// Generations per phase; 0 takes the tier policy value
	MaxGenerations int `yaml:"max_generations,omitempty" validate:"min=0"`

	// Parents mutated each generation
	ParentsPerGeneration int `yaml:"parents_per_generation,omitempty" validate:"min=0"`

	// Down-weighting of repeatedly selected parents
	DiversityPenalty float64 `yaml:"diversity_penalty,omitempty" validate:"min=0"`

	// Skip reflection for all-passing candidates; nil keeps the default (true)
	SkipPerfectScore *bool `yaml:"skip_perfect_score,omitempty"`

	// Proposals requested per parent per generation
	ReflectionProposals int `yaml:"reflection_proposals,omitempty" validate:"min=0"`

	// Per-callback invocation timeout
	CallTimeout time.Duration `yaml:"call_timeout,omitempty" validate:"min=0"`

	// Evaluation worker pool size
	MaxGoroutines int `yaml:"max_goroutines,omitempty" validate:"min=0"`
}

// BudgetConfig mirrors the budget controller's precedence:
// max_metric_calls > max_full_evals > tier defaults.
type BudgetConfig struct {
	// Budget tier (light, medium, heavy)
	Tier string `yaml:"tier,omitempty" validate:"omitempty,oneof=light medium heavy"`

	// Hard cap on evaluate callback invocations
	MaxMetricCalls int `yaml:"max_metric_calls,omitempty" validate:"min=0"`

	// Cap expressed in full train-set evaluations
	MaxFullEvals int `yaml:"max_full_evals,omitempty" validate:"min=0"`

	// Optional wall-clock limit
	MaxElapsed time.Duration `yaml:"max_elapsed,omitempty" validate:"min=0"`

	// Custom tier policy table; replaces the built-in one when set
	Tiers map[string]TierPolicy `yaml:"tiers,omitempty" validate:"omitempty,dive"`
}

// TierPolicy is one row of a custom tier table.
type TierPolicy struct {
	MaxGenerations int `yaml:"max_generations" validate:"min=1"`
	MinibatchSize  int `yaml:"minibatch_size" validate:"min=1"`
	MaxMetricCalls int `yaml:"max_metric_calls" validate:"min=1"`
}

// LoggingConfig controls the global logger.
type LoggingConfig struct {
	// Log level (DEBUG, INFO, WARN, ERROR)
	Level string `yaml:"level,omitempty" validate:"omitempty,oneof=DEBUG INFO WARN ERROR"`

	// Optional log file; console output stays active alongside it
	File string `yaml:"file,omitempty"`
}

// StoreConfig locates the artifact database.
type StoreConfig struct {
	// SQLite database path; ":memory:" for an ephemeral store
	Path string `yaml:"path,omitempty"`

	// Agent name the results are stored under
	Agent string `yaml:"agent,omitempty"`
}

// ReflectionConfig configures the model-backed reflection callback.
type ReflectionConfig struct {
	// Provider API key; usually supplied via environment
	APIKey string `yaml:"api_key,omitempty"`

	// Model ID, e.g. claude-sonnet-4-20250514
	Model string `yaml:"model,omitempty"`

	// Maximum tokens per reflection response
	MaxTokens int `yaml:"max_tokens,omitempty" validate:"min=0"`
}

// Options translates the file configuration into optimizer options.
func (c *Config) Options() []optimize.Option {
	o := c.Optimizer
	opts := []optimize.Option{
		WithBudgetFrom(o.Budget),
	}
	if o.Seed != 0 {
		opts = append(opts, optimize.WithSeed(o.Seed))
	}
	if o.TrainFraction > 0 {
		opts = append(opts, optimize.WithTrainFraction(o.TrainFraction))
	}
	if o.MinibatchSize > 0 {
		opts = append(opts, optimize.WithMinibatchSize(o.MinibatchSize))
	}
	if o.MaxGenerations > 0 {
		opts = append(opts, optimize.WithMaxGenerations(o.MaxGenerations))
	}
	if o.ParentsPerGeneration > 0 {
		opts = append(opts, optimize.WithParentsPerGeneration(o.ParentsPerGeneration))
	}
	if o.DiversityPenalty > 0 {
		opts = append(opts, optimize.WithDiversityPenalty(o.DiversityPenalty))
	}
	if o.SkipPerfectScore != nil {
		opts = append(opts, optimize.WithSkipPerfectScore(*o.SkipPerfectScore))
	}
	if o.ReflectionProposals > 0 {
		opts = append(opts, optimize.WithReflectionMinibatch(o.ReflectionProposals))
	}
	if o.CallTimeout > 0 {
		opts = append(opts, optimize.WithCallTimeout(o.CallTimeout))
	}
	if o.MaxGoroutines > 0 {
		opts = append(opts, optimize.WithMaxGoroutines(o.MaxGoroutines))
	}
	return opts
}

// WithBudgetFrom converts the file-level budget block into the optimizer's
// budget option.
func WithBudgetFrom(b BudgetConfig) optimize.Option {
	budget := optimize.BudgetConfig{
		Tier:           optimize.Tier(b.Tier),
		MaxMetricCalls: b.MaxMetricCalls,
		MaxFullEvals:   b.MaxFullEvals,
		MaxElapsed:     b.MaxElapsed,
	}
	if len(b.Tiers) > 0 {
		budget.TierPolicies = make(map[optimize.Tier]optimize.TierPolicy, len(b.Tiers))
		for name, p := range b.Tiers {
			budget.TierPolicies[optimize.Tier(name)] = optimize.TierPolicy{
				MaxGenerations: p.MaxGenerations,
				MinibatchSize:  p.MinibatchSize,
				MaxMetricCalls: p.MaxMetricCalls,
			}
		}
	}
	return optimize.WithBudget(budget)
}

// ApplyLogging installs the configured global logger.
func (c *Config) ApplyLogging() error {
	outputs := []logging.Output{logging.NewConsoleOutput(true)}
	if c.Logging.File != "" {
		fileOut, err := logging.NewFileOutput(c.Logging.File)
		if err != nil {
			return err
		}
		outputs = append(outputs, fileOut)
	}
	logging.SetLogger(logging.NewLogger(logging.Config{
		Severity: logging.ParseSeverity(c.Logging.Level),
		Outputs:  outputs,
	}))
	return nil
}
