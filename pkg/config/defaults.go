package config

import "time"

// DefaultConfig returns the baseline configuration a file load starts from.
// The zero values for minibatch size and generations defer to the budget
// tier's policy at run time.
func DefaultConfig() *Config {
	return &Config{
		Optimizer: OptimizerConfig{
			Budget: BudgetConfig{
				Tier: "light",
			},
			Seed:                 42,
			TrainFraction:        0.8,
			ParentsPerGeneration: 2,
			DiversityPenalty:     0.2,
			ReflectionProposals:  2,
			CallTimeout:          2 * time.Minute,
			MaxGoroutines:        8,
		},
		Logging: LoggingConfig{
			Level: "INFO",
		},
		Store: StoreConfig{
			Path: "textevo.db",
		},
		Reflection: ReflectionConfig{
			Model:     "claude-sonnet-4-20250514",
			MaxTokens: 1024,
		},
	}
}
