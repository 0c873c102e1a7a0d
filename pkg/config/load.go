package config

import (
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/XiaoConstantine/textevo-go/pkg/errors"
)

// EnvPrefix is the prefix of every environment override.
const EnvPrefix = "TEXTEVO_"

// Load builds a configuration from defaults, the first existing path, and
// environment overrides, in that order. A path that exists but fails to
// parse or validate is a fatal configuration error.
func Load(paths ...string) (*Config, error) {
	cfg := DefaultConfig()

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, errors.WithFields(
				errors.Wrap(err, errors.InvalidInput, "failed to read config file"),
				errors.Fields{"path": path},
			)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.WithFields(
				errors.Wrap(err, errors.InvalidInput, "failed to parse config file"),
				errors.Fields{"path": path},
			)
		}
		break
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides layers TEXTEVO_* environment variables over the file
// values. Unparseable numeric values are ignored rather than fatal; the
// validator catches out-of-range results.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv(EnvPrefix + "TIER"); v != "" {
		cfg.Optimizer.Budget.Tier = v
	}
	if v := os.Getenv(EnvPrefix + "MAX_METRIC_CALLS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Optimizer.Budget.MaxMetricCalls = n
		}
	}
	if v := os.Getenv(EnvPrefix + "MAX_FULL_EVALS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Optimizer.Budget.MaxFullEvals = n
		}
	}
	if v := os.Getenv(EnvPrefix + "MAX_ELAPSED"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Optimizer.Budget.MaxElapsed = d
		}
	}
	if v := os.Getenv(EnvPrefix + "SEED"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Optimizer.Seed = n
		}
	}
	if v := os.Getenv(EnvPrefix + "LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv(EnvPrefix + "STORE_PATH"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv(EnvPrefix + "ANTHROPIC_API_KEY"); v != "" {
		cfg.Reflection.APIKey = v
	}
	if v := os.Getenv(EnvPrefix + "REFLECTION_MODEL"); v != "" {
		cfg.Reflection.Model = v
	}
}
