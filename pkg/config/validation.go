package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/XiaoConstantine/textevo-go/pkg/errors"
)

var validate = validator.New()

// Validate checks a configuration against its struct tags plus the cross-
// field rules the tags cannot express. Any violation is fatal.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New(errors.InvalidInput, "config is nil")
	}

	if err := validate.Struct(cfg); err != nil {
		if errs, ok := err.(validator.ValidationErrors); ok {
			return errors.WithFields(
				errors.New(errors.ValidationFailed, formatViolations(errs)),
				errors.Fields{"violations": len(errs)},
			)
		}
		return errors.Wrap(err, errors.ValidationFailed, "config validation failed")
	}

	// A custom tier table must still contain the configured tier.
	b := cfg.Optimizer.Budget
	if len(b.Tiers) > 0 && b.Tier != "" {
		if _, ok := b.Tiers[b.Tier]; !ok {
			return errors.WithFields(
				errors.New(errors.ValidationFailed, "configured tier missing from custom tier table"),
				errors.Fields{"tier": b.Tier},
			)
		}
	}
	return nil
}

func formatViolations(errs validator.ValidationErrors) string {
	messages := make([]string, 0, len(errs))
	for _, e := range errs {
		switch e.Tag() {
		case "required":
			messages = append(messages, fmt.Sprintf("%s is required", e.Namespace()))
		case "oneof":
			messages = append(messages, fmt.Sprintf("%s must be one of [%s]", e.Namespace(), e.Param()))
		case "min", "gt":
			messages = append(messages, fmt.Sprintf("%s must be at least %s", e.Namespace(), e.Param()))
		case "max", "lt":
			messages = append(messages, fmt.Sprintf("%s must be at most %s", e.Namespace(), e.Param()))
		default:
			messages = append(messages, fmt.Sprintf("%s failed %s validation", e.Namespace(), e.Tag()))
		}
	}
	return "config validation failed: " + strings.Join(messages, "; ")
}
