package optimize

import (
	"context"
	"time"

	"github.com/XiaoConstantine/textevo-go/pkg/core"
	"github.com/XiaoConstantine/textevo-go/pkg/errors"
	"github.com/XiaoConstantine/textevo-go/pkg/logging"
)

// ReflectionConfig controls how mutation proposals are requested from the
// caller-supplied reflect callback.
type ReflectionConfig struct {
	MaxProposals     int           `json:"max_proposals"`      // Reflection minibatch size. Default: 2
	MaxRetries       int           `json:"max_retries"`        // Default: 2
	RetryBackoff     time.Duration `json:"retry_backoff"`      // Default: 200ms, doubled per attempt
	CallTimeout      time.Duration `json:"call_timeout"`       // Default: 2m per callback invocation
	SkipPerfectScore bool          `json:"skip_perfect_score"` // Default: true
}

// DefaultReflectionConfig returns the default reflection configuration.
func DefaultReflectionConfig() ReflectionConfig {
	return ReflectionConfig{
		MaxProposals:     2,
		MaxRetries:       2,
		RetryBackoff:     200 * time.Millisecond,
		CallTimeout:      2 * time.Minute,
		SkipPerfectScore: true,
	}
}

// ReflectionEngine turns a candidate's failures into mutated genomes via the
// caller-supplied reflect callback. Proposals within one generation are
// sequential by construction: each call sees the same failure set, and the
// engine never proposes outside the active phase's components.
type ReflectionEngine struct {
	reflect core.ReflectFunc
	config  ReflectionConfig
	logger  *logging.Logger
}

// NewReflectionEngine creates a reflection engine around the callback.
func NewReflectionEngine(reflect core.ReflectFunc, config ReflectionConfig) *ReflectionEngine {
	if config.MaxProposals <= 0 {
		config.MaxProposals = DefaultReflectionConfig().MaxProposals
	}
	return &ReflectionEngine{
		reflect: reflect,
		config:  config,
		logger:  logging.GetLogger(),
	}
}

// Propose produces up to MaxProposals mutated genomes for the parent,
// restricted to the components owned by the active phase. With no failures
// and SkipPerfectScore set, the callback is never invoked; that is a
// contract, not an optimization. A proposal that would touch a component
// outside the phase is a fatal InvalidGenomeScope error. Repeated callback
// failures surface as a ReflectionFailed error so the orchestrator can mark
// the phase degraded.
func (e *ReflectionEngine) Propose(ctx context.Context, parent *core.Candidate, failures []core.EvaluationResult, phase core.Phase) ([]*core.Genome, error) {
	if len(failures) == 0 && e.config.SkipPerfectScore {
		e.logger.Debug(ctx, "candidate %s has no failing scenarios, skipping reflection", parent.ID)
		return nil, nil
	}

	targets := phase.Components
	if len(targets) == 0 {
		return nil, errors.WithFields(
			errors.New(errors.InvalidGenomeScope, "phase owns no components"),
			errors.Fields{"phase": phase.Name},
		)
	}

	var proposals []*core.Genome
	for i := 0; i < e.config.MaxProposals; i++ {
		target := targets[i%len(targets)]
		component, ok := parent.Genome.Component(target)
		if !ok {
			return nil, errors.WithFields(
				errors.New(errors.InvalidGenomeScope, "phase component missing from genome"),
				errors.Fields{"phase": phase.Name, "component": target},
			)
		}

		proposed, err := e.callWithRetry(ctx, target, component.Text, failures)
		if err != nil {
			// A cancellation is a run-level stop, not a callback failure;
			// it keeps its Canceled code so the orchestrator can tell the
			// two apart.
			if errors.CodeOf(err) == errors.Canceled {
				return proposals, err
			}
			return proposals, errors.WithFields(
				errors.Wrap(err, errors.ReflectionFailed, "reflection callback exhausted retries"),
				errors.Fields{"candidate": parent.ID, "component": target},
			)
		}
		if proposed == "" || proposed == component.Text {
			e.logger.Debug(ctx, "reflection proposed no change for component %s", target)
			continue
		}

		mutated, err := parent.Genome.WithComponentText(target, proposed)
		if err != nil {
			return proposals, err
		}
		if err := validateScope(parent.Genome, mutated, phase); err != nil {
			return proposals, err
		}
		proposals = append(proposals, mutated)
	}

	return proposals, nil
}

// callWithRetry invokes the reflect callback with bounded retry and a
// per-call timeout.
func (e *ReflectionEngine) callWithRetry(ctx context.Context, component, text string, failures []core.EvaluationResult) (string, error) {
	var lastErr error
	backoff := e.config.RetryBackoff
	for attempt := 0; attempt <= e.config.MaxRetries; attempt++ {
		if err := errors.CheckContext(ctx, "reflection"); err != nil {
			return "", err
		}

		callCtx := ctx
		if e.config.CallTimeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, e.config.CallTimeout)
			proposed, err := e.reflect(callCtx, component, text, failures)
			cancel()
			if err == nil {
				return proposed, nil
			}
			lastErr = err
		} else {
			proposed, err := e.reflect(callCtx, component, text, failures)
			if err == nil {
				return proposed, nil
			}
			lastErr = err
		}

		if attempt < e.config.MaxRetries {
			e.logger.Debug(ctx, "reflection failure on component %s (attempt %d): %v", component, attempt+1, lastErr)
			time.Sleep(backoff)
			backoff *= 2
		}
	}
	return "", lastErr
}

// validateScope checks that a mutated genome differs from its parent only in
// components owned by the active phase. Any out-of-scope difference is an
// InvalidGenomeScope programming error and fatal.
func validateScope(parent, mutated *core.Genome, phase core.Phase) error {
	for _, changed := range parent.Diff(mutated) {
		if !phase.Owns(changed) {
			return errors.WithFields(
				errors.New(errors.InvalidGenomeScope, "mutation touches component outside active phase"),
				errors.Fields{"phase": phase.Name, "component": changed},
			)
		}
	}
	return nil
}
