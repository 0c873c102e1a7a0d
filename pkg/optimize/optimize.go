// Package optimize implements a framework-agnostic reflective text-evolution
// optimizer: it searches for genome text variants that improve scenario pass
// rate, using a caller-supplied reflection callback to analyze failures and
// propose mutations, Pareto-based multi-objective selection to keep
// non-dominated candidates, and a budget controller to bound cost.
//
// The engine never calls an agent runtime or a model provider directly; the
// evaluate and reflect callbacks are the only outward seams.
package optimize

import (
	"context"

	"github.com/XiaoConstantine/textevo-go/pkg/core"
)

// Optimize is the programmatic entry point: it runs a full optimization of
// the genome against the scenario set with the given callbacks and options.
func Optimize(ctx context.Context, genome *core.Genome, scenarios core.ScenarioSet, evaluate core.EvaluateFunc, reflect core.ReflectFunc, opts ...Option) (*core.OptimizationResult, error) {
	return New(opts...).Optimize(ctx, genome, scenarios, evaluate, reflect)
}
