package core

import "context"

// EvaluateFunc runs a candidate genome against a single scenario and returns
// a score in [0,1] plus free-form feedback. This is where the actual agent
// executes; the optimizer core never calls an agent runtime or a model
// provider directly. Implementations should honor ctx cancellation.
type EvaluateFunc func(ctx context.Context, genome *Genome, scenario Scenario) (score float64, feedback string, err error)

// ReflectFunc analyzes the failures of one genome component and proposes
// replacement text for it. component is the component name, text its current
// content. The returned text must be a proposal for that component only.
type ReflectFunc func(ctx context.Context, component, text string, failures []EvaluationResult) (proposed string, err error)
