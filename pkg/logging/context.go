package logging

import "context"

type contextKey string

const (
	runIDKey      contextKey = "textevo_run_id"
	phaseKey      contextKey = "textevo_phase"
	generationKey contextKey = "textevo_generation"
)

// WithRunID annotates a context with the optimization run identifier.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey, runID)
}

// GetRunID extracts the run identifier from a context.
func GetRunID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(runIDKey).(string)
	return id, ok
}

// WithPhase annotates a context with the active phase name.
func WithPhase(ctx context.Context, phase string) context.Context {
	return context.WithValue(ctx, phaseKey, phase)
}

// GetPhase extracts the active phase name from a context.
func GetPhase(ctx context.Context) (string, bool) {
	phase, ok := ctx.Value(phaseKey).(string)
	return phase, ok
}

// WithGeneration annotates a context with the current generation number.
func WithGeneration(ctx context.Context, generation int) context.Context {
	return context.WithValue(ctx, generationKey, generation)
}

// GetGeneration extracts the generation number from a context.
func GetGeneration(ctx context.Context) (int, bool) {
	gen, ok := ctx.Value(generationKey).(int)
	return gen, ok
}
