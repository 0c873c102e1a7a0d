package core

// PhaseResult captures the outcome of one optimization phase.
type PhaseResult struct {
	BestGenome    *Genome `json:"best_genome"`
	Score         float64 `json:"score"`
	Generations   int     `json:"generations"`
	CallsConsumed int     `json:"calls_consumed"`
	Degraded      bool    `json:"degraded"`
}

// OptimizationResult is the final report of a run. It is always produced,
// even when individual scenarios or reflection calls failed along the way.
type OptimizationResult struct {
	RunID              string                 `json:"run_id"`
	PerPhase           map[string]PhaseResult `json:"per_phase"`
	TotalCallsConsumed int                    `json:"total_calls_consumed"`
	ElapsedSeconds     float64                `json:"elapsed_seconds"`
	DegradedPhases     []string               `json:"degraded_phases,omitempty"`
}

// BestGenome returns the best genome of the final phase, which carries the
// accumulated improvements of every earlier phase. Nil for an empty result.
func (r *OptimizationResult) BestGenome(phases []Phase) *Genome {
	for i := len(phases) - 1; i >= 0; i-- {
		if pr, ok := r.PerPhase[phases[i].Name]; ok && pr.BestGenome != nil {
			return pr.BestGenome
		}
	}
	return nil
}
