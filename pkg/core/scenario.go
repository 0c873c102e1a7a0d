package core

import (
	"math/rand"

	"github.com/XiaoConstantine/textevo-go/pkg/errors"
)

// Scenario is an opaque unit of behavior-driven evaluation. The optimizer
// never interprets its contents beyond handing it to the evaluate callback.
type Scenario struct {
	ID       string                 `json:"id"`
	Input    map[string]interface{} `json:"input"`
	Expected map[string]interface{} `json:"expected,omitempty"`
	Keywords []string               `json:"keywords,omitempty"`
}

// ScenarioSet is an ordered collection of scenarios.
type ScenarioSet []Scenario

// Validate checks the set is non-empty with unique, non-empty ids. An
// invalid scenario set is a configuration error and fatal to a run.
func (s ScenarioSet) Validate() error {
	if len(s) == 0 {
		return errors.New(errors.InvalidInput, "scenario set must not be empty")
	}
	seen := make(map[string]struct{}, len(s))
	for _, sc := range s {
		if sc.ID == "" {
			return errors.New(errors.InvalidInput, "scenario id must not be empty")
		}
		if _, dup := seen[sc.ID]; dup {
			return errors.WithFields(
				errors.New(errors.InvalidInput, "duplicate scenario id"),
				errors.Fields{"scenario": sc.ID},
			)
		}
		seen[sc.ID] = struct{}{}
	}
	return nil
}

// IDs returns the scenario ids in order.
func (s ScenarioSet) IDs() []string {
	ids := make([]string, len(s))
	for i, sc := range s {
		ids[i] = sc.ID
	}
	return ids
}

// Split partitions the set into disjoint, exhaustive train/validation
// subsets. The shuffle is seeded, so a given (set, seed, fraction) triple
// always produces the same partition. The train side always receives at
// least one scenario; with a single-scenario set validation is empty.
func (s ScenarioSet) Split(seed int64, trainFraction float64) (train, validation ScenarioSet) {
	shuffled := make(ScenarioSet, len(s))
	copy(shuffled, s)

	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	n := int(float64(len(shuffled)) * trainFraction)
	if n < 1 {
		n = 1
	}
	if n >= len(shuffled) && len(shuffled) > 1 {
		n = len(shuffled) - 1
	}

	return shuffled[:n], shuffled[n:]
}

// EvaluationResult records the outcome of running one candidate against one
// scenario. Err carries the final (post-retry) callback error for diagnostic
// purposes; failed evaluations still carry a zero Score rather than
// propagating fatally.
type EvaluationResult struct {
	CandidateID string  `json:"candidate_id"`
	ScenarioID  string  `json:"scenario_id"`
	Score       float64 `json:"score"`
	Feedback    string  `json:"feedback,omitempty"`
	Err         error   `json:"-"`
}

// Failed reports whether the scenario counts as failing for reflection
// purposes: anything short of a perfect score supplies learning signal.
func (r EvaluationResult) Failed() bool {
	return r.Score < 1.0
}
