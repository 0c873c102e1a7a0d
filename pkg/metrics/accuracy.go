package metrics

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/XiaoConstantine/textevo-go/pkg/core"
)

// RunnerFunc produces the output map a genome yields for one scenario. It is
// the seam between scoring and whatever executes the genome: an agent
// runtime, a single model call, or the genome text itself.
type RunnerFunc func(ctx context.Context, genome *core.Genome, scenario core.Scenario) (map[string]interface{}, error)

// MetricFunc scores an actual output map against a scenario's expected map
// on [0, 1]. The feedback names what fell short so a reflection callback has
// something to act on.
type MetricFunc func(expected, actual map[string]interface{}) (float64, string)

// ExactMatch scores 1.0 when every expected field is present and deeply
// equal in the actual output, 0.0 otherwise.
func ExactMatch(expected, actual map[string]interface{}) (float64, string) {
	var mismatched []string
	for _, key := range sortedKeys(expected) {
		if actualValue, ok := actual[key]; !ok || !reflect.DeepEqual(expected[key], actualValue) {
			mismatched = append(mismatched, key)
		}
	}
	if len(mismatched) == 0 {
		return 1.0, ""
	}
	return 0.0, fmt.Sprintf("mismatched fields: %s", strings.Join(mismatched, ", "))
}

// F1Score averages the token-level F1 over the string fields the expected
// and actual maps share, with Unicode case folding. Fields with imperfect
// overlap are named in the feedback.
func F1Score(expected, actual map[string]interface{}) (float64, string) {
	var total float64
	var count int
	var weak []string

	for _, key := range sortedKeys(expected) {
		expectedStr, expectedOk := expected[key].(string)
		actualStr, actualOk := actual[key].(string)
		if !expectedOk || !actualOk {
			continue
		}
		f1 := tokenF1(expectedStr, actualStr)
		total += f1
		count++
		if f1 < 1.0 {
			weak = append(weak, key)
		}
	}

	if count == 0 {
		return 0.0, "no comparable string fields between expected and actual output"
	}
	score := total / float64(count)
	if len(weak) == 0 {
		return score, ""
	}
	return score, fmt.Sprintf("low token overlap on fields: %s", strings.Join(weak, ", "))
}

func tokenF1(expected, actual string) float64 {
	expectedTokens := strings.Fields(folder.String(expected))
	actualTokens := strings.Fields(folder.String(actual))

	if len(expectedTokens) == 0 && len(actualTokens) == 0 {
		return 1.0
	}
	if len(expectedTokens) == 0 || len(actualTokens) == 0 {
		return 0.0
	}

	overlap := overlapCount(expectedTokens, actualTokens)
	if overlap == 0 {
		return 0.0
	}
	precision := float64(overlap) / float64(len(actualTokens))
	recall := float64(overlap) / float64(len(expectedTokens))
	return 2 * precision * recall / (precision + recall)
}

func overlapCount(a, b []string) int {
	counts := make(map[string]int, len(a))
	for _, tok := range a {
		counts[tok]++
	}
	n := 0
	for _, tok := range b {
		if counts[tok] > 0 {
			counts[tok]--
			n++
		}
	}
	return n
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// MetricEvaluate builds an evaluate callback that runs the genome through
// run and scores the output against the scenario's expected map. Runner
// errors propagate unscored, so the evaluator's retry policy applies.
func MetricEvaluate(run RunnerFunc, metric MetricFunc) core.EvaluateFunc {
	return func(ctx context.Context, genome *core.Genome, scenario core.Scenario) (float64, string, error) {
		actual, err := run(ctx, genome, scenario)
		if err != nil {
			return 0.0, "", err
		}
		score, feedback := metric(scenario.Expected, actual)
		return score, feedback, nil
	}
}

// ExactMatchEvaluate builds an evaluate callback scoring by ExactMatch.
func ExactMatchEvaluate(run RunnerFunc) core.EvaluateFunc {
	return MetricEvaluate(run, ExactMatch)
}

// F1Evaluate builds an evaluate callback scoring by F1Score.
func F1Evaluate(run RunnerFunc) core.EvaluateFunc {
	return MetricEvaluate(run, F1Score)
}

// GenomeTextRunner is a RunnerFunc for direct text optimization: the
// genome's concatenated component text stands in for every expected field.
// It runs no agent and calls no model.
func GenomeTextRunner() RunnerFunc {
	return func(_ context.Context, genome *core.Genome, scenario core.Scenario) (map[string]interface{}, error) {
		var text strings.Builder
		for _, c := range genome.Components() {
			text.WriteString(c.Text)
			text.WriteString("\n")
		}
		out := make(map[string]interface{}, len(scenario.Expected))
		for key := range scenario.Expected {
			out[key] = text.String()
		}
		return out, nil
	}
}
