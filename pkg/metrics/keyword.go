package metrics

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/text/cases"

	"github.com/XiaoConstantine/textevo-go/pkg/core"
)

var folder = cases.Fold()

// KeywordCoverage scores how many of the keywords appear in the text, using
// Unicode case folding so "HELLO" matches "hello". The feedback names the
// missing keywords so a reflection callback has something to act on.
func KeywordCoverage(text string, keywords []string) (float64, string) {
	if len(keywords) == 0 {
		return 1.0, ""
	}

	folded := folder.String(text)
	var missing []string
	for _, kw := range keywords {
		if !strings.Contains(folded, folder.String(kw)) {
			missing = append(missing, kw)
		}
	}

	if len(missing) == 0 {
		return 1.0, ""
	}
	score := float64(len(keywords)-len(missing)) / float64(len(keywords))
	return score, fmt.Sprintf("missing keywords: %s", strings.Join(missing, ", "))
}

// KeywordEvaluate builds an evaluate callback that scores a genome's
// concatenated component text against each scenario's keyword list. It runs
// no agent and calls no model, which makes it suitable for smoke tests and
// dry runs of an optimization pipeline.
func KeywordEvaluate() core.EvaluateFunc {
	return func(_ context.Context, genome *core.Genome, scenario core.Scenario) (float64, string, error) {
		var text strings.Builder
		for _, c := range genome.Components() {
			text.WriteString(c.Text)
			text.WriteString("\n")
		}
		score, feedback := KeywordCoverage(text.String(), scenario.Keywords)
		return score, feedback, nil
	}
}
