package llms

import (
	"fmt"
	"strings"

	"github.com/XiaoConstantine/textevo-go/pkg/core"
)

// maxFailuresInPrompt caps how many failing scenarios the prompt lists; more
// adds tokens without adding signal.
const maxFailuresInPrompt = 8

// buildPrompt assembles the failure-analysis prompt for one component. The
// model is asked for the revised text only, so the response can be used
// verbatim as the mutated component.
func buildPrompt(component, text string, failures []core.EvaluationResult) string {
	var b strings.Builder

	b.WriteString("You are improving one text component of an AI agent's configuration.\n\n")
	fmt.Fprintf(&b, "Component name: %s\n", component)
	b.WriteString("Current text:\n")
	b.WriteString("<<<\n")
	b.WriteString(text)
	b.WriteString("\n>>>\n\n")

	if len(failures) > 0 {
		b.WriteString("The agent failed these evaluation scenarios with this feedback:\n")
		listed := failures
		if len(listed) > maxFailuresInPrompt {
			listed = listed[:maxFailuresInPrompt]
		}
		for i, f := range listed {
			fmt.Fprintf(&b, "%d. scenario %s (score %.2f)", i+1, f.ScenarioID, f.Score)
			if f.Feedback != "" {
				fmt.Fprintf(&b, ": %s", f.Feedback)
			}
			b.WriteString("\n")
		}
		if len(failures) > len(listed) {
			fmt.Fprintf(&b, "...and %d more failures with similar feedback.\n", len(failures)-len(listed))
		}
		b.WriteString("\n")
	}

	b.WriteString("Analyze why the current text leads to these failures and write an improved version.\n")
	b.WriteString("Keep what works, change what fails, and stay concise.\n")
	b.WriteString("Respond with the revised component text only: no preamble, no explanation, no code fences.\n")

	return b.String()
}
