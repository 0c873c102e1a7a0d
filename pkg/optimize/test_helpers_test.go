package optimize

import (
	"fmt"

	"github.com/XiaoConstantine/textevo-go/pkg/core"
)

// testGenomeOpt builds a minimal single-component genome for tests.
func testGenomeOpt() *core.Genome {
	return core.MustNewGenome(core.Component{Name: "instructions", Text: "You are an assistant.", Phase: "instructions"})
}

// makeScenarioSet builds n scenarios with ids s0..s(n-1).
func makeScenarioSet(n int) core.ScenarioSet {
	set := make(core.ScenarioSet, n)
	for i := range set {
		set[i] = core.Scenario{
			ID:       fmt.Sprintf("s%d", i),
			Input:    map[string]interface{}{"query": fmt.Sprintf("question %d", i)},
			Keywords: []string{"hello"},
		}
	}
	return set
}

// phasedTestGenome builds a genome with tool-description and instruction
// components tagged with their owning phases.
func phasedTestGenome() *core.Genome {
	return core.MustNewGenome(
		core.Component{Name: "tool:search", Text: "Searches the web.", Phase: "tool_descriptions"},
		core.Component{Name: "instructions", Text: "You are an assistant.", Phase: "instructions"},
	)
}
