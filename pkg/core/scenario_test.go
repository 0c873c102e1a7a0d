package core

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeScenarios(n int) ScenarioSet {
	set := make(ScenarioSet, n)
	for i := range set {
		set[i] = Scenario{
			ID:    fmt.Sprintf("s%d", i),
			Input: map[string]interface{}{"query": fmt.Sprintf("question %d", i)},
		}
	}
	return set
}

func TestScenarioSetValidate(t *testing.T) {
	t.Run("Valid set", func(t *testing.T) {
		assert.NoError(t, makeScenarios(3).Validate())
	})

	t.Run("Empty set is a configuration error", func(t *testing.T) {
		assert.Error(t, ScenarioSet{}.Validate())
	})

	t.Run("Empty id rejected", func(t *testing.T) {
		set := ScenarioSet{{ID: ""}}
		assert.Error(t, set.Validate())
	})

	t.Run("Duplicate id rejected", func(t *testing.T) {
		set := ScenarioSet{{ID: "a"}, {ID: "a"}}
		assert.Error(t, set.Validate())
	})
}

func TestScenarioSetSplit(t *testing.T) {
	t.Run("Disjoint and exhaustive", func(t *testing.T) {
		set := makeScenarios(10)
		train, val := set.Split(42, 0.8)

		assert.Len(t, train, 8)
		assert.Len(t, val, 2)

		seen := make(map[string]int)
		for _, s := range train {
			seen[s.ID]++
		}
		for _, s := range val {
			seen[s.ID]++
		}
		require.Len(t, seen, 10)
		for id, count := range seen {
			assert.Equal(t, 1, count, "scenario %s appears once", id)
		}
	})

	t.Run("Deterministic for a given seed", func(t *testing.T) {
		set := makeScenarios(20)
		train1, val1 := set.Split(7, 0.75)
		train2, val2 := set.Split(7, 0.75)
		assert.Equal(t, train1.IDs(), train2.IDs())
		assert.Equal(t, val1.IDs(), val2.IDs())
	})

	t.Run("Different seeds produce different partitions", func(t *testing.T) {
		set := makeScenarios(20)
		train1, _ := set.Split(1, 0.5)
		train2, _ := set.Split(2, 0.5)
		assert.NotEqual(t, train1.IDs(), train2.IDs())
	})

	t.Run("Train side never empty", func(t *testing.T) {
		set := makeScenarios(1)
		train, val := set.Split(3, 0.8)
		assert.Len(t, train, 1)
		assert.Empty(t, val)
	})

	t.Run("Validation kept non-empty for multi-scenario sets", func(t *testing.T) {
		set := makeScenarios(3)
		train, val := set.Split(3, 1.0)
		assert.Len(t, train, 2)
		assert.Len(t, val, 1)
	})
}

func TestEvaluationResultFailed(t *testing.T) {
	assert.True(t, EvaluationResult{Score: 0.0}.Failed())
	assert.True(t, EvaluationResult{Score: 0.99}.Failed())
	assert.False(t, EvaluationResult{Score: 1.0}.Failed())
}
