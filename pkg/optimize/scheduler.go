package optimize

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/XiaoConstantine/textevo-go/pkg/core"
	"github.com/XiaoConstantine/textevo-go/pkg/logging"
)

// SchedulerConfig controls parent selection for one generation.
type SchedulerConfig struct {
	ParentsPerGeneration int     `json:"parents_per_generation"` // Default: 2
	DiversityPenalty     float64 `json:"diversity_penalty"`      // Default: 0.2
}

// DefaultSchedulerConfig returns the default scheduler configuration.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		ParentsPerGeneration: 2,
		DiversityPenalty:     0.2,
	}
}

// MutationScheduler drives one generation: it pulls parents from the Pareto
// archive, requests mutated genomes from the reflection engine, submits the
// children to the evaluator and returns the scored candidates.
type MutationScheduler struct {
	config    SchedulerConfig
	archive   *ParetoArchive
	engine    *ReflectionEngine
	evaluator *Evaluator
	logger    *logging.Logger

	mu              sync.Mutex
	selectionCounts map[string]int
}

// NewMutationScheduler wires a scheduler to an archive, reflection engine
// and evaluator for one phase.
func NewMutationScheduler(config SchedulerConfig, archive *ParetoArchive, engine *ReflectionEngine, evaluator *Evaluator) *MutationScheduler {
	if config.ParentsPerGeneration <= 0 {
		config.ParentsPerGeneration = DefaultSchedulerConfig().ParentsPerGeneration
	}
	return &MutationScheduler{
		config:          config,
		archive:         archive,
		engine:          engine,
		evaluator:       evaluator,
		logger:          logging.GetLogger(),
		selectionCounts: make(map[string]int),
	}
}

// SelectParents picks up to n parents from the archive. Ranking is mean
// score down-weighted by how often a candidate has already been chosen,
// which keeps the search from collapsing onto a single lineage. Ties break
// by higher raw mean, then shorter genome text, then earlier creation.
func (s *MutationScheduler) SelectParents(n int) []*core.Candidate {
	members := s.archive.Members()
	if len(members) == 0 {
		return nil
	}
	if n > len(members) {
		n = len(members)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	weighted := func(c *core.Candidate) float64 {
		return c.MeanScore() - s.config.DiversityPenalty*math.Log1p(float64(s.selectionCounts[c.ID]))
	}

	sort.SliceStable(members, func(i, j int) bool {
		wi, wj := weighted(members[i]), weighted(members[j])
		if wi != wj {
			return wi > wj
		}
		mi, mj := members[i].MeanScore(), members[j].MeanScore()
		if mi != mj {
			return mi > mj
		}
		li, lj := members[i].TextLength(), members[j].TextLength()
		if li != lj {
			return li < lj
		}
		return members[i].CreatedAt.Before(members[j].CreatedAt)
	})

	parents := members[:n]
	for _, p := range parents {
		s.selectionCounts[p.ID]++
	}
	return parents
}

// SelectionCount returns how often a candidate has been chosen as parent.
func (s *MutationScheduler) SelectionCount(candidateID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectionCounts[candidateID]
}

// CollectFailures evaluates each parent on the minibatch and returns its
// failing results, keyed by parent id. The stopped flag reports budget
// refusal mid-collection.
func (s *MutationScheduler) CollectFailures(ctx context.Context, parents []*core.Candidate, batch core.ScenarioSet) (map[string][]core.EvaluationResult, bool) {
	failures := make(map[string][]core.EvaluationResult, len(parents))
	for _, parent := range parents {
		results, stopped := s.evaluator.Evaluate(ctx, parent, batch)
		for _, r := range results {
			if r.Failed() {
				failures[parent.ID] = append(failures[parent.ID], r)
			}
		}
		if stopped {
			return failures, true
		}
	}
	return failures, false
}

// ProposeChildren asks the reflection engine for mutations of each parent
// and wraps the proposals as unscored candidates of the given generation.
func (s *MutationScheduler) ProposeChildren(ctx context.Context, phase core.Phase, parents []*core.Candidate, failures map[string][]core.EvaluationResult, generation int) ([]*core.Candidate, error) {
	var children []*core.Candidate
	for _, parent := range parents {
		genomes, err := s.engine.Propose(ctx, parent, failures[parent.ID], phase)
		if err != nil {
			return children, err
		}
		for _, genome := range genomes {
			children = append(children, core.NewCandidate(genome, parent.ID, generation))
		}
	}
	return children, nil
}

// ScoreAndArchive fully evaluates each child on the train set and offers it
// to the archive. Dominated children are discarded. Returns the number of
// admitted candidates, the budget-stop flag, and any fatal archive error.
func (s *MutationScheduler) ScoreAndArchive(ctx context.Context, children []*core.Candidate, train core.ScenarioSet) (int, bool, error) {
	admitted := 0
	for _, child := range children {
		results, stopped := s.evaluator.Evaluate(ctx, child, train)
		if stopped {
			return admitted, true, nil
		}
		scored := applyResults(child, results)

		ok, err := s.archive.Insert(scored)
		if err != nil {
			return admitted, false, err
		}
		if ok {
			admitted++
			s.logger.Debug(ctx, "admitted candidate %s (mean=%.4f) to archive", scored.ID, scored.MeanScore())
		} else {
			s.logger.Debug(ctx, "rejected dominated candidate %s", scored.ID)
		}
	}
	return admitted, false, nil
}
