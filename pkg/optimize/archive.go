package optimize

import (
	"sync"

	"github.com/XiaoConstantine/textevo-go/pkg/core"
	"github.com/XiaoConstantine/textevo-go/pkg/errors"
)

// ParetoArchive stores the non-dominated candidate set for one phase. All
// mutation happens under a single mutex; candidates themselves are immutable
// values, so readers of returned members never need locking.
type ParetoArchive struct {
	mu         sync.Mutex
	members    []*core.Candidate
	dimensions []string // scenario ids spanning the score space
}

// NewParetoArchive creates an empty archive over the given scenario
// dimensions.
func NewParetoArchive(dimensions []string) *ParetoArchive {
	dims := make([]string, len(dimensions))
	copy(dims, dimensions)
	return &ParetoArchive{dimensions: dims}
}

// Insert offers a candidate to the archive. Members dominated by the
// newcomer are removed; a newcomer dominated by any member is rejected.
// After every accepted insertion the non-domination invariant is re-checked;
// a violation indicates an implementation bug and is returned as a fatal
// DominationInvariantViolation error.
func (a *ParetoArchive) Insert(c *core.Candidate) (bool, error) {
	if c == nil {
		return false, errors.New(errors.InvalidInput, "cannot insert nil candidate")
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	for _, member := range a.members {
		if core.Dominates(member, c, a.dimensions) {
			return false, nil
		}
	}

	survivors := a.members[:0]
	for _, member := range a.members {
		if !core.Dominates(c, member, a.dimensions) {
			survivors = append(survivors, member)
		}
	}
	a.members = append(survivors, c)

	if err := a.verifyLocked(); err != nil {
		return true, err
	}
	return true, nil
}

// Best returns the member with the highest mean score, ties broken by
// shorter total genome text, then earlier creation. Nil when empty.
func (a *ParetoArchive) Best() *core.Candidate {
	a.mu.Lock()
	defer a.mu.Unlock()

	var best *core.Candidate
	for _, member := range a.members {
		if best == nil || betterCandidate(member, best) {
			best = member
		}
	}
	return best
}

// betterCandidate reports whether a should be preferred over b: higher mean
// score, then shorter genome text, then earlier creation time.
func betterCandidate(a, b *core.Candidate) bool {
	am, bm := a.MeanScore(), b.MeanScore()
	if am != bm {
		return am > bm
	}
	al, bl := a.TextLength(), b.TextLength()
	if al != bl {
		return al < bl
	}
	return a.CreatedAt.Before(b.CreatedAt)
}

// Members returns a snapshot of the archive contents.
func (a *ParetoArchive) Members() []*core.Candidate {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]*core.Candidate, len(a.members))
	copy(out, a.members)
	return out
}

// Size returns the number of archived candidates.
func (a *ParetoArchive) Size() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.members)
}

// Dimensions returns the scenario ids spanning the archive's score space.
func (a *ParetoArchive) Dimensions() []string {
	dims := make([]string, len(a.dimensions))
	copy(dims, a.dimensions)
	return dims
}

// Verify re-checks the non-domination invariant across the whole archive.
func (a *ParetoArchive) Verify() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.verifyLocked()
}

func (a *ParetoArchive) verifyLocked() error {
	for i, m1 := range a.members {
		for j, m2 := range a.members {
			if i == j {
				continue
			}
			if core.Dominates(m1, m2, a.dimensions) {
				return errors.WithFields(
					errors.New(errors.DominationInvariantViolation, "archive contains a dominated survivor"),
					errors.Fields{"dominated": m2.ID, "dominator": m1.ID},
				)
			}
		}
	}
	return nil
}
