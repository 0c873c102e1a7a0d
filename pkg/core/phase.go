package core

import (
	"github.com/XiaoConstantine/textevo-go/pkg/errors"
)

// Phase is an ordered optimization stage restricted to a subset of genome
// components. Phases execute strictly sequentially; a component may only be
// mutated during the phase that owns it.
type Phase struct {
	Name       string   `json:"name"`
	Components []string `json:"components"`
}

// Owns reports whether the phase owns the named component.
func (p Phase) Owns(component string) bool {
	for _, c := range p.Components {
		if c == component {
			return true
		}
	}
	return false
}

// ValidatePhases checks the phase/component mapping against a genome: phase
// names unique, every listed component present in the genome, no component
// owned by two phases. Violations are configuration errors and fatal.
func ValidatePhases(phases []Phase, genome *Genome) error {
	if len(phases) == 0 {
		return errors.New(errors.ValidationFailed, "at least one phase is required")
	}

	seenPhase := make(map[string]struct{}, len(phases))
	owner := make(map[string]string)
	for _, p := range phases {
		if p.Name == "" {
			return errors.New(errors.ValidationFailed, "phase name must not be empty")
		}
		if _, dup := seenPhase[p.Name]; dup {
			return errors.WithFields(
				errors.New(errors.ValidationFailed, "duplicate phase name"),
				errors.Fields{"phase": p.Name},
			)
		}
		seenPhase[p.Name] = struct{}{}

		if len(p.Components) == 0 {
			return errors.WithFields(
				errors.New(errors.ValidationFailed, "phase owns no components"),
				errors.Fields{"phase": p.Name},
			)
		}
		for _, c := range p.Components {
			if _, ok := genome.Component(c); !ok {
				return errors.WithFields(
					errors.New(errors.ValidationFailed, "phase references unknown genome component"),
					errors.Fields{"phase": p.Name, "component": c},
				)
			}
			if prev, taken := owner[c]; taken {
				return errors.WithFields(
					errors.New(errors.ValidationFailed, "component owned by two phases"),
					errors.Fields{"component": c, "phases": prev + "," + p.Name},
				)
			}
			owner[c] = p.Name
		}
	}
	return nil
}

// DefaultPhases derives a phase list from the genome's component phase tags,
// in first-appearance order. Untagged components are grouped into a single
// "default" phase appended last.
func DefaultPhases(genome *Genome) []Phase {
	var ordered []string
	grouped := make(map[string][]string)
	for _, c := range genome.Components() {
		tag := c.Phase
		if tag == "" {
			tag = "default"
		}
		if _, seen := grouped[tag]; !seen {
			ordered = append(ordered, tag)
		}
		grouped[tag] = append(grouped[tag], c.Name)
	}

	phases := make([]Phase, 0, len(ordered))
	for _, name := range ordered {
		phases = append(phases, Phase{Name: name, Components: grouped[name]})
	}
	return phases
}
