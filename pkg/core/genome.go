package core

import (
	"encoding/json"

	"github.com/XiaoConstantine/textevo-go/pkg/errors"
)

// Component is a single named text fragment of a genome, tagged with the
// optimization phase that owns it.
type Component struct {
	Name  string `json:"name"`
	Text  string `json:"text"`
	Phase string `json:"phase,omitempty"`
}

// Genome is a named collection of mutable text fragments parameterizing an
// agent's behavior. A Genome is immutable once constructed; WithComponentText
// returns a modified copy.
type Genome struct {
	components []Component
	index      map[string]int
}

// NewGenome constructs a genome from the given components. Component names
// must be unique and non-empty; component order is preserved.
func NewGenome(components ...Component) (*Genome, error) {
	if len(components) == 0 {
		return nil, errors.New(errors.InvalidInput, "genome requires at least one component")
	}

	g := &Genome{
		components: make([]Component, len(components)),
		index:      make(map[string]int, len(components)),
	}
	for i, c := range components {
		if c.Name == "" {
			return nil, errors.New(errors.InvalidInput, "genome component name must not be empty")
		}
		if _, exists := g.index[c.Name]; exists {
			return nil, errors.WithFields(
				errors.New(errors.InvalidInput, "duplicate genome component"),
				errors.Fields{"component": c.Name},
			)
		}
		g.components[i] = c
		g.index[c.Name] = i
	}
	return g, nil
}

// MustNewGenome is NewGenome that panics on error, for fixtures and tests.
func MustNewGenome(components ...Component) *Genome {
	g, err := NewGenome(components...)
	if err != nil {
		panic(err)
	}
	return g
}

// Component returns the named component.
func (g *Genome) Component(name string) (Component, bool) {
	i, ok := g.index[name]
	if !ok {
		return Component{}, false
	}
	return g.components[i], true
}

// Components returns a copy of the component list in construction order.
func (g *Genome) Components() []Component {
	out := make([]Component, len(g.components))
	copy(out, g.components)
	return out
}

// ComponentNames returns the component names in construction order.
func (g *Genome) ComponentNames() []string {
	names := make([]string, len(g.components))
	for i, c := range g.components {
		names[i] = c.Name
	}
	return names
}

// WithComponentText returns a new genome identical to g except for the text
// of the named component.
func (g *Genome) WithComponentText(name, text string) (*Genome, error) {
	i, ok := g.index[name]
	if !ok {
		return nil, errors.WithFields(
			errors.New(errors.ResourceNotFound, "unknown genome component"),
			errors.Fields{"component": name},
		)
	}

	components := make([]Component, len(g.components))
	copy(components, g.components)
	components[i].Text = text
	return NewGenome(components...)
}

// TotalLength returns the combined length of all component texts. Shorter
// genomes win conciseness tie-breaks during selection.
func (g *Genome) TotalLength() int {
	total := 0
	for _, c := range g.components {
		total += len(c.Text)
	}
	return total
}

// Equal reports whether two genomes have identical components.
func (g *Genome) Equal(other *Genome) bool {
	if other == nil || len(g.components) != len(other.components) {
		return false
	}
	for i, c := range g.components {
		if other.components[i] != c {
			return false
		}
	}
	return true
}

// Diff returns the names of components whose text differs between g and
// other. Components present in only one genome are included.
func (g *Genome) Diff(other *Genome) []string {
	var changed []string
	for _, c := range g.components {
		oc, ok := other.Component(c.Name)
		if !ok || oc.Text != c.Text {
			changed = append(changed, c.Name)
		}
	}
	for _, oc := range other.components {
		if _, ok := g.index[oc.Name]; !ok {
			changed = append(changed, oc.Name)
		}
	}
	return changed
}

// MarshalJSON serializes the genome as its ordered component list.
func (g *Genome) MarshalJSON() ([]byte, error) {
	return json.Marshal(g.components)
}

// UnmarshalJSON restores a genome from its ordered component list.
func (g *Genome) UnmarshalJSON(data []byte) error {
	var components []Component
	if err := json.Unmarshal(data, &components); err != nil {
		return err
	}
	restored, err := NewGenome(components...)
	if err != nil {
		return err
	}
	*g = *restored
	return nil
}
