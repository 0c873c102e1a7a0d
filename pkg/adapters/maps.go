package adapters

import (
	"sort"
	"strings"

	"github.com/XiaoConstantine/textevo-go/pkg/core"
	"github.com/XiaoConstantine/textevo-go/pkg/errors"
)

// Component name prefixes for map-backed adapters.
const (
	toolComponentPrefix   = "tool:"
	outputComponentPrefix = "output:"
)

// ToolDescriptionsAdapter maps a tool-name→description map onto a genome
// with one "tool:<name>" component per tool. Component order is the sorted
// tool names, so extraction is deterministic.
type ToolDescriptionsAdapter struct{}

func (ToolDescriptionsAdapter) Extract(tools map[string]string) (*core.Genome, error) {
	if len(tools) == 0 {
		return nil, errors.New(errors.InvalidInput, "no tool descriptions to extract")
	}

	names := make([]string, 0, len(tools))
	for name := range tools {
		names = append(names, name)
	}
	sort.Strings(names)

	components := make([]core.Component, len(names))
	for i, name := range names {
		components[i] = core.Component{
			Name:  toolComponentPrefix + name,
			Text:  tools[name],
			Phase: "tool_descriptions",
		}
	}
	return core.NewGenome(components...)
}

func (ToolDescriptionsAdapter) Inject(genome *core.Genome, tools map[string]string) (map[string]string, error) {
	if genome == nil {
		return nil, errors.New(errors.InvalidInput, "genome is required")
	}

	out := make(map[string]string, len(tools))
	for name, desc := range tools {
		if c, ok := genome.Component(toolComponentPrefix + name); ok {
			out[name] = c.Text
		} else {
			out[name] = desc
		}
	}
	return out, nil
}

// OutputFieldsAdapter maps an output-field→description map onto a genome
// with one "output:<field>" component per field.
type OutputFieldsAdapter struct{}

func (OutputFieldsAdapter) Extract(fields map[string]string) (*core.Genome, error) {
	if len(fields) == 0 {
		return nil, errors.New(errors.InvalidInput, "no output fields to extract")
	}

	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	components := make([]core.Component, len(names))
	for i, name := range names {
		components[i] = core.Component{
			Name:  outputComponentPrefix + name,
			Text:  fields[name],
			Phase: "output_descriptions",
		}
	}
	return core.NewGenome(components...)
}

func (OutputFieldsAdapter) Inject(genome *core.Genome, fields map[string]string) (map[string]string, error) {
	if genome == nil {
		return nil, errors.New(errors.InvalidInput, "genome is required")
	}

	out := make(map[string]string, len(fields))
	for name, desc := range fields {
		if c, ok := genome.Component(outputComponentPrefix + name); ok {
			out[name] = c.Text
		} else {
			out[name] = desc
		}
	}
	return out, nil
}

// ToolComponentName returns the genome component name for a tool.
func ToolComponentName(tool string) string {
	return toolComponentPrefix + tool
}

// IsToolComponent reports whether a component name belongs to a tool and
// returns the bare tool name.
func IsToolComponent(component string) (string, bool) {
	if strings.HasPrefix(component, toolComponentPrefix) {
		return strings.TrimPrefix(component, toolComponentPrefix), true
	}
	return "", false
}
