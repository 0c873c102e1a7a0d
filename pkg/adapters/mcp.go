package adapters

import (
	models "github.com/XiaoConstantine/mcp-go/pkg/model"

	"github.com/XiaoConstantine/textevo-go/pkg/core"
	"github.com/XiaoConstantine/textevo-go/pkg/errors"
)

// MCPToolsAdapter maps the tool list returned by an MCP server's ListTools
// onto a genome, one "tool:<name>" component per tool description. Injecting
// an evolved genome yields a new tool list ready to advertise back to the
// model; names and input schemas pass through unchanged.
type MCPToolsAdapter struct{}

func (MCPToolsAdapter) Extract(tools []models.Tool) (*core.Genome, error) {
	if len(tools) == 0 {
		return nil, errors.New(errors.InvalidInput, "no MCP tools to extract")
	}

	components := make([]core.Component, len(tools))
	for i, tool := range tools {
		if tool.Name == "" {
			return nil, errors.New(errors.InvalidInput, "MCP tool with empty name")
		}
		components[i] = core.Component{
			Name:  toolComponentPrefix + tool.Name,
			Text:  tool.Description,
			Phase: "tool_descriptions",
		}
	}
	return core.NewGenome(components...)
}

func (MCPToolsAdapter) Inject(genome *core.Genome, tools []models.Tool) ([]models.Tool, error) {
	if genome == nil {
		return nil, errors.New(errors.InvalidInput, "genome is required")
	}

	out := make([]models.Tool, len(tools))
	copy(out, tools)
	for i := range out {
		if c, ok := genome.Component(toolComponentPrefix + out[i].Name); ok {
			out[i].Description = c.Text
		}
	}
	return out, nil
}
