package adapters

import (
	"github.com/XiaoConstantine/textevo-go/pkg/core"
	"github.com/XiaoConstantine/textevo-go/pkg/errors"
)

// NarrativeSpec is the role/goal/backstory trio many agent frameworks use to
// describe an agent.
type NarrativeSpec struct {
	Role      string
	Goal      string
	Backstory string
}

// Narrative component names.
const (
	ComponentRole      = "role"
	ComponentGoal      = "goal"
	ComponentBackstory = "backstory"

	phaseNarrative = "narrative"
)

// NarrativeAdapter maps a NarrativeSpec onto a three-component genome.
type NarrativeAdapter struct{}

// Extract builds the genome from the trio. All three fields become
// components even when empty, so the reflection engine can grow them.
func (NarrativeAdapter) Extract(spec NarrativeSpec) (*core.Genome, error) {
	return core.NewGenome(
		core.Component{Name: ComponentRole, Text: spec.Role, Phase: phaseNarrative},
		core.Component{Name: ComponentGoal, Text: spec.Goal, Phase: phaseNarrative},
		core.Component{Name: ComponentBackstory, Text: spec.Backstory, Phase: phaseNarrative},
	)
}

// Inject writes the genome's narrative components back into a copy of spec.
func (NarrativeAdapter) Inject(genome *core.Genome, spec NarrativeSpec) (NarrativeSpec, error) {
	if genome == nil {
		return spec, errors.New(errors.InvalidInput, "genome is required")
	}

	out := spec
	if c, ok := genome.Component(ComponentRole); ok {
		out.Role = c.Text
	}
	if c, ok := genome.Component(ComponentGoal); ok {
		out.Goal = c.Text
	}
	if c, ok := genome.Component(ComponentBackstory); ok {
		out.Backstory = c.Text
	}
	return out, nil
}

// InstructionAdapter maps a single consolidated instruction string onto a
// one-component genome.
type InstructionAdapter struct{}

// ComponentInstructions is the component name for consolidated instructions.
const ComponentInstructions = "instructions"

func (InstructionAdapter) Extract(instruction string) (*core.Genome, error) {
	return core.NewGenome(
		core.Component{Name: ComponentInstructions, Text: instruction, Phase: "instructions"},
	)
}

func (InstructionAdapter) Inject(genome *core.Genome, instruction string) (string, error) {
	if genome == nil {
		return instruction, errors.New(errors.InvalidInput, "genome is required")
	}
	if c, ok := genome.Component(ComponentInstructions); ok {
		return c.Text, nil
	}
	return instruction, nil
}

// PlanningSpec pairs an agent's instruction with its planning prompt, for
// frameworks that run an explicit planning step before acting.
type PlanningSpec struct {
	Instruction    string
	PlanningPrompt string
}

// ComponentPlanningPrompt is the component name for the planning prompt.
const ComponentPlanningPrompt = "planning_prompt"

// PlanningAdapter maps a PlanningSpec onto a two-component genome.
type PlanningAdapter struct{}

func (PlanningAdapter) Extract(spec PlanningSpec) (*core.Genome, error) {
	return core.NewGenome(
		core.Component{Name: ComponentInstructions, Text: spec.Instruction, Phase: "instructions"},
		core.Component{Name: ComponentPlanningPrompt, Text: spec.PlanningPrompt, Phase: "planning"},
	)
}

func (PlanningAdapter) Inject(genome *core.Genome, spec PlanningSpec) (PlanningSpec, error) {
	if genome == nil {
		return spec, errors.New(errors.InvalidInput, "genome is required")
	}

	out := spec
	if c, ok := genome.Component(ComponentInstructions); ok {
		out.Instruction = c.Text
	}
	if c, ok := genome.Component(ComponentPlanningPrompt); ok {
		out.PlanningPrompt = c.Text
	}
	return out, nil
}
