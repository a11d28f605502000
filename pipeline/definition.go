package pipeline

import (
	"fmt"

	"github.com/hupe1980/protoforge/internal/util"
)

// Token budgets per stage family.
const (
	AnalysisTokenBudget = 1500
	CodeTokenBudget     = 4000
)

// Step describes how one stage is invoked.
type Step struct {
	Stage Stage
	// Temperature overrides the agent's default when non-nil.
	Temperature *float64
	// MaxOutputTokens bounds the reply length.
	MaxOutputTokens int64
	// ContextTemplate renders the stage's user message. It sees "input" and
	// the outputs of strictly earlier stages keyed by stage name.
	ContextTemplate string
}

// BuildContext renders the step's context message from s.
func (st Step) BuildContext(s State) (string, error) {
	vars := map[string]any{"input": s.Input}
	for _, prev := range Stages() {
		if prev >= st.Stage {
			break
		}
		vars[prev.String()] = s.Output(prev)
	}
	msg, err := util.RenderTemplate(st.ContextTemplate, vars)
	if err != nil {
		return "", fmt.Errorf("build %s context: %w", st.Stage, err)
	}
	return msg, nil
}

// Definition is the immutable description of the chain.
type Definition struct {
	steps []Step
}

// NewDefinition returns a fresh definition of the five-stage chain. Each
// call builds a new value, so callers never share mutable pipeline objects.
func NewDefinition() *Definition {
	discoveryTemp := 0.9
	return &Definition{steps: []Step{
		{
			Stage:           StageDiscovery,
			Temperature:     &discoveryTemp,
			MaxOutputTokens: AnalysisTokenBudget,
			ContextTemplate: "{{.input}}",
		},
		{
			Stage:           StageStructure,
			MaxOutputTokens: AnalysisTokenBudget,
			ContextTemplate: "Analysis:\n{{.discovery}}",
		},
		{
			Stage:           StageDesign,
			MaxOutputTokens: AnalysisTokenBudget,
			ContextTemplate: "Structure:\n{{.structure}}",
		},
		{
			Stage:           StageImplementation,
			MaxOutputTokens: CodeTokenBudget,
			ContextTemplate: "Design:\n{{.design}}\n\nStructure:\n{{.structure}}",
		},
		{
			Stage:           StageRefinement,
			MaxOutputTokens: CodeTokenBudget,
			ContextTemplate: "Code:\n{{.implementation}}",
		},
	}}
}

// Steps returns a copy of the steps in execution order.
func (d *Definition) Steps() []Step {
	out := make([]Step, len(d.steps))
	copy(out, d.steps)
	for i := range out {
		if t := out[i].Temperature; t != nil {
			v := *t
			out[i].Temperature = &v
		}
	}
	return out
}

// Step returns the step for stage.
func (d *Definition) Step(stage Stage) (Step, bool) {
	for _, st := range d.Steps() {
		if st.Stage == stage {
			return st, true
		}
	}
	return Step{}, false
}

// Validate checks that the chain covers every stage once, in order.
func (d *Definition) Validate() error {
	want := Stages()
	if len(d.steps) != len(want) {
		return fmt.Errorf("definition has %d steps, want %d", len(d.steps), len(want))
	}
	for i, st := range d.steps {
		if st.Stage != want[i] {
			return fmt.Errorf("step %d is %s, want %s", i, st.Stage, want[i])
		}
		if st.MaxOutputTokens <= 0 {
			return fmt.Errorf("step %s has no token budget", st.Stage)
		}
	}
	return nil
}
