package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fullState(t *testing.T) State {
	t.Helper()
	s := NewState("run", "idea")
	var err error
	for _, st := range Stages() {
		s, err = s.complete(st, st.String()+"-out")
		require.NoError(t, err)
	}
	return s
}

func TestNewDefinition(t *testing.T) {
	def := NewDefinition()
	require.NoError(t, def.Validate())

	steps := def.Steps()
	require.Len(t, steps, 5)
	require.NotNil(t, steps[0].Temperature)
	assert.InDelta(t, 0.9, *steps[0].Temperature, 1e-9)
	for _, st := range steps[1:] {
		assert.Nil(t, st.Temperature)
	}
	assert.EqualValues(t, AnalysisTokenBudget, steps[0].MaxOutputTokens)
	assert.EqualValues(t, AnalysisTokenBudget, steps[2].MaxOutputTokens)
	assert.EqualValues(t, CodeTokenBudget, steps[3].MaxOutputTokens)
	assert.EqualValues(t, CodeTokenBudget, steps[4].MaxOutputTokens)
}

func TestDefinitionIsFreshPerCall(t *testing.T) {
	a := NewDefinition()
	b := NewDefinition()

	steps := a.Steps()
	*steps[0].Temperature = 1.5
	steps[1].MaxOutputTokens = 1

	assert.InDelta(t, 0.9, *a.Steps()[0].Temperature, 1e-9)
	assert.EqualValues(t, AnalysisTokenBudget, a.Steps()[1].MaxOutputTokens)
	assert.NotSame(t, a, b)
}

func TestBuildContext(t *testing.T) {
	s := fullState(t)
	def := NewDefinition()

	tests := []struct {
		stage Stage
		want  string
	}{
		{StageDiscovery, "idea"},
		{StageStructure, "Analysis:\ndiscovery-out"},
		{StageDesign, "Structure:\nstructure-out"},
		{StageImplementation, "Design:\ndesign-out\n\nStructure:\nstructure-out"},
		{StageRefinement, "Code:\nimplementation-out"},
	}
	for _, tt := range tests {
		t.Run(tt.stage.String(), func(t *testing.T) {
			step, ok := def.Step(tt.stage)
			require.True(t, ok)
			got, err := step.BuildContext(s)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuildContextSeesOnlyEarlierStages(t *testing.T) {
	step := Step{Stage: StageStructure, MaxOutputTokens: 1, ContextTemplate: "{{.design}}"}
	_, err := step.BuildContext(fullState(t))
	assert.Error(t, err)
}

func TestBuildContextKeepsOutputsVerbatim(t *testing.T) {
	s := NewState("run", "idea")
	var err error
	s, err = s.complete(StageDiscovery, "<b>{{ not a template }}</b> & more")
	require.NoError(t, err)

	step, _ := NewDefinition().Step(StageStructure)
	got, err := step.BuildContext(s)
	require.NoError(t, err)
	assert.Equal(t, "Analysis:\n<b>{{ not a template }}</b> & more", got)
}

func TestValidateRejectsBrokenDefinition(t *testing.T) {
	d := &Definition{steps: NewDefinition().Steps()[:3]}
	assert.Error(t, d.Validate())

	steps := NewDefinition().Steps()
	steps[1], steps[2] = steps[2], steps[1]
	assert.Error(t, (&Definition{steps: steps}).Validate())
}
