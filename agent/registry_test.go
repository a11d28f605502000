package agent

import (
	"testing"

	"github.com/hupe1980/protoforge/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistry_ListOrder(t *testing.T) {
	r := NewRegistry()

	list := r.List()
	require.Len(t, list, 5)
	ids := make([]ID, len(list))
	for i, s := range list {
		ids[i] = s.ID
		assert.NotEmpty(t, s.Name)
	}
	assert.Equal(t, []ID{Discovery, Structure, Design, Implementation, Refinement}, ids)
}

func TestNewRegistry_Deterministic(t *testing.T) {
	assert.Equal(t, NewRegistry(), NewRegistry())
}

func TestRegistry_Get(t *testing.T) {
	r := NewRegistry()

	d, err := r.Get(Discovery)
	require.NoError(t, err)
	assert.Equal(t, 0.9, d.Temperature)
	assert.Contains(t, d.Instruction, "serendipity")

	d, err = r.Get(Refinement)
	require.NoError(t, err)
	assert.Equal(t, DefaultTemperature, d.Temperature)
}

func TestRegistry_GetUnknown(t *testing.T) {
	_, err := NewRegistry().Get("marketing")
	assert.ErrorIs(t, err, core.ErrUnknownAgent)
}

func TestRegistry_InstructionsDistinct(t *testing.T) {
	seen := map[string]ID{}
	for _, d := range DefaultDefinitions() {
		prev, dup := seen[d.Instruction]
		assert.False(t, dup, "%s shares its instruction with %s", d.ID, prev)
		seen[d.Instruction] = d.ID
	}
}

func TestNewRegistryFromOverrides(t *testing.T) {
	temp := 0.2
	r, err := NewRegistryFromOverrides(map[ID]Override{
		Design: {Name: "Visual Design", Temperature: &temp},
	})
	require.NoError(t, err)

	d, err := r.Get(Design)
	require.NoError(t, err)
	assert.Equal(t, "Visual Design", d.Name)
	assert.Equal(t, 0.2, d.Temperature)
	assert.Equal(t, DefaultDefinitions()[2].Instruction, d.Instruction)

	// built-ins untouched by overrides on another registry
	base, _ := NewRegistry().Get(Design)
	assert.Equal(t, "Design & Experience", base.Name)
}

func TestNewRegistryFromOverrides_Invalid(t *testing.T) {
	_, err := NewRegistryFromOverrides(map[ID]Override{"qa": {Name: "QA"}})
	assert.ErrorIs(t, err, core.ErrConfiguration)

	hot := 3.5
	_, err = NewRegistryFromOverrides(map[ID]Override{Discovery: {Temperature: &hot}})
	assert.ErrorIs(t, err, core.ErrConfiguration)
}
