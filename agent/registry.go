package agent

import (
	"fmt"

	"github.com/hupe1980/protoforge/core"
)

// Summary is the public listing entry of an agent.
type Summary struct {
	ID   ID     `json:"id"`
	Name string `json:"name"`
}

// Override replaces selected fields of a built-in definition. Zero values
// keep the built-in value.
type Override struct {
	Name        string   `yaml:"name"`
	Instruction string   `yaml:"instruction"`
	Temperature *float64 `yaml:"temperature"`
}

// Registry is an ordered, read-only mapping from ID to Definition. It is safe
// for concurrent use because nothing mutates it after construction.
type Registry struct {
	order []ID
	defs  map[ID]Definition
}

// NewRegistry builds the registry from DefaultDefinitions.
func NewRegistry() *Registry {
	r, _ := newRegistry(DefaultDefinitions())
	return r
}

// NewRegistryFromOverrides builds the registry from DefaultDefinitions with
// the given overrides applied. Overrides for unknown identifiers are a
// configuration error.
func NewRegistryFromOverrides(overrides map[ID]Override) (*Registry, error) {
	defs := DefaultDefinitions()
	index := make(map[ID]int, len(defs))
	for i, d := range defs {
		index[d.ID] = i
	}

	for id, o := range overrides {
		i, ok := index[id]
		if !ok {
			return nil, core.Errorf(core.KindConfiguration, "agent.overrides", "unknown agent %q", id)
		}
		if o.Name != "" {
			defs[i].Name = o.Name
		}
		if o.Instruction != "" {
			defs[i].Instruction = o.Instruction
		}
		if o.Temperature != nil {
			if *o.Temperature < 0 || *o.Temperature > 2 {
				return nil, core.Errorf(core.KindConfiguration, "agent.overrides",
					"temperature for %q out of range [0,2]: %v", id, *o.Temperature)
			}
			defs[i].Temperature = *o.Temperature
		}
	}

	return newRegistry(defs)
}

func newRegistry(defs []Definition) (*Registry, error) {
	r := &Registry{
		order: make([]ID, 0, len(defs)),
		defs:  make(map[ID]Definition, len(defs)),
	}
	for _, d := range defs {
		if _, dup := r.defs[d.ID]; dup {
			return nil, fmt.Errorf("duplicate agent %q", d.ID)
		}
		r.order = append(r.order, d.ID)
		r.defs[d.ID] = d
	}
	return r, nil
}

// Get returns the definition registered under id.
func (r *Registry) Get(id ID) (Definition, error) {
	d, ok := r.defs[id]
	if !ok {
		return Definition{}, core.Errorf(core.KindUnknownAgent, "agent.get", "agent %q is not registered", id)
	}
	return d, nil
}

// List returns identifier and display name of every agent in pipeline order.
func (r *Registry) List() []Summary {
	out := make([]Summary, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, Summary{ID: id, Name: r.defs[id].Name})
	}
	return out
}

// Len returns the number of registered agents.
func (r *Registry) Len() int { return len(r.order) }
