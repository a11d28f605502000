package testutil

import (
	"fmt"

	"github.com/hupe1980/protoforge/agent"
	"github.com/hupe1980/protoforge/model"
)

// StubModelBuilder scripts a MockModel per agent.
type StubModelBuilder struct {
	registry *agent.Registry
	mock     *model.MockModel
}

// NewStubModel creates a builder bound to registry. A nil registry uses the
// default agent set.
func NewStubModel(registry *agent.Registry) *StubModelBuilder {
	if registry == nil {
		registry = agent.NewRegistry()
	}
	return &StubModelBuilder{registry: registry, mock: model.NewMockModel("stub", "mock")}
}

// Reply sets the canned reply of agent id (chainable).
func (b *StubModelBuilder) Reply(id agent.ID, text string) *StubModelBuilder {
	b.mock.AddResponse(b.instruction(id), text)
	return b
}

// Fail makes every call for agent id fail with err (chainable).
func (b *StubModelBuilder) Fail(id agent.ID, err error) *StubModelBuilder {
	b.mock.AddFailure(b.instruction(id), err)
	return b
}

// ReplyAll gives every registered agent the reply "<id> output" (chainable).
func (b *StubModelBuilder) ReplyAll() *StubModelBuilder {
	for _, s := range b.registry.List() {
		b.Reply(s.ID, fmt.Sprintf("%s output", s.ID))
	}
	return b
}

// Build returns the scripted model.
func (b *StubModelBuilder) Build() *model.MockModel { return b.mock }

// Adapter wraps the scripted model without touching the process environment.
func (b *StubModelBuilder) Adapter() *model.Adapter {
	return model.NewAdapter(b.mock, func(o *model.AdapterOptions) {
		o.ScrubProxyEnv = false
	})
}

func (b *StubModelBuilder) instruction(id agent.ID) string {
	def, err := b.registry.Get(id)
	if err != nil {
		panic(fmt.Sprintf("testutil: %v", err))
	}
	return def.Instruction
}
