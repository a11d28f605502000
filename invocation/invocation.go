// Package invocation runs one registered agent on its own, outside the
// pipeline, with caller-supplied context.
package invocation

import (
	"context"

	"github.com/hupe1980/protoforge/agent"
	"github.com/hupe1980/protoforge/core"
	"github.com/hupe1980/protoforge/logging"
	"github.com/hupe1980/protoforge/model"
)

// DefaultMaxOutputTokens is the reply budget for single-agent calls.
const DefaultMaxOutputTokens = 4000

// ContinuationMessage is sent as the final user message to every agent
// except discovery, which receives the user input itself.
const ContinuationMessage = "Proceed using the supplied context."

// Invoker executes one model call. *model.Adapter implements it.
type Invoker interface {
	Invoke(ctx context.Context, call model.Call) (string, error)
}

// Request selects an agent and supplies its input.
type Request struct {
	AgentID   agent.ID `json:"agent_id"`
	UserInput string   `json:"user_input"`
	Context   string   `json:"context"`
}

// Response is the agent's reply.
type Response struct {
	AgentName string `json:"agent_name"`
	Output    string `json:"response"`
}

// Options configures a Service.
type Options struct {
	Logger          logging.Logger
	MaxOutputTokens int64
}

// Service invokes single agents. It keeps no state between calls.
type Service struct {
	registry *agent.Registry
	invoker  Invoker
	opts     Options
}

// NewService creates a Service.
func NewService(registry *agent.Registry, invoker Invoker, optFns ...func(o *Options)) *Service {
	opts := Options{
		Logger:          logging.NoOpLogger{},
		MaxOutputTokens: DefaultMaxOutputTokens,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	opts.Logger = logging.OrNoOp(opts.Logger)
	if opts.MaxOutputTokens <= 0 {
		opts.MaxOutputTokens = DefaultMaxOutputTokens
	}
	return &Service{registry: registry, invoker: invoker, opts: opts}
}

// InvokeOne runs the agent named in req. An unknown agent id fails before
// any model call is made.
func (s *Service) InvokeOne(ctx context.Context, req Request) (Response, error) {
	def, err := s.registry.Get(req.AgentID)
	if err != nil {
		return Response{}, err
	}

	out, err := s.invoker.Invoke(ctx, model.Call{
		Instruction:     def.Instruction,
		Messages:        BuildMessages(req),
		Temperature:     def.Temperature,
		MaxOutputTokens: s.opts.MaxOutputTokens,
	})
	if err != nil {
		s.opts.Logger.Warn("invocation.failed", "agent", string(req.AgentID), "kind", string(core.KindOf(err)), "error", err.Error())
		return Response{}, err
	}

	s.opts.Logger.Debug("invocation.complete", "agent", string(req.AgentID), "chars", len(out))
	return Response{AgentName: def.Name, Output: out}, nil
}

// BuildMessages returns the user messages for req, in order.
func BuildMessages(req Request) []core.Content {
	msgs := make([]core.Content, 0, 2)
	if req.Context != "" {
		msgs = append(msgs, core.NewUserText("Context:\n"+req.Context))
	}
	final := ContinuationMessage
	if req.AgentID == agent.Discovery {
		final = req.UserInput
	}
	return append(msgs, core.NewUserText(final))
}
