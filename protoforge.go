// Package protoforge provides the high-level façade that wires the agent
// registry, the model adapter, the pipeline engine and the run stores into one
// value. Most applications interact with this package by:
//  1. Loading a config.Config (config.Load)
//  2. Creating a Protoforge via New (optionally injecting a model or stores)
//  3. Running the pipeline (RunPipeline / StartRun) or a single agent
//     (InvokeSingleAgent)
//
// A configuration failure during New does not abort construction. The
// instance stays usable in degraded mode: Agents still lists the registry and
// every operation that needs the model reports the configuration error.
package protoforge

import (
	"context"
	"fmt"
	"sync"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"

	"github.com/hupe1980/protoforge/agent"
	"github.com/hupe1980/protoforge/artifact"
	"github.com/hupe1980/protoforge/config"
	"github.com/hupe1980/protoforge/core"
	"github.com/hupe1980/protoforge/internal/util"
	"github.com/hupe1980/protoforge/invocation"
	"github.com/hupe1980/protoforge/logging"
	"github.com/hupe1980/protoforge/model"
	"github.com/hupe1980/protoforge/model/anthropic"
	"github.com/hupe1980/protoforge/model/openai"
	"github.com/hupe1980/protoforge/pipeline"
	"github.com/hupe1980/protoforge/session"
)

// Options configures a Protoforge instance.
type Options struct {
	// Model replaces the provider built from the config. Used by tests and
	// by embedders that bring their own client.
	Model model.Model
	// Stores default to in-memory implementations.
	SessionStore  session.Store
	ArtifactStore core.ArtifactStore
	// Logger defaults to NoOpLogger.
	Logger logging.Logger
	// Callbacks are registered on the engine in addition to the built-in
	// snapshot and artifact callbacks.
	Callbacks []pipeline.Callback
}

// Protoforge aggregates the registry, engine and single-agent service.
type Protoforge struct {
	cfg      config.Config
	opts     Options
	registry *agent.Registry
	model    model.Model
	engine   *pipeline.Engine
	service  *invocation.Service
	initErr  error

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates a Protoforge from cfg. A nil cfg uses config.Default.
func New(cfg *config.Config, optFns ...func(o *Options)) *Protoforge {
	if cfg == nil {
		d := config.Default()
		cfg = &d
	}
	opts := Options{
		SessionStore:  session.NewInMemoryStore(),
		ArtifactStore: artifact.NewInMemoryStore(),
		Logger:        logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	opts.Logger = logging.OrNoOp(opts.Logger)

	ctx, cancel := context.WithCancel(context.Background())
	p := &Protoforge{cfg: *cfg, opts: opts, baseCtx: ctx, cancel: cancel}

	registry, err := agent.NewRegistryFromOverrides(cfg.Agents)
	if err != nil {
		// Fall back to the built-in agents so listing still works.
		p.registry = agent.NewRegistry()
		p.initErr = asConfigError(err)
		return p
	}
	p.registry = registry

	if err := p.init(); err != nil {
		p.initErr = asConfigError(err)
		opts.Logger.Warn("protoforge.degraded", "error", p.initErr.Error())
	}
	return p
}

func (p *Protoforge) init() error {
	m := p.opts.Model
	if m == nil {
		var err error
		if m, err = NewModel(&p.cfg); err != nil {
			return err
		}
	}
	p.model = m

	adapter := model.NewAdapter(m, func(o *model.AdapterOptions) {
		o.ScrubProxyEnv = p.cfg.Provider.ScrubProxyEnv
		o.Logger = p.opts.Logger
	})

	cbs := pipeline.NewCallbackManager()
	save := pipeline.NewFunctionCallback(pipeline.CallbackAfterStage, p.saveSnapshot)
	cbs.RegisterCallback(save)
	cbs.RegisterCallback(pipeline.NewFunctionCallback(pipeline.CallbackOnError, p.saveSnapshot))
	cbs.RegisterCallback(pipeline.NewFunctionCallback(pipeline.CallbackAfterStage, p.savePrototype))
	for _, cb := range p.opts.Callbacks {
		cbs.RegisterCallback(cb)
	}

	engine, err := pipeline.New(pipeline.NewDefinition(), p.registry, adapter, func(o *pipeline.Options) {
		o.Logger = p.opts.Logger
		o.StageTimeout = p.cfg.Pipeline.StageTimeout
		o.MaxConcurrentRuns = p.cfg.Pipeline.MaxConcurrentRuns
		o.Callbacks = cbs
	})
	if err != nil {
		return err
	}
	p.engine = engine
	p.service = invocation.NewService(p.registry, adapter, func(o *invocation.Options) {
		o.Logger = p.opts.Logger
	})
	return nil
}

// NewModel builds the provider selected in cfg. Credentials are validated
// here; a missing or malformed key is a configuration error.
func NewModel(cfg *config.Config) (model.Model, error) {
	pc := cfg.Provider
	switch pc.Name {
	case config.ProviderOpenAI, "":
		return openai.NewModel(func(o *openai.Options) {
			if pc.Model != "" {
				o.Model = pc.Model
			}
			o.APIKey = pc.OpenAIAPIKey
			o.BaseURL = pc.BaseURL
			o.ProxyURL = pc.ProxyURL
			if pc.Timeout > 0 {
				o.Timeout = pc.Timeout
			}
		})
	case config.ProviderAnthropic:
		return anthropic.NewModel(func(o *anthropic.Options) {
			if pc.Model != "" {
				o.Model = anthropicsdk.Model(pc.Model)
			}
			o.APIKey = pc.AnthropicAPIKey
			o.BaseURL = pc.BaseURL
			o.ProxyURL = pc.ProxyURL
			if pc.Timeout > 0 {
				o.Timeout = pc.Timeout
			}
		})
	default:
		return nil, core.Errorf(core.KindConfiguration, "protoforge.model", "unknown provider %q", pc.Name)
	}
}

// Ready returns nil when the pipeline can run, or the configuration error
// that put the instance in degraded mode.
func (p *Protoforge) Ready() error { return p.initErr }

// ModelInfo describes the configured model. ok is false in degraded mode.
func (p *Protoforge) ModelInfo() (info model.Info, ok bool) {
	if p.model == nil {
		return model.Info{}, false
	}
	return p.model.Info(), true
}

// Config returns a copy of the configuration in use.
func (p *Protoforge) Config() config.Config { return p.cfg }

// Agents lists the registered agents in pipeline order.
func (p *Protoforge) Agents() []agent.Summary { return p.registry.List() }

// RunPipeline executes all five stages for input and returns the final
// state. A halted run returns its state together with the stage error.
func (p *Protoforge) RunPipeline(ctx context.Context, input string) (pipeline.State, error) {
	if err := p.unavailable(); err != nil {
		return pipeline.State{}, err
	}
	st := p.engine.Run(ctx, input)
	return st, stateErr(st)
}

// StartRun launches a pipeline run in the background and returns its id.
// Progress is observable through Run. The run is bound to the instance's
// lifetime, not to ctx.
func (p *Protoforge) StartRun(ctx context.Context, input string) (string, error) {
	if err := p.unavailable(); err != nil {
		return "", err
	}
	if err := p.baseCtx.Err(); err != nil {
		return "", fmt.Errorf("protoforge closed: %w", err)
	}

	runID := core.NewID()
	if err := p.opts.SessionStore.Save(pipeline.NewState(runID, input)); err != nil {
		return "", fmt.Errorf("save run: %w", err)
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.engine.RunWithID(p.baseCtx, runID, input)
	}()
	return runID, nil
}

// Run returns the latest snapshot of a run.
func (p *Protoforge) Run(runID string) (pipeline.State, error) {
	return p.opts.SessionStore.Get(runID)
}

// Runs lists all known runs.
func (p *Protoforge) Runs() ([]pipeline.State, error) {
	return p.opts.SessionStore.List()
}

// Prototype returns the HTML page generated by a finished run.
func (p *Protoforge) Prototype(runID string) ([]byte, error) {
	return p.opts.ArtifactStore.Get(runID, artifact.PrototypeID)
}

// InvokeSingleAgent runs one agent outside the pipeline.
func (p *Protoforge) InvokeSingleAgent(ctx context.Context, req invocation.Request) (invocation.Response, error) {
	if _, err := p.registry.Get(req.AgentID); err != nil {
		return invocation.Response{}, err
	}
	if err := p.unavailable(); err != nil {
		return invocation.Response{}, err
	}
	return p.service.InvokeOne(ctx, req)
}

// Close cancels background runs and waits for them to finish.
func (p *Protoforge) Close() error {
	p.cancel()
	p.wg.Wait()
	return nil
}

func (p *Protoforge) unavailable() error {
	if p.initErr != nil {
		return fmt.Errorf("pipeline unavailable: %w", p.initErr)
	}
	return nil
}

func (p *Protoforge) saveSnapshot(_ context.Context, c *pipeline.CallbackContext) error {
	return p.opts.SessionStore.Save(c.State)
}

func (p *Protoforge) savePrototype(_ context.Context, c *pipeline.CallbackContext) error {
	html, ok := c.State.Prototype()
	if !ok {
		return nil
	}
	return p.opts.ArtifactStore.Save(c.RunID, artifact.PrototypeID, []byte(util.ExtractHTML(html)))
}

func stateErr(st pipeline.State) error {
	if se := st.Err(); se != nil {
		return se
	}
	return nil
}

func asConfigError(err error) error {
	if core.KindOf(err) == core.KindConfiguration {
		return err
	}
	return core.NewError(core.KindConfiguration, "protoforge.new", err)
}
