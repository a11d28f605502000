package pipeline

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/hupe1980/protoforge/agent"
	"github.com/hupe1980/protoforge/core"
	"github.com/hupe1980/protoforge/logging"
	"github.com/hupe1980/protoforge/model"
)

// Invoker executes one model call. *model.Adapter implements it.
type Invoker interface {
	Invoke(ctx context.Context, call model.Call) (string, error)
}

// Options configures an Engine.
type Options struct {
	// Logger receives stage and run entries. Defaults to NoOpLogger.
	Logger logging.Logger
	// StageTimeout bounds every model call. Zero disables the bound.
	StageTimeout time.Duration
	// MaxConcurrentRuns limits simultaneous runs. Zero means unlimited.
	MaxConcurrentRuns int64
	// Callbacks observe the run lifecycle. Optional.
	Callbacks *CallbackManager
	// NewRunID generates run identifiers. Defaults to core.NewID.
	NewRunID func() string
}

// Engine executes a Definition.
type Engine struct {
	def      *Definition
	registry *agent.Registry
	invoker  Invoker
	sem      *semaphore.Weighted
	opts     Options
}

// New creates an Engine. The definition must cover the five stages in order.
func New(def *Definition, registry *agent.Registry, invoker Invoker, optFns ...func(o *Options)) (*Engine, error) {
	if def == nil {
		def = NewDefinition()
	}
	if err := def.Validate(); err != nil {
		return nil, core.NewError(core.KindConfiguration, "pipeline.new", err)
	}
	if registry == nil {
		return nil, core.Errorf(core.KindConfiguration, "pipeline.new", "agent registry is required")
	}
	if invoker == nil {
		return nil, core.Errorf(core.KindConfiguration, "pipeline.new", "model invoker is required")
	}
	for _, st := range def.Steps() {
		if _, err := registry.Get(st.Stage.AgentID()); err != nil {
			return nil, core.NewError(core.KindConfiguration, "pipeline.new", err)
		}
	}

	opts := Options{
		Logger:   logging.NoOpLogger{},
		NewRunID: core.NewID,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	opts.Logger = logging.OrNoOp(opts.Logger)
	if opts.Callbacks == nil {
		opts.Callbacks = NewCallbackManager()
	}
	if opts.NewRunID == nil {
		opts.NewRunID = core.NewID
	}

	e := &Engine{def: def, registry: registry, invoker: invoker, opts: opts}
	if opts.MaxConcurrentRuns > 0 {
		e.sem = semaphore.NewWeighted(opts.MaxConcurrentRuns)
	}
	return e, nil
}

// Callbacks returns the engine's callback manager.
func (e *Engine) Callbacks() *CallbackManager { return e.opts.Callbacks }

// Definition returns the chain the engine executes.
func (e *Engine) Definition() *Definition { return e.def }

// Run executes the full chain for input under a fresh run id.
func (e *Engine) Run(ctx context.Context, input string) State {
	return e.RunWithID(ctx, e.opts.NewRunID(), input)
}

// RunWithID executes the full chain for input. The returned State is either
// done or halted; Run never returns a running State.
func (e *Engine) RunWithID(ctx context.Context, runID, input string) State {
	state := NewState(runID, input)
	log := e.runLogger(runID)
	start := time.Now()

	if e.sem != nil {
		if err := e.sem.Acquire(ctx, 1); err != nil {
			state = state.fail(StageDiscovery, core.NewError(core.KindProvider, "pipeline.run", err))
			e.fire(ctx, CallbackOnError, state, StageDiscovery)
			e.logRun(log, state, time.Since(start))
			return state
		}
		defer e.sem.Release(1)
	}

	for _, step := range e.def.Steps() {
		next, err := e.runStep(ctx, log, state, step)
		if err != nil {
			state = state.fail(step.Stage, err)
			e.fire(ctx, CallbackOnError, state, step.Stage)
			break
		}
		state = next
		e.fire(ctx, CallbackAfterStage, state, step.Stage)
	}

	e.logRun(log, state, time.Since(start))
	return state
}

func (e *Engine) runStep(ctx context.Context, log logging.Logger, state State, step Step) (State, error) {
	if err := ctx.Err(); err != nil {
		return state, core.NewError(core.KindProvider, "pipeline.stage", err)
	}

	def, err := e.registry.Get(step.Stage.AgentID())
	if err != nil {
		return state, err
	}

	msg, err := step.BuildContext(state)
	if err != nil {
		return state, core.NewError(core.KindConfiguration, "pipeline.stage", err)
	}

	if err := e.opts.Callbacks.ExecuteCallbacks(ctx, CallbackBeforeStage, &CallbackContext{
		RunID:   state.RunID,
		Stage:   step.Stage,
		State:   state,
		Context: msg,
	}); err != nil {
		return state, fmt.Errorf("before_stage callback: %w", err)
	}

	temperature := def.Temperature
	if step.Temperature != nil {
		temperature = *step.Temperature
	}

	callCtx := ctx
	if e.opts.StageTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, e.opts.StageTimeout)
		defer cancel()
	}

	start := time.Now()
	out, err := e.invoker.Invoke(callCtx, model.Call{
		Instruction:     def.Instruction,
		Messages:        []core.Content{core.NewUserText(msg)},
		Temperature:     temperature,
		MaxOutputTokens: step.MaxOutputTokens,
	})
	e.logStage(log, step.Stage, time.Since(start), err)
	if err != nil {
		return state, err
	}

	return state.complete(step.Stage, out)
}

func (e *Engine) fire(ctx context.Context, t CallbackType, state State, stage Stage) {
	cbCtx := &CallbackContext{RunID: state.RunID, Stage: stage, State: state}
	if se := state.Err(); se != nil {
		cbCtx.Err = se
	}
	// The state is already final for this step; observer errors are only logged.
	if err := e.opts.Callbacks.ExecuteCallbacks(context.WithoutCancel(ctx), t, cbCtx); err != nil {
		e.opts.Logger.Warn("pipeline.callback.error", "type", string(t), "stage", stage.String(), "run_id", state.RunID, "error", err.Error())
	}
}

func (e *Engine) runLogger(runID string) logging.Logger {
	if pl, ok := e.opts.Logger.(*logging.PipelineLogger); ok {
		return pl.WithComponent("pipeline").WithRun(runID)
	}
	return e.opts.Logger
}

func (e *Engine) logStage(log logging.Logger, stage Stage, dur time.Duration, err error) {
	if pl, ok := log.(*logging.PipelineLogger); ok {
		pl.LogStage(stage.String(), dur, err == nil, err)
		return
	}
	if err != nil {
		log.Error("pipeline.stage.failed", "stage", stage.String(), "duration", dur, "error", err.Error())
		return
	}
	log.Info("pipeline.stage.complete", "stage", stage.String(), "duration", dur)
}

func (e *Engine) logRun(log logging.Logger, state State, dur time.Duration) {
	completed := int(state.Current())
	if pl, ok := log.(*logging.PipelineLogger); ok {
		pl.LogRun(string(state.Status()), completed, dur)
		return
	}
	log.Info("pipeline.run.finished", "run_id", state.RunID, "status", string(state.Status()), "stages", completed, "duration", dur)
}
