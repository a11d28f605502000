package model

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hupe1980/protoforge/core"
	"github.com/hupe1980/protoforge/internal/envscope"
	"github.com/hupe1980/protoforge/logging"
)

// Call is one model invocation as issued by a pipeline stage or the
// single-agent service.
type Call struct {
	Instruction     string
	Messages        []core.Content
	Temperature     float64
	MaxOutputTokens int64
}

// AdapterOptions configures an Adapter.
type AdapterOptions struct {
	// ScrubProxyEnv clears proxy environment variables for the duration of
	// each call and restores them afterwards. Calls are serialized while the
	// variables are cleared.
	ScrubProxyEnv bool
	// Logger receives one entry per call. Defaults to NoOpLogger.
	Logger logging.Logger
}

// Adapter is the single gateway between orchestration code and a Model.
// It enforces sampling parameters, isolates the call from inherited proxy
// settings and maps failures to provider errors. No retries happen here.
type Adapter struct {
	model Model
	opts  AdapterOptions
}

// NewAdapter wraps m.
func NewAdapter(m Model, optFns ...func(o *AdapterOptions)) *Adapter {
	opts := AdapterOptions{
		ScrubProxyEnv: true,
		Logger:        logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	opts.Logger = logging.OrNoOp(opts.Logger)
	return &Adapter{model: m, opts: opts}
}

// Info describes the wrapped model.
func (a *Adapter) Info() Info { return a.model.Info() }

// Invoke runs the call and returns the generated text.
func (a *Adapter) Invoke(ctx context.Context, call Call) (string, error) {
	if len(call.Messages) == 0 {
		return "", core.Errorf(core.KindProvider, "model.invoke", "no messages supplied")
	}
	if call.MaxOutputTokens <= 0 {
		return "", core.Errorf(core.KindProvider, "model.invoke", "max output tokens must be positive, got %d", call.MaxOutputTokens)
	}

	req := Request{
		Instructions:    call.Instruction,
		Contents:        call.Messages,
		Temperature:     call.Temperature,
		MaxOutputTokens: call.MaxOutputTokens,
	}

	var resp Response
	generate := func() error {
		var err error
		resp, err = a.model.Generate(ctx, req)
		return err
	}

	start := time.Now()
	var err error
	if a.opts.ScrubProxyEnv {
		err = envscope.WithoutProxy(generate)
	} else {
		err = generate()
	}
	a.logCall(time.Since(start), err)

	if err != nil {
		var ce *core.Error
		if errors.As(err, &ce) {
			return "", err
		}
		return "", core.NewError(core.KindProvider, "model.invoke", err)
	}

	text := resp.Content.Text()
	if text == "" {
		return "", core.Errorf(core.KindProvider, "model.invoke", "empty response (finish reason %q)", resp.FinishReason)
	}
	return text, nil
}

// InvokeText is the single-message form of Invoke.
func (a *Adapter) InvokeText(ctx context.Context, instruction, userMessage string, temperature float64, maxOutputTokens int64) (string, error) {
	return a.Invoke(ctx, Call{
		Instruction:     instruction,
		Messages:        []core.Content{core.NewUserText(userMessage)},
		Temperature:     temperature,
		MaxOutputTokens: maxOutputTokens,
	})
}

func (a *Adapter) logCall(dur time.Duration, err error) {
	info := a.model.Info()
	name := fmt.Sprintf("%s/%s", info.Provider, info.Name)
	if l, ok := a.opts.Logger.(interface {
		LogLLMCall(string, time.Duration, bool, error)
	}); ok {
		l.LogLLMCall(name, dur, err == nil, err)
		return
	}
	if err != nil {
		a.opts.Logger.Error("model.call.error", "model", name, "duration", dur, "error", err.Error())
		return
	}
	a.opts.Logger.Debug("model.call.complete", "model", name, "duration", dur)
}
