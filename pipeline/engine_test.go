package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/protoforge/agent"
	"github.com/hupe1980/protoforge/core"
	"github.com/hupe1980/protoforge/internal/testutil"
	"github.com/hupe1980/protoforge/model"
)

func newEngine(t *testing.T, stub *testutil.StubModelBuilder, optFns ...func(o *Options)) *Engine {
	t.Helper()
	e, err := New(NewDefinition(), agent.NewRegistry(), stub.Adapter(), optFns...)
	require.NoError(t, err)
	return e
}

func TestEngineRunCompletes(t *testing.T) {
	stub := testutil.NewStubModel(nil).ReplyAll()
	e := newEngine(t, stub)

	s := e.RunWithID(context.Background(), "run-1", "a habit tracker for cats")

	assert.True(t, s.Done())
	assert.Nil(t, s.Err())
	assert.Equal(t, "run-1", s.RunID)
	for _, st := range Stages() {
		assert.Equal(t, string(st.AgentID())+" output", s.Output(st))
	}
	html, ok := s.Prototype()
	assert.True(t, ok)
	assert.Equal(t, "refinement output", html)
	assert.Equal(t, 5, stub.Build().CallCount())
}

func TestEngineSamplingParameters(t *testing.T) {
	stub := testutil.NewStubModel(nil).ReplyAll()
	e := newEngine(t, stub)
	e.Run(context.Background(), "idea")

	reqs := stub.Build().Requests()
	require.Len(t, reqs, 5)

	want := []struct {
		temp   float64
		tokens int64
	}{
		{0.9, 1500}, {0.7, 1500}, {0.7, 1500}, {0.7, 4000}, {0.7, 4000},
	}
	reg := agent.NewRegistry()
	for i, st := range Stages() {
		def, err := reg.Get(st.AgentID())
		require.NoError(t, err)
		assert.Equal(t, def.Instruction, reqs[i].Instructions)
		assert.InDelta(t, want[i].temp, reqs[i].Temperature, 1e-9, st.String())
		assert.Equal(t, want[i].tokens, reqs[i].MaxOutputTokens, st.String())
		require.Len(t, reqs[i].Contents, 1)
		assert.Equal(t, core.RoleUser, reqs[i].Contents[0].Role)
	}
	assert.Equal(t, "idea", reqs[0].Contents[0].Text())
}

func TestEngineImplementationSeesDesignAndStructure(t *testing.T) {
	stub := testutil.NewStubModel(nil).
		ReplyAll().
		Reply(agent.Structure, "STRUCTURE-7f3a").
		Reply(agent.Design, "DESIGN-91bc")
	e := newEngine(t, stub)
	e.Run(context.Background(), "idea")

	reqs := stub.Build().Requests()
	require.Len(t, reqs, 5)
	impl := reqs[3].Contents[0].Text()
	assert.Contains(t, impl, "DESIGN-91bc")
	assert.Contains(t, impl, "STRUCTURE-7f3a")
}

func TestEngineHaltsOnFailure(t *testing.T) {
	stub := testutil.NewStubModel(nil).
		ReplyAll().
		Fail(agent.Design, errors.New("upstream 500"))
	e := newEngine(t, stub)

	s := e.Run(context.Background(), "idea")

	assert.Equal(t, StatusHalted, s.Status())
	assert.Equal(t, StageStructure, s.Current())
	assert.NotEmpty(t, s.Output(StageDiscovery))
	assert.NotEmpty(t, s.Output(StageStructure))
	assert.Empty(t, s.Output(StageDesign))
	assert.Empty(t, s.Output(StageImplementation))
	assert.Empty(t, s.Output(StageRefinement))

	require.NotNil(t, s.Err())
	assert.Equal(t, StageDesign, s.Err().Stage)
	assert.Equal(t, core.KindProvider, s.Err().Kind)
	assert.Contains(t, s.Err().Message, "upstream 500")
	assert.Equal(t, 3, stub.Build().CallCount())
}

func TestEngineCallbacks(t *testing.T) {
	stub := testutil.NewStubModel(nil).ReplyAll().Fail(agent.Implementation, errors.New("boom"))

	var (
		mu     sync.Mutex
		events []string
	)
	record := func(ctx context.Context, c *CallbackContext) error {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, string(c.CallbackType)+":"+c.Stage.String())
		return nil
	}

	cbs := NewCallbackManager()
	cbs.RegisterCallback(NewFunctionCallback(CallbackBeforeStage, record))
	cbs.RegisterCallback(NewFunctionCallback(CallbackAfterStage, record))
	cbs.RegisterCallback(NewFunctionCallback(CallbackOnError, func(ctx context.Context, c *CallbackContext) error {
		assert.Equal(t, StatusHalted, c.State.Status())
		assert.Error(t, c.Err)
		return record(ctx, c)
	}))

	e := newEngine(t, stub, func(o *Options) { o.Callbacks = cbs })
	e.Run(context.Background(), "idea")

	assert.Equal(t, []string{
		"before_stage:discovery", "after_stage:discovery",
		"before_stage:structure", "after_stage:structure",
		"before_stage:design", "after_stage:design",
		"before_stage:implementation", "on_error:implementation",
	}, events)
}

func TestEngineBeforeStageCallbackHalts(t *testing.T) {
	stub := testutil.NewStubModel(nil).ReplyAll()
	cbs := NewCallbackManager()
	cbs.RegisterCallback(NewFunctionCallback(CallbackBeforeStage, func(ctx context.Context, c *CallbackContext) error {
		if c.Stage == StageStructure {
			return core.Errorf(core.KindConfiguration, "guard", "blocked")
		}
		return nil
	}))

	e := newEngine(t, stub, func(o *Options) { o.Callbacks = cbs })
	s := e.Run(context.Background(), "idea")

	require.NotNil(t, s.Err())
	assert.Equal(t, StageStructure, s.Err().Stage)
	assert.Equal(t, core.KindConfiguration, s.Err().Kind)
	assert.Equal(t, 1, stub.Build().CallCount())
}

func TestEngineAfterStageCallbackErrorIsIgnored(t *testing.T) {
	stub := testutil.NewStubModel(nil).ReplyAll()
	cbs := NewCallbackManager()
	cbs.RegisterCallback(NewFunctionCallback(CallbackAfterStage, func(context.Context, *CallbackContext) error {
		return errors.New("store unavailable")
	}))

	e := newEngine(t, stub, func(o *Options) { o.Callbacks = cbs })
	assert.True(t, e.Run(context.Background(), "idea").Done())
}

func TestEngineCancelledContext(t *testing.T) {
	stub := testutil.NewStubModel(nil).ReplyAll()
	e := newEngine(t, stub)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := e.Run(ctx, "idea")

	require.NotNil(t, s.Err())
	assert.Equal(t, StageDiscovery, s.Err().Stage)
	assert.Equal(t, 0, stub.Build().CallCount())
}

type slowInvoker struct{}

func (slowInvoker) Invoke(ctx context.Context, _ model.Call) (string, error) {
	<-ctx.Done()
	return "", core.NewError(core.KindProvider, "slow", ctx.Err())
}

func TestEngineStageTimeout(t *testing.T) {
	e, err := New(nil, agent.NewRegistry(), slowInvoker{}, func(o *Options) {
		o.StageTimeout = 10 * time.Millisecond
	})
	require.NoError(t, err)

	s := e.Run(context.Background(), "idea")
	require.NotNil(t, s.Err())
	assert.Equal(t, StageDiscovery, s.Err().Stage)
	assert.ErrorIs(t, s.Err(), context.DeadlineExceeded)
}

func TestEngineConcurrentRunsAreIsolated(t *testing.T) {
	stub := testutil.NewStubModel(nil).ReplyAll()
	e := newEngine(t, stub, func(o *Options) { o.MaxConcurrentRuns = 2 })

	const n = 8
	states := make([]State, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			states[i] = e.Run(context.Background(), "idea")
		}(i)
	}
	wg.Wait()

	ids := map[string]bool{}
	for _, s := range states {
		assert.True(t, s.Done())
		ids[s.RunID] = true
	}
	assert.Len(t, ids, n)
	assert.Equal(t, 5*n, stub.Build().CallCount())
}

func TestNewValidatesInputs(t *testing.T) {
	stub := testutil.NewStubModel(nil)

	_, err := New(NewDefinition(), nil, stub.Adapter())
	assert.ErrorIs(t, err, core.ErrConfiguration)

	_, err = New(NewDefinition(), agent.NewRegistry(), nil)
	assert.ErrorIs(t, err, core.ErrConfiguration)

	_, err = New(&Definition{}, agent.NewRegistry(), stub.Adapter())
	assert.ErrorIs(t, err, core.ErrConfiguration)
}
