package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/protoforge"
	"github.com/hupe1980/protoforge/agent"
	"github.com/hupe1980/protoforge/config"
	"github.com/hupe1980/protoforge/core"
	"github.com/hupe1980/protoforge/internal/testutil"
)

func newBackend(t *testing.T, stub *testutil.StubModelBuilder) *protoforge.Protoforge {
	t.Helper()
	cfg := config.Default()
	cfg.Provider.ScrubProxyEnv = false
	p := protoforge.New(&cfg, func(o *protoforge.Options) {
		if stub != nil {
			o.Model = stub.Build()
		}
	})
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestListAgents(t *testing.T) {
	h := New(newBackend(t, testutil.NewStubModel(nil))).Handler()

	rec := do(t, h, http.MethodGet, "/api/agents", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var agents []agent.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &agents))
	require.Len(t, agents, 5)
	assert.Equal(t, agent.Discovery, agents[0].ID)
	assert.Equal(t, agent.Refinement, agents[4].ID)
}

func TestProcessAgent(t *testing.T) {
	stub := testutil.NewStubModel(nil).Reply(agent.Discovery, "fresh angles")
	h := New(newBackend(t, stub)).Handler()

	rec := do(t, h, http.MethodPost, "/api/process-agent", map[string]string{
		"agent_id":   "discovery",
		"user_input": "a garden planner",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	out := decode(t, rec)
	assert.Equal(t, true, out["success"])
	assert.Equal(t, "fresh angles", out["response"])
	assert.Equal(t, "Discovery & Serendipity", out["agent_name"])
}

func TestProcessAgentErrorKinds(t *testing.T) {
	stub := testutil.NewStubModel(nil).Fail(agent.Design, errors.New("upstream down"))
	h := New(newBackend(t, stub)).Handler()

	tests := []struct {
		name     string
		agentID  string
		wantCode int
		wantKind core.Kind
	}{
		{"unknown agent", "marketing", http.StatusBadRequest, core.KindUnknownAgent},
		{"provider failure", "design", http.StatusBadGateway, core.KindProvider},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/api/process-agent", map[string]string{"agent_id": tt.agentID})
			assert.Equal(t, tt.wantCode, rec.Code)
			out := decode(t, rec)
			assert.Equal(t, false, out["success"])
			assert.Equal(t, string(tt.wantKind), out["error_kind"])
			assert.NotEmpty(t, out["error"])
		})
	}

	rec := do(t, h, http.MethodPost, "/api/process-agent", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDegradedBackend(t *testing.T) {
	h := New(newBackend(t, nil)).Handler()

	rec := do(t, h, http.MethodPost, "/api/process-agent", map[string]string{"agent_id": "discovery", "user_input": "x"})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, string(core.KindConfiguration), decode(t, rec)["error_kind"])

	rec = do(t, h, http.MethodPost, "/api/pipeline", map[string]string{"user_input": "x"})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/agents", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/status", nil)
	assert.Equal(t, false, decode(t, rec)["ready"])

	rec = do(t, h, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Pipeline unavailable")
}

func TestRunPipelineSync(t *testing.T) {
	stub := testutil.NewStubModel(nil).ReplyAll()
	h := New(newBackend(t, stub)).Handler()

	rec := do(t, h, http.MethodPost, "/api/pipeline", map[string]string{"user_input": "a chess clock"})
	require.Equal(t, http.StatusOK, rec.Code)

	out := decode(t, rec)
	assert.Equal(t, "done", out["status"])
	assert.Equal(t, "design output", out["design_output"])
	assert.Equal(t, "refinement", out["current_stage"])

	rec = do(t, h, http.MethodPost, "/api/pipeline", map[string]string{"user_input": "   "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRunPipelineHalted(t *testing.T) {
	stub := testutil.NewStubModel(nil).ReplyAll().Fail(agent.Implementation, errors.New("timeout"))
	h := New(newBackend(t, stub)).Handler()

	rec := do(t, h, http.MethodPost, "/api/pipeline", map[string]string{"user_input": "idea"})
	require.Equal(t, http.StatusBadGateway, rec.Code)

	out := decode(t, rec)
	assert.Equal(t, "halted", out["status"])
	assert.Equal(t, "", out["implementation_output"])
	errObj, ok := out["error"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "implementation", errObj["stage"])
	assert.Equal(t, "provider", errObj["kind"])
}

func TestAsyncRun(t *testing.T) {
	stub := testutil.NewStubModel(nil).
		ReplyAll().
		Reply(agent.Refinement, "```html\n<html><body>ok</body></html>\n```")
	h := New(newBackend(t, stub)).Handler()

	rec := do(t, h, http.MethodPost, "/api/runs", map[string]string{"user_input": "idea"})
	require.Equal(t, http.StatusAccepted, rec.Code)
	runID, _ := decode(t, rec)["run_id"].(string)
	require.NotEmpty(t, runID)
	assert.Equal(t, "/api/runs/"+runID, rec.Header().Get("Location"))

	require.Eventually(t, func() bool {
		rec := do(t, h, http.MethodGet, "/api/runs/"+runID, nil)
		return rec.Code == http.StatusOK && decode(t, rec)["status"] == "done"
	}, 2*time.Second, 10*time.Millisecond)

	rec = do(t, h, http.MethodGet, "/api/runs/"+runID+"/prototype", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/html"))
	assert.Equal(t, "<html><body>ok</body></html>", rec.Body.String())

	rec = do(t, h, http.MethodGet, "/api/runs/unknown", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = do(t, h, http.MethodGet, "/api/runs/unknown/prototype", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestIndex(t *testing.T) {
	h := New(newBackend(t, testutil.NewStubModel(nil))).Handler()

	rec := do(t, h, http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Architecture &amp; Structure")
	assert.NotContains(t, body, "Pipeline unavailable")

	rec = do(t, h, http.MethodGet, "/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStartStopsOnCancel(t *testing.T) {
	srv := New(newBackend(t, testutil.NewStubModel(nil)), func(o *Options) {
		o.Addr = "127.0.0.1:0"
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Start(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop")
	}
}
