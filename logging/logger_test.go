package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Interface compliance (compile-time assertions)
var (
	_ Logger = (*PipelineLogger)(nil)
	_ Logger = (*SlogAdapter)(nil)
	_ Logger = NoOpLogger{}
)

func newBufferLogger(level LogLevel) (*PipelineLogger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	cfg := DefaultLoggerConfig()
	cfg.Level = level
	cfg.Output = buf
	return NewLogger(cfg), buf
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		m := map[string]any{}
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestPipelineLogger_ScopedAttributes(t *testing.T) {
	l, buf := newBufferLogger(LogLevelInfo)

	l.WithComponent("engine").WithRun("run-1").Info("stage.start", "stage", "discovery")

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "stage.start", lines[0]["msg"])
	assert.Equal(t, "engine", lines[0]["component"])
	assert.Equal(t, "run-1", lines[0]["run_id"])
	assert.Equal(t, "discovery", lines[0]["stage"])
}

func TestPipelineLogger_WithDoesNotMutateParent(t *testing.T) {
	l, buf := newBufferLogger(LogLevelInfo)
	_ = l.WithContext("k", "v").WithRun("child")

	l.Info("parent")

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	assert.NotContains(t, lines[0], "k")
	assert.NotContains(t, lines[0], "run_id")
}

func TestPipelineLogger_LevelFiltering(t *testing.T) {
	l, buf := newBufferLogger(LogLevelWarn)

	l.Debug("d")
	l.Info("i")
	l.Warn("w")
	l.Error("e")

	lines := decodeLines(t, buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "w", lines[0]["msg"])
	assert.Equal(t, "e", lines[1]["msg"])
}

func TestPipelineLogger_LogStage(t *testing.T) {
	l, buf := newBufferLogger(LogLevelInfo)

	l.LogStage("design", time.Second, false, errors.New("rate limited"))
	l.LogLLMCall("gpt-4o-mini", time.Millisecond, true, nil)

	lines := decodeLines(t, buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "Stage failed", lines[0]["msg"])
	assert.Equal(t, "ERROR", lines[0]["level"])
	assert.Equal(t, "rate limited", lines[0]["error"])
	assert.Equal(t, "LLM call completed", lines[1]["msg"])
	assert.Equal(t, "gpt-4o-mini", lines[1]["model"])
}

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("DEBUG")
	require.NoError(t, err)
	assert.Equal(t, LogLevelDebug, lvl)

	lvl, err = ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, LogLevelInfo, lvl)

	_, err = ParseLevel("loud")
	assert.Error(t, err)
}

func TestOrNoOp(t *testing.T) {
	assert.Equal(t, NoOpLogger{}, OrNoOp(nil))
	l, _ := newBufferLogger(LogLevelInfo)
	assert.Same(t, l, OrNoOp(l))
}
