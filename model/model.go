package model

import (
	"context"
	"fmt"
	"sync"

	"github.com/hupe1980/protoforge/core"
)

// Request captures the normalized model input produced by the pipeline.
type Request struct {
	Instructions    string         `json:"instructions"`      // System instruction for the model
	Contents        []core.Content `json:"contents"`          // Ordered user messages
	Temperature     float64        `json:"temperature"`       // Sampling temperature
	MaxOutputTokens int64          `json:"max_output_tokens"` // Upper bound on generated tokens
}

// Response is the final reply produced by a model.
type Response struct {
	ID           string       `json:"id"`
	Content      core.Content `json:"content"`
	FinishReason string       `json:"finish_reason"` // "stop", "length", ...
}

// Info contains metadata about a model implementation.
type Info struct {
	Name     string `json:"name"`
	Provider string `json:"provider"` // "openai", "anthropic", "mock", ...
}

// Model is the minimal interface required by the adapter to drive generation.
// Generate blocks until the provider answers or fails.
type Model interface {
	Generate(ctx context.Context, req Request) (Response, error)

	// Info returns information about the model implementation.
	Info() Info
}

// MockModel is a lightweight in‑memory Model useful for tests & examples.
// Replies are keyed by system instruction so each pipeline stage can be
// stubbed independently. Every request is recorded.
type MockModel struct {
	info Info

	mu        sync.Mutex
	responses map[string]string
	failures  map[string]error
	requests  []Request
}

// NewMockModel constructs a MockModel.
func NewMockModel(name, provider string) *MockModel {
	return &MockModel{
		info:      Info{Name: name, Provider: provider},
		responses: make(map[string]string),
		failures:  make(map[string]error),
	}
}

// AddResponse registers a deterministic canned completion for an instruction.
func (m *MockModel) AddResponse(instruction, response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[instruction] = response
}

// AddFailure makes requests with the given instruction fail with err.
func (m *MockModel) AddFailure(instruction string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[instruction] = err
}

// Generate implements Model.
func (m *MockModel) Generate(ctx context.Context, req Request) (Response, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	full, ok := m.responses[req.Instructions]
	failure := m.failures[req.Instructions]
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return Response{}, err
	}
	if failure != nil {
		return Response{}, failure
	}
	if len(req.Contents) == 0 {
		return Response{}, fmt.Errorf("no contents provided")
	}
	if !ok {
		full = fmt.Sprintf("Mock response to: %s", req.Contents[len(req.Contents)-1].Text())
	}
	return Response{
		ID:           core.NewID(),
		Content:      core.NewTextContent(core.RoleAssistant, full),
		FinishReason: "stop",
	}, nil
}

// Requests returns a copy of all recorded requests in call order.
func (m *MockModel) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.requests))
	copy(out, m.requests)
	return out
}

// CallCount returns the number of Generate calls so far.
func (m *MockModel) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// Info implements Model interface.
func (m *MockModel) Info() Info { return m.info }
