package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/hupe1980/protoforge/agent"
	"github.com/hupe1980/protoforge/artifact"
	"github.com/hupe1980/protoforge/core"
	"github.com/hupe1980/protoforge/invocation"
	"github.com/hupe1980/protoforge/session"
)

type processAgentRequest struct {
	AgentID   string `json:"agent_id"`
	UserInput string `json:"user_input"`
	Context   string `json:"context"`
}

type agentResponse struct {
	Success   bool      `json:"success"`
	Response  string    `json:"response,omitempty"`
	AgentName string    `json:"agent_name,omitempty"`
	Error     string    `json:"error,omitempty"`
	ErrorKind core.Kind `json:"error_kind,omitempty"`
}

type pipelineRequest struct {
	UserInput string `json:"user_input"`
}

func (s *Server) listAgents(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, s.backend.Agents())
}

func (s *Server) getStatus(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{"ready": true}
	if info, ok := s.backend.ModelInfo(); ok {
		status["provider"] = info.Provider
		status["model"] = info.Name
	}
	if err := s.backend.Ready(); err != nil {
		status["ready"] = false
		status["error"] = err.Error()
	}
	jsonResponse(w, status)
}

func (s *Server) processAgent(w http.ResponseWriter, r *http.Request) {
	var req processAgentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	resp, err := s.backend.InvokeSingleAgent(r.Context(), invocation.Request{
		AgentID:   agent.ID(req.AgentID),
		UserInput: req.UserInput,
		Context:   req.Context,
	})
	if err != nil {
		s.opts.Logger.Warn("http.process_agent.failed", "agent", req.AgentID, "error", err.Error())
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusFor(err))
		_ = json.NewEncoder(w).Encode(agentResponse{Error: err.Error(), ErrorKind: core.KindOf(err)})
		return
	}

	jsonResponse(w, agentResponse{Success: true, Response: resp.Output, AgentName: resp.AgentName})
}

func (s *Server) runPipeline(w http.ResponseWriter, r *http.Request) {
	input, ok := decodePipelineInput(w, r)
	if !ok {
		return
	}

	state, err := s.backend.RunPipeline(r.Context(), input)
	if err != nil && state.RunID == "" {
		jsonError(w, err.Error(), statusFor(err))
		return
	}
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusFor(err))
		_ = json.NewEncoder(w).Encode(state)
		return
	}
	jsonResponse(w, state)
}

func (s *Server) startRun(w http.ResponseWriter, r *http.Request) {
	input, ok := decodePipelineInput(w, r)
	if !ok {
		return
	}

	runID, err := s.backend.StartRun(r.Context(), input)
	if err != nil {
		jsonError(w, err.Error(), statusFor(err))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Location", "/api/runs/"+runID)
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(map[string]string{"run_id": runID})
}

func (s *Server) getRun(w http.ResponseWriter, r *http.Request) {
	state, err := s.backend.Run(r.PathValue("id"))
	if err != nil {
		jsonError(w, err.Error(), statusFor(err))
		return
	}
	jsonResponse(w, state)
}

func (s *Server) getPrototype(w http.ResponseWriter, r *http.Request) {
	html, err := s.backend.Prototype(r.PathValue("id"))
	if err != nil {
		jsonError(w, err.Error(), statusFor(err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(html)
}

func decodePipelineInput(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req pipelineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return "", false
	}
	if strings.TrimSpace(req.UserInput) == "" {
		jsonError(w, "user_input is required", http.StatusBadRequest)
		return "", false
	}
	return req.UserInput, true
}

// statusFor maps an error to the HTTP status the API reports for it.
func statusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrNotFound), errors.Is(err, artifact.ErrNotFound):
		return http.StatusNotFound
	}
	switch core.KindOf(err) {
	case core.KindUnknownAgent:
		return http.StatusBadRequest
	case core.KindProvider:
		return http.StatusBadGateway
	case core.KindConfiguration:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func jsonResponse(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(data)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
