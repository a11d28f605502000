// Package server exposes the pipeline over HTTP.
package server

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/hupe1980/protoforge/agent"
	"github.com/hupe1980/protoforge/invocation"
	"github.com/hupe1980/protoforge/logging"
	"github.com/hupe1980/protoforge/model"
	"github.com/hupe1980/protoforge/pipeline"
)

//go:embed templates/index.html
var templateFS embed.FS

var indexTmpl = template.Must(template.ParseFS(templateFS, "templates/index.html"))

// Backend is the application surface the handlers need. *protoforge.Protoforge
// implements it.
type Backend interface {
	Ready() error
	ModelInfo() (model.Info, bool)
	Agents() []agent.Summary
	RunPipeline(ctx context.Context, input string) (pipeline.State, error)
	StartRun(ctx context.Context, input string) (string, error)
	Run(runID string) (pipeline.State, error)
	Prototype(runID string) ([]byte, error)
	InvokeSingleAgent(ctx context.Context, req invocation.Request) (invocation.Response, error)
}

// Options configures a Server.
type Options struct {
	Addr   string
	Logger logging.Logger
	// RedactedKey is shown in the startup banner.
	RedactedKey     string
	ShutdownTimeout time.Duration
}

type Server struct {
	backend Backend
	opts    Options
}

// New creates a Server for backend.
func New(backend Backend, optFns ...func(o *Options)) *Server {
	opts := Options{
		Addr:            "127.0.0.1:8000",
		Logger:          logging.NoOpLogger{},
		ShutdownTimeout: 10 * time.Second,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	opts.Logger = logging.OrNoOp(opts.Logger)
	return &Server{backend: backend, opts: opts}
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /api/agents", s.listAgents)
	mux.HandleFunc("GET /api/status", s.getStatus)
	mux.HandleFunc("POST /api/process-agent", s.processAgent)
	mux.HandleFunc("POST /api/pipeline", s.runPipeline)
	mux.HandleFunc("POST /api/runs", s.startRun)
	mux.HandleFunc("GET /api/runs/{id}", s.getRun)
	mux.HandleFunc("GET /api/runs/{id}/prototype", s.getPrototype)
	return s.withLogging(mux)
}

// Start serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.banner()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	}
}

func (s *Server) banner() {
	args := []any{"addr", "http://" + s.opts.Addr}
	if s.opts.RedactedKey != "" {
		args = append(args, "api_key", s.opts.RedactedKey)
	}
	if info, ok := s.backend.ModelInfo(); ok {
		args = append(args, "provider", info.Provider, "model", info.Name)
	}
	if err := s.backend.Ready(); err != nil {
		s.opts.Logger.Warn("protoforge.start.degraded", append(args, "error", err.Error())...)
		return
	}
	s.opts.Logger.Info("protoforge.start.ready", args...)
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.opts.Logger.Debug("http.request", "method", r.Method, "path", r.URL.Path, "status", rec.status, "duration", time.Since(start))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	data := struct {
		Agents []agent.Summary
		Ready  bool
		Error  string
	}{Agents: s.backend.Agents(), Ready: true}
	if err := s.backend.Ready(); err != nil {
		data.Ready = false
		data.Error = err.Error()
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTmpl.Execute(w, data); err != nil {
		s.opts.Logger.Error("http.index.render", "error", err.Error())
	}
}
