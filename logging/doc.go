// Package logging provides a minimal logging interface and adapters for protoforge.
//
// The Logger interface defines the standard logging methods (Debug, Info, Warn, Error)
// that the pipeline engine, the model adapter and the HTTP server use for
// observability. This package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping Go's structured logging
//   - PipelineLogger with run / component scoping and stage helpers
//   - NoOpLogger for silent operation (testing, minimal setups)
//
// Usage:
//
//	logger := logging.NewSlogLogger(logging.LogLevelInfo, "json", false)
//	engine, err := pipeline.New(def, registry, adapter, func(o *pipeline.Options) { o.Logger = logger })
package logging
