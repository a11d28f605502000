// Package core provides the foundational domain types shared by the protoforge
// packages. It defines:
//
//   - Content / Part (role based message payloads exchanged with models)
//   - Error and its Kind taxonomy (configuration, unknown agent, provider)
//   - ArtifactStore (pluggable storage for finished prototypes)
//   - NewID for run and response identifiers
//
// Implementation concerns (model providers, pipeline orchestration, HTTP)
// live in other packages; every package may depend on core without cycles.
package core
