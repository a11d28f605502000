// Package artifact contains implementations of core.ArtifactStore, the store
// that keeps the files a run produces (the generated prototype page).
//
// Artifacts are scoped by run id. Callers depend on the core interface so an
// alternative backend can replace the in-memory one without touching the
// pipeline wiring.
package artifact
