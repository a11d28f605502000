// Package pipeline implements the orchestration engine that turns one idea
// into an HTML prototype by chaining the five registered agents.
//
// The chain is fixed: discovery → structure → design → implementation →
// refinement. There are no conditional edges, cycles or skips; every run
// traverses every stage once in this order or halts on the first failure.
//
// Three pieces make up the package:
//
//   - State: a value record of one run. Completing a stage yields a new State;
//     earlier values are never modified and out-of-order completion is
//     rejected.
//   - Definition: an immutable description of the chain (per-stage sampling
//     parameters and context templates) built by NewDefinition.
//   - Engine: executes a Definition against a model invoker, threading each
//     stage's output into the next stage's context.
//
// Runs share nothing but the read-only agent registry and definition, so an
// Engine may execute any number of runs concurrently.
package pipeline
