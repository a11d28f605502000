// Package agent contains the Agent Registry: the fixed, ordered set of
// role-specialized agents that make up the prototype pipeline.
//
// Each Definition carries the agent's identifier, display name, static system
// instruction and default sampling temperature. A Registry is built once at
// startup (NewRegistry or NewRegistryFromOverrides) and is read-only
// afterwards, so it can be shared freely between concurrent pipeline runs and
// single-agent invocations.
//
// Registered agents, in pipeline order:
//
//  1. discovery       ideation and serendipitous connections
//  2. structure       architectural structuring
//  3. design          visual / UX design
//  4. implementation  HTML implementation
//  5. refinement      accessibility and performance refinement
package agent
