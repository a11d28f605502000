// Package model defines the provider‑agnostic abstractions for interacting
// with language models inside protoforge, plus the Model Invocation Adapter
// that every pipeline stage goes through.
//
// Core goals:
//   - Keep request/response shapes minimal and transport independent
//   - Carry per-call sampling parameters (temperature, output budget)
//   - Isolate provider calls from inherited proxy configuration (Adapter)
//   - Facilitate lightweight mocking for tests (MockModel)
//
// Providers (e.g. OpenAI, Anthropic) implement the Model interface from this
// package so higher layers (pipeline, invocation) remain decoupled from vendor SDKs.
package model
