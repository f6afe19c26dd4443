// Package model defines the provider‑agnostic reasoning engine contract used
// by the agent loop.
//
// Core goals:
//   - Unify streaming + non‑streaming generation behind a single interface
//   - Normalize tool call representation (ToolDefinition, core.ToolCall)
//   - Keep request/response shapes minimal and transport independent
//   - Facilitate lightweight mocking for tests (ScriptedModel, Func, MockModel)
//
// Providers (OpenAI, Anthropic) implement the Model interface from this
// package so the loop stays decoupled from vendor SDKs.
package model
