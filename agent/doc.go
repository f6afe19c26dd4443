// Package agent drives a conversation through bounded rounds of "consult the
// reasoning engine, dispatch requested tools, fold results back in" until the
// engine produces a plain answer or the round budget runs out.
//
// Execution model:
//   - Run seeds a fresh conversation with the system prompt and user text
//   - Continue appends user text to an existing conversation
//   - Each call owns its conversation, reasoning.Tracker and flagged items
//   - Tool calls of one round are dispatched sequentially in engine order
//   - Tool failures become tool-role messages; they never abort the run
//   - Protocol violations and engine failures end the run as EXHAUSTED
//
// Neither entry point returns an error. Every failure is captured in the
// RunResult (Err, the trace and the conversation), so callers always get a
// well-formed result they can inspect, persist or resume.
//
// An Agent is immutable after New and may be shared by concurrent runs as
// long as its tool.Registry is not modified while runs are in flight.
package agent
