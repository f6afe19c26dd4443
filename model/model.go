package model

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/hupe1980/agentloop/core"
)

// ErrNoResponse is returned by Complete when a model closes its stream
// without a final response and without an error.
var ErrNoResponse = errors.New("model returned no final response")

// ToolDefinition declaratively exposes a callable function to the model.
// It carries name, description and schema only, never the handler.
type ToolDefinition struct {
	Type     string             `json:"type"` // "function"
	Function FunctionDefinition `json:"function"`
}

// FunctionDefinition describes an individual function (tool) exposed to the model.
// Parameters is a JSON Schema object.
type FunctionDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Request is the conversation plus the tool catalog handed to the engine.
type Request struct {
	Messages []core.Message  `json:"messages"`
	Tools    []ToolDefinition `json:"tools,omitempty"`
	Stream   bool             `json:"stream,omitempty"`
}

// TokenUsage captures token usage statistics for a response.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is a (partial or final) chunk emitted by a model. The final
// chunk's Message is the assistant turn: either plain content or tool calls.
type Response struct {
	ID           string       `json:"id"`
	Partial      bool         `json:"partial"`
	Message      core.Message `json:"message"`
	FinishReason string       `json:"finish_reason"` // "stop", "length", "tool_calls", etc.
	Usage        *TokenUsage  `json:"usage,omitempty"`
}

// Info contains metadata about a model implementation.
type Info struct {
	Name          string `json:"name"`
	Provider      string `json:"provider"` // "openai", "anthropic", "mock", etc.
	SupportsTools bool   `json:"supports_tools"`
}

// Model is the reasoning engine client contract. Retry and backoff belong to
// the transport beneath an implementation, never to the caller.
type Model interface {
	Generate(ctx context.Context, req Request) (<-chan Response, <-chan error)

	// Info returns information about the model implementation.
	Info() Info
}

// Complete drains a Generate call and returns the final (non-partial) response.
func Complete(ctx context.Context, m Model, req Request) (Response, error) {
	return CompleteStream(ctx, m, req, nil)
}

// CompleteStream is Complete with streaming: when onPartial is non-nil the
// request asks for partial chunks and each one is passed to onPartial, in
// order, on the calling goroutine.
func CompleteStream(ctx context.Context, m Model, req Request, onPartial func(Response)) (Response, error) {
	if onPartial != nil {
		req.Stream = true
	}
	respCh, errCh := m.Generate(ctx, req)

	var (
		final Response
		got   bool
	)

	for respCh != nil || errCh != nil {
		select {
		case <-ctx.Done():
			return Response{}, ctx.Err()
		case r, ok := <-respCh:
			if !ok {
				respCh = nil
				continue
			}
			if !r.Partial {
				final, got = r, true
			} else if onPartial != nil {
				onPartial(r)
			}
		case err, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}
			if err != nil {
				return Response{}, err
			}
		}
	}

	if !got {
		return Response{}, ErrNoResponse
	}

	if final.Message.Role == "" {
		final.Message.Role = core.RoleAssistant
	}

	return final, nil
}

// Func adapts a plain function returning one assistant turn into a Model.
type Func func(ctx context.Context, req Request) (core.Message, error)

// Generate implements Model.
func (f Func) Generate(ctx context.Context, req Request) (<-chan Response, <-chan error) {
	return single(func() (core.Message, error) { return f(ctx, req) })
}

// Info implements Model.
func (f Func) Info() Info { return Info{Name: "func", Provider: "local", SupportsTools: true} }

// single runs fn in a goroutine and emits its result as one final response.
func single(fn func() (core.Message, error)) (<-chan Response, <-chan error) {
	respCh := make(chan Response, 1)
	errCh := make(chan error, 1)

	go func() {
		defer close(respCh)
		defer close(errCh)

		msg, err := fn()
		if err != nil {
			errCh <- err
			return
		}

		finish := "stop"
		if msg.HasToolCalls() {
			finish = "tool_calls"
		}
		respCh <- Response{Message: msg, FinishReason: finish}
	}()

	return respCh, errCh
}

// ScriptedModel replays a fixed sequence of assistant turns, one per call.
// Once the script is exhausted the last turn is repeated. It records every
// request so tests can inspect what the engine was shown.
type ScriptedModel struct {
	mu       sync.Mutex
	turns    []core.Message
	errs     map[int]error
	calls    int
	requests []Request
}

// NewScriptedModel constructs a ScriptedModel over turns.
func NewScriptedModel(turns ...core.Message) *ScriptedModel {
	return &ScriptedModel{turns: turns, errs: map[int]error{}}
}

// FailAt makes the call with the given zero-based index return err.
func (m *ScriptedModel) FailAt(call int, err error) *ScriptedModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[call] = err
	return m
}

// Generate implements Model.
func (m *ScriptedModel) Generate(ctx context.Context, req Request) (<-chan Response, <-chan error) {
	m.mu.Lock()
	idx := m.calls
	m.calls++
	m.requests = append(m.requests, Request{Messages: core.CloneMessages(req.Messages), Tools: req.Tools})
	err := m.errs[idx]
	var turn core.Message
	switch {
	case len(m.turns) == 0:
		turn = core.AssistantMessage("")
	case idx < len(m.turns):
		turn = m.turns[idx].Clone()
	default:
		turn = m.turns[len(m.turns)-1].Clone()
	}
	m.mu.Unlock()

	return single(func() (core.Message, error) {
		if err != nil {
			return core.Message{}, err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return core.Message{}, ctxErr
		}
		return turn, nil
	})
}

// Calls returns how many times Generate was invoked.
func (m *ScriptedModel) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Requests returns copies of the recorded requests.
func (m *ScriptedModel) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.requests))
	copy(out, m.requests)
	return out
}

// Info implements Model.
func (m *ScriptedModel) Info() Info {
	return Info{Name: "scripted", Provider: "mock", SupportsTools: true}
}

// MockModel is a lightweight in‑memory Model useful for demos: it answers with
// a canned completion keyed by the last user message, or echoes it.
type MockModel struct {
	info      Info
	responses map[string]string
}

// NewMockModel constructs a MockModel with basic tool support enabled.
func NewMockModel(name, provider string) *MockModel {
	return &MockModel{
		info: Info{
			Name:          name,
			Provider:      provider,
			SupportsTools: true,
		},
		responses: make(map[string]string),
	}
}

// AddResponse registers a deterministic canned completion for an input prompt.
func (m *MockModel) AddResponse(prompt, response string) { m.responses[prompt] = response }

// Generate implements Model; emits optional streaming char chunks then final response.
func (m *MockModel) Generate(ctx context.Context, req Request) (<-chan Response, <-chan error) {
	respCh := make(chan Response, 16)
	errCh := make(chan error, 1)

	go func() {
		defer close(respCh)
		defer close(errCh)
		if len(req.Messages) == 0 {
			errCh <- fmt.Errorf("no messages provided")
			return
		}
		var inputText string
		for i := len(req.Messages) - 1; i >= 0; i-- {
			if req.Messages[i].Role == core.RoleUser {
				inputText = req.Messages[i].Text()
				break
			}
		}
		full := m.responses[inputText]
		if full == "" {
			full = fmt.Sprintf("Mock response to: %s", strings.TrimSpace(inputText))
		}
		if req.Stream {
			for _, r := range full {
				select {
				case <-ctx.Done():
					errCh <- ctx.Err()
					return
				case respCh <- Response{
					Partial: true,
					Message: core.AssistantMessage(string(r)),
				}:
				}
			}
		}
		select {
		case <-ctx.Done():
			errCh <- ctx.Err()
		case respCh <- Response{
			Partial:      false,
			Message:      core.AssistantMessage(full),
			FinishReason: "stop",
		}:
		}
	}()
	return respCh, errCh
}

// Info implements Model interface.
func (m *MockModel) Info() Info { return m.info }
