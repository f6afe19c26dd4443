package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/hupe1980/agentloop/core"
	"github.com/hupe1980/agentloop/internal/util"
	"github.com/hupe1980/agentloop/logging"
	"github.com/hupe1980/agentloop/model"
)

// Registry maps tool names to tools. Registration happens before runs start;
// during a run the registry is only read and may be shared by concurrent runs.
type Registry struct {
	mu     sync.RWMutex
	tools  map[string]Tool
	order  []string
	logger logging.Logger
}

// RegistryOption customizes a Registry.
type RegistryOption func(*Registry)

// WithLogger sets the logger used for tool call logging.
func WithLogger(l logging.Logger) RegistryOption {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{tools: map[string]Tool{}, logger: logging.NoOpLogger{}}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Register adds t. It fails with ErrDuplicateToolName if the name is taken.
func (r *Registry) Register(t Tool) error {
	if t == nil || t.Name() == "" {
		return fmt.Errorf("register tool: name is empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[t.Name()]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateToolName, t.Name())
	}
	r.tools[t.Name()] = t
	r.order = append(r.order, t.Name())
	return nil
}

// MustRegister registers all tools and panics on the first error.
func (r *Registry) MustRegister(tools ...Tool) *Registry {
	for _, t := range tools {
		if err := r.Register(t); err != nil {
			panic(err)
		}
	}
	return r
}

// Resolve returns the tool registered under name.
func (r *Registry) Resolve(name string) (Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	if !ok {
		return nil, &ToolError{Tool: name, Kind: KindUnknownTool, Message: fmt.Sprintf("tool %q is not registered", name)}
	}
	return t, nil
}

// Names returns tool names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Catalog returns the declared tool catalog (name, description, schema) in
// registration order. Handlers are never exposed.
func (r *Registry) Catalog() []model.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]model.ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name]
		defs = append(defs, model.ToolDefinition{
			Type: "function",
			Function: model.FunctionDefinition{
				Name:        t.Name(),
				Description: t.Description(),
				Parameters:  t.Parameters(),
			},
		})
	}
	return defs
}

// Invoke resolves name, validates rawArgs against the input schema and runs
// the handler. Failures are *ToolError values of KindUnknownTool,
// KindSchemaViolation or KindToolExecution; handler panics are recovered as
// KindToolExecution.
func (r *Registry) Invoke(ctx context.Context, name string, rawArgs json.RawMessage) (any, error) {
	t, err := r.Resolve(name)
	if err != nil {
		return nil, err
	}

	args, err := util.ValidateJSON(rawArgs, t.Parameters())
	if err != nil {
		r.logger.Warn("tool.call.validation_failed", "tool", name, "error", err.Error())
		return nil, &ToolError{
			Tool:    name,
			Kind:    KindSchemaViolation,
			Message: fmt.Sprintf("parameter validation failed: %v", err),
			Details: err,
			Err:     err,
		}
	}

	return r.call(ctx, t, args)
}

func (r *Registry) call(ctx context.Context, t Tool, args map[string]any) (result any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("tool.call.panic", "tool", t.Name(), "recover", fmt.Sprint(rec), "stack", string(debug.Stack()))
			result = nil
			err = &ToolError{Tool: t.Name(), Kind: KindToolExecution, Message: fmt.Sprintf("panic: %v", rec)}
		}
	}()

	result, err = t.Call(ctx, args)
	if err != nil {
		return nil, AsToolError(t.Name(), err)
	}
	return result, nil
}

// Dispatch runs one tool call and never fails: the outcome is a Result. A
// payload that does not marshal to JSON becomes a KindToolExecution Failure.
func (r *Registry) Dispatch(ctx context.Context, call core.ToolCall) Result {
	start := time.Now()
	r.logger.Debug("tool.call.start", "tool", call.Name, "call_id", call.ID)

	payload, err := r.Invoke(ctx, call.Name, call.Arguments)
	if err == nil {
		// The tool message, the trace and flagged items all carry this Result,
		// so a payload that cannot be encoded is a failure everywhere.
		if _, mErr := json.Marshal(payload); mErr != nil {
			payload = nil
			err = &ToolError{Tool: call.Name, Kind: KindToolExecution, Message: fmt.Sprintf("encode result: %v", mErr), Err: mErr}
		}
	}
	logging.LogToolCall(r.logger, call.Name, call.ID, time.Since(start), err)

	return ResultOf(payload, err)
}

// RoleOf returns the semantic role of the named tool, RoleDefault if unknown.
func (r *Registry) RoleOf(name string) Role {
	t, err := r.Resolve(name)
	if err != nil {
		return RoleDefault
	}
	return RoleOf(t)
}
