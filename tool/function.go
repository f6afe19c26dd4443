package tool

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hupe1980/agentloop/internal/util"
)

// FunctionTool is a generic adapter that exposes a plain Go function as a tool.
//
// Responsibilities:
//   - Holds a JSON schema describing its parameters (validated by the Registry
//     before Call is reached)
//   - Invokes the wrapped function with the caller's context
//   - Normalizes errors into *ToolError with KindToolExecution unless the
//     function returned a *ToolError itself
//
// A FunctionTool has no internal mutable state after construction and is safe
// for concurrent use by multiple goroutines.
type FunctionTool struct {
	// Tool identifier (snake_case recommended)
	name string
	// Human-readable description shown to models
	description string
	// JSON schema describing accepted arguments
	parameters map[string]any
	// Semantic role seen by the agent loop
	role Role
	// User supplied implementation
	fn func(ctx context.Context, args map[string]any) (any, error)
}

// FunctionOption customizes a FunctionTool.
type FunctionOption func(*FunctionTool)

// WithRole sets the semantic role of the tool.
func WithRole(r Role) FunctionOption {
	return func(t *FunctionTool) { t.role = r }
}

// NewFunctionTool constructs a FunctionTool from explicit schema and function.
//
// Example:
//
//	flag := NewFunctionTool(
//	  "flag_for_review",
//	  "Flag a clause as risky",
//	  map[string]any{
//	    "type": "object",
//	    "properties": map[string]any{
//	      "clause": map[string]any{"type": "string"},
//	      "reason": map[string]any{"type": "string"},
//	    },
//	    "required": []string{"clause", "reason"},
//	  },
//	  func(_ context.Context, args map[string]any) (any, error) {
//	    return args, nil
//	  },
//	  WithRole(RoleFlag),
//	)
func NewFunctionTool(
	name, description string,
	parameters map[string]any,
	fn func(ctx context.Context, args map[string]any) (any, error),
	opts ...FunctionOption,
) *FunctionTool {
	t := &FunctionTool{
		name:        name,
		description: description,
		parameters:  parameters,
		fn:          fn,
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// NewFunctionToolFromStruct derives the parameter schema from a struct using reflection.
func NewFunctionToolFromStruct(
	name, description string,
	structType any,
	fn func(ctx context.Context, args map[string]any) (any, error),
	opts ...FunctionOption,
) *FunctionTool {
	return NewFunctionTool(name, description, util.CreateSchema(structType), fn, opts...)
}

// NewTypedTool derives the schema from T and decodes validated arguments into
// a T before calling fn.
//
// Example:
//
//	type ClassifyArgs struct {
//	  Clause string `json:"clause" jsonschema:"description=Clause text"`
//	}
//
//	classify := NewTypedTool("classify_clause", "Classify a legal clause",
//	  func(ctx context.Context, in ClassifyArgs) (any, error) { ... })
func NewTypedTool[T any](
	name, description string,
	fn func(ctx context.Context, in T) (any, error),
	opts ...FunctionOption,
) *FunctionTool {
	var zero T
	return NewFunctionToolFromStruct(name, description, zero, func(ctx context.Context, args map[string]any) (any, error) {
		raw, err := json.Marshal(args)
		if err != nil {
			return nil, fmt.Errorf("encode arguments: %w", err)
		}
		var in T
		if err := json.Unmarshal(raw, &in); err != nil {
			return nil, &ToolError{Tool: name, Kind: KindSchemaViolation, Message: fmt.Sprintf("decode arguments: %v", err), Err: err}
		}
		return fn(ctx, in)
	}, opts...)
}

// Name returns the unique tool name used in tool call declarations and routing.
func (t *FunctionTool) Name() string { return t.name }

// Description returns the short natural language description exposed to models.
func (t *FunctionTool) Description() string { return t.description }

// Parameters returns the JSON schema describing expected arguments.
func (t *FunctionTool) Parameters() map[string]any { return t.parameters }

// Role returns the semantic role of the tool.
func (t *FunctionTool) Role() Role { return t.role }

// Call invokes the underlying function.
//
// Error Semantics:
//
//	*ToolError (returned directly)  -> forwarded unchanged
//	other error                     -> *ToolError{Kind: KindToolExecution}
func (t *FunctionTool) Call(ctx context.Context, args map[string]any) (any, error) {
	result, err := t.fn(ctx, args)
	if err != nil {
		return nil, AsToolError(t.name, err)
	}
	return result, nil
}
