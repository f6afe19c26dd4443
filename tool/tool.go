// Package tool implements the tool calling subsystem that lets the agent loop
// invoke structured capabilities with schema validated arguments, consistent
// error handling and a declared catalog for the reasoning engine.
package tool

import (
	"context"
	"errors"
	"fmt"

	"github.com/hupe1980/agentloop/internal/util"
)

// Tool defines a capability the reasoning engine may request.
//
// Tool implementations should:
//   - Provide clear, descriptive names and descriptions
//   - Define a JSON schema for their parameters
//   - Return errors instead of panicking
//   - Be safe for concurrent use, registries are shared across runs
type Tool interface {
	// Name returns the unique identifier for this tool (snake_case recommended).
	Name() string

	// Description is shown to the reasoning engine only; it is never validated.
	Description() string

	// Parameters returns a JSON schema describing the expected input.
	Parameters() map[string]any

	// Call executes the tool with already validated arguments.
	Call(ctx context.Context, args map[string]any) (any, error)
}

// Role is the semantic role of a tool as seen by the agent loop.
type Role string

const (
	// RoleDefault marks an ordinary tool.
	RoleDefault Role = ""
	// RoleFlag marks a tool whose results flag items for human review.
	RoleFlag Role = "flag"
)

// RoleProvider is implemented by tools that carry a semantic role.
type RoleProvider interface {
	Role() Role
}

// RoleOf returns the semantic role of t.
func RoleOf(t Tool) Role {
	if rp, ok := t.(RoleProvider); ok {
		return rp.Role()
	}
	return RoleDefault
}

// ValidationError represents parameter validation errors with detailed information.
type ValidationError = util.ValidationError

// Kind classifies a recoverable tool failure.
type Kind string

const (
	KindUnknownTool     Kind = "UnknownTool"
	KindSchemaViolation Kind = "SchemaViolation"
	KindToolExecution   Kind = "ToolExecutionError"
)

var (
	// ErrDuplicateToolName is returned when registering a name twice.
	ErrDuplicateToolName = errors.New("duplicate tool name")
	// ErrUnknownTool is returned when resolving an unregistered name.
	ErrUnknownTool = errors.New("unknown tool")
	// ErrSchemaViolation is returned when arguments do not satisfy the input schema.
	ErrSchemaViolation = errors.New("schema violation")
	// ErrToolExecution wraps a handler failure.
	ErrToolExecution = errors.New("tool execution error")
)

func (k Kind) sentinel() error {
	switch k {
	case KindUnknownTool:
		return ErrUnknownTool
	case KindSchemaViolation:
		return ErrSchemaViolation
	default:
		return ErrToolExecution
	}
}

// ToolError represents a recoverable failure of a tool call. It matches the
// sentinel of its Kind and the underlying cause with errors.Is / errors.As.
type ToolError struct {
	Tool    string `json:"tool"`              // Name of the tool that failed
	Kind    Kind   `json:"kind"`              // Failure classification
	Message string `json:"message"`           // Error message
	Details any    `json:"details,omitempty"` // Additional error details
	Err     error  `json:"-"`                 // Underlying cause
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("tool error [%s] in %s: %s", e.Kind, e.Tool, e.Message)
}

// Unwrap exposes the kind sentinel and the cause.
func (e *ToolError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind.sentinel()}
	}
	return []error{e.Kind.sentinel(), e.Err}
}

// NewToolError creates a new ToolError with the specified details.
func NewToolError(tool string, kind Kind, message string) *ToolError {
	return &ToolError{
		Tool:    tool,
		Kind:    kind,
		Message: message,
	}
}

// AsToolError normalizes any error into a *ToolError of KindToolExecution
// unless it already is one.
func AsToolError(tool string, err error) *ToolError {
	var te *ToolError
	if errors.As(err, &te) {
		return te
	}
	return &ToolError{Tool: tool, Kind: KindToolExecution, Message: err.Error(), Err: err}
}
