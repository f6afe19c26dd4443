package core

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCall is a single tool invocation requested by the reasoning engine.
// Arguments carry the raw JSON payload exactly as produced by the engine; it is
// validated against the tool's input schema before dispatch.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// Message is one turn in a conversation.
//
// Content is optional: an assistant turn that only requests tools may carry no
// natural language text, which is distinct from an empty string. ToolCalls is
// set only on assistant turns, ToolCallID and ToolName only on tool turns.
type Message struct {
	Role       Role       `json:"role"`
	Content    *string    `json:"content,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	ToolName   string     `json:"name,omitempty"`
}

// SystemMessage creates a system-role message.
func SystemMessage(text string) Message {
	return Message{Role: RoleSystem, Content: StringPtr(text)}
}

// UserMessage creates a user-role message.
func UserMessage(text string) Message {
	return Message{Role: RoleUser, Content: StringPtr(text)}
}

// AssistantMessage creates a plain assistant message without tool calls.
func AssistantMessage(text string) Message {
	return Message{Role: RoleAssistant, Content: StringPtr(text)}
}

// ToolCallMessage creates an assistant message requesting tools. A nil content
// is kept nil.
func ToolCallMessage(content *string, calls ...ToolCall) Message {
	return Message{Role: RoleAssistant, Content: content, ToolCalls: calls}
}

// ToolResultMessage creates a tool-role message answering the call with the given id.
func ToolResultMessage(callID, toolName, content string) Message {
	return Message{Role: RoleTool, Content: StringPtr(content), ToolCallID: callID, ToolName: toolName}
}

// Text returns the message content or "" when absent.
func (m Message) Text() string {
	if m.Content == nil {
		return ""
	}
	return *m.Content
}

// HasToolCalls reports whether the message requests at least one tool.
func (m Message) HasToolCalls() bool { return len(m.ToolCalls) > 0 }

// Clone returns a deep copy so callers cannot mutate a run's conversation.
func (m Message) Clone() Message {
	out := m
	if m.Content != nil {
		out.Content = StringPtr(*m.Content)
	}
	if len(m.ToolCalls) > 0 {
		out.ToolCalls = make([]ToolCall, len(m.ToolCalls))
		for i, tc := range m.ToolCalls {
			out.ToolCalls[i] = tc
			if tc.Arguments != nil {
				out.ToolCalls[i].Arguments = append(json.RawMessage(nil), tc.Arguments...)
			}
		}
	}
	return out
}

// CloneMessages deep copies a conversation.
func CloneMessages(in []Message) []Message {
	if in == nil {
		return nil
	}
	out := make([]Message, len(in))
	for i := range in {
		out[i] = in[i].Clone()
	}
	return out
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string { return &s }

// NewID generates a new unique identifier.
func NewID() string { return uuid.NewString() }

// NewToolCallID generates an identifier for a tool call the engine left unnamed.
func NewToolCallID() string { return "call_" + NewID() }
