package testutil

import (
	"encoding/json"

	"github.com/hupe1980/agentloop/core"
)

// TurnBuilder provides a fluent helper for constructing engine turns.
// Example:
//
//	turn := NewTurn().Text("checking").Call("c1", "flag_for_review", `{"clause":"x","reason":"y"}`).Build()
//
// Chain only the parts you need; a turn without calls is a plain answer.
type TurnBuilder struct {
	content *string
	calls   []core.ToolCall
}

// NewTurn creates an empty assistant turn builder.
func NewTurn() *TurnBuilder { return &TurnBuilder{} }

// Text sets the natural-language content (chainable).
func (b *TurnBuilder) Text(t string) *TurnBuilder { b.content = &t; return b }

// Call appends a tool call with raw JSON arguments (chainable).
func (b *TurnBuilder) Call(id, name, args string) *TurnBuilder {
	tc := core.ToolCall{ID: id, Name: name}
	if args != "" {
		tc.Arguments = json.RawMessage(args)
	}
	b.calls = append(b.calls, tc)
	return b
}

// Build returns the assistant message.
func (b *TurnBuilder) Build() core.Message {
	if len(b.calls) == 0 {
		text := ""
		if b.content != nil {
			text = *b.content
		}
		return core.AssistantMessage(text)
	}
	calls := make([]core.ToolCall, len(b.calls))
	copy(calls, b.calls)
	return core.ToolCallMessage(b.content, calls...)
}

// Answer is shorthand for a plain-content assistant turn.
func Answer(text string) core.Message { return core.AssistantMessage(text) }

// CallTurn is shorthand for a turn carrying a single tool call and no content.
func CallTurn(id, name, args string) core.Message {
	return NewTurn().Call(id, name, args).Build()
}

// ConversationBuilder helps construct conversations with fluent chaining.
// Example:
//
//	conv := NewConversation().System("be brief").User("hi").Assistant("hello").Build()
type ConversationBuilder struct {
	msgs []core.Message
}

// NewConversation creates an empty conversation builder.
func NewConversation() *ConversationBuilder { return &ConversationBuilder{} }

// System appends a system message (chainable).
func (b *ConversationBuilder) System(t string) *ConversationBuilder {
	b.msgs = append(b.msgs, core.SystemMessage(t))
	return b
}

// User appends a user message (chainable).
func (b *ConversationBuilder) User(t string) *ConversationBuilder {
	b.msgs = append(b.msgs, core.UserMessage(t))
	return b
}

// Assistant appends a plain assistant message (chainable).
func (b *ConversationBuilder) Assistant(t string) *ConversationBuilder {
	b.msgs = append(b.msgs, core.AssistantMessage(t))
	return b
}

// Turn appends a prebuilt message (chainable).
func (b *ConversationBuilder) Turn(m core.Message) *ConversationBuilder {
	b.msgs = append(b.msgs, m)
	return b
}

// ToolResult appends a tool-role message (chainable).
func (b *ConversationBuilder) ToolResult(callID, name, content string) *ConversationBuilder {
	b.msgs = append(b.msgs, core.ToolResultMessage(callID, name, content))
	return b
}

// Build returns a copy of the accumulated messages.
func (b *ConversationBuilder) Build() []core.Message {
	return core.CloneMessages(b.msgs)
}

// CountRole returns how many messages in conv have role.
func CountRole(conv []core.Message, role core.Role) int {
	n := 0
	for _, m := range conv {
		if m.Role == role {
			n++
		}
	}
	return n
}
