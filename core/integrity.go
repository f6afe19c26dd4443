package core

import (
	"errors"
	"fmt"
)

// ErrProtocol marks a conversation whose tool results can no longer be matched
// to the calls that produced them.
var ErrProtocol = errors.New("protocol error")

// ProtocolError describes a conversation integrity violation at Index.
type ProtocolError struct {
	Index   int
	Message string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error at message %d: %s", e.Index, e.Message)
}

// Unwrap exposes ErrProtocol for errors.Is.
func (e *ProtocolError) Unwrap() error { return ErrProtocol }

// CheckToolCalls reports duplicate or empty ids in a single assistant turn.
func CheckToolCalls(calls []ToolCall) error {
	seen := make(map[string]struct{}, len(calls))
	for i, tc := range calls {
		if tc.ID == "" {
			return &ProtocolError{Index: -1, Message: fmt.Sprintf("tool call %d (%s) has no id", i, tc.Name)}
		}
		if _, dup := seen[tc.ID]; dup {
			return &ProtocolError{Index: -1, Message: fmt.Sprintf("duplicate tool call id %q", tc.ID)}
		}
		seen[tc.ID] = struct{}{}
	}
	return nil
}

// CheckConversation verifies that every tool-role message answers a call of
// the immediately preceding assistant message (tool results of the same turn
// may sit in between) and that no call is answered twice.
func CheckConversation(msgs []Message) error {
	var outstanding map[string]bool // call id -> answered
	for i, m := range msgs {
		switch m.Role {
		case RoleAssistant:
			outstanding = nil
			if !m.HasToolCalls() {
				continue
			}
			if err := CheckToolCalls(m.ToolCalls); err != nil {
				var pe *ProtocolError
				if errors.As(err, &pe) {
					pe.Index = i
				}
				return err
			}
			outstanding = make(map[string]bool, len(m.ToolCalls))
			for _, tc := range m.ToolCalls {
				outstanding[tc.ID] = false
			}
		case RoleTool:
			answered, ok := outstanding[m.ToolCallID]
			if !ok {
				return &ProtocolError{Index: i, Message: fmt.Sprintf("tool result %q has no matching call", m.ToolCallID)}
			}
			if answered {
				return &ProtocolError{Index: i, Message: fmt.Sprintf("tool call %q answered twice", m.ToolCallID)}
			}
			outstanding[m.ToolCallID] = true
		default:
			outstanding = nil
		}
	}
	return nil
}
