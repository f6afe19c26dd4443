// Package core holds the conversation primitives shared by the agent loop,
// the reasoning engine clients and the tool registry: messages, roles, tool
// calls and the integrity rules that tie tool results back to their calls.
package core
