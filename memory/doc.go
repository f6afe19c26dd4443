// Package memory keeps the notes an assistant saves about a conversation
// (topic plus free text) so later turns can recall them. The Store interface
// allows other backends; InMemoryStore is the process-local default.
package memory
