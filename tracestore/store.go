// Package tracestore persists reasoning trace exports keyed by session id so
// an audit or UI layer can list and inspect past runs.
package tracestore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/hupe1980/agentloop/reasoning"
)

var (
	// ErrNotFound is returned when no trace exists for a session id.
	ErrNotFound = errors.New("trace not found")

	// ErrInvalidSessionID is returned for ids that cannot be used as keys.
	ErrInvalidSessionID = errors.New("invalid session id")
)

// Store saves and loads trace exports. Saving an existing session id
// overwrites it.
type Store interface {
	Save(ctx context.Context, exp reasoning.Export) error
	Get(ctx context.Context, sessionID string) (reasoning.Export, error)
	List(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, sessionID string) error
}

func checkSessionID(id string) error {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidSessionID, id)
	}
	return nil
}

// InMemoryStore is a volatile Store for tests and single-process use. Exports
// are kept in encoded form so callers can never mutate stored traces.
type InMemoryStore struct {
	mu     sync.RWMutex
	traces map[string][]byte
}

var _ Store = (*InMemoryStore)(nil)

// NewInMemoryStore returns an empty store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{traces: make(map[string][]byte)}
}

// Save stores exp under its session id.
func (s *InMemoryStore) Save(_ context.Context, exp reasoning.Export) error {
	if err := checkSessionID(exp.SessionID); err != nil {
		return err
	}
	data, err := exp.JSON()
	if err != nil {
		return fmt.Errorf("encode trace %s: %w", exp.SessionID, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.traces[exp.SessionID] = data
	return nil
}

// Get returns a decoded copy of the stored export or ErrNotFound.
func (s *InMemoryStore) Get(_ context.Context, sessionID string) (reasoning.Export, error) {
	s.mu.RLock()
	data, ok := s.traces[sessionID]
	s.mu.RUnlock()
	if !ok {
		return reasoning.Export{}, fmt.Errorf("%w: %s", ErrNotFound, sessionID)
	}
	return reasoning.ParseJSON(data)
}

// List returns stored session ids in lexical order, which is creation order
// for tracker-generated ids.
func (s *InMemoryStore) List(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.traces))
	for id := range s.traces {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Delete removes a trace or returns ErrNotFound.
func (s *InMemoryStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.traces[sessionID]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, sessionID)
	}
	delete(s.traces, sessionID)
	return nil
}
