package memory

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

// ErrNotFound is returned when deleting an unknown note.
var ErrNotFound = errors.New("note not found")

// Note is one saved piece of conversation context.
type Note struct {
	ID        string    `json:"id"`
	Topic     string    `json:"topic"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Store persists and retrieves notes.
type Store interface {
	// Save stores n under a newly assigned ID and returns the stored note.
	Save(n Note) (Note, error)
	// Search returns notes whose topic or content contains query, ignoring
	// case, in save order. An empty query matches every note; limit <= 0
	// means no limit.
	Search(query string, limit int) ([]Note, error)
	// List returns all notes in save order.
	List() ([]Note, error)
	Delete(id string) error
}

// InMemoryStore is a process-local Store. Search is a linear scan.
//
// Concurrency: protected by RWMutex.
type InMemoryStore struct {
	mu    sync.RWMutex
	notes []Note
	seq   int
}

// NewInMemoryStore creates an empty store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

// Save implements Store.
func (m *InMemoryStore) Save(n Note) (Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n.ID = fmt.Sprintf("note_%d", m.seq)
	m.seq++
	m.notes = append(m.notes, n)
	return n, nil
}

// Search implements Store.
func (m *InMemoryStore) Search(query string, limit int) ([]Note, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	q := strings.ToLower(strings.TrimSpace(query))
	results := make([]Note, 0)
	for _, n := range m.notes {
		if limit > 0 && len(results) >= limit {
			break
		}
		if q == "" || strings.Contains(strings.ToLower(n.Topic), q) || strings.Contains(strings.ToLower(n.Content), q) {
			results = append(results, n)
		}
	}
	return results, nil
}

// List implements Store.
func (m *InMemoryStore) List() ([]Note, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Note, len(m.notes))
	copy(out, m.notes)
	return out, nil
}

// Delete implements Store.
func (m *InMemoryStore) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, n := range m.notes {
		if n.ID == id {
			m.notes = append(m.notes[:i], m.notes[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrNotFound, id)
}
