package tracestore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hupe1980/agentloop/reasoning"
)

// Format selects the on-disk encoding of a DirStore.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat accepts "json", "yaml" or "yml". Empty means JSON.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown trace format %q", s)
	}
}

// DirStore keeps one file per session in a directory. Files of both formats
// are readable regardless of the format used for writing.
type DirStore struct {
	dir    string
	format Format
}

var _ Store = (*DirStore)(nil)

// NewDirStore creates dir if needed and returns a store writing format.
func NewDirStore(dir string, format Format) (*DirStore, error) {
	if format == "" {
		format = FormatJSON
	}
	if format != FormatJSON && format != FormatYAML {
		return nil, fmt.Errorf("unknown trace format %q", format)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create trace dir: %w", err)
	}
	return &DirStore{dir: dir, format: format}, nil
}

// Dir returns the backing directory.
func (s *DirStore) Dir() string { return s.dir }

// Save writes exp atomically by renaming a temporary file into place.
func (s *DirStore) Save(_ context.Context, exp reasoning.Export) error {
	if err := checkSessionID(exp.SessionID); err != nil {
		return err
	}

	var (
		data []byte
		err  error
	)
	switch s.format {
	case FormatYAML:
		data, err = exp.YAML()
	default:
		data, err = exp.JSON()
	}
	if err != nil {
		return fmt.Errorf("encode trace %s: %w", exp.SessionID, err)
	}

	tmp, err := os.CreateTemp(s.dir, ".trace-*")
	if err != nil {
		return fmt.Errorf("save trace %s: %w", exp.SessionID, err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("save trace %s: %w", exp.SessionID, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("save trace %s: %w", exp.SessionID, err)
	}

	// A session saved in the other format is replaced, not duplicated.
	for _, p := range s.paths(exp.SessionID) {
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("save trace %s: %w", exp.SessionID, err)
		}
	}
	if err := os.Rename(tmp.Name(), s.path(exp.SessionID, s.format)); err != nil {
		return fmt.Errorf("save trace %s: %w", exp.SessionID, err)
	}
	return nil
}

// Get reads the export for sessionID or returns ErrNotFound.
func (s *DirStore) Get(_ context.Context, sessionID string) (reasoning.Export, error) {
	if err := checkSessionID(sessionID); err != nil {
		return reasoning.Export{}, err
	}
	for _, f := range []Format{FormatJSON, FormatYAML} {
		data, err := os.ReadFile(s.path(sessionID, f))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return reasoning.Export{}, fmt.Errorf("read trace %s: %w", sessionID, err)
		}
		if f == FormatYAML {
			return reasoning.ParseYAML(data)
		}
		return reasoning.ParseJSON(data)
	}
	return reasoning.Export{}, fmt.Errorf("%w: %s", ErrNotFound, sessionID)
}

// List returns the session ids found in the directory in lexical order.
func (s *DirStore) List(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list traces: %w", err)
	}
	seen := map[string]struct{}{}
	ids := []string{}
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		ext := filepath.Ext(e.Name())
		if ext != ".json" && ext != ".yaml" {
			continue
		}
		id := strings.TrimSuffix(e.Name(), ext)
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Delete removes the stored export or returns ErrNotFound.
func (s *DirStore) Delete(_ context.Context, sessionID string) error {
	if err := checkSessionID(sessionID); err != nil {
		return err
	}
	removed := false
	for _, p := range s.paths(sessionID) {
		err := os.Remove(p)
		if err == nil {
			removed = true
			continue
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("delete trace %s: %w", sessionID, err)
		}
	}
	if !removed {
		return fmt.Errorf("%w: %s", ErrNotFound, sessionID)
	}
	return nil
}

func (s *DirStore) path(sessionID string, f Format) string {
	return filepath.Join(s.dir, sessionID+"."+string(f))
}

func (s *DirStore) paths(sessionID string) []string {
	return []string{s.path(sessionID, FormatJSON), s.path(sessionID, FormatYAML)}
}
