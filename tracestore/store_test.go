package tracestore

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hupe1980/agentloop/reasoning"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleExport(id string) reasoning.Export {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	tr := reasoning.NewTracker(reasoning.WithSessionID(id), reasoning.WithClock(func() time.Time { return at }))
	tr.AddStep(reasoning.ActionObservation, "Received user input")
	tr.AddStep(reasoning.ActionAction, "Calling tool flag_for_review", reasoning.WithTool("flag_for_review"))
	tr.AddDecision("completed analysis", "answered", reasoning.WithDecisionConfidence(0.85))
	return tr.Export()
}

// Interface compliance
var (
	_ Store = (*InMemoryStore)(nil)
	_ Store = (*DirStore)(nil)
)

func stores(t *testing.T) map[string]Store {
	t.Helper()
	jsonStore, err := NewDirStore(t.TempDir(), FormatJSON)
	require.NoError(t, err)
	yamlStore, err := NewDirStore(filepath.Join(t.TempDir(), "nested", "traces"), FormatYAML)
	require.NoError(t, err)

	return map[string]Store{
		"memory":   NewInMemoryStore(),
		"dir/json": jsonStore,
		"dir/yaml": yamlStore,
	}
}

func TestStores_SaveGetListDelete(t *testing.T) {
	ctx := context.Background()

	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ids, err := s.List(ctx)
			require.NoError(t, err)
			assert.Empty(t, ids)

			require.NoError(t, s.Save(ctx, sampleExport("20240501_120000_bbbb")))
			require.NoError(t, s.Save(ctx, sampleExport("20240501_110000_aaaa")))

			got, err := s.Get(ctx, "20240501_120000_bbbb")
			require.NoError(t, err)
			assert.Equal(t, "20240501_120000_bbbb", got.SessionID)
			assert.Equal(t, 2, got.TotalSteps)
			assert.Equal(t, "flag_for_review", got.ReasoningSteps[1].ToolUsed)
			assert.Equal(t, "completed analysis", got.Decisions[0].Decision)

			ids, err = s.List(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"20240501_110000_aaaa", "20240501_120000_bbbb"}, ids)

			// Overwrite keeps a single entry.
			require.NoError(t, s.Save(ctx, sampleExport("20240501_110000_aaaa")))
			ids, _ = s.List(ctx)
			assert.Len(t, ids, 2)

			require.NoError(t, s.Delete(ctx, "20240501_110000_aaaa"))
			_, err = s.Get(ctx, "20240501_110000_aaaa")
			assert.ErrorIs(t, err, ErrNotFound)
			assert.ErrorIs(t, s.Delete(ctx, "20240501_110000_aaaa"), ErrNotFound)
		})
	}
}

func TestStores_RejectInvalidSessionIDs(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			for _, id := range []string{"", "..", "a/b", `a\b`} {
				assert.ErrorIs(t, s.Save(ctx, reasoning.Export{SessionID: id}), ErrInvalidSessionID)
			}
		})
	}
}

func TestInMemoryStore_Isolation(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()
	exp := sampleExport("s1")
	require.NoError(t, s.Save(ctx, exp))

	exp.ReasoningSteps[0].Content = "mutated"
	got, err := s.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "Received user input", got.ReasoningSteps[0].Content)

	got.ReasoningSteps[0].Content = "mutated again"
	again, _ := s.Get(ctx, "s1")
	assert.Equal(t, "Received user input", again.ReasoningSteps[0].Content)
}

func TestDirStore_FormatSwitchReplacesFile(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	js, err := NewDirStore(dir, FormatJSON)
	require.NoError(t, err)
	require.NoError(t, js.Save(ctx, sampleExport("s1")))
	assert.FileExists(t, filepath.Join(dir, "s1.json"))

	ys, err := NewDirStore(dir, FormatYAML)
	require.NoError(t, err)
	require.NoError(t, ys.Save(ctx, sampleExport("s1")))
	assert.FileExists(t, filepath.Join(dir, "s1.yaml"))
	assert.NoFileExists(t, filepath.Join(dir, "s1.json"))

	// Either store reads either format.
	got, err := js.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 2, got.TotalSteps)

	// Stray files are ignored by List.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o600))
	ids, err := ys.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"s1"}, ids)
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatJSON, "JSON": FormatJSON, "yaml": FormatYAML, " yml ": FormatYAML} {
		got, err := ParseFormat(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseFormat("xml")
	assert.Error(t, err)

	_, err = NewDirStore(t.TempDir(), Format("xml"))
	assert.Error(t, err)
}
