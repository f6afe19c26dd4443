package agentloop

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentloop/agent"
	"github.com/hupe1980/agentloop/config"
	"github.com/hupe1980/agentloop/contract"
	"github.com/hupe1980/agentloop/core"
	"github.com/hupe1980/agentloop/internal/testutil"
	"github.com/hupe1980/agentloop/logging"
	"github.com/hupe1980/agentloop/model"
	"github.com/hupe1980/agentloop/tool"
	"github.com/hupe1980/agentloop/tracestore"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Provider = config.ProviderMock
	return &cfg
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.MaxRounds = 0
	_, err := New(cfg)
	assert.ErrorIs(t, err, config.ErrInvalid)
}

func TestNewModel(t *testing.T) {
	for _, p := range []string{config.ProviderOpenAI, config.ProviderAnthropic, config.ProviderMock} {
		cfg := testConfig()
		cfg.Provider = p
		cfg.APIKey = "test-key"
		m, err := NewModel(cfg)
		require.NoError(t, err, p)
		assert.NotEmpty(t, m.Info().Provider, p)
	}

	cfg := testConfig()
	cfg.Provider = "unknown"
	_, err := NewModel(cfg)
	assert.ErrorIs(t, err, config.ErrInvalid)
}

func TestAssistant_RunFlagsAndPersists(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nda.txt"), []byte("The Provider may terminate at any time."), 0o600))

	engine := model.NewScriptedModel(
		testutil.CallTurn("r1", "read_document", `{"file_path":"nda.txt"}`),
		testutil.NewTurn().
			Call("c1", "classify_clause", `{"clause":"The Provider may terminate at any time."}`).
			Call("f1", "flag_for_review", `{"clause":"The Provider may terminate at any time.","reason":"Unilateral termination"}`).
			Build(),
		testutil.Answer("One clause needs review."),
	)
	store := tracestore.NewInMemoryStore()

	cfg := testConfig()
	cfg.DocumentRoot = dir
	a, err := New(cfg, func(o *Options) {
		o.Model = engine
		o.Store = store
		o.Logger = logging.NoOpLogger{}
		o.Document = "nda.txt"
		o.Now = func() time.Time { return time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC) }
	})
	require.NoError(t, err)
	assert.Contains(t, a.Tools(), "flag_for_review")

	res, err := a.Run(context.Background(), "Review nda.txt")
	require.NoError(t, err)
	assert.Equal(t, agent.StateDone, res.TerminalState)
	assert.Equal(t, "One clause needs review.", res.FinalAnswer())

	require.Len(t, res.Flagged, 1)
	assert.Equal(t, tool.Success{Payload: contract.FlaggedClause{
		Clause: "The Provider may terminate at any time.",
		Reason: "Unilateral termination",
	}}, res.Flagged[0].Result)

	// The system prompt was rendered with the document name and date.
	system := engine.Requests()[0].Messages[0]
	assert.Equal(t, core.RoleSystem, system.Role)
	assert.Contains(t, system.Text(), `"nda.txt"`)
	assert.Contains(t, system.Text(), "2024-01-02")

	// The document content reached the engine as a tool result.
	assert.Contains(t, res.Conversation[3].Text(), "terminate at any time")

	saved, err := store.Get(context.Background(), res.Trace.SessionID)
	require.NoError(t, err)
	assert.Equal(t, res.Trace.TotalSteps, saved.TotalSteps)

	follow, err := a.Continue(context.Background(), res.Conversation, "Thanks")
	require.NoError(t, err)
	ids, err := store.List(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{res.Trace.SessionID, follow.Trace.SessionID}, ids)
}

func TestAssistant_TraceDirFromConfig(t *testing.T) {
	cfg := testConfig()
	cfg.TraceDir = filepath.Join(t.TempDir(), "traces")
	cfg.TraceFormat = "yaml"

	a, err := New(cfg, func(o *Options) {
		o.Model = model.NewScriptedModel(testutil.Answer("ok"))
		o.Logger = logging.NoOpLogger{}
	})
	require.NoError(t, err)
	require.NotNil(t, a.Store())

	res, err := a.Run(context.Background(), "hi")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(cfg.TraceDir, res.Trace.SessionID+".yaml"))
}

func TestAssistant_ExtraToolNameCollision(t *testing.T) {
	dup := tool.NewFunctionTool("flag_for_review", "dup", nil, func(context.Context, map[string]any) (any, error) { return nil, nil })
	_, err := New(testConfig(), func(o *Options) {
		o.ExtraTools = []tool.Tool{dup}
		o.Logger = logging.NoOpLogger{}
	})
	assert.ErrorIs(t, err, tool.ErrDuplicateToolName)
}

func TestAssistant_MockProviderEchoes(t *testing.T) {
	a, err := New(testConfig(), func(o *Options) { o.Logger = logging.NoOpLogger{} })
	require.NoError(t, err)

	res, err := a.Run(context.Background(), "hello there")
	require.NoError(t, err)
	assert.Equal(t, agent.StateDone, res.TerminalState)
	assert.NotEmpty(t, res.FinalAnswer())
	assert.Nil(t, a.Store())
}
