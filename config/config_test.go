package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

func clearEnv(t *testing.T) {
	t.Helper()
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("ANTHROPIC_API_KEY", "")
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	chdir(t, t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), *cfg)
}

func TestLoad_FileEnvAndFallbackKey(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "contractagent.yaml", `
provider: anthropic
model: claude-3-5-sonnet-latest
max_rounds: 4
engine_timeout: 30s
temperature: 0.5
trace_dir: /tmp/traces
trace_format: yaml
`)
	t.Setenv("CONTRACTAGENT_MAX_ROUNDS", "6")
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-test")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ProviderAnthropic, cfg.Provider)
	assert.Equal(t, "claude-3-5-sonnet-latest", cfg.Model)
	assert.Equal(t, 6, cfg.MaxRounds, "environment overrides the file")
	assert.Equal(t, 30*time.Second, cfg.EngineTimeout)
	assert.InDelta(t, 0.5, cfg.Temperature, 1e-9)
	assert.Equal(t, "/tmp/traces", cfg.TraceDir)
	assert.Equal(t, "yaml", cfg.TraceFormat)
	assert.Equal(t, "sk-ant-test", cfg.APIKey)
}

func TestLoad_ExplicitKeyWins(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENAI_API_KEY", "from-openai-env")
	t.Setenv("CONTRACTAGENT_API_KEY", "explicit")

	cfg, err := Load(writeFile(t, "c.yaml", "provider: openai\n"))
	require.NoError(t, err)
	assert.Equal(t, "explicit", cfg.APIKey)
}

func TestLoad_FlagsOverrideEverything(t *testing.T) {
	clearEnv(t)
	t.Setenv("CONTRACTAGENT_MAX_ROUNDS", "6")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.Int("max-rounds", 10, "")
	fs.String("provider", "openai", "")
	fs.String("unrelated", "", "")
	require.NoError(t, fs.Parse([]string{"--max-rounds=2", "--provider=mock"}))

	l := NewLoader()
	require.NoError(t, l.BindFlags(fs))
	cfg, err := l.Load(writeFile(t, "c.yaml", "max_rounds: 4\n"))
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.MaxRounds)
	assert.Equal(t, ProviderMock, cfg.Provider)
	assert.NotEmpty(t, l.ConfigFileUsed())
}

func TestLoad_Errors(t *testing.T) {
	clearEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeFile(t, "bad.yaml", "provider: [unclosed\n"))
	assert.Error(t, err)

	_, err = Load(writeFile(t, "c.yaml", "provider: cohere\n"))
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"provider", func(c *Config) { c.Provider = "" }},
		{"max rounds", func(c *Config) { c.MaxRounds = 0 }},
		{"temperature low", func(c *Config) { c.Temperature = -0.1 }},
		{"temperature high", func(c *Config) { c.Temperature = 2.5 }},
		{"max tokens", func(c *Config) { c.MaxTokens = -1 }},
		{"timeout", func(c *Config) { c.EngineTimeout = -time.Second }},
		{"log level", func(c *Config) { c.LogLevel = "verbose" }},
		{"log format", func(c *Config) { c.LogFormat = "xml" }},
		{"trace format", func(c *Config) { c.TraceFormat = "csv" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalid)
		})
	}

	cfg := Default()
	assert.NoError(t, cfg.Validate())
	assert.NotNil(t, cfg.Logger())
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (equivalent of testing.T.Chdir, added in Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(old) })
}
