package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:7433", cfg.Listen)
	assert.Equal(t, "claude", cfg.DefaultAgent)
	assert.Equal(t, 300, cfg.IdleTimeoutSeconds)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "devteam.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
listen: "0.0.0.0:9000"
default_agent: codex
agents:
  - type: codex
    command: codex
    token_env: OPENAI_API_KEY
    permission_mode: ask
  - type: claude
    command: claude
    args: ["chat"]
    token_env: ANTHROPIC_API_KEY
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9000", cfg.Listen)
	assert.Equal(t, "codex", cfg.DefaultAgent)
	require.Len(t, cfg.Agents, 2)

	claude, ok := cfg.Agent("claude")
	require.True(t, ok)
	assert.Equal(t, []string{"chat"}, claude.Args)
	assert.Equal(t, "ANTHROPIC_API_KEY", claude.TokenEnv)

	_, ok = cfg.Agent("cursor")
	assert.False(t, ok)
}

func TestEnvOverride(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DEVTEAM_LISTEN", "127.0.0.1:1234")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:1234", cfg.Listen)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
