package mcp

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const repoYAML = `
servers:
  - id: search
    name: search
    scope: global
    transport: http
    enabled: true
    endpoint: https://search/${region}
    required: [endpoint]
  - id: scratch
    name: scratchpad
    scope: session
    transport: stdio
    enabled: true
    command: scratchpad
assignments:
  sess-1: [scratch]
`

func writeRepoFile(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "toolservers.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestFileRepositoryLoad(t *testing.T) {
	ctx := context.Background()
	path := writeRepoFile(t, t.TempDir(), repoYAML)

	repo, err := NewFileRepository(path, nil)
	require.NoError(t, err)
	defer repo.Close()

	globals, err := repo.FindAll(ctx, FindFilter{Scope: ScopeGlobal, EnabledOnly: true})
	require.NoError(t, err)
	require.Len(t, globals, 1)
	assert.Equal(t, "search", globals[0].ID)
	assert.Equal(t, []string{"endpoint"}, globals[0].Required)

	assigned, err := repo.ListServers(ctx, "sess-1", true)
	require.NoError(t, err)
	require.Len(t, assigned, 1)
	assert.Equal(t, "scratch", assigned[0].ID)

	none, err := repo.ListServers(ctx, "sess-2", true)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestFileRepositoryMissingFile(t *testing.T) {
	_, err := NewFileRepository(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	assert.Error(t, err)
}

func TestFileRepositoryReloadOnChange(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := writeRepoFile(t, dir, repoYAML)

	repo, err := NewFileRepository(path, nil)
	require.NoError(t, err)
	defer repo.Close()
	require.NoError(t, repo.Watch())

	updated := repoYAML + `
  sess-2: [scratch]
`
	require.NoError(t, os.WriteFile(path, []byte(updated), 0o644))

	// Reload is asynchronous; poll briefly.
	deadline := time.Now().Add(2 * time.Second)
	for {
		assigned, err := repo.ListServers(ctx, "sess-2", true)
		require.NoError(t, err)
		if len(assigned) == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("config change was not picked up")
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestFileRepositoryKeepsOldConfigOnParseError(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := writeRepoFile(t, dir, repoYAML)

	repo, err := NewFileRepository(path, nil)
	require.NoError(t, err)
	defer repo.Close()
	require.NoError(t, repo.Watch())

	require.NoError(t, os.WriteFile(path, []byte("servers: [:::"), 0o644))
	time.Sleep(100 * time.Millisecond)

	globals, err := repo.FindAll(ctx, FindFilter{Scope: ScopeGlobal})
	require.NoError(t, err)
	assert.Len(t, globals, 1, "previous config stays live after a bad edit")
}
