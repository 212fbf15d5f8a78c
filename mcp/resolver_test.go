package mcp

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRepo() *MemoryRepository {
	repo := NewMemoryRepository()
	repo.Add(ToolServerDescriptor{
		ID: "search", Name: "search", Scope: ScopeGlobal, Transport: "http",
		Enabled:  true,
		Endpoint: "https://search.internal/${region}",
		Headers:  map[string]string{"Authorization": "Bearer ${search_token}"},
		Required: []string{"endpoint", "headers.Authorization"},
	})
	repo.Add(ToolServerDescriptor{
		ID: "scratch", Name: "scratchpad", Scope: ScopeSession, Transport: "stdio",
		Enabled: true,
		Command: "scratchpad --dir ${workdir}",
	})
	return repo
}

func serverIDs(servers []ResolvedServer) []string {
	out := make([]string, len(servers))
	for i, s := range servers {
		out[i] = s.ID
	}
	return out
}

func TestResolveGlobalPlusAssigned(t *testing.T) {
	ctx := context.Background()
	repo := testRepo()
	repo.Assign("sess-1", "scratch")

	r := NewResolver(repo, nil)
	servers, err := r.Resolve(ctx, "sess-1", TemplateContext{
		"region":       "eu",
		"search_token": "tok",
		"workdir":      "/tmp/w",
	})
	require.NoError(t, err)

	require.Equal(t, []string{"search", "scratch"}, serverIDs(servers))
	assert.Equal(t, "https://search.internal/eu", servers[0].Endpoint)
	assert.Equal(t, "Bearer tok", servers[0].Headers["Authorization"])
	assert.Equal(t, "scratchpad --dir /tmp/w", servers[1].Command)
}

func TestResolveDropsRequiredUnresolvedAndDedupes(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	repo.Add(ToolServerDescriptor{
		ID: "1", Name: "one", Scope: ScopeGlobal, Transport: "http",
		Enabled: true, Endpoint: "https://one",
	})
	repo.Add(ToolServerDescriptor{
		ID: "2", Name: "two", Scope: ScopeGlobal, Transport: "http",
		Enabled:  true,
		Endpoint: "https://two/${secret}",
		Required: []string{"endpoint"},
	})
	repo.Add(ToolServerDescriptor{
		ID: "3", Name: "three", Scope: ScopeSession, Transport: "http",
		Enabled: true, Endpoint: "https://three",
	})
	repo.Assign("sess", "2")
	repo.Assign("sess", "3")

	r := NewResolver(repo, nil)
	servers, err := r.Resolve(ctx, "sess", TemplateContext{})
	require.NoError(t, err)

	// Server 2's required endpoint fails to resolve: dropped, and the id
	// stays claimed so the session assignment cannot resurrect it.
	assert.Equal(t, []string{"1", "3"}, serverIDs(servers))
}

func TestResolveGlobalWinsCollision(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	repo.Add(ToolServerDescriptor{
		ID: "dup", Name: "global-dup", Scope: ScopeGlobal, Transport: "http",
		Enabled: true, Endpoint: "https://global",
	})
	repo.Add(ToolServerDescriptor{
		ID: "dup-session", Name: "session-dup", Scope: ScopeSession, Transport: "http",
		Enabled: true, Endpoint: "https://session",
	})
	repo.Assign("sess", "dup")
	repo.Assign("sess", "dup-session")

	r := NewResolver(repo, nil)
	servers, err := r.Resolve(ctx, "sess", TemplateContext{})
	require.NoError(t, err)

	require.Equal(t, []string{"dup", "dup-session"}, serverIDs(servers))
	assert.Equal(t, "global-dup", servers[0].Name, "global descriptor wins the id")
}

func TestResolveKeepsOptionalUnresolvedWithWarning(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	repo.Add(ToolServerDescriptor{
		ID: "opt", Name: "opt", Scope: ScopeGlobal, Transport: "http",
		Enabled:  true,
		Endpoint: "https://opt",
		Env:      map[string]string{"EXTRA": "${missing_value}"},
	})

	r := NewResolver(repo, nil)
	servers, err := r.Resolve(ctx, "sess", TemplateContext{})
	require.NoError(t, err)

	require.Len(t, servers, 1)
	assert.NotEmpty(t, servers[0].Warnings)
	// The unexpanded placeholder remains in place.
	assert.Equal(t, "${missing_value}", servers[0].Env["EXTRA"])
}

func TestResolveSkipsDisabledServers(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	repo.Add(ToolServerDescriptor{
		ID: "off", Name: "off", Scope: ScopeGlobal, Transport: "http", Enabled: false,
	})
	repo.Add(ToolServerDescriptor{
		ID: "on", Name: "on", Scope: ScopeGlobal, Transport: "http", Enabled: true,
	})

	r := NewResolver(repo, nil)
	servers, err := r.Resolve(ctx, "sess", TemplateContext{})
	require.NoError(t, err)
	assert.Equal(t, []string{"on"}, serverIDs(servers))
}

func TestResolveFreshPerCall(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	repo.Add(ToolServerDescriptor{
		ID: "tok", Name: "tok", Scope: ScopeGlobal, Transport: "http",
		Enabled:  true,
		Endpoint: "https://api/${token}",
		Required: []string{"endpoint"},
	})

	r := NewResolver(repo, nil)

	first, err := r.Resolve(ctx, "sess", TemplateContext{"token": "alpha"})
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, "https://api/alpha", first[0].Endpoint)

	// A changed template context takes effect immediately: nothing cached.
	second, err := r.Resolve(ctx, "sess", TemplateContext{"token": "beta"})
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, "https://api/beta", second[0].Endpoint)

	// And a missing secret drops the server on that call only.
	third, err := r.Resolve(ctx, "sess", TemplateContext{})
	require.NoError(t, err)
	assert.Empty(t, third)
}
