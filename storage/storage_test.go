package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lambdaflows/devteam/session"
)

func testStores(t *testing.T) map[string]session.Store {
	t.Helper()
	fs, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	return map[string]session.Store{
		"memory": NewMemoryStore(),
		"file":   fs,
	}
}

func TestStoreSessionRoundTrip(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := &session.Session{
				ID:        "s1",
				AgentType: "claude",
				Status:    session.StatusIdle,
				CreatedAt: time.Now().UTC().Truncate(time.Second),
			}
			require.NoError(t, store.SaveSession(ctx, s))

			got, err := store.LoadSession(ctx, "s1")
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, "claude", got.AgentType)

			// Upsert replaces.
			s.Status = session.StatusFailed
			require.NoError(t, store.SaveSession(ctx, s))
			got, err = store.LoadSession(ctx, "s1")
			require.NoError(t, err)
			assert.Equal(t, session.StatusFailed, got.Status)
		})
	}
}

func TestStoreAbsenceIsNil(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			got, err := store.LoadSession(ctx, "nope")
			require.NoError(t, err)
			assert.Nil(t, got)

			task, err := store.LoadTask(ctx, "nope")
			require.NoError(t, err)
			assert.Nil(t, task)

			require.NoError(t, store.DeleteSession(ctx, "nope"))
		})
	}
}

func TestStoreQueryOrderAndFilters(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			base := time.Now().UTC().Truncate(time.Second)
			for i, id := range []string{"a", "b", "c"} {
				s := &session.Session{
					ID:         id,
					AgentType:  "claude",
					WorktreeID: "wt1",
					Status:     session.StatusIdle,
					CreatedAt:  base.Add(time.Duration(i) * time.Second),
				}
				if id == "c" {
					s.WorktreeID = "wt2"
					s.Status = session.StatusRunning
				}
				require.NoError(t, store.SaveSession(ctx, s))
			}

			all, err := store.QuerySessions(ctx, session.Filter{})
			require.NoError(t, err)
			require.Len(t, all, 3)
			assert.Equal(t, "a", all[0].ID)
			assert.Equal(t, "c", all[2].ID)

			wt1, err := store.QuerySessions(ctx, session.Filter{WorktreeID: "wt1"})
			require.NoError(t, err)
			assert.Len(t, wt1, 2)

			running, err := store.QuerySessions(ctx, session.Filter{Status: session.StatusRunning})
			require.NoError(t, err)
			require.Len(t, running, 1)
			assert.Equal(t, "c", running[0].ID)
		})
	}
}

func TestStoreTasksBySession(t *testing.T) {
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			base := time.Now().UTC().Truncate(time.Second)
			for i, id := range []string{"t1", "t2", "t3"} {
				sid := "s1"
				if id == "t3" {
					sid = "s2"
				}
				require.NoError(t, store.SaveTask(ctx, &session.Task{
					ID:        id,
					SessionID: sid,
					Status:    session.TaskCompleted,
					StartedAt: base.Add(time.Duration(i) * time.Second),
				}))
			}

			got, err := store.QueryTasks(ctx, session.TaskFilter{SessionID: "s1"})
			require.NoError(t, err)
			require.Len(t, got, 2)
			assert.Equal(t, "t1", got[0].ID)
		})
	}
}

func TestFileStoreSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	fs, err := NewFileStore(dir)
	require.NoError(t, err)
	require.NoError(t, fs.SaveSession(ctx, &session.Session{
		ID: "s1", AgentType: "codex", Status: session.StatusIdle,
	}))

	reopened, err := NewFileStore(dir)
	require.NoError(t, err)
	got, err := reopened.LoadSession(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "codex", got.AgentType)
}

func TestFileStoreRejectsPathTraversal(t *testing.T) {
	fs, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	_, err = fs.LoadSession(context.Background(), "../evil")
	assert.Error(t, err)
}
