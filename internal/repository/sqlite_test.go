package repository

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IlyaMakar/aidd_admin/internal/session"
)

func openTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := Open(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestGetSetRemove(t *testing.T) {
	repo := openTestRepo(t)

	_, ok, err := repo.Get("missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, repo.Set("k", "v1"))
	require.NoError(t, repo.Set("k", "v2"))

	v, ok, err := repo.Get("k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v2", v)

	require.NoError(t, repo.Remove("k"))
	require.NoError(t, repo.Remove("k"))

	_, ok, err = repo.Get("k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestList(t *testing.T) {
	repo := openTestRepo(t)

	require.NoError(t, repo.Set("chat-session-id:1", "a"))
	require.NoError(t, repo.Set("chat-session-id:2", "b"))
	require.NoError(t, repo.Set("other", "c"))

	entries, err := repo.List("chat-session-id:")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	for _, e := range entries {
		assert.Contains(t, e.Key, "chat-session-id:")
		assert.False(t, e.UpdatedAt.IsZero())
	}

	all, err := repo.List("")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestClosedRepositoryIsUnavailable(t *testing.T) {
	repo := openTestRepo(t)
	require.NoError(t, repo.Close())
	require.NoError(t, repo.Close())

	_, _, err := repo.Get("k")
	assert.ErrorIs(t, err, session.ErrUnavailable)
	assert.ErrorIs(t, repo.Set("k", "v"), session.ErrUnavailable)
	assert.ErrorIs(t, repo.Remove("k"), session.ErrUnavailable)
}

func TestSessionStoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")

	repo, err := Open(path)
	require.NoError(t, err)
	first := session.NewStore(repo).GetOrCreateSessionID()
	require.NoError(t, repo.Close())

	repo, err = Open(path)
	require.NoError(t, err)
	defer repo.Close()

	assert.Equal(t, first, session.NewStore(repo).GetOrCreateSessionID())
}

func TestSessionStoreFallsBackWhenClosed(t *testing.T) {
	repo := openTestRepo(t)
	store := session.NewStore(repo)
	require.NoError(t, repo.Close())

	id := store.GetOrCreateSessionID()
	assert.Len(t, id, 36)

	_, ok := store.GetSessionID()
	assert.False(t, ok)
}
