package session

import (
	"errors"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var uuidV4 = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-4[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`)

// brokenStorage fails every call, like a disabled or full medium.
type brokenStorage struct {
	getErr, setErr, removeErr error
	sets                      int
}

func (b *brokenStorage) Get(string) (string, bool, error) { return "", false, b.getErr }
func (b *brokenStorage) Set(string, string) error {
	b.sets++
	return b.setErr
}
func (b *brokenStorage) Remove(string) error { return b.removeErr }

func TestNewIDFormat(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 500; i++ {
		id := NewID()
		require.Len(t, id, 36)
		require.Regexp(t, uuidV4, id)
		seen[id] = true
	}
	assert.Len(t, seen, 500)
}

func TestFallbackIDFormat(t *testing.T) {
	for i := 0; i < 500; i++ {
		require.Regexp(t, uuidV4, fallbackID())
	}
}

func TestGetOrCreateIsStable(t *testing.T) {
	store := NewStore(NewMemoryStorage())

	first := store.GetOrCreateSessionID()
	second := store.GetOrCreateSessionID()

	assert.Regexp(t, uuidV4, first)
	assert.Equal(t, first, second)

	got, ok := store.GetSessionID()
	assert.True(t, ok)
	assert.Equal(t, first, got)
}

func TestClearSessionID(t *testing.T) {
	store := NewStore(NewMemoryStorage())
	first := store.GetOrCreateSessionID()

	store.ClearSessionID()

	_, ok := store.GetSessionID()
	assert.False(t, ok)
	assert.NotEqual(t, first, store.GetOrCreateSessionID())
}

func TestGetSessionIDNeverWrites(t *testing.T) {
	mem := NewMemoryStorage()
	store := NewStore(mem)

	id, ok := store.GetSessionID()
	assert.False(t, ok)
	assert.Empty(t, id)

	_, stored, _ := mem.Get(DefaultKey)
	assert.False(t, stored)
}

func TestNoStorage(t *testing.T) {
	store := NewStore(nil)

	assert.Empty(t, store.GetOrCreateSessionID())
	_, ok := store.GetSessionID()
	assert.False(t, ok)
	store.ClearSessionID()
}

func TestReadFailureFallsBackWithoutWriting(t *testing.T) {
	broken := &brokenStorage{getErr: errors.New("disabled")}
	store := NewStore(broken)

	id := store.GetOrCreateSessionID()
	assert.Regexp(t, uuidV4, id)
	assert.Zero(t, broken.sets)

	_, ok := store.GetSessionID()
	assert.False(t, ok)
}

func TestWriteFailureReturnsFreshID(t *testing.T) {
	broken := &brokenStorage{setErr: errors.New("quota exceeded")}
	store := NewStore(broken)

	id := store.GetOrCreateSessionID()
	assert.Regexp(t, uuidV4, id)
	assert.Equal(t, 1, broken.sets)
}

func TestClearSwallowsErrors(t *testing.T) {
	store := NewStore(&brokenStorage{removeErr: ErrUnavailable})
	assert.NotPanics(t, store.ClearSessionID)
}

func TestScopedKeys(t *testing.T) {
	mem := NewMemoryStorage()
	n := 0
	gen := func() string {
		n++
		return []string{"a", "b"}[n-1]
	}

	one := NewStore(mem, WithKey("chat-session-id:1"), WithGenerator(gen))
	two := NewStore(mem, WithKey("chat-session-id:2"), WithGenerator(gen))

	assert.Equal(t, "a", one.GetOrCreateSessionID())
	assert.Equal(t, "b", two.GetOrCreateSessionID())
	assert.Equal(t, "a", one.GetOrCreateSessionID())
	assert.Equal(t, "chat-session-id:2", two.Key())
}
