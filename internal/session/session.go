// Package session keeps the chat session identifier that groups a client's
// turns into one server-side history.
package session

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/google/uuid"

	"github.com/IlyaMakar/aidd_admin/internal/logger"
)

// DefaultKey is the storage key the identifier lives under.
const DefaultKey = "chat-session-id"

// ErrUnavailable is returned by a Storage that can no longer be used.
var ErrUnavailable = errors.New("session storage unavailable")

// Storage is the persistence medium. Get reports ok=false for a missing key.
type Storage interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
	Remove(key string) error
}

// Store reads and lazily creates the session identifier. A Store with a nil
// Storage behaves like a context without persistence: it never writes and
// GetOrCreateSessionID returns "".
type Store struct {
	storage Storage
	key     string
	newID   func() string
}

type Option func(*Store)

// WithKey scopes the identifier, e.g. per Telegram chat.
func WithKey(key string) Option {
	return func(s *Store) { s.key = key }
}

// WithGenerator replaces NewID. Tests use it for predictable ids.
func WithGenerator(gen func() string) Option {
	return func(s *Store) { s.newID = gen }
}

func NewStore(storage Storage, opts ...Option) *Store {
	s := &Store{storage: storage, key: DefaultKey, newID: NewID}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Key() string { return s.key }

// GetOrCreateSessionID returns the stored identifier, creating and storing
// one on a miss. Storage failures are logged and answered with a fresh
// identifier that is not persisted.
func (s *Store) GetOrCreateSessionID() string {
	if s.storage == nil {
		return ""
	}

	existing, ok, err := s.storage.Get(s.key)
	if err != nil {
		logger.Error("Failed to read session id", "key", s.key, "error", err)
		return s.newID()
	}
	if ok && existing != "" {
		return existing
	}

	id := s.newID()
	if err := s.storage.Set(s.key, id); err != nil {
		logger.Error("Failed to persist session id", "key", s.key, "error", err)
		return id
	}
	logger.Info("Created chat session", "key", s.key, "session_id", id)
	return id
}

// GetSessionID never generates or writes.
func (s *Store) GetSessionID() (string, bool) {
	if s.storage == nil {
		return "", false
	}
	id, ok, err := s.storage.Get(s.key)
	if err != nil {
		logger.Error("Failed to read session id", "key", s.key, "error", err)
		return "", false
	}
	if !ok || id == "" {
		return "", false
	}
	return id, true
}

func (s *Store) ClearSessionID() {
	if s.storage == nil {
		return
	}
	if err := s.storage.Remove(s.key); err != nil {
		logger.Error("Failed to clear session id", "key", s.key, "error", err)
	}
}

// NewID returns a random version 4 UUID in its canonical lowercase form.
func NewID() string {
	id, err := uuid.NewRandom()
	if err != nil {
		return fallbackID()
	}
	return id.String()
}

// fallbackID builds the same layout from math/rand when the system entropy
// source fails. The identifier only correlates requests.
func fallbackID() string {
	var b [16]byte
	for i := range b {
		b[i] = byte(rand.IntN(256))
	}
	b[6] = (b[6] & 0x0f) | 0x40
	b[8] = (b[8] & 0x3f) | 0x80
	return fmt.Sprintf("%x-%x-%x-%x-%x", b[0:4], b[4:6], b[6:8], b[8:10], b[10:16])
}

// MemoryStorage is a Storage that lives as long as the process.
type MemoryStorage struct {
	mu   sync.Mutex
	data map[string]string
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{data: make(map[string]string)}
}

func (m *MemoryStorage) Get(key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *MemoryStorage) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *MemoryStorage) Remove(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}
