package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"github.com/IlyaMakar/aidd_admin/internal/session"
)

// SQLiteRepository is the client-side key/value medium. It backs
// session.Store for the CLI and the bot.
type SQLiteRepository struct {
	db     *sql.DB
	closed atomic.Bool
}

type StateEntry struct {
	Key       string
	Value     string
	UpdatedAt time.Time
}

func NewSQLiteDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open DB: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping DB: %w", err)
	}
	// modernc sqlite serialises writers anyway; one connection avoids
	// SQLITE_BUSY between the bot's goroutines.
	db.SetMaxOpenConns(1)
	return db, nil
}

func InitDB(db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS client_state (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_client_state_updated ON client_state(updated_at);
`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Open is NewSQLiteDB + InitDB + NewRepository.
func Open(path string) (*SQLiteRepository, error) {
	db, err := NewSQLiteDB(path)
	if err != nil {
		return nil, err
	}
	if err := InitDB(db); err != nil {
		db.Close()
		return nil, err
	}
	return NewRepository(db), nil
}

func (r *SQLiteRepository) Close() error {
	if r.closed.Swap(true) {
		return nil
	}
	return r.db.Close()
}

func (r *SQLiteRepository) Get(key string) (string, bool, error) {
	if r.closed.Load() {
		return "", false, session.ErrUnavailable
	}

	var value string
	err := r.db.QueryRow("SELECT value FROM client_state WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get state %q: %w", key, err)
	}
	return value, true, nil
}

func (r *SQLiteRepository) Set(key, value string) error {
	if r.closed.Load() {
		return session.ErrUnavailable
	}

	_, err := r.db.Exec(
		`INSERT INTO client_state (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("set state %q: %w", key, err)
	}
	return nil
}

func (r *SQLiteRepository) Remove(key string) error {
	if r.closed.Load() {
		return session.ErrUnavailable
	}

	if _, err := r.db.Exec("DELETE FROM client_state WHERE key = ?", key); err != nil {
		return fmt.Errorf("remove state %q: %w", key, err)
	}
	return nil
}

// List returns entries whose key starts with prefix, newest first.
func (r *SQLiteRepository) List(prefix string) ([]StateEntry, error) {
	if r.closed.Load() {
		return nil, session.ErrUnavailable
	}

	rows, err := r.db.Query(
		"SELECT key, value, updated_at FROM client_state WHERE substr(key, 1, ?) = ? ORDER BY updated_at DESC, key",
		len(prefix), prefix,
	)
	if err != nil {
		return nil, fmt.Errorf("list state: %w", err)
	}
	defer rows.Close()

	var entries []StateEntry
	for rows.Next() {
		var e StateEntry
		var ts string
		if err := rows.Scan(&e.Key, &e.Value, &ts); err != nil {
			return nil, fmt.Errorf("scan state: %w", err)
		}
		e.UpdatedAt, _ = time.Parse(time.RFC3339, ts)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

var _ session.Storage = (*SQLiteRepository)(nil)
