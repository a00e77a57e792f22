package kv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

const (
	// dirPermissions is the permission mode for the database directory.
	dirPermissions = 0o700

	sqliteSchema = `CREATE TABLE IF NOT EXISTS kv_entries (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at TEXT NOT NULL
)`
)

// SQLite is an on-disk shared [Store]. Several processes on the same machine
// see the same entries, which is what a refresh token needs to survive a
// restart of the client.
type SQLite struct {
	db     *sql.DB
	prefix string
}

// OpenSQLite opens (creating if needed) the database file at path and
// prepares the schema. path may be ":memory:" in tests. Keys are stored as
// "prefix:key"; an empty prefix stores them bare.
func OpenSQLite(ctx context.Context, path, prefix string) (*SQLite, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), dirPermissions); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	dsn := path
	if path != ":memory:" {
		dsn = path + "?_journal_mode=WAL&_busy_timeout=5000"
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite store: %w", err)
	}
	if path == ":memory:" {
		// each new connection to :memory: is a fresh database
		db.SetMaxOpenConns(1)
	}

	s, err := NewSQLite(ctx, db, prefix)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLite wraps an already opened database and creates the table.
func NewSQLite(ctx context.Context, db *sql.DB, prefix string) (*SQLite, error) {
	if db == nil {
		return nil, errors.New("kv: nil sqlite db")
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		return nil, fmt.Errorf("creating kv schema: %w", err)
	}
	return &SQLite{db: db, prefix: prefix}, nil
}

func (s *SQLite) key(key string) string {
	if s.prefix == "" {
		return key
	}
	return s.prefix + ":" + key
}

// Get returns the stored value or [ErrNotFound].
func (s *SQLite) Get(ctx context.Context, key string) (string, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv_entries WHERE key = ?`, s.key(key)).Scan(&v)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return v, nil
}

// Set upserts value under key.
func (s *SQLite) Set(ctx context.Context, key, value string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO kv_entries (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		s.key(key), value, now,
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Remove deletes key.
func (s *SQLite) Remove(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv_entries WHERE key = ?`, s.key(key)); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// RemoveAll deletes every key in one statement.
func (s *SQLite) RemoveAll(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	args := make([]any, len(keys))
	for i, key := range keys {
		args[i] = s.key(key)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(keys)), ",")
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv_entries WHERE key IN (`+placeholders+`)`, args...); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLite) Close() error {
	return s.db.Close()
}
