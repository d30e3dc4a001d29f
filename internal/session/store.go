package session

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Store persists at most one admin session in a local SQLite file so that a
// login survives process restarts. Every consumer that issues authenticated
// requests reads the token through Token() immediately before the request, so
// a Clear() mid-session is honored on the next call.
type Store struct {
	db *sql.DB
}

// Open initializes the session database at the given path, creating it and
// its schema when missing. Use ":memory:" in tests.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, err
		}
		path = abs
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}

	schema := `
		CREATE TABLE IF NOT EXISTS session (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			token TEXT NOT NULL,
			user_name TEXT,
			email TEXT,
			role TEXT,
			expires_at INTEGER NOT NULL DEFAULT 0,
			saved_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create session schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the stored session, or nil when none is stored.
func (s *Store) Get() (*Session, error) {
	var sess Session
	var expiresAt int64
	err := s.db.QueryRow(`
		SELECT token, user_name, email, role, expires_at
		FROM session
		WHERE id = 1
	`).Scan(&sess.Token, &sess.UserName, &sess.Email, &sess.Role, &expiresAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}
	if expiresAt > 0 {
		sess.ExpiresAt = time.Unix(expiresAt, 0)
	}
	return &sess, nil
}

// Set stores the session, replacing any previous one. When the session's
// ExpiresAt is zero it is derived from the token's exp claim.
func (s *Store) Set(sess Session) error {
	if sess.Token == "" {
		return fmt.Errorf("session token must not be empty")
	}
	if sess.ExpiresAt.IsZero() {
		sess.ExpiresAt = tokenExpiry(sess.Token)
	}
	var expiresAt int64
	if !sess.ExpiresAt.IsZero() {
		expiresAt = sess.ExpiresAt.Unix()
	}
	_, err := s.db.Exec(`
		INSERT INTO session (id, token, user_name, email, role, expires_at, saved_at)
		VALUES (1, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			token = excluded.token,
			user_name = excluded.user_name,
			email = excluded.email,
			role = excluded.role,
			expires_at = excluded.expires_at,
			saved_at = CURRENT_TIMESTAMP
	`, sess.Token, sess.UserName, sess.Email, sess.Role, expiresAt)
	if err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

// Clear removes the stored session. Clearing an empty store is not an error.
func (s *Store) Clear() error {
	if _, err := s.db.Exec(`DELETE FROM session WHERE id = 1`); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// Token returns the current bearer token. It re-reads storage on every call
// and fails with ErrNoToken when no session is stored or ErrExpired when the
// token's exp claim has passed, so protected requests are never sent with a
// missing or stale token.
func (s *Store) Token() (string, error) {
	sess, err := s.Get()
	if err != nil {
		return "", err
	}
	if sess == nil {
		return "", ErrNoToken
	}
	if !sess.ExpiresAt.IsZero() && time.Now().After(sess.ExpiresAt) {
		return "", ErrExpired
	}
	return sess.Token, nil
}
