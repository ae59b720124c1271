package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"

	"github.com/roach88/audiojournal/internal/apperr"
)

// Store owns the journal database connection.
type Store struct {
	mu   sync.RWMutex
	db   *sql.DB
	path string
	log  zerolog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the store's logger.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Store) { s.log = log }
}

// Open creates or opens the SQLite database at path, creating parent
// directories as needed, then applies pragmas and the schema.
//
// Any failure is returned as an apperr.KindIO error with op "connect";
// the partially opened connection is closed.
func Open(ctx context.Context, path string, opts ...Option) (*Store, error) {
	s := &Store{path: path, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(s)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, apperr.Wrapf(apperr.KindIO, "connect", err, "create database directory")
	}

	// Open database (creates file if doesn't exist)
	db, err := sql.Open(DriverName, path)
	if err != nil {
		return nil, apperr.Wrapf(apperr.KindIO, "connect", err, "open database %s", path)
	}

	// Verify connection works
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, apperr.Wrapf(apperr.KindIO, "connect", err, "connect to database %s", path)
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(ctx, db); err != nil {
		db.Close()
		return nil, apperr.Wrapf(apperr.KindIO, "connect", err, "apply pragmas")
	}

	if err := CreateSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	s.db = db
	s.log.Info().Str("path", path).Msg("database ready")
	return s, nil
}

// Close closes the database connection. Calling Close on a closed or
// never-opened store is a no-op.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	if err := s.db.Close(); err != nil {
		s.log.Error().Err(err).Str("path", s.path).Msg("error closing database")
		return apperr.Wrap(apperr.KindIO, "close", err)
	}
	s.db = nil
	s.log.Info().Str("path", s.path).Msg("database connection closed")
	return nil
}

// DB returns the live connection, or nil once the store is closed.
// Callers must treat nil as a fatal precondition violation.
func (s *Store) DB() *sql.DB {
	if s == nil {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.db
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// applyPragmas sets database-level SQLite configuration. WAL mode persists
// in the file; per-connection pragmas are set by the driver's ConnectHook.
func applyPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
	}

	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := s.DB().QueryRow(query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
