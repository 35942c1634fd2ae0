// Package store wraps the persistent data store behind the four probe
// primitives the update subsystem needs: connection open, integrity
// check, migration-version query and settings listing. The subsystem
// never modifies the store's schema or content.
package store

import (
	"context"
	"errors"
	"fmt"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// ExpectedMigrationVersion is the store schema version this binary was
// built against, recorded in the database as PRAGMA user_version.
const ExpectedMigrationVersion = 3

// SQLiteHandle is a single-connection handle. The health check window
// runs before normal operation, so exclusive ownership is guaranteed by
// the caller and no pooling is needed.
type SQLiteHandle struct {
	path string
	conn *sqlite.Conn
}

func New(path string) *SQLiteHandle {
	return &SQLiteHandle{path: path}
}

// Open establishes the connection. The interrupt channel is scoped to
// each query, not the connection, so a probe timeout does not poison
// later probes.
func (s *SQLiteHandle) Open(_ context.Context) error {
	conn, err := sqlite.OpenConn(s.path, sqlite.OpenReadWrite)
	if err != nil {
		return fmt.Errorf("store: opening %s: %w", s.path, err)
	}
	s.conn = conn
	return nil
}

// CheckIntegrity runs the native consistency check. Anything other than
// a single "ok" row means the store is corrupt.
func (s *SQLiteHandle) CheckIntegrity(ctx context.Context) error {
	if s.conn == nil {
		return errors.New("store: not open")
	}
	defer s.conn.SetInterrupt(s.conn.SetInterrupt(ctx.Done()))

	var results []string
	err := sqlitex.ExecuteTransient(s.conn, "PRAGMA integrity_check", &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			results = append(results, stmt.ColumnText(0))
			return nil
		},
	})
	if err != nil {
		return fmt.Errorf("store: integrity check: %w", err)
	}
	if len(results) != 1 || results[0] != "ok" {
		return fmt.Errorf("store: integrity check reported corruption: %v", results)
	}
	return nil
}

// MigrationVersion reads the schema version recorded in the store.
func (s *SQLiteHandle) MigrationVersion(ctx context.Context) (int, error) {
	if s.conn == nil {
		return 0, errors.New("store: not open")
	}
	defer s.conn.SetInterrupt(s.conn.SetInterrupt(ctx.Done()))

	version := -1
	err := sqlitex.ExecuteTransient(s.conn, "PRAGMA user_version", &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			version = stmt.ColumnInt(0)
			return nil
		},
	})
	if err != nil {
		return 0, fmt.Errorf("store: migration version: %w", err)
	}
	if version < 0 {
		return 0, errors.New("store: migration version query returned no rows")
	}
	return version, nil
}

// ListSettings lists the keys of the application's key-value
// configuration surface.
func (s *SQLiteHandle) ListSettings(ctx context.Context) ([]string, error) {
	if s.conn == nil {
		return nil, errors.New("store: not open")
	}
	defer s.conn.SetInterrupt(s.conn.SetInterrupt(ctx.Done()))

	var keys []string
	err := sqlitex.ExecuteTransient(s.conn, "SELECT key FROM settings ORDER BY key", &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			keys = append(keys, stmt.ColumnText(0))
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("store: listing settings: %w", err)
	}
	return keys, nil
}

func (s *SQLiteHandle) Close() error {
	if s.conn == nil {
		return nil
	}
	conn := s.conn
	s.conn = nil
	if err := conn.Close(); err != nil {
		return fmt.Errorf("store: closing %s: %w", s.path, err)
	}
	return nil
}
