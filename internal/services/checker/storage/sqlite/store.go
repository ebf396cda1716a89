// Package sqlite provides a SQLite-backed accepted-flag store.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	sqlitemigrate "github.com/louisbranch/flagchecker/internal/platform/storage/sqlitemigrate"
	"github.com/louisbranch/flagchecker/internal/services/checker/storage"
	"github.com/louisbranch/flagchecker/internal/services/checker/storage/sqlite/migrations"
	_ "modernc.org/sqlite"
)

// MemoryPath opens a store that lives only as long as the process.
const MemoryPath = ":memory:"

// Store persists accepted flags in SQLite.
type Store struct {
	sqlDB *sql.DB
	clock func() time.Time
}

// Open opens a SQLite store and applies embedded migrations.
func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := MemoryPath
	if path != MemoryPath {
		dsn = filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	}
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// Every connection to :memory: is a separate database.
	sqlDB.SetMaxOpenConns(1)
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlitemigrate.ApplyMigrations(context.Background(), sqlDB, migrations.FS, ""); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB, clock: time.Now}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Contains reports whether flag was accepted before.
func (s *Store) Contains(ctx context.Context, flag string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if s == nil || s.sqlDB == nil {
		return false, fmt.Errorf("storage is not configured")
	}
	var found int
	err := s.sqlDB.QueryRowContext(ctx, `SELECT 1 FROM accepted_flags WHERE flag = ?`, flag).Scan(&found)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lookup accepted flag: %w", err)
	}
	return true, nil
}

// Add records flag as accepted. The first acceptance time is kept.
func (s *Store) Add(ctx context.Context, flag string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT OR IGNORE INTO accepted_flags (flag, accepted_at) VALUES (?, ?)`,
		flag,
		s.clock().UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("insert accepted flag: %w", err)
	}
	return nil
}

// Count returns the number of accepted flags.
func (s *Store) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s == nil || s.sqlDB == nil {
		return 0, fmt.Errorf("storage is not configured")
	}
	var count int
	if err := s.sqlDB.QueryRowContext(ctx, `SELECT COUNT(*) FROM accepted_flags`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count accepted flags: %w", err)
	}
	return count, nil
}

var _ storage.AcceptedFlagStore = (*Store)(nil)
