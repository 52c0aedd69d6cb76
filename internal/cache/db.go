// Package cache is the local, best-effort mirror of remote documents. Each
// entity kind gets one SQLite table keyed by id holding the JSON payload;
// queries are reactive and re-run after every local mutation.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pocketbase/dbx"
	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// DB is an open cache database.
type DB struct {
	db     *dbx.DB
	logger *slog.Logger
}

// Open opens (creating if needed) the cache database at path.
func Open(path string, logger *slog.Logger) (*DB, error) {
	if logger == nil {
		logger = slog.Default()
	}

	dsn := path
	if path != MemoryPath && !strings.HasPrefix(path, "file:") {
		dsn = "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}

	db, err := dbx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	// A single connection serializes writers and keeps :memory: databases
	// shared by every query.
	db.DB().SetMaxOpenConns(1)

	logger.Debug("cache database opened", "path", path)
	return &DB{db: db, logger: logger}, nil
}

// Ping checks that the database still answers queries.
func (d *DB) Ping(ctx context.Context) error {
	return d.db.DB().PingContext(ctx)
}

// Close closes the underlying database.
func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) createTable(name string) error {
	if !validName(name) {
		return fmt.Errorf("invalid cache table name %q", name)
	}
	_, err := d.db.NewQuery(fmt.Sprintf(`CREATE TABLE IF NOT EXISTS {{%s}} (
		[[id]] TEXT PRIMARY KEY NOT NULL,
		[[payload]] TEXT NOT NULL,
		[[updated_at]] INTEGER NOT NULL
	)`, name)).Execute()
	if err != nil {
		return fmt.Errorf("failed to create cache table %s: %w", name, err)
	}
	return nil
}

func validName(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		if !(r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return false
		}
	}
	return true
}
