// Package db is the local store of the client: cached sessions and small
// user preferences, kept in a SQLite file shared by every shinomontaz
// process of the user.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

type DB struct {
	sql     *sql.DB
	version int
}

// dsn builds a modernc SQLite URI. WAL lets a CLI call write while a
// dashboard holds the file open.
func dsn(path string) string {
	q := url.Values{}
	q.Add("_pragma", "busy_timeout(3000)")
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", "synchronous(NORMAL)")
	return "file:" + path + "?" + q.Encode()
}

// Open opens or creates the database at path and migrates it to the
// current schema. Missing parent directories are created owner-only.
func Open(ctx context.Context, path string) (*DB, error) {
	if path == "" {
		return nil, errors.New("db path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	ms, err := loadMigrations(migrationsFS)
	if err != nil {
		return nil, err
	}

	s, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, err
	}
	s.SetMaxOpenConns(1)

	pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := s.PingContext(pctx); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	v, err := migrate(ctx, s, ms)
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return &DB{sql: s, version: v}, nil
}

// SchemaVersion is the migration level of the open file.
func (d *DB) SchemaVersion() int { return d.version }

func (d *DB) Close() error {
	return d.sql.Close()
}
