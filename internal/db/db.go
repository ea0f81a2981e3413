// Package db is the SQLite store behind the persistence actor.
package db

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// SchemaVersion is the newest migration this build knows about.
const SchemaVersion = 1

// BusyTimeout is how long a statement waits on a locked database file, for
// example while another kitchen process holds it.
const BusyTimeout = 5 * time.Second

// ErrSchemaMismatch indicates a database migrated by a newer build.
var ErrSchemaMismatch = errors.New("database schema mismatch")

type DB struct {
	*sql.DB
}

// Open opens the database at dbPath with WAL journaling and a single
// connection, so every statement is serialized the same way the actor
// serializes requests.
func Open(dbPath string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	pragmas := []string{
		fmt.Sprintf(`PRAGMA busy_timeout = %d`, BusyTimeout.Milliseconds()),
		`PRAGMA foreign_keys = ON`,
	}
	for _, p := range pragmas {
		if _, err := sqlDB.Exec(p); err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("%s: %w", p, err)
		}
	}

	var mode string
	if err := sqlDB.QueryRow(`PRAGMA journal_mode = WAL`).Scan(&mode); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}
	// In-memory databases cannot use WAL and report "memory".
	if m := strings.ToLower(mode); m != "wal" && m != "memory" {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("setting WAL mode: journal mode is %s", mode)
	}

	return &DB{DB: sqlDB}, nil
}

func (db *DB) provider() (*goose.Provider, error) {
	migrations, err := fs.Sub(embedMigrations, "migrations")
	if err != nil {
		return nil, fmt.Errorf("loading migrations: %w", err)
	}
	p, err := goose.NewProvider(goose.DialectSQLite3, db.DB, migrations)
	if err != nil {
		return nil, fmt.Errorf("creating migration provider: %w", err)
	}
	return p, nil
}

// Migrate brings the orders and inventory tables up to SchemaVersion. It
// refuses a database that is already past it.
func (db *DB) Migrate(ctx context.Context) error {
	p, err := db.provider()
	if err != nil {
		return err
	}

	current, err := p.GetDBVersion(ctx)
	if err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}
	if current > SchemaVersion {
		return fmt.Errorf("%w: database is at version %d, this build knows %d", ErrSchemaMismatch, current, SchemaVersion)
	}

	if _, err := p.Up(ctx); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	return db.CheckSchema(ctx)
}

// CheckSchema verifies the database is at exactly SchemaVersion.
func (db *DB) CheckSchema(ctx context.Context) error {
	p, err := db.provider()
	if err != nil {
		return err
	}
	current, err := p.GetDBVersion(ctx)
	if err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}
	if current != SchemaVersion {
		return fmt.Errorf("%w: database is at version %d, want %d", ErrSchemaMismatch, current, SchemaVersion)
	}
	return nil
}
