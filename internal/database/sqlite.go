// Package database keeps content and journals in SQLite.
package database

import (
	"database/sql"
	"fmt"

	"feedstore/internal/database/migrations"
	"feedstore/internal/feed"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteDatabase owns a migrated SQLite connection shared by the content
// and journal stores built on it.
type SQLiteDatabase struct {
	db   *sql.DB
	path string
}

// NewSQLiteDatabase opens path and brings its schema up to date.
// path can be a file path or ":memory:".
func NewSQLiteDatabase(path string) (*SQLiteDatabase, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}
	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteDatabase{db: db, path: path}, nil
}

// Open opens the database backing a storage at path, brings its schema up
// to date and verifies the result.
func Open(path string, logger feed.Logger) (*SQLiteDatabase, error) {
	db, err := NewSQLiteDatabase(path)
	if err != nil {
		return nil, err
	}
	if err := db.CheckMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database schema out of date: %w", err)
	}
	if logger != nil {
		logger.Debug("sqlite database opened", "path", db.Path())
	}
	return db, nil
}

// OpenConnection opens a SQLite connection with foreign keys enabled. The
// pool is limited to one connection so ":memory:" databases are shared by
// every query.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	return db, nil
}

// Path returns the database file path (or ":memory:").
func (s *SQLiteDatabase) Path() string {
	return s.path
}

// CheckMigrations verifies the database schema is up-to-date.
func (s *SQLiteDatabase) CheckMigrations() error {
	return migrations.CheckDBMigrationStatus(s.db)
}

func (s *SQLiteDatabase) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
