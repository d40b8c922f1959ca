package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteDB is the single-node store used for local deployments and tests.
type SQLiteDB struct {
	*sql.DB
}

// NewSQLiteDB opens path with foreign keys enforced. Use ":memory:" for an
// in-memory database.
func NewSQLiteDB(path string) (*SQLiteDB, error) {
	dsn := path + "?_foreign_keys=on&_busy_timeout=5000"
	if !strings.HasPrefix(path, ":memory:") {
		dsn += "&_journal_mode=WAL"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite allows one writer; a single connection also keeps an in-memory
	// database alive and shared by every caller.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(context.Background()); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteDB{DB: db}, nil
}

type SQLQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}
