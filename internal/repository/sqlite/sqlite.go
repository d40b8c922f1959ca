// Package sqlite implements the repositories on SQLite for single-node
// deployments and tests. Dates are stored as YYYY-MM-DD text and timestamps
// as fixed-width UTC text, so lexical order equals chronological order.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/rakhaabhirama/leave-tracker-pro-63/internal/pkg/database"
)

const (
	dateLayout      = "2006-01-02"
	timestampLayout = "2006-01-02 15:04:05.000000000"
)

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

func parseTimestamp(s string) (time.Time, error) {
	return time.ParseInLocation(timestampLayout, s, time.UTC)
}

func formatDate(t time.Time) string {
	return t.Format(dateLayout)
}

func parseDate(s string) (time.Time, error) {
	return time.ParseInLocation(dateLayout, s, time.UTC)
}

func now() string {
	return formatTimestamp(time.Now())
}

type txKey struct{}

// getQuerier returns the transaction carried by ctx, or the database.
func getQuerier(ctx context.Context, db *database.SQLiteDB) database.SQLQuerier {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return tx
	}
	return db.DB
}

type transactor struct {
	db *database.SQLiteDB
}

func NewTransactor(db *database.SQLiteDB) database.Transactor {
	return &transactor{db: db}
}

// WithinTransaction implements database.Transactor.
func (t *transactor) WithinTransaction(ctx context.Context, fn func(txCtx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return fn(ctx)
	}

	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				slog.Error("rollback error during panic recovery", "error", rbErr)
			}
			panic(p)
		}
	}()

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback error: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) &&
		(sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique || sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey)
}

const schema = `
CREATE TABLE IF NOT EXISTS admins (
	id TEXT PRIMARY KEY,
	email TEXT NOT NULL UNIQUE,
	name TEXT NOT NULL DEFAULT '',
	password_hash TEXT NOT NULL,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS employees (
	id TEXT PRIMARY KEY,
	employee_number TEXT NOT NULL UNIQUE,
	name TEXT NOT NULL,
	position TEXT NOT NULL,
	department TEXT NOT NULL DEFAULT '',
	prior_year_balance INTEGER NOT NULL DEFAULT 0 CHECK (prior_year_balance >= 0),
	current_year_balance INTEGER NOT NULL DEFAULT 12 CHECK (current_year_balance >= 0),
	two_years_ago_balance INTEGER NOT NULL DEFAULT 0 CHECK (two_years_ago_balance >= 0),
	next_year_backup_balance INTEGER CHECK (next_year_backup_balance >= 0),
	version INTEGER NOT NULL DEFAULT 1,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS leave_history (
	id TEXT PRIMARY KEY,
	employee_id TEXT NOT NULL REFERENCES employees(id) ON DELETE CASCADE,
	kind TEXT NOT NULL CHECK (kind IN ('accrual', 'consumption')),
	days INTEGER NOT NULL CHECK (days > 0),
	start_date TEXT,
	end_date TEXT,
	cancels_entry_id TEXT REFERENCES leave_history(id) ON DELETE CASCADE,
	reason TEXT NOT NULL,
	admin_id TEXT NOT NULL,
	created_at TEXT NOT NULL,
	CHECK (end_date >= start_date),
	CHECK (kind <> 'consumption' OR start_date IS NOT NULL)
);

CREATE INDEX IF NOT EXISTS idx_leave_history_employee_created
	ON leave_history(employee_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_leave_history_consumption_period
	ON leave_history(employee_id, start_date, end_date) WHERE kind = 'consumption';
CREATE INDEX IF NOT EXISTS idx_leave_history_cancels
	ON leave_history(cancels_entry_id) WHERE cancels_entry_id IS NOT NULL;

CREATE TABLE IF NOT EXISTS leave_year_settings (
	id TEXT PRIMARY KEY,
	singleton INTEGER NOT NULL DEFAULT 1 UNIQUE CHECK (singleton = 1),
	current_year INTEGER NOT NULL,
	previous_year INTEGER,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS rollover_runs (
	id TEXT PRIMARY KEY,
	operation TEXT NOT NULL,
	from_year INTEGER NOT NULL,
	to_year INTEGER NOT NULL,
	status TEXT NOT NULL,
	cursor_employee_id TEXT NOT NULL DEFAULT '',
	snapshot_key TEXT,
	error TEXT,
	admin_id TEXT NOT NULL,
	started_at TEXT NOT NULL,
	finished_at TEXT
);

CREATE TABLE IF NOT EXISTS rollover_run_items (
	run_id TEXT NOT NULL REFERENCES rollover_runs(id) ON DELETE CASCADE,
	employee_id TEXT NOT NULL,
	applied_at TEXT NOT NULL,
	PRIMARY KEY (run_id, employee_id)
);
`

// Migrate creates the schema if it does not exist.
func Migrate(ctx context.Context, db *database.SQLiteDB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}
