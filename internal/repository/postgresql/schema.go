package postgresql

import (
	"context"
	"fmt"

	"github.com/rakhaabhirama/leave-tracker-pro-63/internal/pkg/database"
)

const schema = `
CREATE TABLE IF NOT EXISTS admins (
	id UUID PRIMARY KEY,
	email VARCHAR(255) NOT NULL UNIQUE,
	name VARCHAR(255) NOT NULL DEFAULT '',
	password_hash TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS employees (
	id UUID PRIMARY KEY,
	employee_number VARCHAR(50) NOT NULL UNIQUE,
	name VARCHAR(255) NOT NULL,
	position VARCHAR(100) NOT NULL,
	department VARCHAR(255) NOT NULL DEFAULT '',
	prior_year_balance INTEGER NOT NULL DEFAULT 0 CHECK (prior_year_balance >= 0),
	current_year_balance INTEGER NOT NULL DEFAULT 12 CHECK (current_year_balance >= 0),
	two_years_ago_balance INTEGER NOT NULL DEFAULT 0 CHECK (two_years_ago_balance >= 0),
	next_year_backup_balance INTEGER CHECK (next_year_backup_balance >= 0),
	version BIGINT NOT NULL DEFAULT 1,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS leave_history (
	id UUID PRIMARY KEY,
	employee_id UUID NOT NULL REFERENCES employees(id) ON DELETE CASCADE,
	kind VARCHAR(20) NOT NULL CHECK (kind IN ('accrual', 'consumption')),
	days INTEGER NOT NULL CHECK (days > 0),
	start_date DATE,
	end_date DATE,
	cancels_entry_id UUID REFERENCES leave_history(id) ON DELETE CASCADE,
	reason VARCHAR(500) NOT NULL,
	admin_id UUID NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
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
	id UUID PRIMARY KEY,
	singleton BOOLEAN NOT NULL DEFAULT TRUE UNIQUE CHECK (singleton),
	current_year INTEGER NOT NULL,
	previous_year INTEGER,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS rollover_runs (
	id UUID PRIMARY KEY,
	operation VARCHAR(20) NOT NULL,
	from_year INTEGER NOT NULL,
	to_year INTEGER NOT NULL,
	status VARCHAR(20) NOT NULL,
	cursor_employee_id TEXT NOT NULL DEFAULT '',
	snapshot_key TEXT,
	error TEXT,
	admin_id UUID NOT NULL,
	started_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	finished_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS rollover_run_items (
	run_id UUID NOT NULL REFERENCES rollover_runs(id) ON DELETE CASCADE,
	employee_id UUID NOT NULL,
	applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (run_id, employee_id)
);
`

// Migrate creates the schema if it does not exist.
func Migrate(ctx context.Context, db *database.DB) error {
	if _, err := db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}
