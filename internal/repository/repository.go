// Package repository opens the configured store and hands out its
// repositories.
package repository

import (
	"context"
	"fmt"

	"github.com/rakhaabhirama/leave-tracker-pro-63/internal/config"
	"github.com/rakhaabhirama/leave-tracker-pro-63/internal/domain/auth"
	"github.com/rakhaabhirama/leave-tracker-pro-63/internal/domain/employee"
	"github.com/rakhaabhirama/leave-tracker-pro-63/internal/domain/leave"
	"github.com/rakhaabhirama/leave-tracker-pro-63/internal/domain/leaveyear"
	"github.com/rakhaabhirama/leave-tracker-pro-63/internal/pkg/database"
	"github.com/rakhaabhirama/leave-tracker-pro-63/internal/repository/postgresql"
	"github.com/rakhaabhirama/leave-tracker-pro-63/internal/repository/sqlite"
)

type Repositories struct {
	Transactor database.Transactor
	Employees  employee.EmployeeRepository
	History    leave.HistoryRepository
	Settings   leaveyear.SettingsRepository
	Runs       leaveyear.RunRepository
	Admins     auth.AdminRepository

	close func()
}

func (r *Repositories) Close() {
	if r.close != nil {
		r.close()
	}
}

// Open connects to the driver named in cfg and applies the schema.
func Open(ctx context.Context, cfg *config.Config) (*Repositories, error) {
	switch cfg.Database.Driver {
	case config.DriverPostgres:
		db, err := database.NewPostgreSQLDB(ctx, cfg.DatabaseURL())
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		if err := postgresql.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, err
		}
		return &Repositories{
			Transactor: postgresql.NewTransactor(db),
			Employees:  postgresql.NewEmployeeRepository(db),
			History:    postgresql.NewLeaveHistoryRepository(db),
			Settings:   postgresql.NewLeaveYearSettingsRepository(db),
			Runs:       postgresql.NewRolloverRunRepository(db),
			Admins:     postgresql.NewAdminRepository(db),
			close:      db.Close,
		}, nil

	case config.DriverSQLite:
		db, err := database.NewSQLiteDB(cfg.Database.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite: %w", err)
		}
		if err := sqlite.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, err
		}
		return &Repositories{
			Transactor: sqlite.NewTransactor(db),
			Employees:  sqlite.NewEmployeeRepository(db),
			History:    sqlite.NewLeaveHistoryRepository(db),
			Settings:   sqlite.NewLeaveYearSettingsRepository(db),
			Runs:       sqlite.NewRolloverRunRepository(db),
			Admins:     sqlite.NewAdminRepository(db),
			close:      func() { _ = db.Close() },
		}, nil

	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}
}
