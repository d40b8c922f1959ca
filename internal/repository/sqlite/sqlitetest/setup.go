// Package sqlitetest builds in-memory stores for tests of the layers above
// the repositories.
package sqlitetest

import (
	"context"
	"testing"

	"github.com/rakhaabhirama/leave-tracker-pro-63/internal/domain/auth"
	"github.com/rakhaabhirama/leave-tracker-pro-63/internal/domain/employee"
	"github.com/rakhaabhirama/leave-tracker-pro-63/internal/domain/leave"
	"github.com/rakhaabhirama/leave-tracker-pro-63/internal/domain/leaveyear"
	"github.com/rakhaabhirama/leave-tracker-pro-63/internal/pkg/database"
	"github.com/rakhaabhirama/leave-tracker-pro-63/internal/repository/sqlite"
)

// Store bundles a migrated in-memory database with its repositories.
type Store struct {
	DB         *database.SQLiteDB
	Transactor database.Transactor
	Employees  employee.EmployeeRepository
	History    leave.HistoryRepository
	Settings   leaveyear.SettingsRepository
	Runs       leaveyear.RunRepository
	Admins     auth.AdminRepository
}

func New(t testing.TB) *Store {
	t.Helper()

	db, err := database.NewSQLiteDB(":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := sqlite.Migrate(context.Background(), db); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}

	return &Store{
		DB:         db,
		Transactor: sqlite.NewTransactor(db),
		Employees:  sqlite.NewEmployeeRepository(db),
		History:    sqlite.NewLeaveHistoryRepository(db),
		Settings:   sqlite.NewLeaveYearSettingsRepository(db),
		Runs:       sqlite.NewRolloverRunRepository(db),
		Admins:     sqlite.NewAdminRepository(db),
	}
}

// SeedEmployee inserts an employee with the given live buckets.
func (s *Store) SeedEmployee(t testing.TB, number string, prior, current int) employee.Employee {
	t.Helper()

	e, err := s.Employees.Create(context.Background(), employee.Employee{
		EmployeeNumber:     number,
		Name:               "Employee " + number,
		Position:           "JFU",
		Department:         "Umum",
		PriorYearBalance:   prior,
		CurrentYearBalance: current,
	})
	if err != nil {
		t.Fatalf("seed employee %s: %v", number, err)
	}
	return e
}
