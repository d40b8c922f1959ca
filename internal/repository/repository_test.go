package repository

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rakhaabhirama/leave-tracker-pro-63/internal/config"
	"github.com/rakhaabhirama/leave-tracker-pro-63/internal/domain/employee"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_SQLiteFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "leave.db")
	cfg := &config.Config{Database: config.DatabaseConfig{Driver: config.DriverSQLite, SQLitePath: path}}

	repos, err := Open(ctx, cfg)
	require.NoError(t, err)
	created, err := repos.Employees.Create(ctx, employee.Employee{EmployeeNumber: "1", Name: "A", Position: "JFU", CurrentYearBalance: 12})
	require.NoError(t, err)
	repos.Close()

	// Reopening applies the schema again without losing rows
	repos, err = Open(ctx, cfg)
	require.NoError(t, err)
	defer repos.Close()
	got, err := repos.Employees.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, 12, got.CurrentYearBalance)
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), &config.Config{Database: config.DatabaseConfig{Driver: "mysql"}})
	assert.ErrorContains(t, err, "mysql")
}
