package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rakhaabhirama/leave-tracker-pro-63/internal/domain/employee"
	"github.com/rakhaabhirama/leave-tracker-pro-63/internal/domain/leave"
	"github.com/rakhaabhirama/leave-tracker-pro-63/internal/pkg/database"
)

const employeeColumns = `
	id, employee_number, name, position, department,
	prior_year_balance, current_year_balance, two_years_ago_balance, next_year_backup_balance,
	version, created_at, updated_at`

type employeeRepositoryImpl struct {
	db *database.DB
}

func NewEmployeeRepository(db *database.DB) employee.EmployeeRepository {
	return &employeeRepositoryImpl{db: db}
}

func scanEmployee(row pgx.Row) (employee.Employee, error) {
	var e employee.Employee
	err := row.Scan(
		&e.ID, &e.EmployeeNumber, &e.Name, &e.Position, &e.Department,
		&e.PriorYearBalance, &e.CurrentYearBalance, &e.TwoYearsAgoBalance, &e.NextYearBackupBalance,
		&e.Version, &e.CreatedAt, &e.UpdatedAt,
	)
	return e, err
}

func collectEmployees(rows pgx.Rows) ([]employee.Employee, error) {
	defer rows.Close()

	employees := make([]employee.Employee, 0)
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan employee: %w", err)
		}
		employees = append(employees, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate employees: %w", err)
	}
	return employees, nil
}

// Create implements employee.EmployeeRepository.
func (r *employeeRepositoryImpl) Create(ctx context.Context, e employee.Employee) (employee.Employee, error) {
	q := GetQuerier(ctx, r.db)

	if e.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return employee.Employee{}, fmt.Errorf("failed to generate employee id: %w", err)
		}
		e.ID = id.String()
	}

	query := `
		INSERT INTO employees (id, employee_number, name, position, department,
			prior_year_balance, current_year_balance)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING` + employeeColumns

	created, err := scanEmployee(q.QueryRow(ctx, query,
		e.ID, e.EmployeeNumber, e.Name, e.Position, e.Department,
		e.PriorYearBalance, e.CurrentYearBalance,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return employee.Employee{}, employee.ErrEmployeeNumberExists
		}
		return employee.Employee{}, fmt.Errorf("failed to create employee: %w", err)
	}
	return created, nil
}

// GetByID implements employee.EmployeeRepository.
func (r *employeeRepositoryImpl) GetByID(ctx context.Context, id string) (employee.Employee, error) {
	return r.getByID(ctx, id, "")
}

// GetByIDForUpdate implements employee.EmployeeRepository.
func (r *employeeRepositoryImpl) GetByIDForUpdate(ctx context.Context, id string) (employee.Employee, error) {
	return r.getByID(ctx, id, " FOR UPDATE")
}

func (r *employeeRepositoryImpl) getByID(ctx context.Context, id string, lock string) (employee.Employee, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT` + employeeColumns + ` FROM employees WHERE id = $1` + lock

	e, err := scanEmployee(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return employee.Employee{}, employee.ErrEmployeeNotFound
		}
		return employee.Employee{}, fmt.Errorf("failed to get employee %s: %w", id, err)
	}
	return e, nil
}

// Update implements employee.EmployeeRepository.
func (r *employeeRepositoryImpl) Update(ctx context.Context, e employee.Employee) (employee.Employee, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE employees
		SET employee_number = $2, name = $3, position = $4, department = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING` + employeeColumns

	updated, err := scanEmployee(q.QueryRow(ctx, query, e.ID, e.EmployeeNumber, e.Name, e.Position, e.Department))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return employee.Employee{}, employee.ErrEmployeeNotFound
		}
		if isUniqueViolation(err) {
			return employee.Employee{}, employee.ErrEmployeeNumberExists
		}
		return employee.Employee{}, fmt.Errorf("failed to update employee %s: %w", e.ID, err)
	}
	return updated, nil
}

// Delete implements employee.EmployeeRepository.
func (r *employeeRepositoryImpl) Delete(ctx context.Context, id string) error {
	q := GetQuerier(ctx, r.db)

	tag, err := q.Exec(ctx, `DELETE FROM employees WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete employee %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return employee.ErrEmployeeNotFound
	}
	return nil
}

// List implements employee.EmployeeRepository.
func (r *employeeRepositoryImpl) List(ctx context.Context, search string) ([]employee.Employee, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT` + employeeColumns + `
		FROM employees
		WHERE $1 = '' OR name ILIKE '%' || $1 || '%' OR employee_number ILIKE '%' || $1 || '%'
		ORDER BY name, id
	`

	rows, err := q.Query(ctx, query, search)
	if err != nil {
		return nil, fmt.Errorf("failed to list employees: %w", err)
	}
	return collectEmployees(rows)
}

// UpdateBalance implements employee.EmployeeRepository.
func (r *employeeRepositoryImpl) UpdateBalance(ctx context.Context, id string, version int64, b leave.Balance) error {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE employees
		SET prior_year_balance = $3, current_year_balance = $4, version = version + 1, updated_at = NOW()
		WHERE id = $1 AND version = $2
	`

	tag, err := q.Exec(ctx, query, id, version, b.PriorYear, b.CurrentYear)
	if err != nil {
		return fmt.Errorf("failed to update balance of employee %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return leave.ErrConcurrentUpdate
	}
	return nil
}

// ListAfter implements employee.EmployeeRepository.
func (r *employeeRepositoryImpl) ListAfter(ctx context.Context, afterID string, limit int) ([]employee.Employee, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT` + employeeColumns + `
		FROM employees
		WHERE id::text > $1
		ORDER BY id::text
		LIMIT $2
	`

	rows, err := q.Query(ctx, query, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to page employees: %w", err)
	}
	return collectEmployees(rows)
}

// UpdateRolloverState implements employee.EmployeeRepository.
func (r *employeeRepositoryImpl) UpdateRolloverState(ctx context.Context, e employee.Employee) error {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE employees
		SET prior_year_balance = $3, current_year_balance = $4,
			two_years_ago_balance = $5, next_year_backup_balance = $6,
			version = version + 1, updated_at = NOW()
		WHERE id = $1 AND version = $2
	`

	tag, err := q.Exec(ctx, query, e.ID, e.Version,
		e.PriorYearBalance, e.CurrentYearBalance, e.TwoYearsAgoBalance, e.NextYearBackupBalance)
	if err != nil {
		return fmt.Errorf("failed to roll over employee %s: %w", e.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return leave.ErrConcurrentUpdate
	}
	return nil
}

// CountWithForwardBackup implements employee.EmployeeRepository.
func (r *employeeRepositoryImpl) CountWithForwardBackup(ctx context.Context) (int64, error) {
	q := GetQuerier(ctx, r.db)

	var count int64
	err := q.QueryRow(ctx, `SELECT COUNT(*) FROM employees WHERE next_year_backup_balance IS NOT NULL`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count forward backups: %w", err)
	}
	return count, nil
}
