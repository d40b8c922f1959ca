package employee

import (
	"context"

	"github.com/rakhaabhirama/leave-tracker-pro-63/internal/domain/leave"
)

type EmployeeRepository interface {
	Create(ctx context.Context, e Employee) (Employee, error)
	GetByID(ctx context.Context, id string) (Employee, error)

	// GetByIDForUpdate reads the employee and, where the store supports it,
	// locks the row until the surrounding transaction ends.
	GetByIDForUpdate(ctx context.Context, id string) (Employee, error)

	// Update writes the profile fields only.
	Update(ctx context.Context, e Employee) (Employee, error)
	Delete(ctx context.Context, id string) error

	// List returns employees whose name or number contains search
	// (case-insensitive); an empty search returns everyone.
	List(ctx context.Context, search string) ([]Employee, error)

	// UpdateBalance writes both live buckets if the stored version still
	// equals version, returning leave.ErrConcurrentUpdate otherwise.
	UpdateBalance(ctx context.Context, id string, version int64, b leave.Balance) error

	// ListAfter pages through all employees ordered by ID.
	ListAfter(ctx context.Context, afterID string, limit int) ([]Employee, error)

	// UpdateRolloverState writes all four buckets under a version check.
	UpdateRolloverState(ctx context.Context, e Employee) error

	CountWithForwardBackup(ctx context.Context) (int64, error)
}
