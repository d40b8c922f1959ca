package leave

import (
	"context"
	"time"
)

type LeaveService interface {
	Take(ctx context.Context, adminID string, req TakeLeaveRequest) (TransactionResponse, error)
	Add(ctx context.Context, adminID string, req AddLeaveRequest) (TransactionResponse, error)
	Cancel(ctx context.Context, adminID string, req CancelLeaveRequest) (TransactionResponse, error)
	ListHistory(ctx context.Context, employeeID string, limit int) ([]HistoryEntryResponse, error)
}

// ChangeNotifier is told about every committed history mutation.
type ChangeNotifier interface {
	HistoryChanged(ctx context.Context, employeeID string)
}

// OnLeaveResolver answers whether employees are on leave on a date. A
// consumption entry whose period contains the date puts its employee on leave.
type OnLeaveResolver interface {
	ChangeNotifier

	IsOnLeave(ctx context.Context, employeeID string, asOf time.Time) (bool, error)

	// OnLeaveSet returns the IDs of everyone on leave on asOf.
	OnLeaveSet(ctx context.Context, asOf time.Time) (map[string]struct{}, error)

	// Refresh recomputes today's set and publishes a change if it differs.
	Refresh(ctx context.Context) error
}
