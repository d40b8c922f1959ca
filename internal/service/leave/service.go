package leave

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rakhaabhirama/leave-tracker-pro-63/internal/domain/employee"
	"github.com/rakhaabhirama/leave-tracker-pro-63/internal/domain/leave"
	"github.com/rakhaabhirama/leave-tracker-pro-63/internal/pkg/database"
	"github.com/rakhaabhirama/leave-tracker-pro-63/internal/pkg/metrics"
	"github.com/rakhaabhirama/leave-tracker-pro-63/internal/pkg/workday"
)

const (
	opTake   = "take"
	opAdd    = "add"
	opCancel = "cancel"
)

type LeaveServiceImpl struct {
	transactor   database.Transactor
	historyRepo  leave.HistoryRepository
	employeeRepo employee.EmployeeRepository
	ledger       Ledger
	notifier     leave.ChangeNotifier
	metrics      *metrics.Metrics
}

func NewLeaveService(
	transactor database.Transactor,
	historyRepo leave.HistoryRepository,
	employeeRepo employee.EmployeeRepository,
	ledger Ledger,
	notifier leave.ChangeNotifier,
	m *metrics.Metrics,
) leave.LeaveService {
	return &LeaveServiceImpl{
		transactor:   transactor,
		historyRepo:  historyRepo,
		employeeRepo: employeeRepo,
		ledger:       ledger,
		notifier:     notifier,
		metrics:      m,
	}
}

// Take implements leave.LeaveService.
func (s *LeaveServiceImpl) Take(ctx context.Context, adminID string, req leave.TakeLeaveRequest) (leave.TransactionResponse, error) {
	if err := req.Validate(); err != nil {
		return leave.TransactionResponse{}, err
	}
	period := leave.NormalizePeriod(req.Period)
	days := dayCount(req.Days, period)

	entry := leave.HistoryEntry{
		EmployeeID: req.EmployeeID,
		Kind:       leave.KindConsumption,
		Days:       days,
		Period:     &period,
		Reason:     req.Reason,
		AdminID:    adminID,
	}
	return s.mutate(ctx, opTake, entry, func(txCtx context.Context, emp employee.Employee, entry *leave.HistoryEntry) (leave.Balance, error) {
		return s.ledger.Take(emp.Balance(), entry.Days)
	})
}

// Add implements leave.LeaveService.
func (s *LeaveServiceImpl) Add(ctx context.Context, adminID string, req leave.AddLeaveRequest) (leave.TransactionResponse, error) {
	if err := req.Validate(); err != nil {
		return leave.TransactionResponse{}, err
	}

	entry := leave.HistoryEntry{
		EmployeeID: req.EmployeeID,
		Kind:       leave.KindAccrual,
		Days:       req.Days,
		Reason:     req.Reason,
		AdminID:    adminID,
	}
	return s.mutate(ctx, opAdd, entry, func(txCtx context.Context, emp employee.Employee, entry *leave.HistoryEntry) (leave.Balance, error) {
		return s.ledger.Add(emp.Balance(), entry.Days)
	})
}

// Cancel implements leave.LeaveService. The period must lie inside a
// recorded consumption, and a consumption is never restored beyond its
// own day count.
func (s *LeaveServiceImpl) Cancel(ctx context.Context, adminID string, req leave.CancelLeaveRequest) (leave.TransactionResponse, error) {
	if err := req.Validate(); err != nil {
		return leave.TransactionResponse{}, err
	}
	period := leave.NormalizePeriod(req.Period)
	days := dayCount(req.Days, period)

	entry := leave.HistoryEntry{
		EmployeeID: req.EmployeeID,
		Kind:       leave.KindAccrual,
		Days:       days,
		Period:     &period,
		Reason:     req.Reason,
		AdminID:    adminID,
	}
	return s.mutate(ctx, opCancel, entry, func(txCtx context.Context, emp employee.Employee, entry *leave.HistoryEntry) (leave.Balance, error) {
		consumption, err := s.historyRepo.FindContaining(txCtx, emp.ID, leave.KindConsumption, period)
		if err != nil {
			return leave.Balance{}, err
		}
		if consumption == nil {
			return leave.Balance{}, leave.ErrNoMatchingLeavePeriod
		}

		restored, err := s.historyRepo.RestoredDays(txCtx, consumption.ID)
		if err != nil {
			return leave.Balance{}, err
		}
		if restored+entry.Days > consumption.Days {
			return leave.Balance{}, fmt.Errorf("%w: %d of %d days already restored",
				leave.ErrLeaveAlreadyCancelled, restored, consumption.Days)
		}

		entry.CancelsEntryID = &consumption.ID
		return s.ledger.Restore(emp.Balance(), entry.Days)
	})
}

type balanceFunc func(txCtx context.Context, emp employee.Employee, entry *leave.HistoryEntry) (leave.Balance, error)

// mutate runs one ledger operation: lock the employee, compute the new
// buckets, write them under the version check and append the history entry,
// all in one transaction. The request context is detached so a disconnecting
// client cannot abort a half-written mutation.
func (s *LeaveServiceImpl) mutate(ctx context.Context, op string, entry leave.HistoryEntry, compute balanceFunc) (leave.TransactionResponse, error) {
	ctx = context.WithoutCancel(ctx)
	entry.CreatedAt = time.Now().UTC()

	var next leave.Balance
	err := s.transactor.WithinTransaction(ctx, func(txCtx context.Context) error {
		emp, err := s.employeeRepo.GetByIDForUpdate(txCtx, entry.EmployeeID)
		if err != nil {
			return err
		}

		next, err = compute(txCtx, emp, &entry)
		if err != nil {
			return err
		}

		if err := s.employeeRepo.UpdateBalance(txCtx, emp.ID, emp.Version, next); err != nil {
			return err
		}

		id, err := s.historyRepo.Append(txCtx, entry)
		if err != nil {
			return err
		}
		entry.ID = id
		return nil
	})
	s.metrics.ObserveLeave(op, entry.Days, err)
	if err != nil {
		if errors.Is(err, employee.ErrEmployeeNotFound) {
			return leave.TransactionResponse{}, err
		}
		return leave.TransactionResponse{}, leave.StorageError("failed to "+op+" leave", err)
	}

	slog.Info("leave balance updated",
		"operation", op,
		"employee_id", entry.EmployeeID,
		"days", entry.Days,
		"prior_year_balance", next.PriorYear,
		"current_year_balance", next.CurrentYear,
		"admin_id", entry.AdminID,
	)
	if s.notifier != nil {
		s.notifier.HistoryChanged(ctx, entry.EmployeeID)
	}

	return leave.TransactionResponse{
		Entry:              leave.NewHistoryEntryResponse(entry),
		PriorYearBalance:   next.PriorYear,
		CurrentYearBalance: next.CurrentYear,
		TotalBalance:       next.Total(),
	}, nil
}

// ListHistory implements leave.LeaveService. A limit of zero lists everything.
func (s *LeaveServiceImpl) ListHistory(ctx context.Context, employeeID string, limit int) ([]leave.HistoryEntryResponse, error) {
	if _, err := s.employeeRepo.GetByID(ctx, employeeID); err != nil {
		if errors.Is(err, employee.ErrEmployeeNotFound) {
			return nil, err
		}
		return nil, leave.StorageError("failed to get employee", err)
	}

	entries := make([]leave.HistoryEntryResponse, 0)
	for entry, err := range s.historyRepo.ListByEmployee(ctx, employeeID) {
		if err != nil {
			return nil, leave.StorageError("failed to list leave history", err)
		}
		entries = append(entries, leave.NewHistoryEntryResponse(entry))
		if limit > 0 && len(entries) == limit {
			break
		}
	}
	return entries, nil
}

// dayCount prefers an explicit day count over the working days of period.
func dayCount(explicit *int, period leave.DateRange) int {
	if explicit != nil {
		return *explicit
	}
	return workday.LeaveDays(period.Start, period.End)
}
