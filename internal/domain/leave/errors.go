package leave

import (
	"errors"
	"fmt"
)

var (
	ErrInsufficientBalance   = errors.New("insufficient leave balance")
	ErrInvalidDateRange      = errors.New("end date is before start date")
	ErrNoMatchingLeavePeriod = errors.New("no recorded leave covers the cancellation period")
	ErrLeaveAlreadyCancelled = errors.New("leave period has already been restored")
	ErrInvalidDays           = errors.New("day count must be greater than zero")
	ErrStorageUnavailable    = errors.New("leave storage unavailable")
	ErrConcurrentUpdate      = errors.New("employee balance was modified concurrently")
	ErrHistoryEntryNotFound  = errors.New("history entry not found")
)

// InsufficientBalanceError reports the balance available when a consumption
// was rejected.
type InsufficientBalanceError struct {
	Available int
	Requested int
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient leave balance: available %d, requested %d", e.Available, e.Requested)
}

func (e *InsufficientBalanceError) Unwrap() error {
	return ErrInsufficientBalance
}

// StorageError marks err as a transient storage failure. Domain errors pass
// through untouched.
func StorageError(op string, err error) error {
	if err == nil || isDomainError(err) {
		return err
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStorageUnavailable, err)
}

func isDomainError(err error) bool {
	for _, target := range []error{
		ErrInsufficientBalance,
		ErrInvalidDateRange,
		ErrNoMatchingLeavePeriod,
		ErrLeaveAlreadyCancelled,
		ErrInvalidDays,
		ErrStorageUnavailable,
		ErrConcurrentUpdate,
		ErrHistoryEntryNotFound,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
