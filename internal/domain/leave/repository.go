package leave

import (
	"context"
	"iter"
	"time"
)

// HistoryFilter narrows history listings that span employees.
type HistoryFilter struct {
	EmployeeID *string
	Kind       *Kind
	From       *time.Time
	To         *time.Time
	Limit      int
}

// HistoryRepository is the append-only store of balance mutations.
type HistoryRepository interface {
	// Append stores entry and returns its ID.
	Append(ctx context.Context, entry HistoryEntry) (string, error)

	// FindContaining returns the most specific entry of kind whose period
	// covers period (shortest period first, then newest). A single date is
	// queried as a one-day period.
	FindContaining(ctx context.Context, employeeID string, kind Kind, period DateRange) (*HistoryEntry, error)

	// ListByEmployee yields the employee's entries, newest first. Every range
	// over the sequence re-runs the query.
	ListByEmployee(ctx context.Context, employeeID string) iter.Seq2[HistoryEntry, error]

	// RestoredDays sums the days of cancellations referencing consumptionID.
	RestoredDays(ctx context.Context, consumptionID string) (int, error)

	// OnLeaveEmployeeIDs returns the employees with a consumption covering date.
	OnLeaveEmployeeIDs(ctx context.Context, date time.Time) ([]string, error)

	List(ctx context.Context, filter HistoryFilter) ([]HistoryRecord, error)
}
