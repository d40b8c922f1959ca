package leave

import (
	"fmt"
	"time"
)

// Kind tags a history entry as a credit or a debit of the balance.
type Kind string

const (
	KindAccrual     Kind = "accrual"
	KindConsumption Kind = "consumption"
)

func (k Kind) Valid() bool {
	return k == KindAccrual || k == KindConsumption
}

func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if !k.Valid() {
		return "", fmt.Errorf("unknown history kind %q", s)
	}
	return k, nil
}

// DateRange is an inclusive range of calendar dates.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether d lies within the range, bounds included.
func (r DateRange) Contains(d time.Time) bool {
	return !d.Before(r.Start) && !d.After(r.End)
}

// Covers reports whether other lies entirely within the range.
func (r DateRange) Covers(other DateRange) bool {
	return !other.Start.Before(r.Start) && !other.End.After(r.End)
}

// Valid reports whether End is not before Start.
func (r DateRange) Valid() bool {
	return !r.End.Before(r.Start)
}

// Day returns the one-day range of d.
func Day(d time.Time) DateRange {
	return DateRange{Start: d, End: d}
}

// Balance is the two-bucket leave balance of an employee, in whole days.
type Balance struct {
	PriorYear   int
	CurrentYear int
}

func (b Balance) Total() int {
	return b.PriorYear + b.CurrentYear
}

// HistoryEntry is an immutable record of one balance mutation.
//
// Consumption entries always carry a Period. A cancellation is an Accrual
// carrying the canceled Period and the ID of the consumption it restores.
type HistoryEntry struct {
	ID             string
	EmployeeID     string
	Kind           Kind
	Days           int
	Period         *DateRange
	CancelsEntryID *string
	Reason         string
	AdminID        string
	CreatedAt      time.Time
}

func (h HistoryEntry) IsCancellation() bool {
	return h.Kind == KindAccrual && h.CancelsEntryID != nil
}

// HistoryRecord is a history entry joined with the employee it belongs to,
// used by listings that span employees.
type HistoryRecord struct {
	HistoryEntry
	EmployeeNumber string
	EmployeeName   string
}
