package employee

import (
	"time"

	"github.com/rakhaabhirama/leave-tracker-pro-63/internal/domain/leave"
)

type Employee struct {
	ID             string
	EmployeeNumber string // NIP
	Name           string
	Position       string
	Department     string

	PriorYearBalance   int
	CurrentYearBalance int

	// Rollback chain, written only by year rollover
	TwoYearsAgoBalance    int
	NextYearBackupBalance *int

	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (e Employee) Balance() leave.Balance {
	return leave.Balance{PriorYear: e.PriorYearBalance, CurrentYear: e.CurrentYearBalance}
}

func (e *Employee) SetBalance(b leave.Balance) {
	e.PriorYearBalance = b.PriorYear
	e.CurrentYearBalance = b.CurrentYear
}

type Status string

const (
	StatusOnLeave Status = "on_leave"
	StatusActive  Status = "active"
)

func (s Status) Valid() bool {
	return s == StatusOnLeave || s == StatusActive
}
