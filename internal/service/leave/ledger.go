package leave

import (
	"github.com/rakhaabhirama/leave-tracker-pro-63/internal/domain/leave"
)

// DefaultAnnualGrant is the number of days credited to the current-year
// bucket at each rollover.
const DefaultAnnualGrant = 12

// Ledger computes bucket transitions. It never touches storage.
type Ledger struct {
	annualGrant int
}

func NewLedger(annualGrant int) Ledger {
	if annualGrant <= 0 {
		annualGrant = DefaultAnnualGrant
	}
	return Ledger{annualGrant: annualGrant}
}

func (l Ledger) AnnualGrant() int {
	return l.annualGrant
}

// Take debits n days, prior-year bucket first.
func (l Ledger) Take(b leave.Balance, n int) (leave.Balance, error) {
	if n <= 0 {
		return b, leave.ErrInvalidDays
	}
	if b.Total() < n {
		return b, &leave.InsufficientBalanceError{Available: b.Total(), Requested: n}
	}

	fromPrior := min(b.PriorYear, n)
	return leave.Balance{
		PriorYear:   b.PriorYear - fromPrior,
		CurrentYear: b.CurrentYear - (n - fromPrior),
	}, nil
}

// Add credits n days to the current-year bucket.
func (l Ledger) Add(b leave.Balance, n int) (leave.Balance, error) {
	if n <= 0 {
		return b, leave.ErrInvalidDays
	}
	b.CurrentYear += n
	return b, nil
}

// Restore credits n canceled days. The prior-year bucket is refilled up to
// the annual grant first and the remainder goes to the current-year bucket.
func (l Ledger) Restore(b leave.Balance, n int) (leave.Balance, error) {
	if n <= 0 {
		return b, leave.ErrInvalidDays
	}
	toPrior := 0
	if b.PriorYear < l.annualGrant {
		toPrior = min(n, l.annualGrant-b.PriorYear)
	}
	return leave.Balance{
		PriorYear:   b.PriorYear + toPrior,
		CurrentYear: b.CurrentYear + (n - toPrior),
	}, nil
}
