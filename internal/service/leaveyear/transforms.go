package leaveyear

import (
	"github.com/rakhaabhirama/leave-tracker-pro-63/internal/domain/employee"
	"github.com/rakhaabhirama/leave-tracker-pro-63/internal/domain/leaveyear"
)

// rollEmployee applies op to the four buckets of e.
//
//	advance:         two_years_ago := prior, prior := current, current := grant, forward := nil
//	revert_previous: forward := current, current := prior, prior := two_years_ago, two_years_ago := 0
//	revert_next:     two_years_ago := prior, prior := current, current := forward ?? grant, forward := nil
func rollEmployee(op leaveyear.Operation, e employee.Employee, grant int) (employee.Employee, error) {
	switch op {
	case leaveyear.OperationAdvance:
		e.TwoYearsAgoBalance = e.PriorYearBalance
		e.PriorYearBalance = e.CurrentYearBalance
		e.CurrentYearBalance = grant
		e.NextYearBackupBalance = nil
	case leaveyear.OperationRevertPrevious:
		forward := e.CurrentYearBalance
		e.NextYearBackupBalance = &forward
		e.CurrentYearBalance = e.PriorYearBalance
		e.PriorYearBalance = e.TwoYearsAgoBalance
		e.TwoYearsAgoBalance = 0
	case leaveyear.OperationRevertNext:
		current := grant
		if e.NextYearBackupBalance != nil {
			current = *e.NextYearBackupBalance
		}
		e.TwoYearsAgoBalance = e.PriorYearBalance
		e.PriorYearBalance = e.CurrentYearBalance
		e.CurrentYearBalance = current
		e.NextYearBackupBalance = nil
	default:
		return e, leaveyear.ErrInvalidOperation
	}
	return e, nil
}

// nextYears returns the settings years after op, without persisting them.
func nextYears(op leaveyear.Operation, s leaveyear.Settings) (leaveyear.Settings, error) {
	switch op {
	case leaveyear.OperationAdvance, leaveyear.OperationRevertNext:
		previous := s.CurrentYear
		s.PreviousYear = &previous
		s.CurrentYear++
	case leaveyear.OperationRevertPrevious:
		if s.PreviousYear == nil {
			return s, leaveyear.ErrNoPreviousYear
		}
		s.CurrentYear = *s.PreviousYear
		s.PreviousYear = nil
	default:
		return s, leaveyear.ErrInvalidOperation
	}
	return s, nil
}

// settingsAfter rebuilds the settings a run leaves behind from its years, so
// a resumed run does not depend on what the settings row holds meanwhile.
func settingsAfter(run leaveyear.Run, id string) leaveyear.Settings {
	s := leaveyear.Settings{ID: id, CurrentYear: run.ToYear}
	if run.Operation != leaveyear.OperationRevertPrevious {
		from := run.FromYear
		s.PreviousYear = &from
	}
	return s
}
