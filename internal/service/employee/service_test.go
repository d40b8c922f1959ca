package employee

import (
	"context"
	"testing"
	"time"

	"github.com/rakhaabhirama/leave-tracker-pro-63/internal/domain/employee"
	"github.com/rakhaabhirama/leave-tracker-pro-63/internal/domain/leave"
	"github.com/rakhaabhirama/leave-tracker-pro-63/internal/fixtures"
	"github.com/rakhaabhirama/leave-tracker-pro-63/internal/pkg/validator"
	"github.com/rakhaabhirama/leave-tracker-pro-63/internal/repository/sqlite/sqlitetest"
	"github.com/rakhaabhirama/leave-tracker-pro-63/internal/service/onleave"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(s string) time.Time {
	d, _ := time.Parse("2006-01-02", s)
	return d
}

func newTestEmployeeService(t *testing.T) (*EmployeeServiceImpl, *sqlitetest.Store) {
	t.Helper()

	store := sqlitetest.New(t)
	resolver := onleave.NewResolver(store.History, nil, nil)
	svc := NewEmployeeService(store.Employees, resolver, fixtures.NewPositionRanker(nil), Config{AnnualGrant: 12}).(*EmployeeServiceImpl)
	svc.now = func() time.Time { return date("2025-03-10") }
	return svc, store
}

func seed(t *testing.T, store *sqlitetest.Store, number, name, position string, prior, current int) employee.Employee {
	t.Helper()
	e, err := store.Employees.Create(context.Background(), employee.Employee{
		EmployeeNumber:     number,
		Name:               name,
		Position:           position,
		PriorYearBalance:   prior,
		CurrentYearBalance: current,
	})
	require.NoError(t, err)
	return e
}

func takeLeave(t *testing.T, store *sqlitetest.Store, employeeID, start, end string) {
	t.Helper()
	_, err := store.History.Append(context.Background(), leave.HistoryEntry{
		EmployeeID: employeeID,
		Kind:       leave.KindConsumption,
		Days:       1,
		Period:     &leave.DateRange{Start: date(start), End: date(end)},
		Reason:     "Cuti tahunan",
		AdminID:    "admin-1",
	})
	require.NoError(t, err)
}

func TestEmployeeService_Create(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestEmployeeService(t)

	t.Run("defaults to the annual grant", func(t *testing.T) {
		resp, err := svc.Create(ctx, employee.CreateEmployeeRequest{
			EmployeeNumber: " 198001012005011001 ",
			Name:           "Siti Aminah",
			Position:       "KASI",
		})
		require.NoError(t, err)
		assert.Equal(t, "198001012005011001", resp.EmployeeNumber)
		assert.Equal(t, 0, resp.PriorYearBalance)
		assert.Equal(t, 12, resp.CurrentYearBalance)
		assert.Equal(t, 12, resp.TotalBalance)
		assert.False(t, resp.LowBalance)
	})

	t.Run("explicit balances", func(t *testing.T) {
		prior, current := 2, 1
		resp, err := svc.Create(ctx, employee.CreateEmployeeRequest{
			EmployeeNumber:     "2",
			Name:               "Budi",
			Position:           "JFU",
			PriorYearBalance:   &prior,
			CurrentYearBalance: &current,
		})
		require.NoError(t, err)
		assert.Equal(t, 3, resp.TotalBalance)
		assert.True(t, resp.LowBalance)
	})

	t.Run("duplicate number", func(t *testing.T) {
		_, err := svc.Create(ctx, employee.CreateEmployeeRequest{
			EmployeeNumber: "2",
			Name:           "Other",
			Position:       "JFU",
		})
		assert.ErrorIs(t, err, employee.ErrEmployeeNumberExists)
	})

	t.Run("negative balance is rejected", func(t *testing.T) {
		negative := -1
		_, err := svc.Create(ctx, employee.CreateEmployeeRequest{
			EmployeeNumber:   "3",
			Name:             "Neg",
			Position:         "JFU",
			PriorYearBalance: &negative,
		})
		var verrs validator.ValidationErrors
		require.ErrorAs(t, err, &verrs)
		assert.Contains(t, verrs.ToMap(), "prior_year_balance")
	})
}

func TestEmployeeService_GetByID_OnLeaveFlag(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestEmployeeService(t)
	away := seed(t, store, "1", "Away", "JFU", 0, 12)
	here := seed(t, store, "2", "Here", "JFU", 0, 12)
	takeLeave(t, store, away.ID, "2025-03-10", "2025-03-12")
	takeLeave(t, store, here.ID, "2025-02-03", "2025-02-04")

	resp, err := svc.GetByID(ctx, away.ID)
	require.NoError(t, err)
	assert.True(t, resp.OnLeave)

	resp, err = svc.GetByID(ctx, here.ID)
	require.NoError(t, err)
	assert.False(t, resp.OnLeave)

	_, err = svc.GetByID(ctx, "01890000-0000-7000-8000-000000000000")
	assert.ErrorIs(t, err, employee.ErrEmployeeNotFound)
}

func TestEmployeeService_Update(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestEmployeeService(t)
	e := seed(t, store, "1", "Old Name", "JFU", 4, 12)

	name, position := "New Name", "KASUBSI"
	resp, err := svc.Update(ctx, employee.UpdateEmployeeRequest{ID: e.ID, Name: &name, Position: &position})
	require.NoError(t, err)
	assert.Equal(t, "New Name", resp.Name)
	assert.Equal(t, "KASUBSI", resp.Position)
	assert.Equal(t, "1", resp.EmployeeNumber)
	// balances are not touched by profile edits
	assert.Equal(t, 16, resp.TotalBalance)

	_, err = svc.Update(ctx, employee.UpdateEmployeeRequest{ID: "01890000-0000-7000-8000-000000000000", Name: &name})
	assert.ErrorIs(t, err, employee.ErrEmployeeNotFound)
}

func TestEmployeeService_Delete(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestEmployeeService(t)
	e := seed(t, store, "1", "Gone", "JFU", 0, 12)
	takeLeave(t, store, e.ID, "2025-03-10", "2025-03-10")

	require.NoError(t, svc.Delete(ctx, e.ID))

	_, err := svc.GetByID(ctx, e.ID)
	assert.ErrorIs(t, err, employee.ErrEmployeeNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, e.ID), employee.ErrEmployeeNotFound)

	stats, err := svc.Stats(ctx, employee.EmployeeFilter{})
	require.NoError(t, err)
	assert.Equal(t, 0, stats.OnLeave)
}

func TestEmployeeService_List(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestEmployeeService(t)
	cpns := seed(t, store, "100", "Andi", "CPNS", 0, 12)
	kasi := seed(t, store, "200", "Zainal", "kasi", 0, 12)
	jfuB := seed(t, store, "300", "Bambang", "JFU", 0, 12)
	jfuA := seed(t, store, "400", "Agus", "JFU", 0, 12)
	other := seed(t, store, "500", "Citra", "Honorer", 0, 12)
	takeLeave(t, store, jfuB.ID, "2025-03-10", "2025-03-11")

	ids := func(resp employee.ListEmployeeResponse) []string {
		out := make([]string, 0, len(resp.Employees))
		for _, e := range resp.Employees {
			out = append(out, e.ID)
		}
		return out
	}

	t.Run("ordered by position then name", func(t *testing.T) {
		resp, err := svc.List(ctx, employee.EmployeeFilter{})
		require.NoError(t, err)
		assert.Equal(t, []string{kasi.ID, jfuA.ID, jfuB.ID, cpns.ID, other.ID}, ids(resp))
		assert.EqualValues(t, 5, resp.TotalCount)
		assert.Equal(t, 1, resp.Page)
		assert.Equal(t, employee.DefaultPageLimit, resp.Limit)
		assert.Equal(t, 1, resp.TotalPages)
	})

	t.Run("search by name or number", func(t *testing.T) {
		resp, err := svc.List(ctx, employee.EmployeeFilter{Search: "agus"})
		require.NoError(t, err)
		assert.Equal(t, []string{jfuA.ID}, ids(resp))

		resp, err = svc.List(ctx, employee.EmployeeFilter{Search: "20"})
		require.NoError(t, err)
		assert.Equal(t, []string{kasi.ID}, ids(resp))
	})

	t.Run("status filter", func(t *testing.T) {
		onLeave := employee.StatusOnLeave
		resp, err := svc.List(ctx, employee.EmployeeFilter{Status: &onLeave})
		require.NoError(t, err)
		assert.Equal(t, []string{jfuB.ID}, ids(resp))
		assert.True(t, resp.Employees[0].OnLeave)

		active := employee.StatusActive
		resp, err = svc.List(ctx, employee.EmployeeFilter{Status: &active})
		require.NoError(t, err)
		assert.NotContains(t, ids(resp), jfuB.ID)
		assert.Len(t, resp.Employees, 4)

		resp, err = svc.List(ctx, employee.EmployeeFilter{Status: &onLeave, AsOf: date("2025-03-12")})
		require.NoError(t, err)
		assert.Empty(t, resp.Employees)
	})

	t.Run("pagination", func(t *testing.T) {
		resp, err := svc.List(ctx, employee.EmployeeFilter{Page: 2, Limit: 2})
		require.NoError(t, err)
		assert.Equal(t, []string{jfuB.ID, cpns.ID}, ids(resp))
		assert.Equal(t, 3, resp.TotalPages)

		resp, err = svc.List(ctx, employee.EmployeeFilter{Page: 9, Limit: 2})
		require.NoError(t, err)
		assert.Empty(t, resp.Employees)
		assert.NotNil(t, resp.Employees)
	})

	t.Run("invalid filter", func(t *testing.T) {
		bogus := employee.Status("retired")
		_, err := svc.List(ctx, employee.EmployeeFilter{Status: &bogus, Limit: 1000})
		var verrs validator.ValidationErrors
		require.ErrorAs(t, err, &verrs)
		assert.Contains(t, verrs.ToMap(), "status")
		assert.Contains(t, verrs.ToMap(), "limit")
	})
}

func TestEmployeeService_Stats(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestEmployeeService(t)
	low := seed(t, store, "1", "Low", "JFU", 1, 2)
	seed(t, store, "2", "Fine", "JFU", 0, 12)
	seed(t, store, "3", "Empty", "JFU", 0, 0)
	takeLeave(t, store, low.ID, "2025-03-07", "2025-03-10")

	stats, err := svc.Stats(ctx, employee.EmployeeFilter{})
	require.NoError(t, err)
	assert.Equal(t, "2025-03-10", stats.Date)
	assert.Equal(t, 3, stats.TotalEmployees)
	assert.Equal(t, 1, stats.OnLeave)
	assert.Equal(t, 2, stats.LowBalance)
}
