package leaveyear

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rakhaabhirama/leave-tracker-pro-63/internal/domain/employee"
	"github.com/rakhaabhirama/leave-tracker-pro-63/internal/domain/leaveyear"
	"github.com/rakhaabhirama/leave-tracker-pro-63/internal/pkg/metrics"
	"github.com/rakhaabhirama/leave-tracker-pro-63/internal/pkg/sse"
	"github.com/rakhaabhirama/leave-tracker-pro-63/internal/pkg/storage"
	"github.com/rakhaabhirama/leave-tracker-pro-63/internal/repository/sqlite/sqlitetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAdmin = "admin-1"

// flakyEmployees fails UpdateRolloverState on the failOn-th call while armed.
type flakyEmployees struct {
	employee.EmployeeRepository
	failOn int32
	calls  atomic.Int32
	armed  atomic.Bool
}

func (f *flakyEmployees) UpdateRolloverState(ctx context.Context, e employee.Employee) error {
	if f.armed.Load() && f.calls.Add(1) == f.failOn {
		return errors.New("connection reset by peer")
	}
	return f.EmployeeRepository.UpdateRolloverState(ctx, e)
}

type env struct {
	store     *sqlitetest.Store
	employees *flakyEmployees
	files     storage.FileStorage
	hub       *sse.Hub
	svc       leaveyear.RolloverService
}

func newEnv(t *testing.T, batchSize int) *env {
	t.Helper()
	return newEnvWithConfig(t, Config{AnnualGrant: 12, BatchSize: batchSize})
}

func newEnvWithConfig(t *testing.T, cfg Config) *env {
	t.Helper()
	store := sqlitetest.New(t)
	files, err := storage.NewLocalStorage(t.TempDir(), "http://files.test")
	require.NoError(t, err)

	hub := sse.NewHub()
	t.Cleanup(hub.Close)

	flaky := &flakyEmployees{EmployeeRepository: store.Employees}
	svc := NewRolloverService(store.Transactor, store.Settings, store.Runs, flaky, files, hub, metrics.New(), cfg)

	_, err = svc.EnsureSettings(context.Background(), 2025)
	require.NoError(t, err)
	return &env{store: store, employees: flaky, files: files, hub: hub, svc: svc}
}

func receive(t *testing.T, ch <-chan sse.Event) sse.Event {
	t.Helper()
	select {
	case event := <-ch:
		return event
	case <-time.After(time.Second):
		t.Fatal("no event received")
		return sse.Event{}
	}
}

func (e *env) get(t *testing.T, id string) employee.Employee {
	t.Helper()
	got, err := e.store.Employees.GetByID(context.Background(), id)
	require.NoError(t, err)
	return got
}

func (e *env) settings(t *testing.T) leaveyear.Settings {
	t.Helper()
	s, err := e.store.Settings.Get(context.Background())
	require.NoError(t, err)
	return s
}

func TestEnsureSettings_KeepsExisting(t *testing.T) {
	e := newEnv(t, 0)

	s, err := e.svc.EnsureSettings(context.Background(), 1999)
	require.NoError(t, err)
	assert.Equal(t, 2025, s.CurrentYear)
	assert.Nil(t, s.PreviousYear)
}

func TestAdvanceThenRevertRestoresExactly(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, 0)
	a := e.store.SeedEmployee(t, "1", 4, 7)
	b := e.store.SeedEmployee(t, "2", 0, 12)

	run, err := e.svc.Advance(ctx, testAdmin)
	require.NoError(t, err)
	assert.Equal(t, leaveyear.RunStatusCompleted, run.Status)
	assert.ElementsMatch(t, []string{a.ID, b.ID}, run.UpdatedEmployeeIDs)
	assert.Equal(t, 2025, run.FromYear)
	assert.Equal(t, 2026, run.ToYear)

	advanced := e.get(t, a.ID)
	assert.Equal(t, 4, advanced.TwoYearsAgoBalance)
	assert.Equal(t, 7, advanced.PriorYearBalance)
	assert.Equal(t, 12, advanced.CurrentYearBalance)
	s := e.settings(t)
	assert.Equal(t, 2026, s.CurrentYear)
	require.NotNil(t, s.PreviousYear)
	assert.Equal(t, 2025, *s.PreviousYear)

	_, err = e.svc.RevertToPrevious(ctx, testAdmin)
	require.NoError(t, err)

	reverted := e.get(t, a.ID)
	assert.Equal(t, 4, reverted.PriorYearBalance)
	assert.Equal(t, 7, reverted.CurrentYearBalance)
	assert.Equal(t, 0, reverted.TwoYearsAgoBalance)
	require.NotNil(t, reverted.NextYearBackupBalance)
	assert.Equal(t, 12, *reverted.NextYearBackupBalance)
	s = e.settings(t)
	assert.Equal(t, 2025, s.CurrentYear)
	assert.Nil(t, s.PreviousYear)

	_, err = e.svc.RevertToPrevious(ctx, testAdmin)
	assert.ErrorIs(t, err, leaveyear.ErrNoPreviousYear)

	settings, err := e.svc.GetSettings(ctx)
	require.NoError(t, err)
	assert.False(t, settings.CanRevert)
	assert.True(t, settings.CanRestoreNext)

	_, err = e.svc.RevertToNext(ctx, testAdmin)
	require.NoError(t, err)
	restored := e.get(t, a.ID)
	assert.Equal(t, advanced.PriorYearBalance, restored.PriorYearBalance)
	assert.Equal(t, advanced.CurrentYearBalance, restored.CurrentYearBalance)
	assert.Equal(t, advanced.TwoYearsAgoBalance, restored.TwoYearsAgoBalance)
	assert.Nil(t, restored.NextYearBackupBalance)
	assert.Equal(t, 2026, e.settings(t).CurrentYear)

	_, err = e.svc.RevertToNext(ctx, testAdmin)
	assert.ErrorIs(t, err, leaveyear.ErrNoForwardBackup)
}

func TestAdvance_ArchivesSnapshot(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, 0)
	a := e.store.SeedEmployee(t, "1", 4, 7)

	run, err := e.svc.Advance(ctx, testAdmin)
	require.NoError(t, err)
	require.NotNil(t, run.SnapshotKey)
	assert.Equal(t, "rollovers/"+run.ID+"/snapshot.json", *run.SnapshotKey)

	rc, err := e.files.Download(ctx, *run.SnapshotKey)
	require.NoError(t, err)
	defer rc.Close()
	body, err := io.ReadAll(rc)
	require.NoError(t, err)

	var snap snapshot
	require.NoError(t, json.Unmarshal(body, &snap))
	require.Len(t, snap.Employees, 1)
	assert.Equal(t, a.ID, snap.Employees[0].ID)
	assert.Equal(t, 4, snap.Employees[0].PriorYearBalance)
	assert.Equal(t, 7, snap.Employees[0].CurrentYearBalance)
}

func TestSingleTransactionFailureChangesNothing(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, 0)
	a := e.store.SeedEmployee(t, "1", 4, 7)
	e.store.SeedEmployee(t, "2", 1, 2)
	e.employees.failOn = 2
	e.employees.armed.Store(true)

	_, err := e.svc.Advance(ctx, testAdmin)
	require.Error(t, err)
	assert.False(t, errors.Is(err, leaveyear.ErrPartialRollover))

	assert.Equal(t, 4, e.get(t, a.ID).PriorYearBalance)
	assert.Equal(t, 2025, e.settings(t).CurrentYear)

	runs, err := e.svc.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, leaveyear.RunStatusAborted, runs[0].Status)

	e.employees.armed.Store(false)
	_, err = e.svc.Advance(ctx, testAdmin)
	require.NoError(t, err)
	assert.Equal(t, 7, e.get(t, a.ID).PriorYearBalance)
}

func TestBatchedPartialFailureHaltsUntilResumed(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, 1)
	seeded := []employee.Employee{
		e.store.SeedEmployee(t, "1", 1, 10),
		e.store.SeedEmployee(t, "2", 2, 20),
		e.store.SeedEmployee(t, "3", 3, 30),
	}
	e.employees.failOn = 2
	e.employees.armed.Store(true)

	_, err := e.svc.Advance(ctx, testAdmin)
	require.ErrorIs(t, err, leaveyear.ErrPartialRollover)
	var partial *leaveyear.PartialRolloverError
	require.ErrorAs(t, err, &partial)
	assert.Equal(t, leaveyear.OperationAdvance, partial.Operation)
	require.Len(t, partial.UpdatedEmployeeIDs, 1)
	assert.Equal(t, 2025, e.settings(t).CurrentYear)

	_, err = e.svc.Advance(ctx, testAdmin)
	assert.ErrorIs(t, err, leaveyear.ErrRolloverHalted)
	var halted *leaveyear.HaltedError
	require.ErrorAs(t, err, &halted)
	assert.Equal(t, partial.RunID, halted.RunID)
	assert.Equal(t, leaveyear.RunStatusFailed, halted.Status)

	settings, err := e.svc.GetSettings(ctx)
	require.NoError(t, err)
	require.NotNil(t, settings.BlockingRunID)
	assert.Equal(t, partial.RunID, *settings.BlockingRunID)

	e.employees.armed.Store(false)
	run, err := e.svc.Resume(ctx, partial.RunID, testAdmin)
	require.NoError(t, err)
	assert.Equal(t, leaveyear.RunStatusCompleted, run.Status)
	assert.Len(t, run.UpdatedEmployeeIDs, 3)

	for _, s := range seeded {
		got := e.get(t, s.ID)
		assert.Equal(t, s.PriorYearBalance, got.TwoYearsAgoBalance, s.EmployeeNumber)
		assert.Equal(t, s.CurrentYearBalance, got.PriorYearBalance, s.EmployeeNumber)
		assert.Equal(t, 12, got.CurrentYearBalance, s.EmployeeNumber)
	}
	assert.Equal(t, 2026, e.settings(t).CurrentYear)

	_, err = e.svc.Resume(ctx, partial.RunID, testAdmin)
	assert.ErrorIs(t, err, leaveyear.ErrRunNotResumable)
}

func TestResolveUnblocksWithoutApplying(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, 1)
	e.store.SeedEmployee(t, "1", 1, 10)
	second := e.store.SeedEmployee(t, "2", 2, 20)
	e.employees.failOn = 2
	e.employees.armed.Store(true)

	_, err := e.svc.Advance(ctx, testAdmin)
	var partial *leaveyear.PartialRolloverError
	require.ErrorAs(t, err, &partial)

	run, err := e.svc.Resolve(ctx, partial.RunID)
	require.NoError(t, err)
	assert.Equal(t, leaveyear.RunStatusResolved, run.Status)
	require.NotNil(t, run.Error)
	assert.Equal(t, 2, e.get(t, second.ID).PriorYearBalance)

	_, err = e.svc.Resolve(ctx, partial.RunID)
	assert.ErrorIs(t, err, leaveyear.ErrRunNotResumable)

	settings, err := e.svc.GetSettings(ctx)
	require.NoError(t, err)
	assert.Nil(t, settings.BlockingRunID)
}

func TestGetRun_NotFound(t *testing.T) {
	e := newEnv(t, 0)

	_, err := e.svc.GetRun(context.Background(), "missing")
	assert.ErrorIs(t, err, leaveyear.ErrRunNotFound)
}

func TestSnapshot_ReturnsArchivedContent(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, 0)
	a := e.store.SeedEmployee(t, "1", 4, 7)

	run, err := e.svc.Advance(ctx, testAdmin)
	require.NoError(t, err)

	file, err := e.svc.Snapshot(ctx, run.ID)
	require.NoError(t, err)
	assert.Empty(t, file.URL)
	assert.Equal(t, "rollover-advance-2025-2026.json", file.Filename)

	var snap snapshot
	require.NoError(t, json.Unmarshal(file.Content, &snap))
	assert.Equal(t, run.ID, snap.RunID)
	require.Len(t, snap.Employees, 1)
	assert.Equal(t, a.ID, snap.Employees[0].ID)
	assert.Equal(t, 7, snap.Employees[0].CurrentYearBalance)
}

func TestSnapshot_SignedURL(t *testing.T) {
	ctx := context.Background()
	e := newEnvWithConfig(t, Config{AnnualGrant: 12, SnapshotURLExpiry: 15 * time.Minute})
	e.store.SeedEmployee(t, "1", 4, 7)

	run, err := e.svc.Advance(ctx, testAdmin)
	require.NoError(t, err)

	file, err := e.svc.Snapshot(ctx, run.ID)
	require.NoError(t, err)
	assert.Nil(t, file.Content)
	assert.Equal(t, "http://files.test/rollovers/"+run.ID+"/snapshot.json", file.URL)
}

func TestSnapshot_Missing(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, 0)
	e.store.SeedEmployee(t, "1", 4, 7)

	_, err := e.svc.Snapshot(ctx, "missing")
	assert.ErrorIs(t, err, leaveyear.ErrRunNotFound)

	run, err := e.svc.Advance(ctx, testAdmin)
	require.NoError(t, err)
	require.NoError(t, e.files.Delete(ctx, *run.SnapshotKey))

	_, err = e.svc.Snapshot(ctx, run.ID)
	assert.ErrorIs(t, err, leaveyear.ErrSnapshotNotFound)
}

func TestRolloverNotifiesActingAdmin(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, 1)
	e.store.SeedEmployee(t, "1", 1, 10)
	e.store.SeedEmployee(t, "2", 2, 20)

	mine, cleanupMine := e.hub.Subscribe(testAdmin)
	defer cleanupMine()
	theirs, cleanupTheirs := e.hub.Subscribe("admin-2")
	defer cleanupTheirs()

	run, err := e.svc.Advance(ctx, testAdmin)
	require.NoError(t, err)

	finished := receive(t, mine)
	assert.Equal(t, EventRolloverFinished, finished.Event)
	assert.Equal(t, testAdmin, finished.AdminID)
	data := finished.Data.(map[string]any)
	assert.Equal(t, run.ID, data["run_id"])
	assert.Equal(t, leaveyear.RunStatusCompleted, data["status"])
	assert.Equal(t, sse.EventLeaveYear, receive(t, mine).Event)
	assert.Equal(t, sse.EventLeaveYear, receive(t, theirs).Event)

	e.employees.failOn = 2
	e.employees.armed.Store(true)
	_, err = e.svc.Advance(ctx, testAdmin)
	require.ErrorIs(t, err, leaveyear.ErrPartialRollover)

	failed := receive(t, mine)
	assert.Equal(t, EventRolloverFailed, failed.Event)
	data = failed.Data.(map[string]any)
	assert.Equal(t, leaveyear.RunStatusFailed, data["status"])
	assert.Contains(t, data["error"], "connection reset by peer")
	assert.Empty(t, theirs)
}
