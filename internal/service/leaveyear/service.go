package leaveyear

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/rakhaabhirama/leave-tracker-pro-63/internal/domain/employee"
	"github.com/rakhaabhirama/leave-tracker-pro-63/internal/domain/leave"
	"github.com/rakhaabhirama/leave-tracker-pro-63/internal/domain/leaveyear"
	"github.com/rakhaabhirama/leave-tracker-pro-63/internal/pkg/database"
	"github.com/rakhaabhirama/leave-tracker-pro-63/internal/pkg/metrics"
	"github.com/rakhaabhirama/leave-tracker-pro-63/internal/pkg/sse"
	"github.com/rakhaabhirama/leave-tracker-pro-63/internal/pkg/storage"
)

// singleTxPageSize is the page used to walk employees when the whole run
// commits in one transaction.
const singleTxPageSize = 500

const defaultRunListLimit = 20

// Event names sent only to the administrator who started a run.
const (
	EventRolloverFinished = "rollover_finished"
	EventRolloverFailed   = "rollover_failed"
)

// Broadcaster pushes change events to connected dashboards.
type Broadcaster interface {
	Broadcast(event sse.Event)
	Publish(adminID string, event sse.Event)
}

type Config struct {
	AnnualGrant int
	// BatchSize commits every BatchSize employees. Zero runs the whole
	// rollover, settings included, in a single transaction.
	BatchSize int
	// SnapshotURLExpiry, when set, makes Snapshot return a signed link
	// valid this long instead of the file content.
	SnapshotURLExpiry time.Duration
}

type RolloverServiceImpl struct {
	transactor   database.Transactor
	settingsRepo leaveyear.SettingsRepository
	runRepo      leaveyear.RunRepository
	employeeRepo employee.EmployeeRepository
	storage      storage.FileStorage
	broadcaster  Broadcaster
	metrics      *metrics.Metrics
	cfg          Config

	// serializes rollover execution within this process
	mu sync.Mutex
}

func NewRolloverService(
	transactor database.Transactor,
	settingsRepo leaveyear.SettingsRepository,
	runRepo leaveyear.RunRepository,
	employeeRepo employee.EmployeeRepository,
	fileStorage storage.FileStorage,
	broadcaster Broadcaster,
	m *metrics.Metrics,
	cfg Config,
) leaveyear.RolloverService {
	if cfg.AnnualGrant <= 0 {
		cfg.AnnualGrant = 12
	}
	return &RolloverServiceImpl{
		transactor:   transactor,
		settingsRepo: settingsRepo,
		runRepo:      runRepo,
		employeeRepo: employeeRepo,
		storage:      fileStorage,
		broadcaster:  broadcaster,
		metrics:      m,
		cfg:          cfg,
	}
}

// EnsureSettings implements leaveyear.RolloverService.
func (s *RolloverServiceImpl) EnsureSettings(ctx context.Context, defaultYear int) (leaveyear.Settings, error) {
	settings, err := s.settingsRepo.Get(ctx)
	if err == nil {
		return settings, nil
	}
	if !errors.Is(err, leaveyear.ErrSettingsNotFound) {
		return leaveyear.Settings{}, storageError("failed to get leave year settings", err)
	}

	settings, err = s.settingsRepo.Create(ctx, leaveyear.Settings{CurrentYear: defaultYear})
	if err != nil {
		return leaveyear.Settings{}, storageError("failed to create leave year settings", err)
	}
	slog.Info("leave year settings initialized", "current_year", settings.CurrentYear)
	return settings, nil
}

// GetSettings implements leaveyear.RolloverService.
func (s *RolloverServiceImpl) GetSettings(ctx context.Context) (leaveyear.SettingsResponse, error) {
	settings, err := s.settingsRepo.Get(ctx)
	if err != nil {
		return leaveyear.SettingsResponse{}, storageError("failed to get leave year settings", err)
	}
	withBackup, err := s.employeeRepo.CountWithForwardBackup(ctx)
	if err != nil {
		return leaveyear.SettingsResponse{}, storageError("failed to count reverted employees", err)
	}
	blocking, err := s.runRepo.FindBlocking(ctx)
	if err != nil {
		return leaveyear.SettingsResponse{}, storageError("failed to find blocking rollover", err)
	}

	resp := leaveyear.SettingsResponse{
		CurrentYear:    settings.CurrentYear,
		PreviousYear:   settings.PreviousYear,
		CanRevert:      settings.PreviousYear != nil && blocking == nil,
		CanRestoreNext: withBackup > 0 && blocking == nil,
	}
	if blocking != nil {
		resp.BlockingRunID = &blocking.ID
	}
	return resp, nil
}

// Advance implements leaveyear.RolloverService.
func (s *RolloverServiceImpl) Advance(ctx context.Context, adminID string) (leaveyear.RunResponse, error) {
	return s.start(ctx, leaveyear.OperationAdvance, adminID)
}

// RevertToPrevious implements leaveyear.RolloverService.
func (s *RolloverServiceImpl) RevertToPrevious(ctx context.Context, adminID string) (leaveyear.RunResponse, error) {
	return s.start(ctx, leaveyear.OperationRevertPrevious, adminID)
}

// RevertToNext implements leaveyear.RolloverService.
func (s *RolloverServiceImpl) RevertToNext(ctx context.Context, adminID string) (leaveyear.RunResponse, error) {
	return s.start(ctx, leaveyear.OperationRevertNext, adminID)
}

func (s *RolloverServiceImpl) start(ctx context.Context, op leaveyear.Operation, adminID string) (leaveyear.RunResponse, error) {
	ctx = context.WithoutCancel(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	blocking, err := s.runRepo.FindBlocking(ctx)
	if err != nil {
		return leaveyear.RunResponse{}, storageError("failed to find blocking rollover", err)
	}
	if blocking != nil {
		return leaveyear.RunResponse{}, &leaveyear.HaltedError{RunID: blocking.ID, Status: blocking.Status}
	}

	settings, err := s.settingsRepo.Get(ctx)
	if err != nil {
		return leaveyear.RunResponse{}, storageError("failed to get leave year settings", err)
	}
	if op == leaveyear.OperationRevertNext {
		withBackup, err := s.employeeRepo.CountWithForwardBackup(ctx)
		if err != nil {
			return leaveyear.RunResponse{}, storageError("failed to count reverted employees", err)
		}
		if withBackup == 0 {
			return leaveyear.RunResponse{}, leaveyear.ErrNoForwardBackup
		}
	}
	target, err := nextYears(op, settings)
	if err != nil {
		return leaveyear.RunResponse{}, err
	}

	run, err := s.runRepo.Create(ctx, leaveyear.Run{
		Operation: op,
		FromYear:  settings.CurrentYear,
		ToYear:    target.CurrentYear,
		Status:    leaveyear.RunStatusRunning,
		AdminID:   adminID,
	})
	if err != nil {
		return leaveyear.RunResponse{}, storageError("failed to create rollover run", err)
	}
	slog.Info("rollover started", "run_id", run.ID, "operation", op, "from_year", run.FromYear, "to_year", run.ToYear, "admin_id", adminID)

	if err := s.archiveSnapshot(ctx, run); err != nil {
		s.finish(ctx, run, leaveyear.RunStatusAborted, err)
		return leaveyear.RunResponse{}, storageError("failed to archive rollover snapshot", err)
	}

	return s.execute(ctx, run, settings.ID)
}

// Resume implements leaveyear.RolloverService. It continues after the run's
// cursor, so employees already rolled over are never touched again.
func (s *RolloverServiceImpl) Resume(ctx context.Context, runID string, adminID string) (leaveyear.RunResponse, error) {
	ctx = context.WithoutCancel(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	run, err := s.runRepo.GetByID(ctx, runID)
	if err != nil {
		return leaveyear.RunResponse{}, storageError("failed to get rollover run", err)
	}
	if !run.Status.Blocking() {
		return leaveyear.RunResponse{}, leaveyear.ErrRunNotResumable
	}
	settings, err := s.settingsRepo.Get(ctx)
	if err != nil {
		return leaveyear.RunResponse{}, storageError("failed to get leave year settings", err)
	}

	slog.Info("rollover resumed", "run_id", run.ID, "operation", run.Operation, "cursor", run.Cursor, "admin_id", adminID)
	return s.execute(ctx, run, settings.ID)
}

// Resolve implements leaveyear.RolloverService. The operator takes
// responsibility for the employees the run did not reach.
func (s *RolloverServiceImpl) Resolve(ctx context.Context, runID string) (leaveyear.RunResponse, error) {
	ctx = context.WithoutCancel(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	run, err := s.runRepo.GetByID(ctx, runID)
	if err != nil {
		return leaveyear.RunResponse{}, storageError("failed to get rollover run", err)
	}
	if !run.Status.Blocking() {
		return leaveyear.RunResponse{}, leaveyear.ErrRunNotResumable
	}
	if err := s.runRepo.Finish(ctx, run.ID, leaveyear.RunStatusResolved, run.Error); err != nil {
		return leaveyear.RunResponse{}, storageError("failed to resolve rollover run", err)
	}
	slog.Warn("rollover resolved manually", "run_id", run.ID, "operation", run.Operation)
	return s.GetRun(ctx, run.ID)
}

// GetRun implements leaveyear.RolloverService.
func (s *RolloverServiceImpl) GetRun(ctx context.Context, runID string) (leaveyear.RunResponse, error) {
	run, err := s.runRepo.GetByID(ctx, runID)
	if err != nil {
		return leaveyear.RunResponse{}, storageError("failed to get rollover run", err)
	}
	updated, err := s.runRepo.UpdatedEmployeeIDs(ctx, run.ID)
	if err != nil {
		return leaveyear.RunResponse{}, storageError("failed to list rolled over employees", err)
	}
	return leaveyear.NewRunResponse(run, updated), nil
}

// ListRuns implements leaveyear.RolloverService.
func (s *RolloverServiceImpl) ListRuns(ctx context.Context, limit int) ([]leaveyear.RunResponse, error) {
	if limit <= 0 {
		limit = defaultRunListLimit
	}
	runs, err := s.runRepo.List(ctx, limit)
	if err != nil {
		return nil, storageError("failed to list rollover runs", err)
	}
	resp := make([]leaveyear.RunResponse, 0, len(runs))
	for _, run := range runs {
		resp = append(resp, leaveyear.NewRunResponse(run, nil))
	}
	return resp, nil
}

func (s *RolloverServiceImpl) execute(ctx context.Context, run leaveyear.Run, settingsID string) (leaveyear.RunResponse, error) {
	target := settingsAfter(run, settingsID)

	var err error
	if s.cfg.BatchSize <= 0 {
		err = s.executeSingle(ctx, run, target)
	} else {
		err = s.executeBatched(ctx, run, target)
	}
	if err != nil {
		return s.fail(ctx, run, err)
	}

	s.finish(ctx, run, leaveyear.RunStatusCompleted, nil)
	resp, err := s.GetRun(ctx, run.ID)
	if err != nil {
		return leaveyear.RunResponse{}, err
	}
	s.metrics.ObserveRollover(string(run.Operation), string(leaveyear.RunStatusCompleted), len(resp.UpdatedEmployeeIDs))
	slog.Info("rollover completed", "run_id", run.ID, "operation", run.Operation, "employees", len(resp.UpdatedEmployeeIDs), "current_year", target.CurrentYear)

	if s.broadcaster != nil {
		s.broadcaster.Broadcast(sse.Event{
			Event: sse.EventLeaveYear,
			Data: map[string]any{
				"run_id":        run.ID,
				"operation":     run.Operation,
				"current_year":  target.CurrentYear,
				"previous_year": target.PreviousYear,
			},
		})
	}
	return resp, nil
}

// executeSingle rolls every employee and the settings in one transaction.
func (s *RolloverServiceImpl) executeSingle(ctx context.Context, run leaveyear.Run, target leaveyear.Settings) error {
	return s.transactor.WithinTransaction(ctx, func(txCtx context.Context) error {
		cursor := run.Cursor
		for {
			n, last, err := s.rollPage(txCtx, run, cursor, singleTxPageSize)
			if err != nil {
				return err
			}
			if n == 0 {
				break
			}
			cursor = last
		}
		return s.settingsRepo.Update(txCtx, target)
	})
}

// executeBatched commits every batch on its own; the cursor stored with each
// batch lets a failed run resume where it stopped.
func (s *RolloverServiceImpl) executeBatched(ctx context.Context, run leaveyear.Run, target leaveyear.Settings) error {
	cursor := run.Cursor
	for {
		var n int
		var last string
		err := s.transactor.WithinTransaction(ctx, func(txCtx context.Context) error {
			var err error
			n, last, err = s.rollPage(txCtx, run, cursor, s.cfg.BatchSize)
			return err
		})
		if err != nil {
			return err
		}
		if n == 0 {
			break
		}
		cursor = last
		slog.Debug("rollover batch committed", "run_id", run.ID, "employees", n, "cursor", cursor)
	}

	return s.transactor.WithinTransaction(ctx, func(txCtx context.Context) error {
		return s.settingsRepo.Update(txCtx, target)
	})
}

// rollPage rolls up to limit employees after cursor and returns how many it
// rolled and the last ID.
func (s *RolloverServiceImpl) rollPage(txCtx context.Context, run leaveyear.Run, cursor string, limit int) (int, string, error) {
	page, err := s.employeeRepo.ListAfter(txCtx, cursor, limit)
	if err != nil {
		return 0, "", err
	}
	for _, listed := range page {
		e, err := s.employeeRepo.GetByIDForUpdate(txCtx, listed.ID)
		if err != nil {
			return 0, "", fmt.Errorf("employee %s: %w", listed.ID, err)
		}
		rolled, err := rollEmployee(run.Operation, e, s.cfg.AnnualGrant)
		if err != nil {
			return 0, "", err
		}
		if err := s.employeeRepo.UpdateRolloverState(txCtx, rolled); err != nil {
			return 0, "", fmt.Errorf("employee %s: %w", e.ID, err)
		}
		if err := s.runRepo.MarkApplied(txCtx, run.ID, e.ID); err != nil {
			return 0, "", err
		}
	}
	if len(page) == 0 {
		return 0, "", nil
	}
	return len(page), page[len(page)-1].ID, nil
}

// fail records a failed execution. A run that committed nothing is aborted;
// one that committed some employees stays blocking and is reported as
// partial.
func (s *RolloverServiceImpl) fail(ctx context.Context, run leaveyear.Run, cause error) (leaveyear.RunResponse, error) {
	updated, err := s.runRepo.UpdatedEmployeeIDs(ctx, run.ID)
	if err != nil {
		slog.Error("failed to list rolled over employees", "run_id", run.ID, "error", err)
	}

	if len(updated) == 0 && err == nil {
		s.finish(ctx, run, leaveyear.RunStatusAborted, cause)
		s.metrics.ObserveRollover(string(run.Operation), string(leaveyear.RunStatusAborted), 0)
		return leaveyear.RunResponse{}, storageError("rollover "+string(run.Operation)+" aborted", cause)
	}

	s.finish(ctx, run, leaveyear.RunStatusFailed, cause)
	s.metrics.ObserveRollover(string(run.Operation), string(leaveyear.RunStatusFailed), len(updated))
	slog.Error("rollover partially applied", "run_id", run.ID, "operation", run.Operation, "updated", len(updated), "error", cause)
	return leaveyear.RunResponse{}, &leaveyear.PartialRolloverError{
		RunID:              run.ID,
		Operation:          run.Operation,
		UpdatedEmployeeIDs: updated,
		Err:                cause,
	}
}

func (s *RolloverServiceImpl) finish(ctx context.Context, run leaveyear.Run, status leaveyear.RunStatus, cause error) {
	var msg *string
	if cause != nil {
		m := cause.Error()
		msg = &m
	}
	if err := s.runRepo.Finish(ctx, run.ID, status, msg); err != nil {
		slog.Error("failed to record rollover status", "run_id", run.ID, "status", status, "error", err)
	}
	s.notify(run, status, msg)
}

// notify tells the administrator who started the run how it ended.
func (s *RolloverServiceImpl) notify(run leaveyear.Run, status leaveyear.RunStatus, msg *string) {
	if s.broadcaster == nil || run.AdminID == "" {
		return
	}
	name := EventRolloverFinished
	if status != leaveyear.RunStatusCompleted {
		name = EventRolloverFailed
	}
	data := map[string]any{
		"run_id":    run.ID,
		"operation": run.Operation,
		"status":    status,
		"from_year": run.FromYear,
		"to_year":   run.ToYear,
	}
	if msg != nil {
		data["error"] = *msg
	}
	s.broadcaster.Publish(run.AdminID, sse.Event{Event: name, Data: data})
}

// Snapshot implements leaveyear.RolloverService.
func (s *RolloverServiceImpl) Snapshot(ctx context.Context, runID string) (leaveyear.SnapshotFile, error) {
	run, err := s.runRepo.GetByID(ctx, runID)
	if err != nil {
		return leaveyear.SnapshotFile{}, storageError("failed to get rollover run", err)
	}
	if s.storage == nil || run.SnapshotKey == nil {
		return leaveyear.SnapshotFile{}, leaveyear.ErrSnapshotNotFound
	}
	key := *run.SnapshotKey

	exists, err := s.storage.Exists(ctx, key)
	if err != nil {
		return leaveyear.SnapshotFile{}, storageError("failed to check rollover snapshot", err)
	}
	if !exists {
		slog.Warn("rollover snapshot missing from storage", "run_id", run.ID, "key", key)
		return leaveyear.SnapshotFile{}, leaveyear.ErrSnapshotNotFound
	}

	file := leaveyear.SnapshotFile{Filename: fmt.Sprintf("rollover-%s-%d-%d.json", run.Operation, run.FromYear, run.ToYear)}
	if s.cfg.SnapshotURLExpiry > 0 {
		file.URL, err = s.storage.GetURL(ctx, key, s.cfg.SnapshotURLExpiry)
		if err != nil {
			return leaveyear.SnapshotFile{}, storageError("failed to sign rollover snapshot url", err)
		}
		return file, nil
	}

	rc, err := s.storage.Download(ctx, key)
	if errors.Is(err, storage.ErrFileNotFound) {
		return leaveyear.SnapshotFile{}, leaveyear.ErrSnapshotNotFound
	}
	if err != nil {
		return leaveyear.SnapshotFile{}, storageError("failed to download rollover snapshot", err)
	}
	defer rc.Close()

	file.Content, err = io.ReadAll(rc)
	if err != nil {
		return leaveyear.SnapshotFile{}, storageError("failed to read rollover snapshot", err)
	}
	return file, nil
}

// storageError marks err as a storage failure unless it is a rollover or
// ledger outcome the caller should see as is.
func storageError(op string, err error) error {
	for _, target := range []error{
		leaveyear.ErrSettingsNotFound,
		leaveyear.ErrNoPreviousYear,
		leaveyear.ErrNoForwardBackup,
		leaveyear.ErrRolloverHalted,
		leaveyear.ErrPartialRollover,
		leaveyear.ErrRunNotFound,
		leaveyear.ErrRunNotResumable,
		leaveyear.ErrInvalidOperation,
		leaveyear.ErrSnapshotNotFound,
		employee.ErrEmployeeNotFound,
	} {
		if errors.Is(err, target) {
			return err
		}
	}
	return leave.StorageError(op, err)
}
