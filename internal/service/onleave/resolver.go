package onleave

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/rakhaabhirama/leave-tracker-pro-63/internal/domain/leave"
	"github.com/rakhaabhirama/leave-tracker-pro-63/internal/pkg/metrics"
	"github.com/rakhaabhirama/leave-tracker-pro-63/internal/pkg/sse"
	"github.com/rakhaabhirama/leave-tracker-pro-63/internal/pkg/workday"
)

// Broadcaster pushes change events to connected dashboards.
type Broadcaster interface {
	Broadcast(event sse.Event)
}

// Resolver derives on-leave status from consumption periods. Today's set is
// cached; history commits invalidate it and the periodic Refresh catches
// periods that begin or end as the date rolls over.
type Resolver struct {
	historyRepo leave.HistoryRepository
	broadcaster Broadcaster
	metrics     *metrics.Metrics
	now         func() time.Time

	mu       sync.Mutex
	cacheDay time.Time
	cached   map[string]struct{}
	valid    bool
	// bumped by Invalidate so a load racing a commit is not cached
	gen uint64
	// last set published by Refresh
	published map[string]struct{}
}

func NewResolver(historyRepo leave.HistoryRepository, broadcaster Broadcaster, m *metrics.Metrics) *Resolver {
	return &Resolver{
		historyRepo: historyRepo,
		broadcaster: broadcaster,
		metrics:     m,
		now:         time.Now,
	}
}

var _ leave.OnLeaveResolver = (*Resolver)(nil)

func (r *Resolver) today() time.Time {
	return workday.Date(r.now())
}

// IsOnLeave implements leave.OnLeaveResolver.
func (r *Resolver) IsOnLeave(ctx context.Context, employeeID string, asOf time.Time) (bool, error) {
	day := workday.Date(asOf)

	r.mu.Lock()
	if r.valid && r.cacheDay.Equal(day) {
		_, ok := r.cached[employeeID]
		r.mu.Unlock()
		return ok, nil
	}
	r.mu.Unlock()

	entry, err := r.historyRepo.FindContaining(ctx, employeeID, leave.KindConsumption, leave.Day(day))
	if err != nil {
		return false, leave.StorageError("failed to resolve on-leave status", err)
	}
	return entry != nil, nil
}

// OnLeaveSet implements leave.OnLeaveResolver. The returned map is a copy.
func (r *Resolver) OnLeaveSet(ctx context.Context, asOf time.Time) (map[string]struct{}, error) {
	day := workday.Date(asOf)
	isToday := day.Equal(r.today())

	var gen uint64
	if isToday {
		r.mu.Lock()
		if r.valid && r.cacheDay.Equal(day) {
			set := maps.Clone(r.cached)
			r.mu.Unlock()
			return set, nil
		}
		gen = r.gen
		r.mu.Unlock()
	}

	set, err := r.load(ctx, day)
	if err != nil {
		return nil, err
	}
	if isToday {
		r.store(day, set, gen)
		return maps.Clone(set), nil
	}
	return set, nil
}

func (r *Resolver) store(day time.Time, set map[string]struct{}, gen uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.gen == gen {
		r.cacheDay, r.cached, r.valid = day, set, true
	}
}

func (r *Resolver) load(ctx context.Context, day time.Time) (map[string]struct{}, error) {
	ids, err := r.historyRepo.OnLeaveEmployeeIDs(ctx, day)
	if err != nil {
		return nil, leave.StorageError("failed to list employees on leave", err)
	}
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set, nil
}

// HistoryChanged implements leave.ChangeNotifier. It drops the cached set and
// tells dashboards to reload the employee.
func (r *Resolver) HistoryChanged(ctx context.Context, employeeID string) {
	r.Invalidate()

	if r.broadcaster == nil {
		return
	}
	data := map[string]string{"employee_id": employeeID}
	r.broadcaster.Broadcast(sse.Event{Event: sse.EventHistoryChanged, Data: data})
	r.broadcaster.Broadcast(sse.Event{Event: sse.EventBalanceChanged, Data: data})
}

// Invalidate drops the cached set so the next read recomputes it.
func (r *Resolver) Invalidate() {
	r.mu.Lock()
	r.valid = false
	r.cached = nil
	r.gen++
	r.mu.Unlock()
}

// Refresh implements leave.OnLeaveResolver.
func (r *Resolver) Refresh(ctx context.Context) error {
	day := r.today()
	r.mu.Lock()
	gen := r.gen
	r.mu.Unlock()

	set, err := r.load(ctx, day)
	if err != nil {
		return fmt.Errorf("refresh on-leave set: %w", err)
	}
	r.store(day, maps.Clone(set), gen)

	r.mu.Lock()
	changed := r.published == nil || !maps.Equal(r.published, set)
	r.published = maps.Clone(set)
	r.mu.Unlock()

	r.metrics.SetOnLeave(len(set))

	if changed {
		ids := slices.Sorted(maps.Keys(set))
		if ids == nil {
			ids = []string{}
		}
		slog.Debug("on-leave set changed", "date", workday.Format(day), "count", len(ids))
		if r.broadcaster != nil {
			r.broadcaster.Broadcast(sse.Event{
				Event: sse.EventOnLeaveChanged,
				Data: leave.OnLeaveSetResponse{
					Date:        workday.Format(day),
					EmployeeIDs: ids,
				},
			})
		}
	}
	return nil
}
