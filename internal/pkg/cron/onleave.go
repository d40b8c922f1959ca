package cron

import (
	"context"
	"time"
)

// OnLeaveRefresher recomputes the cached set of employees on leave today.
type OnLeaveRefresher interface {
	Refresh(ctx context.Context) error
}

const jobRefreshOnLeave = "refresh_on_leave"

// RegisterOnLeaveRefresh schedules the periodic on-leave recomputation. It
// picks up leave periods that start or end as the date changes.
func RegisterOnLeaveRefresh(scheduler *Scheduler, refresher OnLeaveRefresher, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	scheduler.AddJob(jobRefreshOnLeave, interval, refresher.Refresh)
}
