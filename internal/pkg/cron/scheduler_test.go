package cron

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type countingRefresher struct {
	calls atomic.Int32
	err   error
}

func (c *countingRefresher) Refresh(ctx context.Context) error {
	c.calls.Add(1)
	return c.err
}

func TestScheduler_RunOnce(t *testing.T) {
	s := NewScheduler()
	ok := &countingRefresher{}
	failing := &countingRefresher{err: errors.New("boom")}
	RegisterOnLeaveRefresh(s, ok, time.Minute)
	RegisterOnLeaveRefresh(s, failing, time.Minute)

	s.RunOnce(context.Background())

	assert.Equal(t, int32(1), ok.calls.Load())
	assert.Equal(t, int32(1), failing.calls.Load())
}

func TestScheduler_RunOnceRecoversPanic(t *testing.T) {
	s := NewScheduler()
	after := &countingRefresher{}
	s.AddJob("panics", time.Minute, func(ctx context.Context) error { panic("bad job") })
	RegisterOnLeaveRefresh(s, after, time.Minute)

	assert.NotPanics(t, func() { s.RunOnce(context.Background()) })
	assert.Equal(t, int32(1), after.calls.Load())
}

func TestScheduler_StartRunsImmediatelyAndStops(t *testing.T) {
	s := NewScheduler()
	r := &countingRefresher{}
	RegisterOnLeaveRefresh(s, r, time.Hour)

	s.Start(context.Background())
	assert.Eventually(t, func() bool { return r.calls.Load() >= 1 }, time.Second, 5*time.Millisecond)

	s.Stop()
	s.Stop()
	assert.Equal(t, int32(1), r.calls.Load())
}
