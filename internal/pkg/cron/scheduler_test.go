package cron

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeSweeper struct {
	calls atomic.Int32
	err   error
}

func (f *fakeSweeper) Sweep(context.Context) (int, error) {
	f.calls.Add(1)
	return 0, f.err
}

func TestAttendanceJobs_RunOnce(t *testing.T) {
	sweeper := &fakeSweeper{}
	scheduler := NewScheduler(context.Background())
	NewAttendanceJobs(sweeper, time.Hour).RegisterJobs(scheduler)

	scheduler.RunOnce(context.Background())

	assert.Equal(t, int32(1), sweeper.calls.Load())
}

func TestAttendanceJobs_ErrorIsLoggedNotFatal(t *testing.T) {
	sweeper := &fakeSweeper{err: errors.New("database unavailable")}
	scheduler := NewScheduler(context.Background())
	NewAttendanceJobs(sweeper, time.Hour).RegisterJobs(scheduler)

	scheduler.RunOnce(context.Background())
	scheduler.RunOnce(context.Background())

	assert.Equal(t, int32(2), sweeper.calls.Load())
}

func TestScheduler_StartRunsImmediatelyAndStops(t *testing.T) {
	sweeper := &fakeSweeper{}
	scheduler := NewScheduler(context.Background())
	NewAttendanceJobs(sweeper, time.Hour).RegisterJobs(scheduler)

	scheduler.Start()
	assert.Eventually(t, func() bool { return sweeper.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	scheduler.Stop()

	assert.Equal(t, int32(1), sweeper.calls.Load())
}
