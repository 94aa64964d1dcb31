package cron

import (
	"context"
	"time"
)

// RecomputeSweeper re-dispatches attendance recomputations that never
// completed (process restart, full queue).
type RecomputeSweeper interface {
	Sweep(ctx context.Context) (int, error)
}

type AttendanceJobs struct {
	sweeper  RecomputeSweeper
	interval time.Duration
}

func NewAttendanceJobs(sweeper RecomputeSweeper, interval time.Duration) *AttendanceJobs {
	if interval <= 0 {
		interval = time.Minute
	}
	return &AttendanceJobs{sweeper: sweeper, interval: interval}
}

func (j *AttendanceJobs) RegisterJobs(scheduler *Scheduler) {
	scheduler.AddJob("sweep_attendance_recompute_queue", j.interval, 0, j.SweepRecomputeQueue)
}

func (j *AttendanceJobs) SweepRecomputeQueue(ctx context.Context) error {
	_, err := j.sweeper.Sweep(ctx)
	return err
}
