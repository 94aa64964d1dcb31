// Package recompute rebuilds monthly attendance summaries in the background
// after bulk ingestion.
package recompute

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cmlabs-hris/hris-payroll-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/pkg/cache"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/pkg/lock"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/pkg/sse"
)

// EventRecomputed is published to the tenant's SSE subscribers after a summary
// is rebuilt.
const EventRecomputed = "attendance.recomputed"

type Options struct {
	Workers     int
	QueueSize   int
	StaleAfter  time.Duration
	MaxAttempts int
	SweepBatch  int
	// Locker serializes runs of one key; a Redis locker extends that to the
	// CLI and other API instances.
	Locker lock.Locker
}

func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = 4
	}
	if o.QueueSize <= 0 {
		o.QueueSize = 1024
	}
	if o.StaleAfter <= 0 {
		o.StaleAfter = 2 * time.Minute
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 10
	}
	if o.SweepBatch <= 0 {
		o.SweepBatch = 500
	}
	if o.Locker == nil {
		o.Locker = lock.NewLocalLocker()
	}
	return o
}

// Coordinator deduplicates recompute keys and feeds them to a worker pool.
// Keys that cannot be queued stay in the outbox until Sweep picks them up.
type Coordinator struct {
	aggregator  attendance.Aggregator
	queueRepo   attendance.RecomputeQueueRepository
	invalidator *cache.Invalidator
	hub         *sse.Hub
	opts        Options
	now         func() time.Time

	jobs    chan attendance.RecomputeKey
	mu      sync.Mutex
	pending map[attendance.RecomputeKey]struct{}
	stopped bool
	wg      sync.WaitGroup
}

func NewCoordinator(
	aggregator attendance.Aggregator,
	queueRepo attendance.RecomputeQueueRepository,
	invalidator *cache.Invalidator,
	hub *sse.Hub,
	opts Options,
) *Coordinator {
	opts = opts.withDefaults()
	return &Coordinator{
		aggregator:  aggregator,
		queueRepo:   queueRepo,
		invalidator: invalidator,
		hub:         hub,
		opts:        opts,
		now:         time.Now,
		jobs:        make(chan attendance.RecomputeKey, opts.QueueSize),
		pending:     make(map[attendance.RecomputeKey]struct{}),
	}
}

// Start launches the workers. Stop drains the queue only while ctx is live;
// workers whose ctx is cancelled return with keys still queued, which the
// sweeper re-dispatches from the outbox.
func (c *Coordinator) Start(ctx context.Context) {
	for i := 0; i < c.opts.Workers; i++ {
		c.wg.Add(1)
		go c.worker(ctx, i)
	}
	slog.Info("Recompute coordinator started", "workers", c.opts.Workers, "queue_size", c.opts.QueueSize)
}

// Stop stops accepting keys and waits for queued work to drain.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	if !c.stopped {
		c.stopped = true
		close(c.jobs)
	}
	c.mu.Unlock()

	c.wg.Wait()
	slog.Info("Recompute coordinator stopped")
}

// Dispatch implements attendance.RecomputeDispatcher. Caches of every touched
// tenant are invalidated before it returns.
func (c *Coordinator) Dispatch(ctx context.Context, keys []attendance.RecomputeKey) error {
	tenants := make(map[string]struct{})
	for _, k := range keys {
		tenants[k.CompanyID] = struct{}{}
	}

	var errs []error
	for tenantID := range tenants {
		if err := c.invalidator.Invalidate(ctx, tenantID, cache.MutationAttendance); err != nil {
			errs = append(errs, fmt.Errorf("failed to invalidate caches for %s: %w", tenantID, err))
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	dropped := 0
	for _, k := range keys {
		if c.stopped {
			dropped++
			continue
		}
		if _, ok := c.pending[k]; ok {
			continue
		}
		select {
		case c.jobs <- k:
			c.pending[k] = struct{}{}
		default:
			dropped++
		}
	}
	if dropped > 0 {
		slog.Warn("Recompute queue full, leaving keys to the sweeper", "dropped", dropped)
	}

	return errors.Join(errs...)
}

// Pending reports keys queued but not yet picked up by a worker.
func (c *Coordinator) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

func (c *Coordinator) worker(ctx context.Context, id int) {
	defer c.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case k, ok := <-c.jobs:
			if !ok {
				return
			}
			// Cleared before the run so a write landing mid-run queues again;
			// the rerun waits in Run for this one to finish.
			c.mu.Lock()
			delete(c.pending, k)
			c.mu.Unlock()

			if err := c.Run(ctx, k); err != nil {
				slog.Error("Attendance recompute failed", "worker", id, "key", k.String(), "error", err)
			}
		}
	}
}

// Run recomputes one key synchronously and clears its outbox rows. Runs of
// the same key are serialized so a later run always reads after the earlier
// one has written its summary.
func (c *Coordinator) Run(ctx context.Context, k attendance.RecomputeKey) error {
	lease, err := c.opts.Locker.Obtain(ctx, "attendance:recompute:"+k.String(), c.opts.StaleAfter)
	if err != nil {
		return fmt.Errorf("failed to lock %s: %w", k, err)
	}
	defer func() {
		if err := lease.Release(context.Background()); err != nil {
			slog.Warn("Failed to release recompute lock", "key", k.String(), "error", err)
		}
	}()

	startedAt := c.now().UTC()

	summary, err := c.aggregator.Recompute(ctx, k.CompanyID, k.EmployeeID, k.Year, k.Month)
	if err != nil {
		return fmt.Errorf("failed to recompute %s: %w", k, err)
	}

	if err := c.queueRepo.Complete(ctx, k, startedAt); err != nil {
		return fmt.Errorf("failed to complete outbox rows for %s: %w", k, err)
	}

	if err := c.invalidator.Invalidate(ctx, k.CompanyID, cache.MutationAttendance); err != nil {
		return err
	}

	c.hub.Publish(sse.Event{
		TenantID: k.CompanyID,
		Event:    EventRecomputed,
		Data: map[string]interface{}{
			"employee_id":  k.EmployeeID,
			"year":         k.Year,
			"month":        k.Month,
			"present_days": summary.PresentDays,
			"ot_hours":     summary.OTHours,
			"late_minutes": summary.LateMinutes,
		},
	})
	return nil
}

// Sweep re-dispatches outbox rows that no worker completed in time. It
// implements cron.RecomputeSweeper.
func (c *Coordinator) Sweep(ctx context.Context) (int, error) {
	staleBefore := c.now().UTC().Add(-c.opts.StaleAfter)
	keys, err := c.queueRepo.ClaimStale(ctx, staleBefore, c.opts.MaxAttempts, c.opts.SweepBatch)
	if err != nil {
		return 0, fmt.Errorf("failed to claim stale recompute rows: %w", err)
	}
	if len(keys) == 0 {
		return 0, nil
	}
	if err := c.Dispatch(ctx, keys); err != nil {
		return len(keys), err
	}
	return len(keys), nil
}
