// Command recompute-attendance rebuilds monthly attendance summaries from
// daily events, for a backfill or after a bulk import outside the API.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/bsm/redislock"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/config"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/pkg/cache"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/pkg/database"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/pkg/lock"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/pkg/sse"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/pkg/validator"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/repository/postgresql"
	attendanceService "github.com/cmlabs-hris/hris-payroll-engine/internal/service/attendance"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/service/recompute"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

func main() {
	var (
		companyID  = flag.String("company", "", "company (tenant) id")
		employeeID = flag.String("employee", "", "single employee id; all active employees when empty")
		year       = flag.Int("year", 0, "year of the month to recompute")
		month      = flag.Int("month", 0, "month to recompute (1-12)")
		sweep      = flag.Bool("sweep", false, "drain stale outbox rows instead of recomputing a month")
		parallel   = flag.Int("parallel", 4, "concurrent recomputations")
	)
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	if err := run(*companyID, *employeeID, *year, *month, *sweep, *parallel); err != nil {
		slog.Error("recompute failed", "error", err)
		os.Exit(1)
	}
}

func run(companyID, employeeID string, year, month int, sweep bool, parallel int) error {
	if parallel < 1 {
		parallel = 1
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgreSQLDB(ctx, cfg.DatabaseURL(), database.PoolOptions{MaxConns: int32(parallel + 1)})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	// API caches must drop the rebuilt summaries too, and runs must not
	// overlap with the API's workers on the same key
	var (
		cacheStore cache.Store = cache.NewMemoryStore()
		locker     lock.Locker = lock.NewLocalLocker()
	)
	if cfg.Redis.Enabled() {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer rdb.Close()
		cacheStore = cache.NewRedisStore(rdb)
		locker = lock.NewRedisLocker(redislock.New(rdb))
	}

	attendanceRepo := postgresql.NewAttendanceRepository(db)
	employeeRepo := postgresql.NewEmployeeRepository(db)
	coordinator := recompute.NewCoordinator(
		attendanceService.NewAggregator(attendanceRepo),
		postgresql.NewRecomputeQueueRepository(db),
		cache.NewInvalidator(cacheStore),
		sse.NewHub(),
		recompute.Options{
			Workers:     parallel,
			QueueSize:   cfg.Recompute.QueueSize,
			StaleAfter:  cfg.Recompute.StaleAfter,
			MaxAttempts: cfg.Recompute.MaxAttempts,
			SweepBatch:  cfg.Recompute.SweepBatch,
			Locker:      locker,
		},
	)

	if sweep {
		coordinator.Start(ctx)
		n, err := coordinator.Sweep(ctx)
		coordinator.Stop()
		if err != nil {
			return err
		}
		slog.Info("outbox swept", "dispatched", n)
		return nil
	}

	if companyID == "" {
		return fmt.Errorf("-company is required")
	}
	if !validator.IsValidPeriod(year, month) {
		return attendance.ErrInvalidPeriod
	}

	employeeIDs := []string{employeeID}
	if employeeID == "" {
		profiles, err := employeeRepo.GetActiveByCompanyID(ctx, companyID)
		if err != nil {
			return fmt.Errorf("failed to list employees: %w", err)
		}
		employeeIDs = employeeIDs[:0]
		for _, p := range profiles {
			employeeIDs = append(employeeIDs, p.ID)
		}
	}

	var done atomic.Int64
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)
	for _, id := range employeeIDs {
		key := attendance.RecomputeKey{CompanyID: companyID, EmployeeID: id, Year: year, Month: month}
		g.Go(func() error {
			if err := coordinator.Run(gCtx, key); err != nil {
				return err
			}
			done.Add(1)
			return nil
		})
	}
	err = g.Wait()
	slog.Info("recompute finished", "company_id", companyID, "year", year, "month", month, "recomputed", done.Load(), "requested", len(employeeIDs))
	return err
}
