package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/bsm/redislock"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/config"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/domain/payroll"
	appHTTP "github.com/cmlabs-hris/hris-payroll-engine/internal/handler/http"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/pkg/cache"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/pkg/cron"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/pkg/database"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/pkg/jwt"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/pkg/lock"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/pkg/sse"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/repository/postgresql"
	advanceService "github.com/cmlabs-hris/hris-payroll-engine/internal/service/advance"
	attendanceService "github.com/cmlabs-hris/hris-payroll-engine/internal/service/attendance"
	dashboardService "github.com/cmlabs-hris/hris-payroll-engine/internal/service/dashboard"
	employeeService "github.com/cmlabs-hris/hris-payroll-engine/internal/service/employee"
	payrollService "github.com/cmlabs-hris/hris-payroll-engine/internal/service/payroll"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/service/recompute"
	"github.com/go-chi/httplog/v3"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Println("Error loading config:", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.App)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgreSQLDB(ctx, cfg.DatabaseURL(), database.PoolOptions{
		MaxConns:        cfg.Database.MaxConns,
		MinConns:        cfg.Database.MinConns,
		MaxConnLifetime: cfg.Database.MaxConnLifetime,
	})
	if err != nil {
		slog.Error("Error connecting to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Cache and locks live in Redis when configured, in-process otherwise
	var (
		cacheStore cache.Store
		locker     lock.Locker
	)
	if cfg.Redis.Enabled() {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			slog.Error("Error connecting to redis", "error", err, "addr", cfg.Redis.Addr)
			os.Exit(1)
		}
		cacheStore = cache.NewRedisStore(rdb)
		locker = lock.NewRedisLocker(redislock.New(rdb))
		slog.Info("Using redis for cache and locks", "addr", cfg.Redis.Addr)
	} else {
		cacheStore = cache.NewMemoryStore()
		locker = lock.NewLocalLocker()
		slog.Warn("REDIS_ADDR not set, cache and locks are local to this process")
	}
	invalidator := cache.NewInvalidator(cacheStore)
	hub := sse.NewHub()

	transactor := postgresql.NewTransactor(db)
	employeeRepo := postgresql.NewEmployeeRepository(db)
	attendanceRepo := postgresql.NewAttendanceRepository(db)
	queueRepo := postgresql.NewRecomputeQueueRepository(db)
	advanceRepo := postgresql.NewAdvanceRepository(db)
	payrollRepo := postgresql.NewPayrollRepository(db)

	aggregator := attendanceService.NewAggregator(attendanceRepo)
	coordinator := recompute.NewCoordinator(aggregator, queueRepo, invalidator, hub, recompute.Options{
		Workers:     cfg.Recompute.Workers,
		QueueSize:   cfg.Recompute.QueueSize,
		StaleAfter:  cfg.Recompute.StaleAfter,
		MaxAttempts: cfg.Recompute.MaxAttempts,
		SweepBatch:  cfg.Recompute.SweepBatch,
		Locker:      locker,
	})

	attendanceSvc := attendanceService.NewAttendanceService(
		transactor,
		attendanceRepo,
		queueRepo,
		employeeRepo,
		aggregator,
		coordinator,
		cacheStore,
		cfg.Cache.TTL,
	)
	ledger := advanceService.NewLedgerService(transactor, advanceRepo, employeeRepo, invalidator)
	payrollSvc := payrollService.NewPayrollService(
		transactor,
		payrollRepo,
		employeeRepo,
		attendanceSvc,
		ledger,
		locker,
		cacheStore,
		hub,
		payrollService.Settings{
			DefaultTDSRate:            cfg.Payroll.DefaultTDSRate,
			DefaultWorkingDaysInMonth: cfg.Payroll.DefaultWorkingDaysInMonth,
			WorkingDaysSource:         payroll.WorkingDaysSource(cfg.Payroll.WorkingDaysSource),
			CacheTTL:                  cfg.Cache.TTL,
			LockTTL:                   cfg.Payroll.LockTTL,
		},
	)
	employeeSvc := employeeService.NewEmployeeService(employeeRepo, cacheStore, cfg.Cache.TTL)
	dashboardSvc := dashboardService.NewDashboardService(attendanceRepo, employeeRepo, payrollRepo, cacheStore, cfg.Cache.TTL)

	JWTService := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.SSETokenTTL)

	router := appHTTP.NewRouter(
		appHTTP.RouterOptions{Logger: logger, AllowedOrigins: cfg.App.AllowedOrigins},
		JWTService,
		appHTTP.Handlers{
			Attendance: appHTTP.NewAttendanceHandler(attendanceSvc),
			Advance:    appHTTP.NewAdvanceHandler(ledger),
			Payroll:    appHTTP.NewPayrollHandler(payrollSvc),
			Employee:   appHTTP.NewEmployeeHandler(employeeSvc),
			Dashboard:  appHTTP.NewDashboardHandler(dashboardSvc),
			Events:     appHTTP.NewEventsHandler(JWTService, hub),
		},
	)

	// Background work: recompute workers plus the outbox sweep. Workers get
	// their own context so Stop can drain the queue after the signal.
	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()
	coordinator.Start(workerCtx)
	scheduler := cron.NewScheduler(ctx)
	cron.NewAttendanceJobs(coordinator, cfg.Recompute.SweepInterval).RegisterJobs(scheduler)
	scheduler.Start()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("Server running", "addr", srv.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server shutdown failed", "error", err)
	}
	scheduler.Stop()
	coordinator.Stop()
	cancelWorkers()
	slog.Info("Shutdown complete")
}

func newLogger(app config.AppConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(app.LogLevel))); err != nil {
		level = slog.LevelInfo
	}

	logFormat := httplog.SchemaECS.Concise(app.Env != "production")
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", "hris-payroll-engine"),
		slog.String("env", app.Env),
	)
}
