// Package main - точка входа для фоновых процессов (Worker) Student Hub.
//
// Worker отвечает за периодические задачи:
// - Удаление неподтверждённых попыток верификации после истечения срока
// - Удаление устаревших дневных счётчиков сообщений коуча
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/integration-hub/student-hub/config"

	// Infrastructure layer
	"github.com/integration-hub/student-hub/internal/infrastructure/metrics"
	"github.com/integration-hub/student-hub/internal/infrastructure/persistence/postgres"
	"github.com/integration-hub/student-hub/internal/infrastructure/scheduler"
	"github.com/integration-hub/student-hub/internal/infrastructure/scheduler/jobs"

	// Packages
	"github.com/integration-hub/student-hub/pkg/logger"
	"github.com/integration-hub/student-hub/pkg/retry"
)

// metricsAddr - адрес, на котором worker отдаёт /metrics.
const metricsAddr = ":9090"

// ══════════════════════════════════════════════════════════════════════════════
// MAIN
// ══════════════════════════════════════════════════════════════════════════════

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. ЗАГРУЗКА КОНФИГУРАЦИИ
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.Database.URL == "" {
		return errors.New("DATABASE_URL is required")
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. НАСТРОЙКА ЛОГИРОВАНИЯ
	// ─────────────────────────────────────────────────────────────────────────
	opts := logger.DefaultOptions()
	opts.AppName = cfg.App.Name + "-worker"
	opts.Level = logger.ParseLevel(cfg.Observability.LogLevel)
	opts.FilePath = cfg.Observability.LogFile
	log := logger.New(opts)
	defer func() { _ = log.Sync() }()

	log.Info("starting Student Hub Worker",
		logger.String("env", string(cfg.App.Environment)),
		logger.Bool("scheduler_enabled", cfg.Scheduler.Enabled),
	)

	if !cfg.Scheduler.Enabled {
		log.Info("scheduler disabled, nothing to do")
		return nil
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 3. ПОДКЛЮЧЕНИЕ К БАЗЕ ДАННЫХ
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("connecting to database...")
	var dbConn *postgres.Connection
	retrier := retry.DatabaseRetrier(func(attempt int, err error, delay time.Duration) {
		log.Warn("database not reachable, retrying",
			logger.Int("attempt", attempt), logger.Duration("delay", delay), logger.Err(err))
	})
	err = retrier.Do(ctx, func(ctx context.Context) error {
		c, err := postgres.NewConnection(ctx, cfg.Database.URL, postgres.DefaultPoolOptions())
		if err != nil {
			return err
		}
		dbConn = c
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		log.Info("closing database connection...")
		dbConn.Close()
	}()

	// ─────────────────────────────────────────────────────────────────────────
	// 4. ЗАПУСК МИГРАЦИЙ (Worker также должен иметь актуальную схему)
	// ─────────────────────────────────────────────────────────────────────────
	migrator := postgres.NewMigrator(dbConn)
	if steps := cfg.Database.RollbackSteps; steps > 0 {
		// Режим обслуживания: откатить миграции и выйти, задачи не запускаются.
		for i := 0; i < steps; i++ {
			if err := migrator.Rollback(ctx); err != nil {
				return fmt.Errorf("failed to roll back migration (step %d of %d): %w", i+1, steps, err)
			}
		}
		log.Info("migrations rolled back", logger.Int("steps", steps))
		return nil
	}
	if cfg.Database.AutoMigrate {
		applied, err := migrator.Migrate(ctx)
		if err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		log.Info("database schema is up to date", logger.Int("applied", applied))
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. РЕГИСТРАЦИЯ ЗАДАЧ
	// ─────────────────────────────────────────────────────────────────────────
	sched := scheduler.New(scheduler.Config{
		Logger:            log,
		JobTimeout:        cfg.Scheduler.JobTimeout,
		MaxConcurrentJobs: cfg.Scheduler.MaxConcurrentJobs,
		OnJobComplete: func(r scheduler.JobResult) {
			metrics.JobCompleted(r.JobName, r.Duration, r.Error)
		},
	})

	registrations := []struct {
		job  scheduler.Job
		expr string
	}{
		{
			job: jobs.NewPurgeVerificationRecordsJob(
				postgres.NewVerificationRepository(dbConn), cfg.Scheduler.VerificationRetention, log),
			expr: cfg.Scheduler.PurgeVerificationsSchedule,
		},
		{
			job: jobs.NewPurgeUsageCountersJob(
				postgres.NewUsageRepository(dbConn), cfg.Scheduler.UsageRetention, log),
			expr: cfg.Scheduler.PurgeUsageSchedule,
		},
	}
	for _, reg := range registrations {
		schedule, err := scheduler.ParseSchedule(reg.expr)
		if err != nil {
			return fmt.Errorf("invalid schedule for %s: %w", reg.job.Name(), err)
		}
		if err := sched.Register(reg.job, schedule); err != nil {
			return fmt.Errorf("failed to register %s: %w", reg.job.Name(), err)
		}
		log.Info("job registered", logger.String("job", reg.job.Name()), logger.String("schedule", reg.expr))
	}
	for _, name := range cfg.Scheduler.DisabledJobs {
		if err := sched.SetEnabled(name, false); err != nil {
			return fmt.Errorf("failed to disable job: %w", err)
		}
		log.Info("job disabled", logger.String("job", name))
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. МЕТРИКИ И ЗАПУСК ПЛАНИРОВЩИКА
	// ─────────────────────────────────────────────────────────────────────────
	var metricsServer *http.Server
	if cfg.Observability.MetricsEnabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		metricsServer = &http.Server{Addr: metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("metrics server failed", logger.Err(err))
			}
		}()
	}

	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	log.Info("Student Hub Worker is running")

	// ─────────────────────────────────────────────────────────────────────────
	// 7. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	<-ctx.Done()
	log.Info("received shutdown signal, stopping scheduler...",
		logger.Duration("timeout", cfg.App.ShutdownTimeout))

	stopped := make(chan error, 1)
	go func() { stopped <- sched.Stop() }()
	select {
	case err := <-stopped:
		if err != nil {
			log.Error("scheduler stop failed", logger.Err(err))
		}
	case <-time.After(cfg.App.ShutdownTimeout):
		log.Warn("scheduler did not stop in time")
	}

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}

	log.Info("shutdown completed successfully")
	return nil
}
