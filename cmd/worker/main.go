package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/posrapor/posrapor/internal/app"
	"github.com/posrapor/posrapor/internal/dashboard"
	"github.com/posrapor/posrapor/internal/observability"
	"github.com/posrapor/posrapor/internal/platform/cache"
	"github.com/posrapor/posrapor/internal/platform/db"
	"github.com/posrapor/posrapor/internal/reports"
	"github.com/posrapor/posrapor/internal/tenant"
	"github.com/posrapor/posrapor/jobs"
)

// warmupCron pre-computes today-dashboards every 10 minutes so the first
// request after a cache expiry still lands on a warm entry.
const warmupCron = "*/10 * * * *"

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	catalogPool, err := db.New(ctx, cfg.CatalogDSN)
	if err != nil {
		logger.Error("connect catalog postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer catalogPool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()

	catalog := tenant.NewCatalog(catalogPool)
	registry := tenant.NewPoolRegistry(nil)
	defer registry.Close()
	router := tenant.NewRouter(registry, catalog, logger)

	engine := reports.NewEngine(metrics)
	reportService := reports.NewService(router, engine)
	sessions := dashboard.SessionFactory(func(ctx context.Context, user *tenant.User, req reports.Request) (dashboard.SubReports, error) {
		return reportService.NewSession(ctx, user, req)
	})
	dashboardService := dashboard.NewService(sessions, dashboard.NewCache(redisClient), metrics, logger)

	warmup := jobs.NewDashboardWarmupJob(dashboardService, catalog, logger)

	warmupTask, err := jobs.NewDashboardWarmupTask(jobs.DashboardWarmupPayload{})
	if err != nil {
		logger.Error("build warmup task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskDashboardWarmup, Handler: warmup.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: warmupCron, Task: warmupTask, Options: []asynq.Option{asynq.Queue(jobs.QueueDefault)}},
		},
	})
	if err != nil {
		logger.Error("build worker", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("starting worker", slog.String("redis", cfg.RedisAddr))
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker stopped", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("worker shut down")
}
