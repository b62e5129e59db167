package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/posrapor/posrapor/internal/app"
	"github.com/posrapor/posrapor/internal/auth"
	"github.com/posrapor/posrapor/internal/dashboard"
	"github.com/posrapor/posrapor/internal/observability"
	"github.com/posrapor/posrapor/internal/platform/cache"
	"github.com/posrapor/posrapor/internal/platform/db"
	"github.com/posrapor/posrapor/internal/reports"
	"github.com/posrapor/posrapor/internal/stock"
	"github.com/posrapor/posrapor/internal/tenant"
	"github.com/posrapor/posrapor/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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
		// The dashboard cache degrades to recompute-per-request without
		// Redis, so startup continues.
		logger.Warn("redis unavailable, dashboard cache disabled", slog.Any("error", err))
		redisClient = nil
	}
	defer func() {
		if redisClient == nil {
			return
		}
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()

	catalog := tenant.NewCatalog(catalogPool)
	registry := tenant.NewPoolRegistry(nil)
	defer registry.Close()
	router := tenant.NewRouter(registry, catalog, logger)
	branchHandler := tenant.NewHandler(logger, catalog)

	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL)
	authService := auth.NewService(catalog, tokens, logger)
	authHandler := auth.NewHandler(logger, authService)
	authMiddleware := auth.Middleware(tokens, catalog)

	engine := reports.NewEngine(metrics)
	reportService := reports.NewService(router, engine)
	reportsHandler := reports.NewHandler(logger, reportService)

	sessions := dashboard.SessionFactory(func(ctx context.Context, user *tenant.User, req reports.Request) (dashboard.SubReports, error) {
		return reportService.NewSession(ctx, user, req)
	})
	dashboardCache := dashboard.NewCache(redisClient)
	dashboardService := dashboard.NewService(sessions, dashboardCache, metrics, logger)
	dashboardHandler := dashboard.NewHandler(logger, dashboardService)

	stockHandler := stock.NewHandler(logger, router, stock.NewRepository())

	jobsClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("asynq client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobsClient.Close(); err != nil {
			logger.Warn("asynq client close", slog.Any("error", err))
		}
	}()
	jobsHandler := jobs.NewHandler(jobsClient, logger)

	handler := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		AuthHandler:      authHandler,
		AuthMiddleware:   authMiddleware,
		BranchHandler:    branchHandler,
		ReportsHandler:   reportsHandler,
		DashboardHandler: dashboardHandler,
		StockHandler:     stockHandler,
		JobsHandler:      jobsHandler,
		Metrics:          metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      handler,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
