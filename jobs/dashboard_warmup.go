package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/posrapor/posrapor/internal/dashboard"
	"github.com/posrapor/posrapor/internal/reports"
	"github.com/posrapor/posrapor/internal/tenant"
)

const defaultActiveWindow = 24 * time.Hour

// DashboardWarmupJob recomputes today-dashboards for recently active users
// so polling clients mostly hit cache.
type DashboardWarmupJob struct {
	Dashboard *dashboard.Service
	Catalog   *tenant.Catalog
	Logger    *slog.Logger
	clock     func() time.Time
}

// NewDashboardWarmupJob wires dependencies for the warmup handler.
func NewDashboardWarmupJob(dashboardSvc *dashboard.Service, catalog *tenant.Catalog, logger *slog.Logger) *DashboardWarmupJob {
	return &DashboardWarmupJob{
		Dashboard: dashboardSvc,
		Catalog:   catalog,
		Logger:    logger,
		clock: func() time.Time {
			return time.Now()
		},
	}
}

// Handle processes dashboard warmup tasks.
func (j *DashboardWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Dashboard == nil || j.Catalog == nil {
		return errors.New("dashboard warmup: handler not configured")
	}
	var payload DashboardWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	window := defaultActiveWindow
	if payload.ActiveWithinHours > 0 {
		window = time.Duration(payload.ActiveWithinHours) * time.Hour
	}

	logger := j.logger().With(slog.Duration("window", window))
	logger.Info("starting dashboard warmup")

	since := j.clock().Add(-window)
	ids, err := j.Catalog.ActiveUserIDs(ctx, since)
	if err != nil {
		logger.Error("load active users", slog.Any("error", err))
		return err
	}
	if len(ids) == 0 {
		logger.Info("no active users to warm")
		return nil
	}

	warmed := 0
	for _, id := range ids {
		user, err := j.Catalog.UserByID(ctx, id)
		if err != nil {
			logger.Warn("load user for warmup", slog.Int64("user_id", id), slog.Any("error", err))
			continue
		}
		if len(user.Branches) == 0 {
			continue
		}
		// GetDashboard never fails; a broken branch warms to a zero summary.
		j.Dashboard.GetDashboard(ctx, user, reports.PeriodToday, "", "")
		warmed++
	}
	logger.Info("dashboard warmup complete", slog.Int("warmed", warmed))
	return nil
}

func (j *DashboardWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
