package jobs

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"

	"github.com/posrapor/posrapor/internal/platform/httpx"
	"github.com/posrapor/posrapor/internal/tenant"
)

// WarmupEnqueuer submits dashboard warmup tasks. Satisfied by *Client.
type WarmupEnqueuer interface {
	EnqueueDashboardWarmup(ctx context.Context, payload DashboardWarmupPayload) (*asynq.TaskInfo, error)
}

// Handler exposes on-demand job triggers over HTTP. The scheduler warms the
// dashboard cache on its own cadence; this lets an administrator force a run
// right away, after a cache flush or a config change.
type Handler struct {
	enqueuer WarmupEnqueuer
	logger   *slog.Logger
}

// NewHandler constructs the jobs HTTP handler.
func NewHandler(enqueuer WarmupEnqueuer, logger *slog.Logger) *Handler {
	return &Handler{enqueuer: enqueuer, logger: logger}
}

// MountRoutes attaches the job trigger routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/warmup", h.handleWarmup)
}

type warmupRequest struct {
	ActiveWithinHours int `json:"active_within_hours"`
}

type warmupResponse struct {
	TaskID string `json:"task_id"`
	Queue  string `json:"queue"`
}

func (h *Handler) handleWarmup(w http.ResponseWriter, r *http.Request) {
	user := tenant.UserFromContext(r.Context())
	if user == nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	if !user.Admin {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "warmup requires an administrator")
		return
	}

	var req warmupRequest
	if r.ContentLength > 0 {
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed JSON body")
			return
		}
	}
	if req.ActiveWithinHours < 0 {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "active_within_hours must not be negative")
		return
	}

	info, err := h.enqueuer.EnqueueDashboardWarmup(r.Context(), DashboardWarmupPayload{
		ActiveWithinHours: req.ActiveWithinHours,
	})
	if err != nil {
		h.logger.Error("enqueue dashboard warmup", slog.Any("error", err))
		httpx.Problem(w, http.StatusServiceUnavailable, "Queue Unavailable", "warmup task could not be enqueued")
		return
	}

	h.logger.Info("dashboard warmup enqueued",
		slog.String("task_id", info.ID),
		slog.Int64("user_id", user.ID))
	httpx.JSON(w, http.StatusAccepted, warmupResponse{TaskID: info.ID, Queue: info.Queue})
}
