package dashboard

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/posrapor/posrapor/internal/platform/httpx"
	"github.com/posrapor/posrapor/internal/tenant"
)

const streamInterval = 5 * time.Second

// Handler exposes the dashboard endpoints. The dashboard contract is
// deliberately lenient: internal failures render a zero-filled summary with
// HTTP 200 so clients can draw a neutral empty state instead of an error
// page.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs the dashboard HTTP handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes attaches the JSON dashboard route.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.handleDashboard)
}

// MountStream attaches the SSE route. It is mounted separately so the
// router can keep the shared request timeout off the long-lived connection.
func (h *Handler) MountStream(r chi.Router) {
	r.Get("/stream", h.handleStream)
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	user := tenant.UserFromContext(r.Context())
	if user == nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	query := r.URL.Query()
	summary := h.service.GetDashboard(r.Context(), user,
		query.Get("period"), query.Get("start_date"), query.Get("end_date"))
	httpx.JSON(w, http.StatusOK, summary)
}

// handleStream re-emits the dashboard every 5 seconds as Server-Sent Events
// for clients that want live updates instead of polling.
func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	user := tenant.UserFromContext(r.Context())
	if user == nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	query := r.URL.Query()
	period := query.Get("period")
	startDate := query.Get("start_date")
	endDate := query.Get("end_date")

	emit := func() {
		summary := h.service.GetDashboard(r.Context(), user, period, startDate, endDate)
		payload, err := json.Marshal(summary)
		if err != nil {
			h.logger.Warn("dashboard stream marshal", slog.Any("error", err))
			return
		}
		_, _ = w.Write([]byte("data: "))
		_, _ = w.Write(payload)
		_, _ = w.Write([]byte("\n\n"))
		flusher.Flush()
	}

	emit()
	ticker := time.NewTicker(streamInterval)
	defer ticker.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			emit()
		}
	}
}
