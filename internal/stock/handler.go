package stock

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/posrapor/posrapor/internal/platform/httpx"
	"github.com/posrapor/posrapor/internal/tenant"
)

// BranchRouter resolves the user's branch to a live connection.
type BranchRouter interface {
	Resolve(ctx context.Context, user *tenant.User, branchIndex int) (*tenant.Resolved, error)
}

// Handler exposes stock entry and live stock endpoints.
type Handler struct {
	logger   *slog.Logger
	router   BranchRouter
	repo     *Repository
	validate *validator.Validate
	now      func() time.Time
}

// NewHandler constructs the stock HTTP handler.
func NewHandler(logger *slog.Logger, router BranchRouter, repo *Repository) *Handler {
	return &Handler{
		logger:   logger,
		router:   router,
		repo:     repo,
		validate: validator.New(),
		now:      time.Now,
	}
}

// MountRoutes attaches stock routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/entries", h.handleCreateEntry)
	r.Get("/live", h.handleLiveStock)
}

type entryRequest struct {
	UrunAdi string  `json:"urun_adi" validate:"required,max=128"`
	Miktar  float64 `json:"miktar" validate:"required,gt=0"`
	Giris   bool    `json:"giris"`
}

func (h *Handler) handleCreateEntry(w http.ResponseWriter, r *http.Request) {
	user := tenant.UserFromContext(r.Context())
	if user == nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	var req entryRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "urun_adi and a positive miktar are required")
		return
	}

	resolved, err := h.router.Resolve(r.Context(), user, -1)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	entry := Entry{
		ID:      uuid.NewString(),
		UrunAdi: req.UrunAdi,
		Miktar:  req.Miktar,
		Giris:   req.Giris,
		Tarih:   h.now(),
		UserID:  user.ID,
	}
	if err := h.repo.InsertEntry(r.Context(), resolved.Pool, entry); err != nil {
		h.logger.Error("insert stock entry", slog.Int64("user_id", user.ID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, entry)
}

func (h *Handler) handleLiveStock(w http.ResponseWriter, r *http.Request) {
	user := tenant.UserFromContext(r.Context())
	if user == nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	resolved, err := h.router.Resolve(r.Context(), user, -1)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	rows, err := h.repo.LiveStock(r.Context(), resolved.Pool)
	if err != nil {
		h.logger.Error("live stock", slog.Int64("user_id", user.ID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rows)
}
