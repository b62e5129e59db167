package tenant

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/posrapor/posrapor/internal/platform/httpx"
	"github.com/posrapor/posrapor/internal/shared"
)

// Handler exposes branch listing and selection.
type Handler struct {
	logger  *slog.Logger
	catalog *Catalog
}

// NewHandler constructs the branches HTTP handler.
func NewHandler(logger *slog.Logger, catalog *Catalog) *Handler {
	return &Handler{logger: logger, catalog: catalog}
}

// MountRoutes attaches branch routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.handleList)
	r.Post("/select", h.handleSelect)
}

type branchItem struct {
	Index  int    `json:"index"`
	ID     int64  `json:"id"`
	Ad     string `json:"ad"`
	KasaNo int    `json:"kasa_no"`
	Secili bool   `json:"secili"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	if user == nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	items := make([]branchItem, 0, len(user.Branches))
	for i, branch := range user.Branches {
		items = append(items, branchItem{
			Index:  i,
			ID:     branch.ID,
			Ad:     branch.Name,
			KasaNo: branch.KasaNo,
			Secili: i == user.SelectedBranch,
		})
	}
	httpx.JSON(w, http.StatusOK, items)
}

type selectRequest struct {
	Index int `json:"index"`
}

func (h *Handler) handleSelect(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	if user == nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}
	var req selectRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if req.Index < 0 || req.Index >= len(user.Branches) {
		httpx.RespondError(w, shared.ErrInvalidBranchSelection)
		return
	}
	if err := h.catalog.UpdateSelectedBranch(r.Context(), user.ID, req.Index); err != nil {
		h.logger.Error("update selected branch", slog.Int64("user_id", user.ID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]int{"secili_sube": req.Index})
}
