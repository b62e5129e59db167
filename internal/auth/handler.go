package auth

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/posrapor/posrapor/internal/platform/httpx"
	"github.com/posrapor/posrapor/internal/tenant"
)

// Handler exposes the login endpoint.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs the auth HTTP handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes attaches auth routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/login", h.handleLogin)
}

type loginRequest struct {
	Email    string `json:"eposta" validate:"required,email"`
	Password string `json:"sifre" validate:"required,min=4"`
}

type branchView struct {
	ID   int64  `json:"id"`
	Ad   string `json:"ad"`
	Kasa int    `json:"kasa_no"`
}

type userView struct {
	ID             int64                 `json:"id"`
	Email          string                `json:"eposta"`
	Admin          bool                  `json:"admin"`
	Branches       []branchView          `json:"subeler"`
	SelectedBranch int                   `json:"secili_sube"`
	AllowedReports tenant.AllowedReports `json:"izinli_raporlar"`
}

type loginResponse struct {
	Token string   `json:"token"`
	User  userView `json:"kullanici"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "eposta and sifre are required")
		return
	}

	token, user, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.logger.Warn("login failed", slog.String("email", req.Email), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, loginResponse{Token: token, User: viewOf(user)})
}

// viewOf strips branch connection credentials from the API representation.
func viewOf(user *tenant.User) userView {
	view := userView{
		ID:             user.ID,
		Email:          user.Email,
		Admin:          user.Admin,
		Branches:       make([]branchView, 0, len(user.Branches)),
		SelectedBranch: user.SelectedBranch,
		AllowedReports: user.AllowedReports,
	}
	for _, branch := range user.Branches {
		view.Branches = append(view.Branches, branchView{ID: branch.ID, Ad: branch.Name, Kasa: branch.KasaNo})
	}
	return view
}
