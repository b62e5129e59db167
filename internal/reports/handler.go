package reports

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/posrapor/posrapor/internal/platform/httpx"
	"github.com/posrapor/posrapor/internal/shared"
	"github.com/posrapor/posrapor/internal/tenant"
)

// Handler exposes the per-report HTTP endpoints. These are thin: parameter
// marshaling, permission checks, and error mapping; everything else lives in
// the service and engine.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
	now      func() time.Time
}

// NewHandler constructs the reports HTTP handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{
		logger:   logger,
		service:  service,
		validate: validator.New(),
		now:      time.Now,
	}
}

// MountRoutes attaches report routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/orders", h.handleOrders)
	r.Get("/order-details", h.handleOrderDetail)
	// Legacy path-parameter alias kept for older mobile clients.
	r.Get("/order-details/{adsno}", h.handleOrderDetail)
	r.Get("/performance", h.report(ReportPerformance, func(ctx context.Context, sess *Session) (any, error) {
		return sess.Performance(ctx)
	}))
	r.Get("/payment-types", h.report(ReportPaymentTypes, func(ctx context.Context, sess *Session) (any, error) {
		return sess.PaymentTypes(ctx)
	}))
	r.Get("/sales-chart", h.report(ReportSalesChart, func(ctx context.Context, sess *Session) (any, error) {
		return sess.SalesChart(ctx)
	}))
	r.Get("/cancelled-items", h.report(ReportCancelledItems, func(ctx context.Context, sess *Session) (any, error) {
		return sess.CancelledItems(ctx)
	}))
	r.Get("/debts", h.report(ReportDebts, func(ctx context.Context, sess *Session) (any, error) {
		return sess.Debts(ctx)
	}))
	r.Get("/unpayable", h.report(ReportUnpayable, func(ctx context.Context, sess *Session) (any, error) {
		return sess.Unpayable(ctx)
	}))
	r.Get("/discount", h.report(ReportDiscount, func(ctx context.Context, sess *Session) (any, error) {
		return sess.Discount(ctx)
	}))
	r.Get("/courier-tracking", h.report(ReportCourierTracking, func(ctx context.Context, sess *Session) (any, error) {
		return sess.CourierTracking(ctx)
	}))
	r.Get("/product-sales", h.report(ReportProductSales, func(ctx context.Context, sess *Session) (any, error) {
		return sess.ProductSales(ctx)
	}))
	r.Get("/product-groups", h.report(ReportProductGroups, func(ctx context.Context, sess *Session) (any, error) {
		return sess.ProductGroups(ctx)
	}))
	r.Get("/personnel", h.report(ReportPersonnel, func(ctx context.Context, sess *Session) (any, error) {
		return sess.Personnel(ctx)
	}))
}

type filterParams struct {
	Period    string `validate:"omitempty,max=16"`
	StartDate string `validate:"omitempty,datetime=2006-01-02"`
	EndDate   string `validate:"omitempty,datetime=2006-01-02"`
}

// report builds a handler for one report: authorize, open a session, run the
// query, respond.
func (h *Handler) report(reportID string, fn func(context.Context, *Session) (any, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, req, ok := h.prepare(w, r, reportID)
		if !ok {
			return
		}
		sess, err := h.service.NewSession(r.Context(), user, req)
		if err != nil {
			h.respondError(w, reportID, err)
			return
		}
		result, err := fn(r.Context(), sess)
		if err != nil {
			h.respondError(w, reportID, err)
			return
		}
		httpx.JSON(w, http.StatusOK, result)
	}
}

func (h *Handler) handleOrders(w http.ResponseWriter, r *http.Request) {
	user, req, ok := h.prepare(w, r, ReportOrders)
	if !ok {
		return
	}
	sess, err := h.service.NewSession(r.Context(), user, req)
	if err != nil {
		h.respondError(w, ReportOrders, err)
		return
	}

	var rows []OrderSummary
	switch r.URL.Query().Get("status") {
	case "closed":
		rows, err = sess.ClosedOrders(r.Context(), r.URL.Query().Get("type"))
	default:
		rows, err = sess.OpenOrders(r.Context())
	}
	if err != nil {
		h.respondError(w, ReportOrders, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rows)
}

func (h *Handler) handleOrderDetail(w http.ResponseWriter, r *http.Request) {
	user, req, ok := h.prepare(w, r, ReportOrderDetails)
	if !ok {
		return
	}

	raw := chi.URLParam(r, "adsno")
	if raw == "" {
		raw = r.URL.Query().Get("adsno")
	}
	adsno, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "adsno must be an integer")
		return
	}

	sess, err := h.service.NewSession(r.Context(), user, req)
	if err != nil {
		h.respondError(w, ReportOrderDetails, err)
		return
	}
	detail, err := sess.OrderDetail(r.Context(), adsno)
	if err != nil {
		// Legacy contract: a missing order is a JSON null, not a 404.
		if errors.Is(err, shared.ErrNotFound) {
			httpx.JSON(w, http.StatusOK, nil)
			return
		}
		h.respondError(w, ReportOrderDetails, err)
		return
	}
	httpx.JSON(w, http.StatusOK, detail)
}

// prepare authenticates, authorizes, and parses the shared parameters.
func (h *Handler) prepare(w http.ResponseWriter, r *http.Request, reportID string) (*tenant.User, Request, bool) {
	user := tenant.UserFromContext(r.Context())
	if user == nil {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "")
		return nil, Request{}, false
	}
	if !user.SubscriptionActive(h.now()) {
		httpx.RespondError(w, shared.ErrSubscriptionExpired)
		return nil, Request{}, false
	}
	if !user.Admin && !user.AllowedReports.Permits(reportID) {
		httpx.RespondError(w, shared.ErrReportNotAllowed)
		return nil, Request{}, false
	}

	query := r.URL.Query()
	params := filterParams{
		Period:    query.Get("period"),
		StartDate: query.Get("start_date"),
		EndDate:   query.Get("end_date"),
	}
	if err := h.validate.Struct(params); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "start_date and end_date must be YYYY-MM-DD")
		return nil, Request{}, false
	}

	branchIndex := -1
	if raw := query.Get("branch"); raw != "" {
		idx, err := strconv.Atoi(raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "branch must be an integer index")
			return nil, Request{}, false
		}
		branchIndex = idx
	}

	return user, Request{
		BranchIndex: branchIndex,
		Period:      params.Period,
		StartDate:   params.StartDate,
		EndDate:     params.EndDate,
	}, true
}

func (h *Handler) respondError(w http.ResponseWriter, reportID string, err error) {
	if errors.Is(err, ErrCustomRangeRequired) {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	h.logger.Warn("report failed", slog.String("report", reportID), slog.Any("error", err))
	httpx.RespondError(w, err)
}
