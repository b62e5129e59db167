package reports

import (
	"context"
	"time"

	"github.com/posrapor/posrapor/internal/tenant"
)

// Request carries the common report parameters after HTTP unmarshaling.
// BranchIndex < 0 means the user's stored selection.
type Request struct {
	BranchIndex int
	Period      string
	StartDate   string
	EndDate     string
}

// Service binds the branch router with the query engine. It carries no
// per-request state; a Session does.
type Service struct {
	router *tenant.Router
	engine *Engine
	now    func() time.Time
}

// NewService wires the router and engine.
func NewService(router *tenant.Router, engine *Engine) *Service {
	return &Service{router: router, engine: engine, now: time.Now}
}

// WithNow overrides the service clock for testing.
func (s *Service) WithNow(fn func() time.Time) {
	if fn != nil {
		s.now = fn
	}
}

// Session is a routed branch connection plus a resolved interval. All report
// calls inside one request share a single session so register-set resolution
// happens exactly once.
type Session struct {
	engine *Engine
	q      Querier
	scope  Scope
}

// NewSession resolves the user's branch and the requested period.
func (s *Service) NewSession(ctx context.Context, user *tenant.User, req Request) (*Session, error) {
	resolved, err := s.router.Resolve(ctx, user, req.BranchIndex)
	if err != nil {
		return nil, err
	}
	start, end, err := ResolveRange(s.now(), req.Period, req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}
	return &Session{
		engine: s.engine,
		q:      resolved.Pool,
		scope: Scope{
			Kasalar: resolved.Kasalar,
			Primary: resolved.PrimaryKasa,
			Start:   start,
			End:     end,
		},
	}, nil
}

// Scope exposes the resolved filter, mainly for logging and tests.
func (sess *Session) Scope() Scope { return sess.scope }

func (sess *Session) OpenOrders(ctx context.Context) ([]OrderSummary, error) {
	return sess.engine.OpenOrders(ctx, sess.q, sess.scope)
}

func (sess *Session) ClosedOrders(ctx context.Context, adtur string) ([]OrderSummary, error) {
	return sess.engine.ClosedOrders(ctx, sess.q, sess.scope, adtur)
}

func (sess *Session) OrderDetail(ctx context.Context, adsno int64) (*OrderDetail, error) {
	return sess.engine.OrderDetail(ctx, sess.q, sess.scope, adsno)
}

func (sess *Session) Performance(ctx context.Context) (PerformanceSummary, error) {
	return sess.engine.Performance(ctx, sess.q, sess.scope)
}

func (sess *Session) PaymentTypes(ctx context.Context) ([]PaymentTypeRow, error) {
	return sess.engine.PaymentTypes(ctx, sess.q, sess.scope)
}

func (sess *Session) SalesChart(ctx context.Context) ([]SalesChartPoint, error) {
	return sess.engine.SalesChart(ctx, sess.q, sess.scope)
}

func (sess *Session) CancelledItems(ctx context.Context) ([]CancelledItemRow, error) {
	return sess.engine.CancelledItems(ctx, sess.q, sess.scope)
}

func (sess *Session) Debts(ctx context.Context) ([]DebtRow, error) {
	return sess.engine.Debts(ctx, sess.q, sess.scope)
}

func (sess *Session) Unpayable(ctx context.Context) ([]UnpayableRow, error) {
	return sess.engine.Unpayable(ctx, sess.q, sess.scope)
}

func (sess *Session) Discount(ctx context.Context) ([]DiscountRow, error) {
	return sess.engine.Discount(ctx, sess.q, sess.scope)
}

func (sess *Session) CourierTracking(ctx context.Context) ([]CourierRow, error) {
	return sess.engine.CourierTracking(ctx, sess.q, sess.scope)
}

func (sess *Session) ProductSales(ctx context.Context) ([]ProductSaleRow, error) {
	return sess.engine.ProductSales(ctx, sess.q, sess.scope)
}

func (sess *Session) ProductGroups(ctx context.Context) ([]ProductGroupRow, error) {
	return sess.engine.ProductGroups(ctx, sess.q, sess.scope)
}

func (sess *Session) Personnel(ctx context.Context) ([]PersonnelRow, error) {
	return sess.engine.Personnel(ctx, sess.q, sess.scope)
}
