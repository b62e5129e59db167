package dashboard

import (
	"context"
	"log/slog"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/posrapor/posrapor/internal/observability"
	"github.com/posrapor/posrapor/internal/reports"
	"github.com/posrapor/posrapor/internal/tenant"
)

// SubReports is the slice of a report session the dashboard consumes.
// *reports.Session satisfies it.
type SubReports interface {
	OpenOrders(ctx context.Context) ([]reports.OrderSummary, error)
	ClosedOrders(ctx context.Context, adtur string) ([]reports.OrderSummary, error)
	Performance(ctx context.Context) (reports.PerformanceSummary, error)
	Debts(ctx context.Context) ([]reports.DebtRow, error)
	CancelledItems(ctx context.Context) ([]reports.CancelledItemRow, error)
}

// SessionFactory opens a routed report session for a user request.
type SessionFactory func(ctx context.Context, user *tenant.User, req reports.Request) (SubReports, error)

// Service computes and caches dashboard summaries. It never returns an
// error: the dashboard is advisory, so every failure path degrades to a
// zero-filled summary.
type Service struct {
	sessions SessionFactory
	cache    *Cache
	metrics  *observability.Metrics
	logger   *slog.Logger
}

// NewService wires the session factory with the cache.
func NewService(sessions SessionFactory, cache *Cache, metrics *observability.Metrics, logger *slog.Logger) *Service {
	return &Service{sessions: sessions, cache: cache, metrics: metrics, logger: logger}
}

// GetDashboard returns the summary for the user's selected branch and the
// given period, serving from cache inside the TTL window. A cache hit is
// returned verbatim, never merged with fresher data.
func (s *Service) GetDashboard(ctx context.Context, user *tenant.User, period, startDate, endDate string) Summary {
	if period == "" {
		period = reports.PeriodToday
	}
	key := Key(user.ID, user.SelectedBranch, period, startDate, endDate)

	var cached Summary
	hit, err := s.cache.Get(ctx, key, &cached)
	if err != nil {
		s.logger.Warn("dashboard cache read failed", slog.String("key", key), slog.Any("error", err))
	}
	if hit {
		s.metrics.DashboardCacheHit()
		return cached
	}
	s.metrics.DashboardCacheMiss()

	summary := s.compute(ctx, user, period, startDate, endDate)
	if err := s.cache.Set(ctx, key, summary, TTLFor(period)); err != nil {
		s.logger.Warn("dashboard cache write failed", slog.String("key", key), slog.Any("error", err))
	}
	return summary
}

// compute fans out the five sub-reports concurrently and merges them. An
// individual failure neutralizes only that sub-report; siblings keep
// running and the merge proceeds with whatever arrived.
func (s *Service) compute(ctx context.Context, user *tenant.User, period, startDate, endDate string) Summary {
	sess, err := s.sessions(ctx, user, reports.Request{
		BranchIndex: -1,
		Period:      period,
		StartDate:   startDate,
		EndDate:     endDate,
	})
	if err != nil {
		s.logger.Warn("dashboard session failed", slog.Int64("user_id", user.ID), slog.Any("error", err))
		return ZeroSummary(period)
	}

	var (
		open      []reports.OrderSummary
		closed    []reports.OrderSummary
		perf      reports.PerformanceSummary
		debts     []reports.DebtRow
		cancelled []reports.CancelledItemRow
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := sess.OpenOrders(gctx)
		if err != nil {
			s.neutralize("open_orders", err)
			return nil
		}
		open = rows
		return nil
	})
	g.Go(func() error {
		rows, err := sess.ClosedOrders(gctx, "")
		if err != nil {
			s.neutralize("closed_orders", err)
			return nil
		}
		closed = rows
		return nil
	})
	g.Go(func() error {
		summary, err := sess.Performance(gctx)
		if err != nil {
			s.neutralize("performance", err)
			return nil
		}
		perf = summary
		return nil
	})
	g.Go(func() error {
		rows, err := sess.Debts(gctx)
		if err != nil {
			s.neutralize("debts", err)
			return nil
		}
		debts = rows
		return nil
	})
	g.Go(func() error {
		rows, err := sess.CancelledItems(gctx)
		if err != nil {
			s.neutralize("cancelled_items", err)
			return nil
		}
		cancelled = rows
		return nil
	})
	_ = g.Wait()

	return merge(period, open, closed, perf, debts, cancelled)
}

func (s *Service) neutralize(report string, err error) {
	s.metrics.SubreportFailure(report)
	s.logger.Warn("dashboard sub-report neutralized", slog.String("report", report), slog.Any("error", err))
}

// merge combines the sub-report results. The merge is commutative over the
// sub-reports' completion order: it reads each input exactly once and
// derives everything else.
func merge(period string, open, closed []reports.OrderSummary, perf reports.PerformanceSummary, debts []reports.DebtRow, cancelled []reports.CancelledItemRow) Summary {
	summary := ZeroSummary(period)
	buckets := map[string]*Bucket{
		reports.AdturPaket:   {},
		reports.AdturAdisyon: {},
		reports.AdturHizli:   {},
	}
	bucketFor := func(adtur string) *Bucket {
		if b, ok := buckets[adtur]; ok {
			return b
		}
		return buckets[reports.AdturAdisyon]
	}

	for _, order := range open {
		b := bucketFor(order.Adtur)
		b.AcikToplam += order.Toplam
		b.AcikAdet++
		summary.AcikToplam += order.Toplam
		summary.AcikAdet++
	}

	var discountTotal float64
	for _, order := range closed {
		b := bucketFor(order.Adtur)
		b.KapaliToplam += order.Toplam
		b.KapaliAdet++
		summary.KapaliToplam += order.Toplam
		summary.KapaliAdet++
		discountTotal += order.Indirim
	}
	closedRevenue := summary.KapaliToplam

	// The payment ledger is authoritative when it produced a total: payments
	// spanning multiple order records can make the order ledger diverge.
	if perf.Toplam > 0 {
		summary.KapaliToplam = perf.Toplam
	}

	// Discounts are distributed across buckets proportionally to each
	// bucket's share of closed revenue.
	summary.Indirim = round2(discountTotal)
	for _, b := range buckets {
		if closedRevenue > 0 {
			b.Indirim = round2(discountTotal * b.KapaliToplam / closedRevenue)
		}
		b.AcikYuzde = percent(b.AcikToplam, summary.AcikToplam)
		b.KapaliYuzde = percent(b.KapaliToplam, summary.KapaliToplam)
	}

	for _, row := range debts {
		summary.Borc += row.Toplam
	}
	summary.Borc = round2(summary.Borc)

	for _, row := range cancelled {
		summary.IptalAdet++
		summary.IptalToplam += row.Tutar
	}
	summary.IptalToplam = round2(summary.IptalToplam)
	summary.AcikToplam = round2(summary.AcikToplam)
	summary.KapaliToplam = round2(summary.KapaliToplam)

	for adtur, b := range buckets {
		b.AcikToplam = round2(b.AcikToplam)
		b.KapaliToplam = round2(b.KapaliToplam)
		summary.Dagilim[adtur] = *b
	}
	return summary
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// percent is the integer-rounded share of part in total.
func percent(part, total float64) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(part / total * 100))
}
