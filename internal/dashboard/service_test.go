package dashboard

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/posrapor/posrapor/internal/reports"
	"github.com/posrapor/posrapor/internal/tenant"
)

type mockSession struct {
	open      []reports.OrderSummary
	closed    []reports.OrderSummary
	perf      reports.PerformanceSummary
	debts     []reports.DebtRow
	cancelled []reports.CancelledItemRow

	closedErr error
	debtsErr  error
}

func (m *mockSession) OpenOrders(ctx context.Context) ([]reports.OrderSummary, error) {
	return m.open, nil
}

func (m *mockSession) ClosedOrders(ctx context.Context, adtur string) ([]reports.OrderSummary, error) {
	if m.closedErr != nil {
		return nil, m.closedErr
	}
	return m.closed, nil
}

func (m *mockSession) Performance(ctx context.Context) (reports.PerformanceSummary, error) {
	return m.perf, nil
}

func (m *mockSession) Debts(ctx context.Context) ([]reports.DebtRow, error) {
	if m.debtsErr != nil {
		return nil, m.debtsErr
	}
	return m.debts, nil
}

func (m *mockSession) CancelledItems(ctx context.Context) ([]reports.CancelledItemRow, error) {
	return m.cancelled, nil
}

func newTestService(t *testing.T, sess *mockSession, sessionErr error) (*Service, *int, func()) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	factoryCalls := 0
	factory := func(ctx context.Context, user *tenant.User, req reports.Request) (SubReports, error) {
		factoryCalls++
		if sessionErr != nil {
			return nil, sessionErr
		}
		return sess, nil
	}
	svc := NewService(factory, NewCache(client), nil, slog.Default())
	return svc, &factoryCalls, func() {
		_ = client.Close()
		mr.Close()
	}
}

func dashboardUser() *tenant.User {
	return &tenant.User{ID: 42, Branches: []tenant.Branch{{ID: 1, KasaNo: 1}}, SelectedBranch: 0}
}

func closedOrder(adsno int64, toplam float64, adtur string) reports.OrderSummary {
	closedAt := time.Date(2025, 6, 18, 20, 0, 0, 0, time.UTC)
	return reports.OrderSummary{AdsNo: adsno, KasaNo: 1, Toplam: toplam, Adtur: adtur, Kapanis: &closedAt}
}

func TestGetDashboardScenario(t *testing.T) {
	// Three closed orders totaling 450.00, one of them a delivery order.
	sess := &mockSession{
		closed: []reports.OrderSummary{
			closedOrder(1, 150.00, reports.AdturPaket),
			closedOrder(2, 180.00, reports.AdturAdisyon),
			closedOrder(3, 120.00, reports.AdturAdisyon),
		},
	}
	svc, _, cleanup := newTestService(t, sess, nil)
	defer cleanup()

	summary := svc.GetDashboard(context.Background(), dashboardUser(), reports.PeriodToday, "", "")
	if summary.KapaliToplam != 450.00 {
		t.Fatalf("kapali_adisyon_toplam = %.2f, want 450.00", summary.KapaliToplam)
	}
	if summary.KapaliAdet != 3 {
		t.Fatalf("kapali_adisyon_adet = %d, want 3", summary.KapaliAdet)
	}
	paket := summary.Dagilim[reports.AdturPaket]
	if paket.KapaliToplam != 150.00 {
		t.Fatalf("dagilim.paket.kapali_toplam = %.2f, want 150.00", paket.KapaliToplam)
	}
	// 150/450 = 33.33%, rounded to the nearest integer.
	if paket.KapaliYuzde != 33 {
		t.Fatalf("dagilim.paket.kapali_yuzde = %d, want 33", paket.KapaliYuzde)
	}
	if summary.Dagilim[reports.AdturAdisyon].KapaliYuzde != 67 {
		t.Fatalf("dagilim.adisyon.kapali_yuzde = %d, want 67", summary.Dagilim[reports.AdturAdisyon].KapaliYuzde)
	}
}

func TestGetDashboardServesFromCache(t *testing.T) {
	sess := &mockSession{closed: []reports.OrderSummary{closedOrder(1, 100, reports.AdturAdisyon)}}
	svc, factoryCalls, cleanup := newTestService(t, sess, nil)
	defer cleanup()

	user := dashboardUser()
	first := svc.GetDashboard(context.Background(), user, reports.PeriodToday, "", "")
	if *factoryCalls != 1 {
		t.Fatalf("expected one computation, factory called %d times", *factoryCalls)
	}

	// The underlying data changes, but inside the TTL the cached summary is
	// returned verbatim.
	sess.closed = append(sess.closed, closedOrder(2, 900, reports.AdturAdisyon))
	second := svc.GetDashboard(context.Background(), user, reports.PeriodToday, "", "")
	if *factoryCalls != 1 {
		t.Fatalf("expected cache hit, factory called %d times", *factoryCalls)
	}
	if second.KapaliToplam != first.KapaliToplam {
		t.Fatalf("cache hit returned different data: %.2f vs %.2f", second.KapaliToplam, first.KapaliToplam)
	}
}

func TestGetDashboardCacheKeysAreTenantScoped(t *testing.T) {
	a := Key(1, 0, reports.PeriodToday, "", "")
	b := Key(2, 0, reports.PeriodToday, "", "")
	if a == b {
		t.Fatalf("keys for different users collide: %q", a)
	}
	c := Key(1, 1, reports.PeriodToday, "", "")
	if a == c {
		t.Fatalf("keys for different branches collide: %q", a)
	}
	d := Key(1, 0, reports.PeriodCustom, "2025-01-01", "2025-01-31")
	e := Key(1, 0, reports.PeriodCustom, "2025-01-01", "2025-02-28")
	if d == e {
		t.Fatalf("keys for different custom ranges collide: %q", d)
	}
}

func TestTTLFor(t *testing.T) {
	if got := TTLFor(reports.PeriodToday); got != 120*time.Second {
		t.Fatalf("today ttl = %v, want 120s", got)
	}
	if got := TTLFor(reports.PeriodYesterday); got != 120*time.Second {
		t.Fatalf("yesterday ttl = %v, want 120s", got)
	}
	if got := TTLFor(reports.PeriodLastMonth); got != 600*time.Second {
		t.Fatalf("lastmonth ttl = %v, want 600s", got)
	}
}

func TestGetDashboardPaymentLedgerOverridesTotal(t *testing.T) {
	sess := &mockSession{
		closed: []reports.OrderSummary{
			closedOrder(1, 100, reports.AdturAdisyon),
			closedOrder(2, 100, reports.AdturAdisyon),
		},
		perf: reports.PerformanceSummary{Toplam: 230.50, Adet: 2},
	}
	svc, _, cleanup := newTestService(t, sess, nil)
	defer cleanup()

	summary := svc.GetDashboard(context.Background(), dashboardUser(), reports.PeriodToday, "", "")
	if summary.KapaliToplam != 230.50 {
		t.Fatalf("payment ledger total must win: got %.2f, want 230.50", summary.KapaliToplam)
	}
	// The count stays with the order ledger.
	if summary.KapaliAdet != 2 {
		t.Fatalf("kapali_adisyon_adet = %d, want 2", summary.KapaliAdet)
	}
}

func TestGetDashboardPartialFailureNeutralizesOnlyThatReport(t *testing.T) {
	sess := &mockSession{
		closed:   []reports.OrderSummary{closedOrder(1, 100, reports.AdturAdisyon)},
		debts:    []reports.DebtRow{{Musteri: "X", Toplam: 75}},
		debtsErr: errors.New("relation odeme does not exist"),
	}
	svc, _, cleanup := newTestService(t, sess, nil)
	defer cleanup()

	summary := svc.GetDashboard(context.Background(), dashboardUser(), reports.PeriodToday, "", "")
	if summary.Borc != 0 {
		t.Fatalf("failed sub-report must neutralize to zero, got %.2f", summary.Borc)
	}
	if summary.KapaliToplam != 100 {
		t.Fatalf("sibling sub-reports must survive, got %.2f", summary.KapaliToplam)
	}
}

func TestGetDashboardSessionFailureReturnsZeroSummary(t *testing.T) {
	svc, _, cleanup := newTestService(t, nil, errors.New("branch unreachable"))
	defer cleanup()

	summary := svc.GetDashboard(context.Background(), dashboardUser(), reports.PeriodWeek, "", "")
	if summary.Donem != reports.PeriodWeek {
		t.Fatalf("donem = %q, want %q", summary.Donem, reports.PeriodWeek)
	}
	if summary.KapaliToplam != 0 || summary.AcikToplam != 0 {
		t.Fatal("zero summary expected when the session cannot open")
	}
	if len(summary.Dagilim) != 3 {
		t.Fatalf("zero summary must carry all buckets, got %d", len(summary.Dagilim))
	}
}

func TestGetDashboardDistributesDiscountProportionally(t *testing.T) {
	orders := []reports.OrderSummary{
		closedOrder(1, 300, reports.AdturAdisyon),
		closedOrder(2, 100, reports.AdturPaket),
	}
	orders[0].Indirim = 30
	orders[1].Indirim = 10
	sess := &mockSession{closed: orders}
	svc, _, cleanup := newTestService(t, sess, nil)
	defer cleanup()

	summary := svc.GetDashboard(context.Background(), dashboardUser(), reports.PeriodToday, "", "")
	if summary.Indirim != 40 {
		t.Fatalf("indirim_toplam = %.2f, want 40", summary.Indirim)
	}
	if got := summary.Dagilim[reports.AdturAdisyon].Indirim; got != 30 {
		t.Fatalf("adisyon discount share = %.2f, want 30", got)
	}
	if got := summary.Dagilim[reports.AdturPaket].Indirim; got != 10 {
		t.Fatalf("paket discount share = %.2f, want 10", got)
	}
}
