package reports

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/posrapor/posrapor/internal/observability"
	"github.com/posrapor/posrapor/internal/shared"
)

// Querier is the subset of pgxpool.Pool the engine needs. The pool itself is
// routed per request, so every method takes it as an argument instead of
// holding one.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Scope is the mandatory filter applied to every report query: the branch's
// register set, its primary register, and the resolved date interval. An
// unscoped query is a defect.
type Scope struct {
	Kasalar []int32
	Primary int
	Start   time.Time
	End     time.Time
}

// Engine runs the report queries against a routed branch connection.
type Engine struct {
	metrics *observability.Metrics
}

// NewEngine constructs an engine. Metrics may be nil.
func NewEngine(metrics *observability.Metrics) *Engine {
	return &Engine{metrics: metrics}
}

func (e *Engine) observe(report string, start time.Time) {
	if e.metrics != nil {
		e.metrics.ObserveReportQuery(report, time.Since(start))
	}
}

func queryFailed(err error) error {
	return fmt.Errorf("%w: %v", shared.ErrQueryFailed, err)
}

const orderColumns = `adsno, kasa_no, acilis_tarihi, kapanis_tarihi,
	       COALESCE(toplam, 0), COALESCE(indirim, 0), COALESCE(adtur, ''),
	       COALESCE(paket, false), COALESCE(hizli, false), COALESCE(masa_no, ''),
	       COALESCE(personel_adi, ''), COALESCE(musteri_adi, '')`

// OpenOrders lists orders that have not been closed yet. Branch schemas
// disagree on whether acilis_tarihi is reliably populated, so the query
// degrades through a cascade: exact filter, then no date filter capped to
// the most recent 200 rows, then primary register only. Each tier runs only
// after the previous one returned zero rows.
func (e *Engine) OpenOrders(ctx context.Context, q Querier, scope Scope) ([]OrderSummary, error) {
	defer e.observe("open_orders", time.Now())

	full := `SELECT ` + orderColumns + `
		FROM adisyon
		WHERE kapanis_tarihi IS NULL AND kasa_no = ANY($1) AND acilis_tarihi BETWEEN $2 AND $3
		ORDER BY acilis_tarihi DESC`
	undated := `SELECT ` + orderColumns + `
		FROM adisyon
		WHERE kapanis_tarihi IS NULL AND kasa_no = ANY($1)
		ORDER BY acilis_tarihi DESC
		LIMIT 200`
	primaryOnly := `SELECT ` + orderColumns + `
		FROM adisyon
		WHERE kapanis_tarihi IS NULL AND kasa_no = $1
		ORDER BY acilis_tarihi DESC
		LIMIT 200`

	return RunCascade(ctx,
		func(ctx context.Context) ([]OrderSummary, error) {
			return e.scanOrders(ctx, q, full, scope.Kasalar, scope.Start, scope.End)
		},
		func(ctx context.Context) ([]OrderSummary, error) {
			return e.scanOrders(ctx, q, undated, scope.Kasalar)
		},
		func(ctx context.Context) ([]OrderSummary, error) {
			return e.scanOrders(ctx, q, primaryOnly, scope.Primary)
		},
	)
}

// ClosedOrders lists orders closed inside the interval. The optional adtur
// filter is applied after subtype inference, not in SQL, because older
// deployments leave the adtur column empty.
func (e *Engine) ClosedOrders(ctx context.Context, q Querier, scope Scope, adtur string) ([]OrderSummary, error) {
	defer e.observe("closed_orders", time.Now())

	query := `SELECT ` + orderColumns + `
		FROM adisyon
		WHERE kapanis_tarihi IS NOT NULL AND kasa_no = ANY($1) AND kapanis_tarihi BETWEEN $2 AND $3
		ORDER BY kapanis_tarihi DESC`
	orders, err := e.scanOrders(ctx, q, query, scope.Kasalar, scope.Start, scope.End)
	if err != nil {
		return nil, err
	}
	if adtur == "" {
		return orders, nil
	}
	filtered := orders[:0]
	for _, order := range orders {
		if order.Adtur == adtur {
			filtered = append(filtered, order)
		}
	}
	return filtered, nil
}

func (e *Engine) scanOrders(ctx context.Context, q Querier, query string, args ...any) ([]OrderSummary, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, queryFailed(err)
	}
	defer rows.Close()

	orders := []OrderSummary{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, queryFailed(err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, queryFailed(err)
	}
	return orders, nil
}

func scanOrder(row pgx.Row) (OrderSummary, error) {
	var (
		order        OrderSummary
		adturRaw     string
		paket, hizli bool
	)
	err := row.Scan(
		&order.AdsNo, &order.KasaNo, &order.Acilis, &order.Kapanis,
		&order.Toplam, &order.Indirim, &adturRaw, &paket, &hizli,
		&order.MasaNo, &order.Personel, &order.Musteri,
	)
	if err != nil {
		return OrderSummary{}, err
	}
	order.Adtur = InferAdtur(adturRaw, paket, hizli, order.MasaNo)
	return order, nil
}

// OrderDetail loads one order with its lines. Returns shared.ErrNotFound
// when the order does not exist under the branch's registers; the HTTP layer
// renders that as a JSON null for legacy clients.
func (e *Engine) OrderDetail(ctx context.Context, q Querier, scope Scope, adsno int64) (*OrderDetail, error) {
	defer e.observe("order_detail", time.Now())

	header := `SELECT ` + orderColumns + `
		FROM adisyon
		WHERE adsno = $1 AND kasa_no = ANY($2)`
	order, err := scanOrder(q.QueryRow(ctx, header, adsno, scope.Kasalar))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, queryFailed(err)
	}

	lines := `SELECT COALESCE(urun_adi, ''), COALESCE(adet, 0), COALESCE(fiyat, 0),
		       COALESCE(tutar, 0), COALESCE(grup_adi, ''), COALESCE(iptal, false)
		FROM adisyon_detay
		WHERE adsno = $1
		ORDER BY sira, urun_adi`
	rows, err := q.Query(ctx, lines, adsno)
	if err != nil {
		return nil, queryFailed(err)
	}
	defer rows.Close()

	detail := OrderDetail{OrderSummary: order}
	for rows.Next() {
		var line OrderLine
		if err := rows.Scan(&line.UrunAdi, &line.Adet, &line.Fiyat, &line.Tutar, &line.GrupAdi, &line.Iptal); err != nil {
			return nil, queryFailed(err)
		}
		detail.Satirlar = append(detail.Satirlar, line)
	}
	if err := rows.Err(); err != nil {
		return nil, queryFailed(err)
	}
	return &detail, nil
}

// Performance totals the payment ledger for the interval. This is the
// authoritative closed-revenue figure on the dashboard.
func (e *Engine) Performance(ctx context.Context, q Querier, scope Scope) (PerformanceSummary, error) {
	defer e.observe("performance", time.Now())

	const query = `
		SELECT COALESCE(SUM(tutar), 0), COUNT(DISTINCT adsno)
		FROM odeme
		WHERE kasa_no = ANY($1) AND tarih BETWEEN $2 AND $3
		  AND odeme_tipi NOT IN ('veresiye', 'odenmez')
	`
	var summary PerformanceSummary
	if err := q.QueryRow(ctx, query, scope.Kasalar, scope.Start, scope.End).Scan(&summary.Toplam, &summary.Adet); err != nil {
		return PerformanceSummary{}, queryFailed(err)
	}
	return summary, nil
}

// PaymentTypes aggregates payments per payment type.
func (e *Engine) PaymentTypes(ctx context.Context, q Querier, scope Scope) ([]PaymentTypeRow, error) {
	defer e.observe("payment_types", time.Now())

	const query = `
		SELECT COALESCE(odeme_tipi, ''), COALESCE(SUM(tutar), 0), COUNT(*)
		FROM odeme
		WHERE kasa_no = ANY($1) AND tarih BETWEEN $2 AND $3
		GROUP BY odeme_tipi
		ORDER BY 2 DESC
	`
	return collect(ctx, q, query, func(row pgx.Row) (PaymentTypeRow, error) {
		var r PaymentTypeRow
		err := row.Scan(&r.OdemeTipi, &r.Toplam, &r.Adet)
		return r, err
	}, scope.Kasalar, scope.Start, scope.End)
}

// SalesChart buckets closed revenue per hour of day.
func (e *Engine) SalesChart(ctx context.Context, q Querier, scope Scope) ([]SalesChartPoint, error) {
	defer e.observe("sales_chart", time.Now())

	const query = `
		SELECT EXTRACT(HOUR FROM kapanis_tarihi)::int, COALESCE(SUM(toplam), 0), COUNT(*)
		FROM adisyon
		WHERE kapanis_tarihi IS NOT NULL AND kasa_no = ANY($1) AND kapanis_tarihi BETWEEN $2 AND $3
		GROUP BY 1
		ORDER BY 1
	`
	return collect(ctx, q, query, func(row pgx.Row) (SalesChartPoint, error) {
		var p SalesChartPoint
		err := row.Scan(&p.Saat, &p.Toplam, &p.Adet)
		return p, err
	}, scope.Kasalar, scope.Start, scope.End)
}

// CancelledItems lists cancelled product lines inside the interval.
func (e *Engine) CancelledItems(ctx context.Context, q Querier, scope Scope) ([]CancelledItemRow, error) {
	defer e.observe("cancelled_items", time.Now())

	const query = `
		SELECT a.adsno, COALESCE(d.urun_adi, ''), COALESCE(d.adet, 0), COALESCE(d.tutar, 0),
		       COALESCE(d.iptal_neden, ''), a.acilis_tarihi, COALESCE(a.personel_adi, '')
		FROM adisyon_detay d
		JOIN adisyon a USING (adsno)
		WHERE d.iptal AND a.kasa_no = ANY($1) AND a.acilis_tarihi BETWEEN $2 AND $3
		ORDER BY a.acilis_tarihi DESC
	`
	return collect(ctx, q, query, func(row pgx.Row) (CancelledItemRow, error) {
		var r CancelledItemRow
		err := row.Scan(&r.AdsNo, &r.UrunAdi, &r.Adet, &r.Tutar, &r.Neden, &r.Tarih, &r.Personel)
		return r, err
	}, scope.Kasalar, scope.Start, scope.End)
}

// Debts aggregates veresiye payments per customer.
func (e *Engine) Debts(ctx context.Context, q Querier, scope Scope) ([]DebtRow, error) {
	defer e.observe("debts", time.Now())

	const query = `
		SELECT COALESCE(a.musteri_adi, ''), COALESCE(SUM(o.tutar), 0), MAX(o.tarih)
		FROM odeme o
		JOIN adisyon a USING (adsno)
		WHERE o.odeme_tipi = 'veresiye' AND o.kasa_no = ANY($1) AND o.tarih BETWEEN $2 AND $3
		GROUP BY a.musteri_adi
		ORDER BY 2 DESC
	`
	return collect(ctx, q, query, func(row pgx.Row) (DebtRow, error) {
		var r DebtRow
		err := row.Scan(&r.Musteri, &r.Toplam, &r.SonTarih)
		return r, err
	}, scope.Kasalar, scope.Start, scope.End)
}

// Unpayable lists orders written off with the odenmez payment type.
func (e *Engine) Unpayable(ctx context.Context, q Querier, scope Scope) ([]UnpayableRow, error) {
	defer e.observe("unpayable", time.Now())

	const query = `
		SELECT o.adsno, COALESCE(o.tutar, 0), o.tarih, COALESCE(a.personel_adi, '')
		FROM odeme o
		JOIN adisyon a USING (adsno)
		WHERE o.odeme_tipi = 'odenmez' AND o.kasa_no = ANY($1) AND o.tarih BETWEEN $2 AND $3
		ORDER BY o.tarih DESC
	`
	return collect(ctx, q, query, func(row pgx.Row) (UnpayableRow, error) {
		var r UnpayableRow
		err := row.Scan(&r.AdsNo, &r.Tutar, &r.Tarih, &r.Personel)
		return r, err
	}, scope.Kasalar, scope.Start, scope.End)
}

// Discount lists closed orders that carried a discount.
func (e *Engine) Discount(ctx context.Context, q Querier, scope Scope) ([]DiscountRow, error) {
	defer e.observe("discount", time.Now())

	const query = `
		SELECT adsno, COALESCE(toplam, 0), COALESCE(indirim, 0), kapanis_tarihi, COALESCE(personel_adi, '')
		FROM adisyon
		WHERE kapanis_tarihi IS NOT NULL AND COALESCE(indirim, 0) > 0
		  AND kasa_no = ANY($1) AND kapanis_tarihi BETWEEN $2 AND $3
		ORDER BY kapanis_tarihi DESC
	`
	return collect(ctx, q, query, func(row pgx.Row) (DiscountRow, error) {
		var r DiscountRow
		err := row.Scan(&r.AdsNo, &r.Toplam, &r.Indirim, &r.Tarih, &r.Personel)
		return r, err
	}, scope.Kasalar, scope.Start, scope.End)
}

// CourierTracking aggregates delivery orders per courier.
func (e *Engine) CourierTracking(ctx context.Context, q Querier, scope Scope) ([]CourierRow, error) {
	defer e.observe("courier_tracking", time.Now())

	const query = `
		SELECT COALESCE(kurye_adi, ''), COUNT(*), COALESCE(SUM(toplam), 0)
		FROM adisyon
		WHERE kasa_no = ANY($1) AND acilis_tarihi BETWEEN $2 AND $3
		  AND (COALESCE(adtur, '') = 'paket' OR COALESCE(paket, false))
		GROUP BY kurye_adi
		ORDER BY 2 DESC
	`
	return collect(ctx, q, query, func(row pgx.Row) (CourierRow, error) {
		var r CourierRow
		err := row.Scan(&r.KuryeAdi, &r.Adet, &r.Toplam)
		return r, err
	}, scope.Kasalar, scope.Start, scope.End)
}

// ProductSales aggregates sold quantity and revenue per product, excluding
// cancelled lines.
func (e *Engine) ProductSales(ctx context.Context, q Querier, scope Scope) ([]ProductSaleRow, error) {
	defer e.observe("product_sales", time.Now())

	const query = `
		SELECT COALESCE(d.urun_adi, ''), COALESCE(SUM(d.adet), 0), COALESCE(SUM(d.tutar), 0)
		FROM adisyon_detay d
		JOIN adisyon a USING (adsno)
		WHERE NOT COALESCE(d.iptal, false) AND a.kasa_no = ANY($1)
		  AND a.kapanis_tarihi IS NOT NULL AND a.kapanis_tarihi BETWEEN $2 AND $3
		GROUP BY d.urun_adi
		ORDER BY 3 DESC
	`
	return collect(ctx, q, query, func(row pgx.Row) (ProductSaleRow, error) {
		var r ProductSaleRow
		err := row.Scan(&r.UrunAdi, &r.Adet, &r.Tutar)
		return r, err
	}, scope.Kasalar, scope.Start, scope.End)
}

// ProductGroups aggregates sold quantity and revenue per product group.
func (e *Engine) ProductGroups(ctx context.Context, q Querier, scope Scope) ([]ProductGroupRow, error) {
	defer e.observe("product_groups", time.Now())

	const query = `
		SELECT COALESCE(d.grup_adi, ''), COALESCE(SUM(d.adet), 0), COALESCE(SUM(d.tutar), 0)
		FROM adisyon_detay d
		JOIN adisyon a USING (adsno)
		WHERE NOT COALESCE(d.iptal, false) AND a.kasa_no = ANY($1)
		  AND a.kapanis_tarihi IS NOT NULL AND a.kapanis_tarihi BETWEEN $2 AND $3
		GROUP BY d.grup_adi
		ORDER BY 3 DESC
	`
	return collect(ctx, q, query, func(row pgx.Row) (ProductGroupRow, error) {
		var r ProductGroupRow
		err := row.Scan(&r.GrupAdi, &r.Adet, &r.Tutar)
		return r, err
	}, scope.Kasalar, scope.Start, scope.End)
}

// Personnel aggregates closed orders per staff member.
func (e *Engine) Personnel(ctx context.Context, q Querier, scope Scope) ([]PersonnelRow, error) {
	defer e.observe("personnel", time.Now())

	const query = `
		SELECT COALESCE(personel_adi, ''), COUNT(*), COALESCE(SUM(toplam), 0)
		FROM adisyon
		WHERE kapanis_tarihi IS NOT NULL AND kasa_no = ANY($1) AND kapanis_tarihi BETWEEN $2 AND $3
		GROUP BY personel_adi
		ORDER BY 3 DESC
	`
	return collect(ctx, q, query, func(row pgx.Row) (PersonnelRow, error) {
		var r PersonnelRow
		err := row.Scan(&r.Adi, &r.Adet, &r.Toplam)
		return r, err
	}, scope.Kasalar, scope.Start, scope.End)
}

// collect runs a query and scans every row through the given scan func.
func collect[T any](ctx context.Context, q Querier, query string, scan func(pgx.Row) (T, error), args ...any) ([]T, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, queryFailed(err)
	}
	defer rows.Close()

	out := []T{}
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, queryFailed(err)
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, queryFailed(err)
	}
	return out, nil
}
