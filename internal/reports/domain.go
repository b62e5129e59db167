// Package reports executes read-only report queries against routed branch
// POS databases. The POS schema is fixed and not owned by this service;
// every query is scoped to the branch's register set and a resolved date
// interval.
package reports

import "time"

// Report identifiers checked against a user's AllowedReports set.
const (
	ReportOrders          = "orders"
	ReportOrderDetails    = "order-details"
	ReportPerformance     = "performance"
	ReportPaymentTypes    = "payment-types"
	ReportSalesChart      = "sales-chart"
	ReportCancelledItems  = "cancelled-items"
	ReportDebts           = "debts"
	ReportUnpayable       = "unpayable"
	ReportDiscount        = "discount"
	ReportCourierTracking = "courier-tracking"
	ReportProductSales    = "product-sales"
	ReportProductGroups   = "product-groups"
	ReportPersonnel       = "personnel"
)

// Order subtype buckets. Every order is classified into exactly one.
const (
	AdturAdisyon = "adisyon" // dine-in tab
	AdturPaket   = "paket"   // delivery order
	AdturHizli   = "hizli"   // quick sale
)

// InferAdtur resolves the order subtype. Older POS deployments leave the
// adtur column empty, so the subtype falls back to side signals: the paket
// channel flag, the quick-sale flag, then the table-number sentinel. The
// terminal default is a dine-in tab.
func InferAdtur(adtur string, paket, hizli bool, masaNo string) string {
	switch adtur {
	case AdturAdisyon, AdturPaket, AdturHizli:
		return adtur
	}
	if paket {
		return AdturPaket
	}
	if hizli {
		return AdturHizli
	}
	if masaNo == "" || masaNo == "0" {
		return AdturPaket
	}
	return AdturAdisyon
}

// OrderSummary is one order row as listed on the orders screens. Both
// timestamps are nullable: some deployments never populate acilis_tarihi,
// and the open-orders cascade still has to surface those rows.
type OrderSummary struct {
	AdsNo    int64      `json:"adsno"`
	KasaNo   int        `json:"kasa_no"`
	Acilis   *time.Time `json:"acilis_tarihi,omitempty"`
	Kapanis  *time.Time `json:"kapanis_tarihi,omitempty"`
	Toplam   float64    `json:"toplam"`
	Indirim  float64    `json:"indirim"`
	Adtur    string     `json:"adtur"`
	MasaNo   string     `json:"masa_no"`
	Personel string     `json:"personel_adi"`
	Musteri  string     `json:"musteri_adi"`
}

// OrderLine is one product row inside an order.
type OrderLine struct {
	UrunAdi string  `json:"urun_adi"`
	Adet    float64 `json:"adet"`
	Fiyat   float64 `json:"fiyat"`
	Tutar   float64 `json:"tutar"`
	GrupAdi string  `json:"grup_adi"`
	Iptal   bool    `json:"iptal"`
}

// OrderDetail is a single order with its lines.
type OrderDetail struct {
	OrderSummary
	Satirlar []OrderLine `json:"satirlar"`
}

// PerformanceSummary is the payment-ledger view of closed revenue. It is
// considered more accurate than summing the order ledger, which can diverge
// when payments span multiple order records.
type PerformanceSummary struct {
	Toplam float64 `json:"toplam"`
	Adet   int     `json:"adet"`
}

// PaymentTypeRow aggregates payments per payment type.
type PaymentTypeRow struct {
	OdemeTipi string  `json:"odeme_tipi"`
	Toplam    float64 `json:"toplam"`
	Adet      int     `json:"adet"`
}

// SalesChartPoint is one hourly bucket of closed revenue.
type SalesChartPoint struct {
	Saat   int     `json:"saat"`
	Toplam float64 `json:"toplam"`
	Adet   int     `json:"adet"`
}

// CancelledItemRow is one cancelled product line.
type CancelledItemRow struct {
	AdsNo    int64     `json:"adsno"`
	UrunAdi  string    `json:"urun_adi"`
	Adet     float64   `json:"adet"`
	Tutar    float64   `json:"tutar"`
	Neden    string    `json:"iptal_neden"`
	Tarih    time.Time `json:"tarih"`
	Personel string    `json:"personel_adi"`
}

// DebtRow aggregates open customer debt (veresiye) per customer.
type DebtRow struct {
	Musteri  string    `json:"musteri_adi"`
	Toplam   float64   `json:"toplam"`
	SonTarih time.Time `json:"son_tarih"`
}

// UnpayableRow is one order written off as unpayable.
type UnpayableRow struct {
	AdsNo    int64     `json:"adsno"`
	Tutar    float64   `json:"tutar"`
	Tarih    time.Time `json:"tarih"`
	Personel string    `json:"personel_adi"`
}

// DiscountRow is one discounted order.
type DiscountRow struct {
	AdsNo    int64     `json:"adsno"`
	Toplam   float64   `json:"toplam"`
	Indirim  float64   `json:"indirim"`
	Tarih    time.Time `json:"tarih"`
	Personel string    `json:"personel_adi"`
}

// CourierRow aggregates delivery orders per courier.
type CourierRow struct {
	KuryeAdi string  `json:"kurye_adi"`
	Adet     int     `json:"adet"`
	Toplam   float64 `json:"toplam"`
}

// ProductSaleRow aggregates sold quantity and revenue per product.
type ProductSaleRow struct {
	UrunAdi string  `json:"urun_adi"`
	Adet    float64 `json:"adet"`
	Tutar   float64 `json:"tutar"`
}

// ProductGroupRow aggregates sold quantity and revenue per product group.
type ProductGroupRow struct {
	GrupAdi string  `json:"grup_adi"`
	Adet    float64 `json:"adet"`
	Tutar   float64 `json:"tutar"`
}

// PersonnelRow aggregates closed orders per staff member.
type PersonnelRow struct {
	Adi    string  `json:"adi"`
	Adet   int     `json:"adet"`
	Toplam float64 `json:"toplam"`
}
