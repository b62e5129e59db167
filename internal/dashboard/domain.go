// Package dashboard aggregates several report queries into one cached
// summary for the live dashboard screens.
package dashboard

import "github.com/posrapor/posrapor/internal/reports"

// Bucket is the per-order-subtype slice of the summary.
type Bucket struct {
	AcikToplam   float64 `json:"acik_toplam"`
	AcikAdet     int     `json:"acik_adet"`
	AcikYuzde    int     `json:"acik_yuzde"`
	KapaliToplam float64 `json:"kapali_toplam"`
	KapaliAdet   int     `json:"kapali_adet"`
	KapaliYuzde  int     `json:"kapali_yuzde"`
	Indirim      float64 `json:"indirim"`
}

// Summary is the merged dashboard aggregate. It is a pure function of its
// cache key plus the live POS data at computation time and is only ever
// recomputed wholesale.
type Summary struct {
	Donem        string            `json:"donem"`
	AcikToplam   float64           `json:"acik_adisyon_toplam"`
	AcikAdet     int               `json:"acik_adisyon_adet"`
	KapaliToplam float64           `json:"kapali_adisyon_toplam"`
	KapaliAdet   int               `json:"kapali_adisyon_adet"`
	Indirim      float64           `json:"indirim_toplam"`
	Borc         float64           `json:"borc_toplam"`
	IptalAdet    int               `json:"iptal_adet"`
	IptalToplam  float64           `json:"iptal_toplam"`
	Dagilim      map[string]Bucket `json:"dagilim"`
}

// ZeroSummary is the neutral summary rendered when nothing could be
// computed. All buckets are present so UIs can draw an empty state.
func ZeroSummary(period string) Summary {
	return Summary{
		Donem: period,
		Dagilim: map[string]Bucket{
			reports.AdturPaket:   {},
			reports.AdturAdisyon: {},
			reports.AdturHizli:   {},
		},
	}
}
