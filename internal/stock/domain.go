// Package stock manages stok_takip, the single table this service owns
// inside branch databases. Everything else in a branch database is
// read-only POS data.
package stock

import "time"

// Entry is one stock movement.
type Entry struct {
	ID      string    `json:"id"`
	UrunAdi string    `json:"urun_adi"`
	Miktar  float64   `json:"miktar"`
	Giris   bool      `json:"giris"`
	Tarih   time.Time `json:"tarih"`
	UserID  int64     `json:"kullanici_id"`
}

// LiveRow is the current net stock of one product.
type LiveRow struct {
	UrunAdi string  `json:"urun_adi"`
	Mevcut  float64 `json:"mevcut"`
}
