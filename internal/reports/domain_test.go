package reports

import "testing"

func TestInferAdtur(t *testing.T) {
	cases := []struct {
		name   string
		adtur  string
		paket  bool
		hizli  bool
		masaNo string
		want   string
	}{
		{"explicit wins", AdturHizli, true, false, "", AdturHizli},
		{"explicit adisyon kept", AdturAdisyon, true, true, "0", AdturAdisyon},
		{"paket flag", "", true, false, "5", AdturPaket},
		{"hizli flag", "", false, true, "5", AdturHizli},
		{"empty table is delivery", "", false, false, "", AdturPaket},
		{"zero table is delivery", "", false, false, "0", AdturPaket},
		{"table number means dine-in", "", false, false, "12", AdturAdisyon},
		{"unknown explicit value re-inferred", "garbage", false, false, "3", AdturAdisyon},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := InferAdtur(tc.adtur, tc.paket, tc.hizli, tc.masaNo)
			if got != tc.want {
				t.Fatalf("InferAdtur(%q, %v, %v, %q) = %q, want %q",
					tc.adtur, tc.paket, tc.hizli, tc.masaNo, got, tc.want)
			}
		})
	}
}
