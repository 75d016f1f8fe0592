package page

import "testing"

func TestRegionSelectedPrice(t *testing.T) {
	tests := []struct {
		name   string
		region Region
		want   string
		ok     bool
	}{
		{"tiered active", Region{TieredActive: true, TieredPrice: "$9.00", HasTiered: true, BasePrice: "$9.50", HasBase: true}, "$9.00", true},
		{"base active", Region{TieredPrice: "$9.00", HasTiered: true, BasePrice: "$9.50", HasBase: true}, "$9.50", true},
		{"tiered active but missing", Region{TieredActive: true, BasePrice: "$9.50", HasBase: true}, "", false},
		{"base missing", Region{TieredPrice: "$9.00", HasTiered: true}, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.region.SelectedPrice()
			if got != tt.want || ok != tt.ok {
				t.Errorf("SelectedPrice() = (%q, %v), want (%q, %v)", got, ok, tt.want, tt.ok)
			}
		})
	}
}
