package pricing_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/victorytouchdown/vtshop-api/internal/pricing"
)

func TestVATPrices(t *testing.T) {
	tests := []struct {
		name     string
		net      string
		wantVAT  string
		wantIncl string
	}{
		{"hundred", "100", "20.00", "120.00"},
		{"zero", "0", "0", "0"},
		{"cents", "12.35", "2.47", "14.82"},
		{"rounding", "0.05", "0.01", "0.06"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vat, incl := pricing.VATPrices(decimal.RequireFromString(tt.net))
			assert.True(t, decimal.RequireFromString(tt.wantVAT).Equal(vat), "vat: got %s", vat)
			assert.True(t, decimal.RequireFromString(tt.wantIncl).Equal(incl), "incl: got %s", incl)
		})
	}
}

func TestVATPrices_Deterministic(t *testing.T) {
	net := decimal.RequireFromString("4321.99")
	v1, i1 := pricing.VATPrices(net)
	v2, i2 := pricing.VATPrices(net)
	assert.True(t, v1.Equal(v2))
	assert.True(t, i1.Equal(i2))
}

func TestLinePrice(t *testing.T) {
	got := pricing.LinePrice(decimal.RequireFromString("0.25"), 1357)
	assert.True(t, decimal.RequireFromString("339.25").Equal(got), "got %s", got)
}
