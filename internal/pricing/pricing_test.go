package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/safar/go-logistics/internal/models"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestRate(t *testing.T) {
	tests := []struct {
		quantity int
		mode     models.Mode
		want     string
	}{
		{1, models.ModeLand, "0"},
		{10, models.ModeLand, "0"},
		{10, models.ModeMaritime, "0"},
		{11, models.ModeLand, "0.05"},
		{11, models.ModeMaritime, "0.03"},
		{5000, models.ModeMaritime, "0.03"},
	}
	for _, tt := range tests {
		assert.True(t, dec(tt.want).Equal(Rate(tt.quantity, tt.mode)), "quantity=%d mode=%s", tt.quantity, tt.mode)
	}
}

func TestPriceScenarios(t *testing.T) {
	land := Price(dec("1000"), 11, models.ModeLand)
	assert.Equal(t, "50.00", land.Discount.StringFixed(2))
	assert.Equal(t, "950.00", land.Final.StringFixed(2))

	sea := Price(dec("1000"), 11, models.ModeMaritime)
	assert.Equal(t, "30.00", sea.Discount.StringFixed(2))
	assert.Equal(t, "970.00", sea.Final.StringFixed(2))

	small := Price(dec("1500"), 10, models.ModeLand)
	assert.True(t, small.Discount.IsZero())
	assert.Equal(t, "1500.00", small.Final.StringFixed(2))
}

func TestPriceRoundsHalfUp(t *testing.T) {
	// 0.05 * 0.10 = 0.005 -> 0.01
	b := Price(dec("0.10"), 11, models.ModeLand)
	assert.Equal(t, "0.01", b.Discount.StringFixed(2))
	assert.Equal(t, "0.09", b.Final.StringFixed(2))

	// 0.03 * 123.45 = 3.7035 -> 3.70
	b = Price(dec("123.45"), 20, models.ModeMaritime)
	assert.Equal(t, "3.70", b.Discount.StringFixed(2))
	assert.Equal(t, "119.75", b.Final.StringFixed(2))
}

func TestPriceInvariants(t *testing.T) {
	for _, base := range []string{"0", "0.01", "1", "99.99", "1000", "123456789.99"} {
		for _, q := range []int{1, 10, 11, 1000} {
			for _, m := range []models.Mode{models.ModeLand, models.ModeMaritime} {
				b := Price(dec(base), q, m)
				assert.False(t, b.Discount.IsNegative())
				assert.False(t, b.Final.IsNegative())
				assert.True(t, b.Final.Equal(b.Base.Sub(b.Discount)))
				assert.True(t, b.Discount.LessThanOrEqual(b.Base))
			}
		}
	}
}
