// Package pricing holds the volume discount rule applied to shipments.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/safar/go-logistics/internal/models"
)

// VolumeThreshold is the largest quantity that still pays full price.
const VolumeThreshold = 10

var (
	landRate     = decimal.RequireFromString("0.05")
	maritimeRate = decimal.RequireFromString("0.03")
)

type Breakdown struct {
	Base     decimal.Decimal
	Rate     decimal.Decimal
	Discount decimal.Decimal
	Final    decimal.Decimal
}

// Rate returns the discount fraction for quantity units shipped by mode.
func Rate(quantity int, mode models.Mode) decimal.Decimal {
	if quantity <= VolumeThreshold {
		return decimal.Zero
	}
	switch mode {
	case models.ModeLand:
		return landRate
	case models.ModeMaritime:
		return maritimeRate
	}
	return decimal.Zero
}

// DiscountAmount rounds base*rate to cents, halves rounding up.
func DiscountAmount(base, rate decimal.Decimal) decimal.Decimal {
	return base.Mul(rate).Round(2)
}

// Price computes the full breakdown. For a non-negative base the final price
// is never negative since every rate is below one.
func Price(base decimal.Decimal, quantity int, mode models.Mode) Breakdown {
	base = base.Round(2)
	rate := Rate(quantity, mode)
	discount := DiscountAmount(base, rate)
	return Breakdown{
		Base:     base,
		Rate:     rate,
		Discount: discount,
		Final:    base.Sub(discount),
	}
}
