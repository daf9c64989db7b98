package shipping

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/safar/go-logistics/internal/apperror"
	"github.com/safar/go-logistics/internal/models"
)

const (
	minTrackingCode = 3
	maxTrackingCode = 64
)

// maxBasePrice is the first amount a NUMERIC(14,2) column cannot hold.
var maxBasePrice = decimal.New(1, 12)

var (
	platePattern = regexp.MustCompile(`^[A-Z]{3}[0-9]{3}$`)
	fleetPattern = regexp.MustCompile(`^[A-Z]{3}[0-9]{4}[A-Z]$`)
)

// NormalizeCode trims and upper-cases a plate or fleet code before matching.
func NormalizeCode(s string) string { return strings.ToUpper(strings.TrimSpace(s)) }

func ValidPlate(s string) bool { return platePattern.MatchString(s) }

func ValidFleetCode(s string) bool { return fleetPattern.MatchString(s) }

func validateMode(m models.Mode) error {
	if m != models.ModeLand && m != models.ModeMaritime {
		return apperror.Validationf("mode must be LAND or MARITIME, got %q", m).WithDetail("field", "mode")
	}
	return nil
}

func validateQuantity(q int) error {
	if q <= 0 {
		return apperror.Validation("quantity must be greater than 0").WithDetail("field", "quantity")
	}
	return nil
}

func validateBasePrice(p decimal.Decimal) error {
	if p.IsNegative() {
		return apperror.Validation("base_price must not be negative").WithDetail("field", "base_price")
	}
	if p.Round(2).GreaterThanOrEqual(maxBasePrice) {
		return apperror.Validationf("base_price must be less than %s", maxBasePrice.String()).WithDetail("field", "base_price")
	}
	return nil
}

func validateTrackingCode(code string) error {
	if n := len(code); n < minTrackingCode || n > maxTrackingCode {
		return apperror.Validationf("tracking_code must be between %d and %d characters", minTrackingCode, maxTrackingCode).
			WithDetail("field", "tracking_code")
	}
	return nil
}

func validateDates(registered, delivered models.Date) error {
	if delivered.Before(registered) {
		return apperror.Validation("delivered_on must not be before registered_on").
			WithDetail("registered_on", registered.String()).
			WithDetail("delivered_on", delivered.String())
	}
	return nil
}

func validatePlate(plate string) error {
	if !ValidPlate(plate) {
		return apperror.Validationf("vehicle_plate %q must be three letters followed by three digits", plate).
			WithDetail("field", "vehicle_plate")
	}
	return nil
}

func validateFleetCode(code string) error {
	if !ValidFleetCode(code) {
		return apperror.Validationf("fleet_code %q must be three letters, four digits and a letter", code).
			WithDetail("field", "fleet_code")
	}
	return nil
}
