package shipping

import (
	"github.com/shopspring/decimal"

	"github.com/safar/go-logistics/internal/models"
)

// CreateRequest carries everything a caller may supply for a new shipment.
// Discount and final price are always computed, never accepted.
type CreateRequest struct {
	CustomerID   int64
	ProductID    int64
	Quantity     int
	RegisteredOn models.Date
	DeliveredOn  models.Date
	BasePrice    decimal.Decimal
	TrackingCode string
	Mode         models.Mode

	WarehouseID  *int64
	VehiclePlate *string

	PortID    *int64
	FleetCode *string
}

// UpdateRequest is a partial update; nil fields keep their current value.
type UpdateRequest struct {
	Mode         *models.Mode
	Quantity     *int
	RegisteredOn *models.Date
	DeliveredOn  *models.Date
	BasePrice    *decimal.Decimal
	TrackingCode *string

	WarehouseID  *int64
	VehiclePlate *string

	PortID    *int64
	FleetCode *string
}

func (r UpdateRequest) hasLandFields() bool     { return r.WarehouseID != nil || r.VehiclePlate != nil }
func (r UpdateRequest) hasMaritimeFields() bool { return r.PortID != nil || r.FleetCode != nil }

type QuoteRequest struct {
	Quantity  int
	Mode      models.Mode
	BasePrice decimal.Decimal
}
