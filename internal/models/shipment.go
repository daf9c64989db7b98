package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Mode string

const (
	ModeLand     Mode = "LAND"
	ModeMaritime Mode = "MARITIME"
)

// ParseMode accepts the canonical names case-insensitively.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToUpper(strings.TrimSpace(s))); m {
	case ModeLand, ModeMaritime:
		return m, nil
	}
	return "", fmt.Errorf("unknown shipment mode %q", s)
}

// Detail is the mode-specific part of a shipment. Exactly one implementation
// exists per Mode.
type Detail interface {
	Mode() Mode
	detail()
}

type LandDetail struct {
	WarehouseID  int64
	VehiclePlate string
}

func (LandDetail) Mode() Mode { return ModeLand }
func (LandDetail) detail()    {}

type MaritimeDetail struct {
	PortID    int64
	FleetCode string
}

func (MaritimeDetail) Mode() Mode { return ModeMaritime }
func (MaritimeDetail) detail()    {}

type Shipment struct {
	ID           int64
	CustomerID   int64
	ProductID    int64
	Quantity     int
	RegisteredOn Date
	DeliveredOn  Date
	BasePrice    decimal.Decimal
	Discount     decimal.Decimal
	FinalPrice   decimal.Decimal
	TrackingCode string
	Mode         Mode
	Detail       Detail
	Version      int
	CreatedAt    time.Time
	UpdatedAt    time.Time
	DeletedAt    *time.Time
}

func (s *Shipment) Land() (LandDetail, bool) {
	d, ok := s.Detail.(LandDetail)
	return d, ok
}

func (s *Shipment) Maritime() (MaritimeDetail, bool) {
	d, ok := s.Detail.(MaritimeDetail)
	return d, ok
}

type shipmentJSON struct {
	ID           int64     `json:"id"`
	CustomerID   int64     `json:"customer_id"`
	ProductID    int64     `json:"product_id"`
	Quantity     int       `json:"quantity"`
	RegisteredOn Date      `json:"registered_on"`
	DeliveredOn  Date      `json:"delivered_on"`
	BasePrice    string    `json:"base_price"`
	Discount     string    `json:"discount"`
	FinalPrice   string    `json:"final_price"`
	TrackingCode string    `json:"tracking_code"`
	Mode         Mode      `json:"mode"`
	WarehouseID  *int64    `json:"warehouse_id"`
	VehiclePlate *string   `json:"vehicle_plate"`
	PortID       *int64    `json:"port_id"`
	FleetCode    *string   `json:"fleet_code"`
	Version      int       `json:"version"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// MarshalJSON flattens the detail into nullable columns, mirroring the joined
// row shape returned by listings. Money is rendered with two decimals.
func (s Shipment) MarshalJSON() ([]byte, error) {
	out := shipmentJSON{
		ID:           s.ID,
		CustomerID:   s.CustomerID,
		ProductID:    s.ProductID,
		Quantity:     s.Quantity,
		RegisteredOn: s.RegisteredOn,
		DeliveredOn:  s.DeliveredOn,
		BasePrice:    s.BasePrice.StringFixed(2),
		Discount:     s.Discount.StringFixed(2),
		FinalPrice:   s.FinalPrice.StringFixed(2),
		TrackingCode: s.TrackingCode,
		Mode:         s.Mode,
		Version:      s.Version,
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
	}
	switch d := s.Detail.(type) {
	case LandDetail:
		out.WarehouseID = &d.WarehouseID
		out.VehiclePlate = &d.VehiclePlate
	case MaritimeDetail:
		out.PortID = &d.PortID
		out.FleetCode = &d.FleetCode
	}
	return json.Marshal(out)
}
