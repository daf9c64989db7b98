// Package events publishes shipment lifecycle notifications to Kafka.
package events

import (
	"context"
	"strconv"
	"time"

	"github.com/safar/go-logistics/internal/models"
)

const (
	TypeShipmentCreated = "shipment.created"
	TypeShipmentUpdated = "shipment.updated"
	TypeShipmentDeleted = "shipment.deleted"
)

type Event struct {
	Type       string           `json:"type"`
	ShipmentID int64            `json:"shipment_id"`
	Shipment   *models.Shipment `json:"shipment,omitempty"`
	OccurredAt time.Time        `json:"occurred_at"`
}

func NewEvent(eventType string, shipmentID int64, s *models.Shipment) Event {
	return Event{
		Type:       eventType,
		ShipmentID: shipmentID,
		Shipment:   s,
		OccurredAt: time.Now().UTC(),
	}
}

// Key partitions events so every change of one shipment stays ordered.
func (e Event) Key() string { return strconv.FormatInt(e.ShipmentID, 10) }

type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }
func (Noop) Close() error                         { return nil }
