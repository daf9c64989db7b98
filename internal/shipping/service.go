// Package shipping validates, prices and persists shipments.
package shipping

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/safar/go-logistics/internal/apperror"
	"github.com/safar/go-logistics/internal/database"
	"github.com/safar/go-logistics/internal/events"
	"github.com/safar/go-logistics/internal/logging"
	"github.com/safar/go-logistics/internal/metrics"
	"github.com/safar/go-logistics/internal/models"
	"github.com/safar/go-logistics/internal/pricing"
)

// Store is the persistence capability the service depends on. Find* and
// GetShipment exclude soft-deleted rows and report absence with the
// database.Err*NotFound sentinels. Insert and Update write the shipment and
// its detail atomically.
type Store interface {
	FindCustomer(ctx context.Context, id int64) (*models.Customer, error)
	FindProduct(ctx context.Context, id int64) (*models.Product, error)
	FindWarehouse(ctx context.Context, id int64) (*models.Warehouse, error)
	FindPort(ctx context.Context, id int64) (*models.Port, error)

	InsertShipment(ctx context.Context, s *models.Shipment) error
	UpdateShipment(ctx context.Context, s *models.Shipment) error
	DeleteShipment(ctx context.Context, id int64) error
	GetShipment(ctx context.Context, id int64) (*models.Shipment, error)
	QueryShipments(ctx context.Context, f models.ShipmentFilter, req models.PageRequest) (*models.Page[models.Shipment], error)
}

type Service struct {
	store     Store
	publisher events.Publisher
	metrics   *metrics.Metrics
	tracer    trace.Tracer
}

type Option func(*Service)

func WithPublisher(p events.Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:     store,
		publisher: events.Noop{},
		tracer:    otel.Tracer("github.com/safar/go-logistics/internal/shipping"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Create(ctx context.Context, req CreateRequest) (_ *models.Shipment, err error) {
	ctx, span := s.tracer.Start(ctx, "shipping.Create",
		trace.WithAttributes(attribute.String("shipment.mode", string(req.Mode))))
	defer func() { s.finish(span, "create", err) }()

	if err := validateMode(req.Mode); err != nil {
		return nil, err
	}
	if err := validateQuantity(req.Quantity); err != nil {
		return nil, err
	}
	if err := validateBasePrice(req.BasePrice); err != nil {
		return nil, err
	}
	if err := validateTrackingCode(req.TrackingCode); err != nil {
		return nil, err
	}

	if _, err := s.store.FindCustomer(ctx, req.CustomerID); err != nil {
		return nil, s.lookupErr(err, "customer", req.CustomerID)
	}
	if _, err := s.store.FindProduct(ctx, req.ProductID); err != nil {
		return nil, s.lookupErr(err, "product", req.ProductID)
	}
	if err := validateDates(req.RegisteredOn, req.DeliveredOn); err != nil {
		return nil, err
	}

	detail, err := s.buildDetail(ctx, req)
	if err != nil {
		return nil, err
	}

	price := pricing.Price(req.BasePrice, req.Quantity, req.Mode)
	shipment := &models.Shipment{
		CustomerID:   req.CustomerID,
		ProductID:    req.ProductID,
		Quantity:     req.Quantity,
		RegisteredOn: req.RegisteredOn,
		DeliveredOn:  req.DeliveredOn,
		BasePrice:    price.Base,
		Discount:     price.Discount,
		FinalPrice:   price.Final,
		TrackingCode: req.TrackingCode,
		Mode:         req.Mode,
		Detail:       detail,
	}

	if err := s.store.InsertShipment(ctx, shipment); err != nil {
		return nil, s.writeErr(err, shipment)
	}

	s.metrics.RecordShipmentCreated(string(shipment.Mode), !price.Discount.IsZero())
	logging.FromContext(ctx).Info("shipment created",
		zap.Int64("shipment_id", shipment.ID),
		zap.String("mode", string(shipment.Mode)),
		zap.String("tracking_code", shipment.TrackingCode),
		zap.String("final_price", shipment.FinalPrice.StringFixed(2)),
	)
	s.publish(ctx, events.NewEvent(events.TypeShipmentCreated, shipment.ID, shipment))
	return shipment, nil
}

// buildDetail checks the mode-specific fields in order: reference id present,
// reference exists, code present and well formed, no fields of the other mode.
func (s *Service) buildDetail(ctx context.Context, req CreateRequest) (models.Detail, error) {
	switch req.Mode {
	case models.ModeLand:
		if req.WarehouseID == nil {
			return nil, apperror.Validation("warehouse_id is required for LAND shipments").WithDetail("field", "warehouse_id")
		}
		if _, err := s.store.FindWarehouse(ctx, *req.WarehouseID); err != nil {
			return nil, s.lookupErr(err, "warehouse", *req.WarehouseID)
		}
		if req.VehiclePlate == nil || *req.VehiclePlate == "" {
			return nil, apperror.Validation("vehicle_plate is required for LAND shipments").WithDetail("field", "vehicle_plate")
		}
		plate := NormalizeCode(*req.VehiclePlate)
		if err := validatePlate(plate); err != nil {
			return nil, err
		}
		if req.PortID != nil || req.FleetCode != nil {
			return nil, apperror.Validation("port_id and fleet_code do not apply to LAND shipments")
		}
		return models.LandDetail{WarehouseID: *req.WarehouseID, VehiclePlate: plate}, nil

	case models.ModeMaritime:
		if req.PortID == nil {
			return nil, apperror.Validation("port_id is required for MARITIME shipments").WithDetail("field", "port_id")
		}
		if _, err := s.store.FindPort(ctx, *req.PortID); err != nil {
			return nil, s.lookupErr(err, "port", *req.PortID)
		}
		if req.FleetCode == nil || *req.FleetCode == "" {
			return nil, apperror.Validation("fleet_code is required for MARITIME shipments").WithDetail("field", "fleet_code")
		}
		code := NormalizeCode(*req.FleetCode)
		if err := validateFleetCode(code); err != nil {
			return nil, err
		}
		if req.WarehouseID != nil || req.VehiclePlate != nil {
			return nil, apperror.Validation("warehouse_id and vehicle_plate do not apply to MARITIME shipments")
		}
		return models.MaritimeDetail{PortID: *req.PortID, FleetCode: code}, nil
	}
	return nil, validateMode(req.Mode)
}

func (s *Service) Update(ctx context.Context, id int64, req UpdateRequest) (_ *models.Shipment, err error) {
	ctx, span := s.tracer.Start(ctx, "shipping.Update", trace.WithAttributes(attribute.Int64("shipment.id", id)))
	defer func() { s.finish(span, "update", err) }()

	current, err := s.store.GetShipment(ctx, id)
	if err != nil {
		return nil, s.lookupErr(err, "shipment", id)
	}

	if req.Mode != nil && *req.Mode != current.Mode {
		return nil, apperror.Conflictf("shipment mode cannot change from %s to %s", current.Mode, *req.Mode)
	}

	next := *current
	if req.RegisteredOn != nil {
		next.RegisteredOn = *req.RegisteredOn
	}
	if req.DeliveredOn != nil {
		next.DeliveredOn = *req.DeliveredOn
	}
	if err := validateDates(next.RegisteredOn, next.DeliveredOn); err != nil {
		return nil, err
	}

	if req.Quantity != nil {
		if err := validateQuantity(*req.Quantity); err != nil {
			return nil, err
		}
		next.Quantity = *req.Quantity
	}
	if req.BasePrice != nil {
		if err := validateBasePrice(*req.BasePrice); err != nil {
			return nil, err
		}
		next.BasePrice = *req.BasePrice
	}
	price := pricing.Price(next.BasePrice, next.Quantity, next.Mode)
	next.BasePrice, next.Discount, next.FinalPrice = price.Base, price.Discount, price.Final

	if req.TrackingCode != nil {
		if err := validateTrackingCode(*req.TrackingCode); err != nil {
			return nil, err
		}
		next.TrackingCode = *req.TrackingCode
	}

	detail, err := s.mergeDetail(ctx, current.Detail, req)
	if err != nil {
		return nil, err
	}
	next.Detail = detail

	if err := s.store.UpdateShipment(ctx, &next); err != nil {
		return nil, s.writeErr(err, &next)
	}

	logging.FromContext(ctx).Info("shipment updated",
		zap.Int64("shipment_id", next.ID),
		zap.Int("version", next.Version),
	)
	s.publish(ctx, events.NewEvent(events.TypeShipmentUpdated, next.ID, &next))
	return &next, nil
}

func (s *Service) mergeDetail(ctx context.Context, current models.Detail, req UpdateRequest) (models.Detail, error) {
	switch d := current.(type) {
	case models.LandDetail:
		if req.hasMaritimeFields() {
			return nil, apperror.Conflict("port_id and fleet_code do not apply to a LAND shipment")
		}
		if req.WarehouseID != nil && *req.WarehouseID != d.WarehouseID {
			if _, err := s.store.FindWarehouse(ctx, *req.WarehouseID); err != nil {
				return nil, s.lookupErr(err, "warehouse", *req.WarehouseID)
			}
			d.WarehouseID = *req.WarehouseID
		}
		if req.VehiclePlate != nil {
			plate := NormalizeCode(*req.VehiclePlate)
			if err := validatePlate(plate); err != nil {
				return nil, err
			}
			d.VehiclePlate = plate
		}
		return d, nil

	case models.MaritimeDetail:
		if req.hasLandFields() {
			return nil, apperror.Conflict("warehouse_id and vehicle_plate do not apply to a MARITIME shipment")
		}
		if req.PortID != nil && *req.PortID != d.PortID {
			if _, err := s.store.FindPort(ctx, *req.PortID); err != nil {
				return nil, s.lookupErr(err, "port", *req.PortID)
			}
			d.PortID = *req.PortID
		}
		if req.FleetCode != nil {
			code := NormalizeCode(*req.FleetCode)
			if err := validateFleetCode(code); err != nil {
				return nil, err
			}
			d.FleetCode = code
		}
		return d, nil
	}
	return nil, apperror.Internal(fmt.Errorf("shipment has unsupported detail %T", current))
}

func (s *Service) Delete(ctx context.Context, id int64) (err error) {
	ctx, span := s.tracer.Start(ctx, "shipping.Delete", trace.WithAttributes(attribute.Int64("shipment.id", id)))
	defer func() { s.finish(span, "delete", err) }()

	if err := s.store.DeleteShipment(ctx, id); err != nil {
		return s.lookupErr(err, "shipment", id)
	}

	logging.FromContext(ctx).Info("shipment deleted", zap.Int64("shipment_id", id))
	s.publish(ctx, events.NewEvent(events.TypeShipmentDeleted, id, nil))
	return nil
}

func (s *Service) Get(ctx context.Context, id int64) (*models.Shipment, error) {
	ctx, span := s.tracer.Start(ctx, "shipping.Get", trace.WithAttributes(attribute.Int64("shipment.id", id)))
	defer span.End()

	shipment, err := s.store.GetShipment(ctx, id)
	if err != nil {
		err = s.lookupErr(err, "shipment", id)
		recordSpanError(span, err)
		return nil, err
	}
	return shipment, nil
}

func (s *Service) List(ctx context.Context, f models.ShipmentFilter, req models.PageRequest) (_ *models.Page[models.Shipment], err error) {
	ctx, span := s.tracer.Start(ctx, "shipping.List")
	defer func() { s.finish(span, "list", err) }()

	if err := req.Validate(); err != nil {
		return nil, apperror.Validation(err.Error())
	}
	if f.Mode != "" {
		if err := validateMode(f.Mode); err != nil {
			return nil, err
		}
	}

	page, err := s.store.QueryShipments(ctx, f, req)
	if err != nil {
		return nil, apperror.Internal(fmt.Errorf("query shipments: %w", err))
	}
	span.SetAttributes(attribute.Int64("shipment.total", page.Total))
	return page, nil
}

// Quote prices a prospective shipment without persisting anything.
func (s *Service) Quote(ctx context.Context, req QuoteRequest) (pricing.Breakdown, error) {
	_, span := s.tracer.Start(ctx, "shipping.Quote")
	defer span.End()

	for _, check := range []error{
		validateMode(req.Mode),
		validateQuantity(req.Quantity),
		validateBasePrice(req.BasePrice),
	} {
		if check != nil {
			recordSpanError(span, check)
			return pricing.Breakdown{}, check
		}
	}
	return pricing.Price(req.BasePrice, req.Quantity, req.Mode), nil
}

func (s *Service) publish(ctx context.Context, e events.Event) {
	if err := s.publisher.Publish(ctx, e); err != nil {
		logging.FromContext(ctx).Warn("publish shipment event failed",
			zap.String("type", e.Type),
			zap.Int64("shipment_id", e.ShipmentID),
			zap.Error(err),
		)
	}
}

func (s *Service) finish(span trace.Span, operation string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
		if appErr, ok := apperror.As(err); ok {
			outcome = string(appErr.Code)
		}
		recordSpanError(span, err)
	}
	s.metrics.RecordShipmentOperation(operation, outcome)
	span.End()
}

func recordSpanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

var notFoundSentinels = []error{
	database.ErrShipmentNotFound,
	database.ErrCustomerNotFound,
	database.ErrProductNotFound,
	database.ErrWarehouseNotFound,
	database.ErrPortNotFound,
}

func (s *Service) lookupErr(err error, resource string, id int64) error {
	for _, sentinel := range notFoundSentinels {
		if errors.Is(err, sentinel) {
			return apperror.NotFound(resource, id)
		}
	}
	return apperror.Internal(fmt.Errorf("find %s %d: %w", resource, id, err))
}

// writeErr maps persistence failures of an insert or update. A reference that
// vanished between the existence check and the write surfaces as NotFound.
func (s *Service) writeErr(err error, sh *models.Shipment) error {
	switch {
	case errors.Is(err, database.ErrTrackingCodeTaken):
		return apperror.Conflictf("tracking code %q already exists", sh.TrackingCode).WithDetail("field", "tracking_code")
	case errors.Is(err, database.ErrVersionConflict):
		return apperror.Conflict("shipment was modified concurrently; reload and retry")
	case errors.Is(err, database.ErrDanglingReference):
		return apperror.Conflict("shipment references a record that no longer exists")
	case errors.Is(err, database.ErrShipmentNotFound):
		return apperror.NotFound("shipment", sh.ID)
	case errors.Is(err, database.ErrCustomerNotFound):
		return apperror.NotFound("customer", sh.CustomerID)
	case errors.Is(err, database.ErrProductNotFound):
		return apperror.NotFound("product", sh.ProductID)
	case errors.Is(err, database.ErrWarehouseNotFound):
		if d, ok := sh.Land(); ok {
			return apperror.NotFound("warehouse", d.WarehouseID)
		}
	case errors.Is(err, database.ErrPortNotFound):
		if d, ok := sh.Maritime(); ok {
			return apperror.NotFound("port", d.PortID)
		}
	}
	return apperror.Internal(fmt.Errorf("write shipment: %w", err))
}
