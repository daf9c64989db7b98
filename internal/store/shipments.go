package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/safar/go-logistics/internal/database"
	"github.com/safar/go-logistics/internal/models"
)

const shipmentSelect = `
	SELECT s.id, s.customer_id, s.product_id, s.quantity, s.registered_on, s.delivered_on,
		s.base_price, s.discount, s.final_price, s.tracking_code, s.mode, s.version,
		s.created_at, s.updated_at,
		l.warehouse_id, l.vehicle_plate, m.port_id, m.fleet_code
	FROM shipments s
	LEFT JOIN land_shipments l ON l.shipment_id = s.id
	LEFT JOIN maritime_shipments m ON m.shipment_id = s.id`

func scanShipment(row rowScanner) (*models.Shipment, error) {
	s := &models.Shipment{}
	var (
		warehouseID, portID     sql.NullInt64
		vehiclePlate, fleetCode sql.NullString
	)
	err := row.Scan(
		&s.ID,
		&s.CustomerID,
		&s.ProductID,
		&s.Quantity,
		&s.RegisteredOn,
		&s.DeliveredOn,
		&s.BasePrice,
		&s.Discount,
		&s.FinalPrice,
		&s.TrackingCode,
		&s.Mode,
		&s.Version,
		&s.CreatedAt,
		&s.UpdatedAt,
		&warehouseID,
		&vehiclePlate,
		&portID,
		&fleetCode,
	)
	if err != nil {
		return nil, err
	}

	switch s.Mode {
	case models.ModeLand:
		if !warehouseID.Valid {
			return nil, fmt.Errorf("shipment %d: land detail missing", s.ID)
		}
		s.Detail = models.LandDetail{WarehouseID: warehouseID.Int64, VehiclePlate: vehiclePlate.String}
	case models.ModeMaritime:
		if !portID.Valid {
			return nil, fmt.Errorf("shipment %d: maritime detail missing", s.ID)
		}
		s.Detail = models.MaritimeDetail{PortID: portID.Int64, FleetCode: fleetCode.String}
	default:
		return nil, fmt.Errorf("shipment %d: unknown mode %q", s.ID, s.Mode)
	}
	return s, nil
}

type reference struct {
	query    string
	id       int64
	notFound error
}

// lockReferences takes share locks on every row the shipment points at. A
// catalog delete locks the same row FOR UPDATE, so it blocks until this
// transaction ends and then counts the committed shipment. A delete that got
// the row first makes this lock wait and then report the row as gone.
func lockReferences(ctx context.Context, tx *sql.Tx, s *models.Shipment) error {
	refs := []reference{
		{`SELECT id FROM customers WHERE id = $1 AND deleted_at IS NULL FOR SHARE`, s.CustomerID, database.ErrCustomerNotFound},
		{`SELECT id FROM products WHERE id = $1 AND deleted_at IS NULL FOR SHARE`, s.ProductID, database.ErrProductNotFound},
	}
	switch d := s.Detail.(type) {
	case models.LandDetail:
		refs = append(refs, reference{`SELECT id FROM warehouses WHERE id = $1 AND deleted_at IS NULL FOR SHARE`, d.WarehouseID, database.ErrWarehouseNotFound})
	case models.MaritimeDetail:
		refs = append(refs, reference{`SELECT id FROM ports WHERE id = $1 AND deleted_at IS NULL FOR SHARE`, d.PortID, database.ErrPortNotFound})
	}

	for _, ref := range refs {
		var id int64
		if err := tx.QueryRowContext(ctx, ref.query, ref.id).Scan(&id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ref.notFound
			}
			return fmt.Errorf("lock reference: %w", err)
		}
	}
	return nil
}

// InsertShipment writes the shipment row and its detail row. The caller owns
// the transaction; both rows land or neither does.
func InsertShipment(ctx context.Context, tx *sql.Tx, s *models.Shipment) error {
	if err := lockReferences(ctx, tx, s); err != nil {
		return err
	}

	query := `
		INSERT INTO shipments (customer_id, product_id, quantity, registered_on, delivered_on,
			base_price, discount, final_price, tracking_code, mode, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 1, NOW(), NOW())
		RETURNING id, version, created_at, updated_at`

	err := tx.QueryRowContext(ctx, query,
		s.CustomerID, s.ProductID, s.Quantity, s.RegisteredOn, s.DeliveredOn,
		s.BasePrice, s.Discount, s.FinalPrice, s.TrackingCode, s.Mode,
	).Scan(&s.ID, &s.Version, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		switch {
		case database.IsUniqueViolation(err):
			return database.ErrTrackingCodeTaken
		case database.IsForeignKeyViolation(err):
			return database.ErrDanglingReference
		}
		return fmt.Errorf("insert shipment: %w", err)
	}

	if err := insertDetail(ctx, tx, s.ID, s.Detail); err != nil {
		return err
	}
	return nil
}

func insertDetail(ctx context.Context, tx *sql.Tx, shipmentID int64, detail models.Detail) error {
	var err error
	switch d := detail.(type) {
	case models.LandDetail:
		_, err = tx.ExecContext(ctx,
			`INSERT INTO land_shipments (shipment_id, warehouse_id, vehicle_plate) VALUES ($1, $2, $3)`,
			shipmentID, d.WarehouseID, d.VehiclePlate)
	case models.MaritimeDetail:
		_, err = tx.ExecContext(ctx,
			`INSERT INTO maritime_shipments (shipment_id, port_id, fleet_code) VALUES ($1, $2, $3)`,
			shipmentID, d.PortID, d.FleetCode)
	default:
		return fmt.Errorf("insert shipment detail: unsupported detail %T", detail)
	}
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return database.ErrDanglingReference
		}
		return fmt.Errorf("insert shipment detail: %w", err)
	}
	return nil
}

func GetShipment(ctx context.Context, db database.Querier, id int64) (*models.Shipment, error) {
	s, err := scanShipment(db.QueryRowContext(ctx, shipmentSelect+` WHERE s.id = $1 AND s.deleted_at IS NULL`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrShipmentNotFound
		}
		return nil, fmt.Errorf("get shipment: %w", err)
	}
	return s, nil
}

// UpdateShipment persists every mutable column of s, guarded by the version
// the caller read. Mode is part of the guard so a row can never switch mode.
func UpdateShipment(ctx context.Context, tx *sql.Tx, s *models.Shipment) error {
	if err := lockReferences(ctx, tx, s); err != nil {
		return err
	}

	query := `
		UPDATE shipments
		SET quantity = $3, registered_on = $4, delivered_on = $5, base_price = $6,
			discount = $7, final_price = $8, tracking_code = $9,
			version = version + 1, updated_at = NOW()
		WHERE id = $1 AND version = $2 AND mode = $10 AND deleted_at IS NULL
		RETURNING version, updated_at`

	err := tx.QueryRowContext(ctx, query,
		s.ID, s.Version, s.Quantity, s.RegisteredOn, s.DeliveredOn, s.BasePrice,
		s.Discount, s.FinalPrice, s.TrackingCode, s.Mode,
	).Scan(&s.Version, &s.UpdatedAt)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return versionOrMissing(ctx, tx, s.ID)
		case database.IsUniqueViolation(err):
			return database.ErrTrackingCodeTaken
		}
		return fmt.Errorf("update shipment: %w", err)
	}

	var res sql.Result
	switch d := s.Detail.(type) {
	case models.LandDetail:
		res, err = tx.ExecContext(ctx,
			`UPDATE land_shipments SET warehouse_id = $2, vehicle_plate = $3 WHERE shipment_id = $1`,
			s.ID, d.WarehouseID, d.VehiclePlate)
	case models.MaritimeDetail:
		res, err = tx.ExecContext(ctx,
			`UPDATE maritime_shipments SET port_id = $2, fleet_code = $3 WHERE shipment_id = $1`,
			s.ID, d.PortID, d.FleetCode)
	default:
		return fmt.Errorf("update shipment detail: unsupported detail %T", s.Detail)
	}
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return database.ErrDanglingReference
		}
		return fmt.Errorf("update shipment detail: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n != 1 {
		return fmt.Errorf("update shipment detail: shipment %d has no %s detail", s.ID, s.Mode)
	}
	return nil
}

func versionOrMissing(ctx context.Context, db database.Querier, id int64) error {
	var exists bool
	err := db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM shipments WHERE id = $1 AND deleted_at IS NULL)`, id).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check shipment: %w", err)
	}
	if !exists {
		return database.ErrShipmentNotFound
	}
	return database.ErrVersionConflict
}

func SoftDeleteShipment(ctx context.Context, db database.Querier, id int64) error {
	res, err := db.ExecContext(ctx,
		`UPDATE shipments SET deleted_at = NOW(), updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("delete shipment: %w", err)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return database.ErrShipmentNotFound
	}
	return nil
}

// HardDeleteShipment removes the detail row first, then its parent.
func HardDeleteShipment(ctx context.Context, tx *sql.Tx, id int64) error {
	var mode models.Mode
	err := tx.QueryRowContext(ctx,
		`SELECT mode FROM shipments WHERE id = $1 AND deleted_at IS NULL FOR UPDATE`, id).Scan(&mode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return database.ErrShipmentNotFound
		}
		return fmt.Errorf("lock shipment: %w", err)
	}

	detailTable := "land_shipments"
	if mode == models.ModeMaritime {
		detailTable = "maritime_shipments"
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM `+detailTable+` WHERE shipment_id = $1`, id); err != nil {
		return fmt.Errorf("delete shipment detail: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM shipments WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete shipment: %w", err)
	}
	return nil
}

func QueryShipments(ctx context.Context, db database.Querier, f models.ShipmentFilter, req models.PageRequest) (*models.Page[models.Shipment], error) {
	w := newWhere("s.deleted_at IS NULL")
	if f.Query != "" {
		w.add("s.tracking_code ILIKE $%d", containsPattern(f.Query))
	}
	if f.CustomerID != 0 {
		w.add("s.customer_id = $%d", f.CustomerID)
	}
	if f.ProductID != 0 {
		w.add("s.product_id = $%d", f.ProductID)
	}
	if f.Mode != "" {
		w.add("s.mode = $%d", f.Mode)
	}

	var total int64
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM shipments s `+w.String(), w.args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count shipments: %w", err)
	}

	limit, args := w.paginate(req)
	rows, err := db.QueryContext(ctx, shipmentSelect+` `+w.String()+` ORDER BY s.id ASC `+limit, args...)
	if err != nil {
		return nil, fmt.Errorf("list shipments: %w", err)
	}
	defer rows.Close()

	var shipments []models.Shipment
	for rows.Next() {
		s, err := scanShipment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan shipment: %w", err)
		}
		shipments = append(shipments, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return models.NewPage(shipments, total, req), nil
}
