package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/safar/go-logistics/internal/database"
	"github.com/safar/go-logistics/internal/models"
)

const warehouseColumns = `id, name, location, country, created_at, updated_at`

func scanWarehouse(row rowScanner) (*models.Warehouse, error) {
	w := &models.Warehouse{}
	err := row.Scan(&w.ID, &w.Name, &w.Location, &w.Country, &w.CreatedAt, &w.UpdatedAt)
	return w, err
}

func CreateWarehouse(ctx context.Context, db database.Querier, wh *models.Warehouse) (*models.Warehouse, error) {
	query := `
		INSERT INTO warehouses (name, location, country, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		RETURNING ` + warehouseColumns

	created, err := scanWarehouse(db.QueryRowContext(ctx, query, wh.Name, wh.Location, wh.Country))
	if err != nil {
		return nil, fmt.Errorf("create warehouse: %w", err)
	}
	return created, nil
}

func GetWarehouse(ctx context.Context, db database.Querier, id int64) (*models.Warehouse, error) {
	query := `SELECT ` + warehouseColumns + ` FROM warehouses WHERE id = $1 AND deleted_at IS NULL`

	wh, err := scanWarehouse(db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrWarehouseNotFound
		}
		return nil, fmt.Errorf("get warehouse: %w", err)
	}
	return wh, nil
}

func ListWarehouses(ctx context.Context, db database.Querier, f models.CatalogFilter, req models.PageRequest) (*models.Page[models.Warehouse], error) {
	w := newWhere("deleted_at IS NULL")
	if f.Query != "" {
		w.add("name ILIKE $%d", containsPattern(f.Query))
	}
	if f.Country != "" {
		w.add("country ILIKE $%d", f.Country)
	}

	var total int64
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM warehouses `+w.String(), w.args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count warehouses: %w", err)
	}

	limit, args := w.paginate(req)
	rows, err := db.QueryContext(ctx, `SELECT `+warehouseColumns+` FROM warehouses `+w.String()+` ORDER BY id ASC `+limit, args...)
	if err != nil {
		return nil, fmt.Errorf("list warehouses: %w", err)
	}
	defer rows.Close()

	var warehouses []models.Warehouse
	for rows.Next() {
		wh, err := scanWarehouse(rows)
		if err != nil {
			return nil, fmt.Errorf("scan warehouse: %w", err)
		}
		warehouses = append(warehouses, *wh)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return models.NewPage(warehouses, total, req), nil
}

func UpdateWarehouse(ctx context.Context, db database.Querier, wh *models.Warehouse) (*models.Warehouse, error) {
	query := `
		UPDATE warehouses SET name = $2, location = $3, country = $4, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING ` + warehouseColumns

	updated, err := scanWarehouse(db.QueryRowContext(ctx, query, wh.ID, wh.Name, wh.Location, wh.Country))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrWarehouseNotFound
		}
		return nil, fmt.Errorf("update warehouse: %w", err)
	}
	return updated, nil
}

const warehouseInUse = `
	SELECT 1 FROM land_shipments l
	JOIN shipments s ON s.id = l.shipment_id
	WHERE l.warehouse_id = $1 AND s.deleted_at IS NULL`

func CountWarehouseShipments(ctx context.Context, db database.Querier, id int64) (int64, error) {
	return countInUse(ctx, db, warehouseInUse, id)
}

func DeleteWarehouse(ctx context.Context, tx *sql.Tx, id int64) error {
	return softDelete(ctx, tx, "warehouses", warehouseInUse, id, database.ErrWarehouseNotFound)
}
