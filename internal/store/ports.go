package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/safar/go-logistics/internal/database"
	"github.com/safar/go-logistics/internal/models"
)

const portColumns = `id, name, country, created_at, updated_at`

func scanPort(row rowScanner) (*models.Port, error) {
	p := &models.Port{}
	err := row.Scan(&p.ID, &p.Name, &p.Country, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func CreatePort(ctx context.Context, db database.Querier, p *models.Port) (*models.Port, error) {
	query := `
		INSERT INTO ports (name, country, created_at, updated_at)
		VALUES ($1, $2, NOW(), NOW())
		RETURNING ` + portColumns

	created, err := scanPort(db.QueryRowContext(ctx, query, p.Name, p.Country))
	if err != nil {
		return nil, fmt.Errorf("create port: %w", err)
	}
	return created, nil
}

func GetPort(ctx context.Context, db database.Querier, id int64) (*models.Port, error) {
	query := `SELECT ` + portColumns + ` FROM ports WHERE id = $1 AND deleted_at IS NULL`

	p, err := scanPort(db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrPortNotFound
		}
		return nil, fmt.Errorf("get port: %w", err)
	}
	return p, nil
}

func ListPorts(ctx context.Context, db database.Querier, f models.CatalogFilter, req models.PageRequest) (*models.Page[models.Port], error) {
	w := newWhere("deleted_at IS NULL")
	if f.Query != "" {
		w.add("name ILIKE $%d", containsPattern(f.Query))
	}
	if f.Country != "" {
		w.add("country ILIKE $%d", f.Country)
	}

	var total int64
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM ports `+w.String(), w.args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count ports: %w", err)
	}

	limit, args := w.paginate(req)
	rows, err := db.QueryContext(ctx, `SELECT `+portColumns+` FROM ports `+w.String()+` ORDER BY id ASC `+limit, args...)
	if err != nil {
		return nil, fmt.Errorf("list ports: %w", err)
	}
	defer rows.Close()

	var ports []models.Port
	for rows.Next() {
		p, err := scanPort(rows)
		if err != nil {
			return nil, fmt.Errorf("scan port: %w", err)
		}
		ports = append(ports, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return models.NewPage(ports, total, req), nil
}

func UpdatePort(ctx context.Context, db database.Querier, p *models.Port) (*models.Port, error) {
	query := `
		UPDATE ports SET name = $2, country = $3, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING ` + portColumns

	updated, err := scanPort(db.QueryRowContext(ctx, query, p.ID, p.Name, p.Country))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrPortNotFound
		}
		return nil, fmt.Errorf("update port: %w", err)
	}
	return updated, nil
}

const portInUse = `
	SELECT 1 FROM maritime_shipments m
	JOIN shipments s ON s.id = m.shipment_id
	WHERE m.port_id = $1 AND s.deleted_at IS NULL`

func CountPortShipments(ctx context.Context, db database.Querier, id int64) (int64, error) {
	return countInUse(ctx, db, portInUse, id)
}

func DeletePort(ctx context.Context, tx *sql.Tx, id int64) error {
	return softDelete(ctx, tx, "ports", portInUse, id, database.ErrPortNotFound)
}
