package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/safar/go-logistics/internal/database"
	"github.com/safar/go-logistics/internal/models"
)

const productColumns = `id, name, description, created_at, updated_at`

func scanProduct(row rowScanner) (*models.Product, error) {
	p := &models.Product{}
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func CreateProduct(ctx context.Context, db database.Querier, p *models.Product) (*models.Product, error) {
	query := `
		INSERT INTO products (name, description, created_at, updated_at)
		VALUES ($1, $2, NOW(), NOW())
		RETURNING ` + productColumns

	created, err := scanProduct(db.QueryRowContext(ctx, query, p.Name, p.Description))
	if err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	return created, nil
}

func GetProduct(ctx context.Context, db database.Querier, id int64) (*models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1 AND deleted_at IS NULL`

	p, err := scanProduct(db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrProductNotFound
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

func ListProducts(ctx context.Context, db database.Querier, f models.CatalogFilter, req models.PageRequest) (*models.Page[models.Product], error) {
	w := newWhere("deleted_at IS NULL")
	if f.Query != "" {
		w.add("name ILIKE $%d", containsPattern(f.Query))
	}

	var total int64
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products `+w.String(), w.args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count products: %w", err)
	}

	limit, args := w.paginate(req)
	rows, err := db.QueryContext(ctx, `SELECT `+productColumns+` FROM products `+w.String()+` ORDER BY id ASC `+limit, args...)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var products []models.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return models.NewPage(products, total, req), nil
}

func UpdateProduct(ctx context.Context, db database.Querier, p *models.Product) (*models.Product, error) {
	query := `
		UPDATE products SET name = $2, description = $3, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING ` + productColumns

	updated, err := scanProduct(db.QueryRowContext(ctx, query, p.ID, p.Name, p.Description))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrProductNotFound
		}
		return nil, fmt.Errorf("update product: %w", err)
	}
	return updated, nil
}

const productInUse = `SELECT 1 FROM shipments s WHERE s.product_id = $1 AND s.deleted_at IS NULL`

func CountProductShipments(ctx context.Context, db database.Querier, id int64) (int64, error) {
	return countInUse(ctx, db, productInUse, id)
}

func DeleteProduct(ctx context.Context, tx *sql.Tx, id int64) error {
	return softDelete(ctx, tx, "products", productInUse, id, database.ErrProductNotFound)
}
