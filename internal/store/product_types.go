package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/safar/go-logistics/internal/database"
	"github.com/safar/go-logistics/internal/models"
)

const productTypeColumns = `id, name, created_at, updated_at`

func scanProductType(row rowScanner) (*models.ProductType, error) {
	pt := &models.ProductType{}
	err := row.Scan(&pt.ID, &pt.Name, &pt.CreatedAt, &pt.UpdatedAt)
	return pt, err
}

func CreateProductType(ctx context.Context, db database.Querier, pt *models.ProductType) (*models.ProductType, error) {
	query := `
		INSERT INTO product_types (name, created_at, updated_at)
		VALUES ($1, NOW(), NOW())
		RETURNING ` + productTypeColumns

	created, err := scanProductType(db.QueryRowContext(ctx, query, pt.Name))
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, database.ErrProductTypeTaken
		}
		return nil, fmt.Errorf("create product type: %w", err)
	}
	return created, nil
}

func GetProductType(ctx context.Context, db database.Querier, id int64) (*models.ProductType, error) {
	query := `SELECT ` + productTypeColumns + ` FROM product_types WHERE id = $1 AND deleted_at IS NULL`

	pt, err := scanProductType(db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrProductTypeNotFound
		}
		return nil, fmt.Errorf("get product type: %w", err)
	}
	return pt, nil
}

func ListProductTypes(ctx context.Context, db database.Querier, f models.CatalogFilter, req models.PageRequest) (*models.Page[models.ProductType], error) {
	w := newWhere("deleted_at IS NULL")
	if f.Query != "" {
		w.add("name ILIKE $%d", containsPattern(f.Query))
	}

	var total int64
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM product_types `+w.String(), w.args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count product types: %w", err)
	}

	limit, args := w.paginate(req)
	rows, err := db.QueryContext(ctx, `SELECT `+productTypeColumns+` FROM product_types `+w.String()+` ORDER BY id ASC `+limit, args...)
	if err != nil {
		return nil, fmt.Errorf("list product types: %w", err)
	}
	defer rows.Close()

	var types []models.ProductType
	for rows.Next() {
		pt, err := scanProductType(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product type: %w", err)
		}
		types = append(types, *pt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return models.NewPage(types, total, req), nil
}

func UpdateProductType(ctx context.Context, db database.Querier, pt *models.ProductType) (*models.ProductType, error) {
	query := `
		UPDATE product_types SET name = $2, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING ` + productTypeColumns

	updated, err := scanProductType(db.QueryRowContext(ctx, query, pt.ID, pt.Name))
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, database.ErrProductTypeNotFound
		case database.IsUniqueViolation(err):
			return nil, database.ErrProductTypeTaken
		}
		return nil, fmt.Errorf("update product type: %w", err)
	}
	return updated, nil
}

// CountProductTypeReferences always reports zero: shipments do not carry a
// product type, so nothing can block the delete.
func CountProductTypeReferences(context.Context, database.Querier, int64) (int64, error) {
	return 0, nil
}

func DeleteProductType(ctx context.Context, tx *sql.Tx, id int64) error {
	return softDelete(ctx, tx, "product_types", "", id, database.ErrProductTypeNotFound)
}
