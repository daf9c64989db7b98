package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/safar/go-logistics/internal/database"
	"github.com/safar/go-logistics/internal/models"
)

const customerColumns = `id, name, email, document, phone, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCustomer(row rowScanner) (*models.Customer, error) {
	c := &models.Customer{}
	err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Document, &c.Phone, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func CreateCustomer(ctx context.Context, db database.Querier, c *models.Customer) (*models.Customer, error) {
	query := `
		INSERT INTO customers (name, email, document, phone, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		RETURNING ` + customerColumns

	created, err := scanCustomer(db.QueryRowContext(ctx, query, c.Name, c.Email, c.Document, c.Phone))
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, database.ErrEmailTaken
		}
		return nil, fmt.Errorf("create customer: %w", err)
	}
	return created, nil
}

func GetCustomer(ctx context.Context, db database.Querier, id int64) (*models.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE id = $1 AND deleted_at IS NULL`

	c, err := scanCustomer(db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrCustomerNotFound
		}
		return nil, fmt.Errorf("get customer: %w", err)
	}
	return c, nil
}

func ListCustomers(ctx context.Context, db database.Querier, f models.CatalogFilter, req models.PageRequest) (*models.Page[models.Customer], error) {
	w := newWhere("deleted_at IS NULL")
	if f.Query != "" {
		w.add("name ILIKE $%d", containsPattern(f.Query))
	}
	if f.Email != "" {
		w.add("LOWER(email) = LOWER($%d)", f.Email)
	}

	var total int64
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM customers `+w.String(), w.args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count customers: %w", err)
	}

	limit, args := w.paginate(req)
	rows, err := db.QueryContext(ctx, `SELECT `+customerColumns+` FROM customers `+w.String()+` ORDER BY id ASC `+limit, args...)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	defer rows.Close()

	var customers []models.Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan customer: %w", err)
		}
		customers = append(customers, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return models.NewPage(customers, total, req), nil
}

func UpdateCustomer(ctx context.Context, db database.Querier, c *models.Customer) (*models.Customer, error) {
	query := `
		UPDATE customers
		SET name = $2, email = $3, document = $4, phone = $5, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING ` + customerColumns

	updated, err := scanCustomer(db.QueryRowContext(ctx, query, c.ID, c.Name, c.Email, c.Document, c.Phone))
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, database.ErrCustomerNotFound
		case database.IsUniqueViolation(err):
			return nil, database.ErrEmailTaken
		}
		return nil, fmt.Errorf("update customer: %w", err)
	}
	return updated, nil
}

const customerInUse = `SELECT 1 FROM shipments s WHERE s.customer_id = $1 AND s.deleted_at IS NULL`

func CountCustomerShipments(ctx context.Context, db database.Querier, id int64) (int64, error) {
	return countInUse(ctx, db, customerInUse, id)
}

func DeleteCustomer(ctx context.Context, tx *sql.Tx, id int64) error {
	return softDelete(ctx, tx, "customers", customerInUse, id, database.ErrCustomerNotFound)
}

func countInUse(ctx context.Context, db database.Querier, inUse string, id int64) (int64, error) {
	var n int64
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM (`+inUse+`) refs`, id).Scan(&n); err != nil {
		return 0, fmt.Errorf("count references: %w", err)
	}
	return n, nil
}

// softDelete marks the row deleted only while no active shipment references it.
// inUse is a subquery over $1 yielding a row per referencing shipment; an empty
// inUse means nothing can reference the table.
//
// The row lock waits out every shipment write holding a share lock on it, and
// the count runs as its own statement so it sees those writes once committed.
// Writers arriving after the lock re-read the row and find it deleted.
func softDelete(ctx context.Context, tx *sql.Tx, table, inUse string, id int64, notFound error) error {
	var locked int64
	lock := fmt.Sprintf(`SELECT id FROM %s WHERE id = $1 AND deleted_at IS NULL FOR UPDATE`, table)
	if err := tx.QueryRowContext(ctx, lock, id).Scan(&locked); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return notFound
		}
		return fmt.Errorf("lock %s: %w", table, err)
	}

	if inUse != "" {
		n, err := countInUse(ctx, tx, inUse, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return database.ErrStillReferenced
		}
	}

	query := fmt.Sprintf(`UPDATE %s SET deleted_at = NOW(), updated_at = NOW() WHERE id = $1`, table)
	if _, err := tx.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete %s: %w", table, err)
	}
	return nil
}
