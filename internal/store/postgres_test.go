package store_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/safar/go-logistics/internal/apperror"
	"github.com/safar/go-logistics/internal/catalog"
	"github.com/safar/go-logistics/internal/database"
	"github.com/safar/go-logistics/internal/models"
	"github.com/safar/go-logistics/internal/shipping"
	"github.com/safar/go-logistics/internal/store"
	"github.com/safar/go-logistics/migrations"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "testuser",
				"POSTGRES_PASSWORD": "testpass",
				"POSTGRES_DB":       "logistics",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err, "start postgres container")
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("terminate container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dsn := fmt.Sprintf("postgres://testuser:testpass@%s:%s/logistics?sslmode=disable", host, port.Port())
	db, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.PingContext(ctx))

	_, err = database.Migrate(ctx, db, migrations.FS, database.Up)
	require.NoError(t, err, "apply migrations")
	return db
}

type fixture struct {
	customer  *models.Customer
	product   *models.Product
	warehouse *models.Warehouse
	port      *models.Port
}

func seed(t *testing.T, pg *store.Postgres) fixture {
	t.Helper()
	ctx := context.Background()
	var f fixture
	var err error

	f.customer, err = pg.Customers().Create(ctx, &models.Customer{Name: "Acme", Email: "ops@acme.test", Document: "900123"})
	require.NoError(t, err)
	f.product, err = pg.Products().Create(ctx, &models.Product{Name: "Cement"})
	require.NoError(t, err)
	f.warehouse, err = pg.Warehouses().Create(ctx, &models.Warehouse{Name: "North", Location: "Km 5", Country: "CO"})
	require.NoError(t, err)
	f.port, err = pg.Ports().Create(ctx, &models.Port{Name: "Cartagena", Country: "CO"})
	require.NoError(t, err)
	return f
}

func ptr[T any](v T) *T { return &v }

func landRequest(f fixture, code string, qty int, base string) shipping.CreateRequest {
	return shipping.CreateRequest{
		CustomerID:   f.customer.ID,
		ProductID:    f.product.ID,
		Quantity:     qty,
		RegisteredOn: models.NewDate(2024, time.January, 10),
		DeliveredOn:  models.NewDate(2024, time.January, 12),
		BasePrice:    decimal.RequireFromString(base),
		TrackingCode: code,
		Mode:         models.ModeLand,
		WarehouseID:  ptr(f.warehouse.ID),
		VehiclePlate: ptr("abc123"),
	}
}

func TestShipmentLifecycle(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	pg := store.NewPostgres(db)
	f := seed(t, pg)
	svc := shipping.NewService(pg)

	land, err := svc.Create(ctx, landRequest(f, "TRK-LAND-1", 11, "1000"))
	require.NoError(t, err)
	assert.Equal(t, 1, land.Version)

	stored, err := pg.GetShipment(ctx, land.ID)
	require.NoError(t, err)
	assert.Equal(t, "50.00", stored.Discount.StringFixed(2))
	assert.Equal(t, "950.00", stored.FinalPrice.StringFixed(2))
	detail, ok := stored.Land()
	require.True(t, ok)
	assert.Equal(t, "ABC123", detail.VehiclePlate)
	assert.Equal(t, "2024-01-10", stored.RegisteredOn.String())

	sea, err := svc.Create(ctx, shipping.CreateRequest{
		CustomerID:   f.customer.ID,
		ProductID:    f.product.ID,
		Quantity:     5,
		RegisteredOn: models.NewDate(2024, time.February, 1),
		DeliveredOn:  models.NewDate(2024, time.February, 20),
		BasePrice:    decimal.RequireFromString("2500.50"),
		TrackingCode: "TRK-SEA-1",
		Mode:         models.ModeMaritime,
		PortID:       ptr(f.port.ID),
		FleetCode:    ptr("ABC1234D"),
	})
	require.NoError(t, err)
	assert.True(t, sea.Discount.IsZero())

	_, err = svc.Create(ctx, landRequest(f, "TRK-LAND-1", 1, "10"))
	assert.True(t, apperror.IsConflict(err), "duplicate tracking code: %v", err)

	t.Run("list filters", func(t *testing.T) {
		page, err := pg.QueryShipments(ctx, models.ShipmentFilter{Query: "land"}, models.PageRequest{Page: 1, PageSize: 10})
		require.NoError(t, err)
		require.Len(t, page.Items, 1)
		assert.Equal(t, land.ID, page.Items[0].ID)

		page, err = pg.QueryShipments(ctx, models.ShipmentFilter{Mode: models.ModeMaritime}, models.PageRequest{Page: 1, PageSize: 10})
		require.NoError(t, err)
		require.Len(t, page.Items, 1)
		_, ok := page.Items[0].Maritime()
		assert.True(t, ok)

		page, err = pg.QueryShipments(ctx, models.ShipmentFilter{}, models.PageRequest{Page: 2, PageSize: 1})
		require.NoError(t, err)
		assert.EqualValues(t, 2, page.Total)
		assert.Equal(t, 2, page.TotalPages)
		require.Len(t, page.Items, 1)
		assert.Equal(t, sea.ID, page.Items[0].ID, "ordered by id")

		page, err = pg.QueryShipments(ctx, models.ShipmentFilter{Query: "%"}, models.PageRequest{Page: 1, PageSize: 10})
		require.NoError(t, err)
		assert.Empty(t, page.Items, "wildcards are matched literally")
	})

	t.Run("update recomputes price and bumps version", func(t *testing.T) {
		updated, err := svc.Update(ctx, land.ID, shipping.UpdateRequest{Quantity: ptr(5)})
		require.NoError(t, err)
		assert.Equal(t, 2, updated.Version)

		got, err := pg.GetShipment(ctx, land.ID)
		require.NoError(t, err)
		assert.True(t, got.Discount.IsZero())
		assert.Equal(t, "1000.00", got.FinalPrice.StringFixed(2))
	})

	t.Run("stale version is rejected", func(t *testing.T) {
		current, err := pg.GetShipment(ctx, land.ID)
		require.NoError(t, err)
		stale := *current
		stale.Version--
		assert.ErrorIs(t, pg.UpdateShipment(ctx, &stale), database.ErrVersionConflict)
	})

	t.Run("referenced warehouse cannot be deleted", func(t *testing.T) {
		cat := catalog.New(pg.Customers(), pg.Products(), pg.ProductTypes(), pg.Warehouses(), pg.Ports())
		err := cat.Warehouses.Delete(ctx, f.warehouse.ID)
		require.True(t, apperror.IsConflict(err), "got %v", err)

		assert.ErrorIs(t, pg.Warehouses().Delete(ctx, f.warehouse.ID), database.ErrStillReferenced)
	})

	t.Run("soft delete hides the shipment", func(t *testing.T) {
		require.NoError(t, svc.Delete(ctx, land.ID))
		_, err := pg.GetShipment(ctx, land.ID)
		assert.ErrorIs(t, err, database.ErrShipmentNotFound)

		var deletedAt sql.NullTime
		require.NoError(t, db.QueryRowContext(ctx, `SELECT deleted_at FROM shipments WHERE id = $1`, land.ID).Scan(&deletedAt))
		assert.True(t, deletedAt.Valid)

		err = svc.Delete(ctx, land.ID)
		assert.True(t, apperror.IsNotFound(err))

		// the only remaining land shipment is gone, so the warehouse is free
		require.NoError(t, pg.Warehouses().Delete(ctx, f.warehouse.ID))
	})
}

func maritimeRequest(f fixture, code string) shipping.CreateRequest {
	return shipping.CreateRequest{
		CustomerID:   f.customer.ID,
		ProductID:    f.product.ID,
		Quantity:     4,
		RegisteredOn: models.NewDate(2024, time.March, 1),
		DeliveredOn:  models.NewDate(2024, time.March, 20),
		BasePrice:    decimal.RequireFromString("5000"),
		TrackingCode: code,
		Mode:         models.ModeMaritime,
		PortID:       ptr(f.port.ID),
		FleetCode:    ptr("abc1234d"),
	}
}

func TestReferencedCatalogDeletes(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	pg := store.NewPostgres(db)
	f := seed(t, pg)
	svc := shipping.NewService(pg)
	cat := catalog.New(pg.Customers(), pg.Products(), pg.ProductTypes(), pg.Warehouses(), pg.Ports())

	land, err := svc.Create(ctx, landRequest(f, "TRK-REF-LAND", 2, "300"))
	require.NoError(t, err)
	sea, err := svc.Create(ctx, maritimeRequest(f, "TRK-REF-SEA"))
	require.NoError(t, err)

	t.Run("customer", func(t *testing.T) {
		err := cat.Customers.Delete(ctx, f.customer.ID)
		require.True(t, apperror.IsConflict(err), "got %v", err)
		assert.ErrorIs(t, pg.Customers().Delete(ctx, f.customer.ID), database.ErrStillReferenced)
	})

	t.Run("product", func(t *testing.T) {
		err := cat.Products.Delete(ctx, f.product.ID)
		require.True(t, apperror.IsConflict(err), "got %v", err)
		assert.ErrorIs(t, pg.Products().Delete(ctx, f.product.ID), database.ErrStillReferenced)
	})

	t.Run("port", func(t *testing.T) {
		err := cat.Ports.Delete(ctx, f.port.ID)
		require.True(t, apperror.IsConflict(err), "got %v", err)
		assert.ErrorIs(t, pg.Ports().Delete(ctx, f.port.ID), database.ErrStillReferenced)
	})

	t.Run("released once shipments are deleted", func(t *testing.T) {
		require.NoError(t, svc.Delete(ctx, sea.ID))
		require.NoError(t, cat.Ports.Delete(ctx, f.port.ID))

		// the land shipment still holds the customer and product
		err := cat.Customers.Delete(ctx, f.customer.ID)
		require.True(t, apperror.IsConflict(err), "got %v", err)

		require.NoError(t, svc.Delete(ctx, land.ID))
		require.NoError(t, cat.Customers.Delete(ctx, f.customer.ID))
		require.NoError(t, cat.Products.Delete(ctx, f.product.ID))

		_, err = pg.Customers().Get(ctx, f.customer.ID)
		assert.ErrorIs(t, err, database.ErrCustomerNotFound)
		assert.ErrorIs(t, pg.Products().Delete(ctx, f.product.ID), database.ErrProductNotFound)
	})
}

// Each round races a shipment insert against the delete of the customer it
// points at. Exactly one side must win and no live shipment may end up
// pointing at a deleted customer.
func TestDeleteRacesShipmentInsert(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	pg := store.NewPostgres(db)
	f := seed(t, pg)

	const rounds = 25
	for i := 0; i < rounds; i++ {
		c, err := pg.Customers().Create(ctx, &models.Customer{
			Name: "Racer", Email: fmt.Sprintf("racer%d@acme.test", i), Document: fmt.Sprint(5000 + i),
		})
		require.NoError(t, err)

		s := &models.Shipment{
			CustomerID:   c.ID,
			ProductID:    f.product.ID,
			Quantity:     1,
			RegisteredOn: models.NewDate(2024, time.February, 1),
			DeliveredOn:  models.NewDate(2024, time.February, 2),
			BasePrice:    decimal.NewFromInt(100),
			Discount:     decimal.Zero,
			FinalPrice:   decimal.NewFromInt(100),
			TrackingCode: fmt.Sprintf("TRK-RACE-DEL-%d", i),
			Mode:         models.ModeLand,
			Detail:       models.LandDetail{WarehouseID: f.warehouse.ID, VehiclePlate: "ABC123"},
		}

		var insertErr, deleteErr error
		start := make(chan struct{})
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			<-start
			insertErr = pg.InsertShipment(ctx, s)
		}()
		go func() {
			defer wg.Done()
			<-start
			deleteErr = pg.Customers().Delete(ctx, c.ID)
		}()
		close(start)
		wg.Wait()

		switch {
		case insertErr == nil:
			assert.ErrorIs(t, deleteErr, database.ErrStillReferenced, "round %d", i)
		case deleteErr == nil:
			assert.ErrorIs(t, insertErr, database.ErrCustomerNotFound, "round %d", i)
		default:
			t.Errorf("round %d: both sides failed: insert=%v delete=%v", i, insertErr, deleteErr)
		}
	}

	var orphans int
	require.NoError(t, db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM shipments s
		JOIN customers c ON c.id = s.customer_id
		WHERE s.deleted_at IS NULL AND c.deleted_at IS NOT NULL`).Scan(&orphans))
	assert.Zero(t, orphans)
}

func TestHardDeletePolicy(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	pg := store.NewPostgres(db, store.WithHardDelete(true))
	f := seed(t, pg)
	svc := shipping.NewService(pg)

	s, err := svc.Create(ctx, landRequest(f, "TRK-HARD-1", 3, "120.00"))
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, s.ID))

	var n int
	require.NoError(t, db.QueryRowContext(ctx, `SELECT COUNT(*) FROM shipments WHERE id = $1`, s.ID).Scan(&n))
	assert.Zero(t, n)
	require.NoError(t, db.QueryRowContext(ctx, `SELECT COUNT(*) FROM land_shipments WHERE shipment_id = $1`, s.ID).Scan(&n))
	assert.Zero(t, n)
}

func TestConcurrentUpdatesConflict(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	pg := store.NewPostgres(db)
	f := seed(t, pg)
	svc := shipping.NewService(pg)

	s, err := svc.Create(ctx, landRequest(f, "TRK-RACE-1", 2, "100"))
	require.NoError(t, err)

	const writers = 5
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(qty int) {
			defer wg.Done()
			attempt := *s
			attempt.Quantity = qty
			errs <- pg.UpdateShipment(ctx, &attempt)
		}(i + 3)
	}
	wg.Wait()
	close(errs)

	var ok, conflicts int
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, database.ErrVersionConflict):
			conflicts++
		default:
			t.Errorf("unexpected update error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, writers-1, conflicts)

	got, err := pg.GetShipment(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Version)
}

func TestCatalogConstraints(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	pg := store.NewPostgres(db)
	f := seed(t, pg)

	_, err := pg.Customers().Create(ctx, &models.Customer{Name: "Other", Email: "OPS@acme.test", Document: "1234"})
	assert.ErrorIs(t, err, database.ErrEmailTaken)

	page, err := pg.Warehouses().List(ctx, models.CatalogFilter{Country: "co"}, models.PageRequest{Page: 1, PageSize: 20})
	require.NoError(t, err)
	assert.EqualValues(t, 1, page.Total)

	require.NoError(t, pg.Ports().Delete(ctx, f.port.ID))
	_, err = pg.Ports().Get(ctx, f.port.ID)
	assert.ErrorIs(t, err, database.ErrPortNotFound)
	assert.ErrorIs(t, pg.Ports().Delete(ctx, f.port.ID), database.ErrPortNotFound)
}

func TestProductTypes(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	pg := store.NewPostgres(db)
	cat := catalog.New(pg.Customers(), pg.Products(), pg.ProductTypes(), pg.Warehouses(), pg.Ports())

	fragile, err := cat.ProductTypes.Create(ctx, &models.ProductType{Name: "Fragile"})
	require.NoError(t, err)
	assert.NotZero(t, fragile.ID)

	_, err = cat.ProductTypes.Create(ctx, &models.ProductType{Name: "fragile"})
	require.True(t, apperror.IsConflict(err), "got %v", err)

	_, err = cat.ProductTypes.Create(ctx, &models.ProductType{Name: ""})
	assert.Error(t, err)

	bulk, err := cat.ProductTypes.Create(ctx, &models.ProductType{Name: "Bulk"})
	require.NoError(t, err)
	_, err = cat.ProductTypes.Update(ctx, bulk.ID, func(v *models.ProductType) { v.Name = "FRAGILE" })
	require.True(t, apperror.IsConflict(err), "got %v", err)

	page, err := cat.ProductTypes.List(ctx, models.CatalogFilter{Query: "bul"}, models.PageRequest{Page: 1, PageSize: 20})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Bulk", page.Items[0].Name)

	require.NoError(t, cat.ProductTypes.Delete(ctx, fragile.ID))
	_, err = cat.ProductTypes.Get(ctx, fragile.ID)
	assert.True(t, apperror.IsNotFound(err))

	// the name is free again once the old row is deleted
	_, err = cat.ProductTypes.Create(ctx, &models.ProductType{Name: "Fragile"})
	assert.NoError(t, err)
}

func TestUsers(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	pg := store.NewPostgres(db)

	u, err := pg.CreateUser(ctx, "ann", "$argon2id$stub", models.RoleUser)
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, u.Role)

	_, err = pg.CreateUser(ctx, "ann", "$argon2id$stub", models.RoleUser)
	assert.ErrorIs(t, err, database.ErrUsernameTaken)

	require.NoError(t, pg.SetUserRole(ctx, "ann", models.RoleAdmin))
	got, err := pg.GetUserByUsername(ctx, "ann")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, got.Role)
	assert.Equal(t, "$argon2id$stub", got.PasswordHash)

	_, err = pg.GetUserByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, database.ErrUserNotFound)
}
