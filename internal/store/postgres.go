package store

import (
	"context"
	"database/sql"

	"github.com/safar/go-logistics/internal/database"
	"github.com/safar/go-logistics/internal/models"
)

// Postgres adapts the package functions to the service-facing interfaces.
// Multi-statement writes run inside retried transactions.
type Postgres struct {
	db         *sql.DB
	txOpts     database.TxOptions
	hardDelete bool
}

type Option func(*Postgres)

// WithHardDelete makes DeleteShipment remove rows instead of marking them.
func WithHardDelete(enabled bool) Option {
	return func(p *Postgres) { p.hardDelete = enabled }
}

func WithTxOptions(opts database.TxOptions) Option {
	return func(p *Postgres) { p.txOpts = opts }
}

func NewPostgres(db *sql.DB, opts ...Option) *Postgres {
	p := &Postgres{db: db, txOpts: database.DefaultTxOptions()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Postgres) DB() *sql.DB { return p.db }

func (p *Postgres) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

func (p *Postgres) FindCustomer(ctx context.Context, id int64) (*models.Customer, error) {
	return GetCustomer(ctx, p.db, id)
}

func (p *Postgres) FindProduct(ctx context.Context, id int64) (*models.Product, error) {
	return GetProduct(ctx, p.db, id)
}

func (p *Postgres) FindWarehouse(ctx context.Context, id int64) (*models.Warehouse, error) {
	return GetWarehouse(ctx, p.db, id)
}

func (p *Postgres) FindPort(ctx context.Context, id int64) (*models.Port, error) {
	return GetPort(ctx, p.db, id)
}

func (p *Postgres) InsertShipment(ctx context.Context, s *models.Shipment) error {
	return database.WithRetry(ctx, p.db, p.txOpts, func(tx *sql.Tx) error {
		return InsertShipment(ctx, tx, s)
	})
}

func (p *Postgres) UpdateShipment(ctx context.Context, s *models.Shipment) error {
	version := s.Version
	return database.WithRetry(ctx, p.db, p.txOpts, func(tx *sql.Tx) error {
		s.Version = version
		return UpdateShipment(ctx, tx, s)
	})
}

func (p *Postgres) DeleteShipment(ctx context.Context, id int64) error {
	if !p.hardDelete {
		return SoftDeleteShipment(ctx, p.db, id)
	}
	return database.WithRetry(ctx, p.db, p.txOpts, func(tx *sql.Tx) error {
		return HardDeleteShipment(ctx, tx, id)
	})
}

func (p *Postgres) GetShipment(ctx context.Context, id int64) (*models.Shipment, error) {
	return GetShipment(ctx, p.db, id)
}

func (p *Postgres) QueryShipments(ctx context.Context, f models.ShipmentFilter, req models.PageRequest) (*models.Page[models.Shipment], error) {
	return QueryShipments(ctx, p.db, f, req)
}

func (p *Postgres) CreateUser(ctx context.Context, username, passwordHash string, role models.Role) (*models.User, error) {
	return CreateUser(ctx, p.db, username, passwordHash, role)
}

func (p *Postgres) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return GetUserByUsername(ctx, p.db, username)
}

func (p *Postgres) SetUserRole(ctx context.Context, username string, role models.Role) error {
	return SetUserRole(ctx, p.db, username, role)
}

func (p *Postgres) Customers() *Repository[models.Customer] {
	return &Repository[models.Customer]{
		db: p.db, txOpts: p.txOpts,
		create: CreateCustomer, get: GetCustomer, list: ListCustomers,
		update: UpdateCustomer, count: CountCustomerShipments, remove: DeleteCustomer,
	}
}

func (p *Postgres) Products() *Repository[models.Product] {
	return &Repository[models.Product]{
		db: p.db, txOpts: p.txOpts,
		create: CreateProduct, get: GetProduct, list: ListProducts,
		update: UpdateProduct, count: CountProductShipments, remove: DeleteProduct,
	}
}

func (p *Postgres) Warehouses() *Repository[models.Warehouse] {
	return &Repository[models.Warehouse]{
		db: p.db, txOpts: p.txOpts,
		create: CreateWarehouse, get: GetWarehouse, list: ListWarehouses,
		update: UpdateWarehouse, count: CountWarehouseShipments, remove: DeleteWarehouse,
	}
}

func (p *Postgres) ProductTypes() *Repository[models.ProductType] {
	return &Repository[models.ProductType]{
		db: p.db, txOpts: p.txOpts,
		create: CreateProductType, get: GetProductType, list: ListProductTypes,
		update: UpdateProductType, count: CountProductTypeReferences, remove: DeleteProductType,
	}
}

func (p *Postgres) Ports() *Repository[models.Port] {
	return &Repository[models.Port]{
		db: p.db, txOpts: p.txOpts,
		create: CreatePort, get: GetPort, list: ListPorts,
		update: UpdatePort, count: CountPortShipments, remove: DeletePort,
	}
}

// Repository binds one reference entity's functions to a connection pool.
// Deletes run in their own retried transaction.
type Repository[T any] struct {
	db     *sql.DB
	txOpts database.TxOptions
	create func(context.Context, database.Querier, *T) (*T, error)
	get    func(context.Context, database.Querier, int64) (*T, error)
	list   func(context.Context, database.Querier, models.CatalogFilter, models.PageRequest) (*models.Page[T], error)
	update func(context.Context, database.Querier, *T) (*T, error)
	count  func(context.Context, database.Querier, int64) (int64, error)
	remove func(context.Context, *sql.Tx, int64) error
}

func (r *Repository[T]) Create(ctx context.Context, v *T) (*T, error) { return r.create(ctx, r.db, v) }

func (r *Repository[T]) Get(ctx context.Context, id int64) (*T, error) { return r.get(ctx, r.db, id) }

func (r *Repository[T]) List(ctx context.Context, f models.CatalogFilter, req models.PageRequest) (*models.Page[T], error) {
	return r.list(ctx, r.db, f, req)
}

func (r *Repository[T]) Update(ctx context.Context, v *T) (*T, error) { return r.update(ctx, r.db, v) }

func (r *Repository[T]) CountReferences(ctx context.Context, id int64) (int64, error) {
	return r.count(ctx, r.db, id)
}

func (r *Repository[T]) Delete(ctx context.Context, id int64) error {
	return database.WithRetry(ctx, r.db, r.txOpts, func(tx *sql.Tx) error {
		return r.remove(ctx, tx, id)
	})
}
