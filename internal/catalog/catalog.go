// Package catalog manages the reference entities shipments point at:
// customers, products, product types, warehouses and ports.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/safar/go-logistics/internal/apperror"
	"github.com/safar/go-logistics/internal/database"
	"github.com/safar/go-logistics/internal/logging"
	"github.com/safar/go-logistics/internal/models"
)

type Repository[T any] interface {
	Create(ctx context.Context, v *T) (*T, error)
	Get(ctx context.Context, id int64) (*T, error)
	List(ctx context.Context, f models.CatalogFilter, req models.PageRequest) (*models.Page[T], error)
	Update(ctx context.Context, v *T) (*T, error)
	// CountReferences counts non-deleted shipments pointing at id.
	CountReferences(ctx context.Context, id int64) (int64, error)
	// Delete soft-deletes id unless it is still referenced, in which case it
	// returns database.ErrStillReferenced.
	Delete(ctx context.Context, id int64) error
}

// Service applies validation and the referential delete guard for one entity kind.
type Service[T any] struct {
	resource string
	repo     Repository[T]
	validate *validator.Validate
}

func NewService[T any](resource string, repo Repository[T]) *Service[T] {
	return &Service[T]{resource: resource, repo: repo, validate: newValidator()}
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func (s *Service[T]) Create(ctx context.Context, v *T) (*T, error) {
	if err := s.check(v); err != nil {
		return nil, err
	}
	created, err := s.repo.Create(ctx, v)
	if err != nil {
		return nil, s.mapErr(err, 0)
	}
	logging.FromContext(ctx).Info(s.resource+" created")
	return created, nil
}

func (s *Service[T]) Get(ctx context.Context, id int64) (*T, error) {
	v, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, s.mapErr(err, id)
	}
	return v, nil
}

func (s *Service[T]) List(ctx context.Context, f models.CatalogFilter, req models.PageRequest) (*models.Page[T], error) {
	if err := req.Validate(); err != nil {
		return nil, apperror.Validation(err.Error())
	}
	page, err := s.repo.List(ctx, f, req)
	if err != nil {
		return nil, apperror.Internal(fmt.Errorf("list %s: %w", s.resource, err))
	}
	return page, nil
}

// Update loads id, lets apply mutate it, then validates and stores the result.
func (s *Service[T]) Update(ctx context.Context, id int64, apply func(*T)) (*T, error) {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, s.mapErr(err, id)
	}
	apply(current)
	if err := s.check(current); err != nil {
		return nil, err
	}
	updated, err := s.repo.Update(ctx, current)
	if err != nil {
		return nil, s.mapErr(err, id)
	}
	return updated, nil
}

func (s *Service[T]) Delete(ctx context.Context, id int64) error {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return s.mapErr(err, id)
	}

	n, err := s.repo.CountReferences(ctx, id)
	if err != nil {
		return apperror.Internal(fmt.Errorf("count %s references: %w", s.resource, err))
	}
	if n > 0 {
		return s.referenced(id, n)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, database.ErrStillReferenced) {
			return s.referenced(id, 0)
		}
		return s.mapErr(err, id)
	}
	logging.FromContext(ctx).Info(s.resource+" deleted", zap.Int64("id", id))
	return nil
}

func (s *Service[T]) referenced(id, n int64) error {
	appErr := apperror.Conflictf("%s %d is referenced by active shipments", s.resource, id)
	if n > 0 {
		appErr.WithDetail("shipments", fmt.Sprint(n))
	}
	return appErr
}

func (s *Service[T]) check(v *T) error {
	if err := s.validate.Struct(v); err != nil {
		if appErr, ok := apperror.FromValidator(err); ok {
			return appErr
		}
		return apperror.BadRequest(err.Error())
	}
	return nil
}

func (s *Service[T]) mapErr(err error, id int64) error {
	switch {
	case errors.Is(err, database.ErrCustomerNotFound),
		errors.Is(err, database.ErrProductNotFound),
		errors.Is(err, database.ErrWarehouseNotFound),
		errors.Is(err, database.ErrPortNotFound),
		errors.Is(err, database.ErrProductTypeNotFound):
		return apperror.NotFound(s.resource, id)
	case errors.Is(err, database.ErrEmailTaken):
		return apperror.Conflict("email already registered").WithDetail("field", "email")
	case errors.Is(err, database.ErrProductTypeTaken):
		return apperror.Conflict("product type name already registered").WithDetail("field", "name")
	case errors.Is(err, database.ErrStillReferenced):
		return s.referenced(id, 0)
	}
	return apperror.Internal(fmt.Errorf("%s %d: %w", s.resource, id, err))
}

// Catalog groups the reference services.
type Catalog struct {
	Customers    *Service[models.Customer]
	Products     *Service[models.Product]
	ProductTypes *Service[models.ProductType]
	Warehouses   *Service[models.Warehouse]
	Ports        *Service[models.Port]
}

func New(
	customers Repository[models.Customer],
	products Repository[models.Product],
	productTypes Repository[models.ProductType],
	warehouses Repository[models.Warehouse],
	ports Repository[models.Port],
) *Catalog {
	return &Catalog{
		Customers:    NewService("customer", customers),
		Products:     NewService("product", products),
		ProductTypes: NewService("product type", productTypes),
		Warehouses:   NewService("warehouse", warehouses),
		Ports:        NewService("port", ports),
	}
}
