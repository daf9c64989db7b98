// Package httpapi exposes the logistics services over a gin JSON API.
package httpapi

import (
	"context"
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/safar/go-logistics/internal/apperror"
	"github.com/safar/go-logistics/internal/auth"
	"github.com/safar/go-logistics/internal/models"
	"github.com/safar/go-logistics/internal/pricing"
	"github.com/safar/go-logistics/internal/shipping"
)

type Authenticator interface {
	Register(ctx context.Context, username, password string) (*models.User, error)
	Login(ctx context.Context, username, password string) (*auth.Token, error)
	Authenticate(raw string) (auth.Principal, error)
}

type ShipmentService interface {
	Create(ctx context.Context, req shipping.CreateRequest) (*models.Shipment, error)
	Update(ctx context.Context, id int64, req shipping.UpdateRequest) (*models.Shipment, error)
	Delete(ctx context.Context, id int64) error
	Get(ctx context.Context, id int64) (*models.Shipment, error)
	List(ctx context.Context, f models.ShipmentFilter, req models.PageRequest) (*models.Page[models.Shipment], error)
	Quote(ctx context.Context, req shipping.QuoteRequest) (pricing.Breakdown, error)
}

// CatalogService is implemented by catalog.Service for each reference entity.
type CatalogService[T any] interface {
	Create(ctx context.Context, v *T) (*T, error)
	Get(ctx context.Context, id int64) (*T, error)
	List(ctx context.Context, f models.CatalogFilter, req models.PageRequest) (*models.Page[T], error)
	Update(ctx context.Context, id int64, apply func(*T)) (*T, error)
	Delete(ctx context.Context, id int64) error
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type Deps struct {
	Logger  *zap.Logger
	Metrics MetricsRecorder
	DB      Pinger

	Auth         Authenticator
	Shipments    ShipmentService
	Customers    CatalogService[models.Customer]
	Products     CatalogService[models.Product]
	ProductTypes CatalogService[models.ProductType]
	Warehouses   CatalogService[models.Warehouse]
	Ports        CatalogService[models.Port]

	ServiceName    string
	AllowedOrigins []string
}

func NewRouter(d Deps) *gin.Engine {
	registerValidation()
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}

	r := gin.New()
	r.Use(Recovery(d.Logger))
	r.Use(RequestID())
	r.Use(cors.New(corsConfig(d.AllowedOrigins)))
	r.Use(Tracing(d.ServiceName))
	r.Use(AccessLog(d.Logger))
	r.Use(Metrics(d.Metrics))

	r.NoRoute(func(c *gin.Context) {
		abortWithError(c, apperror.New(apperror.CodeNotFound, "route not found", http.StatusNotFound))
	})

	v1 := r.Group("/api/v1")
	v1.GET("/health", health(d.DB))
	if d.Metrics != nil {
		v1.GET("/metrics", gin.WrapH(d.Metrics.Handler()))
	}

	authRoutes := v1.Group("/auth")
	authRoutes.POST("/register", register(d.Auth))
	authRoutes.POST("/token", issueToken(d.Auth))

	api := v1.Group("", Authenticate(d.Auth))
	admin := RequireAdmin()

	registerCatalog(api, "/customers", d.Customers, access{remove: admin}, newCustomer, patchCustomer)
	registerCatalog(api, "/products", d.Products, access{}, newProduct, patchProduct)
	registerCatalog(api, "/product-types", d.ProductTypes, access{write: admin, remove: admin}, newProductType, patchProductType)
	registerCatalog(api, "/warehouses", d.Warehouses, access{write: admin, remove: admin}, newWarehouse, patchWarehouse)
	registerCatalog(api, "/ports", d.Ports, access{}, newPort, patchPort)

	sh := &shipmentHandler{svc: d.Shipments}
	shipments := api.Group("/shipments")
	shipments.POST("", sh.create)
	shipments.POST("/quote", sh.quote)
	shipments.GET("", sh.list)
	shipments.GET("/:id", sh.get)
	shipments.PATCH("/:id", sh.update)
	shipments.DELETE("/:id", admin, sh.delete)

	return r
}

// corsConfig allows credentials only for an explicit origin list; an empty
// list or "*" opens the API to any origin.
func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", HeaderRequestID},
		ExposeHeaders: []string{"Content-Length", HeaderRequestID},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}

func health(db Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := gin.H{"status": "ok"}
		if db == nil {
			c.JSON(http.StatusOK, status)
			return
		}
		if err := db.Ping(c.Request.Context()); err != nil {
			status["status"] = "degraded"
			status["database"] = "down"
			c.JSON(http.StatusServiceUnavailable, status)
			return
		}
		status["database"] = "up"
		c.JSON(http.StatusOK, status)
	}
}
