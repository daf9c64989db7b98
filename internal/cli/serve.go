package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/safar/go-logistics/internal/auth"
	"github.com/safar/go-logistics/internal/catalog"
	"github.com/safar/go-logistics/internal/config"
	"github.com/safar/go-logistics/internal/database"
	"github.com/safar/go-logistics/internal/events"
	"github.com/safar/go-logistics/internal/httpapi"
	"github.com/safar/go-logistics/internal/logging"
	"github.com/safar/go-logistics/internal/metrics"
	"github.com/safar/go-logistics/internal/shipping"
	"github.com/safar/go-logistics/internal/store"
	"github.com/safar/go-logistics/internal/tracing"
)

func newServeCmd() *cobra.Command {
	var migrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger, err := logging.New(cfg.Service.Name, cfg.Service.Env, cfg.Service.LogLevel)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()
			zap.ReplaceGlobals(logger)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := serve(ctx, cfg, logger, migrate); err != nil {
				logger.Error("server stopped", zap.Error(err))
				return err
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply pending migrations before serving")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config, logger *zap.Logger, migrate bool) error {
	shutdownTracing, err := tracing.Init(ctx, tracing.Config{
		ServiceName:    cfg.Service.Name,
		ServiceVersion: version,
		Environment:    cfg.Service.Env,
		Endpoint:       cfg.Telemetry.OTLPEndpoint,
		SampleRate:     cfg.Telemetry.SampleRate,
	})
	if err != nil {
		return err
	}
	defer flush(logger, "tracing", shutdownTracing)

	if migrate {
		if err := runMigrations(ctx, cfg, logger, database.Up); err != nil {
			return err
		}
	}

	db, err := database.Open(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	m := metrics.New()
	publisher := newPublisher(cfg.Kafka, m, logger)
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Warn("close event publisher", zap.Error(err))
		}
	}()

	pg := store.NewPostgres(db, store.WithHardDelete(cfg.Shipments.DeletePolicy == config.DeletePolicyHard))

	tokens, err := auth.NewTokenIssuer(cfg.Auth.Secret, cfg.Auth.Algorithm, cfg.Auth.TokenTTL)
	if err != nil {
		return err
	}
	authSvc := auth.NewService(pg, auth.NewPasswordHasher(auth.DefaultHashParams), tokens)
	if cfg.Auth.AdminUsername != "" {
		if err := authSvc.EnsureAdmin(ctx, cfg.Auth.AdminUsername, cfg.Auth.AdminPassword); err != nil {
			return err
		}
		logger.Info("admin account ready", zap.String("username", cfg.Auth.AdminUsername))
	}

	cat := catalog.New(pg.Customers(), pg.Products(), pg.ProductTypes(), pg.Warehouses(), pg.Ports())
	shipments := shipping.NewService(pg, shipping.WithPublisher(publisher), shipping.WithMetrics(m))

	if cfg.Service.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := httpapi.NewRouter(httpapi.Deps{
		Logger:         logger,
		Metrics:        m,
		DB:             pg,
		Auth:           authSvc,
		Shipments:      shipments,
		Customers:      cat.Customers,
		Products:       cat.Products,
		ProductTypes:   cat.ProductTypes,
		Warehouses:     cat.Warehouses,
		Ports:          cat.Ports,
		ServiceName:    cfg.Service.Name,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down", zap.Duration("timeout", cfg.Server.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func newPublisher(cfg config.KafkaConfig, m *metrics.Metrics, logger *zap.Logger) events.Publisher {
	if len(cfg.Brokers) == 0 {
		logger.Info("no kafka brokers configured, shipment events disabled")
		return events.Noop{}
	}
	logger.Info("publishing shipment events", zap.Strings("brokers", cfg.Brokers), zap.String("topic", cfg.Topic))
	w := events.NewKafkaWriter(cfg.Brokers, cfg.Topic)
	return events.NewKafkaPublisher(w, events.DefaultBreakerSettings(), m, logger)
}

func flush(logger *zap.Logger, name string, fn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := fn(ctx); err != nil {
		logger.Warn("flush "+name, zap.Error(err))
	}
}
