package cli

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/safar/go-logistics/internal/config"
	"github.com/safar/go-logistics/internal/database"
	"github.com/safar/go-logistics/internal/logging"
	"github.com/safar/go-logistics/migrations"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down]",
		Short:     "Apply or revert the embedded schema migrations",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{string(database.Up), string(database.Down)},
		RunE: func(cmd *cobra.Command, args []string) error {
			direction := database.Up
			if len(args) == 1 {
				d, err := database.ParseDirection(args[0])
				if err != nil {
					return err
				}
				direction = d
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger, err := logging.New(cfg.Service.Name, cfg.Service.Env, cfg.Service.LogLevel)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			return runMigrations(cmd.Context(), cfg, logger, direction)
		},
	}
}

func runMigrations(ctx context.Context, cfg *config.Config, logger *zap.Logger, direction database.Direction) error {
	db, err := database.Open(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	applied, err := database.Migrate(ctx, db, migrations.FS, direction)
	for _, name := range applied {
		logger.Info("migration applied", zap.String("file", name), zap.String("direction", string(direction)))
	}
	if err != nil {
		return err
	}
	logger.Info("migrations complete", zap.Int("count", len(applied)))
	return nil
}
