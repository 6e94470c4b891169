package main

import (
	"fmt"

	"github.com/membreg/reconciler/internal/config"
	"github.com/membreg/reconciler/internal/store"
	"github.com/membreg/reconciler/pkg/migrations"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var migrateCmd = &cobra.Command{
	Use:          "migrate",
	Short:        "Migrate the db",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.New()
		if err != nil {
			return fmt.Errorf("reading configuration: %w", err)
		}

		undo := initLogging(cfg)
		defer undo()

		zap.S().Info("Starting migration")
		defer zap.S().Info("Db migrated")
		zap.S().Infof("Using config: %s", cfg)

		zap.S().Info("Initializing data store")
		db, err := store.InitDB(cfg)
		if err != nil {
			return fmt.Errorf("initializing data store: %w", err)
		}

		s := store.NewStore(db)
		defer s.Close()

		// the sql migrations target postgres; other databases get the schema from the model
		if cfg.Database.Type != "pgsql" {
			return s.InitialMigration(cmd.Context())
		}

		if err := migrations.MigrateStore(db, cfg); err != nil {
			return fmt.Errorf("running migrations: %w", err)
		}

		return nil
	},
}
