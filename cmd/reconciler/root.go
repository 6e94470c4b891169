package main

import (
	"context"
	"fmt"

	"github.com/membreg/reconciler/internal/config"
	"github.com/membreg/reconciler/internal/store"
	"github.com/membreg/reconciler/pkg/log"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var rootCmd = &cobra.Command{
	Use:   "reconciler",
	Short: "Confirm candidate registrations against the external registry",
}

func init() {
	rootCmd.AddCommand(NewCmdRun())
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(NewCmdStatus())
}

// initLogging installs the global zap logger. The returned function flushes and restores it.
func initLogging(cfg *config.Config) func() {
	logger := log.InitLog(log.ParseLevel(cfg.Service.LogLevel))
	undo := zap.ReplaceGlobals(logger)

	return func() {
		_ = logger.Sync()
		undo()
	}
}

// openStore connects to the configured database and checks it answers before any work starts.
func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	db, err := store.InitDB(cfg)
	if err != nil {
		return nil, fmt.Errorf("initializing data store: %w", err)
	}

	s := store.NewStore(db)
	if err := s.Ping(ctx); err != nil {
		_ = s.Close()
		if store.IsConnectivityError(err) {
			return nil, fmt.Errorf("database unreachable: %w", err)
		}
		return nil, fmt.Errorf("checking data store: %w", err)
	}

	return s, nil
}
