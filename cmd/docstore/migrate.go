package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Reconcile the store's persisted schema with its declared config",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMigrate(cmd.Context())
	},
}

func runMigrate(ctx context.Context) error {
	cfg, err := loadStoreConfig()
	if err != nil {
		return err
	}
	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.EnsureInitialized(ctx); err != nil {
		return fmt.Errorf("migrating %q: %w", cfg.Name, err)
	}
	fmt.Printf("%s is up to date\n", cfg.Name)
	return nil
}
