package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/object-layer/document-store/internal/cliui"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show the store's size and shape",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg, err := loadStoreConfig()
		if err != nil {
			return err
		}
		store, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		stats, err := store.GetStatistics(ctx)
		if err != nil {
			return fmt.Errorf("getting statistics for %q: %w", cfg.Name, err)
		}
		fmt.Println(cliui.RenderStatistics(cfg.Name, stats))
		return nil
	},
}
