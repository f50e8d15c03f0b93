package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/object-layer/document-store/internal/purge"
)

var purgeBefore string

func init() {
	purgeCmd.Flags().StringVar(&purgeBefore, "before", "30 days ago", "purge collections removed at least this long ago")
}

var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Permanently drop collections that have been removed from the config for a while",
	Long: `purge reads which collections are currently tombstoned as removed, tracks how
long each has been tombstoned in a local ledger file (schema records carry no
removal timestamp), and only actually drops them once every tombstoned
collection has aged past --before. There is no partial/per-collection purge:
the underlying RemoveCollectionsMarkedAsRemoved operation is store-wide.`,
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

		removed, err := store.RemovedCollections(ctx)
		if err != nil {
			return fmt.Errorf("listing removed collections: %w", err)
		}
		if len(removed) == 0 {
			fmt.Println("no collections are currently marked as removed")
			return nil
		}

		ledgerPath := configPath() + ".purge-ledger.json"
		ledger, err := purge.LoadLedger(ledgerPath)
		if err != nil {
			return err
		}
		now := time.Now()
		ledger = ledger.Observe(removed, now)
		if err := ledger.Save(ledgerPath); err != nil {
			return err
		}

		cutoff, err := purge.ParseBefore(purgeBefore, now)
		if err != nil {
			return err
		}
		due := ledger.Due(removed, cutoff)

		if !purge.AllDue(removed, due) {
			fmt.Printf("%d/%d removed collection(s) have aged past %q; waiting for the rest\n", len(due), len(removed), purgeBefore)
			return nil
		}

		n, err := store.RemoveCollectionsMarkedAsRemoved(ctx)
		if err != nil {
			return fmt.Errorf("purging: %w", err)
		}
		for _, name := range removed {
			delete(ledger, name)
		}
		if err := ledger.Save(ledgerPath); err != nil {
			return err
		}
		fmt.Printf("purged %d collection(s) from %s\n", n, filepath.Base(configPath()))
		return nil
	},
}
