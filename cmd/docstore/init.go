package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/object-layer/document-store/internal/cliui"
	"github.com/object-layer/document-store/internal/storeconfig"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Interactively declare a new store's config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := cliui.RunInitWizard()
		if err != nil {
			return err
		}
		path := configPath()
		if err := storeconfig.Save(path, cfg); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", path)
		return nil
	},
}
