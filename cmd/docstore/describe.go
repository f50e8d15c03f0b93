package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/object-layer/document-store/internal/cliui"
)

var describeCmd = &cobra.Command{
	Use:   "describe",
	Short: "Render a Markdown summary of the store's declared collections and indexes",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadStoreConfig()
		if err != nil {
			return err
		}
		out, err := cliui.RenderDescription(cfg)
		if err != nil {
			return err
		}
		fmt.Print(out)
		return nil
	},
}
