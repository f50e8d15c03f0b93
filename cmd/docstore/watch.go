package main

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/object-layer/document-store/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the config file and re-run migrate whenever it changes",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configPath()
		logger := log.Default()
		w, err := watch.New(path, func(ctx context.Context) error {
			return runMigrate(ctx)
		}, logger)
		if err != nil {
			return err
		}
		fmt.Printf("watching %s for changes (ctrl-c to stop)\n", path)
		return w.Run(cmd.Context())
	},
}
