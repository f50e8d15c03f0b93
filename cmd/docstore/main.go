// Command docstore is a thin CLI ops surface around the document store
// facade: init/migrate/stats/describe/watch/purge. Besides the facade and
// internal/cliui it uses the internal kvs backends, storeconfig, purge and
// watch packages to open stores and load their declared schema.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/object-layer/document-store/internal/kvs"
	"github.com/object-layer/document-store/internal/kvs/memkvs"
	"github.com/object-layer/document-store/internal/kvs/sqlstore"
	"github.com/object-layer/document-store/internal/storeconfig"

	docstore "github.com/object-layer/document-store"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "docstore",
	Short: "Operate a document store's declared schema and backend",
	Long: `docstore manages the schema and backend of a document store declared in a
storeconfig file (TOML by default, YAML with a .yaml/.yml extension).`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "store.toml", "path to the store's config file")
	viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))

	registerBackends()

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(describeCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(purgeCmd)
}

// registerBackends wires the concrete kvs.Store backends to their URL
// schemes. Kept out of internal/kvs itself so that package stays free of any
// SQL driver dependency (internal/kvs/openurl.go).
func registerBackends() {
	kvs.RegisterBackend("sqlite", func(ctx context.Context, dsn string) (kvs.Store, error) {
		return sqlstore.OpenSQLite(ctx, dsn)
	})
	kvs.RegisterBackend("mysql", func(ctx context.Context, dsn string) (kvs.Store, error) {
		return sqlstore.OpenMySQL(ctx, dsn)
	})
	kvs.RegisterBackend("dolt", func(ctx context.Context, dsn string) (kvs.Store, error) {
		return sqlstore.OpenDolt(ctx, dsn)
	})
	kvs.RegisterBackend("memory", func(ctx context.Context, dsn string) (kvs.Store, error) {
		return memkvs.New(), nil
	})
}

// configPath returns the --config value, bound through viper so a
// GT-style environment variable or future config-file-of-configs could
// override it without touching the flag definition.
func configPath() string {
	return viper.GetString("config")
}

func loadStoreConfig() (*storeconfig.StoreConfig, error) {
	return storeconfig.Load(configPath())
}

// openStore opens cfg's backend and the document store facade over it. The
// caller is responsible for closing the returned store.
func openStore(ctx context.Context, cfg *storeconfig.StoreConfig) (*docstore.Store, error) {
	kv, err := kvs.OpenURL(ctx, cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("opening backend %q: %w", cfg.URL, err)
	}
	collections := storeconfig.Collections(cfg)
	store := docstore.Open(cfg.Name, kv, docstore.WithCollections(collections...))
	return store, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
