package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matchboxjs/matchbox-model/bootstrap"
	"github.com/matchboxjs/matchbox-model/config"
)

var hotReload bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve records over HTTP",
	Long: `Start the record service.

The server will:
  - Load configuration from modelctl.yaml (or --config)
  - Or load configuration from MODEL_* environment variables
  - Open the configured document store (memory, sqlite, badger or remote)
  - Load the record types from schema.dir
  - Serve /records, /types, /health and optionally /metrics

With a config file, edits to it and SIGHUP reload the record types and
the log level.

Examples:
  modelctl serve
  modelctl serve --config /etc/modelctl/config.yaml
  MODEL_STORAGE_DRIVER=sqlite MODEL_SCHEMA_DIR=./types modelctl serve`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().BoolVar(&hotReload, "hot-reload", true, "reload types when the config file changes")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	app, err := bootstrap.New(cfg, bootstrap.Options{Version: version})
	if err != nil {
		return fmt.Errorf("error initializing: %w", err)
	}

	if _, statErr := os.Stat(cfgFile); statErr == nil && hotReload && schemaDir == "" {
		holder, err := config.NewHolder(cfgFile, app.Logger)
		if err != nil {
			app.Shutdown()
			return err
		}
		if err := app.Watch(holder); err != nil {
			app.Logger.Warn().Err(err).Msg("config hot reload disabled")
		}
	}

	// Run (blocks until shutdown)
	return app.Run()
}
