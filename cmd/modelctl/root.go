package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matchboxjs/matchbox-model/config"
)

var (
	// Global flags
	cfgFile   string
	schemaDir string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "modelctl",
	Short: "Schema-governed records: validate type definitions, project records, serve them",
	Long: `modelctl works with record types defined in YAML.

Type definitions:
  modelctl validate             # Check every definition in the schema directory
  modelctl slice note n.json    # Print a record through one of its slices

Service:
  modelctl serve                # Serve records over HTTP`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "modelctl.yaml", "config file path")
	rootCmd.PersistentFlags().StringVarP(&schemaDir, "schema", "s", "", "type definition directory (overrides schema.dir)")
}

// loadConfig reads the config file, or the environment when there is no
// file, and applies the --schema flag.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadWithFallback(cfgFile)
	if err != nil {
		return nil, err
	}
	if schemaDir != "" {
		cfg.Schema.Dir = schemaDir
	}
	return cfg, nil
}
