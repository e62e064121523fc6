package main

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/matchboxjs/matchbox-model/core/registry"
	"github.com/matchboxjs/matchbox-model/core/schema"
)

var validateCmd = &cobra.Command{
	Use:   "validate [dir]",
	Short: "Validate record type definitions",
	Long: `Validate the YAML record type definitions in a directory.

Checks:
  - YAML syntax is valid
  - Every field has a known type and a default its codec accepts
  - Slices only name declared fields
  - extends and record targets resolve, without cycles
  - No type is defined twice

The directory is the argument, --schema, or schema.dir from the config.

Examples:
  modelctl validate ./types
  modelctl validate --config /etc/modelctl/config.yaml`,
	Args: cobra.MaximumNArgs(1),
	RunE: runValidate,
}

var validateStrict bool

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().BoolVar(&validateStrict, "strict", false, "load every type with strict field handling")
}

func runValidate(cmd *cobra.Command, args []string) error {
	dir, err := definitionDir(args)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Validating %s...\n\n", dir)

	defs, err := schema.ParseDir(dir)
	if err != nil {
		fmt.Fprintf(out, "  %s Definitions parse\n", crossMark)
		return err
	}
	fmt.Fprintf(out, "  %s Definitions parse (%d files)\n", checkMark, len(defs))

	reg := registry.New()
	if err := reg.Load(defs, registry.Options{Strict: validateStrict, Logger: zerolog.Nop()}); err != nil {
		fmt.Fprintf(out, "  %s Types resolve\n", crossMark)
		return err
	}
	fmt.Fprintf(out, "  %s Types resolve\n", checkMark)

	for _, t := range reg.List() {
		line := t.TypeName()
		if p := t.Parent(); p != nil {
			line += " extends " + p.TypeName()
		}
		fmt.Fprintf(out, "  %s %s: %d fields", checkMark, line, len(t.Fields()))
		if slices := t.Slices(); len(slices) > 0 {
			fmt.Fprintf(out, ", slices %s", strings.Join(slices, ", "))
		}
		fmt.Fprintln(out)
	}

	fmt.Fprintf(out, "\n%d types valid\n", reg.Len())
	return nil
}

// definitionDir picks the type definition directory: the argument first,
// then the config.
func definitionDir(args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	cfg, err := loadConfig()
	if err != nil {
		return "", fmt.Errorf("load config: %w", err)
	}
	if cfg.Schema.Dir == "" {
		return "", fmt.Errorf("no type definition directory: pass one, set --schema or schema.dir")
	}
	return cfg.Schema.Dir, nil
}

const (
	checkMark = "\033[32m✓\033[0m"
	crossMark = "\033[31m✗\033[0m"
)
