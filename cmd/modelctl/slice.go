package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/matchboxjs/matchbox-model/core/model"
	"github.com/matchboxjs/matchbox-model/core/registry"
)

var sliceCmd = &cobra.Command{
	Use:   "slice <type> <file>",
	Short: "Restore a JSON record and print it through a slice",
	Long: `Restore a JSON document into a record of the given type and print
the record projected through a slice. Use - to read the document from
stdin.

Examples:
  modelctl slice user alice.json
  modelctl slice user alice.json --slice public
  cat alice.json | modelctl slice user - --validate`,
	Args: cobra.ExactArgs(2),
	RunE: runSlice,
}

var (
	sliceName     string
	sliceValidate bool
)

func init() {
	rootCmd.AddCommand(sliceCmd)

	sliceCmd.Flags().StringVarP(&sliceName, "slice", "n", model.DefaultSlice, "slice to project through")
	sliceCmd.Flags().BoolVar(&sliceValidate, "validate", false, "fail when the record has invalid fields")
}

func runSlice(cmd *cobra.Command, args []string) error {
	typeName, file := args[0], args[1]

	dir, err := definitionDir(nil)
	if err != nil {
		return err
	}
	reg := registry.New()
	if err := reg.LoadDir(dir, registry.Options{Logger: zerolog.Nop()}); err != nil {
		return fmt.Errorf("load types: %w", err)
	}
	typ, ok := reg.Get(typeName)
	if !ok {
		return fmt.Errorf("unknown record type %q", typeName)
	}

	data, err := readDocument(cmd, file)
	if err != nil {
		return err
	}

	rec := typ.NewRecord()
	if err := rec.Restore(data); err != nil {
		return err
	}

	if sliceValidate && !rec.Validate() {
		errs := rec.Errors()
		fields := make([]string, 0, len(errs))
		for field := range errs {
			fields = append(fields, field)
		}
		sort.Strings(fields)
		for _, field := range fields {
			fmt.Fprintf(cmd.ErrOrStderr(), "  %s %s: %s\n", crossMark, field, errs[field])
		}
		return fmt.Errorf("%s: %d invalid fields", typeName, len(fields))
	}

	obj, err := rec.Slice(sliceName)
	if err != nil {
		return err
	}
	out, err := json.MarshalIndent(obj, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}

func readDocument(cmd *cobra.Command, file string) (json.RawMessage, error) {
	var data []byte
	var err error
	if file == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(file)
	}
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	return json.RawMessage(data), nil
}
