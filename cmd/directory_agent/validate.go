package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/jonathan/company-directory/internal/schemas"
	"github.com/jonathan/company-directory/internal/store"
)

var validateCmd = &cobra.Command{
	Use:   "validate [FILE...]",
	Short: "Validate dataset files against the dataset schema",
	Long: `Validates each dataset file against the embedded JSON Schema. Without
arguments the raw and deduplicated files of the data directory are checked;
missing files are skipped.`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	ok := color.New(color.FgGreen)
	fail := color.New(color.FgRed)
	if noColor {
		ok.DisableColor()
		fail.DisableColor()
	}

	paths := args
	if len(paths) == 0 {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		fs := store.NewFileStore(cfg.FileOptions(), newLogger(cfg))
		for _, path := range []string{fs.Path(store.DocRaw), fs.Path(store.DocDeduplicated)} {
			if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
				continue
			}
			paths = append(paths, path)
		}
		if len(paths) == 0 {
			fmt.Fprintln(out, "No dataset files found")
			return nil
		}
	}

	failed := 0
	for _, path := range paths {
		if err := schemas.ValidateDatasetFile(path); err != nil {
			failed++
			fail.Fprintf(out, "✗ %s\n", path) //nolint:errcheck
			fmt.Fprintf(out, "  %v\n", err)
			continue
		}
		ok.Fprintf(out, "✓ %s\n", path) //nolint:errcheck
	}

	if failed > 0 {
		return fmt.Errorf("validation failed for %d of %d files", failed, len(paths))
	}
	return nil
}
