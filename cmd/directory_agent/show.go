package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonathan/company-directory/internal/reconcile"
	"github.com/jonathan/company-directory/internal/store"
)

var showCmd = &cobra.Command{
	Use:   "show NAME",
	Short: "Print a company of the canonical dataset",
	Long:  `Looks a company up by normalized name, so "Acme, Inc." and "acme inc" find the same record.`,
	Args:  cobra.MinimumNArgs(1),
	RunE:  runShow,
}

func init() {
	rootCmd.AddCommand(showCmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	name := strings.Join(args, " ")
	key := reconcile.NormalizeName(name)
	if key == "" {
		return fmt.Errorf("name %q has no comparable characters", name)
	}

	ctx, cancel := signalContext(cmd)
	defer cancel()

	a, err := newApp(ctx, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer a.Close()

	records, err := a.store.Load(ctx, store.DocDeduplicated)
	if err != nil {
		return err
	}
	for i := range records {
		if reconcile.NormalizeName(records[i].Name) == key {
			a.printer.PrintCompany(&records[i])
			return nil
		}
	}
	return fmt.Errorf("company not found: %s", name)
}
