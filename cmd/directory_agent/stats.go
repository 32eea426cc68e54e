package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonathan/company-directory/internal/store"
	"github.com/jonathan/company-directory/internal/types"
)

var statsDocument string

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print dataset counts",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().StringVar(&statsDocument, "doc", string(store.DocDeduplicated), "Document to summarize (raw or deduplicated)")
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, _ []string) error {
	doc, err := store.ParseDocument(statsDocument)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(cmd)
	defer cancel()

	a, err := newApp(ctx, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer a.Close()

	records, err := a.store.Load(ctx, doc)
	if err != nil {
		return err
	}
	a.printer.PrintStats(strings.ToUpper(string(doc))+" DATASET", types.ComputeStats(records))
	return nil
}
