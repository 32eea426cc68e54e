package main

import (
	"github.com/spf13/cobra"

	"github.com/jonathan/company-directory/internal/pipeline"
	"github.com/jonathan/company-directory/internal/reconcile"
	"github.com/jonathan/company-directory/internal/store"
	"github.com/jonathan/company-directory/internal/types"
)

var dedupeDryRun bool

var dedupeCmd = &cobra.Command{
	Use:   "dedupe",
	Short: "Merge the raw dataset by company name into the canonical dataset",
	Long: `Groups raw records by normalized name, keeps one record per company and writes
the canonical dataset, backing up the previous one first. With --dry-run the
merges are printed and nothing is written.`,
	Args: cobra.NoArgs,
	RunE: runDedupe,
}

func init() {
	dedupeCmd.Flags().BoolVar(&dedupeDryRun, "dry-run", false, "Print the merges without writing")
	rootCmd.AddCommand(dedupeCmd)
}

func runDedupe(cmd *cobra.Command, _ []string) error {
	ctx, cancel := signalContext(cmd)
	defer cancel()

	a, err := newApp(ctx, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer a.Close()

	if !dedupeDryRun {
		_, err = a.runStages(ctx, pipeline.Options{Only: []pipeline.Stage{pipeline.StageDedupe}})
		return err
	}

	records, err := a.store.Load(ctx, store.DocRaw)
	if err != nil {
		return err
	}
	opts, err := a.cfg.MergeOptions()
	if err != nil {
		return err
	}
	merged, result := reconcile.Merge(records, opts)
	a.printer.PrintMergeDecisions(result)
	a.printer.PrintStats("DRY RUN", types.ComputeStats(merged))
	return nil
}
