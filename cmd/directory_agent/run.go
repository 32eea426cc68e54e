package main

import (
	"github.com/spf13/cobra"

	"github.com/jonathan/company-directory/internal/pipeline"
)

var (
	runSkipDirectory bool
	runSkipEnrich    bool
	runSkipDiscover  bool
	runURLs          []string
	runFile          string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full reconciliation pipeline",
	Long: `Runs every stage in order: directory refresh, enrichment, discovery, URL
ingestion and name deduplication. A failing adapter stage is reported and the
run continues; a corrupt dataset aborts the run.`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

func init() {
	runCmd.Flags().BoolVar(&runSkipDirectory, "skip-directory", false, "Skip the directory refresh")
	runCmd.Flags().BoolVar(&runSkipEnrich, "skip-enrich", false, "Skip enrichment of unknown mentions")
	runCmd.Flags().BoolVar(&runSkipDiscover, "skip-discover", false, "Skip similar-page discovery")
	runCmd.Flags().StringSliceVar(&runURLs, "url", nil, "Extra candidate profile URL (repeatable)")
	runCmd.Flags().StringVar(&runFile, "file", "", "File with extra candidate URLs, one per line")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, _ []string) error {
	candidates, err := collectCandidates(runURLs, runFile)
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

	_, err = a.runStages(ctx, pipeline.Options{
		SkipDirectory: runSkipDirectory,
		SkipEnrich:    runSkipEnrich,
		SkipDiscover:  runSkipDiscover,
		Candidates:    candidates,
	})
	return err
}
