package main

import (
	"github.com/spf13/cobra"

	"github.com/jonathan/company-directory/internal/pipeline"
)

var scrapeDirectoryCmd = &cobra.Command{
	Use:   "scrape-directory",
	Short: "Refresh directory companies into the raw dataset",
	Long: `Renders the startup directory listing for the configured batch, fetches every
company page and upserts the companies into the raw dataset. Mention fields of
existing records are preserved.`,
	Args: cobra.NoArgs,
	RunE: runScrapeDirectory,
}

func init() {
	rootCmd.AddCommand(scrapeDirectoryCmd)
}

func runScrapeDirectory(cmd *cobra.Command, _ []string) error {
	ctx, cancel := signalContext(cmd)
	defer cancel()

	a, err := newApp(ctx, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer a.Close()

	_, err = a.runStages(ctx, pipeline.Options{Only: []pipeline.Stage{pipeline.StageDirectory}})
	return err
}
