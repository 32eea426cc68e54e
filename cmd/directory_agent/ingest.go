package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/company-directory/internal/pipeline"
)

var (
	ingestURLs []string
	ingestFile string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Check candidate profile URLs and append confirmed companies",
	Long: `Runs URL ingestion over the given candidate profile URLs. Candidates whose
normalized URL is already in the raw dataset are skipped without fetching;
the rest are fetched and classified, and only confirmed mentions are added.`,
	Example: `  directory_agent ingest --url https://www.linkedin.com/company/acme
  directory_agent ingest --file candidates.txt`,
	Args: cobra.NoArgs,
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringSliceVar(&ingestURLs, "url", nil, "Candidate profile URL (repeatable)")
	ingestCmd.Flags().StringVar(&ingestFile, "file", "", "File with one candidate URL per line")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, _ []string) error {
	candidates, err := collectCandidates(ingestURLs, ingestFile)
	if err != nil {
		return err
	}
	if len(candidates) == 0 {
		return fmt.Errorf("no candidate URLs given: use --url or --file")
	}

	ctx, cancel := signalContext(cmd)
	defer cancel()

	a, err := newApp(ctx, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer a.Close()

	_, err = a.runStages(ctx, pipeline.Options{
		Only:       []pipeline.Stage{pipeline.StageIngest},
		Candidates: candidates,
	})
	return err
}
