package main

import (
	"github.com/spf13/cobra"

	"github.com/jonathan/company-directory/internal/pipeline"
)

var discoverIngest bool

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Find candidate profiles through similar-page links",
	Long: `Reads the "similar pages" links of every known network profile and prints the
candidate profile URLs. With --ingest the candidates are checked and confirmed
ones are appended to the raw dataset.`,
	Args: cobra.NoArgs,
	RunE: runDiscover,
}

func init() {
	discoverCmd.Flags().BoolVar(&discoverIngest, "ingest", false, "Ingest the discovered candidates")
	rootCmd.AddCommand(discoverCmd)
}

func runDiscover(cmd *cobra.Command, _ []string) error {
	ctx, cancel := signalContext(cmd)
	defer cancel()

	a, err := newApp(ctx, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer a.Close()

	stages := []pipeline.Stage{pipeline.StageDiscover}
	if discoverIngest {
		stages = append(stages, pipeline.StageIngest)
	}

	report, err := a.runStages(ctx, pipeline.Options{Only: stages})
	if report != nil {
		a.printer.PrintURLs("Discovered profiles", report.Discovered)
	}
	return err
}
