package main

import (
	"github.com/spf13/cobra"

	"github.com/jonathan/company-directory/internal/pipeline"
)

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Check network profiles of records whose mention is unknown",
	Long: `Fetches the network profile of every raw record that has one and whose mention
state is still unknown, and records the classification with its evidence.`,
	Args: cobra.NoArgs,
	RunE: runEnrich,
}

func init() {
	rootCmd.AddCommand(enrichCmd)
}

func runEnrich(cmd *cobra.Command, _ []string) error {
	ctx, cancel := signalContext(cmd)
	defer cancel()

	a, err := newApp(ctx, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer a.Close()

	_, err = a.runStages(ctx, pipeline.Options{Only: []pipeline.Stage{pipeline.StageEnrich}})
	return err
}
