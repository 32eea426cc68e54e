package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var restoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Restore the canonical dataset from its backup",
	Long:  `Replaces the canonical (deduplicated) dataset with the backup written by the last deduplication.`,
	Args:  cobra.NoArgs,
	RunE:  runRestore,
}

func init() {
	rootCmd.AddCommand(restoreCmd)
}

func runRestore(cmd *cobra.Command, _ []string) error {
	ctx, cancel := signalContext(cmd)
	defer cancel()

	a, err := newApp(ctx, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.runner.Restore(ctx); err != nil {
		return fmt.Errorf("restore failed: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Restored canonical dataset from backup")
	return nil
}
