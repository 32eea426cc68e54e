package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/company-directory/internal/server"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the dashboard API server",
	Long: `Start an HTTP server that serves the canonical dataset and exposes the
re-scrape and restore actions.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides server.port)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, cancel := signalContext(cmd)
	defer cancel()

	a, err := newApp(ctx, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer a.Close()

	settings := a.cfg.Server
	if servePort > 0 {
		settings.Port = servePort
	}

	srv, err := server.New(server.Config{
		Settings: settings,
		Pipeline: a.runner,
		Logger:   a.log,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	return srv.Start(ctx)
}
