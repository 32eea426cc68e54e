package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
)

// signalContext cancels the command context on SIGINT or SIGTERM.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}

// readCandidateFile reads one URL per line. Blank lines and lines starting
// with '#' are ignored.
func readCandidateFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open candidate file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var urls []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read candidate file: %w", err)
	}
	return urls, nil
}

// collectCandidates merges --url values with the contents of --file.
func collectCandidates(urls []string, file string) ([]string, error) {
	candidates := append([]string(nil), urls...)
	if file != "" {
		fromFile, err := readCandidateFile(file)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, fromFile...)
	}
	return candidates, nil
}
