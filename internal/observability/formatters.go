// Package observability provides formatted summaries for the CLI.
package observability

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/jonathan/company-directory/internal/pipeline"
	"github.com/jonathan/company-directory/internal/reconcile"
	"github.com/jonathan/company-directory/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output
type Printer struct {
	out  io.Writer
	ok   *color.Color
	fail *color.Color
	warn *color.Color
}

// NewPrinter creates a new Printer that writes to the given writer.
// Color follows the fatih/color terminal detection.
func NewPrinter(out io.Writer) *Printer {
	return &Printer{
		out:  out,
		ok:   color.New(color.FgGreen, color.Bold),
		fail: color.New(color.FgRed, color.Bold),
		warn: color.New(color.FgYellow),
	}
}

// DisableColor turns off color regardless of the terminal.
func (p *Printer) DisableColor() {
	p.ok.DisableColor()
	p.fail.DisableColor()
	p.warn.DisableColor()
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, truncate(line, boxWidth-4))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// truncate shortens s to at most width runes.
func truncate(s string, width int) string {
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	return string(runes[:width-3]) + "..."
}

// PrintReport outputs one line per stage followed by a colored verdict.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintReport(report *pipeline.Report) {
	if report == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Run:      %s\n", report.RunID))
	sb.WriteString(fmt.Sprintf("Started:  %s\n", report.StartedAt.Format("2006-01-02 15:04:05 MST")))
	if !report.FinishedAt.IsZero() {
		sb.WriteString(fmt.Sprintf("Took:     %s\n", report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond)))
	}
	sb.WriteString("\n")

	for _, stage := range report.Stages {
		status := "OK"
		switch {
		case stage.Skipped:
			status = "SKIPPED"
		case !stage.OK:
			status = "FAILED"
		}
		sb.WriteString(fmt.Sprintf("%-9s %-7s %s\n", stage.Name, status, stage.Message))
	}

	p.printBox("RECONCILIATION RUN", strings.TrimSuffix(sb.String(), "\n"))

	if report.OK() {
		p.ok.Fprintln(p.out, "✓ all stages succeeded")
		return
	}
	for _, stage := range report.Stages {
		if !stage.OK && !stage.Skipped {
			p.fail.Fprintf(p.out, "✗ %s: %s\n", stage.Name, stage.Message)
		}
	}
}

// PrintStats outputs dataset counts.
func (p *Printer) PrintStats(title string, stats types.DatasetStats) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Companies:          %d\n", stats.Total))
	sb.WriteString(fmt.Sprintf("From directory:     %d\n", stats.FromDirectory))
	sb.WriteString(fmt.Sprintf("From network:       %d\n", stats.FromNetwork))
	sb.WriteString(fmt.Sprintf("Mentions cohort:    %d\n", stats.MentionsTrue))
	sb.WriteString(fmt.Sprintf("No mention:         %d\n", stats.MentionsFalse))
	sb.WriteString(fmt.Sprintf("Not yet checked:    %d", stats.MentionsUnknown))
	p.printBox(title, sb.String())
}

// PrintMergeDecisions outputs the first merges of a deduplication pass.
func (p *Printer) PrintMergeDecisions(result reconcile.MergeResult) {
	if len(result.Decisions) == 0 {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Duplicates removed: %d\n\n", result.DuplicatesRemoved))

	count := min(len(result.Decisions), maxItemsToShow)
	for i := 0; i < count; i++ {
		d := result.Decisions[i]
		sb.WriteString(fmt.Sprintf("• %s [%s]\n", d.Key, d.Action))
		sb.WriteString(fmt.Sprintf("    kept %s, dropped %s\n", d.Kept, d.Dropped))
	}
	if len(result.Decisions) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("... and %d more\n", len(result.Decisions)-maxItemsToShow))
	}

	p.printBox("MERGED DUPLICATES", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintURLs outputs a sorted list of URLs.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintURLs(title string, urls []string) {
	if len(urls) == 0 {
		p.warn.Fprintf(p.out, "%s: none\n", title)
		return
	}
	sorted := append([]string(nil), urls...)
	sort.Strings(sorted)
	p.printBox(fmt.Sprintf("%s (%d)", title, len(urls)), strings.Join(sorted, "\n"))
}

// PrintCompany outputs a single record.
func (p *Printer) PrintCompany(record *types.CompanyRecord) {
	if record == nil {
		return
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Name:       %s\n", record.Name))
	sb.WriteString(fmt.Sprintf("Source:     %s\n", record.Source))
	sb.WriteString(fmt.Sprintf("Website:    %s\n", types.Deref(record.Website)))
	sb.WriteString(fmt.Sprintf("Directory:  %s\n", types.Deref(record.YCProfileURL)))
	sb.WriteString(fmt.Sprintf("Network:    %s\n", types.Deref(record.LinkedInURL)))
	sb.WriteString(fmt.Sprintf("Mention:    %s", record.LinkedInMentions))
	if record.LinkedInMatch != nil {
		sb.WriteString(fmt.Sprintf("\nEvidence:   [%s] %s", record.LinkedInMatch.Location, record.LinkedInMatch.Snippet))
	}
	p.printBox("COMPANY", sb.String())
}
