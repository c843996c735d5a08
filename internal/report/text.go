package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/JakeFAU/keyword-crawler/internal/crawler"
)

// TextWriter outputs the plain terminal summary.
type TextWriter struct {
	output  io.Writer
	verbose bool
}

// TextWriterOption configures a TextWriter.
type TextWriterOption func(*TextWriter)

// WithVerbose lists every failed task after the totals.
func WithVerbose(verbose bool) TextWriterOption {
	return func(w *TextWriter) {
		w.verbose = verbose
	}
}

// NewTextWriter creates a TextWriter that outputs to the given writer.
func NewTextWriter(output io.Writer, opts ...TextWriterOption) *TextWriter {
	w := &TextWriter{output: output}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the totals block followed by a short run summary.
func (w *TextWriter) Write(report crawler.Report) (int, error) {
	var sb strings.Builder

	sb.WriteString("\n=== Total Keyword Counts Across All Pages ===\n")
	for _, kt := range report.Totals {
		fmt.Fprintf(&sb, "Keyword '%s': %d occurrences\n", kt.Keyword, kt.Total)
	}

	sb.WriteString("\n")
	fmt.Fprintf(&sb, "Run:      %s\n", report.RunID)
	fmt.Fprintf(&sb, "Pages:    %d fetched, %d failed, %d total\n",
		report.PagesSucceeded, report.PagesFailed, report.Tasks)
	fmt.Fprintf(&sb, "Workers:  %d\n", report.Workers)
	fmt.Fprintf(&sb, "Duration: %s\n", report.Duration().Round(time.Millisecond))

	if w.verbose {
		if failed := failedOutcomes(report); len(failed) > 0 {
			sb.WriteString("\nFailed pages:\n")
			for _, o := range failed {
				fmt.Fprintf(&sb, "  [%d] %s (%s): %s\n", o.Task.SequenceIndex, o.Task.URL, o.Status, o.Error)
			}
		}
	}

	n, err := io.WriteString(w.output, sb.String())
	if err != nil {
		return n, fmt.Errorf("write text report: %w", err)
	}
	return n, nil
}
