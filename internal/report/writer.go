// Package report renders the final crawl report as text, markdown, or JSON.
package report

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/JakeFAU/keyword-crawler/internal/crawler"
)

// Supported output formats.
const (
	FormatText     = "text"
	FormatMarkdown = "markdown"
	FormatJSON     = "json"
)

// Writer renders a report to its output.
type Writer interface {
	Write(report crawler.Report) (int, error)
}

// NewWriter returns the writer for format. An empty format selects text.
func NewWriter(format string, output io.Writer) (Writer, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", FormatText:
		return NewTextWriter(output), nil
	case FormatMarkdown, "md":
		return NewMarkdownWriter(output), nil
	case FormatJSON:
		return NewJSONWriter(output, WithPrettyPrint()), nil
	default:
		return nil, fmt.Errorf("unknown report format %q", format)
	}
}

// Sink adapts a Writer to crawler.ReportSink.
type Sink struct {
	writer Writer
}

// NewSink wraps w.
func NewSink(w Writer) *Sink {
	return &Sink{writer: w}
}

// Consume writes the report.
func (s *Sink) Consume(_ context.Context, report crawler.Report) error {
	if _, err := s.writer.Write(report); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// failedOutcomes returns the outcomes that did not succeed, in task order.
func failedOutcomes(report crawler.Report) []crawler.Outcome {
	var failed []crawler.Outcome
	for _, o := range report.Outcomes {
		if o.Status != crawler.OutcomeSucceeded {
			failed = append(failed, o)
		}
	}
	return failed
}
