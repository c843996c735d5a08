package report

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/JakeFAU/keyword-crawler/internal/crawler"
)

// JSONWriter outputs reports in JSON format for tool integration.
type JSONWriter struct {
	output io.Writer
	indent string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithPrettyPrint enables two-space indentation.
func WithPrettyPrint() JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = "  "
	}
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{output: output}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write encodes the full report, outcomes included, followed by a newline.
func (w *JSONWriter) Write(report crawler.Report) (int, error) {
	var (
		data []byte
		err  error
	)
	if w.indent != "" {
		data, err = json.MarshalIndent(report, "", w.indent)
	} else {
		data, err = json.Marshal(report)
	}
	if err != nil {
		return 0, fmt.Errorf("marshal report: %w", err)
	}
	data = append(data, '\n')
	n, err := w.output.Write(data)
	if err != nil {
		return n, fmt.Errorf("write json report: %w", err)
	}
	return n, nil
}
