package report

import (
	"io"
	"strconv"
	"time"

	"github.com/nao1215/markdown"

	"github.com/JakeFAU/keyword-crawler/internal/crawler"
)

// MarkdownWriter outputs reports in Markdown format for sharing.
type MarkdownWriter struct {
	output io.Writer
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{output: output}
}

// Write outputs the report in Markdown format.
func (w *MarkdownWriter) Write(report crawler.Report) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Keyword Crawl Report")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Run ID", "`" + report.RunID + "`"},
			{"Started", report.StartedAt.Format(time.RFC3339)},
			{"Duration", report.Duration().Round(time.Millisecond).String()},
			{"Workers", strconv.Itoa(report.Workers)},
			{"Pages fetched", strconv.Itoa(report.PagesSucceeded)},
			{"Pages failed", strconv.Itoa(report.PagesFailed)},
		},
	})
	md.PlainText("")

	md.H2("Keyword Totals")
	md.PlainText("")
	rows := make([][]string, 0, len(report.Totals))
	for _, kt := range report.Totals {
		rows = append(rows, []string{kt.Keyword, strconv.Itoa(kt.Total)})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Keyword", "Occurrences"},
		Rows:   rows,
	})
	md.PlainText("")

	if failed := failedOutcomes(report); len(failed) > 0 {
		md.H2("Failed Pages")
		md.PlainText("")
		failedRows := make([][]string, 0, len(failed))
		for _, o := range failed {
			failedRows = append(failedRows, []string{
				strconv.Itoa(o.Task.SequenceIndex),
				o.Task.URL,
				string(o.Status),
				o.Error,
			})
		}
		md.Table(markdown.TableSet{
			Header: []string{"Task", "URL", "Status", "Error"},
			Rows:   failedRows,
		})
		md.PlainText("")
	}

	return len(md.String()), md.Build()
}
