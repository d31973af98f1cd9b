package report

import (
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/gatewayscan/internal/model"
)

// MarkdownWriter outputs run summaries in Markdown format.
// Tables and alerts come from the nao1215/markdown builder.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// WriteSummary outputs the run summary.
func (w *MarkdownWriter) WriteSummary(s *Summary) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, s)
	w.writeTotals(md, s)
	w.writeFound(md, s)
	w.writeResults(md, s)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the run information table.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, s *Summary) {
	md.H1("Gatewayscan Summary")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Started", s.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Elapsed", s.Elapsed().Round(timeRounding).String()},
			{"Candidates", strconv.Itoa(s.Total())},
		},
	})
	md.PlainText("")
}

// writeTotals writes the status table, pie chart and alert.
func (w *MarkdownWriter) writeTotals(md *markdown.Markdown, s *Summary) {
	md.H2("Status Totals")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Status", "Count"},
		Rows: [][]string{
			{"🟢 " + model.StatusFound.String(), strconv.Itoa(s.Count(model.StatusFound))},
			{"⚪ " + model.StatusNotFound.String(), strconv.Itoa(s.Count(model.StatusNotFound))},
			{"🔴 " + model.StatusError.String(), strconv.Itoa(s.Count(model.StatusError))},
			{"**Total**", "**" + strconv.Itoa(s.Total()) + "**"},
		},
	})
	md.PlainText("")

	if s.Total() > 0 {
		w.writePieChart(md, s)
	}

	w.writeAlert(md, s)
}

// writePieChart writes a mermaid pie chart for the status distribution.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, s *Summary) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Status Distribution"),
		piechart.WithShowData(true),
	)

	for _, status := range []model.Status{model.StatusFound, model.StatusNotFound, model.StatusError} {
		if n := s.Count(status); n > 0 {
			chart.LabelAndIntValue(status.String(), uint64(n))
		}
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, s *Summary) {
	found := s.Count(model.StatusFound)
	errs := s.Count(model.StatusError)

	switch {
	case found > 0:
		md.Importantf("%d candidate(s) classified FOUND.", found)
	case s.Total() > 0 && errs == s.Total():
		md.Warningf("All %d candidate(s) failed. Check connectivity and proxy settings.", errs)
	case s.Total() == 0:
		md.Note("No candidates were scanned.")
	default:
		md.Tip("No candidate reached the signal threshold.")
	}
	md.PlainText("")
}

// writeFound lists FOUND candidates with their matched signals.
func (w *MarkdownWriter) writeFound(md *markdown.Markdown, s *Summary) {
	found := s.Found()
	if len(found) == 0 {
		return
	}

	md.H2("Found")
	md.PlainText("")

	rows := make([][]string, len(found))
	for i, r := range found {
		rows[i] = []string{
			"`" + r.URL + "`",
			strconv.Itoa(r.Hits) + "/" + strconv.Itoa(r.TotalSignals),
			r.SignalsText(),
			confirmedText(r.Confirmed),
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"URL", "Signals", "Matched", "Confirmed"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeResults writes every result in scan order.
func (w *MarkdownWriter) writeResults(md *markdown.Markdown, s *Summary) {
	md.H2("All Results")
	md.PlainText("")

	if s.Total() == 0 {
		md.PlainText("No results.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(s.Results))
	for i, r := range s.Results {
		rows[i] = []string{
			truncateString(r.URL, 60),
			strconv.Itoa(r.PagesChecked),
			strconv.Itoa(r.Hits),
			r.Status.String(),
			truncateString(r.DetailsText(), 80),
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"URL", "Pages", "Hits", "Status", "Details"},
		Rows:   rows,
	})
	md.PlainText("")
}

// WriteResults outputs stored results as a single table.
func (w *MarkdownWriter) WriteResults(results []model.ScanResult) (int, error) {
	md := markdown.NewMarkdown(w.output)

	if len(results) == 0 {
		md.PlainText("No results.")
		return len(md.String()), md.Build()
	}

	rows := make([][]string, len(results))
	for i, r := range results {
		rows[i] = []string{
			r.ScannedAt.Format("2006-01-02 15:04:05"),
			truncateString(r.URL, 60),
			r.Status.String(),
			strconv.Itoa(r.Hits) + "/" + strconv.Itoa(r.TotalSignals),
			strconv.Itoa(r.PagesChecked),
			confirmedText(r.Confirmed),
			truncateString(r.DetailsText(), 80),
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"Scanned At", "URL", "Status", "Signals", "Pages", "Confirmed", "Details"},
		Rows:   rows,
	})
	return len(md.String()), md.Build()
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [gatewayscan](https://github.com/nao1215/gatewayscan)*")
}

func confirmedText(c *bool) string {
	if c == nil {
		return "-"
	}
	return yesNo(*c)
}

// truncateString truncates a string to maxLen characters with ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
