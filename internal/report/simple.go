package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/gatewayscan/internal/model"
)

// ruleWidth is the width of the separator lines around each block.
const ruleWidth = 70

// SimpleWriter outputs one human-readable block per candidate.
// Plain ASCII only, so output can be piped to files or other tools.
type SimpleWriter struct {
	baseWriter

	// verbose adds timing, digest and error kind lines.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the result block.
func (w *SimpleWriter) Write(result *model.ScanResult) (int, error) {
	var sb strings.Builder

	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("URL:            %s\n", result.URL))
	sb.WriteString(fmt.Sprintf("Pages Checked:  %d\n", result.PagesChecked))
	sb.WriteString(fmt.Sprintf("Signals:        %d/%d (threshold %d)\n", result.Hits, result.TotalSignals, result.Threshold))

	if len(result.MatchedSignals) > 0 {
		sb.WriteString(fmt.Sprintf("Matched:        %s\n", result.SignalsText()))
	}

	sb.WriteString(fmt.Sprintf("Status:         %s\n", w.statusText(result)))

	if result.Confirmed != nil {
		sb.WriteString(fmt.Sprintf("Confirmed:      %s\n", yesNo(*result.Confirmed)))
	}

	if w.verbose {
		w.writeVerbose(&sb, result)
	}

	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")

	return w.output.Write([]byte(sb.String()))
}

// statusText appends the error detail to ERROR statuses.
func (w *SimpleWriter) statusText(result *model.ScanResult) string {
	if result.Status == model.StatusError && result.Detail != "" {
		return fmt.Sprintf("%s - %s", result.Status, result.Detail)
	}
	return result.Status.String()
}

func (w *SimpleWriter) writeVerbose(sb *strings.Builder, result *model.ScanResult) {
	if result.ErrorKind != "" {
		sb.WriteString(fmt.Sprintf("Error Kind:     %s\n", result.ErrorKind))
	}
	if result.CorpusDigest != "" {
		sb.WriteString(fmt.Sprintf("Corpus SHA3:    %s\n", result.CorpusDigest))
	}
	if !result.ScannedAt.IsZero() {
		sb.WriteString(fmt.Sprintf("Scanned At:     %s\n", result.ScannedAt.Format("2006-01-02 15:04:05 MST")))
	}
	sb.WriteString(fmt.Sprintf("Duration:       %s\n", result.Duration.Round(timeRounding)))
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
