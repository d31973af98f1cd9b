package report

import (
	"encoding/json"
	"io"
	"sync"

	"github.com/nao1215/gatewayscan/internal/model"
)

// JSONWriter prints one JSON document per result. Without indentation
// the output is JSON lines.
type JSONWriter struct {
	baseWriter

	mu     sync.Mutex
	prefix string
	indent string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent indents nested values with indent and starts every line
// after the first with prefix.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.prefix = prefix
		w.indent = indent
	}
}

// WithPrettyPrint indents with two spaces.
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// NewJSONWriter creates a JSONWriter on output.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write encodes result followed by a newline.
func (w *JSONWriter) Write(result *model.ScanResult) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	cw := &countingWriter{w: w.output}
	enc := json.NewEncoder(cw)
	enc.SetEscapeHTML(false)
	if w.prefix != "" || w.indent != "" {
		enc.SetIndent(w.prefix, w.indent)
	}
	err := enc.Encode(result)
	return cw.n, err
}

// WriteAll encodes every result in order and stops at the first error.
func (w *JSONWriter) WriteAll(results []model.ScanResult) (int, error) {
	var total int
	for i := range results {
		n, err := w.Write(&results[i])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

type countingWriter struct {
	w io.Writer
	n int
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += n
	return n, err
}
