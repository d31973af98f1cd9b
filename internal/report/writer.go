package report

import (
	"errors"
	"io"

	"github.com/nao1215/gatewayscan/internal/model"
)

// Writer defines the interface for per-candidate result output.
type Writer interface {
	// Write outputs one result to the configured destination.
	// Returns the number of bytes written and any error encountered.
	Write(result *model.ScanResult) (int, error)
}

// MultiWriter fans one result out to several Writers.
//
// Design decision: a failing Writer does not stop the others. The ledger
// is the record of the run, so a full disk under the database or a closed
// terminal must not cost a ledger row, and the other way round.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the result to every Writer, even after one fails, and
// returns the total bytes written with the failures joined.
func (m *MultiWriter) Write(result *model.ScanResult) (int, error) {
	var (
		total int
		errs  []error
	)
	for _, w := range m.writers {
		n, err := w.Write(result)
		total += n
		if err != nil {
			errs = append(errs, err)
		}
	}
	return total, errors.Join(errs...)
}

// Len returns the number of Writers.
func (m *MultiWriter) Len() int {
	return len(m.writers)
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}
