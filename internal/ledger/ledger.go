package ledger

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/nao1215/gatewayscan/internal/model"
)

// Header is the first row of a newly created ledger.
var Header = []string{"URL", "Pages Checked", "Braintree Signals", "Status", "Details"}

// Ledger is an append-only CSV results file.
// It is safe for concurrent use.
type Ledger struct {
	mu   sync.Mutex
	path string
	file *os.File
	w    *csv.Writer
}

// Open opens the ledger at path for appending, creating it with a header
// row if it does not exist yet.
func Open(path string) (*Ledger, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create ledger directory: %w", err)
		}
	}

	created := true
	f, err := os.OpenFile(filepath.Clean(path), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if errors.Is(err, fs.ErrExist) {
		created = false
		f, err = os.OpenFile(filepath.Clean(path), os.O_WRONLY|os.O_APPEND, 0o600)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger %s: %w", path, err)
	}

	l := &Ledger{path: path, file: f, w: csv.NewWriter(f)}
	if created {
		if err := l.writeRow(Header); err != nil {
			_ = f.Close()
			return nil, err
		}
	}
	return l, nil
}

// Path returns the ledger file path.
func (l *Ledger) Path() string {
	return l.path
}

// Write appends one row for result. The signals column holds the hit count
// and the details column the matched signal names or the error detail.
func (l *Ledger) Write(result *model.ScanResult) (int, error) {
	row := []string{
		result.URL,
		strconv.Itoa(result.PagesChecked),
		strconv.Itoa(result.Hits),
		result.Status.String(),
		result.DetailsText(),
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.writeRow(row); err != nil {
		return 0, err
	}
	return len(row), nil
}

func (l *Ledger) writeRow(row []string) error {
	if err := l.w.Write(row); err != nil {
		return fmt.Errorf("failed to write ledger row: %w", err)
	}
	l.w.Flush()
	if err := l.w.Error(); err != nil {
		return fmt.Errorf("failed to flush ledger: %w", err)
	}
	return nil
}

// Close flushes and closes the ledger file.
func (l *Ledger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.w.Flush()
	if err := l.w.Error(); err != nil {
		_ = l.file.Close()
		return fmt.Errorf("failed to flush ledger: %w", err)
	}
	return l.file.Close()
}
