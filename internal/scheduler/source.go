package scheduler

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Source is a lazy, finite sequence of candidate URL strings.
// Next returns ok=false once the sequence is exhausted.
type Source interface {
	Next(ctx context.Context) (raw string, ok bool, err error)
}

// SliceSource yields a fixed list of candidates in order.
type SliceSource struct {
	items []string
	pos   int
}

// NewSliceSource creates a Source over items.
func NewSliceSource(items ...string) *SliceSource {
	return &SliceSource{items: items}
}

// Next implements Source.
func (s *SliceSource) Next(ctx context.Context) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	if s.pos >= len(s.items) {
		return "", false, nil
	}
	item := s.items[s.pos]
	s.pos++
	return item, true, nil
}

// ReaderSource yields one candidate per line. Blank lines and lines
// starting with '#' are skipped.
type ReaderSource struct {
	scanner *bufio.Scanner
	closer  io.Closer
}

// NewReaderSource creates a Source reading lines from r.
func NewReaderSource(r io.Reader) *ReaderSource {
	return &ReaderSource{scanner: bufio.NewScanner(r)}
}

// OpenFileSource opens path as a line source. "-" reads standard input.
// The caller must Close the returned source.
func OpenFileSource(path string) (*ReaderSource, error) {
	if path == "-" {
		return NewReaderSource(os.Stdin), nil
	}
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open candidate list: %w", err)
	}
	src := NewReaderSource(f)
	src.closer = f
	return src, nil
}

// Next implements Source.
func (s *ReaderSource) Next(ctx context.Context) (string, bool, error) {
	for {
		if err := ctx.Err(); err != nil {
			return "", false, err
		}
		if !s.scanner.Scan() {
			if err := s.scanner.Err(); err != nil {
				return "", false, fmt.Errorf("failed to read candidate list: %w", err)
			}
			return "", false, nil
		}
		line := strings.TrimSpace(s.scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		return line, true, nil
	}
}

// Close closes the underlying file, if any.
func (s *ReaderSource) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// MultiSource drains each source in turn.
type MultiSource struct {
	sources []Source
}

// NewMultiSource chains sources.
func NewMultiSource(sources ...Source) *MultiSource {
	return &MultiSource{sources: sources}
}

// Next implements Source.
func (m *MultiSource) Next(ctx context.Context) (string, bool, error) {
	for len(m.sources) > 0 {
		raw, ok, err := m.sources[0].Next(ctx)
		if err != nil {
			return "", false, err
		}
		if ok {
			return raw, true, nil
		}
		m.sources = m.sources[1:]
	}
	return "", false, nil
}
