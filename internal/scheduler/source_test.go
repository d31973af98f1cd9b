package scheduler

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func drain(t *testing.T, src Source) []string {
	t.Helper()

	var out []string
	for {
		raw, ok, err := src.Next(t.Context())
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		if !ok {
			return out
		}
		out = append(out, raw)
	}
}

func TestSliceSource(t *testing.T) {
	t.Parallel()

	t.Run("yields in order", func(t *testing.T) {
		t.Parallel()
		got := drain(t, NewSliceSource("a", "b", "c"))
		if !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
			t.Errorf("got %v", got)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		t.Parallel()
		ctx, cancel := context.WithCancel(t.Context())
		cancel()
		if _, _, err := NewSliceSource("a").Next(ctx); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}

func TestReaderSource(t *testing.T) {
	t.Parallel()

	input := strings.Join([]string{
		"# candidates",
		"http://a.example",
		"",
		"   b.example   ",
		"  # indented comment",
		"http://c.example/shop",
	}, "\n")

	got := drain(t, NewReaderSource(strings.NewReader(input)))
	want := []string{"http://a.example", "b.example", "http://c.example/shop"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestOpenFileSource(t *testing.T) {
	t.Parallel()

	t.Run("reads file", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "urls.txt")
		if err := os.WriteFile(path, []byte("a.example\nb.example\n"), 0o600); err != nil {
			t.Fatal(err)
		}

		src, err := OpenFileSource(path)
		if err != nil {
			t.Fatal(err)
		}
		defer src.Close()

		if got := drain(t, src); len(got) != 2 {
			t.Errorf("got %v", got)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()

		if _, err := OpenFileSource(filepath.Join(t.TempDir(), "absent.txt")); err == nil {
			t.Error("expected error")
		}
	})
}

func TestMultiSource(t *testing.T) {
	t.Parallel()

	src := NewMultiSource(
		NewSliceSource("a", "b"),
		NewSliceSource(),
		NewReaderSource(strings.NewReader("c\n# skip\nd\n")),
	)
	got := drain(t, src)
	if !reflect.DeepEqual(got, []string{"a", "b", "c", "d"}) {
		t.Errorf("got %v", got)
	}
}
