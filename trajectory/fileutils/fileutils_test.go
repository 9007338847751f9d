package fileutils

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestTruncate(t *testing.T) {
	t.Parallel()

	if got := Truncate("  hello  ", 10); got != "hello" {
		t.Fatalf("got %q", got)
	}
	if got := Truncate("abcdef", 3); got != "abc…" {
		t.Fatalf("got %q", got)
	}
	if got := Truncate("abcdef", 0); got != "abcdef" {
		t.Fatalf("got %q", got)
	}
}

func TestWriteJSONFileAtomic(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "out.json")
	if err := WriteJSONFileAtomic(path, map[string]int{"n": 3}, true); err != nil {
		t.Fatalf("WriteJSONFileAtomic: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(b), `"n": 3`) {
		t.Fatalf("got %q", b)
	}
	if !FileExists(path) {
		t.Fatalf("FileExists=false")
	}
}

func TestJSONLWriter_AppendsAndReadsBack(t *testing.T) {
	t.Parallel()

	type row struct {
		N int `json:"n"`
	}
	path := filepath.Join(t.TempDir(), "rows.jsonl")

	w, err := OpenJSONLWriter(path)
	if err != nil {
		t.Fatalf("OpenJSONLWriter: %v", err)
	}
	for i := 1; i <= 3; i++ {
		if err := w.Write(row{N: i}); err != nil {
			t.Fatalf("Write %d: %v", i, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// Reopening appends rather than truncating.
	w, err = OpenJSONLWriter(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if err := w.Write(row{N: 4}); err != nil {
		t.Fatalf("Write 4: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close 2: %v", err)
	}

	rows, err := ReadJSONLines[row](path)
	if err != nil {
		t.Fatalf("ReadJSONLines: %v", err)
	}
	if len(rows) != 4 || rows[3].N != 4 {
		t.Fatalf("got %v", rows)
	}
}
