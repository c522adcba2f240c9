package embedded

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/insilica/srvc-go/internal/event"
)

func TestRunAddHashesFillsInMissingHashes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "events.ndjson")
	content := `{"type":"document","data":{"title":"a"}}` + "\n" +
		`{"type":"document","data":{"title":"b"}}` + "\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := RunAddHashes(path); err != nil {
		t.Fatalf("RunAddHashes: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	for _, line := range lines {
		e, err := event.Parse(line)
		if err != nil {
			t.Fatalf("parsing rewritten line: %v", err)
		}
		if e.Hash == nil || *e.Hash == "" {
			t.Fatalf("expected a hash to be filled in, line=%s", line)
		}
	}
}

func TestRunAddHashesRejectsTamperedHash(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "events.ndjson")
	bad := `{"type":"document","hash":"not-the-real-hash","data":{"title":"a"}}` + "\n"
	if err := os.WriteFile(path, []byte(bad), 0o644); err != nil {
		t.Fatal(err)
	}

	err := RunAddHashes(path)
	if err == nil {
		t.Fatal("expected a hash mismatch error")
	}
	if !strings.Contains(err.Error(), "add-hashes") {
		t.Fatalf("expected wrapped add-hashes error, got %v", err)
	}

	// The original file must be untouched on failure.
	raw, readErr := os.ReadFile(path)
	if readErr != nil {
		t.Fatal(readErr)
	}
	if string(raw) != bad {
		t.Fatalf("original file was modified despite failure: %s", string(raw))
	}
}
