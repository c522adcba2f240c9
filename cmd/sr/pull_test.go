package main

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/insilica/srvc-go/internal/event"
)

func writeConfigFile(t *testing.T, dir, sinkPath string) string {
	t.Helper()
	cfgPath := filepath.Join(dir, "sr.yaml")
	content := "db: " + sinkPath + "\nreviewer: mailto:u@example.com\n"
	if err := os.WriteFile(cfgPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return cfgPath
}

func TestPullRoundTripsNDJSONIntoSink(t *testing.T) {
	dir := t.TempDir()
	docsPath := filepath.Join(dir, "docs.jsonl")
	if err := os.WriteFile(docsPath, []byte(`{"type":"document","data":{"title":"a"},"uri":"u1"}`+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	sinkPath := filepath.Join(dir, "sink.jsonl")
	cfgPath := writeConfigFile(t, dir, sinkPath)

	root := newRootCommand()
	root.SetArgs([]string{"--config", cfgPath, "pull", docsPath})
	if err := root.Execute(); err != nil {
		t.Fatalf("pull: %v", err)
	}

	f, err := os.Open(sinkPath)
	if err != nil {
		t.Fatalf("opening sink file: %v", err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if len(lines) != 1 {
		t.Fatalf("expected exactly one sink line, got %d", len(lines))
	}

	e, err := event.Parse(lines[0])
	if err != nil {
		t.Fatal(err)
	}
	if e.Hash == nil || *e.Hash == "" {
		t.Fatal("expected the sunk event to carry a filled-in hash")
	}
	if e.URI == nil || *e.URI != "u1" {
		t.Fatalf("expected uri u1, got %v", e.URI)
	}
}

func TestPullAbortsOnHashMismatch(t *testing.T) {
	dir := t.TempDir()
	docsPath := filepath.Join(dir, "docs.jsonl")
	bad := `{"type":"document","hash":"wrongHash","data":{"title":"a"},"uri":"u1"}` + "\n"
	if err := os.WriteFile(docsPath, []byte(bad), 0o644); err != nil {
		t.Fatal(err)
	}
	sinkPath := filepath.Join(dir, "sink.jsonl")
	cfgPath := writeConfigFile(t, dir, sinkPath)

	root := newRootCommand()
	root.SetArgs([]string{"--config", cfgPath, "pull", docsPath})
	err := root.Execute()
	if err == nil {
		t.Fatal("expected a hash mismatch error")
	}
	if !strings.Contains(err.Error(), "Incorrect event hash") {
		t.Fatalf("expected an \"Incorrect event hash\" message, got: %v", err)
	}
}
