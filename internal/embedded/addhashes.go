package embedded

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/insilica/srvc-go/internal/event"
)

// RunAddHashes implements the "add-hashes" embedded step: reads the
// NDJSON file named by its argument, ensure-hashes every event, and
// rewrites the file in place (via a temp file + rename, so a failure
// partway through never leaves the original truncated).
func RunAddHashes(path string) error {
	in, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("add-hashes: opening %s: %w", path, err)
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(path), ".add-hashes-*")
	if err != nil {
		return fmt.Errorf("add-hashes: creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op once the rename below succeeds

	writer := bufio.NewWriter(tmp)
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	for scanner.Scan() {
		e, err := event.Parse(scanner.Text())
		if err != nil {
			tmp.Close()
			return fmt.Errorf("add-hashes: %s: %w", path, err)
		}
		if e == nil {
			continue
		}
		if err := event.EnsureHash(e); err != nil {
			tmp.Close()
			return fmt.Errorf("add-hashes: %s: %w", path, err)
		}
		b, err := json.Marshal(e)
		if err != nil {
			tmp.Close()
			return fmt.Errorf("add-hashes: serializing event: %w", err)
		}
		if _, err := writer.Write(append(b, '\n')); err != nil {
			tmp.Close()
			return fmt.Errorf("add-hashes: writing %s: %w", tmpPath, err)
		}
	}
	if err := scanner.Err(); err != nil {
		tmp.Close()
		return fmt.Errorf("add-hashes: reading %s: %w", path, err)
	}
	if err := writer.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("add-hashes: flushing %s: %w", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("add-hashes: closing %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("add-hashes: replacing %s: %w", path, err)
	}
	return nil
}
