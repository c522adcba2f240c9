package sink

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/insilica/srvc-go/internal/event"
)

// fileSink appends NDJSON to a file, or to stdout for the literal
// target "-". The existing file is scanned at open time to seed the
// dedup set so re-running a flow against the same file doesn't
// duplicate events already recorded.
type fileSink struct {
	w     io.Writer
	close func() error
	seen  map[string]bool
}

func newFileSink(path string) (Sink, error) {
	if path == "-" {
		return &fileSink{
			w:     os.Stdout,
			close: func() error { return nil },
			seen:  make(map[string]bool),
		}, nil
	}

	seen, err := seedHashes(path)
	if err != nil {
		return nil, err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("sink: opening %s: %w", path, err)
	}

	return &fileSink{w: f, close: f.Close, seen: seen}, nil
}

func seedHashes(path string) (map[string]bool, error) {
	seen := make(map[string]bool)
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return seen, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sink: scanning existing %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		e, err := event.Parse(scanner.Text())
		if err != nil {
			return nil, fmt.Errorf("sink: %s: %w", path, err)
		}
		if e != nil && e.Hash != nil {
			seen[*e.Hash] = true
		}
	}
	return seen, scanner.Err()
}

func (s *fileSink) Put(e *event.Event) (bool, error) {
	if e.Hash != nil && s.seen[*e.Hash] {
		return false, nil
	}
	b, err := json.Marshal(e)
	if err != nil {
		return false, fmt.Errorf("sink: serializing event: %w", err)
	}
	if _, err := s.w.Write(append(b, '\n')); err != nil {
		return false, fmt.Errorf("sink: writing event: %w", err)
	}
	if e.Hash != nil {
		s.seen[*e.Hash] = true
	}
	return true, nil
}

func (s *fileSink) Close() error { return s.close() }
