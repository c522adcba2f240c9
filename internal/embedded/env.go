// Package embedded implements the built-in "run-embedded-step" targets:
// small self-contained programs the flow supervisor runs as child
// processes by re-executing the sr binary, each speaking the same
// SR_CONFIG/SR_INPUT/SR_OUTPUT child protocol an external step would.
package embedded

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/insilica/srvc-go/internal/config"
	"github.com/insilica/srvc-go/internal/event"
)

// Env is a child's view of its invocation: where its resolved config
// lives, and the TCP addresses (if any) it should read events from and
// write events to.
type Env struct {
	ConfigPath string
	Input      string // "host:port", or "" if this step has no upstream
	Output     string // "host:port", or "" if this step has no downstream
}

// GetEnv reads SR_CONFIG/SR_INPUT/SR_OUTPUT from the process environment.
func GetEnv() (*Env, error) {
	configPath := os.Getenv("SR_CONFIG")
	if configPath == "" {
		return nil, fmt.Errorf("embedded: SR_CONFIG is not set")
	}
	return &Env{
		ConfigPath: configPath,
		Input:      os.Getenv("SR_INPUT"),
		Output:     os.Getenv("SR_OUTPUT"),
	}, nil
}

// GetConfig reads and parses the resolved config.Config at path.
func GetConfig(path string) (*config.Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("embedded: opening config %s: %w", path, err)
	}
	defer f.Close()

	var cfg config.Config
	if err := json.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("embedded: parsing config %s: %w", path, err)
	}
	return &cfg, nil
}

// TimestampOverride reads SR_TIMESTAMP_OVERRIDE, used by tests (and by
// label-cli) to produce reproducible label-answer timestamps.
func TimestampOverride() (int64, bool, error) {
	raw := os.Getenv("SR_TIMESTAMP_OVERRIDE")
	if raw == "" {
		return 0, false, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("embedded: invalid SR_TIMESTAMP_OVERRIDE %q: %w", raw, err)
	}
	return n, true, nil
}

// Now returns the override if set, else the current epoch second.
func Now() (int64, error) {
	if ts, ok, err := TimestampOverride(); err != nil {
		return 0, err
	} else if ok {
		return ts, nil
	}
	return time.Now().Unix(), nil
}

// InputEvents dials addr and returns a decoder reading NDJSON events
// from the connection until it's closed by the upstream step.
func InputEvents(addr string) (*EventReader, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("embedded: connecting to %s: %w", addr, err)
	}
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	return &EventReader{conn: conn, scanner: scanner}, nil
}

// EventReader reads Events one line at a time from a live connection.
type EventReader struct {
	conn    net.Conn
	scanner *bufio.Scanner
}

// Next returns the next event, or io.EOF once the stream is exhausted.
func (r *EventReader) Next() (*event.Event, error) {
	for r.scanner.Scan() {
		e, err := event.Parse(r.scanner.Text())
		if err != nil {
			return nil, err
		}
		if e == nil {
			continue
		}
		return e, nil
	}
	if err := r.scanner.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}

func (r *EventReader) Close() error { return r.conn.Close() }

// OutputWriter dials addr and returns a line-buffered NDJSON writer.
func OutputWriter(addr string) (*EventWriter, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("embedded: connecting to %s: %w", addr, err)
	}
	return &EventWriter{conn: conn, w: bufio.NewWriter(conn)}, nil
}

// EventWriter writes one JSON-encoded Event per line.
type EventWriter struct {
	conn net.Conn
	w    *bufio.Writer
}

func (w *EventWriter) Write(e *event.Event) error {
	b, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("embedded: serializing event: %w", err)
	}
	if _, err := w.w.Write(b); err != nil {
		return fmt.Errorf("embedded: writing event: %w", err)
	}
	if _, err := w.w.Write([]byte("\n")); err != nil {
		return fmt.Errorf("embedded: writing event: %w", err)
	}
	return nil
}

func (w *EventWriter) Flush() error { return w.w.Flush() }

func (w *EventWriter) Close() error {
	_ = w.w.Flush()
	return w.conn.Close()
}

// WriteEventDedupe writes e to w unless its hash is already present in
// seen, in which case it's silently skipped (H4). e's hash is added to
// seen either way a write occurs.
func WriteEventDedupe(w *EventWriter, e *event.Event, seen map[string]bool) error {
	if e.Hash != nil && seen[*e.Hash] {
		return nil
	}
	if err := w.Write(e); err != nil {
		return err
	}
	if e.Hash != nil {
		seen[*e.Hash] = true
	}
	return nil
}

// IsRemoteTarget reports whether db names an HTTP(S) endpoint rather
// than a local path.
func IsRemoteTarget(db string) bool {
	lower := strings.ToLower(db)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// APIRoute joins remote and path under the "api/v1/" prefix every HTTP
// sink/source endpoint shares.
func APIRoute(remote, path string) string {
	if len(remote) > 0 && remote[len(remote)-1] == '/' {
		return remote + "api/v1/" + path
	}
	return remote + "/api/v1/" + path
}
