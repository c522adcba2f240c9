package sink

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/insilica/srvc-go/internal/event"
	"github.com/insilica/srvc-go/internal/srerr"
)

// httpSink POSTs each event individually to <db>/api/v1/upload. A
// previously-seen hash set, scoped to this run, prevents duplicate
// posts; there is no remote existence check (unlike skip-reviewed's
// GET), since the upload endpoint itself is expected to be idempotent
// by hash on the server side.
type httpSink struct {
	remote string
	client *http.Client
	token  string
	seen   map[string]bool
}

func newHTTPSink(remote string) (Sink, error) {
	return &httpSink{
		remote: remote,
		client: &http.Client{Timeout: 30 * time.Second},
		token:  os.Getenv("SRVC_TOKEN"),
		seen:   make(map[string]bool),
	}, nil
}

func (s *httpSink) Put(e *event.Event) (bool, error) {
	if e.Hash != nil && s.seen[*e.Hash] {
		return false, nil
	}

	body, err := json.Marshal(e)
	if err != nil {
		return false, fmt.Errorf("sink: serializing event: %w", err)
	}

	url := apiRoute(s.remote, "upload")
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("sink: building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("sink: posting to %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(resp.Body)
		return false, &srerr.RemoteError{Status: resp.StatusCode, URL: url, Body: string(respBody)}
	}

	if e.Hash != nil {
		s.seen[*e.Hash] = true
	}
	return true, nil
}

func (s *httpSink) Close() error { return nil }

func apiRoute(remote, path string) string {
	if len(remote) > 0 && remote[len(remote)-1] == '/' {
		return remote + "api/v1/" + path
	}
	return remote + "/api/v1/" + path
}
