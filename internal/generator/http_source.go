package generator

import (
	"bufio"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/insilica/srvc-go/internal/event"
)

// newHTTPSource GETs an NDJSON document from a URL and orders it the
// same way newFileSource orders a local file. SRVC_TOKEN, if set, is
// sent as a Bearer token, matching the schema service's fetch
// convention.
func newHTTPSource(url string, labelEvents []*event.Event) (Source, error) {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("generator: building request for %s: %w", url, err)
	}
	if token := os.Getenv("SRVC_TOKEN"); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	client := &http.Client{Timeout: 60 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("generator: fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("generator: unexpected %d status fetching %s", resp.StatusCode, url)
	}

	o := newOrdering()
	for _, e := range labelEvents {
		o.addLabel(e)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		e, err := event.Parse(scanner.Text())
		if err != nil {
			return nil, fmt.Errorf("generator: %s line %d: %w", url, lineNo, err)
		}
		if e == nil {
			continue
		}
		if err := event.EnsureHash(e); err != nil {
			return nil, fmt.Errorf("generator: %s line %d: %w", url, lineNo, err)
		}
		if err := classify(o, e); err != nil {
			return nil, fmt.Errorf("generator: %s line %d: %w", url, lineNo, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("generator: reading %s: %w", url, err)
	}

	var ordered []*event.Event
	if err := o.emit(func(e *event.Event) error {
		ordered = append(ordered, e)
		return nil
	}); err != nil {
		return nil, err
	}

	return &fileSource{queue: ordered}, nil
}
