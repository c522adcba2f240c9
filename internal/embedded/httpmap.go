package embedded

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/insilica/srvc-go/internal/config"
	"github.com/insilica/srvc-go/internal/event"
)

type eventsRequest struct {
	Config *config.Config `json:"config"`
	Events []*event.Event `json:"events"`
}

type eventsResponse struct {
	Events []*event.Event `json:"events"`
}

func postEvents(client *http.Client, url string, cfg *config.Config, events []*event.Event) ([]*event.Event, error) {
	body, err := json.Marshal(eventsRequest{Config: cfg, Events: events})
	if err != nil {
		return nil, fmt.Errorf("http-map: marshaling request: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("http-map: building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token := os.Getenv("SRVC_TOKEN"); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http-map: completing request to %s: %w", url, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("http-map: reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("http-map: unexpected %d status for %s", resp.StatusCode, url)
	}

	var er eventsResponse
	if err := json.Unmarshal(respBody, &er); err != nil {
		return nil, fmt.Errorf("http-map: parsing response: %w", err)
	}
	return er.Events, nil
}

// RunHTTPMap implements the "http-map" embedded step: leading
// non-document events pass straight through; each document (plus every
// event that follows it, up to the next document) is POSTed as a batch
// to url, and the response's events are ensure-hashed and written
// downstream in place of the batch.
//
// Whether a response's "control" events (non-document, non-label-answer)
// should also be forwarded downstream, or only consumed by http-map
// itself, is an open question in the upstream protocol; this
// implementation forwards every event the response names, dedup-by-hash,
// matching the conservative "don't drop data" reading. See DESIGN.md.
func RunHTTPMap(url string) error {
	env, err := GetEnv()
	if err != nil {
		return err
	}
	cfg, err := GetConfig(env.ConfigPath)
	if err != nil {
		return err
	}

	in, err := InputEvents(env.Input)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := OutputWriter(env.Output)
	if err != nil {
		return err
	}
	defer out.Close()

	client := &http.Client{Timeout: 300 * time.Second}
	seen := make(map[string]bool)
	var batch []*event.Event

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		results, err := postEvents(client, url, cfg, batch)
		if err != nil {
			return err
		}
		for _, e := range results {
			if err := event.EnsureHash(e); err != nil {
				return err
			}
			if err := WriteEventDedupe(out, e, seen); err != nil {
				return err
			}
		}
		batch = nil
		return nil
	}

	for {
		e, err := in.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}

		if e.Type == "document" {
			if err := flush(); err != nil {
				return err
			}
			batch = []*event.Event{e}
		} else if len(batch) == 0 {
			if err := WriteEventDedupe(out, e, seen); err != nil {
				return err
			}
		} else {
			batch = append(batch, e)
		}
	}
	if err := flush(); err != nil {
		return err
	}
	return out.Flush()
}
