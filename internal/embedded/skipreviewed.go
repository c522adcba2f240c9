package embedded

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/insilica/srvc-go/internal/event"
)

// readReviewedDocs scans an existing local NDJSON sink file for
// label-answer events by reviewer, returning the set of document
// hashes already reviewed. Every line is parsed as NDJSON; a SQLite
// sink file is not read as a database and fails to parse.
func readReviewedDocs(f *os.File, reviewer string) (map[string]bool, error) {
	hashes := make(map[string]bool)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		e, err := event.Parse(scanner.Text())
		if err != nil {
			return nil, err
		}
		if e == nil || e.Type != "label-answer" {
			continue
		}
		data, err := event.ParseLabelAnswerData(e.Data)
		if err != nil {
			continue
		}
		if data.Reviewer == reviewer {
			hashes[data.Event] = true
		}
	}
	return hashes, scanner.Err()
}

func remoteReviewed(client *http.Client, remote string, doc *event.Event, reviewer string) (bool, error) {
	url := APIRoute(remote, fmt.Sprintf("document/%s/label-answers", *doc.Hash))
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return false, fmt.Errorf("skip-reviewed: building request: %w", err)
	}
	if token := os.Getenv("SRVC_TOKEN"); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := client.Do(req)
	if err != nil {
		return false, fmt.Errorf("skip-reviewed: checking %s: %w", url, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNoContent, http.StatusNotFound:
		return false, nil
	case http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return false, fmt.Errorf("skip-reviewed: reading response: %w", err)
		}
		scanner := bufio.NewScanner(bytes.NewReader(body))
		for scanner.Scan() {
			e, err := event.Parse(scanner.Text())
			if err != nil || e == nil {
				continue
			}
			data, err := event.ParseLabelAnswerData(e.Data)
			if err != nil {
				continue
			}
			if data.Reviewer == reviewer {
				return true, nil
			}
		}
		return false, nil
	default:
		body, _ := io.ReadAll(resp.Body)
		return false, fmt.Errorf("skip-reviewed: unexpected %d status for %s (%s)", resp.StatusCode, url, string(body))
	}
}

// RunSkipReviewed implements the "skip-reviewed" embedded step: drops
// documents this reviewer has already answered a label for, passing
// everything else through unchanged.
func RunSkipReviewed() error {
	env, err := GetEnv()
	if err != nil {
		return err
	}
	cfg, err := GetConfig(env.ConfigPath)
	if err != nil {
		return err
	}
	if cfg.Reviewer == "" {
		return fmt.Errorf("skip-reviewed: \"reviewer\" not set in config")
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

	isRemote := IsRemoteTarget(cfg.DB)
	reviewed := make(map[string]bool)
	if !isRemote {
		if f, err := os.Open(cfg.DB); err == nil {
			reviewed, err = readReviewedDocs(f, cfg.Reviewer)
			f.Close()
			if err != nil {
				return err
			}
		}
	}

	client := &http.Client{Timeout: 30 * time.Second}
	seen := make(map[string]bool)

	for {
		e, err := in.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}

		hash := ""
		if e.Hash != nil {
			hash = *e.Hash
		}

		skip := false
		if e.Type == "document" {
			if isRemote && !reviewed[hash] {
				ok, err := remoteReviewed(client, cfg.DB, e, cfg.Reviewer)
				if err != nil {
					return err
				}
				if ok {
					reviewed[hash] = true
				}
			}
			skip = reviewed[hash]
		}

		if skip {
			continue
		}
		if err := WriteEventDedupe(out, e, seen); err != nil {
			return err
		}
	}
	return out.Flush()
}
