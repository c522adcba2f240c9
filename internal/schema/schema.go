// Package schema compiles and caches the JSON schemas label answers are
// validated against: embedded copies, their well-known alias URLs, and
// a fallback HTTP fetch for anything else.
package schema

import (
	"embed"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed testdata/*.json
var embeddedFS embed.FS

var embeddedNames = map[string]string{
	"label-answer/boolean-v1": "testdata/label-answer-boolean-v1.json",
	"label-answer/boolean-v2": "testdata/label-answer-boolean-v2.json",
	"label-answer/string-v1":  "testdata/label-answer-string-v1.json",
	"label-answer/string-v2":  "testdata/label-answer-string-v2.json",
}

// aliasURLs returns the canonical URLs a name is reachable under, per
// spec.md's "docs.sysrev.com, raw.githubusercontent.com, http and
// https" alias table.
func aliasURLs(name string) []string {
	return []string{
		fmt.Sprintf("http://docs.sysrev.com/schema/%s.json", name),
		fmt.Sprintf("https://docs.sysrev.com/schema/%s.json", name),
		fmt.Sprintf("http://raw.githubusercontent.com/insilica/rs-srvc/master/src/schema/%s.json", name),
		fmt.Sprintf("https://raw.githubusercontent.com/insilica/rs-srvc/master/src/schema/%s.json", name),
	}
}

var (
	embeddedByURL     map[string]json.RawMessage
	embeddedByURLOnce sync.Once
)

func embeddedDocuments() map[string]json.RawMessage {
	embeddedByURLOnce.Do(func() {
		embeddedByURL = make(map[string]json.RawMessage)
		for name, path := range embeddedNames {
			data, err := embeddedFS.ReadFile(path)
			if err != nil {
				panic(fmt.Sprintf("schema: missing embedded schema %s: %v", path, err))
			}
			for _, url := range aliasURLs(name) {
				embeddedByURL[url] = json.RawMessage(data)
			}
		}
	})
	return embeddedByURL
}

// Alias names resolve directly to an embedded schema without going
// through the URL table, matching "boolean"/"string" shorthand used in
// config.Label.JSONSchema.
var shortAliases = map[string]string{
	"boolean": "label-answer/boolean-v2",
	"string":  "label-answer/string-v2",
}

// Service compiles and caches gojsonschema.Schema values.
type Service struct {
	httpClient *http.Client
	token      string

	cache sync.Map // map[string]*gojsonschema.Schema, keyed by the resolved schema bytes
}

// NewService returns a Service using client, or an http.Client with a
// 30-second timeout when client is nil. token, if set, is sent as a Bearer token on schema
// fetches that miss the embedded table.
func NewService(client *http.Client, token string) *Service {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Service{httpClient: client, token: token}
}

// Resolve turns a config.Label.JSONSchema value (alias string, URL
// string, or inline object) into schema bytes, following the
// alias-lookup -> embedded-URL -> HTTP-GET resolution order.
func (s *Service) Resolve(raw json.RawMessage) (json.RawMessage, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("schema: empty json_schema reference")
	}

	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		if canonical, ok := shortAliases[asString]; ok {
			asString = canonical
		}
		if body, ok := embeddedDocuments()[asString]; ok {
			return body, nil
		}
		if name, ok := lookupEmbeddedName(asString); ok {
			return embeddedDocuments()[aliasURLs(name)[0]], nil
		}
		return s.fetch(asString)
	}

	// Inline object: used as-is.
	return raw, nil
}

func lookupEmbeddedName(aliasOrURL string) (string, bool) {
	if _, ok := embeddedNames[aliasOrURL]; ok {
		return aliasOrURL, true
	}
	for name := range embeddedNames {
		for _, url := range aliasURLs(name) {
			if url == aliasOrURL {
				return name, true
			}
		}
	}
	return "", false
}

func (s *Service) fetch(url string) (json.RawMessage, error) {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("schema: building request for %s: %w", url, err)
	}
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("schema: fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("schema: reading response from %s: %w", url, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("schema: unexpected %d status for %s (%s)", resp.StatusCode, url, string(body))
	}
	return json.RawMessage(body), nil
}

// Compile resolves and compiles raw into a cached *gojsonschema.Schema.
func (s *Service) Compile(raw json.RawMessage) (*gojsonschema.Schema, error) {
	resolved, err := s.Resolve(raw)
	if err != nil {
		return nil, err
	}
	key := string(resolved)
	if cached, ok := s.cache.Load(key); ok {
		return cached.(*gojsonschema.Schema), nil
	}
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(resolved))
	if err != nil {
		return nil, fmt.Errorf("schema: compiling: %w", err)
	}
	actual, _ := s.cache.LoadOrStore(key, compiled)
	return actual.(*gojsonschema.Schema), nil
}

// ValidationFailure is one gojsonschema result error, reformatted with
// the instance's JSON-Pointer-shaped path and a human message.
type ValidationFailure struct {
	Path    string
	Message string
}

// Validate compiles raw (if needed) and checks instance against it,
// returning the list of validation failures (empty on success).
func (s *Service) Validate(raw json.RawMessage, instance json.RawMessage) ([]ValidationFailure, error) {
	compiled, err := s.Compile(raw)
	if err != nil {
		return nil, err
	}
	result, err := compiled.Validate(gojsonschema.NewBytesLoader(instance))
	if err != nil {
		return nil, fmt.Errorf("schema: validating: %w", err)
	}
	if result.Valid() {
		return nil, nil
	}
	failures := make([]ValidationFailure, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		failures = append(failures, ValidationFailure{Path: e.Field(), Message: e.Description()})
	}
	return failures, nil
}
