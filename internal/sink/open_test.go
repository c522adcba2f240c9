package sink

import (
	"path/filepath"
	"testing"
)

func TestOpenDispatchesFileBackendByDefault(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "events.ndjson"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()
	if _, ok := s.(*fileSink); !ok {
		t.Fatalf("expected *fileSink, got %T", s)
	}
}

func TestOpenDispatchesHTTPBackendForURLs(t *testing.T) {
	s, err := Open("https://example.org/project")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()
	if _, ok := s.(*httpSink); !ok {
		t.Fatalf("expected *httpSink, got %T", s)
	}
}
