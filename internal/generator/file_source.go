package generator

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/insilica/srvc-go/internal/event"
)

// fileSource reads NDJSON from a file path, or stdin when path is "-".
// Output is buffered and reordered per the ordering law before
// replay (Next drains an internal queue).
type fileSource struct {
	queue []*event.Event
	pos   int
}

func newFileSource(path string, labelEvents []*event.Event) (Source, error) {
	var r io.ReadCloser
	if path == "-" {
		r = io.NopCloser(os.Stdin)
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("generator: opening %s: %w", path, err)
		}
		r = f
	}
	defer r.Close()

	o := newOrdering()
	for _, e := range labelEvents {
		o.addLabel(e)
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		e, err := event.Parse(scanner.Text())
		if err != nil {
			return nil, fmt.Errorf("generator: line %d: %w", lineNo, err)
		}
		if e == nil {
			continue
		}
		if err := event.EnsureHash(e); err != nil {
			return nil, fmt.Errorf("generator: line %d: %w", lineNo, err)
		}
		if err := classify(o, e); err != nil {
			return nil, fmt.Errorf("generator: line %d: %w", lineNo, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("generator: reading %s: %w", path, err)
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

func classify(o *ordering, e *event.Event) error {
	switch e.Type {
	case "label":
		o.addLabel(e)
	case "label-answer":
		return o.addAnswer(e)
	case "document":
		o.addDocument(e)
	default:
		o.addOther(e)
	}
	return nil
}

func (s *fileSource) Next() (*event.Event, error) {
	if s.pos >= len(s.queue) {
		return nil, io.EOF
	}
	e := s.queue[s.pos]
	s.pos++
	return e, nil
}

func (s *fileSource) Close() error { return nil }
