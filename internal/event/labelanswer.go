package event

import (
	"encoding/json"
	"fmt"
)

// LabelAnswerData is the required shape of a label-answer event's data
// property (§3): the document being answered, the label being answered,
// who answered it, when, and the answer itself.
type LabelAnswerData struct {
	Event     string          `json:"event"`
	Label     string          `json:"label"`
	Reviewer  string          `json:"reviewer"`
	Timestamp int64           `json:"timestamp"`
	Answer    json.RawMessage `json:"answer"`
}

// rawLabelAnswerData mirrors LabelAnswerData but additionally accepts the
// legacy "document" alias for "event" (H2), and keeps any further unknown
// keys so they survive the rewrite untouched.
type rawLabelAnswerData struct {
	Event     *string         `json:"event,omitempty"`
	Document  *string         `json:"document,omitempty"`
	Label     string          `json:"label"`
	Reviewer  string          `json:"reviewer"`
	Timestamp int64           `json:"timestamp"`
	Answer    json.RawMessage `json:"answer"`
	Extra     map[string]json.RawMessage
}

func (r *rawLabelAnswerData) UnmarshalJSON(b []byte) error {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	pop := func(key string, dst interface{}) error {
		v, ok := m[key]
		if !ok {
			return nil
		}
		delete(m, key)
		return json.Unmarshal(v, dst)
	}
	if v, ok := m["event"]; ok {
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			return fmt.Errorf("label-answer: invalid \"event\": %w", err)
		}
		r.Event = &s
		delete(m, "event")
	}
	if v, ok := m["document"]; ok {
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			return fmt.Errorf("label-answer: invalid \"document\": %w", err)
		}
		r.Document = &s
		delete(m, "document")
	}
	if err := pop("label", &r.Label); err != nil {
		return fmt.Errorf("label-answer: invalid \"label\": %w", err)
	}
	if err := pop("reviewer", &r.Reviewer); err != nil {
		return fmt.Errorf("label-answer: invalid \"reviewer\": %w", err)
	}
	if err := pop("timestamp", &r.Timestamp); err != nil {
		return fmt.Errorf("label-answer: invalid \"timestamp\": %w", err)
	}
	if v, ok := m["answer"]; ok {
		r.Answer = v
		delete(m, "answer")
	}
	r.Extra = m
	return nil
}

// rewriteLegacyDocumentKey implements H2: a label-answer event whose data
// carries "document" instead of "event" is rewritten to use "event", and
// its hash is recomputed since the canonical bytes changed.
func rewriteLegacyDocumentKey(e Event) (Event, error) {
	if e.Data == nil {
		return e, nil
	}

	var raw rawLabelAnswerData
	if err := json.Unmarshal(e.Data, &raw); err != nil {
		return Event{}, fmt.Errorf("label-answer data: %w", err)
	}

	docHash := raw.Event
	if docHash == nil {
		docHash = raw.Document
	}
	if docHash == nil {
		// Leave validation of missing required fields to the sink/schema
		// layer; parsing alone should not reject structurally odd data.
		return e, nil
	}
	if raw.Document == nil {
		// Already canonical; nothing to rewrite.
		return e, nil
	}

	out := map[string]json.RawMessage{}
	for k, v := range raw.Extra {
		out[k] = v
	}
	eventBytes, err := json.Marshal(*docHash)
	if err != nil {
		return Event{}, err
	}
	out["event"] = eventBytes
	if labelBytes, err := json.Marshal(raw.Label); err == nil {
		out["label"] = labelBytes
	}
	if reviewerBytes, err := json.Marshal(raw.Reviewer); err == nil {
		out["reviewer"] = reviewerBytes
	}
	if raw.Timestamp != 0 {
		if tsBytes, err := json.Marshal(raw.Timestamp); err == nil {
			out["timestamp"] = tsBytes
		}
	}
	if raw.Answer != nil {
		out["answer"] = raw.Answer
	}

	dataBytes, err := marshalSortedObject(out)
	if err != nil {
		return Event{}, err
	}

	rewritten := e.Clone()
	rewritten.Data = dataBytes
	rewritten.Hash = nil
	newHash, err := Hash(rewritten)
	if err != nil {
		return Event{}, err
	}
	rewritten.Hash = &newHash
	return rewritten, nil
}

func marshalSortedObject(m map[string]json.RawMessage) ([]byte, error) {
	// encoding/json already sorts map[string]X keys when marshaling, so a
	// plain Marshal is sufficient here; spelled out for clarity since this
	// is the path that produces the rewritten data bytes used in hashing.
	return json.Marshal(m)
}

// ParseLabelAnswerData decodes and validates an event's data as label-answer
// data. It reads the canonical "event" key, falling back to the legacy
// "document" key when "event" is absent, and fails if neither is present.
func ParseLabelAnswerData(raw json.RawMessage) (*LabelAnswerData, error) {
	var r rawLabelAnswerData
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, err
	}
	docHash := r.Event
	if docHash == nil {
		docHash = r.Document
	}
	if docHash == nil {
		return nil, fmt.Errorf("label-answer is missing the \"event\" property")
	}
	return &LabelAnswerData{
		Event:     *docHash,
		Label:     r.Label,
		Reviewer:  r.Reviewer,
		Timestamp: r.Timestamp,
		Answer:    r.Answer,
	}, nil
}
