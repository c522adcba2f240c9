// Package event implements the universal event record: parsing,
// canonical serialization, and content-addressed hashing.
package event

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/fxamacker/cbor/v2"
	"github.com/mr-tron/base58"
	"github.com/multiformats/go-multihash"

	"github.com/insilica/srvc-go/internal/srerr"
)

// Event is the type-tagged, content-addressed record that flows through
// every step.
type Event struct {
	Type  string
	Hash  *string
	Data  json.RawMessage
	URI   *string
	Extra map[string]json.RawMessage
}

// UnmarshalJSON accepts any top-level object, pulling the four named
// fields out and leaving the rest in Extra.
func (e *Event) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("event: %w", err)
	}

	if v, ok := raw["type"]; ok {
		if err := json.Unmarshal(v, &e.Type); err != nil {
			return fmt.Errorf("event: invalid \"type\": %w", err)
		}
		delete(raw, "type")
	}
	if v, ok := raw["hash"]; ok {
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			return fmt.Errorf("event: invalid \"hash\": %w", err)
		}
		e.Hash = &s
		delete(raw, "hash")
	}
	if v, ok := raw["data"]; ok {
		e.Data = v
		delete(raw, "data")
	}
	if v, ok := raw["uri"]; ok {
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			return fmt.Errorf("event: invalid \"uri\": %w", err)
		}
		e.URI = &s
		delete(raw, "uri")
	}

	e.Extra = raw
	return nil
}

// MarshalJSON emits the named fields plus Extra's keys in sorted order,
// per the canonical form invariant (H3). hash is included only when set.
func (e Event) MarshalJSON() ([]byte, error) {
	keys := make([]string, 0, len(e.Extra))
	for k := range e.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf []byte
	buf = append(buf, '{')
	first := true
	writeField := func(name string, raw json.RawMessage) error {
		if !first {
			buf = append(buf, ',')
		}
		first = false
		nameBytes, err := json.Marshal(name)
		if err != nil {
			return err
		}
		buf = append(buf, nameBytes...)
		buf = append(buf, ':')
		buf = append(buf, raw...)
		return nil
	}

	if e.Data != nil {
		if err := writeField("data", e.Data); err != nil {
			return nil, err
		}
	}
	for _, k := range keys {
		if err := writeField(k, e.Extra[k]); err != nil {
			return nil, err
		}
	}
	if e.Hash != nil {
		hb, err := json.Marshal(*e.Hash)
		if err != nil {
			return nil, err
		}
		if err := writeField("hash", hb); err != nil {
			return nil, err
		}
	}
	typeBytes, err := json.Marshal(e.Type)
	if err != nil {
		return nil, err
	}
	if err := writeField("type", typeBytes); err != nil {
		return nil, err
	}
	if e.URI != nil {
		uriBytes, err := json.Marshal(*e.URI)
		if err != nil {
			return nil, err
		}
		if err := writeField("uri", uriBytes); err != nil {
			return nil, err
		}
	}
	buf = append(buf, '}')
	return buf, nil
}

// Clone returns a deep-enough copy of e for safe independent mutation
// (hash rewriting, extra-key editing) without aliasing the original's
// maps.
func (e Event) Clone() Event {
	out := Event{Type: e.Type, Data: append(json.RawMessage(nil), e.Data...)}
	if e.Hash != nil {
		h := *e.Hash
		out.Hash = &h
	}
	if e.URI != nil {
		u := *e.URI
		out.URI = &u
	}
	if e.Extra != nil {
		out.Extra = make(map[string]json.RawMessage, len(e.Extra))
		for k, v := range e.Extra {
			out.Extra[k] = append(json.RawMessage(nil), v...)
		}
	}
	return out
}

var canonicalEncMode = func() cbor.EncMode {
	opts := cbor.CanonicalEncOptions()
	mode, err := opts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("event: failed to build canonical CBOR encoder: %v", err))
	}
	return mode
}()

// canonicalValue builds the flat map used for hashing: data, extra keys,
// type, and uri, with hash always omitted (H3). It round-trips Data
// through interface{} so the CBOR encoder sees a canonical numeric/string
// representation rather than raw JSON text.
func (e Event) canonicalValue() (map[string]interface{}, error) {
	m := make(map[string]interface{}, len(e.Extra)+3)

	if e.Data != nil {
		var v interface{}
		if err := json.Unmarshal(e.Data, &v); err != nil {
			return nil, fmt.Errorf("event: failed to decode data for hashing: %w", err)
		}
		m["data"] = v
	}
	for k, raw := range e.Extra {
		var v interface{}
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("event: failed to decode extra key %q for hashing: %w", k, err)
		}
		m[k] = v
	}
	m["type"] = e.Type
	if e.URI != nil {
		m["uri"] = *e.URI
	}

	return m, nil
}

// Hash computes the base58-encoded SHA-256 multihash of e's canonical
// CBOR encoding with hash elided, regardless of e.Hash's current value.
func Hash(e Event) (string, error) {
	value, err := e.canonicalValue()
	if err != nil {
		return "", err
	}
	bytes, err := canonicalEncMode.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("event: failed to encode canonical CBOR: %w", err)
	}
	mh, err := multihash.Sum(bytes, multihash.SHA2_256, -1)
	if err != nil {
		return "", fmt.Errorf("event: failed to compute multihash: %w", err)
	}
	return base58.Encode(mh), nil
}

// EnsureHash fills in e.Hash if absent, or verifies it if present,
// returning a *srerr.HashMismatch when the declared hash doesn't match
// the computed one (H1).
func EnsureHash(e *Event) error {
	expected, err := Hash(*e)
	if err != nil {
		return err
	}
	if e.Hash == nil || *e.Hash == "" {
		e.Hash = &expected
		return nil
	}
	if *e.Hash != expected {
		return &srerr.HashMismatch{Expected: expected, Found: *e.Hash}
	}
	return nil
}

// Parse parses one NDJSON line into an Event. Blank lines return
// (nil, nil) per the wire format's "blank lines are ignored" rule.
func Parse(line string) (*Event, error) {
	trimmed := trimSpace(line)
	if trimmed == "" {
		return nil, nil
	}
	var e Event
	if err := json.Unmarshal([]byte(line), &e); err != nil {
		return nil, fmt.Errorf("cannot parse line as JSON: %w", err)
	}
	if e.Type == "label-answer" {
		rewritten, err := rewriteLegacyDocumentKey(e)
		if err != nil {
			return nil, err
		}
		e = rewritten
	}
	return &e, nil
}

func trimSpace(s string) string {
	start, end := 0, len(s)
	for start < end && isSpace(s[start]) {
		start++
	}
	for end > start && isSpace(s[end-1]) {
		end--
	}
	return s[start:end]
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\r' || b == '\n'
}
