// Package config defines the resolved run configuration passed between
// the supervisor and its children, and a best-effort loader for reading
// it from a project's sr.yaml.
package config

import (
	"encoding/json"
	"sort"
)

// Label is a reviewer prompt: its schema may be an inline object, a
// URI, or one of the "boolean"/"string" aliases resolved by
// internal/schema.
type Label struct {
	ID         string                     `json:"id"`
	Question   string                     `json:"question,omitempty"`
	Required   bool                       `json:"required,omitempty"`
	JSONSchema json.RawMessage            `json:"json_schema,omitempty"`
	Hash       *string                    `json:"hash,omitempty"`
	Extra      map[string]json.RawMessage `json:"-"`
}

// MarshalJSON flattens Extra alongside the named fields, matching the
// event wire format's "extra keys live at the top level" convention.
func (l Label) MarshalJSON() ([]byte, error) {
	m := map[string]json.RawMessage{}
	for k, v := range l.Extra {
		m[k] = v
	}
	if b, err := json.Marshal(l.ID); err == nil {
		m["id"] = b
	}
	if l.Question != "" {
		if b, err := json.Marshal(l.Question); err == nil {
			m["question"] = b
		}
	}
	if l.Required {
		if b, err := json.Marshal(l.Required); err == nil {
			m["required"] = b
		}
	}
	if l.JSONSchema != nil {
		m["json_schema"] = l.JSONSchema
	}
	if l.Hash != nil {
		if b, err := json.Marshal(*l.Hash); err == nil {
			m["hash"] = b
		}
	}
	return marshalSorted(m)
}

func (l *Label) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	pop := func(key string, dst interface{}) error {
		v, ok := raw[key]
		if !ok {
			return nil
		}
		delete(raw, key)
		return json.Unmarshal(v, dst)
	}
	if err := pop("id", &l.ID); err != nil {
		return err
	}
	if err := pop("question", &l.Question); err != nil {
		return err
	}
	if err := pop("required", &l.Required); err != nil {
		return err
	}
	if v, ok := raw["json_schema"]; ok {
		l.JSONSchema = v
		delete(raw, "json_schema")
	}
	if v, ok := raw["hash"]; ok {
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			return err
		}
		l.Hash = &s
		delete(raw, "hash")
	}
	l.Extra = raw
	return nil
}

func marshalSorted(m map[string]json.RawMessage) ([]byte, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf []byte
	buf = append(buf, '{')
	for i, k := range keys {
		if i > 0 {
			buf = append(buf, ',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf = append(buf, kb...)
		buf = append(buf, ':')
		buf = append(buf, m[k]...)
	}
	buf = append(buf, '}')
	return buf, nil
}

// Step is a unit of computation in a flow: either an external command
// (Run) or a built-in (RunEmbedded), with a label allow-list, an env
// allow-list for forwarding identifiers like SRVC_TOKEN, and free-form
// Extra.
type Step struct {
	Labels       []string               `json:"labels,omitempty"`
	Run          string                 `json:"run,omitempty"`
	RunEmbedded  string                 `json:"run-embedded,omitempty"`
	Uses         string                 `json:"uses,omitempty"`
	Env          []string               `json:"env,omitempty"`
	Extra        map[string]interface{} `json:"extra,omitempty"`
}

// Flow is an ordered list of Steps.
type Flow []Step

// Source is a Step that acts as an event generator, run before a
// flow's own steps.
type Source = Step

// Config is the resolved, per-invocation root object materialised by
// the supervisor and handed to each child via SR_CONFIG. CurrentStep
// and CurrentLabels are set fresh for every step execution; the rest
// is shared verbatim across the whole run.
type Config struct {
	DB                string          `json:"db,omitempty"`
	Reviewer          string          `json:"reviewer,omitempty"`
	Labels            map[string]Label `json:"labels,omitempty"`
	Flows             map[string]Flow  `json:"flows,omitempty"`
	Sources           []Source        `json:"sources,omitempty"`
	SinkControlEvents bool            `json:"sink_control_events,omitempty"`

	CurrentStep   *Step   `json:"current_step,omitempty"`
	CurrentLabels []Label `json:"current_labels,omitempty"`
}

// Clone returns a deep-enough copy of cfg so the supervisor can safely
// set CurrentStep/CurrentLabels per child without aliasing shared
// state across concurrently-running steps.
func (cfg *Config) Clone() *Config {
	if cfg == nil {
		return nil
	}
	out := *cfg
	out.Labels = cloneLabelMap(cfg.Labels)
	out.Flows = cloneFlowMap(cfg.Flows)
	out.Sources = append([]Source(nil), cfg.Sources...)
	if cfg.CurrentStep != nil {
		step := *cfg.CurrentStep
		out.CurrentStep = &step
	}
	out.CurrentLabels = append([]Label(nil), cfg.CurrentLabels...)
	return &out
}

func cloneLabelMap(in map[string]Label) map[string]Label {
	if in == nil {
		return nil
	}
	out := make(map[string]Label, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func cloneFlowMap(in map[string]Flow) map[string]Flow {
	if in == nil {
		return nil
	}
	out := make(map[string]Flow, len(in))
	for k, v := range in {
		out[k] = append(Flow(nil), v...)
	}
	return out
}

// ForStep returns a per-child copy of cfg with CurrentStep and
// CurrentLabels populated: CurrentLabels is the subset of cfg.Labels
// named in step.Labels, in the order step.Labels lists them.
func (cfg *Config) ForStep(step Step) *Config {
	out := cfg.Clone()
	stepCopy := step
	out.CurrentStep = &stepCopy
	out.CurrentLabels = make([]Label, 0, len(step.Labels))
	for _, id := range step.Labels {
		if l, ok := cfg.Labels[id]; ok {
			out.CurrentLabels = append(out.CurrentLabels, l)
		}
	}
	return out
}
