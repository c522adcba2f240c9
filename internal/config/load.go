package config

import (
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/insilica/srvc-go/internal/srerr"
)

// yamlConfig is the on-disk sr.yaml shape. It intentionally mirrors
// only the fields this module resolves itself; alias resolution,
// multi-file flow/source merging, and "uses:" flake translation are
// left to the out-of-scope collaborator named in the system overview
// and are not attempted here.
type yamlConfig struct {
	DB                string                   `yaml:"db"`
	Reviewer          string                   `yaml:"reviewer"`
	Labels            map[string]yamlLabel     `yaml:"labels"`
	Flows             map[string][]yamlStep    `yaml:"flows"`
	Sources           []yamlStep               `yaml:"sources"`
	SinkControlEvents bool                     `yaml:"sink_control_events"`
}

type yamlLabel struct {
	Question   string      `yaml:"question"`
	Required   bool        `yaml:"required"`
	JSONSchema interface{} `yaml:"json_schema"`
}

type yamlStep struct {
	Labels      []string `yaml:"labels"`
	Run         string   `yaml:"run"`
	RunEmbedded string   `yaml:"run-embedded"`
	Uses        string   `yaml:"uses"`
	Env         []string `yaml:"env"`
}

// Load reads path (an sr.yaml file) into a Config. It does not resolve
// schema aliases, fetch remote schemas, or merge multiple config
// sources; see the yamlConfig comment.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &srerr.ConfigError{Context: fmt.Sprintf("reading %s", path), Err: err}
	}

	var raw yamlConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &srerr.ConfigError{Context: fmt.Sprintf("parsing %s", path), Err: err}
	}

	cfg := &Config{
		DB:                raw.DB,
		Reviewer:          raw.Reviewer,
		SinkControlEvents: raw.SinkControlEvents,
	}

	if len(raw.Labels) > 0 {
		cfg.Labels = make(map[string]Label, len(raw.Labels))
		for id, yl := range raw.Labels {
			schemaBytes, err := yamlSchemaToJSON(yl.JSONSchema)
			if err != nil {
				return nil, &srerr.ConfigError{Context: fmt.Sprintf("label %q json_schema", id), Err: err}
			}
			cfg.Labels[id] = Label{
				ID:         id,
				Question:   yl.Question,
				Required:   yl.Required,
				JSONSchema: schemaBytes,
			}
		}
	}

	if len(raw.Flows) > 0 {
		cfg.Flows = make(map[string]Flow, len(raw.Flows))
		for name, steps := range raw.Flows {
			cfg.Flows[name] = toSteps(steps)
		}
	}

	if len(raw.Sources) > 0 {
		cfg.Sources = toSteps(raw.Sources)
	}

	return cfg, nil
}

// ParseFlowDef parses an ad hoc flow definition passed as a JSON string
// (the `--def` flag's payload) into a Flow. The JSON shape mirrors a
// flow's steps in sr.yaml (YAML is a superset of JSON, so the same
// yamlStep tags apply unchanged).
func ParseFlowDef(def string) (Flow, error) {
	var steps []yamlStep
	if err := yaml.Unmarshal([]byte(def), &steps); err != nil {
		return nil, &srerr.ConfigError{Context: "parsing --def flow definition", Err: err}
	}
	return toSteps(steps), nil
}

func toSteps(in []yamlStep) []Step {
	out := make([]Step, 0, len(in))
	for _, s := range in {
		out = append(out, Step{
			Labels:      s.Labels,
			Run:         s.Run,
			RunEmbedded: s.RunEmbedded,
			Uses:        s.Uses,
			Env:         s.Env,
		})
	}
	return out
}

// yamlSchemaToJSON normalizes a YAML-decoded json_schema value (which
// may be a bare alias string, a URI string, or an inline mapping) into
// the json.RawMessage shape internal/schema expects.
func yamlSchemaToJSON(v interface{}) (json.RawMessage, error) {
	if v == nil {
		return nil, nil
	}
	normalized := normalizeYAMLValue(v)
	return json.Marshal(normalized)
}

// normalizeYAMLValue converts map[interface{}]interface{} nodes that
// gopkg.in/yaml.v3 can still produce (via interface{} decode targets)
// into map[string]interface{} so encoding/json can mershal them.
func normalizeYAMLValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			out[k] = normalizeYAMLValue(val)
		}
		return out
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			out[fmt.Sprintf("%v", k)] = normalizeYAMLValue(val)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, val := range t {
			out[i] = normalizeYAMLValue(val)
		}
		return out
	default:
		return t
	}
}
