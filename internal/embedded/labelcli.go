package embedded

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/insilica/srvc-go/internal/config"
	"github.com/insilica/srvc-go/internal/event"
)

// labelDialect names one of the three interactive prompt styles a
// label can use. "type" is carried for backwards compatibility in
// config.Label.Extra; new configs should prefer json_schema, but the
// CLI still needs a dialect to decide how to prompt.
type labelDialect string

const (
	dialectBoolean     labelDialect = "boolean"
	dialectCategorical labelDialect = "categorical"
	dialectString      labelDialect = "string"
)

func resolveDialect(l config.Label) (labelDialect, error) {
	if raw, ok := l.Extra["type"]; ok {
		var t string
		if err := json.Unmarshal(raw, &t); err == nil {
			switch strings.ToLower(t) {
			case "boolean":
				return dialectBoolean, nil
			case "categorical":
				return dialectCategorical, nil
			case "string":
				return dialectString, nil
			default:
				return "", fmt.Errorf("label-cli: unknown label type (%s): %s", l.ID, t)
			}
		}
	}
	if len(l.JSONSchema) > 0 {
		var alias string
		if err := json.Unmarshal(l.JSONSchema, &alias); err == nil {
			switch {
			case strings.Contains(alias, "boolean"):
				return dialectBoolean, nil
			case strings.Contains(alias, "string"):
				return dialectString, nil
			}
		}
	}
	return "", fmt.Errorf("label-cli: unknown label type (%s)", l.ID)
}

func answerData(l config.Label, doc *event.Event, reviewer string, answer interface{}, timestamp int64) (json.RawMessage, error) {
	m := map[string]interface{}{
		"event":     *doc.Hash,
		"label":     *l.Hash,
		"reviewer":  reviewer,
		"timestamp": timestamp,
		"answer":    answer,
	}
	return json.Marshal(m)
}

func newAnswerEvent(data json.RawMessage) (*event.Event, error) {
	e := &event.Event{Type: "label-answer", Data: data}
	if err := event.EnsureHash(e); err != nil {
		return nil, err
	}
	return e, nil
}

func printDocument(doc *event.Event) {
	pretty, err := json.MarshalIndent(json.RawMessage(doc.Data), "", "  ")
	if err == nil {
		fmt.Println(string(pretty))
	}
	if doc.URI != nil {
		fmt.Println(*doc.URI)
	}
	fmt.Println()
}

func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func readBoolean(r *bufio.Reader, l config.Label, doc *event.Event, reviewer string, ts int64) (*event.Event, error) {
	fmt.Printf("%s ", l.Question)
	for {
		if l.Required {
			fmt.Print("[Yes/No]")
		} else {
			fmt.Print("[Yes/No/Skip]")
		}
		line, err := readLine(r)
		if err != nil {
			return nil, err
		}
		s := strings.ToLower(line)
		switch {
		case s == "":
			continue
		case strings.HasPrefix("yes", s):
			data, err := answerData(l, doc, reviewer, true, ts)
			if err != nil {
				return nil, err
			}
			return newAnswerEvent(data)
		case strings.HasPrefix("no", s):
			data, err := answerData(l, doc, reviewer, false, ts)
			if err != nil {
				return nil, err
			}
			return newAnswerEvent(data)
		case !l.Required && strings.HasPrefix("skip", s):
			return nil, nil
		}
	}
}

func categories(l config.Label) []string {
	raw, ok := l.Extra["categories"]
	if !ok {
		return nil
	}
	var cats []string
	_ = json.Unmarshal(raw, &cats)
	return cats
}

func readCategorical(r *bufio.Reader, l config.Label, doc *event.Event, reviewer string, ts int64) (*event.Event, error) {
	fmt.Println(l.Question)
	cats := categories(l)
	for i, cat := range cats {
		fmt.Printf("%d. %s\n", i+1, cat)
	}
	skipIndex := len(cats) + 1
	if !l.Required {
		fmt.Printf("%d. Skip Question\n", skipIndex)
	}
	for {
		fmt.Print("? ")
		line, err := readLine(r)
		if err != nil {
			return nil, err
		}
		n, convErr := strconv.Atoi(line)
		if convErr != nil || n == 0 {
			continue
		}
		if n >= 1 && n <= len(cats) {
			data, err := answerData(l, doc, reviewer, cats[n-1], ts)
			if err != nil {
				return nil, err
			}
			return newAnswerEvent(data)
		}
		if !l.Required && n == skipIndex {
			return nil, nil
		}
	}
}

func readString(r *bufio.Reader, l config.Label, doc *event.Event, reviewer string, ts int64) (*event.Event, error) {
	fmt.Printf("%s? ", l.Question)
	for {
		line, err := readLine(r)
		if err != nil {
			return nil, err
		}
		if line != "" {
			data, err := answerData(l, doc, reviewer, line, ts)
			if err != nil {
				return nil, err
			}
			return newAnswerEvent(data)
		}
		if !l.Required {
			return nil, nil
		}
	}
}

func readAnswer(r *bufio.Reader, l config.Label, doc *event.Event, reviewer string, ts int64) (*event.Event, error) {
	dialect, err := resolveDialect(l)
	if err != nil {
		return nil, err
	}
	switch dialect {
	case dialectBoolean:
		return readBoolean(r, l, doc, reviewer, ts)
	case dialectCategorical:
		return readCategorical(r, l, doc, reviewer, ts)
	case dialectString:
		return readString(r, l, doc, reviewer, ts)
	default:
		return nil, fmt.Errorf("label-cli: unknown label type (%s)", l.ID)
	}
}

// RunLabelCLI implements the "label-cli" embedded step: echoes every
// input event downstream, and for each document prints it and prompts
// the reviewer for an answer to every label on the current step.
func RunLabelCLI() error {
	env, err := GetEnv()
	if err != nil {
		return err
	}
	cfg, err := GetConfig(env.ConfigPath)
	if err != nil {
		return err
	}
	if cfg.Reviewer == "" {
		return fmt.Errorf("label-cli: \"reviewer\" not set in config")
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

	stdin := bufio.NewReader(os.Stdin)
	seen := make(map[string]bool)

	for {
		e, err := in.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		if err := WriteEventDedupe(out, e, seen); err != nil {
			return err
		}

		if e.Type == "document" {
			printDocument(e)
			for _, l := range cfg.CurrentLabels {
				ts, err := Now()
				if err != nil {
					return err
				}
				answer, err := readAnswer(stdin, l, e, cfg.Reviewer, ts)
				if err != nil {
					return err
				}
				if answer == nil {
					continue
				}
				if err := WriteEventDedupe(out, answer, seen); err != nil {
					return err
				}
			}
		}
	}
	return out.Flush()
}
