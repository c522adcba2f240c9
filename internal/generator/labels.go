package generator

import (
	"encoding/json"
	"fmt"

	"github.com/insilica/srvc-go/internal/config"
	"github.com/insilica/srvc-go/internal/event"
)

// LabelEvents converts a flow's current labels into hashed "label"
// events, seeding a Source's ordering engine the way a config-defined
// label is turned into the event the rest of the pipeline dedupes and
// orders against.
func LabelEvents(labels []config.Label) ([]*event.Event, error) {
	out := make([]*event.Event, 0, len(labels))
	for _, l := range labels {
		data, err := json.Marshal(l)
		if err != nil {
			return nil, fmt.Errorf("generator: marshaling label %s: %w", l.ID, err)
		}
		e := &event.Event{Type: "label", Data: data}
		if err := event.EnsureHash(e); err != nil {
			return nil, fmt.Errorf("generator: hashing label %s: %w", l.ID, err)
		}
		out = append(out, e)
	}
	return out, nil
}
