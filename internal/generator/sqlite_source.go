package generator

import (
	"fmt"

	"github.com/insilica/srvc-go/internal/event"
	"github.com/insilica/srvc-go/internal/sqlitestore"
)

// newSQLiteSource reads a SQLite content store and replays its
// contents per the ordering law. The store's own queries already sort
// documents/labels/answers; this still routes everything through the
// shared ordering engine so the law is expressed in exactly one place.
func newSQLiteSource(path string, labelEvents []*event.Event) (Source, error) {
	store, err := sqlitestore.OpenRO(path)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	o := newOrdering()
	for _, e := range labelEvents {
		o.addLabel(e)
	}

	dbLabels, err := store.Labels()
	if err != nil {
		return nil, fmt.Errorf("generator: %w", err)
	}
	for _, e := range dbLabels {
		o.addLabel(e)
	}

	other, err := store.OtherEvents()
	if err != nil {
		return nil, fmt.Errorf("generator: %w", err)
	}
	for _, e := range other {
		o.addOther(e)
	}

	documents, err := store.Documents()
	if err != nil {
		return nil, fmt.Errorf("generator: %w", err)
	}
	for _, e := range documents {
		o.addDocument(e)
	}

	seen := make(map[string]bool)
	var collectAnswers func(parentHash string) error
	collectAnswers = func(parentHash string) error {
		if parentHash == "" || seen[parentHash] {
			return nil
		}
		seen[parentHash] = true
		answers, err := store.LabelAnswersForEvent(parentHash)
		if err != nil {
			return fmt.Errorf("generator: %w", err)
		}
		for _, a := range answers {
			if err := o.addAnswer(a); err != nil {
				return err
			}
			if a.Hash != nil {
				if err := collectAnswers(*a.Hash); err != nil {
					return err
				}
			}
		}
		return nil
	}

	for _, l := range o.labels {
		if l.Hash != nil {
			if err := collectAnswers(*l.Hash); err != nil {
				return nil, err
			}
		}
	}
	for _, d := range documents {
		if d.Hash != nil {
			if err := collectAnswers(*d.Hash); err != nil {
				return nil, err
			}
		}
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
