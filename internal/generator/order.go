package generator

import (
	"fmt"
	"sort"

	"github.com/insilica/srvc-go/internal/event"
)

// ordering accumulates events from a backend-specific source and
// replays them per the ordering law (spec.md §4.3):
//
//  1. all labels, ascending by hash
//  2. for each label in that order, its label-answer chain, depth
//     first, ordered by (timestamp, hash)
//  3. all other non-document events, in arrival order
//  4. all documents, ordered by (uri NULLS LAST, hash), each followed
//     by its own answer chain
type ordering struct {
	labels          map[string]*event.Event
	otherEvents     []*event.Event
	documents       []*event.Event
	answersByParent map[string][]*event.Event
}

func newOrdering() *ordering {
	return &ordering{
		labels:          make(map[string]*event.Event),
		answersByParent: make(map[string][]*event.Event),
	}
}

func (o *ordering) addLabel(e *event.Event) {
	if e.Hash == nil {
		return
	}
	o.labels[*e.Hash] = e
}

func (o *ordering) addOther(e *event.Event) {
	o.otherEvents = append(o.otherEvents, e)
}

func (o *ordering) addDocument(e *event.Event) {
	o.documents = append(o.documents, e)
}

func (o *ordering) addAnswer(e *event.Event) error {
	data, err := event.ParseLabelAnswerData(e.Data)
	if err != nil {
		hash := ""
		if e.Hash != nil {
			hash = *e.Hash
		}
		return fmt.Errorf("label-answer is missing the \"event\" property (hash %s): %w", hash, err)
	}
	o.answersByParent[data.Event] = append(o.answersByParent[data.Event], e)
	return nil
}

// emit replays the accumulated events in law order through f.
func (o *ordering) emit(f func(*event.Event) error) error {
	for _, answers := range o.answersByParent {
		sortAnswers(answers)
	}

	labelHashes := make([]string, 0, len(o.labels))
	for h := range o.labels {
		labelHashes = append(labelHashes, h)
	}
	sort.Strings(labelHashes)

	for _, h := range labelHashes {
		if err := f(o.labels[h]); err != nil {
			return err
		}
	}
	for _, h := range labelHashes {
		if err := o.walkAnswers(h, f); err != nil {
			return err
		}
	}

	for _, e := range o.otherEvents {
		if err := f(e); err != nil {
			return err
		}
	}

	sortDocuments(o.documents)
	for _, doc := range o.documents {
		if err := f(doc); err != nil {
			return err
		}
		if doc.Hash != nil {
			if err := o.walkAnswers(*doc.Hash, f); err != nil {
				return err
			}
		}
	}

	return nil
}

func (o *ordering) walkAnswers(parentHash string, f func(*event.Event) error) error {
	for _, answer := range o.answersByParent[parentHash] {
		if err := f(answer); err != nil {
			return err
		}
		if answer.Hash != nil {
			if err := o.walkAnswers(*answer.Hash, f); err != nil {
				return err
			}
		}
	}
	return nil
}

func sortAnswers(answers []*event.Event) {
	sort.SliceStable(answers, func(i, j int) bool {
		ti, _ := event.ParseLabelAnswerData(answers[i].Data)
		tj, _ := event.ParseLabelAnswerData(answers[j].Data)
		if ti.Timestamp != tj.Timestamp {
			return ti.Timestamp < tj.Timestamp
		}
		return hashOf(answers[i]) < hashOf(answers[j])
	})
}

func sortDocuments(docs []*event.Event) {
	sort.SliceStable(docs, func(i, j int) bool {
		ui, uj := docs[i].URI, docs[j].URI
		switch {
		case ui == nil && uj == nil:
			return hashOf(docs[i]) < hashOf(docs[j])
		case ui == nil:
			return false // NULLS LAST
		case uj == nil:
			return true
		case *ui != *uj:
			return *ui < *uj
		default:
			return hashOf(docs[i]) < hashOf(docs[j])
		}
	})
}

func hashOf(e *event.Event) string {
	if e.Hash == nil {
		return ""
	}
	return *e.Hash
}
