package recognize

import (
	"context"
	"regexp"
	"strings"

	"github.com/brunobiangulo/knowgraph/graph"
)

// DictEntry is one {type, base confidence} dictionary value.
type DictEntry struct {
	Type            graph.EntityType
	BaseConfidence  float64
}

// DictionaryRecognizer matches a fixed vocabulary of lowercased surface
// forms as whole words, independent of the regex pattern tables. This is
// the only recognizer MINIMAL-level extraction keeps, per spec.md §4.12.
type DictionaryRecognizer struct {
	// Terms maps a lowercased surface form to its dictionary entry.
	Terms map[string]DictEntry
}

// NewDictionaryRecognizer builds a DictionaryRecognizer from a
// {surface: (type, confidence)} table, lowercasing every key so lookups
// are case-insensitive by construction.
func NewDictionaryRecognizer(terms map[string]DictEntry) *DictionaryRecognizer {
	lowered := make(map[string]DictEntry, len(terms))
	for k, v := range terms {
		lowered[strings.ToLower(k)] = v
	}
	return &DictionaryRecognizer{Terms: lowered}
}

func (r *DictionaryRecognizer) Recognize(ctx context.Context, text string) ([]graph.Entity, error) {
	var entities []graph.Entity

	for surface, entry := range r.Terms {
		re := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(surface) + `\b`)
		matches := re.FindAllStringIndex(text, -1)
		for _, m := range matches {
			start, end := m[0], m[1]
			span := &graph.Span{Start: start, End: end}
			e := graph.NewEntity(text[start:end], entry.Type, entry.BaseConfidence, span)
			e.Metadata["recognizer"] = "dictionary"
			entities = append(entities, e)
		}
	}

	return entities, nil
}

