// Package relate implements relationship extraction over (text, entities)
// pairs: a pattern-template extractor, an AI-extractor stub meant to run
// behind a fallback chain, filtering, and triple-keyed merging, per
// spec.md §4.9. No teacher equivalent exists (goreason's relationship
// extraction is entirely LLM-driven); the regex-template idiom mirrors
// package recognize's pattern tables, applied to entity pairs instead of
// bare text.
package relate

import (
	"context"
	"regexp"
	"sort"

	"github.com/brunobiangulo/knowgraph/graph"
)

// Extractor produces relationships from a document's text and its
// already-recognized entities.
type Extractor interface {
	Extract(ctx context.Context, text string, entities []graph.Entity) ([]graph.Relationship, error)
}

// minDistanceConfidence is the floor the distance penalty clamps to.
const minDistanceConfidence = 0.3

// distancePenaltyFree is how many characters of source-target distance
// are free of any penalty.
const distancePenaltyFree = 50

func distancePenalty(baseConfidence float64, distance int) float64 {
	if distance <= distancePenaltyFree {
		return baseConfidence
	}
	over := distance - distancePenaltyFree
	penalty := 0.05 * float64(over) / 100
	c := baseConfidence - penalty
	if c < minDistanceConfidence {
		c = minDistanceConfidence
	}
	return c
}

// Filter selects relationships meeting minConfidence (if > 0) and whose
// type is in types (if non-empty); mirrors recognize.Filter (spec.md
// §4.9's "filter(relationships, min_confidence?, types?) mirrors C8").
func Filter(relationships []graph.Relationship, minConfidence float64, types []graph.RelationType) []graph.Relationship {
	var typeSet map[graph.RelationType]bool
	if len(types) > 0 {
		typeSet = make(map[graph.RelationType]bool, len(types))
		for _, t := range types {
			typeSet[t] = true
		}
	}

	out := make([]graph.Relationship, 0, len(relationships))
	for _, r := range relationships {
		if minConfidence > 0 && r.Confidence < minConfidence {
			continue
		}
		if typeSet != nil && !typeSet[r.Type] {
			continue
		}
		out = append(out, r)
	}
	return out
}

type tripleKey struct {
	source string
	target string
	relType graph.RelationType
}

// Merge combines relationships from multiple extractors, keeping the
// highest-confidence candidate per (source, target, type) triple and
// unioning metadata from the rest.
func Merge(relationships []graph.Relationship) []graph.Relationship {
	best := make(map[tripleKey]graph.Relationship)
	order := make([]tripleKey, 0)

	for _, r := range relationships {
		key := tripleKey{r.SourceID, r.TargetID, r.Type}
		existing, ok := best[key]
		if !ok {
			best[key] = r
			order = append(order, key)
			continue
		}
		if r.Confidence > existing.Confidence {
			merged := r
			merged.Metadata = unionMetadata(r.Metadata, existing.Metadata)
			best[key] = merged
		} else {
			existing.Metadata = unionMetadata(existing.Metadata, r.Metadata)
			best[key] = existing
		}
	}

	out := make([]graph.Relationship, 0, len(order))
	for _, key := range order {
		out = append(out, best[key])
	}
	return out
}

func unionMetadata(a, b map[string]any) map[string]any {
	out := make(map[string]any, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		if _, exists := out[k]; !exists {
			out[k] = v
		}
	}
	return out
}

var nonWord = regexp.MustCompile(`\s+`)

func collapseSpace(s string) string { return nonWord.ReplaceAllString(s, " ") }

func sortEntitiesBySpanStart(entities []graph.Entity) []graph.Entity {
	spanned := make([]graph.Entity, 0, len(entities))
	for _, e := range entities {
		if e.Span != nil {
			spanned = append(spanned, e)
		}
	}
	sort.Slice(spanned, func(i, j int) bool { return spanned[i].Span.Start < spanned[j].Span.Start })
	return spanned
}
