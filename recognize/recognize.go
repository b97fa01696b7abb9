// Package recognize implements entity recognition over plain text:
// pattern-based, dictionary-based, and augmentation passes (relational
// and citation), plus the shared confidence heuristics and post-processing
// (filter, merge_overlapping) from spec.md §4.8. No teacher equivalent
// exists (goreason delegates entity recognition entirely to an LLM); the
// per-type regex table technique is grounded on graph/builder.go's
// preExtractIdentifiers, generalized from a flat hint list into typed,
// spanned, confidence-scored entities.
package recognize

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/brunobiangulo/knowgraph/graph"
)

// Recognizer produces entities from a document's text.
type Recognizer interface {
	Recognize(ctx context.Context, text string) ([]graph.Entity, error)
}

// baseConfidence is the starting point for every pattern/dictionary match
// before heuristic adjustments, per spec.md §4.8.
const baseConfidence = 0.7

// contextWindow is how many characters on either side of a match are
// inspected for positive-context-cue and discourse-cue heuristics.
const contextWindow = 50

func surroundingWindow(text string, start, end, radius int) string {
	lo := start - radius
	if lo < 0 {
		lo = 0
	}
	hi := end + radius
	if hi > len(text) {
		hi = len(text)
	}
	return text[lo:hi]
}

func hasLeadingUppercase(s string) bool {
	for _, r := range s {
		return unicode.IsUpper(r)
	}
	return false
}

func containsAny(haystack string, needles []string) bool {
	lower := strings.ToLower(haystack)
	for _, n := range needles {
		if n == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(n)) {
			return true
		}
	}
	return false
}

var numericToken = regexp.MustCompile(`\d`)
var hypothesisIfThen = regexp.MustCompile(`(?i)\bif\b.*\bthen\b`)

// scientificDiscourseCues are stock phrases that indicate a scientific
// claim is being made in the surrounding context.
var scientificDiscourseCues = []string{
	"we propose", "we show", "our results", "experiments demonstrate",
	"in contrast to", "prior work", "we observe", "this suggests",
}

// confidenceParams bundles the per-recognizer inputs the heuristic table
// needs beyond the match itself.
type confidenceParams struct {
	entityType         graph.EntityType
	surface            string
	context            string
	positiveContextCue []string
}

// computeConfidence applies spec.md §4.8's confidence heuristics
// additively to the 0.7 base, clamped to [0,1] by graph.NewEntity.
func computeConfidence(p confidenceParams) float64 {
	c := baseConfidence

	if (p.entityType == graph.EntityModel || p.entityType == graph.EntityFramework) && hasLeadingUppercase(p.surface) {
		c += 0.1
	}
	if len(p.positiveContextCue) > 0 && containsAny(p.context, p.positiveContextCue) {
		c += 0.1
	}

	n := len(p.surface)
	if n < 3 {
		c -= 0.2
	} else if n > 20 {
		if p.entityType == graph.EntityFinding || p.entityType == graph.EntityHypothesis {
			c -= 0.1
		} else {
			c -= 0.2
		}
	}

	if p.entityType == graph.EntityFinding && numericToken.MatchString(p.surface) {
		c += 0.15
	}
	if p.entityType == graph.EntityHypothesis && hypothesisIfThen.MatchString(p.surface) {
		c += 0.1
	}
	if containsAny(p.context, scientificDiscourseCues) {
		c += 0.05
	}

	return c
}

// Filter selects entities meeting minConfidence (if > 0) and whose type
// is in types (if non-empty), mirroring spec.md §4.8's filter(entities,
// min_confidence?, types?).
func Filter(entities []graph.Entity, minConfidence float64, types []graph.EntityType) []graph.Entity {
	var typeSet map[graph.EntityType]bool
	if len(types) > 0 {
		typeSet = make(map[graph.EntityType]bool, len(types))
		for _, t := range types {
			typeSet[t] = true
		}
	}

	out := make([]graph.Entity, 0, len(entities))
	for _, e := range entities {
		if minConfidence > 0 && e.Confidence < minConfidence {
			continue
		}
		if typeSet != nil && !typeSet[e.Type] {
			continue
		}
		out = append(out, e)
	}
	return out
}

// MergeOverlapping deduplicates entities by span using spec.md §4.8's
// rule: sort by (start asc, length desc); for each candidate, compare
// against already-accepted entities sharing any character; drop if
// contained, replace if it strictly contains an accepted one at >=
// confidence, otherwise keep the higher-confidence one (ties favour the
// earlier accepted entity). Entities without spans pass through
// unchanged, appended at the end.
func MergeOverlapping(entities []graph.Entity) []graph.Entity {
	var spanned []graph.Entity
	var unspanned []graph.Entity
	for _, e := range entities {
		if e.Span != nil {
			spanned = append(spanned, e)
		} else {
			unspanned = append(unspanned, e)
		}
	}

	sort.SliceStable(spanned, func(i, j int) bool {
		si, sj := spanned[i].Span, spanned[j].Span
		if si.Start != sj.Start {
			return si.Start < sj.Start
		}
		li := si.End - si.Start
		lj := sj.End - sj.Start
		return li > lj
	})

	var accepted []graph.Entity

	overlaps := func(a, b *graph.Span) bool {
		return a.Start < b.End && b.Start < a.End
	}
	contains := func(outer, inner *graph.Span) bool {
		return outer.Start <= inner.Start && inner.End <= outer.End
	}

	for _, cand := range spanned {
		replacedIdx := -1
		dropped := false

		for i, acc := range accepted {
			if !overlaps(cand.Span, acc.Span) {
				continue
			}
			switch {
			case contains(acc.Span, cand.Span):
				dropped = true
			case contains(cand.Span, acc.Span):
				if cand.Confidence >= acc.Confidence {
					replacedIdx = i
				} else {
					dropped = true
				}
			default:
				if cand.Confidence > acc.Confidence {
					replacedIdx = i
				} else {
					dropped = true
				}
			}
			if dropped || replacedIdx >= 0 {
				break
			}
		}

		switch {
		case dropped:
			continue
		case replacedIdx >= 0:
			accepted[replacedIdx] = cand
		default:
			accepted = append(accepted, cand)
		}
	}

	return append(accepted, unspanned...)
}
