// Package compose implements the C10 composite recognizer/extractor:
// parallel fan-out over multiple recognizers/extractors plus deterministic
// conflict resolution (exact-span grouping, type-priority arbitration,
// metadata union), per spec.md §4.10. Fan-out concurrency is adapted
// directly from graph.Builder.Build's semaphore-bounded goroutine pool
// (sem chan struct{}, sync.WaitGroup, per-unit timeout), applied here to
// recognizers/extractors instead of chunks.
package compose

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/brunobiangulo/knowgraph/graph"
	"github.com/brunobiangulo/knowgraph/recognize"
	"github.com/brunobiangulo/knowgraph/relate"
)

// defaultConcurrency bounds fan-out parallelism when Concurrency is unset.
const defaultConcurrency = 4

// defaultPerUnitTimeout caps how long a single recognizer/extractor call
// may run before its result is dropped.
const defaultPerUnitTimeout = 30 * time.Second

// defaultTypePriorities are spec.md §4.10's default arbitration weights;
// missing types default to 10.
var defaultTypePriorities = map[graph.EntityType]int{
	graph.EntityModel:        100,
	graph.EntityDataset:      90,
	graph.EntityAlgorithm:    85,
	graph.EntityMetric:       80,
	graph.EntityArchitecture: 75,
	graph.EntityFramework:    70,
	graph.EntityLibrary:      65,
	graph.EntityTheory:       60,
	graph.EntityConcept:      55,
	graph.EntityMethodology:  50,
	graph.EntityFinding:      45,
	graph.EntityHypothesis:   40,
	graph.EntityAuthor:       30,
	graph.EntityInstitution:  25,
	graph.EntityField:        20,
	graph.EntityUnknown:      0,
}

const missingTypePriority = 10

func priorityFor(priorities map[graph.EntityType]int, t graph.EntityType) int {
	if p, ok := priorities[t]; ok {
		return p
	}
	return missingTypePriority
}

// CompositeRecognizer fans out to every configured Recognizer and merges
// their results with exact-span conflict resolution followed by
// recognize.MergeOverlapping for the remaining overlapping-but-not-
// identical spans.
type CompositeRecognizer struct {
	Recognizers    []recognize.Recognizer
	TypePriorities map[graph.EntityType]int
	Concurrency    int
	PerUnitTimeout time.Duration
}

func (c *CompositeRecognizer) priorities() map[graph.EntityType]int {
	if c.TypePriorities != nil {
		return c.TypePriorities
	}
	return defaultTypePriorities
}

func (c *CompositeRecognizer) Recognize(ctx context.Context, text string) ([]graph.Entity, error) {
	concurrency := c.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	timeout := c.PerUnitTimeout
	if timeout <= 0 {
		timeout = defaultPerUnitTimeout
	}

	var (
		mu    sync.Mutex
		wg    sync.WaitGroup
		sem   = make(chan struct{}, concurrency)
		all   []graph.Entity
	)

	for _, r := range c.Recognizers {
		wg.Add(1)
		go func(r recognize.Recognizer) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				return
			}

			callCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			entities, err := r.Recognize(callCtx, text)
			if err != nil {
				return
			}

			mu.Lock()
			all = append(all, entities...)
			mu.Unlock()
		}(r)
	}

	wg.Wait()

	resolved := resolveExactSpanConflicts(all, c.priorities())
	return recognize.MergeOverlapping(resolved), nil
}

// resolveExactSpanConflicts implements spec.md §4.10 steps 1-4 for the
// exact-span case: group by (start,end), sort by (confidence desc,
// type-priority desc), winner absorbs loser metadata and records their
// types under alternative_types. Non-overlapping/unspanned entities pass
// through unchanged.
func resolveExactSpanConflicts(entities []graph.Entity, priorities map[graph.EntityType]int) []graph.Entity {
	type spanKey struct{ start, end int }
	groups := make(map[spanKey][]graph.Entity)
	var order []spanKey
	var unspanned []graph.Entity

	for _, e := range entities {
		if e.Span == nil {
			unspanned = append(unspanned, e)
			continue
		}
		key := spanKey{e.Span.Start, e.Span.End}
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], e)
	}

	out := make([]graph.Entity, 0, len(order)+len(unspanned))
	for _, key := range order {
		group := groups[key]
		if len(group) == 1 {
			out = append(out, group[0])
			continue
		}

		sort.SliceStable(group, func(i, j int) bool {
			if group[i].Confidence != group[j].Confidence {
				return group[i].Confidence > group[j].Confidence
			}
			return priorityFor(priorities, group[i].Type) > priorityFor(priorities, group[j].Type)
		})

		winner := group[0]
		var alternatives []string
		mergedMeta := map[string]any{}
		for k, v := range winner.Metadata {
			mergedMeta[k] = v
		}
		for _, loser := range group[1:] {
			alternatives = append(alternatives, string(loser.Type))
			for k, v := range loser.Metadata {
				if _, exists := mergedMeta[k]; !exists {
					mergedMeta[k] = v
				}
			}
		}
		if len(alternatives) > 0 {
			mergedMeta["alternative_types"] = alternatives
		}
		winner.Metadata = mergedMeta
		out = append(out, winner)
	}

	return append(out, unspanned...)
}

// CompositeExtractor fans out to every configured relate.Extractor and
// merges results by (source, target, type) via relate.Merge, reusing C9's
// triple-keyed merge rule rather than duplicating it.
type CompositeExtractor struct {
	Extractors     []relate.Extractor
	Concurrency    int
	PerUnitTimeout time.Duration
}

func (c *CompositeExtractor) Extract(ctx context.Context, text string, entities []graph.Entity) ([]graph.Relationship, error) {
	concurrency := c.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	timeout := c.PerUnitTimeout
	if timeout <= 0 {
		timeout = defaultPerUnitTimeout
	}

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, concurrency)
		all []graph.Relationship
	)

	for _, e := range c.Extractors {
		wg.Add(1)
		go func(e relate.Extractor) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				return
			}

			callCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			rels, err := e.Extract(callCtx, text, entities)
			if err != nil {
				return
			}

			mu.Lock()
			all = append(all, rels...)
			mu.Unlock()
		}(e)
	}

	wg.Wait()

	return relate.Merge(all), nil
}
