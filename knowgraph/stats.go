package knowgraph

import (
	"github.com/brunobiangulo/knowgraph/graph"
	"github.com/brunobiangulo/knowgraph/progressive"
)

// Statistics aggregates counts across every document currently held in
// memory, per spec.md §4.11's GetExtractionStatistics contract.
type Statistics struct {
	DocumentCount          int                        `json:"document_count"`
	EntityCount            int                        `json:"entity_count"`
	RelationshipCount      int                        `json:"relationship_count"`
	EntitiesByType         map[graph.EntityType]int   `json:"entities_by_type"`
	RelationshipsByType    map[graph.RelationType]int `json:"relationships_by_type"`
	AverageEntityConfidence       float64             `json:"average_entity_confidence"`
	AverageRelationshipConfidence float64             `json:"average_relationship_confidence"`
	LevelCounts            map[string]int             `json:"level_counts"`
}

// GetExtractionStatistics computes Statistics over every document
// currently held in memory.
func (e *Engine) GetExtractionStatistics() (Statistics, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	stats := Statistics{
		EntitiesByType:      make(map[graph.EntityType]int),
		RelationshipsByType: make(map[graph.RelationType]int),
		LevelCounts:         make(map[string]int),
	}

	var entityConfSum, relConfSum float64

	for _, state := range e.docs {
		stats.DocumentCount++
		stats.LevelCounts[string(state.Level)]++

		for _, ent := range state.Entities {
			stats.EntityCount++
			stats.EntitiesByType[ent.Type]++
			entityConfSum += ent.Confidence
		}
		for _, rel := range state.Relationships {
			stats.RelationshipCount++
			stats.RelationshipsByType[rel.Type]++
			relConfSum += rel.Confidence
		}
	}

	if stats.EntityCount > 0 {
		stats.AverageEntityConfidence = entityConfSum / float64(stats.EntityCount)
	}
	if stats.RelationshipCount > 0 {
		stats.AverageRelationshipConfidence = relConfSum / float64(stats.RelationshipCount)
	}

	return stats, nil
}

// Document returns a DocumentView of the derived state (entities,
// relationships, graph, level) for docID, or false if no extraction has
// been run for it. The processed Document itself is not returned.
func (e *Engine) Document(docID string) (*DocumentView, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	state, ok := e.docs[docID]
	if !ok {
		return nil, false
	}
	return &DocumentView{
		Entities:      state.Entities,
		Relationships: state.Relationships,
		Graph:         state.Graph,
		Level:         state.Level,
	}, true
}

// DocumentView is a read-only projection of docState returned to callers
// outside this package, deliberately excluding the raw *document.Document
// pointer so callers cannot mutate processed content in place.
type DocumentView struct {
	Entities      []graph.Entity
	Relationships []graph.Relationship
	Graph         *graph.KnowledgeGraph
	Level         progressive.Level
}
