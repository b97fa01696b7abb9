// Package graph holds the core data model shared by recognizers,
// extractors, and the knowledge extractor: Entity, Relationship, and the
// KnowledgeGraph projection. Adapted from the teacher's graph/entity.go
// (ExtractedEntity/ExtractedRelationship and the type-constant tables),
// replaced with spec.md's AI-research ontology in place of the teacher's
// technical/legal-document ontology.
package graph

import (
	"time"

	"github.com/google/uuid"
)

// EntityType is a closed enum of recognizable entity kinds. Unknown
// strings coerce to EntityUnknown rather than being rejected.
type EntityType string

const (
	EntityModel        EntityType = "MODEL"
	EntityDataset       EntityType = "DATASET"
	EntityAlgorithm     EntityType = "ALGORITHM"
	EntityMetric        EntityType = "METRIC"
	EntityArchitecture  EntityType = "ARCHITECTURE"
	EntityFramework     EntityType = "FRAMEWORK"
	EntityLibrary       EntityType = "LIBRARY"
	EntityBenchmark     EntityType = "BENCHMARK"
	EntityConcept       EntityType = "CONCEPT"
	EntityTheory        EntityType = "THEORY"
	EntityMethodology   EntityType = "METHODOLOGY"
	EntityFinding       EntityType = "FINDING"
	EntityHypothesis    EntityType = "HYPOTHESIS"
	EntityAuthor        EntityType = "AUTHOR"
	EntityInstitution   EntityType = "INSTITUTION"
	EntityField         EntityType = "FIELD"
	EntityLimitation    EntityType = "LIMITATION"
	EntityTask          EntityType = "TASK"
	EntityUnknown       EntityType = "UNKNOWN"
)

var validEntityTypes = map[EntityType]bool{
	EntityModel: true, EntityDataset: true, EntityAlgorithm: true, EntityMetric: true,
	EntityArchitecture: true, EntityFramework: true, EntityLibrary: true, EntityBenchmark: true,
	EntityConcept: true, EntityTheory: true, EntityMethodology: true, EntityFinding: true,
	EntityHypothesis: true, EntityAuthor: true, EntityInstitution: true, EntityField: true,
	EntityLimitation: true, EntityTask: true, EntityUnknown: true,
}

// CoerceEntityType normalises an arbitrary string into the closed
// EntityType enum, falling back to EntityUnknown.
func CoerceEntityType(s string) EntityType {
	t := EntityType(s)
	if validEntityTypes[t] {
		return t
	}
	return EntityUnknown
}

// RelationType is a closed enum of recognizable relationship kinds.
type RelationType string

const (
	RelTrainedOn    RelationType = "TRAINED_ON"
	RelEvaluatedOn  RelationType = "EVALUATED_ON"
	RelOutperforms  RelationType = "OUTPERFORMS"
	RelDevelopedBy  RelationType = "DEVELOPED_BY"
	RelBasedOn      RelationType = "BASED_ON"
	RelPartOf       RelationType = "PART_OF"
	RelUses         RelationType = "USES"
	RelImplements   RelationType = "IMPLEMENTS"
	RelProposedBy   RelationType = "PROPOSED_BY"
	RelCites        RelationType = "CITES"
	RelUnknown      RelationType = "UNKNOWN"
)

var validRelationTypes = map[RelationType]bool{
	RelTrainedOn: true, RelEvaluatedOn: true, RelOutperforms: true, RelDevelopedBy: true,
	RelBasedOn: true, RelPartOf: true, RelUses: true, RelImplements: true,
	RelProposedBy: true, RelCites: true, RelUnknown: true,
}

// CoerceRelationType normalises an arbitrary string into the closed
// RelationType enum, falling back to RelUnknown.
func CoerceRelationType(s string) RelationType {
	t := RelationType(s)
	if validRelationTypes[t] {
		return t
	}
	return RelUnknown
}

// Span is a half-open [Start, End) byte range within a source text.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// clampConfidence enforces spec.md's confidence in [0,1] invariant.
func clampConfidence(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

// Entity is a typed span of text recognised as a domain object.
type Entity struct {
	ID         string            `json:"id"`
	Text       string            `json:"text"`
	Type       EntityType        `json:"type"`
	Confidence float64           `json:"confidence"`
	Span       *Span             `json:"span,omitempty"`
	Metadata   map[string]any    `json:"metadata,omitempty"`
}

// NewEntity constructs an Entity with a fresh stable id, a coerced type,
// and a clamped confidence.
func NewEntity(text string, entityType EntityType, confidence float64, span *Span) Entity {
	return Entity{
		ID:         uuid.NewString(),
		Text:       text,
		Type:       CoerceEntityType(string(entityType)),
		Confidence: clampConfidence(confidence),
		Span:       span,
		Metadata:   map[string]any{},
	}
}

// Relationship is a typed directed link between two entities.
type Relationship struct {
	ID         string         `json:"id"`
	SourceID   string         `json:"source_id"`
	TargetID   string         `json:"target_id"`
	Type       RelationType   `json:"type"`
	Confidence float64        `json:"confidence"`
	Span       *Span          `json:"span,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// NewRelationship constructs a Relationship with a fresh stable id and a
// clamped confidence.
func NewRelationship(sourceID, targetID string, relType RelationType, confidence float64, span *Span) Relationship {
	return Relationship{
		ID:         uuid.NewString(),
		SourceID:   sourceID,
		TargetID:   targetID,
		Type:       relType,
		Confidence: clampConfidence(confidence),
		Span:       span,
		Metadata:   map[string]any{},
	}
}

// Node is the graph projection of an Entity.
type Node struct {
	ID         string         `json:"id"`
	Text       string         `json:"text"`
	Type       EntityType     `json:"type"`
	Confidence float64        `json:"confidence"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// Edge is the graph projection of a Relationship.
type Edge struct {
	ID         string         `json:"id"`
	Source     string         `json:"source"`
	Target     string         `json:"target"`
	Type       RelationType   `json:"type"`
	Confidence float64        `json:"confidence"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// Metadata captures the KnowledgeGraph's own bookkeeping fields.
type Metadata struct {
	DocumentID string    `json:"document_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// KnowledgeGraph is the node-and-edge projection of a batch of entities
// and relationships. It owns no information the inputs did not: nodes and
// edges are derived, not independently mutable.
type KnowledgeGraph struct {
	Nodes    map[string]Node `json:"nodes"`
	Edges    map[string]Edge `json:"edges"`
	Metadata Metadata        `json:"metadata"`
}

// Build projects entities/relationships into a KnowledgeGraph. Every edge
// endpoint is guaranteed to reference a node id present in the graph:
// relationships whose source or target is not among entities are dropped
// (spec.md §3's "both endpoints reference entity ids present in the same
// extraction batch" invariant is enforced here, not merely assumed).
func Build(documentID string, entities []Entity, relationships []Relationship) *KnowledgeGraph {
	kg := &KnowledgeGraph{
		Nodes: make(map[string]Node, len(entities)),
		Edges: make(map[string]Edge, len(relationships)),
		Metadata: Metadata{
			DocumentID: documentID,
			CreatedAt:  time.Now().UTC(),
		},
	}

	for _, e := range entities {
		kg.Nodes[e.ID] = Node{
			ID:         e.ID,
			Text:       e.Text,
			Type:       e.Type,
			Confidence: e.Confidence,
			Metadata:   e.Metadata,
		}
	}

	for _, r := range relationships {
		_, srcOK := kg.Nodes[r.SourceID]
		_, tgtOK := kg.Nodes[r.TargetID]
		if !srcOK || !tgtOK {
			continue
		}
		kg.Edges[r.ID] = Edge{
			ID:         r.ID,
			Source:     r.SourceID,
			Target:     r.TargetID,
			Type:       r.Type,
			Confidence: r.Confidence,
			Metadata:   r.Metadata,
		}
	}

	return kg
}
