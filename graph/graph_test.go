package graph

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntityJSONRoundTrip(t *testing.T) {
	e := NewEntity("BERT", EntityModel, 0.92, &Span{Start: 0, End: 4})
	e.Metadata["recognizer"] = "pattern"

	buf, err := json.Marshal(e)
	require.NoError(t, err)

	var decoded Entity
	require.NoError(t, json.Unmarshal(buf, &decoded))
	assert.Equal(t, e, decoded)
}

func TestRelationshipJSONRoundTrip(t *testing.T) {
	r := NewRelationship("e1", "e2", RelTrainedOn, 0.8, &Span{Start: 5, End: 20})
	r.Metadata["extractor"] = "pattern"

	buf, err := json.Marshal(r)
	require.NoError(t, err)

	var decoded Relationship
	require.NoError(t, json.Unmarshal(buf, &decoded))
	assert.Equal(t, r, decoded)
}

func TestCoerceEntityTypeFallsBackToUnknown(t *testing.T) {
	assert.Equal(t, EntityModel, CoerceEntityType("MODEL"))
	assert.Equal(t, EntityUnknown, CoerceEntityType("NOT_A_REAL_TYPE"))
}

func TestCoerceRelationTypeFallsBackToUnknown(t *testing.T) {
	assert.Equal(t, RelTrainedOn, CoerceRelationType("TRAINED_ON"))
	assert.Equal(t, RelUnknown, CoerceRelationType("NOT_A_REAL_RELATION"))
}

func TestNewEntityClampsConfidence(t *testing.T) {
	high := NewEntity("x", EntityModel, 1.5, nil)
	low := NewEntity("x", EntityModel, -0.5, nil)
	assert.Equal(t, 1.0, high.Confidence)
	assert.Equal(t, 0.0, low.Confidence)
}

func TestBuildNodeCountMatchesEntityCount(t *testing.T) {
	entities := []Entity{
		NewEntity("BERT", EntityModel, 0.9, &Span{Start: 0, End: 4}),
		NewEntity("ImageNet", EntityDataset, 0.8, &Span{Start: 10, End: 18}),
	}
	kg := Build("doc-1", entities, nil)
	assert.Len(t, kg.Nodes, len(entities))
	for _, e := range entities {
		_, ok := kg.Nodes[e.ID]
		assert.True(t, ok, "node for entity %s should exist", e.ID)
	}
}

// TestBuildDropsEdgesWithDanglingEndpoints asserts spec.md's "every edge
// endpoint is a node id" invariant: a relationship naming an entity id
// outside the batch must not surface as an edge.
func TestBuildDropsEdgesWithDanglingEndpoints(t *testing.T) {
	a := NewEntity("BERT", EntityModel, 0.9, nil)
	b := NewEntity("ImageNet", EntityDataset, 0.9, nil)
	valid := NewRelationship(a.ID, b.ID, RelTrainedOn, 0.8, nil)
	dangling := NewRelationship(a.ID, "no-such-entity-id", RelTrainedOn, 0.8, nil)

	kg := Build("doc-1", []Entity{a, b}, []Relationship{valid, dangling})

	require.Len(t, kg.Edges, 1)
	edge, ok := kg.Edges[valid.ID]
	require.True(t, ok)

	for _, e := range kg.Edges {
		_, srcOK := kg.Nodes[e.Source]
		_, tgtOK := kg.Nodes[e.Target]
		assert.True(t, srcOK, "edge source must be a known node id")
		assert.True(t, tgtOK, "edge target must be a known node id")
	}
	assert.Equal(t, a.ID, edge.Source)
	assert.Equal(t, b.ID, edge.Target)
}

func TestBuildStampsDocumentMetadata(t *testing.T) {
	kg := Build("doc-42", nil, nil)
	assert.Equal(t, "doc-42", kg.Metadata.DocumentID)
	assert.False(t, kg.Metadata.CreatedAt.IsZero())
}
