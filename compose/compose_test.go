package compose

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brunobiangulo/knowgraph/graph"
	"github.com/brunobiangulo/knowgraph/recognize"
	"github.com/brunobiangulo/knowgraph/relate"
)

type fakeRecognizer struct {
	entities []graph.Entity
}

func (f fakeRecognizer) Recognize(ctx context.Context, text string) ([]graph.Entity, error) {
	return f.entities, nil
}

func TestCompositeRecognizerResolvesExactSpanConflictByPriority(t *testing.T) {
	span := &graph.Span{Start: 0, End: 4}
	low := graph.NewEntity("BERT", graph.EntityFramework, 0.6, span)
	high := graph.NewEntity("BERT", graph.EntityModel, 0.6, span)

	c := &CompositeRecognizer{
		Recognizers: []recognize.Recognizer{
			fakeRecognizer{entities: []graph.Entity{low}},
			fakeRecognizer{entities: []graph.Entity{high}},
		},
	}
	entities, err := c.Recognize(context.Background(), "BERT is great")
	require.NoError(t, err)
	require.Len(t, entities, 1)
	assert.Equal(t, graph.EntityModel, entities[0].Type)
	assert.Contains(t, entities[0].Metadata["alternative_types"], "FRAMEWORK")
}

func TestCompositeRecognizerPassesThroughNonOverlapping(t *testing.T) {
	a := graph.NewEntity("BERT", graph.EntityModel, 0.8, &graph.Span{Start: 0, End: 4})
	b := graph.NewEntity("ImageNet", graph.EntityDataset, 0.7, &graph.Span{Start: 10, End: 18})

	c := &CompositeRecognizer{
		Recognizers: []recognize.Recognizer{
			fakeRecognizer{entities: []graph.Entity{a, b}},
		},
	}
	entities, err := c.Recognize(context.Background(), "BERT vs ImageNet")
	require.NoError(t, err)
	assert.Len(t, entities, 2)
}

type fakeExtractor struct {
	rels []graph.Relationship
}

func (f fakeExtractor) Extract(ctx context.Context, text string, entities []graph.Entity) ([]graph.Relationship, error) {
	return f.rels, nil
}

func TestCompositeExtractorMergesByTriple(t *testing.T) {
	low := graph.NewRelationship("a", "b", graph.RelUses, 0.4, nil)
	high := graph.NewRelationship("a", "b", graph.RelUses, 0.9, nil)

	c := &CompositeExtractor{
		Extractors: []relate.Extractor{
			fakeExtractor{rels: []graph.Relationship{low}},
			fakeExtractor{rels: []graph.Relationship{high}},
		},
	}
	rels, err := c.Extract(context.Background(), "text", nil)
	require.NoError(t, err)
	require.Len(t, rels, 1)
	assert.Equal(t, 0.9, rels[0].Confidence)
}
