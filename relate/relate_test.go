package relate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brunobiangulo/knowgraph/graph"
)

func TestPatternExtractorFindsTrainedOnRelation(t *testing.T) {
	text := "ResNet was trained on ImageNet over many epochs."
	source := graph.NewEntity("ResNet", graph.EntityModel, 0.9, &graph.Span{Start: 0, End: 6})
	target := graph.NewEntity("ImageNet", graph.EntityDataset, 0.9, &graph.Span{Start: 22, End: 30})

	e := NewPatternExtractor(false)
	rels, err := e.Extract(context.Background(), text, []graph.Entity{source, target})
	require.NoError(t, err)
	require.Len(t, rels, 1)
	assert.Equal(t, graph.RelTrainedOn, rels[0].Type)
	assert.Equal(t, source.ID, rels[0].SourceID)
	assert.Equal(t, target.ID, rels[0].TargetID)
}

func TestPatternExtractorAppliesDistancePenalty(t *testing.T) {
	filler := ""
	for i := 0; i < 80; i++ {
		filler += " "
	}
	text := "Model" + " trained on " + filler + " Dataset"
	source := graph.NewEntity("Model", graph.EntityModel, 0.9, &graph.Span{Start: 0, End: 5})
	targetStart := len(text) - len("Dataset")
	target := graph.NewEntity("Dataset", graph.EntityDataset, 0.9, &graph.Span{Start: targetStart, End: len(text)})

	e := NewPatternExtractor(false)
	e.MaxGap = 200
	rels, err := e.Extract(context.Background(), text, []graph.Entity{source, target})
	require.NoError(t, err)
	require.Len(t, rels, 1)
	assert.Less(t, rels[0].Confidence, 0.85)
	assert.GreaterOrEqual(t, rels[0].Confidence, minDistanceConfidence)
}

func TestReducedTemplatesCoverEachTypeOnce(t *testing.T) {
	e := NewPatternExtractor(true)
	seen := map[graph.RelationType]int{}
	for _, tmpl := range e.Templates {
		seen[tmpl.relType]++
	}
	for relType, count := range seen {
		assert.Equal(t, 1, count, "type %s should appear once in reduced template set", relType)
	}
}

func TestFilterByConfidenceAndType(t *testing.T) {
	rels := []graph.Relationship{
		graph.NewRelationship("a", "b", graph.RelUses, 0.9, nil),
		graph.NewRelationship("a", "c", graph.RelCites, 0.3, nil),
	}
	filtered := Filter(rels, 0.5, nil)
	require.Len(t, filtered, 1)
	assert.Equal(t, graph.RelUses, filtered[0].Type)
}

func TestMergeKeepsHighestConfidencePerTriple(t *testing.T) {
	low := graph.NewRelationship("a", "b", graph.RelUses, 0.4, nil)
	low.Metadata["extractor"] = "pattern"
	high := graph.NewRelationship("a", "b", graph.RelUses, 0.8, nil)
	high.Metadata["extractor"] = "ai"

	merged := Merge([]graph.Relationship{low, high})
	require.Len(t, merged, 1)
	assert.Equal(t, 0.8, merged[0].Confidence)
	assert.Equal(t, "ai", merged[0].Metadata["extractor"])
}

func TestAIExtractorFailsWithNoModelConfigured(t *testing.T) {
	e := &AIExtractor{}
	_, err := e.Extract(context.Background(), "text", nil)
	assert.Error(t, err)
}
