package recognize

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brunobiangulo/knowgraph/graph"
)

func TestPatternRecognizerFindsModelWithContextBoost(t *testing.T) {
	r := NewAIPatternRecognizer()
	text := "The pretrained BERT model was fine-tuned for classification."
	entities, err := r.Recognize(context.Background(), text)
	require.NoError(t, err)

	found := false
	for _, e := range entities {
		if e.Type == graph.EntityModel && e.Text == "BERT" {
			found = true
			assert.GreaterOrEqual(t, e.Confidence, 0.7)
		}
	}
	assert.True(t, found, "expected a MODEL entity for BERT")
}

func TestDictionaryRecognizerWholeWordMatch(t *testing.T) {
	r := NewDictionaryRecognizer(map[string]DictEntry{
		"pytorch": {Type: graph.EntityFramework, BaseConfidence: 0.6},
	})
	entities, err := r.Recognize(context.Background(), "Built with PyTorch and custom kernels.")
	require.NoError(t, err)
	require.Len(t, entities, 1)
	assert.Equal(t, graph.EntityFramework, entities[0].Type)
	assert.Equal(t, 0.6, entities[0].Confidence)
}

func TestDictionaryRecognizerDoesNotMatchSubstring(t *testing.T) {
	r := NewDictionaryRecognizer(map[string]DictEntry{
		"cat": {Type: graph.EntityConcept, BaseConfidence: 0.5},
	})
	entities, err := r.Recognize(context.Background(), "concatenation is not a cat")
	require.NoError(t, err)
	require.Len(t, entities, 1)
	assert.Equal(t, "cat", entities[0].Text)
}

func TestRelationalAugmenterDerivesDatasetAndArchitecture(t *testing.T) {
	text := "We evaluated BERT on the SQuAD dataset and achieved 92 F1."
	model := graph.NewEntity("BERT", graph.EntityModel, 0.9, &graph.Span{Start: 13, End: 17})

	a := &RelationalAugmenter{}
	derived, err := a.Augment(context.Background(), text, []graph.Entity{model})
	require.NoError(t, err)

	var sawDataset, sawArch bool
	for _, e := range derived {
		if e.Type == graph.EntityDataset {
			sawDataset = true
			assert.Equal(t, 0.75, e.Confidence)
		}
		if e.Type == graph.EntityArchitecture {
			sawArch = true
			assert.Equal(t, "Transformer", e.Text)
		}
	}
	assert.True(t, sawDataset)
	assert.True(t, sawArch)
}

func TestCitationAugmenterEmitsAuthorAndFinding(t *testing.T) {
	text := "Transfer learning improves downstream accuracy (Smith et al., 2019)."
	a := &CitationAugmenter{}
	derived, err := a.Augment(context.Background(), text, nil)
	require.NoError(t, err)

	var sawAuthor, sawFinding bool
	for _, e := range derived {
		if e.Type == graph.EntityAuthor {
			sawAuthor = true
		}
		if e.Type == graph.EntityFinding {
			sawFinding = true
			assert.Contains(t, e.Text, "Transfer learning")
		}
	}
	assert.True(t, sawAuthor)
	assert.True(t, sawFinding)
}

func TestFilterByConfidenceAndType(t *testing.T) {
	entities := []graph.Entity{
		graph.NewEntity("A", graph.EntityModel, 0.9, nil),
		graph.NewEntity("B", graph.EntityDataset, 0.4, nil),
		graph.NewEntity("C", graph.EntityModel, 0.3, nil),
	}
	filtered := Filter(entities, 0.5, []graph.EntityType{graph.EntityModel})
	require.Len(t, filtered, 1)
	assert.Equal(t, "A", filtered[0].Text)
}

func TestMergeOverlappingDropsContainedSpan(t *testing.T) {
	outer := graph.NewEntity("neural network model", graph.EntityModel, 0.6, &graph.Span{Start: 0, End: 21})
	inner := graph.NewEntity("network", graph.EntityConcept, 0.9, &graph.Span{Start: 8, End: 15})

	merged := MergeOverlapping([]graph.Entity{inner, outer})
	require.Len(t, merged, 1)
	assert.Equal(t, "neural network model", merged[0].Text)
}

func TestMergeOverlappingKeepsHigherConfidenceOnPartialOverlap(t *testing.T) {
	a := graph.NewEntity("Foo Bar", graph.EntityModel, 0.6, &graph.Span{Start: 0, End: 7})
	b := graph.NewEntity("Bar Baz", graph.EntityDataset, 0.8, &graph.Span{Start: 4, End: 11})

	merged := MergeOverlapping([]graph.Entity{a, b})
	require.Len(t, merged, 1)
	assert.Equal(t, "Bar Baz", merged[0].Text)
}

func TestMergeOverlappingPassesThroughUnspannedEntities(t *testing.T) {
	spanless := graph.NewEntity("derived", graph.EntityMetric, 0.75, nil)
	merged := MergeOverlapping([]graph.Entity{spanless})
	require.Len(t, merged, 1)
}

func TestConfidenceClampedToUnitInterval(t *testing.T) {
	e := graph.NewEntity("x", graph.EntityFinding, 1.5, nil)
	assert.Equal(t, 1.0, e.Confidence)
	e2 := graph.NewEntity("y", graph.EntityFinding, -0.3, nil)
	assert.Equal(t, 0.0, e2.Confidence)
}
