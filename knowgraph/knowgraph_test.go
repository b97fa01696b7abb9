package knowgraph

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brunobiangulo/knowgraph/document"
	"github.com/brunobiangulo/knowgraph/graph"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	cfg := DefaultConfig()
	cfg.CheckpointDir = t.TempDir()
	cfg.OutputDir = t.TempDir()
	e, err := New(cfg)
	require.NoError(t, err)
	return e
}

// TestExtractFromTextFindsModelAndDataset covers spec.md §8 E2E-1: plain
// text naming a model trained on a dataset yields at least one entity of
// each kind plus a TRAINED_ON relationship linking them.
func TestExtractFromTextFindsModelAndDataset(t *testing.T) {
	e := newTestEngine(t)
	text := "ResNet was trained on ImageNet and achieved 76.2% accuracy."

	summary, err := e.ExtractFromText(context.Background(), "", text)
	require.NoError(t, err)
	assert.Equal(t, document.TypeText, summary.DocumentType)
	assert.Greater(t, summary.EntityCount, 0)

	view, ok := e.Document(summary.DocumentID)
	require.True(t, ok)

	var sawModel, sawDataset bool
	var modelID, datasetID string
	for _, ent := range view.Entities {
		switch ent.Text {
		case "ResNet":
			sawModel = true
			modelID = ent.ID
		case "ImageNet":
			sawDataset = true
			datasetID = ent.ID
		}
	}
	assert.True(t, sawModel, "expected ResNet to be recognized")
	assert.True(t, sawDataset, "expected ImageNet to be recognized")

	var sawTrainedOn bool
	for _, rel := range view.Relationships {
		if rel.Type == graph.RelTrainedOn && rel.SourceID == modelID && rel.TargetID == datasetID {
			sawTrainedOn = true
		}
	}
	assert.True(t, sawTrainedOn, "expected a TRAINED_ON relationship from ResNet to ImageNet")
}

// TestExtractFromDocumentProcessesHTML covers spec.md §8 E2E-2: an HTML
// document is parsed, segmented, and its body text run through the same
// recognition/extraction pipeline as plain text.
func TestExtractFromDocumentProcessesHTML(t *testing.T) {
	e := newTestEngine(t)

	html := `<html><head><title>Paper</title></head><body>
<h1>Results</h1>
<p>The BERT model was trained on the SQuAD dataset.</p>
</body></html>`

	dir := t.TempDir()
	path := filepath.Join(dir, "paper.html")
	require.NoError(t, os.WriteFile(path, []byte(html), 0o644))

	summary, err := e.ExtractFromDocument(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, document.TypeHTML, summary.DocumentType)

	view, ok := e.Document(summary.DocumentID)
	require.True(t, ok)
	assert.NotNil(t, view.Graph)
	for _, node := range view.Graph.Nodes {
		assert.GreaterOrEqual(t, node.Confidence, e.minEntityConfidence())
	}
}

func TestSaveExtractionResultsWritesArtifacts(t *testing.T) {
	e := newTestEngine(t)
	summary, err := e.ExtractFromText(context.Background(), "save-test", "BERT was trained on SQuAD.")
	require.NoError(t, err)

	dir, err := e.saveOne(e.cfg.OutputDir, summary.DocumentID)
	require.NoError(t, err)

	for _, name := range []string{"entities.json", "relationships.json", "knowledge_graph.json"} {
		_, statErr := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, statErr, "expected %s to be written", name)
	}
}

func TestGetExtractionStatisticsAggregatesAcrossDocuments(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.ExtractFromText(context.Background(), "doc-a", "BERT was trained on SQuAD.")
	require.NoError(t, err)
	_, err = e.ExtractFromText(context.Background(), "doc-b", "ResNet was trained on ImageNet.")
	require.NoError(t, err)

	stats, err := e.GetExtractionStatistics()
	require.NoError(t, err)
	assert.Equal(t, 2, stats.DocumentCount)
	assert.Greater(t, stats.EntityCount, 0)
}

func TestExtractFromTextMissingDocumentIsGenerated(t *testing.T) {
	e := newTestEngine(t)
	s1, err := e.ExtractFromText(context.Background(), "", "A short note about nothing in particular.")
	require.NoError(t, err)
	s2, err := e.ExtractFromText(context.Background(), "", "A different short note.")
	require.NoError(t, err)
	assert.NotEqual(t, s1.DocumentID, s2.DocumentID)
}
