package relate

import (
	"context"
	"fmt"

	"github.com/brunobiangulo/knowgraph/graph"
	"github.com/brunobiangulo/knowgraph/llm"
)

// AIExtractor dispatches relationship extraction to an external
// LanguageModel, per spec.md §4.9's "AI extractor ... dispatches to an
// external language-model adapter ... used inside a fallback chain
// behind the pattern extractor." With no Model configured it always
// fails, so a fallback.Strategy composing PatternExtractor as primary and
// AIExtractor as the sole fallback degrades to pattern-only behavior
// until a caller wires in a concrete LanguageModel.
type AIExtractor struct {
	Model llm.LanguageModel
	Hints llm.Hints
}

func (e *AIExtractor) Extract(ctx context.Context, text string, entities []graph.Entity) ([]graph.Relationship, error) {
	if e.Model == nil {
		return nil, fmt.Errorf("relate: AIExtractor has no LanguageModel configured")
	}
	rels, err := e.Model.ExtractRelationships(ctx, text, entities, e.Hints)
	if err != nil {
		return nil, err
	}
	for i := range rels {
		if rels[i].Metadata == nil {
			rels[i].Metadata = map[string]any{}
		}
		rels[i].Metadata["extractor"] = "ai"
	}
	return rels, nil
}
