package recognize

import (
	"context"
	"fmt"

	"github.com/brunobiangulo/knowgraph/graph"
	"github.com/brunobiangulo/knowgraph/llm"
)

// AIRecognizer dispatches entity recognition to an external LanguageModel.
// Part of spec.md §4.12's FULL-level "combined (patterns + AI +
// scientific)" recognizer; with no Model configured it always fails so a
// composite/fallback chain degrades to the regex-driven recognizers.
type AIRecognizer struct {
	Model llm.LanguageModel
	Hints llm.Hints
}

func (r *AIRecognizer) Recognize(ctx context.Context, text string) ([]graph.Entity, error) {
	if r.Model == nil {
		return nil, fmt.Errorf("recognize: AIRecognizer has no LanguageModel configured")
	}
	entities, err := r.Model.ExtractEntities(ctx, text, r.Hints)
	if err != nil {
		return nil, err
	}
	for i := range entities {
		if entities[i].Metadata == nil {
			entities[i].Metadata = map[string]any{}
		}
		entities[i].Metadata["recognizer"] = "ai"
	}
	return entities, nil
}
