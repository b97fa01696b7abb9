// Package llm defines the collaborator contracts spec.md §6 places at the
// interface boundary: a language model capable of entity/relationship
// extraction, and an external graph store. Neither is implemented here —
// goreason's concrete provider adapters (llm/openai.go, llm/gemini.go,
// etc.) are deliberately not carried into this rewrite, since the core
// "does not itself train or invoke ML models" (spec.md §1 Non-goals).
package llm

import (
	"context"

	"github.com/brunobiangulo/knowgraph/graph"
)

// Hints carries pre-extracted lexical signals (e.g. recognize package's
// pattern matches) that a LanguageModel implementation may use to steer
// or validate its own extraction, mirroring the identifier-hint idiom
// graph/builder.go uses to feed an LLM prompt.
type Hints struct {
	Identifiers []string
	Entities    []graph.Entity
}

// LanguageModel is the external AI-extraction collaborator. Concrete
// implementations (HTTP calls to a hosted or local model) live outside
// this module.
type LanguageModel interface {
	ExtractEntities(ctx context.Context, text string, hints Hints) ([]graph.Entity, error)
	ExtractRelationships(ctx context.Context, text string, entities []graph.Entity, hints Hints) ([]graph.Relationship, error)
}

// GraphStore is the external persistence collaborator for a durable,
// possibly temporal-versioned knowledge graph. Not required by the core
// (spec.md §6: "optional temporal versioning API, not required by the
// core") — the core's own JSON artifact persistence (knowgraph package)
// is sufficient on its own.
type GraphStore interface {
	UpsertNodes(ctx context.Context, nodes []graph.Node) error
	UpsertEdges(ctx context.Context, edges []graph.Edge) error
	Query(ctx context.Context, query string) ([]graph.Node, error)
}
