package recognize

import (
	"context"
	"regexp"
	"strings"

	"github.com/brunobiangulo/knowgraph/graph"
)

// Augmenter derives additional entities from a set already produced by a
// base Recognizer, per spec.md §4.8's augmentation passes.
type Augmenter interface {
	Augment(ctx context.Context, text string, entities []graph.Entity) ([]graph.Entity, error)
}

// AugmentingRecognizer runs Base, then feeds its entities through each
// Augmenter in turn, appending whatever they derive. Wraps the FULL/
// STANDARD composite recognizer so the C8 relational/citation passes run
// over the merged pattern+scientific(+AI) entity set spec.md §4.12
// assigns those levels, rather than over a single recognizer's output.
type AugmentingRecognizer struct {
	Base       Recognizer
	Augmenters []Augmenter
}

func (a *AugmentingRecognizer) Recognize(ctx context.Context, text string) ([]graph.Entity, error) {
	entities, err := a.Base.Recognize(ctx, text)
	if err != nil {
		return nil, err
	}

	for _, aug := range a.Augmenters {
		derived, err := aug.Augment(ctx, text, entities)
		if err != nil {
			continue
		}
		entities = append(entities, derived...)
	}

	return entities, nil
}

// relationalWindow is the ±100-character scan radius spec.md §4.8
// specifies for the AI-specific relational augmentation step.
const relationalWindow = 100

var datasetMentionRe = regexp.MustCompile(`(?i)\bon (?:the )?([A-Z][A-Za-z0-9_.-]{1,30}) dataset\b`)
var metricMentionRe = regexp.MustCompile(`(?i)\bachieved (?:an? )?([0-9]+(?:\.[0-9]+)?%?) ([A-Za-z][A-Za-z0-9_-]{1,20})\b`)

// knownArchitectures maps a well-known model name (case-insensitive) to
// the architecture it is built on, e.g. BERT -> Transformer.
var knownArchitectures = map[string]string{
	"bert":    "Transformer",
	"roberta": "Transformer",
	"gpt":     "Transformer",
	"gpt-2":   "Transformer",
	"gpt-3":   "Transformer",
	"gpt-4":   "Transformer",
	"t5":      "Transformer",
	"llama":   "Transformer",
	"palm":    "Transformer",
	"resnet":  "convolutional neural network",
	"alexnet": "convolutional neural network",
	"lstm":    "recurrent neural network",
}

// RelationalAugmenter is the AI-specific augmentation pass (C8): for
// every MODEL entity it scans a ±100-character window for "on X
// dataset"/"achieved N metric" mentions and known model->architecture
// mappings, emitting derived DATASET/METRIC/ARCHITECTURE entities.
// Structurally mirrors graph/builder.go's two-stage "extract entities,
// then extract relationships conditioned on them" pipeline, regex-driven
// here instead of LLM-driven.
type RelationalAugmenter struct{}

func (a *RelationalAugmenter) Augment(ctx context.Context, text string, entities []graph.Entity) ([]graph.Entity, error) {
	var derived []graph.Entity

	for _, model := range entities {
		if model.Type != graph.EntityModel || model.Span == nil {
			continue
		}

		window := surroundingWindow(text, model.Span.Start, model.Span.End, relationalWindow)

		if m := datasetMentionRe.FindStringSubmatch(window); len(m) > 1 {
			e := graph.NewEntity(m[1], graph.EntityDataset, 0.75, nil)
			e.Metadata["recognizer"] = "relational_augmentation"
			e.Metadata["source_model"] = model.Text
			derived = append(derived, e)
		}

		if m := metricMentionRe.FindStringSubmatch(window); len(m) > 2 {
			e := graph.NewEntity(m[1]+" "+m[2], graph.EntityMetric, 0.75, nil)
			e.Metadata["recognizer"] = "relational_augmentation"
			e.Metadata["source_model"] = model.Text
			derived = append(derived, e)
		}

		key := strings.ToLower(strings.TrimSpace(model.Text))
		if arch, ok := knownArchitectures[key]; ok {
			e := graph.NewEntity(arch, graph.EntityArchitecture, 0.8, nil)
			e.Metadata["recognizer"] = "relational_augmentation"
			e.Metadata["source_model"] = model.Text
			derived = append(derived, e)
		}
	}

	return derived, nil
}

var citationRe = regexp.MustCompile(`\(([A-Z][A-Za-z.'-]+(?: (?:et al\.|and [A-Z][A-Za-z.'-]+))?),?\s+((?:19|20)[0-9]{2})\)`)

// CitationAugmenter is the scientific-discourse augmentation pass (C8):
// it detects "(Author(s), YYYY)" parentheticals and emits an AUTHOR
// entity plus a FINDING entity for the sentence preceding the citation.
type CitationAugmenter struct{}

func (a *CitationAugmenter) Augment(ctx context.Context, text string, entities []graph.Entity) ([]graph.Entity, error) {
	var derived []graph.Entity

	matches := citationRe.FindAllStringSubmatchIndex(text, -1)
	for _, m := range matches {
		fullStart, fullEnd := m[0], m[1]
		authorStart, authorEnd := m[2], m[3]

		authorSpan := &graph.Span{Start: authorStart, End: authorEnd}
		author := graph.NewEntity(text[authorStart:authorEnd], graph.EntityAuthor, 0.75, authorSpan)
		author.Metadata["recognizer"] = "citation_augmentation"
		derived = append(derived, author)

		sentence := precedingSentence(text, fullStart)
		if sentence != "" {
			finding := graph.NewEntity(sentence, graph.EntityFinding, 0.65, nil)
			finding.Metadata["recognizer"] = "citation_augmentation"
			finding.Metadata["citation"] = text[fullStart:fullEnd]
			derived = append(derived, finding)
		}
	}

	return derived, nil
}

// precedingSentence returns the sentence immediately before position pos,
// delimited by '.', '!', or '?'.
func precedingSentence(text string, pos int) string {
	lo := pos
	for lo > 0 {
		c := text[lo-1]
		if c == '.' || c == '!' || c == '?' {
			break
		}
		lo--
	}
	return strings.TrimSpace(text[lo:pos])
}
