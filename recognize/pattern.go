package recognize

import (
	"context"
	"regexp"

	"github.com/brunobiangulo/knowgraph/graph"
)

// PatternRecognizer matches a per-entity-type ordered list of compiled,
// case-insensitive regular expressions. Each match yields one candidate
// entity with its span, scored by the shared confidence heuristics.
type PatternRecognizer struct {
	// Patterns maps an entity type to the ordered regexes tried for it.
	Patterns map[graph.EntityType][]*regexp.Regexp

	// PositiveContextCues maps an entity type to phrases that, when found
	// within contextWindow characters of a match, raise its confidence.
	PositiveContextCues map[graph.EntityType][]string
}

// NewAIPatternRecognizer builds a PatternRecognizer tuned for AI-research
// text: model/framework/dataset/metric/architecture identifier patterns
// with the positive-context cues spec.md names for a "custom-patterns"
// AIEntityRecognizer.
func NewAIPatternRecognizer() *PatternRecognizer {
	return &PatternRecognizer{
		Patterns: map[graph.EntityType][]*regexp.Regexp{
			graph.EntityModel: {
				regexp.MustCompile(`(?i)\b(?:GPT-[0-9]+(?:\.[0-9]+)?|BERT|RoBERTa|T5|LLaMA[0-9]*|Llama[- ]?[0-9]*|PaLM|Gemini|Claude|Mixtral|Mistral(?:-[0-9]+[A-Za-z]*)?|ResNet-?[0-9]*|AlphaFold[0-9]*)\b`),
				regexp.MustCompile(`\b[A-Z][A-Za-z0-9]*(?:-[A-Za-z0-9]+){1,3}\b`),
			},
			graph.EntityDataset: {
				regexp.MustCompile(`(?i)\b(?:ImageNet|COCO|SQuAD|GLUE|SuperGLUE|WikiText(?:-[0-9]+)?|CIFAR-?[0-9]*|MNIST|LAION(?:-[0-9A-Za-z]+)?|Common ?Crawl)\b`),
			},
			graph.EntityMetric: {
				regexp.MustCompile(`(?i)\b(?:accuracy|F1(?:[- ]score)?|BLEU|ROUGE(?:-[A-Za-z0-9]+)?|perplexity|precision|recall|AUC|top-[0-9]+ accuracy)\b`),
			},
			graph.EntityArchitecture: {
				regexp.MustCompile(`(?i)\b(?:Transformer|convolutional neural network|CNN|recurrent neural network|RNN|LSTM|GRU|encoder-decoder|attention mechanism|diffusion model)\b`),
			},
			graph.EntityFramework: {
				regexp.MustCompile(`(?i)\b(?:PyTorch|TensorFlow|JAX|Keras|scikit-learn|Hugging ?Face(?: Transformers)?|ONNX)\b`),
			},
			graph.EntityBenchmark: {
				regexp.MustCompile(`(?i)\b(?:MMLU|HellaSwag|BIG-bench|HumanEval|GSM8K|TruthfulQA)\b`),
			},
		},
		PositiveContextCues: map[graph.EntityType][]string{
			graph.EntityModel:       {"trained", "fine-tuned", "model", "pretrained"},
			graph.EntityDataset:     {"dataset", "corpus", "benchmark"},
			graph.EntityMetric:      {"achieved", "score", "evaluation"},
			graph.EntityArchitecture: {"architecture", "based on", "uses"},
			graph.EntityFramework:   {"implemented in", "built with", "using"},
		},
	}
}

// NewScientificPatternRecognizer builds a PatternRecognizer tuned for the
// general-science ontology members spec.md calls out for the
// "ScientificRecognizer" variant: concept/theory/methodology/finding/
// hypothesis/limitation/task.
func NewScientificPatternRecognizer() *PatternRecognizer {
	return &PatternRecognizer{
		Patterns: map[graph.EntityType][]*regexp.Regexp{
			graph.EntityHypothesis: {
				regexp.MustCompile(`(?i)\bif\b[^.]{3,120}\bthen\b[^.]{3,160}\.`),
			},
			graph.EntityFinding: {
				regexp.MustCompile(`(?i)\b(?:we (?:show|find|observe|demonstrate) that\b[^.]{3,200}\.)`),
			},
			graph.EntityLimitation: {
				regexp.MustCompile(`(?i)\b(?:a limitation of this (?:work|approach|method) is\b[^.]{3,200}\.)`),
			},
			graph.EntityMethodology: {
				regexp.MustCompile(`(?i)\b(?:we propose|we introduce|our (?:method|approach))\b[^.]{3,160}\.`),
			},
			graph.EntityTask: {
				regexp.MustCompile(`(?i)\b(?:classification|regression|segmentation|translation|summarization|question answering|named entity recognition)\b`),
			},
		},
		PositiveContextCues: map[graph.EntityType][]string{
			graph.EntityFinding:     {"we show", "we find", "results indicate"},
			graph.EntityHypothesis:  {"we hypothesize", "we expect"},
			graph.EntityLimitation:  {"limitation", "does not", "fails to"},
			graph.EntityMethodology: {"method", "approach", "propose"},
		},
	}
}

func (r *PatternRecognizer) Recognize(ctx context.Context, text string) ([]graph.Entity, error) {
	var entities []graph.Entity

	for entityType, patterns := range r.Patterns {
		cues := r.PositiveContextCues[entityType]
		for _, re := range patterns {
			matches := re.FindAllStringIndex(text, -1)
			for _, m := range matches {
				start, end := m[0], m[1]
				surface := text[start:end]
				window := surroundingWindow(text, start, end, contextWindow)

				confidence := computeConfidence(confidenceParams{
					entityType:         entityType,
					surface:            surface,
					context:            window,
					positiveContextCue: cues,
				})

				span := &graph.Span{Start: start, End: end}
				e := graph.NewEntity(surface, entityType, confidence, span)
				e.Metadata["recognizer"] = "pattern"
				entities = append(entities, e)
			}
		}
	}

	return entities, nil
}
