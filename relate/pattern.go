package relate

import (
	"context"
	"regexp"

	"github.com/brunobiangulo/knowgraph/graph"
)

// cueTemplate is one regex template over the text between a candidate
// source and target entity span: {source_text} ... {relation cue} ...
// {target_text}.
type cueTemplate struct {
	relType        graph.RelationType
	cue            *regexp.Regexp
	baseConfidence float64
}

// defaultCueTemplates covers the closed RelationType set with phrase
// cues, each given a 0.7-0.9 base confidence per spec.md §4.9.
var defaultCueTemplates = []cueTemplate{
	{graph.RelTrainedOn, regexp.MustCompile(`(?i)^\s*(?:was |is )?trained on\s*$`), 0.85},
	{graph.RelTrainedOn, regexp.MustCompile(`(?i)^\s*,?\s*trained (?:using|with)\s*$`), 0.75},
	{graph.RelEvaluatedOn, regexp.MustCompile(`(?i)^\s*(?:was |is )?evaluated on\s*$`), 0.85},
	{graph.RelEvaluatedOn, regexp.MustCompile(`(?i)^\s*,?\s*tested on\s*$`), 0.75},
	{graph.RelOutperforms, regexp.MustCompile(`(?i)^\s*outperforms\s*$`), 0.85},
	{graph.RelOutperforms, regexp.MustCompile(`(?i)^\s*(?:beats|surpasses)\s*$`), 0.75},
	{graph.RelDevelopedBy, regexp.MustCompile(`(?i)^\s*(?:was )?developed by\s*$`), 0.85},
	{graph.RelDevelopedBy, regexp.MustCompile(`(?i)^\s*(?:was )?(?:created|built) by\s*$`), 0.75},
	{graph.RelBasedOn, regexp.MustCompile(`(?i)^\s*(?:is )?based on\s*$`), 0.8},
	{graph.RelPartOf, regexp.MustCompile(`(?i)^\s*(?:is )?(?:a )?part of\s*$`), 0.8},
	{graph.RelUses, regexp.MustCompile(`(?i)^\s*uses\s*$`), 0.7},
	{graph.RelImplements, regexp.MustCompile(`(?i)^\s*implements\s*$`), 0.8},
	{graph.RelProposedBy, regexp.MustCompile(`(?i)^\s*(?:was )?proposed by\s*$`), 0.85},
	{graph.RelCites, regexp.MustCompile(`(?i)^\s*cites\s*$`), 0.7},
}

// PatternExtractor matches regex cue templates in the gap between every
// ordered pair of candidate entities, within MaxGap characters.
type PatternExtractor struct {
	Templates []cueTemplate
	MaxGap    int
}

const defaultMaxGap = 60

// NewPatternExtractor returns a PatternExtractor over the default cue
// templates. Pass reduced=true for spec.md §4.12's BASIC level, which
// uses "patterns (reduced template set)".
func NewPatternExtractor(reduced bool) *PatternExtractor {
	templates := defaultCueTemplates
	if reduced {
		templates = reducedCueTemplates()
	}
	return &PatternExtractor{Templates: templates, MaxGap: defaultMaxGap}
}

func reducedCueTemplates() []cueTemplate {
	var out []cueTemplate
	seen := map[graph.RelationType]bool{}
	for _, t := range defaultCueTemplates {
		if seen[t.relType] {
			continue
		}
		seen[t.relType] = true
		out = append(out, t)
	}
	return out
}

func (e *PatternExtractor) Extract(ctx context.Context, text string, entities []graph.Entity) ([]graph.Relationship, error) {
	ordered := sortEntitiesBySpanStart(entities)
	maxGap := e.MaxGap
	if maxGap <= 0 {
		maxGap = defaultMaxGap
	}

	var relationships []graph.Relationship

	for i := 0; i < len(ordered); i++ {
		source := ordered[i]
		for j := i + 1; j < len(ordered); j++ {
			target := ordered[j]
			if target.Span.Start < source.Span.End {
				continue
			}
			gapStart, gapEnd := source.Span.End, target.Span.Start
			if gapEnd-gapStart > maxGap {
				break
			}
			gap := text[gapStart:gapEnd]

			for _, tmpl := range e.Templates {
				if !tmpl.cue.MatchString(collapseSpace(gap)) {
					continue
				}
				distance := target.Span.Start - source.Span.End
				confidence := distancePenalty(tmpl.baseConfidence, distance)

				span := &graph.Span{Start: source.Span.Start, End: target.Span.End}
				rel := graph.NewRelationship(source.ID, target.ID, tmpl.relType, confidence, span)
				rel.Metadata["extractor"] = "pattern"
				relationships = append(relationships, rel)
			}
		}
	}

	return relationships, nil
}
