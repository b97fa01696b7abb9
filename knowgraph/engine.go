// Package knowgraph is the C11 orchestrator: it wires document processing,
// entity/relationship recognition, composite conflict resolution, and
// progressive-level fallback into the single ExtractFromDocument/
// ExtractFromText entry point spec.md §4.11 describes, persisting results
// as JSON artifacts per document. Adapted from goreason.Engine/New's
// constructor shape (sequential sub-collaborator construction, cleanup on
// failure) and Ingest's per-document pipeline (hash/skip-if-unchanged,
// status bookkeeping, slog progress logging).
package knowgraph

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/brunobiangulo/knowgraph/checkpoint"
	"github.com/brunobiangulo/knowgraph/circuit"
	"github.com/brunobiangulo/knowgraph/compose"
	"github.com/brunobiangulo/knowgraph/document"
	"github.com/brunobiangulo/knowgraph/errs"
	"github.com/brunobiangulo/knowgraph/graph"
	"github.com/brunobiangulo/knowgraph/llm"
	"github.com/brunobiangulo/knowgraph/progressive"
	"github.com/brunobiangulo/knowgraph/recognize"
	"github.com/brunobiangulo/knowgraph/relate"
	"github.com/brunobiangulo/knowgraph/retry"
	"github.com/brunobiangulo/knowgraph/txn"
)

// docState is the in-memory record kept per extracted document, guarded by
// Engine.mu.
type docState struct {
	Document      *document.Document
	Entities      []graph.Entity
	Relationships []graph.Relationship
	Graph         *graph.KnowledgeGraph
	Level         progressive.Level
	ExtractedAt   time.Time
}

// Summary is returned by ExtractFromDocument/ExtractFromText.
type Summary struct {
	DocumentID        string           `json:"document_id"`
	DocumentType      document.Type    `json:"document_type"`
	Level             progressive.Level `json:"level"`
	EntityCount       int              `json:"entity_count"`
	RelationshipCount int              `json:"relationship_count"`
	ExtractedAt       time.Time        `json:"extracted_at"`
}

// Engine is the knowledge extraction orchestrator. The zero value is not
// usable; construct with New.
type Engine struct {
	cfg Config

	registry    *document.Registry
	urlProc     *document.URLProcessor
	checkpoints *checkpoint.Store
	retryPolicy retry.Policy
	breaker     *circuit.Breaker
	model       llm.LanguageModel
	logger      *slog.Logger

	mu   sync.RWMutex
	docs map[string]*docState
}

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithLanguageModel wires an optional llm.LanguageModel, enabling the
// FULL progressive level's AI-backed recognizer/extractor branches.
// Without one, FULL degrades to patterns + scientific only.
func WithLanguageModel(m llm.LanguageModel) Option {
	return func(e *Engine) { e.model = m }
}

// WithLogger overrides the default slog.Default() logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// New constructs an Engine from cfg, creating its checkpoint directory.
// Mirrors goreason.New's sequential-construction-with-cleanup-on-failure
// shape, generalized to this package's smaller collaborator set.
func New(cfg Config, opts ...Option) (*Engine, error) {
	e := &Engine{
		cfg:         cfg,
		registry:    document.NewRegistry(),
		retryPolicy: cfg.retryPolicy(),
		logger:      slog.Default(),
		docs:        make(map[string]*docState),
	}

	for _, opt := range opts {
		opt(e)
	}

	e.registry.Register("txt", &document.TextProcessor{Options: cfg.textOptions()})
	e.registry.Register("text", &document.TextProcessor{Options: cfg.textOptions()})
	e.registry.Register("html", &document.HTMLProcessor{Options: cfg.htmlOptions()})
	e.registry.Register("htm", &document.HTMLProcessor{Options: cfg.htmlOptions()})
	e.registry.Register("pdf", cfg.pdfProcessor())

	e.urlProc = &document.URLProcessor{Registry: e.registry}

	cps, err := checkpoint.New(cfg.CheckpointDir)
	if err != nil {
		return nil, fmt.Errorf("knowgraph: construct checkpoint store: %w", err)
	}
	e.checkpoints = cps

	e.breaker = circuit.New(circuit.Config{
		Name:             "document_fetch",
		FailureThreshold: cfg.circuitConfig().FailureThreshold,
		RecoveryTimeout:  cfg.circuitConfig().RecoveryTimeout,
		HalfOpenMaxCalls: cfg.circuitConfig().HalfOpenMaxCalls,
	})

	return e, nil
}

func (e *Engine) minEntityConfidence() float64 {
	if e.cfg.MinEntityConfidence > 0 {
		return e.cfg.MinEntityConfidence
	}
	return 0.5
}

func (e *Engine) minRelationshipConfidence() float64 {
	if e.cfg.MinRelationshipConfidence > 0 {
		return e.cfg.MinRelationshipConfidence
	}
	return 0.5
}

func (e *Engine) concurrency() int {
	if e.cfg.CompositeConcurrency > 0 {
		return e.cfg.CompositeConcurrency
	}
	return 4
}

// fallbackWrapResult threads Config.FallbackWrapResult into
// progressive.Extractor.WrapResult; DefaultConfig sets it true, matching
// progressive's own built-in default.
func (e *Engine) fallbackWrapResult() *bool {
	v := e.cfg.FallbackWrapResult
	return &v
}

// recognizerForLevel builds the recognizer set spec.md §4.12 assigns to
// level.
func (e *Engine) recognizerForLevel(level progressive.Level) recognize.Recognizer {
	augmenters := []recognize.Augmenter{&recognize.RelationalAugmenter{}, &recognize.CitationAugmenter{}}

	switch level {
	case progressive.LevelFull:
		recs := []recognize.Recognizer{
			recognize.NewAIPatternRecognizer(),
			recognize.NewScientificPatternRecognizer(),
		}
		if e.model != nil {
			recs = append(recs, &recognize.AIRecognizer{Model: e.model})
		}
		base := &compose.CompositeRecognizer{Recognizers: recs, TypePriorities: e.cfg.TypePriorities, Concurrency: e.concurrency()}
		return &recognize.AugmentingRecognizer{Base: base, Augmenters: augmenters}
	case progressive.LevelStandard:
		base := &compose.CompositeRecognizer{
			Recognizers: []recognize.Recognizer{
				recognize.NewAIPatternRecognizer(),
				recognize.NewScientificPatternRecognizer(),
			},
			TypePriorities: e.cfg.TypePriorities,
			Concurrency:    e.concurrency(),
		}
		return &recognize.AugmentingRecognizer{Base: base, Augmenters: augmenters}
	case progressive.LevelBasic:
		return recognize.NewAIPatternRecognizer()
	default: // LevelMinimal
		return recognize.NewDictionaryRecognizer(minimalDictionary)
	}
}

// extractorForLevel builds the relationship extractor set spec.md §4.12
// assigns to level. MINIMAL runs no relationship extraction at all.
func (e *Engine) extractorForLevel(level progressive.Level) relate.Extractor {
	switch level {
	case progressive.LevelFull:
		exts := []relate.Extractor{relate.NewPatternExtractor(false)}
		if e.model != nil {
			exts = append(exts, &relate.AIExtractor{Model: e.model})
		}
		return &compose.CompositeExtractor{Extractors: exts, Concurrency: e.concurrency()}
	case progressive.LevelStandard:
		return relate.NewPatternExtractor(false)
	case progressive.LevelBasic:
		return relate.NewPatternExtractor(true)
	default: // LevelMinimal
		return noopExtractor{}
	}
}

type noopExtractor struct{}

func (noopExtractor) Extract(ctx context.Context, text string, entities []graph.Entity) ([]graph.Relationship, error) {
	return nil, nil
}

// minimalDictionary backs the MINIMAL level's dictionary recognizer: a
// small, always-available term list requiring no regex compilation cost
// beyond whole-word matching.
var minimalDictionary = map[string]recognize.DictEntry{
	"neural network": {Type: graph.EntityConcept, BaseConfidence: 0.6},
	"machine learning": {Type: graph.EntityConcept, BaseConfidence: 0.6},
	"dataset":         {Type: graph.EntityDataset, BaseConfidence: 0.55},
}

// documentText flattens a Document's segments into one string for
// recognizers/extractors that operate over plain text.
func documentText(doc *document.Document) string {
	if len(doc.Segments) == 0 {
		return doc.Content
	}
	var b strings.Builder
	for _, seg := range doc.Segments {
		b.WriteString(seg.Content)
		b.WriteString("\n")
	}
	return b.String()
}

// ExtractFromDocument runs the full C11 pipeline against a file path or
// URL: process (C7), recognize entities (C8/C10) with progressive
// fallback (C12), filter by MinEntityConfidence, extract relationships
// (C9/C10) with progressive fallback, filter by
// MinRelationshipConfidence, project a KnowledgeGraph (C3), and store the
// result keyed by a generated document id.
func (e *Engine) ExtractFromDocument(ctx context.Context, path string) (*Summary, error) {
	docID := newDocumentID(path)

	doc, err := e.processDocument(ctx, path)
	if err != nil {
		return nil, err
	}

	return e.runPipeline(ctx, docID, doc)
}

// ExtractFromText runs the same pipeline as ExtractFromDocument against an
// in-memory text blob, skipping C7 entirely.
func (e *Engine) ExtractFromText(ctx context.Context, docID, text string) (*Summary, error) {
	if docID == "" {
		docID = newDocumentID(text)
	}
	doc := &document.Document{
		Content:     text,
		Type:        document.TypeText,
		ProcessedAt: time.Now().UTC(),
	}
	return e.runPipeline(ctx, docID, doc)
}

// processDocument dispatches to the URL fetcher or the format registry
// depending on whether path looks like a URL, retrying transient failures
// (C2) through the shared circuit breaker (C3... the document_fetch
// breaker) and classifying errors (C1) along the way.
func (e *Engine) processDocument(ctx context.Context, path string) (*document.Document, error) {
	fetch := func(ctx context.Context) (*document.Document, error) {
		if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
			return circuit.Execute(e.breaker, func() (*document.Document, error) {
				return e.urlProc.Fetch(ctx, path)
			}, nil)
		}
		return e.registry.Process(ctx, path)
	}

	result := retry.Execute(ctx, e.retryPolicy, func(ctx context.Context, attempt int) (*document.Document, error) {
		doc, err := fetch(ctx)
		if err != nil {
			return nil, errs.Classify("process document", err).WithContext(map[string]any{"path": path, "attempt": attempt})
		}
		return doc, nil
	})

	if !result.Success {
		e.logger.Error("document processing failed", "path", path, "attempts", result.Attempts, "error", result.Err)
		return nil, result.Err
	}
	return result.Value, nil
}

// runPipeline executes recognition, relationship extraction, and graph
// projection for an already-processed Document, committing the
// in-memory state addition through a transaction so a mid-pipeline
// failure leaves no partial docs entry behind.
func (e *Engine) runPipeline(ctx context.Context, docID string, doc *document.Document) (*Summary, error) {
	text := documentText(doc)

	entityResult, err := e.recognizeEntities(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("knowgraph: recognize entities for %q: %w", docID, err)
	}
	entities := recognize.Filter(entityResult.Value, e.minEntityConfidence(), nil)

	relResult, err := e.extractRelationships(ctx, text, entities, entityResult.Level)
	if err != nil {
		return nil, fmt.Errorf("knowgraph: extract relationships for %q: %w", docID, err)
	}
	relationships := relate.Filter(relResult, e.minRelationshipConfidence(), nil)

	kg := graph.Build(docID, entities, relationships)

	state := &docState{
		Document:      doc,
		Entities:      entities,
		Relationships: relationships,
		Graph:         kg,
		Level:         entityResult.Level,
		ExtractedAt:   time.Now().UTC(),
	}

	if err := e.commitDocState(docID, state); err != nil {
		return nil, err
	}

	summary := &Summary{
		DocumentID:        docID,
		DocumentType:      doc.Type,
		Level:             state.Level,
		EntityCount:       len(entities),
		RelationshipCount: len(relationships),
		ExtractedAt:       state.ExtractedAt,
	}

	if _, err := e.checkpoints.Save(docID, "extraction", map[string]any{
		"entity_count":       summary.EntityCount,
		"relationship_count": summary.RelationshipCount,
		"level":              string(summary.Level),
	}); err != nil {
		e.logger.Warn("checkpoint save failed", "document_id", docID, "error", err)
	}

	e.logger.Info("extraction complete",
		"document_id", docID, "level", summary.Level,
		"entities", summary.EntityCount, "relationships", summary.RelationshipCount)

	return summary, nil
}

// commitDocState adds state to e.docs inside a transaction (C5) whose
// sole operation is the map insert and whose compensation removes it,
// so a future multi-step commit sequence (e.g. persistence alongside
// registration) rolls back cleanly if a later step fails.
func (e *Engine) commitDocState(docID string, state *docState) error {
	return txn.WithTransaction("register-document", func(t *txn.Transaction) error {
		return t.AddOperation(
			func() error {
				e.mu.Lock()
				e.docs[docID] = state
				e.mu.Unlock()
				return nil
			},
			func() error {
				e.mu.Lock()
				delete(e.docs, docID)
				e.mu.Unlock()
				return nil
			},
		)
	})
}

// recognizeEntities runs progressive.Extractor over the recognizer chain,
// descending from FULL toward MINIMAL whenever a level errors or yields
// zero entities.
func (e *Engine) recognizeEntities(ctx context.Context, text string) (progressive.Result[[]graph.Entity], error) {
	ext := &progressive.Extractor[[]graph.Entity]{
		Current: progressive.LevelFull,
		Run: func(level progressive.Level) ([]graph.Entity, error) {
			r := e.recognizerForLevel(level)
			entities, err := r.Recognize(ctx, text)
			if err != nil {
				return nil, errs.New(errs.KindEntityExtraction, "recognize entities", err).WithContext(map[string]any{"level": string(level)})
			}
			return entities, nil
		},
		Empty:           func(entities []graph.Entity) bool { return len(entities) == 0 },
		QualityOverride: e.cfg.FallbackQualityEstimates,
		WrapResult:      e.fallbackWrapResult(),
	}
	result, err := ext.Process()
	if err != nil {
		return result, err
	}
	return result, nil
}

// extractRelationships runs progressive.Extractor over the extractor
// chain starting at the level recognition settled on, since relationship
// extraction has nothing to gain from a richer level than the entities it
// depends on.
func (e *Engine) extractRelationships(ctx context.Context, text string, entities []graph.Entity, startLevel progressive.Level) ([]graph.Relationship, error) {
	ext := &progressive.Extractor[[]graph.Relationship]{
		Current: startLevel,
		Run: func(level progressive.Level) ([]graph.Relationship, error) {
			extractor := e.extractorForLevel(level)
			rels, err := extractor.Extract(ctx, text, entities)
			if err != nil {
				return nil, errs.New(errs.KindRelationshipExtraction, "extract relationships", err).WithContext(map[string]any{"level": string(level)})
			}
			return rels, nil
		},
		Empty:           func(rels []graph.Relationship) bool { return false },
		QualityOverride: e.cfg.FallbackQualityEstimates,
		WrapResult:      e.fallbackWrapResult(),
	}
	result, err := ext.Process()
	if err != nil {
		if err == progressive.ErrNoLevelSucceeded {
			return nil, nil
		}
		return nil, err
	}
	return result.Value, nil
}

func newDocumentID(seed string) string {
	h := fnv32(seed)
	return fmt.Sprintf("doc-%08x-%d", h, time.Now().UnixNano())
}

// fnv32 is a small non-cryptographic hash used only to make generated
// document ids legible (derived from the source path/text rather than
// purely random), grounded on the teacher's own path-based content
// hashing instinct in Ingest.
func fnv32(s string) uint32 {
	const (
		offset32 = 2166136261
		prime32  = 16777619
	)
	h := uint32(offset32)
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= prime32
	}
	return h
}
