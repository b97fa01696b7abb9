package knowgraph

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/brunobiangulo/knowgraph/circuit"
	"github.com/brunobiangulo/knowgraph/document"
	"github.com/brunobiangulo/knowgraph/graph"
	"github.com/brunobiangulo/knowgraph/retry"
)

// Config holds every tunable named in spec.md §6's configuration table,
// yaml-tagged the way the teacher's own config.go is (the teacher never
// wires a loader to those tags; this rewrite adds LoadConfig so the
// tags are exercised).
type Config struct {
	// KnowledgeExtractor options.
	MinEntityConfidence       float64 `json:"min_entity_confidence" yaml:"min_entity_confidence"`
	MinRelationshipConfidence float64 `json:"min_relationship_confidence" yaml:"min_relationship_confidence"`
	OutputDir                 string  `json:"output_dir" yaml:"output_dir"`
	CheckpointDir             string  `json:"checkpoint_dir" yaml:"checkpoint_dir"`

	// DocumentProcessor options.
	Encoding           string `json:"encoding" yaml:"encoding"`
	SegmentByParagraph bool   `json:"segment_by_paragraph" yaml:"segment_by_paragraph"`
	StripURLs          bool   `json:"strip_urls" yaml:"strip_urls"`
	StripEmails        bool   `json:"strip_emails" yaml:"strip_emails"`
	MinLineLength      int    `json:"min_line_length" yaml:"min_line_length"`

	// HtmlProcessor options.
	HTMLExtractTitle   bool `json:"html_extract_title" yaml:"html_extract_title"`
	HTMLExtractMeta    bool `json:"html_extract_meta" yaml:"html_extract_meta"`
	HTMLSegmentByHeads bool `json:"html_segment_by_headings" yaml:"html_segment_by_headings"`
	HTMLRemoveScripts  bool `json:"html_remove_scripts" yaml:"html_remove_scripts"`
	HTMLRemoveStyles   bool `json:"html_remove_styles" yaml:"html_remove_styles"`

	// PdfProcessor options.
	PDFExtractMetadata bool                `json:"pdf_extract_metadata" yaml:"pdf_extract_metadata"`
	PDFSegmentByPages  bool                `json:"pdf_segment_by_pages" yaml:"pdf_segment_by_pages"`
	PDFPageRange       *PDFPageRangeConfig `json:"pdf_page_range,omitempty" yaml:"pdf_page_range,omitempty"`

	// RetryEngine options.
	Retry RetryConfig `json:"retry" yaml:"retry"`

	// CircuitBreaker options.
	Circuit CircuitConfig `json:"circuit" yaml:"circuit"`

	// Fallback options.
	FallbackQualityEstimates []float64 `json:"fallback_quality_estimates,omitempty" yaml:"fallback_quality_estimates,omitempty"`
	FallbackWrapResult       bool      `json:"fallback_wrap_result" yaml:"fallback_wrap_result"`

	// CombinedRecognizer option: arbitration weight per entity type when
	// two recognizers disagree on the same span. Nil means
	// compose.CompositeRecognizer's own defaults.
	TypePriorities map[graph.EntityType]int `json:"type_priorities,omitempty" yaml:"type_priorities,omitempty"`

	// Concurrency for C10's fan-out, mirroring graph.Builder's
	// concurrency knob.
	CompositeConcurrency int `json:"composite_concurrency" yaml:"composite_concurrency"`
}

// PDFPageRangeConfig mirrors document.PageRange with yaml tags;
// kept distinct from document.PageRange so the document package has no
// dependency on this package's serialization concerns.
type PDFPageRangeConfig struct {
	Start int `json:"start" yaml:"start"`
	End   int `json:"end" yaml:"end"`
}

// RetryConfig mirrors retry.Policy with yaml tags.
type RetryConfig struct {
	MaxAttempts int     `json:"max_attempts" yaml:"max_attempts"`
	Strategy    string  `json:"strategy" yaml:"strategy"`
	BaseDelayMS int     `json:"base_delay_ms" yaml:"base_delay_ms"`
	MaxDelayMS  int     `json:"max_delay_ms" yaml:"max_delay_ms"`
	Jitter      bool    `json:"jitter" yaml:"jitter"`
}

// CircuitConfig mirrors circuit.Config with yaml tags.
type CircuitConfig struct {
	FailureThreshold  int `json:"failure_threshold" yaml:"failure_threshold"`
	RecoveryTimeoutMS int `json:"recovery_timeout_ms" yaml:"recovery_timeout_ms"`
	HalfOpenMaxCalls  int `json:"half_open_max_calls" yaml:"half_open_max_calls"`
}

// DefaultConfig returns spec.md's stated defaults (min-entity-confidence
// 0.5, min-relationship-confidence 0.5) plus retry settings matching
// retry.DefaultPolicy and circuit settings of 5 failures, a 30s recovery
// timeout (circuit.New's own fallback is 60s) and 1 half-open call.
func DefaultConfig() Config {
	return Config{
		MinEntityConfidence:       0.5,
		MinRelationshipConfidence: 0.5,
		OutputDir:                 "./output",
		CheckpointDir:             "./checkpoints",
		SegmentByParagraph:        true,
		MinLineLength:             1,
		HTMLExtractTitle:          true,
		HTMLExtractMeta:           true,
		HTMLSegmentByHeads:        true,
		HTMLRemoveScripts:         true,
		HTMLRemoveStyles:          true,
		PDFExtractMetadata:        true,
		PDFSegmentByPages:         true,
		Retry: RetryConfig{
			MaxAttempts: 3,
			Strategy:    string(retry.StrategyExponential),
			BaseDelayMS: 100,
			MaxDelayMS:  10_000,
			Jitter:      true,
		},
		Circuit: CircuitConfig{
			FailureThreshold:  5,
			RecoveryTimeoutMS: 30_000,
			HalfOpenMaxCalls:  1,
		},
		FallbackWrapResult:   true,
		CompositeConcurrency: 4,
	}
}

// LoadConfig reads a YAML configuration file and overlays it on
// DefaultConfig.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) retryPolicy() retry.Policy {
	p := retry.DefaultPolicy()
	if c.Retry.MaxAttempts > 0 {
		p.MaxAttempts = c.Retry.MaxAttempts
	}
	if c.Retry.Strategy != "" {
		p.Strategy = retry.Strategy(c.Retry.Strategy)
	}
	if c.Retry.BaseDelayMS > 0 {
		p.BaseDelay = msToDuration(c.Retry.BaseDelayMS)
	}
	if c.Retry.MaxDelayMS > 0 {
		p.MaxDelay = msToDuration(c.Retry.MaxDelayMS)
	}
	p.Jitter = c.Retry.Jitter
	return p
}

func msToDuration(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

func (c Config) textOptions() document.TextOptions {
	return document.TextOptions{
		Configured:         true,
		Encoding:           c.Encoding,
		SegmentByParagraph: c.SegmentByParagraph,
		StripURLs:          c.StripURLs,
		StripEmails:        c.StripEmails,
		MinLineLength:      c.MinLineLength,
	}
}

func (c Config) htmlOptions() document.HTMLOptions {
	return document.HTMLOptions{
		Configured:        true,
		ExtractTitle:      c.HTMLExtractTitle,
		ExtractMeta:       c.HTMLExtractMeta,
		RemoveScripts:     c.HTMLRemoveScripts,
		RemoveStyles:      c.HTMLRemoveStyles,
		SegmentByHeadings: c.HTMLSegmentByHeads,
	}
}

func (c Config) pdfProcessor() *document.PDFProcessor {
	segmentByPages := c.PDFSegmentByPages
	extractMetadata := c.PDFExtractMetadata
	p := &document.PDFProcessor{
		SegmentByPages:  &segmentByPages,
		ExtractMetadata: &extractMetadata,
	}
	if c.PDFPageRange != nil {
		p.PageRange = &document.PageRange{Start: c.PDFPageRange.Start, End: c.PDFPageRange.End}
	}
	return p
}

func (c Config) circuitConfig() circuit.Config {
	cfg := circuit.Config{
		FailureThreshold: 5,
		RecoveryTimeout:  msToDuration(30_000),
		HalfOpenMaxCalls: 1,
	}
	if c.Circuit.FailureThreshold > 0 {
		cfg.FailureThreshold = c.Circuit.FailureThreshold
	}
	if c.Circuit.RecoveryTimeoutMS > 0 {
		cfg.RecoveryTimeout = msToDuration(c.Circuit.RecoveryTimeoutMS)
	}
	if c.Circuit.HalfOpenMaxCalls > 0 {
		cfg.HalfOpenMaxCalls = c.Circuit.HalfOpenMaxCalls
	}
	return cfg
}
