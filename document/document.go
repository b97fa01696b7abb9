// Package document implements format detection, parse dispatch, and the
// Document/Segment content model. Adapted from the teacher's parser
// package (Registry/Parser/Section), generalized to spec.md's flat
// []Segment shape and its closed DocumentType enum.
package document

import (
	"strings"
	"time"
)

// Type is the closed set of document kinds the core understands.
type Type string

const (
	TypeText     Type = "text"
	TypeHTML     Type = "html"
	TypePDF      Type = "pdf"
	TypeMarkdown Type = "markdown"
)

// SegmentKind is the closed set of segment granularities.
type SegmentKind string

const (
	SegmentLine           SegmentKind = "line"
	SegmentParagraph      SegmentKind = "paragraph"
	SegmentHeadingSection SegmentKind = "heading_section"
	SegmentPage           SegmentKind = "page"
)

// Segment is a labeled, immutable chunk of a Document.
type Segment struct {
	ID           string `json:"id"`
	Kind         SegmentKind `json:"kind"`
	Content      string `json:"content"`
	Heading      string `json:"heading,omitempty"`
	HeadingLevel int    `json:"heading_level,omitempty"`
	Start        *int   `json:"start,omitempty"`
	End          *int   `json:"end,omitempty"`
	WordCount    int    `json:"word_count"`
}

func newSegment(id string, kind SegmentKind, content string) Segment {
	return Segment{
		ID:        id,
		Kind:      kind,
		Content:   content,
		WordCount: len(strings.Fields(content)),
	}
}

// Document is immutable once constructed by a Processor.
type Document struct {
	Content     string         `json:"content"`
	Type        Type           `json:"type"`
	Path        string         `json:"path,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	Segments    []Segment      `json:"segments"`
	ProcessedAt time.Time      `json:"processed_at"`
}
