package document

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"
)

// PDFProcessor iterates pages with an optional page range, cleans text,
// and emits one segment per non-empty page. Adapted directly from
// parser.PDFParser, trimmed of its image-extraction and vision-fallback
// concerns (out of scope here).
type PDFProcessor struct {
	// PageRange restricts extraction to [Start, End] inclusive, 1-indexed.
	// Each bound applies only when positive; End is capped at the page
	// count.
	PageRange *PageRange

	// SegmentByPages controls whether each page becomes its own segment
	// (the default, nil meaning "on") or the whole document collapses
	// into one segment.
	SegmentByPages *bool

	// ExtractMetadata controls whether page_count is attached to
	// Metadata (default "on" when nil).
	ExtractMetadata *bool
}

func boolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}

// PageRange restricts PDF extraction to an inclusive 1-indexed span.
type PageRange struct {
	Start int
	End   int
}

func (p *PDFProcessor) Formats() []string { return []string{"pdf"} }

func (p *PDFProcessor) Process(ctx context.Context, path string) (*Document, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}
	defer f.Close()

	totalPages := reader.NumPage()
	start, end := 1, totalPages
	if p.PageRange != nil {
		if p.PageRange.Start > 0 {
			start = p.PageRange.Start
		}
		if p.PageRange.End > 0 && p.PageRange.End < end {
			end = p.PageRange.End
		}
	}

	segmentByPages := boolOr(p.SegmentByPages, true)

	var segments []Segment
	var content strings.Builder

	for i := start; i <= end; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		text = cleanPDFText(text)
		if text == "" {
			continue
		}
		if content.Len() > 0 {
			content.WriteString("\n\n")
		}
		content.WriteString(text)

		if segmentByPages {
			seg := newSegment(newSegmentID(), SegmentPage, text)
			segments = append(segments, seg)
		}
	}

	if !segmentByPages && content.Len() > 0 {
		segments = []Segment{newSegment(newSegmentID(), SegmentPage, content.String())}
	}

	meta := map[string]any{}
	if boolOr(p.ExtractMetadata, true) {
		meta["page_count"] = totalPages
	}

	return &Document{
		Content:     content.String(),
		Type:        TypePDF,
		Path:        path,
		Metadata:    meta,
		Segments:    segments,
		ProcessedAt: time.Now().UTC(),
	}, nil
}

var whitespaceRun = regexp.MustCompile(`[ \t]+`)
var blankLineRun = regexp.MustCompile(`\n{3,}`)

func cleanPDFText(text string) string {
	text = whitespaceRun.ReplaceAllString(text, " ")
	text = blankLineRun.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
