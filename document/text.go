package document

import (
	"bufio"
	"context"
	"os"
	"regexp"
	"strings"
	"time"

	"golang.org/x/text/encoding/htmlindex"
)

// TextOptions tunes TextProcessor beyond its zero-value default (paragraph
// segmentation, no filtering, content read as UTF-8). Configured gates
// every other field: a zero-value TextOptions leaves the original
// always-paragraph-segment behavior untouched.
type TextOptions struct {
	Configured bool

	// Encoding names a golang.org/x/text/encoding/htmlindex encoding
	// (e.g. "windows-1252", "iso-8859-1"); empty means UTF-8.
	Encoding string

	SegmentByParagraph bool
	StripURLs          bool
	StripEmails        bool
	MinLineLength      int
}

// TextProcessor handles plain text files, adapted directly from
// parser.TextParser: one paragraph segment per blank-line-delimited block.
type TextProcessor struct {
	Options TextOptions
}

func (p *TextProcessor) Formats() []string { return []string{"txt", "text"} }

var urlPattern = regexp.MustCompile(`https?://\S+`)
var emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)

func (p *TextProcessor) Process(ctx context.Context, path string) (*Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	data, err := decodeText(raw, p.Options.Encoding)
	if err != nil {
		return nil, err
	}

	doc := processTextContent(data, TypeText, p.Options)
	doc.Path = path
	return doc, nil
}

// decodeText transcodes raw bytes to UTF-8 using the named encoding; an
// empty name is treated as already-UTF-8.
func decodeText(raw []byte, encoding string) (string, error) {
	if encoding == "" {
		return string(raw), nil
	}
	enc, err := htmlindex.Get(encoding)
	if err != nil {
		return "", err
	}
	decoded, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}

// processTextContent splits content into paragraph segments on blank
// lines, tracking byte offsets for each segment, honoring opts when
// Configured.
func processTextContent(content string, docType Type, opts TextOptions) *Document {
	if opts.Configured {
		if opts.StripURLs {
			content = urlPattern.ReplaceAllString(content, "")
		}
		if opts.StripEmails {
			content = emailPattern.ReplaceAllString(content, "")
		}
		if opts.MinLineLength > 0 {
			content = filterShortLines(content, opts.MinLineLength)
		}
	}

	var segments []Segment
	if opts.Configured && !opts.SegmentByParagraph {
		text := strings.TrimSpace(content)
		if text != "" {
			start, end := 0, len(content)
			seg := newSegment(newSegmentID(), SegmentParagraph, text)
			seg.Start = &start
			seg.End = &end
			segments = []Segment{seg}
		}
	} else {
		segments = paragraphSegments(content)
	}

	return &Document{
		Content:     content,
		Type:        docType,
		Metadata:    map[string]any{},
		Segments:    segments,
		ProcessedAt: time.Now().UTC(),
	}
}

// filterShortLines drops lines (other than blank paragraph separators)
// shorter than min, a cheap way to strip running headers/footers/page
// numbers from extracted text.
func filterShortLines(content string, min int) string {
	lines := strings.Split(content, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if strings.TrimSpace(line) == "" || len(strings.TrimSpace(line)) >= min {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

func paragraphSegments(content string) []Segment {
	var segments []Segment
	scanner := bufio.NewScanner(strings.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)

	var buf strings.Builder
	offset := 0
	paraStart := 0

	flush := func(endOffset int) {
		text := strings.TrimSpace(buf.String())
		if text == "" {
			buf.Reset()
			return
		}
		start := paraStart
		end := endOffset
		seg := newSegment(newSegmentID(), SegmentParagraph, text)
		seg.Start = &start
		seg.End = &end
		segments = append(segments, seg)
		buf.Reset()
	}

	for scanner.Scan() {
		line := scanner.Text()
		lineLen := len(line) + 1 // account for stripped newline

		if strings.TrimSpace(line) == "" {
			flush(offset)
			paraStart = offset + lineLen
		} else {
			if buf.Len() == 0 {
				paraStart = offset
			}
			if buf.Len() > 0 {
				buf.WriteByte('\n')
			}
			buf.WriteString(line)
		}
		offset += lineLen
	}
	flush(offset)

	return segments
}
