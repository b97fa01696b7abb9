package document

import (
	"bufio"
	"context"
	"os"
	"strings"
	"time"
)

// MarkdownProcessor segments by ATX heading structure ("# Heading") using
// the same heading-hierarchy idea as HTMLProcessor, adapted to markdown's
// line-prefix syntax instead of DOM elements. Kept as its own DocumentType
// rather than folded into TypeText because its segmentation follows
// headings, not blank lines.
type MarkdownProcessor struct{}

func (p *MarkdownProcessor) Formats() []string { return []string{"md", "markdown"} }

func (p *MarkdownProcessor) Process(ctx context.Context, path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	doc := ProcessMarkdown(string(data))
	doc.Path = path
	return doc, nil
}

// ProcessMarkdown splits content into heading_section segments on ATX
// headings ("#".."######").
func ProcessMarkdown(content string) *Document {
	segments := markdownHeadingSegments(content)

	return &Document{
		Content:     content,
		Type:        TypeMarkdown,
		Metadata:    map[string]any{},
		Segments:    segments,
		ProcessedAt: time.Now().UTC(),
	}
}

func markdownHeadingSegments(content string) []Segment {
	var segments []Segment
	var heading string
	var level int
	var buf strings.Builder

	flush := func() {
		text := strings.TrimSpace(buf.String())
		if text == "" && heading == "" {
			buf.Reset()
			return
		}
		seg := newSegment(newSegmentID(), SegmentHeadingSection, text)
		seg.Heading = heading
		seg.HeadingLevel = level
		segments = append(segments, seg)
		buf.Reset()
	}

	scanner := bufio.NewScanner(strings.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimLeft(line, " ")
		if lvl, text, ok := atxHeading(trimmed); ok {
			if buf.Len() > 0 || heading != "" {
				flush()
			}
			heading = text
			level = lvl
			continue
		}
		buf.WriteString(line)
		buf.WriteString("\n")
	}
	flush()

	return segments
}

func atxHeading(line string) (level int, text string, ok bool) {
	n := 0
	for n < len(line) && n < 6 && line[n] == '#' {
		n++
	}
	if n == 0 || n >= len(line) || line[n] != ' ' {
		return 0, "", false
	}
	return n, strings.TrimSpace(line[n:]), true
}
