package document

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// ErrExternalParserRequired is returned for legacy binary office formats
// (.doc/.xls/.ppt) that have no free parsing library in the ecosystem;
// adapted from parser.LegacyParser's identical stub, which routes those
// formats to an external service instead.
var ErrExternalParserRequired = errors.New("document: legacy binary format requires an external parser")

// LegacyProcessor extracts best-effort plain text from the zip/XML-based
// Office Open XML formats (.docx/.xlsx/.pptx) and funnels it into the
// text document type, since spec.md's DocumentType enum is closed and
// does not carry dedicated spreadsheet/presentation members. Binary
// pre-XML formats (.doc/.xls/.ppt) fail with ErrExternalParserRequired.
type LegacyProcessor struct{}

func (p *LegacyProcessor) Formats() []string {
	return []string{"docx", "xlsx", "pptx", "doc", "xls", "ppt"}
}

func (p *LegacyProcessor) Process(ctx context.Context, path string) (*Document, error) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	switch ext {
	case "docx":
		return p.processDOCX(path)
	case "xlsx":
		return p.processXLSX(path)
	case "pptx":
		return p.processPPTX(path)
	default:
		return nil, fmt.Errorf("%w: .%s", ErrExternalParserRequired, ext)
	}
}

func (p *LegacyProcessor) processXLSX(path string) (*Document, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening XLSX: %w", err)
	}
	defer f.Close()

	var segments []Segment
	var content strings.Builder

	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil || len(rows) == 0 {
			continue
		}
		var sheetText strings.Builder
		for _, row := range rows {
			sheetText.WriteString("| " + strings.Join(row, " | ") + " |\n")
		}
		text := strings.TrimSpace(sheetText.String())

		seg := newSegment(newSegmentID(), SegmentParagraph, text)
		seg.Heading = sheet
		segments = append(segments, seg)

		if content.Len() > 0 {
			content.WriteString("\n\n")
		}
		content.WriteString(text)
	}

	if len(segments) == 0 {
		return nil, fmt.Errorf("no data found in XLSX")
	}

	return &Document{
		Content:     content.String(),
		Type:        TypeText,
		Path:        path,
		Metadata:    map[string]any{"source_format": "xlsx"},
		Segments:    segments,
		ProcessedAt: time.Now().UTC(),
	}, nil
}

// docxParagraph mirrors the tiny slice of word/document.xml structure we
// need: a run of text nodes inside a paragraph.
type docxParagraph struct {
	XMLName xml.Name   `xml:"p"`
	Runs    []docxRun  `xml:"r"`
}

type docxRun struct {
	Text []string `xml:"t"`
}

type docxBody struct {
	Paragraphs []docxParagraph `xml:"body>p"`
}

func (p *LegacyProcessor) processDOCX(path string) (*Document, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("opening DOCX: %w", err)
	}
	defer r.Close()

	var docFile *zip.File
	for _, f := range r.File {
		if f.Name == "word/document.xml" {
			docFile = f
			break
		}
	}
	if docFile == nil {
		return nil, fmt.Errorf("word/document.xml not found in DOCX")
	}

	rc, err := docFile.Open()
	if err != nil {
		return nil, fmt.Errorf("opening document.xml: %w", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, err
	}

	var body docxBody
	if err := xml.Unmarshal(data, &body); err != nil {
		return nil, fmt.Errorf("parsing DOCX XML: %w", err)
	}

	var segments []Segment
	var content strings.Builder
	for _, para := range body.Paragraphs {
		var text strings.Builder
		for _, run := range para.Runs {
			for _, t := range run.Text {
				text.WriteString(t)
			}
		}
		trimmed := strings.TrimSpace(text.String())
		if trimmed == "" {
			continue
		}
		segments = append(segments, newSegment(newSegmentID(), SegmentParagraph, trimmed))
		if content.Len() > 0 {
			content.WriteString("\n\n")
		}
		content.WriteString(trimmed)
	}

	return &Document{
		Content:     content.String(),
		Type:        TypeText,
		Path:        path,
		Metadata:    map[string]any{"source_format": "docx"},
		Segments:    segments,
		ProcessedAt: time.Now().UTC(),
	}, nil
}

type pptxText struct {
	XMLName xml.Name   `xml:"txBody"`
	Paras   []pptxPara `xml:"p"`
}

type pptxPara struct {
	Runs []pptxRun `xml:"r"`
}

type pptxRun struct {
	Text string `xml:"t"`
}

func (p *LegacyProcessor) processPPTX(path string) (*Document, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("opening PPTX: %w", err)
	}
	defer r.Close()

	var slideFiles []*zip.File
	for _, f := range r.File {
		if strings.HasPrefix(f.Name, "ppt/slides/slide") && strings.HasSuffix(f.Name, ".xml") {
			slideFiles = append(slideFiles, f)
		}
	}

	var segments []Segment
	var content strings.Builder

	for i, f := range slideFiles {
		rc, err := f.Open()
		if err != nil {
			continue
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			continue
		}

		slideText := extractPPTXSlideText(data)
		if slideText == "" {
			continue
		}

		seg := newSegment(newSegmentID(), SegmentPage, slideText)
		seg.Heading = fmt.Sprintf("Slide %d", i+1)
		segments = append(segments, seg)

		if content.Len() > 0 {
			content.WriteString("\n\n")
		}
		content.WriteString(slideText)
	}

	return &Document{
		Content:     content.String(),
		Type:        TypeText,
		Path:        path,
		Metadata:    map[string]any{"source_format": "pptx"},
		Segments:    segments,
		ProcessedAt: time.Now().UTC(),
	}, nil
}

func extractPPTXSlideText(data []byte) string {
	decoder := xml.NewDecoder(strings.NewReader(string(data)))
	var sb strings.Builder
	for {
		tok, err := decoder.Token()
		if err != nil {
			break
		}
		if el, ok := tok.(xml.StartElement); ok && el.Name.Local == "t" {
			var text string
			_ = decoder.DecodeElement(&text, &el)
			if text != "" {
				sb.WriteString(text)
				sb.WriteString(" ")
			}
		}
	}
	return strings.TrimSpace(sb.String())
}
