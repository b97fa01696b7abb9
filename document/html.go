package document

import (
	"context"
	"os"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// HTMLOptions tunes HTMLProcessor beyond its zero-value default (extract
// title/meta, strip script/style, segment by heading). Configured gates
// every other field: a zero-value HTMLOptions leaves the original
// always-on behavior untouched.
type HTMLOptions struct {
	Configured bool

	ExtractTitle      bool
	ExtractMeta       bool
	RemoveScripts     bool
	RemoveStyles      bool
	SegmentByHeadings bool
}

// HTMLProcessor parses HTML with a real DOM walker rather than regex,
// grounded on theRebelliousNerd-codenerd's scraper.go (the one place in
// the retrieval pack that parses HTML with golang.org/x/net/html instead
// of string matching). Strips script/style, pulls title/meta/OpenGraph/
// canonical into Metadata, and segments by heading hierarchy.
type HTMLProcessor struct {
	Options HTMLOptions
}

func (p *HTMLProcessor) Formats() []string { return []string{"html", "htm"} }

func (p *HTMLProcessor) Process(ctx context.Context, path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	doc, err := processHTML(string(data), p.Options)
	if err != nil {
		return nil, err
	}
	doc.Path = path
	return doc, nil
}

// ProcessHTML parses raw HTML bytes into a Document using the default,
// always-on behavior; exported so the URL processor can reuse it without
// round-tripping through a file.
func ProcessHTML(raw string) (*Document, error) {
	return processHTML(raw, HTMLOptions{})
}

func processHTML(raw string, opts HTMLOptions) (*Document, error) {
	extractTitle, extractMeta, removeScripts, removeStyles, segmentByHeadings := true, true, true, true, true
	if opts.Configured {
		extractTitle, extractMeta = opts.ExtractTitle, opts.ExtractMeta
		removeScripts, removeStyles = opts.RemoveScripts, opts.RemoveStyles
		segmentByHeadings = opts.SegmentByHeadings
	}

	root, err := html.Parse(strings.NewReader(raw))
	if err != nil {
		return nil, err
	}

	meta := map[string]any{}
	if extractTitle {
		if title := htmlTitle(root); title != "" {
			meta["title"] = title
		}
	}
	if extractMeta {
		for k, v := range htmlMetaTags(root) {
			meta[k] = v
		}
	}

	var segments []Segment
	if segmentByHeadings {
		segments = htmlHeadingSegments(root, removeScripts, removeStyles)
	} else {
		text := strings.TrimSpace(collapseWhitespace(htmlText(bodyOrRoot(root))))
		if text != "" {
			segments = []Segment{newSegment(newSegmentID(), SegmentParagraph, text)}
		}
	}

	var content strings.Builder
	for i, seg := range segments {
		if i > 0 {
			content.WriteString("\n\n")
		}
		content.WriteString(seg.Content)
	}

	return &Document{
		Content:     content.String(),
		Type:        TypeHTML,
		Metadata:    meta,
		Segments:    segments,
		ProcessedAt: time.Now().UTC(),
	}, nil
}

// bodyOrRoot finds the <body> element, falling back to root if absent.
func bodyOrRoot(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == atom.Body {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := bodyOrRoot(c); b != nil && b.DataAtom == atom.Body {
			return b
		}
	}
	return n
}

func htmlTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.DataAtom == atom.Title && n.FirstChild != nil {
		return strings.TrimSpace(n.FirstChild.Data)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if t := htmlTitle(c); t != "" {
			return t
		}
	}
	return ""
}

func htmlMetaTags(n *html.Node) map[string]string {
	out := map[string]string{}
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.ElementNode && node.DataAtom == atom.Meta {
			var name, content string
			for _, a := range node.Attr {
				switch strings.ToLower(a.Key) {
				case "name", "property":
					name = a.Val
				case "content":
					content = a.Val
				}
			}
			switch name {
			case "description", "og:title", "og:description", "og:type":
				out[name] = content
			}
		}
		if node.Type == html.ElementNode && node.DataAtom == atom.Link {
			rel, href := "", ""
			for _, a := range node.Attr {
				switch strings.ToLower(a.Key) {
				case "rel":
					rel = a.Val
				case "href":
					href = a.Val
				}
			}
			if rel == "canonical" {
				out["canonical"] = href
			}
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return out
}

var headingLevels = map[atom.Atom]int{
	atom.H1: 1, atom.H2: 2, atom.H3: 3, atom.H4: 4, atom.H5: 5, atom.H6: 6,
}

// htmlHeadingSegments walks the body, starting a new segment at each
// heading element and accumulating subsequent text/code nodes until the
// next heading. script/style subtrees are skipped when the corresponding
// flag is set; head/noscript are always skipped.
func htmlHeadingSegments(root *html.Node, removeScripts, removeStyles bool) []Segment {
	var segments []Segment
	var heading string
	var level int
	var buf strings.Builder

	flush := func() {
		text := strings.TrimSpace(collapseWhitespace(buf.String()))
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

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Noscript, atom.Head:
				return
			case atom.Script:
				if removeScripts {
					return
				}
			case atom.Style:
				if removeStyles {
					return
				}
			}
			if lvl, ok := headingLevels[n.DataAtom]; ok {
				if buf.Len() > 0 || heading != "" {
					flush()
				}
				heading = strings.TrimSpace(htmlText(n))
				level = lvl
				return
			}
		}
		if n.Type == html.TextNode {
			t := strings.TrimSpace(n.Data)
			if t != "" {
				buf.WriteString(t)
				buf.WriteString(" ")
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	flush()

	return segments
}

func htmlText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.TextNode {
			sb.WriteString(node.Data)
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

func collapseWhitespace(s string) string {
	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}

