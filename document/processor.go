package document

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Processor handles one document format.
type Processor interface {
	Process(ctx context.Context, path string) (*Document, error)
	Formats() []string
}

// Registry dispatches to a Processor by file extension, constructing the
// heavier sub-processors (HTML, PDF) lazily on first use. Adapted from
// parser.Registry, which eagerly constructs every built-in parser up
// front; this rewrite defers construction behind sync.Once per
// spec.md's "lazy sub-processors" design note.
type Registry struct {
	mu         sync.RWMutex
	processors map[string]Processor

	textOnce sync.Once
	text     Processor

	htmlOnce sync.Once
	html     Processor

	pdfOnce sync.Once
	pdf     Processor

	mdOnce sync.Once
	md     Processor

	legacyOnce sync.Once
	legacy     *LegacyProcessor
}

// NewRegistry returns a Registry with no eagerly-constructed processors;
// built-ins are instantiated on first Get/Process call for their format.
func NewRegistry() *Registry {
	return &Registry{processors: make(map[string]Processor)}
}

// Register overrides or adds a processor for the given format, letting
// callers substitute their own DocumentReader-equivalent implementation.
func (r *Registry) Register(format string, p Processor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.processors[strings.ToLower(format)] = p
}

func (r *Registry) builtin(format string) (Processor, error) {
	switch format {
	case "txt", "text":
		r.textOnce.Do(func() { r.text = &TextProcessor{} })
		return r.text, nil
	case "html", "htm":
		r.htmlOnce.Do(func() { r.html = &HTMLProcessor{} })
		return r.html, nil
	case "pdf":
		r.pdfOnce.Do(func() { r.pdf = &PDFProcessor{} })
		return r.pdf, nil
	case "md", "markdown":
		r.mdOnce.Do(func() { r.md = &MarkdownProcessor{} })
		return r.md, nil
	case "docx", "xlsx", "pptx", "doc", "xls", "ppt":
		r.legacyOnce.Do(func() { r.legacy = &LegacyProcessor{} })
		return r.legacy, nil
	default:
		return nil, fmt.Errorf("document: no processor for format %q", format)
	}
}

// Get resolves a Processor for the given format, preferring a registered
// override over a built-in.
func (r *Registry) Get(format string) (Processor, error) {
	format = strings.ToLower(format)

	r.mu.RLock()
	p, ok := r.processors[format]
	r.mu.RUnlock()
	if ok {
		return p, nil
	}
	return r.builtin(format)
}

// Process detects the format from path's extension and dispatches.
func (r *Registry) Process(ctx context.Context, path string) (*Document, error) {
	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	p, err := r.Get(format)
	if err != nil {
		return nil, err
	}
	return p.Process(ctx, path)
}

func newSegmentID() string { return uuid.NewString() }
