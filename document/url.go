package document

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// URLProcessor fetches a document over HTTP, sniffs its content type, and
// dispatches to the appropriate Registry processor via a staged temp
// file. Grounded on theRebelliousNerd-codenerd's fetchRawContent/
// fetchAndExtract (context-aware request, size-limited body read,
// content inspected before parsing).
type URLProcessor struct {
	Registry   *Registry
	HTTPClient *http.Client
	MaxBytes   int64
	UserAgent  string
}

const defaultMaxFetchBytes = 10 << 20 // 10MB

func (p *URLProcessor) client() *http.Client {
	if p.HTTPClient != nil {
		return p.HTTPClient
	}
	return &http.Client{Timeout: 30 * time.Second}
}

func (p *URLProcessor) maxBytes() int64 {
	if p.MaxBytes > 0 {
		return p.MaxBytes
	}
	return defaultMaxFetchBytes
}

// Fetch downloads url, stages it to a temp file, dispatches it through
// Registry by sniffed format, and attaches the URL and response headers
// to the resulting Document's metadata.
func (p *URLProcessor) Fetch(ctx context.Context, url string) (*Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	if p.UserAgent != "" {
		req.Header.Set("User-Agent", p.UserAgent)
	}

	resp, err := p.client().Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching %s: HTTP %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, p.maxBytes()))
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	format := sniffFormat(resp.Header.Get("Content-Type"), url)

	tmp, err := os.CreateTemp("", "knowgraph-fetch-*."+format)
	if err != nil {
		return nil, fmt.Errorf("staging temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(body); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("writing temp file: %w", err)
	}
	tmp.Close()

	registry := p.Registry
	if registry == nil {
		registry = NewRegistry()
	}

	doc, err := registry.Process(ctx, tmp.Name())
	if err != nil {
		return nil, err
	}

	doc.Path = url
	if doc.Metadata == nil {
		doc.Metadata = map[string]any{}
	}
	doc.Metadata["url"] = url
	headers := map[string]string{}
	for k, v := range resp.Header {
		if len(v) > 0 {
			headers[k] = v[0]
		}
	}
	doc.Metadata["response_headers"] = headers

	return doc, nil
}

func sniffFormat(contentType, url string) string {
	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "pdf"):
		return "pdf"
	case strings.Contains(ct, "html"):
		return "html"
	case strings.Contains(ct, "markdown"):
		return "md"
	}

	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(url)), ".")
	switch ext {
	case "pdf", "html", "htm", "md", "markdown", "docx", "xlsx", "pptx":
		return ext
	default:
		return "html"
	}
}
