package knowgraph

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/brunobiangulo/knowgraph/errs"
)

// SaveExtractionResults writes a document's entities, relationships, and
// knowledge graph as JSON artifacts under outputDir/docID/, per spec.md
// §4.11/§6's save_extraction_results(output_dir, doc_id?) contract, and
// returns the directory written to. An empty outputDir falls back to
// Config.OutputDir; an empty docID saves every document currently held
// in memory.
func (e *Engine) SaveExtractionResults(outputDir, docID string) (string, error) {
	if outputDir == "" {
		outputDir = e.cfg.OutputDir
	}

	if docID != "" {
		return e.saveOne(outputDir, docID)
	}

	e.mu.RLock()
	ids := make([]string, 0, len(e.docs))
	for id := range e.docs {
		ids = append(ids, id)
	}
	e.mu.RUnlock()

	for _, id := range ids {
		if _, err := e.saveOne(outputDir, id); err != nil {
			return outputDir, err
		}
	}
	if err := e.saveStatistics(outputDir); err != nil {
		return outputDir, err
	}
	return outputDir, nil
}

func (e *Engine) saveOne(outputDir, docID string) (string, error) {
	e.mu.RLock()
	state, ok := e.docs[docID]
	e.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("knowgraph: no extraction results for document %q", docID)
	}

	dir := filepath.Join(outputDir, sanitizeID(docID))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errs.New(errs.KindCheckpoint, "create output directory", err)
	}

	if err := writeJSON(filepath.Join(dir, "entities.json"), state.Entities); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(dir, "relationships.json"), state.Relationships); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(dir, "knowledge_graph.json"), state.Graph); err != nil {
		return "", err
	}

	if err := e.saveStatistics(outputDir); err != nil {
		return dir, err
	}
	return dir, nil
}

// saveStatistics writes the process-wide extraction_statistics.json
// artifact summarizing every document currently held in memory.
func (e *Engine) saveStatistics(outputDir string) error {
	stats, err := e.GetExtractionStatistics()
	if err != nil {
		return err
	}
	path := filepath.Join(outputDir, "extraction_statistics.json")
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return errs.New(errs.KindCheckpoint, "create output directory", err)
	}
	return writeJSON(path, stats)
}

func writeJSON(path string, v any) error {
	buf, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errs.New(errs.KindSchemaValidation, "marshal extraction artifact", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf, 0o644); err != nil {
		return errs.New(errs.KindCheckpoint, "write extraction artifact", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return errs.New(errs.KindCheckpoint, "rename extraction artifact into place", err)
	}
	return nil
}

func sanitizeID(id string) string {
	out := make([]rune, 0, len(id))
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			out = append(out, r)
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}
