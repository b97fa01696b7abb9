// Command knowgraphctl is a thin CLI wrapper over package knowgraph: it
// extracts a knowledge graph from one document path or URL, prints a
// summary, and writes the JSON artifacts to an output directory.
// Ambient to the core extraction contract, not part of it.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/brunobiangulo/knowgraph"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (YAML)")
	outputDir := flag.String("output", "", "Output directory (overrides config)")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: knowgraphctl [-config path] [-output dir] <document-path-or-url>")
		os.Exit(2)
	}
	target := flag.Arg(0)

	cfg := knowgraph.DefaultConfig()
	if *configPath != "" {
		loaded, err := knowgraph.LoadConfig(*configPath)
		if err != nil {
			slog.Error("loading config", "error", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if *outputDir != "" {
		cfg.OutputDir = *outputDir
	}

	engine, err := knowgraph.New(cfg)
	if err != nil {
		slog.Error("creating engine", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	summary, err := engine.ExtractFromDocument(ctx, target)
	if err != nil {
		slog.Error("extraction failed", "target", target, "error", err)
		os.Exit(1)
	}

	dir, err := engine.SaveExtractionResults("", summary.DocumentID)
	if err != nil {
		slog.Error("saving extraction results", "error", err)
		os.Exit(1)
	}

	fmt.Printf("document_id=%s type=%s level=%s entities=%d relationships=%d output=%s\n",
		summary.DocumentID, summary.DocumentType, summary.Level,
		summary.EntityCount, summary.RelationshipCount, dir)
}
