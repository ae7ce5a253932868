// Command search embeds a query string and runs a filtered semantic search
// against the vector store, printing ranked excerpts.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/ArchonAI/archon-engine/engine/config"
	"github.com/ArchonAI/archon-engine/engine/embed"
	"github.com/ArchonAI/archon-engine/engine/semantic"
	"github.com/ArchonAI/archon-engine/pkg/ollama"
)

func main() {
	var (
		query        = flag.String("q", "", "query text (required)")
		topK         = flag.Int("k", 10, "max results")
		threshold    = flag.Float64("threshold", 0, "minimum similarity score [0,1]")
		category     = flag.String("category", "", "filter by category (comma-separated for any-of)")
		tags         = flag.String("tags", "", "filter by tags (comma-separated for any-of)")
		jurisdiction = flag.String("jurisdiction", "", "filter by jurisdiction (comma-separated for any-of)")
		court        = flag.String("court", "", "filter by court (comma-separated for any-of)")
		year         = flag.Int("year", 0, "filter by document year")
	)
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))
	if *query == "" {
		fmt.Fprintln(os.Stderr, "usage: search -q \"query text\" [-k N] [-threshold 0.5] [-category c] [-tags a,b]")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Error("config load failed", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	registry := embed.NewRegistry(log, embed.NewOffline(cfg.EmbeddingDimension))
	if cfg.OpenAIAPIKey != "" {
		hosted, err := embed.NewHosted(embed.HostedOpts{
			APIKey:  cfg.OpenAIAPIKey,
			Model:   cfg.EmbeddingModel,
			BaseURL: cfg.OpenAIBaseURL,
		})
		if err != nil {
			log.Error("openai provider init failed", "error", err)
			os.Exit(1)
		}
		registry.Register(hosted)
	}
	if cfg.EmbeddingProvider == "ollama" {
		registry.Register(ollama.New(cfg.OllamaURL, cfg.EmbeddingModel, cfg.EmbeddingDimension))
	}

	provider, err := registry.Resolve(cfg.EmbeddingProvider)
	if err != nil {
		log.Error("no embedding provider available", "error", err)
		os.Exit(1)
	}

	vector, err := provider.EmbedOne(ctx, *query)
	if err != nil {
		log.Error("query embedding failed", "provider", provider.Name(), "error", err)
		os.Exit(1)
	}

	vectors, err := semantic.New(cfg.VectorAddr(), cfg.VectorCollection)
	if err != nil {
		log.Error("qdrant connect failed", "error", err)
		os.Exit(1)
	}
	defer vectors.Close()

	results, err := vectors.Search(ctx, vector, semantic.SearchParams{
		TopK:           *topK,
		ScoreThreshold: float32(*threshold),
		Filter: semantic.Filter{
			Categories:    splitList(*category),
			Tags:          splitList(*tags),
			Jurisdictions: splitList(*jurisdiction),
			Courts:        splitList(*court),
			Years:         yearList(*year),
		},
	})
	if err != nil {
		log.Error("search failed", "error", err)
		os.Exit(1)
	}

	if len(results) == 0 {
		fmt.Println("no results")
		return
	}
	for i, r := range results {
		fmt.Printf("%2d. [%.3f] %s (doc %s)\n", i+1, r.Score, r.Title, r.DocumentID)
		fmt.Printf("    %s\n", r.Excerpt)
	}
}

func yearList(y int) []int {
	if y == 0 {
		return nil
	}
	return []int{y}
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
