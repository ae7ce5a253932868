// Command worker consumes document processing jobs from NATS and runs them
// through the ingestion pipeline: extract, chunk, embed, index.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/nats-io/nats.go"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/ArchonAI/archon-engine/engine/config"
	"github.com/ArchonAI/archon-engine/engine/embed"
	"github.com/ArchonAI/archon-engine/engine/extract"
	"github.com/ArchonAI/archon-engine/engine/ingest"
	"github.com/ArchonAI/archon-engine/engine/semantic"
	"github.com/ArchonAI/archon-engine/engine/store"
	"github.com/ArchonAI/archon-engine/pkg/metrics"
	"github.com/ArchonAI/archon-engine/pkg/ollama"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(log)

	cfg, err := config.Load()
	if err != nil {
		log.Error("config load failed", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Embedding providers. Offline is always registered so the worker can
	// index without credentials; hosted providers join when configured.
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
	if cfg.CustomEmbedURL != "" {
		registry.Register(embed.NewCustomEndpoint("custom", cfg.CustomEmbedURL, cfg.EmbeddingModel, cfg.EmbeddingDimension))
	}

	provider, err := registry.Resolve(cfg.EmbeddingProvider)
	if err != nil {
		log.Error("no embedding provider available", "error", err)
		os.Exit(1)
	}
	batcher := embed.NewBatcher(provider, cfg.EmbeddingBatchSize, cfg.EmbeddingWorkers)
	log.Info("embedding provider ready", "provider", provider.Name(), "model", provider.Model(), "dims", batcher.Dimension())

	// Neo4j document/chunk store.
	driver, err := neo4j.NewDriverWithContext(cfg.Neo4jURL, neo4j.BasicAuth(cfg.Neo4jUser, cfg.Neo4jPass, ""))
	if err != nil {
		log.Error("neo4j connect failed", "error", err)
		os.Exit(1)
	}
	defer driver.Close(ctx)
	if err := driver.VerifyConnectivity(ctx); err != nil {
		log.Error("neo4j verify failed", "error", err)
		os.Exit(1)
	}
	db := store.NewDB(driver)

	// Qdrant vector index. A missing collection is created up front; if
	// that fails the worker cannot index anything and must not start.
	vectors, err := semantic.New(cfg.VectorAddr(), cfg.VectorCollection)
	if err != nil {
		log.Error("qdrant connect failed", "error", err)
		os.Exit(1)
	}
	defer vectors.Close()
	if err := vectors.EnsureCollection(ctx, batcher.Dimension()); err != nil {
		log.Error("qdrant ensure collection failed", "error", err)
		os.Exit(1)
	}
	log.Info("vector store ready", "collection", cfg.VectorCollection)

	nc, err := nats.Connect(cfg.NATSURL)
	if err != nil {
		log.Error("nats connect failed", "error", err)
		os.Exit(1)
	}
	defer nc.Close()

	reg := metrics.New()
	go func() {
		if err := reg.Serve(cfg.MetricsPort); err != nil {
			log.Error("metrics server failed", "port", cfg.MetricsPort, "error", err)
		}
	}()

	pipeline := ingest.NewPipeline(ingest.Deps{
		Documents:   store.NewDocumentStore(db),
		Chunks:      store.NewChunkStore(db),
		Vectors:     vectors,
		Embedder:    batcher,
		Source:      extract.NewDocconvSource(extract.NewLocalDir(cfg.DataDir)),
		Chunking:    cfg.ChunkerConfig(),
		CallTimeout: cfg.CallTimeout,
		Progress:    ingest.NATSProgress(nc, log),
		Metrics:     reg,
		Logger:      log,
	})

	sub, err := ingest.StartConsumer(nc, pipeline, log)
	if err != nil {
		log.Error("consumer start failed", "error", err)
		os.Exit(1)
	}
	defer sub.Unsubscribe()

	log.Info("worker running", "subject", ingest.ProcessSubject, "metrics_port", cfg.MetricsPort)
	<-ctx.Done()
	log.Info("shutting down")
}
