// Package ingest runs uploaded documents through extraction, chunking,
// embedding, and vector indexing, driving the document status lifecycle as
// it goes. Jobs arrive over NATS; the pipeline itself is queue-agnostic.
package ingest

import (
	"context"
	"log/slog"
	"time"

	"github.com/ArchonAI/archon-engine/engine/chunker"
	"github.com/ArchonAI/archon-engine/engine/domain"
	"github.com/ArchonAI/archon-engine/pkg/metrics"
)

// Job is one processing request for an uploaded document.
type Job struct {
	DocumentID string `json:"document_id"`
	FileRef    string `json:"file_ref"`
	MediaType  string `json:"media_type"`
}

// Progress is the event published as a job moves through its milestones.
type Progress struct {
	DocumentID string `json:"document_id"`
	Percent    int    `json:"percent"`
	Phase      string `json:"phase"`
}

// ProgressFunc receives milestone notifications. Implementations must not
// block; a slow progress sink must not stall the pipeline.
type ProgressFunc func(ctx context.Context, p Progress)

// DocumentStore is the document persistence surface the pipeline needs.
type DocumentStore interface {
	Get(ctx context.Context, id string) (domain.Document, error)
	UpdateStatus(ctx context.Context, id string, status domain.Status, patch domain.MetaPatch) (domain.Document, error)
}

// ChunkStore persists chunk records and their vector linkage.
type ChunkStore interface {
	ReplaceForDocument(ctx context.Context, documentID string, chunks []domain.Chunk) ([]domain.Chunk, error)
	AttachVectorRefs(ctx context.Context, refs []domain.VectorRef) error
	ListByDocument(ctx context.Context, documentID string) ([]domain.Chunk, error)
}

// VectorIndex is the vector store surface the pipeline needs.
type VectorIndex interface {
	InsertMany(ctx context.Context, entries []domain.VectorEntry) error
	DeleteByDocumentID(ctx context.Context, documentID string) error
}

// Embedder turns chunks into embeddings.
type Embedder interface {
	Generate(ctx context.Context, chunks []domain.Chunk) ([]domain.Embedding, error)
	Dimension() int
}

// TextSource extracts plain text from a stored file.
type TextSource interface {
	ExtractText(ctx context.Context, fileRef, mediaType string) (string, error)
}

// Deps holds the external dependencies for the ingestion pipeline.
type Deps struct {
	Documents DocumentStore
	Chunks    ChunkStore
	Vectors   VectorIndex
	Embedder  Embedder
	Source    TextSource

	Chunking chunker.Config

	// CallTimeout bounds each external phase (extraction, embedding,
	// vector insert) individually, not the job as a whole.
	CallTimeout time.Duration

	Progress ProgressFunc
	Metrics  *metrics.Registry
	Logger   *slog.Logger
}
