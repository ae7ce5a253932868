package embed

import (
	"context"
	"fmt"

	"github.com/ArchonAI/archon-engine/engine/domain"
	"github.com/ArchonAI/archon-engine/pkg/fn"
)

// DefaultBatchSize is the number of chunk texts per EmbedBatch call.
const DefaultBatchSize = 10

// Batcher groups chunk texts into batches and runs them through a provider
// with bounded concurrency. Results are correlated back to chunk IDs by
// position within each submitted batch, never across batches.
type Batcher struct {
	provider  Provider
	batchSize int
	workers   int
}

// NewBatcher creates a Batcher. batchSize <= 0 uses DefaultBatchSize;
// workers <= 0 runs batches sequentially.
func NewBatcher(p Provider, batchSize, workers int) *Batcher {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if workers <= 0 {
		workers = 1
	}
	return &Batcher{provider: p, batchSize: batchSize, workers: workers}
}

// Dimension reports the underlying provider's vector width.
func (b *Batcher) Dimension() int { return b.provider.Dimension() }

type batch struct {
	chunkIDs []string
	texts    []string
	tokens   []int
}

// Generate embeds all chunks and returns one Embedding per chunk, in chunk
// order. A failure in any batch fails the whole generation; per-batch
// retry belongs to the pipeline's caller, not here.
func (b *Batcher) Generate(ctx context.Context, chunks []domain.Chunk) ([]domain.Embedding, error) {
	if len(chunks) == 0 {
		return nil, nil
	}

	batches := make([]batch, 0, (len(chunks)+b.batchSize-1)/b.batchSize)
	for start := 0; start < len(chunks); start += b.batchSize {
		end := min(start+b.batchSize, len(chunks))
		bt := batch{
			chunkIDs: make([]string, 0, end-start),
			texts:    make([]string, 0, end-start),
			tokens:   make([]int, 0, end-start),
		}
		for _, c := range chunks[start:end] {
			bt.chunkIDs = append(bt.chunkIDs, c.ID)
			bt.texts = append(bt.texts, c.Text)
			bt.tokens = append(bt.tokens, c.TokenCount)
		}
		batches = append(batches, bt)
	}

	results := fn.ParMapResult(batches, b.workers, func(bt batch) fn.Result[[]domain.Embedding] {
		return b.embedBatch(ctx, bt)
	})
	collected := fn.Collect(results)
	if collected.IsErr() {
		_, err := collected.Unwrap()
		return nil, err
	}

	groups, _ := collected.Unwrap()
	out := make([]domain.Embedding, 0, len(chunks))
	for _, g := range groups {
		out = append(out, g...)
	}
	return out, nil
}

func (b *Batcher) embedBatch(ctx context.Context, bt batch) fn.Result[[]domain.Embedding] {
	vectors, err := b.provider.EmbedBatch(ctx, bt.texts)
	if err != nil {
		return fn.Err[[]domain.Embedding](&domain.EmbeddingProviderError{Provider: b.provider.Name(), Wrapped: err})
	}
	if len(vectors) != len(bt.texts) {
		return fn.Err[[]domain.Embedding](&domain.EmbeddingProviderError{
			Provider: b.provider.Name(),
			Wrapped:  fmt.Errorf("batch returned %d vectors for %d texts", len(vectors), len(bt.texts)),
		})
	}

	embeddings := make([]domain.Embedding, len(vectors))
	for i, vec := range vectors {
		embeddings[i] = domain.Embedding{
			ChunkID:    bt.chunkIDs[i],
			Vector:     vec,
			Provider:   b.provider.Name(),
			Model:      b.provider.Model(),
			TokenCount: bt.tokens[i],
		}
	}
	return fn.Ok(embeddings)
}
