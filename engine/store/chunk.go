package store

import (
	"context"
	"fmt"

	"github.com/ArchonAI/archon-engine/engine/domain"
	"github.com/google/uuid"
)

// ChunkStore persists Chunk records as Chunk nodes keyed by document_id.
type ChunkStore struct {
	db *DB
}

// NewChunkStore creates a ChunkStore.
func NewChunkStore(db *DB) *ChunkStore {
	return &ChunkStore{db: db}
}

// ReplaceForDocument deletes any existing chunks for the document and
// creates the given batch, assigning fresh chunk IDs. Delete-then-recreate
// keeps job retries from accumulating duplicate chunks.
func (s *ChunkStore) ReplaceForDocument(ctx context.Context, documentID string, chunks []domain.Chunk) ([]domain.Chunk, error) {
	if err := domain.ValidateChunkSequence(chunks); err != nil {
		return nil, err
	}

	sess := s.db.session(ctx)
	defer sess.Close(ctx)

	if _, err := sess.Run(ctx,
		`MATCH (c:Chunk {document_id: $doc}) DELETE c`,
		map[string]any{"doc": documentID}); err != nil {
		return nil, fmt.Errorf("store: delete chunks for %s: %w", documentID, err)
	}

	out := make([]domain.Chunk, len(chunks))
	rows := make([]map[string]any, len(chunks))
	for i, c := range chunks {
		c.ID = uuid.NewString()
		c.DocumentID = documentID
		out[i] = c
		rows[i] = chunkToRow(c)
	}

	if _, err := sess.Run(ctx,
		`UNWIND $rows AS row CREATE (c:Chunk) SET c = row`,
		map[string]any{"rows": rows}); err != nil {
		return nil, fmt.Errorf("store: create %d chunks for %s: %w", len(rows), documentID, err)
	}
	return out, nil
}

// AttachVectorRefs writes embedding and vector IDs onto persisted chunks.
// Every ref must hit an existing chunk; a shortfall means the chunks were
// deleted under us and the job should fail.
func (s *ChunkStore) AttachVectorRefs(ctx context.Context, refs []domain.VectorRef) error {
	if len(refs) == 0 {
		return nil
	}
	rows := make([]map[string]any, len(refs))
	for i, r := range refs {
		rows[i] = map[string]any{
			"id":           r.ChunkID,
			"embedding_id": r.EmbeddingID,
			"vector_id":    r.VectorID,
		}
	}

	sess := s.db.session(ctx)
	defer sess.Close(ctx)

	res, err := sess.Run(ctx,
		`UNWIND $rows AS row
		 MATCH (c:Chunk {id: row.id})
		 SET c.embedding_id = row.embedding_id, c.vector_id = row.vector_id
		 RETURN count(c) AS n`,
		map[string]any{"rows": rows})
	if err != nil {
		return fmt.Errorf("store: attach vector refs: %w", err)
	}
	if res.Next(ctx) {
		rec := res.Record()
		if len(rec.Values) > 0 {
			if n, ok := rec.Values[0].(int64); ok && int(n) != len(refs) {
				return fmt.Errorf("store: attached %d of %d vector refs: %w", n, len(refs), domain.ErrNotFound)
			}
		}
	}
	return nil
}

// ListByDocument returns a document's chunks ordered by chunk index.
func (s *ChunkStore) ListByDocument(ctx context.Context, documentID string) ([]domain.Chunk, error) {
	sess := s.db.session(ctx)
	defer sess.Close(ctx)

	res, err := sess.Run(ctx,
		`MATCH (c:Chunk {document_id: $doc}) RETURN c ORDER BY c.chunk_index`,
		map[string]any{"doc": documentID})
	if err != nil {
		return nil, fmt.Errorf("store: list chunks: %w", err)
	}

	var chunks []domain.Chunk
	for res.Next(ctx) {
		props, err := nodeProps(res.Record())
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, chunkFromProps(props))
	}
	return chunks, nil
}

// CountByDocument returns the number of chunks persisted for a document.
func (s *ChunkStore) CountByDocument(ctx context.Context, documentID string) (int, error) {
	sess := s.db.session(ctx)
	defer sess.Close(ctx)

	res, err := sess.Run(ctx,
		`MATCH (c:Chunk {document_id: $doc}) RETURN count(c) AS n`,
		map[string]any{"doc": documentID})
	if err != nil {
		return 0, fmt.Errorf("store: count chunks: %w", err)
	}
	if !res.Next(ctx) {
		return 0, nil
	}
	rec := res.Record()
	if len(rec.Values) > 0 {
		if n, ok := rec.Values[0].(int64); ok {
			return int(n), nil
		}
	}
	return 0, nil
}

// DeleteByDocument removes all chunks for a document.
func (s *ChunkStore) DeleteByDocument(ctx context.Context, documentID string) error {
	sess := s.db.session(ctx)
	defer sess.Close(ctx)

	_, err := sess.Run(ctx,
		`MATCH (c:Chunk {document_id: $doc}) DELETE c`,
		map[string]any{"doc": documentID})
	if err != nil {
		return fmt.Errorf("store: delete chunks: %w", err)
	}
	return nil
}

func chunkToRow(c domain.Chunk) map[string]any {
	row := map[string]any{
		"id":          c.ID,
		"document_id": c.DocumentID,
		"text":        c.Text,
		"chunk_index": c.Index,
		"start_pos":   c.StartPos,
		"end_pos":     c.EndPos,
		"token_count": c.TokenCount,
		"is_header":   c.IsHeader,
		"is_footer":   c.IsFooter,
		"is_table":    c.IsTable,
		"is_list":     c.IsList,
	}
	if len(c.PageNumbers) > 0 {
		row["page_numbers"] = c.PageNumbers
	}
	if c.EmbeddingID != "" {
		row["embedding_id"] = c.EmbeddingID
	}
	if c.VectorID != "" {
		row["vector_id"] = c.VectorID
	}
	return row
}

func chunkFromProps(props map[string]any) domain.Chunk {
	return domain.Chunk{
		ID:          propString(props, "id"),
		DocumentID:  propString(props, "document_id"),
		Text:        propString(props, "text"),
		Index:       propInt(props, "chunk_index"),
		StartPos:    propInt(props, "start_pos"),
		EndPos:      propInt(props, "end_pos"),
		TokenCount:  propInt(props, "token_count"),
		PageNumbers: propInts(props, "page_numbers"),
		IsHeader:    propBool(props, "is_header"),
		IsFooter:    propBool(props, "is_footer"),
		IsTable:     propBool(props, "is_table"),
		IsList:      propBool(props, "is_list"),
		EmbeddingID: propString(props, "embedding_id"),
		VectorID:    propString(props, "vector_id"),
	}
}
