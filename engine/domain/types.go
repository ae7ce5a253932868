// Package domain defines the core types, status lifecycle, and error taxonomy
// for the Archon ingestion engine. It acts as the validation gate at pipeline
// entry points.
package domain

import "time"

// Document is the persisted record for one uploaded document. Its Status is
// owned by the ingestion subsystem while the document is in flight
// (uploaded..indexed); all mutations go through status transitions.
type Document struct {
	ID       string       `json:"id"`
	OwnerID  string       `json:"owner_id,omitempty"`
	Title    string       `json:"title"`
	Category string       `json:"category,omitempty"`
	Status   Status       `json:"status"`
	Meta     DocumentMeta `json:"meta"`
}

// DocumentMeta is the metadata bag attached to a Document.
type DocumentMeta struct {
	SizeBytes     int64      `json:"size_bytes,omitempty"`
	MediaType     string     `json:"media_type,omitempty"`
	ExtractedText string     `json:"extracted_text,omitempty"`
	ErrorMessage  string     `json:"error_message,omitempty"`
	ChunkCount    int        `json:"chunk_count,omitempty"`
	PageCount     int        `json:"page_count,omitempty"`
	Tags          []string   `json:"tags,omitempty"`
	Jurisdiction  string     `json:"jurisdiction,omitempty"`
	Court         string     `json:"court,omitempty"`
	Year          int        `json:"year,omitempty"`
	ProcessingAt  *time.Time `json:"processing_at,omitempty"`
	IndexedAt     *time.Time `json:"indexed_at,omitempty"`
}

// MetaPatch is a partial update applied to DocumentMeta during a status
// transition. Nil fields are left untouched.
type MetaPatch struct {
	ExtractedText *string
	ErrorMessage  *string
	ChunkCount    *int
	PageCount     *int
	ProcessingAt  *time.Time
	IndexedAt     *time.Time
}

// Apply merges the patch into meta.
func (p MetaPatch) Apply(meta *DocumentMeta) {
	if p.ExtractedText != nil {
		meta.ExtractedText = *p.ExtractedText
	}
	if p.ErrorMessage != nil {
		meta.ErrorMessage = *p.ErrorMessage
	}
	if p.ChunkCount != nil {
		meta.ChunkCount = *p.ChunkCount
	}
	if p.PageCount != nil {
		meta.PageCount = *p.PageCount
	}
	if p.ProcessingAt != nil {
		meta.ProcessingAt = p.ProcessingAt
	}
	if p.IndexedAt != nil {
		meta.IndexedAt = p.IndexedAt
	}
}

// Chunk is a bounded, position-tagged segment of a document's extracted text.
// StartPos/EndPos are nominal stride offsets, not exact byte positions.
type Chunk struct {
	ID          string `json:"id"`
	DocumentID  string `json:"document_id"`
	Text        string `json:"text"`
	Index       int    `json:"index"`
	StartPos    int    `json:"start_pos"`
	EndPos      int    `json:"end_pos"`
	TokenCount  int    `json:"token_count"`
	PageNumbers []int  `json:"page_numbers,omitempty"`
	IsHeader    bool   `json:"is_header,omitempty"`
	IsFooter    bool   `json:"is_footer,omitempty"`
	IsTable     bool   `json:"is_table,omitempty"`
	IsList      bool   `json:"is_list,omitempty"`
	EmbeddingID string `json:"embedding_id,omitempty"`
	VectorID    string `json:"vector_id,omitempty"`
}

// Searchable reports whether the chunk has been indexed into the vector
// store. VectorID presence is the source of truth.
func (c Chunk) Searchable() bool { return c.VectorID != "" }

// Embedding is the transient result of embedding one chunk. It is never
// persisted on its own; the vector lives in the index, the linkage on the
// chunk.
type Embedding struct {
	ChunkID    string
	Vector     []float32
	Provider   string
	Model      string
	TokenCount int
}

// VectorRef links a persisted chunk to its embedding and vector entry. It is
// written onto the chunk only after the vector insert succeeds.
type VectorRef struct {
	ChunkID     string
	EmbeddingID string
	VectorID    string
}

// VectorEntry is the unit stored in the vector index. Its ID is distinct
// from the chunk ID; the owning chunk records it as VectorID.
type VectorEntry struct {
	ID           string
	Vector       []float32
	ChunkID      string
	DocumentID   string
	Excerpt      string
	Title        string
	Category     string
	Tags         []string
	Jurisdiction string
	Court        string
	Year         int
	PageNums     []int
	CreatedAt    time.Time
}
