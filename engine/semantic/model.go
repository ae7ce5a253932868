// Package semantic is the sole owner of all Qdrant operations: collection
// management, vector upserts, filtered similarity search, and deletes.
package semantic

// SearchResult is a single similarity hit. Score is normalized to [0,1],
// higher is more similar.
type SearchResult struct {
	VectorID   string            `json:"vector_id"`
	ChunkID    string            `json:"chunk_id"`
	DocumentID string            `json:"document_id"`
	Score      float32           `json:"score"`
	Excerpt    string            `json:"excerpt"`
	Title      string            `json:"title"`
	Category   string            `json:"category"`
	Meta       map[string]string `json:"meta,omitempty"`
}

// Filter restricts search to entries matching every non-empty field, with
// values within a field combined as alternatives. Empty fields are omitted
// from the compiled expression entirely.
type Filter struct {
	Categories    []string
	Tags          []string
	Jurisdictions []string
	Courts        []string
	Years         []int
}

// IsZero reports whether no filter fields are set.
func (f Filter) IsZero() bool {
	return len(f.Categories) == 0 && len(f.Tags) == 0 &&
		len(f.Jurisdictions) == 0 && len(f.Courts) == 0 && len(f.Years) == 0
}

// SearchParams controls a similarity search.
type SearchParams struct {
	TopK           int
	ScoreThreshold float32
	Filter         Filter
}
