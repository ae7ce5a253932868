package store

import (
	"context"
	"fmt"

	"github.com/ArchonAI/archon-engine/engine/domain"
)

// DocumentStore persists Document records as Document nodes.
type DocumentStore struct {
	db *DB
}

// NewDocumentStore creates a DocumentStore.
func NewDocumentStore(db *DB) *DocumentStore {
	return &DocumentStore{db: db}
}

// Get returns a document by ID, or domain.ErrNotFound.
func (s *DocumentStore) Get(ctx context.Context, id string) (domain.Document, error) {
	sess := s.db.session(ctx)
	defer sess.Close(ctx)

	res, err := sess.Run(ctx, `MATCH (d:Document {id: $id}) RETURN d`, map[string]any{"id": id})
	if err != nil {
		return domain.Document{}, fmt.Errorf("store: get document: %w", err)
	}
	if !res.Next(ctx) {
		return domain.Document{}, fmt.Errorf("store: document %s: %w", id, domain.ErrNotFound)
	}
	props, err := nodeProps(res.Record())
	if err != nil {
		return domain.Document{}, err
	}
	return docFromProps(props), nil
}

// Create persists a new document record.
func (s *DocumentStore) Create(ctx context.Context, doc domain.Document) (domain.Document, error) {
	sess := s.db.session(ctx)
	defer sess.Close(ctx)

	res, err := sess.Run(ctx, `CREATE (d:Document $props) RETURN d`, map[string]any{"props": docToProps(doc)})
	if err != nil {
		return domain.Document{}, fmt.Errorf("store: create document: %w", err)
	}
	if !res.Next(ctx) {
		return domain.Document{}, fmt.Errorf("store: create document %s returned nothing", doc.ID)
	}
	props, err := nodeProps(res.Record())
	if err != nil {
		return domain.Document{}, err
	}
	return docFromProps(props), nil
}

// UpdateStatus transitions a document to the given status, applying the
// metadata patch atomically with the status write. The transition is checked
// against the lifecycle table; the current persisted status is the source of
// truth for the check.
func (s *DocumentStore) UpdateStatus(ctx context.Context, id string, status domain.Status, patch domain.MetaPatch) (domain.Document, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return domain.Document{}, err
	}
	if err := domain.CheckTransition(current.Status, status); err != nil {
		return domain.Document{}, err
	}

	props := map[string]any{"status": string(status)}
	if patch.ExtractedText != nil {
		props["extracted_text"] = *patch.ExtractedText
	}
	if patch.ErrorMessage != nil {
		props["error_message"] = *patch.ErrorMessage
	}
	if patch.ChunkCount != nil {
		props["chunk_count"] = *patch.ChunkCount
	}
	if patch.PageCount != nil {
		props["page_count"] = *patch.PageCount
	}
	if patch.ProcessingAt != nil {
		props["processing_at"] = formatTime(patch.ProcessingAt)
	}
	if patch.IndexedAt != nil {
		props["indexed_at"] = formatTime(patch.IndexedAt)
	}

	sess := s.db.session(ctx)
	defer sess.Close(ctx)

	res, err := sess.Run(ctx,
		`MATCH (d:Document {id: $id}) SET d += $props RETURN d`,
		map[string]any{"id": id, "props": props})
	if err != nil {
		return domain.Document{}, fmt.Errorf("store: update status: %w", err)
	}
	if !res.Next(ctx) {
		return domain.Document{}, fmt.Errorf("store: document %s: %w", id, domain.ErrNotFound)
	}
	nodeP, err := nodeProps(res.Record())
	if err != nil {
		return domain.Document{}, err
	}
	return docFromProps(nodeP), nil
}

func docToProps(d domain.Document) map[string]any {
	props := map[string]any{
		"id":         d.ID,
		"owner_id":   d.OwnerID,
		"title":      d.Title,
		"category":   d.Category,
		"status":     string(d.Status),
		"size_bytes": d.Meta.SizeBytes,
		"media_type": d.Meta.MediaType,
	}
	if d.Meta.Jurisdiction != "" {
		props["jurisdiction"] = d.Meta.Jurisdiction
	}
	if d.Meta.Court != "" {
		props["court"] = d.Meta.Court
	}
	if d.Meta.Year != 0 {
		props["year"] = d.Meta.Year
	}
	if len(d.Meta.Tags) > 0 {
		props["tags"] = d.Meta.Tags
	}
	return props
}

func docFromProps(props map[string]any) domain.Document {
	doc := domain.Document{
		ID:       propString(props, "id"),
		OwnerID:  propString(props, "owner_id"),
		Title:    propString(props, "title"),
		Category: propString(props, "category"),
		Status:   domain.Status(propString(props, "status")),
	}
	doc.Meta = domain.DocumentMeta{
		SizeBytes:     int64(propInt(props, "size_bytes")),
		MediaType:     propString(props, "media_type"),
		ExtractedText: propString(props, "extracted_text"),
		ErrorMessage:  propString(props, "error_message"),
		ChunkCount:    propInt(props, "chunk_count"),
		PageCount:     propInt(props, "page_count"),
		Jurisdiction:  propString(props, "jurisdiction"),
		Court:         propString(props, "court"),
		Year:          propInt(props, "year"),
		ProcessingAt:  propTime(props, "processing_at"),
		IndexedAt:     propTime(props, "indexed_at"),
	}
	if tags, ok := props["tags"].([]any); ok {
		for _, t := range tags {
			if s, ok := t.(string); ok {
				doc.Meta.Tags = append(doc.Meta.Tags, s)
			}
		}
	}
	return doc
}
