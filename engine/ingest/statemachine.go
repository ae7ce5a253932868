package ingest

import (
	"context"
	"time"

	"github.com/ArchonAI/archon-engine/engine/domain"
)

// StateMachine drives a document's status lifecycle through the store. The
// store enforces the transition table; this layer decides which metadata
// accompanies each transition.
type StateMachine struct {
	docs DocumentStore
}

// NewStateMachine creates a StateMachine over the document store.
func NewStateMachine(docs DocumentStore) *StateMachine {
	return &StateMachine{docs: docs}
}

// MarkProcessing moves the document into PROCESSING, stamping processing_at
// and clearing any error message left by a previous attempt.
func (m *StateMachine) MarkProcessing(ctx context.Context, id string) (domain.Document, error) {
	now := time.Now().UTC()
	cleared := ""
	return m.docs.UpdateStatus(ctx, id, domain.StatusProcessing, domain.MetaPatch{
		ProcessingAt: &now,
		ErrorMessage: &cleared,
	})
}

// RecordExtracted persists the extracted text while the document stays in
// PROCESSING.
func (m *StateMachine) RecordExtracted(ctx context.Context, id, text string) error {
	_, err := m.docs.UpdateStatus(ctx, id, domain.StatusProcessing, domain.MetaPatch{
		ExtractedText: &text,
	})
	return err
}

// RecordChunked persists the chunk count while the document stays in
// PROCESSING.
func (m *StateMachine) RecordChunked(ctx context.Context, id string, count int) error {
	_, err := m.docs.UpdateStatus(ctx, id, domain.StatusProcessing, domain.MetaPatch{
		ChunkCount: &count,
	})
	return err
}

// MarkIndexed moves the document into INDEXED, stamping indexed_at and the
// final chunk count.
func (m *StateMachine) MarkIndexed(ctx context.Context, id string, chunkCount int) error {
	now := time.Now().UTC()
	_, err := m.docs.UpdateStatus(ctx, id, domain.StatusIndexed, domain.MetaPatch{
		IndexedAt:  &now,
		ChunkCount: &chunkCount,
	})
	return err
}

// MarkError moves the document into ERROR, recording the failure message.
func (m *StateMachine) MarkError(ctx context.Context, id string, cause error) error {
	msg := cause.Error()
	_, err := m.docs.UpdateStatus(ctx, id, domain.StatusError, domain.MetaPatch{
		ErrorMessage: &msg,
	})
	return err
}
