package domain

import "fmt"

// ValidateJob checks a process-document job payload before the pipeline runs.
func ValidateJob(documentID, fileRef, mediaType string) error {
	if documentID == "" {
		return fmt.Errorf("validate: document_id is empty")
	}
	if fileRef == "" {
		return fmt.Errorf("validate: file_ref is empty")
	}
	if mediaType == "" {
		return fmt.Errorf("validate: media_type is empty")
	}
	return nil
}

// ValidateChunk checks chunk record invariants before persistence.
func ValidateChunk(c Chunk) error {
	if c.DocumentID == "" {
		return fmt.Errorf("validate: chunk has no document_id")
	}
	if c.Text == "" {
		return fmt.Errorf("validate: chunk %d has empty text", c.Index)
	}
	if c.StartPos >= c.EndPos {
		return fmt.Errorf("validate: chunk %d has start_pos %d >= end_pos %d", c.Index, c.StartPos, c.EndPos)
	}
	if c.TokenCount < 1 {
		return fmt.Errorf("validate: chunk %d has token_count %d", c.Index, c.TokenCount)
	}
	if c.Index < 0 {
		return fmt.Errorf("validate: negative chunk index %d", c.Index)
	}
	return nil
}

// ValidateChunkSequence checks the per-document invariants across a chunk
// batch: indices 0..n-1 with no gaps, offsets monotonically increasing.
func ValidateChunkSequence(chunks []Chunk) error {
	for i, c := range chunks {
		if err := ValidateChunk(c); err != nil {
			return err
		}
		if c.Index != i {
			return fmt.Errorf("validate: chunk index %d at position %d", c.Index, i)
		}
		if i > 0 && c.StartPos < chunks[i-1].StartPos {
			return fmt.Errorf("validate: chunk %d start_pos regresses", i)
		}
	}
	return nil
}
