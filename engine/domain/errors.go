package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the ingestion error taxonomy.
var (
	// ErrNotFound means the referenced document or chunk no longer exists.
	// Jobs failing with ErrNotFound are abandoned, not retried.
	ErrNotFound = errors.New("not found")
	// ErrNoProviderAvailable means no embedding provider could be resolved.
	ErrNoProviderAvailable = errors.New("no embedding provider available")
)

// ExtractionError reports a failed text extraction. Fatal for the job.
type ExtractionError struct {
	FileRef   string
	MediaType string
	Wrapped   error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s (%s): %v", e.FileRef, e.MediaType, e.Wrapped)
}

func (e *ExtractionError) Unwrap() error { return e.Wrapped }

// ChunkingConfigError reports invalid chunker configuration. This is a caller
// programming error and fails fast rather than routing to the error state.
type ChunkingConfigError struct {
	Reason string
}

func (e *ChunkingConfigError) Error() string {
	return "chunking config: " + e.Reason
}

// EmbeddingProviderError reports a failed embedding call. Fatal for the job
// and eligible for queue retry.
type EmbeddingProviderError struct {
	Provider string
	Wrapped  error
}

func (e *EmbeddingProviderError) Error() string {
	return fmt.Sprintf("embedding provider %s: %v", e.Provider, e.Wrapped)
}

func (e *EmbeddingProviderError) Unwrap() error { return e.Wrapped }

// VectorIndexError reports a failed vector index operation. FailedIDs lists
// the entry IDs that did not make it on a partial insert failure.
type VectorIndexError struct {
	Op        string
	FailedIDs []string
	Wrapped   error
}

func (e *VectorIndexError) Error() string {
	if len(e.FailedIDs) > 0 {
		return fmt.Sprintf("vector index %s: %d entries failed: %v", e.Op, len(e.FailedIDs), e.Wrapped)
	}
	return fmt.Sprintf("vector index %s: %v", e.Op, e.Wrapped)
}

func (e *VectorIndexError) Unwrap() error { return e.Wrapped }

// Retryable reports whether an error should be handed back to the queue for
// another attempt. ErrNotFound and configuration errors are not retryable.
func Retryable(err error) bool {
	if errors.Is(err, ErrNotFound) {
		return false
	}
	var cfg *ChunkingConfigError
	return !errors.As(err, &cfg)
}
