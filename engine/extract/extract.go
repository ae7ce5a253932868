// Package extract provides the text extraction boundary: reading stored
// file bytes and turning them into plain text.
package extract

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"code.sajari.com/docconv"

	"github.com/ArchonAI/archon-engine/engine/domain"
)

// TextSource extracts plain text from a stored file.
type TextSource interface {
	ExtractText(ctx context.Context, fileRef, mediaType string) (string, error)
}

// FileStore is the byte read/write contract over raw file storage. Anything
// beyond this (S3, MinIO, dedup) lives outside the engine.
type FileStore interface {
	Read(ctx context.Context, ref string) ([]byte, error)
	Write(ctx context.Context, ref string, data []byte) error
}

// LocalDir is a FileStore over a directory on disk. Refs are paths relative
// to the root; traversal outside the root is rejected.
type LocalDir struct {
	root string
}

// NewLocalDir creates a LocalDir file store.
func NewLocalDir(root string) *LocalDir {
	return &LocalDir{root: root}
}

func (l *LocalDir) path(ref string) (string, error) {
	p := filepath.Join(l.root, filepath.Clean("/"+ref))
	if !strings.HasPrefix(p, l.root) {
		return "", fmt.Errorf("extract: ref %q escapes store root", ref)
	}
	return p, nil
}

func (l *LocalDir) Read(_ context.Context, ref string) ([]byte, error) {
	p, err := l.path(ref)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("extract: file %s: %w", ref, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("extract: read %s: %w", ref, err)
	}
	return data, nil
}

func (l *LocalDir) Write(_ context.Context, ref string, data []byte) error {
	p, err := l.path(ref)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("extract: mkdir for %s: %w", ref, err)
	}
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return fmt.Errorf("extract: write %s: %w", ref, err)
	}
	return nil
}

// DocconvSource extracts text via docconv, which handles PDF, DOC/DOCX,
// RTF, HTML, and plain text by declared media type.
type DocconvSource struct {
	files FileStore
}

// NewDocconvSource creates a TextSource over the given file store.
func NewDocconvSource(files FileStore) *DocconvSource {
	return &DocconvSource{files: files}
}

// ExtractText reads the stored bytes and converts them to plain text.
// All failures are wrapped in ExtractionError.
func (s *DocconvSource) ExtractText(ctx context.Context, fileRef, mediaType string) (string, error) {
	data, err := s.files.Read(ctx, fileRef)
	if err != nil {
		return "", &domain.ExtractionError{FileRef: fileRef, MediaType: mediaType, Wrapped: err}
	}
	if len(data) == 0 {
		return "", &domain.ExtractionError{FileRef: fileRef, MediaType: mediaType, Wrapped: fmt.Errorf("empty file")}
	}

	// text/* needs no conversion.
	if strings.HasPrefix(mediaType, "text/") {
		return string(data), nil
	}

	res, err := docconv.Convert(bytes.NewReader(data), mediaType, true)
	if err != nil {
		return "", &domain.ExtractionError{FileRef: fileRef, MediaType: mediaType, Wrapped: err}
	}
	if res == nil || strings.TrimSpace(res.Body) == "" {
		return "", &domain.ExtractionError{FileRef: fileRef, MediaType: mediaType, Wrapped: fmt.Errorf("no text extracted")}
	}
	return res.Body, nil
}
