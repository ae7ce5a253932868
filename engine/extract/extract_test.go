package extract

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ArchonAI/archon-engine/engine/domain"
)

func TestLocalDirRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store := NewLocalDir(dir)
	ctx := context.Background()

	if err := store.Write(ctx, "uploads/doc-1.txt", []byte("hello")); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	data, err := store.Read(ctx, "uploads/doc-1.txt")
	if err != nil || string(data) != "hello" {
		t.Fatalf("read = %q, %v", data, err)
	}
}

func TestLocalDirMissingFile(t *testing.T) {
	store := NewLocalDir(t.TempDir())
	_, err := store.Read(context.Background(), "nope.txt")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLocalDirRejectsTraversal(t *testing.T) {
	dir := t.TempDir()
	outside := filepath.Join(filepath.Dir(dir), "secret.txt")
	os.WriteFile(outside, []byte("secret"), 0o644)
	defer os.Remove(outside)

	store := NewLocalDir(dir)
	// Clean collapses the traversal inside the root, so the read must not
	// reach the sibling file.
	data, err := store.Read(context.Background(), "../secret.txt")
	if err == nil && string(data) == "secret" {
		t.Fatal("traversal escaped the store root")
	}
}

func TestDocconvSourceTextPassthrough(t *testing.T) {
	dir := t.TempDir()
	files := NewLocalDir(dir)
	files.Write(context.Background(), "a.txt", []byte("plain words"))

	src := NewDocconvSource(files)
	text, err := src.ExtractText(context.Background(), "a.txt", "text/plain")
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	if text != "plain words" {
		t.Fatalf("text = %q", text)
	}
}

func TestDocconvSourceEmptyFile(t *testing.T) {
	dir := t.TempDir()
	files := NewLocalDir(dir)
	files.Write(context.Background(), "empty.pdf", nil)

	src := NewDocconvSource(files)
	_, err := src.ExtractText(context.Background(), "empty.pdf", "application/pdf")
	var exErr *domain.ExtractionError
	if !errors.As(err, &exErr) {
		t.Fatalf("expected ExtractionError, got %v", err)
	}
}

func TestDocconvSourceMissingFile(t *testing.T) {
	src := NewDocconvSource(NewLocalDir(t.TempDir()))
	_, err := src.ExtractText(context.Background(), "gone.pdf", "application/pdf")
	var exErr *domain.ExtractionError
	if !errors.As(err, &exErr) {
		t.Fatalf("expected ExtractionError, got %v", err)
	}
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("missing file should unwrap to ErrNotFound, got %v", err)
	}
}
