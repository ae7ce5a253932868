package semantic

import (
	"testing"
	"time"

	"github.com/ArchonAI/archon-engine/engine/domain"
)

func TestNormalizeScore(t *testing.T) {
	tests := []struct {
		distance float32
		want     float32
	}{
		{0, 1},
		{0.25, 0.75},
		{1, 0},
		{1.5, 0},  // clamp low
		{-0.5, 1}, // clamp high
	}
	for _, tt := range tests {
		if got := normalizeScore(tt.distance); got != tt.want {
			t.Fatalf("normalizeScore(%v) = %v, want %v", tt.distance, got, tt.want)
		}
	}
}

func TestBuildFilterZero(t *testing.T) {
	if f := buildFilter(Filter{}); f != nil {
		t.Fatalf("zero filter should compile to nil, got %+v", f)
	}
}

func TestBuildFilterSingleValues(t *testing.T) {
	f := buildFilter(Filter{Categories: []string{"contract"}, Years: []int{2023}})
	if len(f.Must) != 2 {
		t.Fatalf("expected 2 AND conditions, got %d", len(f.Must))
	}

	cat := f.Must[0].GetField()
	if cat == nil || cat.Key != "category" || cat.Match.GetKeyword() != "contract" {
		t.Fatalf("category condition wrong: %+v", f.Must[0])
	}
	year := f.Must[1].GetField()
	if year == nil || year.Key != "year" || year.Match.GetInteger() != 2023 {
		t.Fatalf("year condition wrong: %+v", f.Must[1])
	}
}

func TestBuildFilterAnyOfWithinField(t *testing.T) {
	f := buildFilter(Filter{Tags: []string{"urgent", "appeal"}})
	if len(f.Must) != 1 {
		t.Fatalf("expected 1 AND condition, got %d", len(f.Must))
	}

	nested := f.Must[0].GetFilter()
	if nested == nil || len(nested.Should) != 2 {
		t.Fatalf("expected nested OR with 2 branches, got %+v", f.Must[0])
	}
	got := map[string]bool{}
	for _, c := range nested.Should {
		field := c.GetField()
		if field == nil || field.Key != "tags" {
			t.Fatalf("OR branch wrong: %+v", c)
		}
		got[field.Match.GetKeyword()] = true
	}
	if !got["urgent"] || !got["appeal"] {
		t.Fatalf("OR branches %v", got)
	}
}

func TestBuildFilterCombinesFieldsWithAnd(t *testing.T) {
	f := buildFilter(Filter{
		Categories:    []string{"contract"},
		Jurisdictions: []string{"NY", "DE"},
		Courts:        []string{"supreme"},
	})
	if len(f.Must) != 3 {
		t.Fatalf("expected 3 AND conditions, got %d", len(f.Must))
	}
}

func TestEntryPayload(t *testing.T) {
	created := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	e := domain.VectorEntry{
		ID:           "vec-1",
		ChunkID:      "chunk-1",
		DocumentID:   "doc-1",
		Excerpt:      "the tribunal finds",
		Title:        "Award 17",
		Category:     "arbitration",
		Tags:         []string{"final", "damages"},
		Jurisdiction: "CH",
		Court:        "tribunal",
		Year:         2025,
		PageNums:     []int{4, 5},
		CreatedAt:    created,
	}
	payload := entryPayload(e)

	if payload["chunk_id"].GetStringValue() != "chunk-1" {
		t.Fatal("chunk_id missing")
	}
	if payload["document_id"].GetStringValue() != "doc-1" {
		t.Fatal("document_id missing")
	}
	if payload["created_at"].GetStringValue() != "2026-03-14T09:30:00Z" {
		t.Fatalf("created_at %q", payload["created_at"].GetStringValue())
	}
	tags := payload["tags"].GetListValue()
	if tags == nil || len(tags.Values) != 2 || tags.Values[1].GetStringValue() != "damages" {
		t.Fatalf("tags payload wrong: %+v", payload["tags"])
	}
	pages := payload["pages"].GetListValue()
	if pages == nil || len(pages.Values) != 2 || pages.Values[0].GetIntegerValue() != 4 {
		t.Fatalf("pages payload wrong: %+v", payload["pages"])
	}
	// The filter compiler matches on these keys; they must round-trip.
	if payload["jurisdiction"].GetStringValue() != "CH" {
		t.Fatal("jurisdiction missing")
	}
	if payload["court"].GetStringValue() != "tribunal" {
		t.Fatal("court missing")
	}
	if payload["year"].GetIntegerValue() != 2025 {
		t.Fatalf("year payload wrong: %+v", payload["year"])
	}
}

func TestEntryPayloadOmitsEmptyOptionals(t *testing.T) {
	payload := entryPayload(domain.VectorEntry{ID: "v", ChunkID: "c", DocumentID: "d"})
	for _, key := range []string{"category", "tags", "pages", "jurisdiction", "court", "year"} {
		if _, ok := payload[key]; ok {
			t.Fatalf("empty %s should be omitted", key)
		}
	}
}

func TestSearchParamsDefaults(t *testing.T) {
	if !(Filter{}).IsZero() {
		t.Fatal("empty filter should be zero")
	}
	if (Filter{Years: []int{2020}}).IsZero() {
		t.Fatal("filter with years is not zero")
	}
}
