package chunker

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/ArchonAI/archon-engine/engine/domain"
)

func words(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = "word" + strings.Repeat("x", i%3)
	}
	return strings.Join(parts, " ")
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"default", DefaultConfig(), false},
		{"zero max", Config{MaxChunkSize: 0}, true},
		{"negative overlap", Config{MaxChunkSize: 100, OverlapSize: -1}, true},
		{"overlap equals max", Config{MaxChunkSize: 100, OverlapSize: 100}, true},
		{"overlap exceeds max", Config{MaxChunkSize: 100, OverlapSize: 150}, true},
		{"negative min", Config{MaxChunkSize: 100, MinChunkSize: -1}, true},
		{"bad strategy", Config{MaxChunkSize: 100, Strategy: "paragraphs"}, true},
		{"sentences ok", Config{MaxChunkSize: 100, Strategy: StrategySentences}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				var cfgErr *domain.ChunkingConfigError
				if !errors.As(err, &cfgErr) {
					t.Fatalf("expected ChunkingConfigError, got %v", err)
				}
			} else if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestChunkInvalidConfig(t *testing.T) {
	_, err := Chunk("some text", Config{MaxChunkSize: 10, OverlapSize: 20})
	if err == nil {
		t.Fatal("expected config error")
	}
	if domain.Retryable(err) {
		t.Fatal("config errors must not be retryable")
	}
}

func TestChunkEmptyText(t *testing.T) {
	for _, text := range []string{"", "   ", "\n\n\t\n"} {
		drafts, err := Chunk(text, DefaultConfig())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(drafts) != 0 {
			t.Fatalf("expected no chunks for %q, got %d", text, len(drafts))
		}
	}
}

func TestChunkCoversAllText(t *testing.T) {
	text := words(600)
	cfg := Config{MaxChunkSize: 300, OverlapSize: 60, MinChunkSize: 10}
	drafts, err := Chunk(text, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(drafts) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(drafts))
	}

	// Every word of the input must appear in at least one chunk.
	joined := " " + strings.Join(collectTexts(drafts), " ") + " "
	for _, w := range strings.Fields(text) {
		if !strings.Contains(joined, " "+w+" ") {
			t.Fatalf("word %q missing from all chunks", w)
		}
	}
}

func TestChunkSizeBound(t *testing.T) {
	cfg := Config{MaxChunkSize: 200, OverlapSize: 40, MinChunkSize: 1}
	drafts, err := Chunk(words(500), cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, d := range drafts {
		limit := cfg.MaxChunkSize
		if i == len(drafts)-1 {
			// The final chunk may carry its overlap seed past a flush
			// boundary without being refilled to max.
			limit = cfg.MaxChunkSize + cfg.OverlapSize
		}
		if len(d.Text) > limit {
			t.Fatalf("chunk %d len %d exceeds %d", i, len(d.Text), limit)
		}
	}
}

func TestChunkOverlapReappears(t *testing.T) {
	cfg := Config{MaxChunkSize: 150, OverlapSize: 50, MinChunkSize: 1}
	drafts, err := Chunk(words(200), cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(drafts) < 2 {
		t.Fatalf("need at least 2 chunks, got %d", len(drafts))
	}
	for i := 1; i < len(drafts); i++ {
		first := strings.Fields(drafts[i].Text)[0]
		if !strings.Contains(drafts[i-1].Text, first) {
			t.Fatalf("chunk %d does not start with material from chunk %d", i, i-1)
		}
	}
}

func TestChunkNoOverlap(t *testing.T) {
	cfg := Config{MaxChunkSize: 100, OverlapSize: 0, MinChunkSize: 1}
	drafts, err := Chunk(words(150), cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	total := 0
	for _, d := range drafts {
		total += len(strings.Fields(d.Text))
	}
	if total != 150 {
		t.Fatalf("expected 150 words without duplication, got %d", total)
	}
}

func TestChunkIndexAndOffsets(t *testing.T) {
	cfg := Config{MaxChunkSize: 120, OverlapSize: 30, MinChunkSize: 1}
	drafts, err := Chunk(words(300), cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	stride := cfg.MaxChunkSize - cfg.OverlapSize
	prevStart := -1
	for i, d := range drafts {
		if d.Index != i {
			t.Fatalf("chunk %d has index %d", i, d.Index)
		}
		if d.StartPos != i*stride {
			t.Fatalf("chunk %d start %d, want %d", i, d.StartPos, i*stride)
		}
		if d.EndPos != d.StartPos+len(d.Text) {
			t.Fatalf("chunk %d end %d, want %d", i, d.EndPos, d.StartPos+len(d.Text))
		}
		if d.StartPos <= prevStart {
			t.Fatalf("chunk %d start %d not after %d", i, d.StartPos, prevStart)
		}
		prevStart = d.StartPos
	}
}

func TestChunkMinSizeFilter(t *testing.T) {
	text := "tiny. " + strings.Repeat("substantial content here ", 10)
	cfg := Config{MaxChunkSize: 1000, OverlapSize: 0, MinChunkSize: 50}
	drafts, err := Chunk(text, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, d := range drafts {
		if len(d.Text) < cfg.MinChunkSize {
			t.Fatalf("chunk below min size survived: %q", d.Text)
		}
	}
}

func TestChunkShortTextSingleChunk(t *testing.T) {
	text := "This is a short legal memorandum about contract formation."
	drafts, err := Chunk(text, DefaultConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(drafts) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(drafts))
	}
	if drafts[0].Text != text {
		t.Fatalf("short text should pass through unchanged, got %q", drafts[0].Text)
	}
	if drafts[0].TokenCount != len(strings.Fields(text)) {
		t.Fatalf("token count %d, want %d", drafts[0].TokenCount, len(strings.Fields(text)))
	}
}

func TestChunkLongDocumentScenario(t *testing.T) {
	// ~2500 chars of dense text with the stock 1000/200/50 config packs
	// into three overlapping chunks.
	text := words(430) // ~2500 chars
	if n := len(text); n < 2300 || n > 2700 {
		t.Fatalf("fixture drifted: %d chars", n)
	}
	drafts, err := Chunk(text, DefaultConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(drafts) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(drafts))
	}
}

func TestSentenceStrategyKeepsSentencesWhole(t *testing.T) {
	text := "First sentence here. Second one follows. Third adds more detail. Fourth wraps up the argument. Fifth concludes."
	cfg := Config{MaxChunkSize: 60, OverlapSize: 20, MinChunkSize: 1, Strategy: StrategySentences}
	drafts, err := Chunk(text, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(drafts) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(drafts))
	}
	for i, d := range drafts {
		if !strings.HasSuffix(d.Text, ".") {
			t.Fatalf("chunk %d splits a sentence: %q", i, d.Text)
		}
	}
}

func TestStripBoilerplate(t *testing.T) {
	text := strings.Join([]string{
		"Page 3 of 12",
		"IN THE MATTER OF the arbitration between the parties concerning delivery terms.",
		"Case No: 2024-CV-1881",
		"42",
		"Document A",
		"The tribunal finds that the respondent breached clause 4.2 of the agreement.",
	}, "\n")

	cfg := Config{MaxChunkSize: 1000, OverlapSize: 0, MinChunkSize: 1, RemoveHeaders: true, RemoveFooters: true}
	drafts, err := Chunk(text, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(drafts) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(drafts))
	}
	got := drafts[0].Text
	for _, gone := range []string{"Page 3", "Case No", "Document A"} {
		if strings.Contains(got, gone) {
			t.Fatalf("boilerplate %q survived: %q", gone, got)
		}
	}
	for _, kept := range []string{"arbitration", "clause 4.2"} {
		if !strings.Contains(got, kept) {
			t.Fatalf("content %q was dropped: %q", kept, got)
		}
	}
}

func TestBoilerplateKeptByDefault(t *testing.T) {
	text := "Page 3 of 12\nThe tribunal finds that the respondent breached the agreement terms."
	drafts, err := Chunk(text, Config{MaxChunkSize: 1000, MinChunkSize: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(drafts) != 1 || !strings.Contains(drafts[0].Text, "Page 3") {
		t.Fatal("page marker should survive when stripping is off")
	}
}

func TestPageNumbers(t *testing.T) {
	text := "As noted on page 4, the witness testified. See also page 7 and again page 4."
	drafts, err := Chunk(text, Config{MaxChunkSize: 1000, MinChunkSize: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := drafts[0].PageNumbers
	want := []int{4, 7}
	if len(got) != len(want) {
		t.Fatalf("pages %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("pages %v, want %v", got, want)
		}
	}
}

func TestStructuralFlags(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		header bool
		footer bool
		table  bool
		list   bool
	}{
		{"short line", "SECTION IV: DAMAGES", true, false, false, false},
		{"page footer", "Continued on page 9", true, true, false, false},
		{"pipe table", "name | amount | date" + strings.Repeat(" filler", 20), false, false, true, false},
		{"tab table", "a\tb\tc" + strings.Repeat(" filler", 20), false, false, true, false},
		{"numbered list", "1. The first claim is denied. " + strings.Repeat("More detail follows here. ", 5), false, false, false, true},
		{"bullet list", "- item one " + strings.Repeat("and supporting text ", 6), false, false, false, true},
		{"plain prose", strings.Repeat("The agreement remains in force. ", 5), false, false, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, f, tb, ls := structuralFlags(tt.text)
			if h != tt.header || f != tt.footer || tb != tt.table || ls != tt.list {
				t.Fatalf("flags (h=%v f=%v t=%v l=%v), want (h=%v f=%v t=%v l=%v)",
					h, f, tb, ls, tt.header, tt.footer, tt.table, tt.list)
			}
		})
	}
}

func TestPreserveFormatting(t *testing.T) {
	text := "line one   with   gaps\nline two\n\nline three"
	cfg := Config{MaxChunkSize: 1000, MinChunkSize: 1, PreserveFormatting: true}
	drafts, err := Chunk(text, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := drafts[0].Text
	if !strings.Contains(got, "\n") {
		t.Fatal("line breaks should survive with preserve on")
	}
	if strings.Contains(got, "   ") {
		t.Fatal("horizontal whitespace runs should collapse")
	}
}

func TestChunkHardSplitsOversizeToken(t *testing.T) {
	text := "intro words here " + strings.Repeat("x", 500) + " trailing words"
	cfg := Config{MaxChunkSize: 100, OverlapSize: 20, MinChunkSize: 1, Strategy: StrategyWords}

	drafts, err := Chunk(text, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	limit := cfg.MaxChunkSize + cfg.OverlapSize
	xs := 0
	for i, d := range drafts {
		if len(d.Text) > limit {
			t.Fatalf("chunk %d len %d exceeds %d", i, len(d.Text), limit)
		}
		xs += strings.Count(d.Text, "x")
	}
	if xs != 500 {
		t.Fatalf("oversize token text lost: %d of 500 chars survive", xs)
	}
}

func TestSplitOversizeKeepsRunesWhole(t *testing.T) {
	token := strings.Repeat("é", 60) // 2 bytes per rune
	out := splitOversize([]string{token}, 25)
	if len(out) < 2 {
		t.Fatalf("token not split: %d pieces", len(out))
	}
	total := 0
	for _, w := range out {
		if len(w) > 25 {
			t.Fatalf("piece of %d bytes exceeds 25", len(w))
		}
		if !utf8.ValidString(w) {
			t.Fatalf("piece %q is not valid UTF-8", w)
		}
		total += len(w)
	}
	if total != len(token) {
		t.Fatalf("pieces cover %d bytes, want %d", total, len(token))
	}
}

func collectTexts(drafts []Draft) []string {
	out := make([]string, len(drafts))
	for i, d := range drafts {
		out[i] = d.Text
	}
	return out
}
