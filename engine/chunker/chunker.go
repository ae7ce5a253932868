// Package chunker splits normalized document text into overlapping chunks
// with positional and structural metadata. It performs no I/O.
package chunker

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/ArchonAI/archon-engine/engine/domain"
)

// Chunking strategies.
const (
	StrategyWords     = "words"
	StrategySentences = "sentences"
)

// Config controls the chunking algorithm. Zero values are filled in by
// Validate; an overlap >= max size is a programming error.
type Config struct {
	MaxChunkSize       int
	OverlapSize        int
	MinChunkSize       int
	Strategy           string
	RemoveHeaders      bool
	RemoveFooters      bool
	PreserveFormatting bool
}

// DefaultConfig returns the stock chunking configuration.
func DefaultConfig() Config {
	return Config{
		MaxChunkSize: 1000,
		OverlapSize:  200,
		MinChunkSize: 50,
		Strategy:     StrategyWords,
	}
}

// Validate checks config invariants, returning ChunkingConfigError on
// violation.
func (c Config) Validate() error {
	if c.MaxChunkSize <= 0 {
		return &domain.ChunkingConfigError{Reason: "max chunk size must be > 0"}
	}
	if c.OverlapSize < 0 {
		return &domain.ChunkingConfigError{Reason: "overlap size must be >= 0"}
	}
	if c.OverlapSize >= c.MaxChunkSize {
		return &domain.ChunkingConfigError{
			Reason: "overlap size " + strconv.Itoa(c.OverlapSize) +
				" must be smaller than max chunk size " + strconv.Itoa(c.MaxChunkSize),
		}
	}
	if c.MinChunkSize < 0 {
		return &domain.ChunkingConfigError{Reason: "min chunk size must be >= 0"}
	}
	switch c.Strategy {
	case "", StrategyWords, StrategySentences:
	default:
		return &domain.ChunkingConfigError{Reason: "unknown strategy " + strconv.Quote(c.Strategy)}
	}
	return nil
}

// Draft is a chunk before persistence: no ID, no document linkage yet.
type Draft struct {
	Text        string
	Index       int
	StartPos    int
	EndPos      int
	TokenCount  int
	PageNumbers []int
	IsHeader    bool
	IsFooter    bool
	IsTable     bool
	IsList      bool
}

// Chunk splits text per the config and returns ordered drafts. The only
// failure mode is invalid config.
func Chunk(text string, cfg Config) ([]Draft, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	lines := strings.Split(text, "\n")
	if cfg.RemoveHeaders || cfg.RemoveFooters {
		lines = stripBoilerplate(lines)
	}
	normalized := normalize(lines, cfg.PreserveFormatting)
	if normalized == "" {
		return nil, nil
	}

	var raw []string
	switch {
	case cfg.Strategy == StrategySentences:
		raw = packUnits(splitSentences(normalized), cfg.MaxChunkSize, cfg.OverlapSize, ' ')
	case cfg.PreserveFormatting:
		// Lines are the packing unit so breaks survive into chunk text.
		raw = packUnits(strings.Split(normalized, "\n"), cfg.MaxChunkSize, cfg.OverlapSize, '\n')
	default:
		raw = packWords(strings.Fields(normalized), cfg.MaxChunkSize, cfg.OverlapSize)
	}

	// Offsets use the nominal stride, not re-measured positions in the
	// original text. Downstream consumers depend on this formula.
	stride := cfg.MaxChunkSize - cfg.OverlapSize
	drafts := make([]Draft, 0, len(raw))
	for _, t := range raw {
		if len(t) < cfg.MinChunkSize {
			continue
		}
		idx := len(drafts)
		start := idx * stride
		d := Draft{
			Text:        t,
			Index:       idx,
			StartPos:    start,
			EndPos:      start + len(t),
			TokenCount:  max(1, len(strings.Fields(t))),
			PageNumbers: pageNumbers(t),
		}
		d.IsHeader, d.IsFooter, d.IsTable, d.IsList = structuralFlags(t)
		drafts = append(drafts, d)
	}
	return drafts, nil
}

// packWords greedily packs words into buffers of at most maxSize characters,
// seeding each new buffer with the trailing overlap characters' worth of
// words from the previous one.
func packWords(words []string, maxSize, overlap int) []string {
	words = splitOversize(words, maxSize)
	var chunks []string
	var buf []string
	bufLen := 0

	flush := func() {
		if bufLen == 0 {
			return
		}
		text := strings.Join(buf, " ")
		chunks = append(chunks, text)
		if overlap > 0 {
			buf, bufLen = overlapSeed(buf, overlap)
		} else {
			buf, bufLen = nil, 0
		}
	}

	for _, w := range words {
		add := len(w)
		if bufLen > 0 {
			add++ // joining space
		}
		if bufLen+add > maxSize && bufLen > 0 {
			flush()
			add = len(w)
			if bufLen > 0 {
				add++
			}
		}
		buf = append(buf, w)
		bufLen += add
	}
	if bufLen > 0 {
		text := strings.Join(buf, " ")
		// Suppress a final chunk that is purely the overlap seed of the
		// previous chunk; it carries no new text.
		if len(chunks) == 0 || !strings.HasSuffix(chunks[len(chunks)-1], text) {
			chunks = append(chunks, text)
		}
	}
	return chunks
}

// splitOversize hard-splits any whitespace-free token longer than maxSize so
// a single word can never overflow a chunk. Splits land on rune boundaries.
func splitOversize(words []string, maxSize int) []string {
	oversize := false
	for _, w := range words {
		if len(w) > maxSize {
			oversize = true
			break
		}
	}
	if !oversize {
		return words
	}

	out := make([]string, 0, len(words))
	for _, w := range words {
		for len(w) > maxSize {
			cut := maxSize
			for cut > 0 && !utf8.RuneStart(w[cut]) {
				cut--
			}
			if cut == 0 {
				cut = maxSize
			}
			out = append(out, w[:cut])
			w = w[cut:]
		}
		if w != "" {
			out = append(out, w)
		}
	}
	return out
}

// overlapSeed returns the trailing words of buf covering at most overlap
// characters, with their joined length.
func overlapSeed(buf []string, overlap int) ([]string, int) {
	seedLen := 0
	i := len(buf)
	for i > 0 {
		add := len(buf[i-1])
		if seedLen > 0 {
			add++
		}
		if seedLen+add > overlap {
			break
		}
		seedLen += add
		i--
	}
	if i == len(buf) {
		return nil, 0
	}
	seed := make([]string, len(buf)-i)
	copy(seed, buf[i:])
	return seed, seedLen
}

// packUnits groups whole units (sentences or lines) into chunks of at most
// maxSize characters, overlapping by trailing units covering overlap
// characters. Units are joined with sep.
func packUnits(units []string, maxSize, overlap int, sep byte) []string {
	if len(units) == 0 {
		return nil
	}
	var chunks []string
	start := 0
	for start < len(units) {
		var buf strings.Builder
		end := start
		for end < len(units) {
			add := len(units[end])
			if buf.Len() > 0 {
				add++
			}
			if buf.Len()+add > maxSize && buf.Len() > 0 {
				break
			}
			if buf.Len() > 0 {
				buf.WriteByte(sep)
			}
			buf.WriteString(units[end])
			end++
		}
		chunks = append(chunks, buf.String())
		if end >= len(units) {
			break
		}

		// Walk back over trailing units to form the overlap.
		overlapLen := 0
		newStart := end
		for newStart > start && overlapLen < overlap {
			newStart--
			overlapLen += len(units[newStart])
		}
		if newStart == start {
			start = end // forward progress
		} else {
			start = newStart
		}
	}
	return chunks
}

// splitSentences splits text into sentences on terminal punctuation.
func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	for i, r := range text {
		current.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			if i == len(text)-1 || (i+1 < len(text) && text[i+1] == ' ') {
				if s := strings.TrimSpace(current.String()); s != "" {
					sentences = append(sentences, s)
				}
				current.Reset()
			}
		}
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

// normalize joins lines and collapses whitespace. With preserve set, only
// horizontal whitespace runs collapse and line breaks survive.
func normalize(lines []string, preserve bool) string {
	cleaned := make([]string, 0, len(lines))
	for _, l := range lines {
		l = strings.Join(strings.Fields(l), " ")
		if l == "" && !preserve {
			continue
		}
		cleaned = append(cleaned, l)
	}
	sep := " "
	if preserve {
		sep = "\n"
	}
	return strings.TrimSpace(strings.Join(cleaned, sep))
}

var (
	pageLineRe   = regexp.MustCompile(`(?i)^page\s+\d+(\s+of\s+\d+)?$`)
	docLineRe    = regexp.MustCompile(`(?i)^(document|exhibit|appendix)\b`)
	caseNoRe     = regexp.MustCompile(`(?i)(case\s+no|docket|no\.)\s*[:.]?\s*[\w:-]*\d`)
	pureDigitsRe = regexp.MustCompile(`^\d+$`)
	pageMarkRe   = regexp.MustCompile(`(?i)\bpage\s+(\d{1,4})\b`)
	listMarkRe   = regexp.MustCompile(`^(\d+[.)]|[a-z][.)]|[-*•])\s`)
)

// stripBoilerplate drops short lines that look like running headers, footers,
// page markers, or case numbers.
func stripBoilerplate(lines []string) []string {
	out := lines[:0:0]
	for _, l := range lines {
		t := strings.TrimSpace(l)
		if len(t) > 0 && len(t) < 50 {
			if pageLineRe.MatchString(t) || docLineRe.MatchString(t) ||
				caseNoRe.MatchString(t) || pureDigitsRe.MatchString(t) {
				continue
			}
		}
		out = append(out, l)
	}
	return out
}

// structuralFlags computes the heuristic, non-exclusive chunk flags.
func structuralFlags(text string) (header, footer, table, list bool) {
	short := len(text) < 100
	header = short && strings.Count(text, "\n") <= 1
	footer = short && pageMarkRe.MatchString(text)
	table = strings.ContainsAny(text, "|\t")
	list = listMarkRe.MatchString(text)
	return
}

// pageNumbers collects page marker numbers appearing in the text, in order,
// deduplicated.
func pageNumbers(text string) []int {
	matches := pageMarkRe.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[int]bool, len(matches))
	var pages []int
	for _, m := range matches {
		n, err := strconv.Atoi(m[1])
		if err != nil || n <= 0 || seen[n] {
			continue
		}
		seen[n] = true
		pages = append(pages, n)
	}
	return pages
}
