package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/ArchonAI/archon-engine/engine/chunker"
	"github.com/ArchonAI/archon-engine/engine/domain"
	"github.com/ArchonAI/archon-engine/pkg/fn"
	"github.com/ArchonAI/archon-engine/pkg/metrics"
)

// excerptLen bounds the chunk text stored in vector payloads.
const excerptLen = 200

// Progress milestones, in order of the phases that report them.
const (
	milestoneProcessing = 10
	milestoneExtracted  = 20
	milestoneChunked    = 50
	milestoneEmbedded   = 70
	milestoneInserted   = 90
	milestoneIndexed    = 100
)

// Pipeline processes one document job end to end. A job that fails at any
// phase moves its document to ERROR with the failure message; the error is
// also returned so the queue layer can decide about retries.
type Pipeline struct {
	docs     DocumentStore
	chunks   ChunkStore
	vectors  VectorIndex
	embedder Embedder
	source   TextSource
	sm       *StateMachine

	chunking    chunker.Config
	callTimeout time.Duration

	progress ProgressFunc
	log      *slog.Logger

	jobsOK      *metrics.Counter
	jobsErr     *metrics.Counter
	jobSeconds  *metrics.Histogram
	chunksMade  *metrics.Counter
	vectorsMade *metrics.Counter
}

// NewPipeline wires a Pipeline from its dependencies.
func NewPipeline(deps Deps) *Pipeline {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	reg := deps.Metrics
	if reg == nil {
		reg = metrics.New()
	}
	return &Pipeline{
		docs:        deps.Documents,
		chunks:      deps.Chunks,
		vectors:     deps.Vectors,
		embedder:    deps.Embedder,
		source:      deps.Source,
		sm:          NewStateMachine(deps.Documents),
		chunking:    deps.Chunking,
		callTimeout: deps.CallTimeout,
		progress:    deps.Progress,
		log:         log,
		jobsOK:      reg.Counter(metrics.WithLabels("ingest_jobs_total", "status", "indexed"), "Completed ingestion jobs by outcome."),
		jobsErr:     reg.Counter(metrics.WithLabels("ingest_jobs_total", "status", "error"), ""),
		jobSeconds:  reg.Histogram("ingest_job_duration_seconds", "Wall time per ingestion job.", nil),
		chunksMade:  reg.Counter("ingest_chunks_created_total", "Chunks persisted across all jobs."),
		vectorsMade: reg.Counter("ingest_vectors_inserted_total", "Vector entries inserted across all jobs."),
	}
}

// pipeState is threaded through the stages; each phase fills in its slice.
type pipeState struct {
	job        Job
	doc        domain.Document
	text       string
	chunks     []domain.Chunk
	embeddings []domain.Embedding
}

// Process runs one job. The document must exist; an unknown ID fails with
// ErrNotFound before any status is touched.
func (p *Pipeline) Process(ctx context.Context, job Job) error {
	if err := domain.ValidateJob(job.DocumentID, job.FileRef, job.MediaType); err != nil {
		return err
	}

	doc, err := p.docs.Get(ctx, job.DocumentID)
	if err != nil {
		return err
	}

	start := time.Now()
	if doc, err = p.sm.MarkProcessing(ctx, doc.ID); err != nil {
		return err
	}
	p.report(ctx, doc.ID, milestoneProcessing, "processing")

	run := fn.TracedStage("ingest.job", fn.Then(
		fn.Then(p.extractStage(), p.chunkStage()),
		fn.Then(p.embedStage(), p.indexStage()),
	))
	res := run(ctx, pipeState{job: job, doc: doc})
	p.jobSeconds.Since(start)

	if res.IsErr() {
		_, jobErr := res.Unwrap()
		p.jobsErr.Inc()
		p.log.Error("ingest: job failed", "document_id", doc.ID, "error", jobErr)
		if markErr := p.sm.MarkError(ctx, doc.ID, jobErr); markErr != nil {
			p.log.Error("ingest: mark error failed", "document_id", doc.ID, "error", markErr)
		}
		return jobErr
	}

	p.jobsOK.Inc()
	final, _ := res.Unwrap()
	p.log.Info("ingest: document indexed",
		"document_id", doc.ID,
		"chunks", len(final.chunks),
		"duration", time.Since(start),
	)
	return nil
}

// extractStage pulls plain text from the stored file and persists it on the
// document.
func (p *Pipeline) extractStage() fn.Stage[pipeState, pipeState] {
	return fn.TracedStage("ingest.extract", func(ctx context.Context, st pipeState) fn.Result[pipeState] {
		callCtx, cancel := p.callContext(ctx)
		defer cancel()

		text, err := p.source.ExtractText(callCtx, st.job.FileRef, st.job.MediaType)
		if err != nil {
			return fn.Err[pipeState](err)
		}
		if err := p.sm.RecordExtracted(ctx, st.doc.ID, text); err != nil {
			return fn.Err[pipeState](err)
		}
		st.text = text
		p.report(ctx, st.doc.ID, milestoneExtracted, "extracted")
		return fn.Ok(st)
	})
}

// chunkStage splits the text and replaces the document's persisted chunks.
// Old vectors are removed first so a retried job never leaves stale entries
// pointing at chunks that no longer exist.
func (p *Pipeline) chunkStage() fn.Stage[pipeState, pipeState] {
	return fn.TracedStage("ingest.chunk", func(ctx context.Context, st pipeState) fn.Result[pipeState] {
		drafts, err := chunker.Chunk(st.text, p.chunking)
		if err != nil {
			return fn.Err[pipeState](err)
		}

		if err := p.vectors.DeleteByDocumentID(ctx, st.doc.ID); err != nil {
			return fn.Err[pipeState](err)
		}

		chunks := make([]domain.Chunk, len(drafts))
		for i, d := range drafts {
			chunks[i] = domain.Chunk{
				DocumentID:  st.doc.ID,
				Text:        d.Text,
				Index:       d.Index,
				StartPos:    d.StartPos,
				EndPos:      d.EndPos,
				TokenCount:  d.TokenCount,
				PageNumbers: d.PageNumbers,
				IsHeader:    d.IsHeader,
				IsFooter:    d.IsFooter,
				IsTable:     d.IsTable,
				IsList:      d.IsList,
			}
		}
		persisted, err := p.chunks.ReplaceForDocument(ctx, st.doc.ID, chunks)
		if err != nil {
			return fn.Err[pipeState](err)
		}
		if err := p.sm.RecordChunked(ctx, st.doc.ID, len(persisted)); err != nil {
			return fn.Err[pipeState](err)
		}
		p.chunksMade.Add(int64(len(persisted)))
		st.chunks = persisted
		p.report(ctx, st.doc.ID, milestoneChunked, "chunked")
		return fn.Ok(st)
	})
}

// embedStage generates one embedding per chunk. A document that produced no
// chunks skips embedding entirely.
func (p *Pipeline) embedStage() fn.Stage[pipeState, pipeState] {
	return fn.TracedStage("ingest.embed", func(ctx context.Context, st pipeState) fn.Result[pipeState] {
		if len(st.chunks) == 0 {
			return fn.Ok(st)
		}

		callCtx, cancel := p.callContext(ctx)
		defer cancel()

		embeddings, err := p.embedder.Generate(callCtx, st.chunks)
		if err != nil {
			return fn.Err[pipeState](err)
		}
		if len(embeddings) != len(st.chunks) {
			return fn.Err[pipeState](fmt.Errorf("ingest: %d embeddings for %d chunks", len(embeddings), len(st.chunks)))
		}
		st.embeddings = embeddings
		p.report(ctx, st.doc.ID, milestoneEmbedded, "embedded")
		return fn.Ok(st)
	})
}

// indexStage inserts vector entries, links them back onto the chunks, and
// finishes the document as INDEXED.
func (p *Pipeline) indexStage() fn.Stage[pipeState, pipeState] {
	return fn.TracedStage("ingest.index", func(ctx context.Context, st pipeState) fn.Result[pipeState] {
		if len(st.chunks) == 0 {
			// Nothing to index. Empty-but-extractable documents still
			// finish as INDEXED with a zero chunk count.
			if err := p.sm.MarkIndexed(ctx, st.doc.ID, 0); err != nil {
				return fn.Err[pipeState](err)
			}
			p.report(ctx, st.doc.ID, milestoneIndexed, "indexed")
			return fn.Ok(st)
		}

		entries := make([]domain.VectorEntry, len(st.chunks))
		refs := make([]domain.VectorRef, len(st.chunks))
		now := time.Now().UTC()
		for i, c := range st.chunks {
			if got := st.embeddings[i].ChunkID; got != c.ID {
				return fn.Err[pipeState](fmt.Errorf("ingest: embedding %d is for chunk %s, want %s", i, got, c.ID))
			}
			// Deterministic per document and chunk index, so a retried
			// job upserts the same points instead of duplicating them.
			vectorID := uuid.NewSHA1(uuid.NameSpaceURL, []byte(fmt.Sprintf("%s-%d", st.doc.ID, c.Index))).String()
			entries[i] = domain.VectorEntry{
				ID:           vectorID,
				Vector:       st.embeddings[i].Vector,
				ChunkID:      c.ID,
				DocumentID:   st.doc.ID,
				Excerpt:      excerpt(c.Text),
				Title:        st.doc.Title,
				Category:     st.doc.Category,
				Tags:         st.doc.Meta.Tags,
				Jurisdiction: st.doc.Meta.Jurisdiction,
				Court:        st.doc.Meta.Court,
				Year:         st.doc.Meta.Year,
				PageNums:     c.PageNumbers,
				CreatedAt:    now,
			}
			refs[i] = domain.VectorRef{
				ChunkID:     c.ID,
				EmbeddingID: uuid.NewString(),
				VectorID:    vectorID,
			}
		}

		callCtx, cancel := p.callContext(ctx)
		defer cancel()
		if err := p.vectors.InsertMany(callCtx, entries); err != nil {
			return fn.Err[pipeState](err)
		}
		p.vectorsMade.Add(int64(len(entries)))
		p.report(ctx, st.doc.ID, milestoneInserted, "inserted")

		if err := p.chunks.AttachVectorRefs(ctx, refs); err != nil {
			return fn.Err[pipeState](err)
		}
		if err := p.sm.MarkIndexed(ctx, st.doc.ID, len(st.chunks)); err != nil {
			return fn.Err[pipeState](err)
		}
		p.report(ctx, st.doc.ID, milestoneIndexed, "indexed")
		return fn.Ok(st)
	})
}

func (p *Pipeline) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.callTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, p.callTimeout)
}

func (p *Pipeline) report(ctx context.Context, documentID string, percent int, phase string) {
	if p.progress == nil {
		return
	}
	p.progress(ctx, Progress{DocumentID: documentID, Percent: percent, Phase: phase})
}

// excerpt bounds the payload text, trimming back to a rune boundary so the
// cut never produces invalid UTF-8.
func excerpt(text string) string {
	if len(text) <= excerptLen {
		return text
	}
	cut := excerptLen
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut]
}
