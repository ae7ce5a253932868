package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/ArchonAI/archon-engine/engine/domain"
	"github.com/ArchonAI/archon-engine/pkg/natsutil"
)

const (
	// ProcessSubject carries document processing jobs.
	ProcessSubject = "engine.documents.process"
	// DLQSubject receives jobs that exhausted their retries.
	DLQSubject = "engine.documents.dlq"
	// ProgressSubject carries progress milestone events.
	ProgressSubject = "engine.documents.progress"
	// MaxRetries before a failing job goes to the DLQ.
	MaxRetries = 3

	retryHeader = "X-Retry-Count"
)

// dlqMessage wraps a dead job with its failure context.
type dlqMessage struct {
	Job     Job    `json:"job"`
	Error   string `json:"error"`
	Retries int    `json:"retries"`
}

// EnqueueJob publishes a processing job.
func EnqueueJob(ctx context.Context, nc *nats.Conn, job Job) error {
	return natsutil.Publish(ctx, nc, ProcessSubject, job)
}

// NATSProgress returns a ProgressFunc that publishes milestone events.
// Publish failures are logged and swallowed; progress is advisory.
func NATSProgress(nc *nats.Conn, log *slog.Logger) ProgressFunc {
	return func(ctx context.Context, p Progress) {
		if err := natsutil.Publish(ctx, nc, ProgressSubject, p); err != nil {
			log.Warn("ingest: progress publish failed", "document_id", p.DocumentID, "error", err)
		}
	}
}

// StartConsumer subscribes the pipeline to the processing subject. Failed
// jobs are re-published with an incremented retry count until MaxRetries,
// then parked on the DLQ. Non-retryable failures go straight to the DLQ;
// replaying an unknown document or a broken config cannot succeed.
func StartConsumer(nc *nats.Conn, p *Pipeline, log *slog.Logger) (*nats.Subscription, error) {
	if log == nil {
		log = slog.Default()
	}

	return nc.Subscribe(ProcessSubject, func(msg *nats.Msg) {
		var job Job
		if err := json.Unmarshal(msg.Data, &job); err != nil {
			log.Error("ingest: bad job message", "error", err)
			return
		}

		ctx := natsutil.Extract(msg)

		retries := 0
		if msg.Header != nil {
			if v := msg.Header.Get(retryHeader); v != "" {
				fmt.Sscanf(v, "%d", &retries)
			}
		}

		err := p.Process(ctx, job)
		if err == nil {
			if msg.Reply != "" {
				_ = msg.Ack()
			}
			return
		}

		retries++
		log.Error("ingest: job attempt failed",
			"document_id", job.DocumentID,
			"retry", retries,
			"error", err,
		)

		if !domain.Retryable(err) || retries >= MaxRetries {
			dlq := dlqMessage{Job: job, Error: err.Error(), Retries: retries}
			if perr := natsutil.Publish(ctx, nc, DLQSubject, dlq); perr != nil {
				log.Error("ingest: DLQ publish failed", "document_id", job.DocumentID, "error", perr)
			}
		} else {
			retry := nats.NewMsg(ProcessSubject)
			retry.Data = msg.Data
			retry.Header = nats.Header{}
			retry.Header.Set(retryHeader, fmt.Sprintf("%d", retries))
			if perr := nc.PublishMsg(retry); perr != nil {
				log.Error("ingest: retry publish failed", "document_id", job.DocumentID, "error", perr)
			}
		}

		if msg.Reply != "" {
			_ = msg.Ack()
		}
	})
}
