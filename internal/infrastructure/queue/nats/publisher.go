// Package nats publishes document lifecycle events for external consumers
// (backup tooling, cache invalidation, audit). Publishing is best-effort: the
// ingest and delete paths succeed even when the broker is down.
package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/dmarchuk/rag-document-assistant/internal/core/domain"
	"github.com/dmarchuk/rag-document-assistant/internal/infrastructure/resilience"
)

const (
	EventDocumentIngested = "document.ingested"
	EventDocumentDeleted  = "document.deleted"
)

// Event is the wire envelope for every lifecycle message.
type Event struct {
	Type       string `json:"type"`
	DocumentID string `json:"document_id"`
	Filename   string `json:"filename,omitempty"`
	ChunkCount int    `json:"chunk_count,omitempty"`
	OccurredAt string `json:"occurred_at"`
}

type Publisher struct {
	conn     *nats.Conn
	subject  string
	executor *resilience.Executor
}

type Options struct {
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RetryOnFailedConnect *bool
	ResilienceExecutor   *resilience.Executor
}

func New(url, subject string) (*Publisher, error) {
	return NewWithOptions(url, subject, Options{})
}

func NewWithOptions(url, subject string, options Options) (*Publisher, error) {
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 60
	}
	retryOnFailedConnect := true
	if options.RetryOnFailedConnect != nil {
		retryOnFailedConnect = *options.RetryOnFailedConnect
	}

	conn, err := nats.Connect(
		url,
		nats.Name("rag-document-assistant"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(retryOnFailedConnect),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("nats_disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("nats_reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Publisher{
		conn:     conn,
		subject:  subject,
		executor: options.ResilienceExecutor,
	}, nil
}

func (p *Publisher) Close() {
	if p != nil && p.conn != nil {
		p.conn.Close()
	}
}

// PublishDocumentIngested emits one event per successful ingestion. A nil
// publisher is a no-op so callers can leave the broker unwired.
func (p *Publisher) PublishDocumentIngested(ctx context.Context, result domain.IngestResult) error {
	if p == nil {
		return nil
	}
	return p.publish(ctx, Event{
		Type:       EventDocumentIngested,
		DocumentID: result.DocumentID,
		Filename:   result.Filename,
		ChunkCount: result.ChunkCount,
		OccurredAt: time.Now().UTC().Format(time.RFC3339Nano),
	})
}

func (p *Publisher) PublishDocumentDeleted(ctx context.Context, docID string, removedChunks int) error {
	if p == nil {
		return nil
	}
	return p.publish(ctx, Event{
		Type:       EventDocumentDeleted,
		DocumentID: docID,
		ChunkCount: removedChunks,
		OccurredAt: time.Now().UTC().Format(time.RFC3339Nano),
	})
}

func (p *Publisher) publish(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", event.Type, err)
	}

	call := func(_ context.Context) error {
		if err := p.conn.Publish(p.subject, payload); err != nil {
			return fmt.Errorf("nats publish: %w", err)
		}
		return nil
	}
	if p.executor != nil {
		return p.executor.Execute(ctx, "nats_publish", call, classifyPublishError)
	}
	return call(ctx)
}

func classifyPublishError(err error) resilience.Verdict {
	if err == nil {
		return resilience.Verdict{}
	}
	// Broker hiccups recover on their own; every publish failure is worth one
	// more attempt and counts toward the breaker.
	return resilience.Verdict{Retryable: true, RecordFailure: true}
}
