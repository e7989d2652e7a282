// Package dispatch delivers queued webhook events over HTTP with signed
// payloads and retry backoff.
package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/qclickin/platform/libs/db"
	otelx "github.com/qclickin/platform/libs/otel"
	"github.com/qclickin/platform/services/webhook-service/internal/storage"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type Worker struct {
	pool      *db.Pool
	repo      *storage.Repository
	logger    *slog.Logger
	client    *http.Client
	interval  time.Duration
	batchSize int
	backoff   time.Duration
}

type WorkerConfig struct {
	Interval  time.Duration
	BatchSize int
	Backoff   time.Duration
	Timeout   time.Duration
}

func NewWorker(pool *db.Pool, repo *storage.Repository, logger *slog.Logger, cfg WorkerConfig) *Worker {
	if cfg.Interval <= 0 {
		cfg.Interval = 2 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 30 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Worker{
		pool:   pool,
		repo:   repo,
		logger: logger,
		client: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		interval:  cfg.Interval,
		batchSize: cfg.BatchSize,
		backoff:   cfg.Backoff,
	}
}

func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.processBatch(ctx); err != nil {
				w.logger.Error("delivery batch failed", "err", err)
			}
		}
	}
}

func (w *Worker) processBatch(ctx context.Context) error {
	tx, err := w.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	deliveries, err := w.repo.FetchDue(ctx, tx, w.batchSize)
	if err != nil {
		return err
	}
	if len(deliveries) == 0 {
		return tx.Commit(ctx)
	}

	for _, d := range deliveries {
		deliveryCtx := otelx.ContextWithTraceContext(ctx, d.Traceparent, d.Tracestate)
		attempts := d.Attempts + 1
		statusCode, err := w.deliver(deliveryCtx, d)
		if err == nil {
			if err := w.repo.MarkDelivered(ctx, tx, d.ID, attempts, statusCode); err != nil {
				return err
			}
			continue
		}

		// Exponential backoff, doubling per attempt and capped at an hour.
		wait := w.backoff << (attempts - 1)
		if wait > time.Hour {
			wait = time.Hour
		}
		nextAttemptAt := time.Now().UTC().Add(wait)
		if err := w.repo.MarkFailed(ctx, tx, d.ID, attempts, d.MaxAttempts, statusCode, nextAttemptAt, err.Error()); err != nil {
			return err
		}
		if attempts >= d.MaxAttempts {
			w.logger.Error("webhook delivery exhausted", "webhook_id", d.WebhookID, "event_id", d.EventID, "attempts", attempts)
		}
	}

	return tx.Commit(ctx)
}

func (w *Worker) deliver(ctx context.Context, d storage.Delivery) (int, error) {
	body, err := json.Marshal(map[string]any{
		"event_id":   d.EventID,
		"event_type": d.EventType,
		"created_at": d.CreatedAt.UTC().Format(time.RFC3339),
		"payload":    json.RawMessage(d.Payload),
	})
	if err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.URL, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Webhook-Event", d.EventType)
	req.Header.Set("X-Webhook-Delivery", d.EventID)
	req.Header.Set(SignatureHeader, Sign(d.Secret, body))

	resp, err := w.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, fmt.Errorf("endpoint returned status %d", resp.StatusCode)
	}
	return resp.StatusCode, nil
}
