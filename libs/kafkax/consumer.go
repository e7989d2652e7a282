package kafkax

import (
	"context"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type Handler func(ctx context.Context, msg kafka.Message) error

// Deduper tracks processed event ids. Services back this with their inbox
// table. Seen is checked before the handler runs; Record is called only
// after the handler succeeds, so a failed event stays retryable.
type Deduper interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	Record(ctx context.Context, eventID string, eventType string) (bool, error)
}

type Consumer struct {
	reader  *kafka.Reader
	logger  *slog.Logger
	dedupe  Deduper
	handler Handler
}

type ConsumerConfig struct {
	Brokers string
	GroupID string
	Topic   string
}

func NewConsumer(logger *slog.Logger, dedupe Deduper, cfg ConsumerConfig, handler Handler) *Consumer {
	brokers := SplitBrokers(cfg.Brokers)
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		GroupID:  cfg.GroupID,
		Topic:    cfg.Topic,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	return &Consumer{
		reader:  reader,
		logger:  logger,
		dedupe:  dedupe,
		handler: handler,
	}
}

func (c *Consumer) Run(ctx context.Context) {
	defer c.reader.Close()

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Error("kafka read error", "err", err)
			time.Sleep(1 * time.Second)
			continue
		}

		if !c.process(ctx, msg) {
			continue
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.logger.Error("kafka commit error", "err", err)
		}
	}
}

// process handles one message and reports whether its offset may be
// committed. A failed handler leaves the offset uncommitted, so the event
// is redelivered after a restart or rebalance instead of being dropped.
func (c *Consumer) process(ctx context.Context, msg kafka.Message) bool {
	ctxMsg := ExtractTraceContext(ctx, msg)
	ctxSpan, span := otel.Tracer("kafka").Start(ctxMsg, "kafka.consume",
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.destination", msg.Topic),
		),
	)
	defer span.End()

	meta := ExtractEventMeta(msg)

	if c.dedupe != nil {
		seen, err := c.dedupe.Seen(ctxSpan, meta.EventID)
		if err != nil {
			c.logger.Error("inbox lookup failed", "err", err)
			span.RecordError(err)
			return false
		}
		if seen {
			c.logger.Info("duplicate event ignored", "event_id", meta.EventID, "event_type", meta.EventType)
			return true
		}
	}

	if err := c.handler(ctxSpan, msg); err != nil {
		c.logger.Error("handler error", "err", err, "event_id", meta.EventID)
		span.RecordError(err)
		return false
	}

	if c.dedupe != nil {
		if _, err := c.dedupe.Record(ctxSpan, meta.EventID, meta.EventType); err != nil {
			c.logger.Error("inbox record failed", "err", err)
			span.RecordError(err)
			return false
		}
	}
	return true
}
