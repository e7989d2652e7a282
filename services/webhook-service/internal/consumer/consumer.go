// Package consumer fans booking events out into the webhook delivery queue.
package consumer

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/qclickin/platform/libs/inbox"
	"github.com/qclickin/platform/libs/kafkax"
	"github.com/qclickin/platform/services/webhook-service/internal/storage"
	"github.com/segmentio/kafka-go"
)

var bookingTopics = []string{
	"booking.created.v1",
	"booking.confirmed.v1",
	"booking.rejected.v1",
	"booking.cancelled.v1",
	"booking.rescheduled.v1",
}

// Run starts one consumer per booking topic and blocks until ctx is done.
func Run(ctx context.Context, logger *slog.Logger, repo *storage.Repository, dedupe *inbox.Repository, brokers, groupID string) {
	for _, topic := range bookingTopics {
		c := kafkax.NewConsumer(logger, dedupe, kafkax.ConsumerConfig{
			Brokers: brokers,
			GroupID: groupID,
			Topic:   topic,
		}, enqueueHandler(logger, repo))
		go c.Run(ctx)
	}

	<-ctx.Done()
}

func enqueueHandler(logger *slog.Logger, repo *storage.Repository) kafkax.Handler {
	return func(ctx context.Context, msg kafka.Message) error {
		var payload struct {
			OrganizerUserID string `json:"organizer_user_id"`
		}
		if err := json.Unmarshal(msg.Value, &payload); err != nil {
			logger.Error("invalid booking event payload", "err", err, "topic", msg.Topic)
			return nil
		}
		if payload.OrganizerUserID == "" {
			return nil
		}

		meta := kafkax.ExtractEventMeta(msg)
		queued, err := repo.EnqueueForEvent(ctx, payload.OrganizerUserID, meta.EventID, meta.EventType, msg.Value)
		if err != nil {
			return err
		}
		if queued > 0 {
			logger.Info("deliveries queued", "event_type", meta.EventType, "event_id", meta.EventID, "count", queued)
		}
		return nil
	}
}
