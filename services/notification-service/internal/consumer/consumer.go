// Package consumer feeds booking events to the mailer and keeps the
// organizer contact read model current.
package consumer

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/qclickin/platform/libs/inbox"
	"github.com/qclickin/platform/libs/kafkax"
	"github.com/qclickin/platform/services/notification-service/internal/mailer"
	"github.com/qclickin/platform/services/notification-service/internal/storage"
	"github.com/segmentio/kafka-go"
)

var bookingTopics = []string{
	"booking.created.v1",
	"booking.confirmed.v1",
	"booking.rejected.v1",
	"booking.cancelled.v1",
	"booking.rescheduled.v1",
}

// Run starts all topic consumers and blocks until ctx is done.
func Run(ctx context.Context, logger *slog.Logger, repo *storage.Repository, m *mailer.Mailer, dedupe *inbox.Repository, brokers, groupID string) {
	start := func(topic string, handler kafkax.Handler) {
		c := kafkax.NewConsumer(logger, dedupe, kafkax.ConsumerConfig{
			Brokers: brokers,
			GroupID: groupID,
			Topic:   topic,
		}, handler)
		go c.Run(ctx)
	}

	for _, topic := range bookingTopics {
		start(topic, bookingHandler(logger, m))
	}
	start("auth.user.created.v1", contactUpsertHandler(logger, repo))
	start("auth.user.updated.v1", contactUpsertHandler(logger, repo))
	start("auth.user.deleted.v1", contactDeleteHandler(logger, repo))

	<-ctx.Done()
}

func bookingHandler(logger *slog.Logger, m *mailer.Mailer) kafkax.Handler {
	return func(ctx context.Context, msg kafka.Message) error {
		var evt mailer.BookingEvent
		if err := json.Unmarshal(msg.Value, &evt); err != nil {
			logger.Error("invalid booking event payload", "err", err, "topic", msg.Topic)
			return nil
		}
		if evt.UID == "" {
			return nil
		}
		meta := kafkax.ExtractEventMeta(msg)
		return m.HandleBookingEvent(ctx, meta.EventType, evt)
	}
}

type userEvent struct {
	UserID   string `json:"user_id"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	TimeZone string `json:"time_zone"`
}

func contactUpsertHandler(logger *slog.Logger, repo *storage.Repository) kafkax.Handler {
	return func(ctx context.Context, msg kafka.Message) error {
		var evt userEvent
		if err := json.Unmarshal(msg.Value, &evt); err != nil {
			logger.Error("invalid user event payload", "err", err)
			return nil
		}
		if evt.UserID == "" || evt.Email == "" {
			return nil
		}
		if evt.TimeZone == "" {
			evt.TimeZone = "UTC"
		}
		return repo.UpsertContact(ctx, storage.OrganizerContact{
			UserID:   evt.UserID,
			Email:    evt.Email,
			Name:     evt.Name,
			TimeZone: evt.TimeZone,
		})
	}
}

func contactDeleteHandler(logger *slog.Logger, repo *storage.Repository) kafkax.Handler {
	return func(ctx context.Context, msg kafka.Message) error {
		var evt userEvent
		if err := json.Unmarshal(msg.Value, &evt); err != nil {
			logger.Error("invalid user event payload", "err", err)
			return nil
		}
		if evt.UserID == "" {
			return nil
		}
		return repo.DeleteContact(ctx, evt.UserID)
	}
}
