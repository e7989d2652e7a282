// Package consumer maintains the billable bookings cache from booking
// events.
package consumer

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/qclickin/platform/libs/inbox"
	"github.com/qclickin/platform/libs/kafkax"
	"github.com/qclickin/platform/services/billing-service/internal/storage"
	"github.com/segmentio/kafka-go"
)

type bookingEvent struct {
	UID             string `json:"uid"`
	EventTypeID     string `json:"event_type_id"`
	OrganizerUserID string `json:"organizer_user_id"`
	PriceCents      int64  `json:"price_cents"`
	Currency        string `json:"currency"`
	Attendees       []struct {
		Email string `json:"email"`
	} `json:"attendees"`
}

// Run starts the booking consumers and blocks until ctx is done.
func Run(ctx context.Context, logger *slog.Logger, repo *storage.Repository, dedupe *inbox.Repository, brokers, groupID string) {
	topics := map[string]kafkax.Handler{
		"booking.created.v1":     createdHandler(logger, repo),
		"booking.rescheduled.v1": createdHandler(logger, repo),
		"booking.cancelled.v1":   cancelledHandler(logger, repo),
		"booking.rejected.v1":    cancelledHandler(logger, repo),
	}
	for topic, handler := range topics {
		c := kafkax.NewConsumer(logger, dedupe, kafkax.ConsumerConfig{
			Brokers: brokers,
			GroupID: groupID,
			Topic:   topic,
		}, handler)
		go c.Run(ctx)
	}

	<-ctx.Done()
}

func createdHandler(logger *slog.Logger, repo *storage.Repository) kafkax.Handler {
	return func(ctx context.Context, msg kafka.Message) error {
		var evt bookingEvent
		if err := json.Unmarshal(msg.Value, &evt); err != nil {
			logger.Error("invalid booking event payload", "err", err, "topic", msg.Topic)
			return nil
		}
		if evt.UID == "" || evt.PriceCents <= 0 {
			return nil
		}
		if evt.Currency == "" {
			evt.Currency = "usd"
		}
		email := ""
		if len(evt.Attendees) > 0 {
			email = evt.Attendees[0].Email
		}
		return repo.UpsertBillableBooking(ctx, storage.BillableBooking{
			BookingUID:      evt.UID,
			EventTypeID:     evt.EventTypeID,
			OrganizerUserID: evt.OrganizerUserID,
			AmountCents:     evt.PriceCents,
			Currency:        evt.Currency,
			CustomerEmail:   email,
		})
	}
}

func cancelledHandler(logger *slog.Logger, repo *storage.Repository) kafkax.Handler {
	return func(ctx context.Context, msg kafka.Message) error {
		var evt bookingEvent
		if err := json.Unmarshal(msg.Value, &evt); err != nil {
			logger.Error("invalid booking event payload", "err", err, "topic", msg.Topic)
			return nil
		}
		if evt.UID == "" {
			return nil
		}
		return repo.DeleteBillableBooking(ctx, evt.UID)
	}
}
