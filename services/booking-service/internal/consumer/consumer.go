// Package consumer flips bookings to paid when billing reports a settled
// payment.
package consumer

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/qclickin/platform/libs/inbox"
	"github.com/qclickin/platform/libs/kafkax"
	"github.com/qclickin/platform/services/booking-service/internal/storage"
	"github.com/segmentio/kafka-go"
)

// Run blocks until ctx is done.
func Run(ctx context.Context, logger *slog.Logger, repo *storage.BookingRepository, dedupe *inbox.Repository, brokers, groupID string) {
	c := kafkax.NewConsumer(logger, dedupe, kafkax.ConsumerConfig{
		Brokers: brokers,
		GroupID: groupID,
		Topic:   "billing.booking.paid.v1",
	}, paidHandler(logger, repo))
	c.Run(ctx)
}

func paidHandler(logger *slog.Logger, repo *storage.BookingRepository) kafkax.Handler {
	return func(ctx context.Context, msg kafka.Message) error {
		var evt struct {
			BookingUID string `json:"booking_uid"`
		}
		if err := json.Unmarshal(msg.Value, &evt); err != nil {
			logger.Error("invalid payment event payload", "err", err)
			return nil
		}
		if evt.BookingUID == "" {
			return nil
		}
		return repo.MarkPaid(ctx, evt.BookingUID)
	}
}
