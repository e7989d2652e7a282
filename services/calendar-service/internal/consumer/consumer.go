// Package consumer keeps the organizer profile read model in sync with auth
// user events.
package consumer

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/qclickin/platform/libs/inbox"
	"github.com/qclickin/platform/libs/kafkax"
	"github.com/qclickin/platform/services/calendar-service/internal/storage"
	"github.com/segmentio/kafka-go"
)

type userEvent struct {
	UserID     string `json:"user_id"`
	Username   string `json:"username"`
	Name       string `json:"name"`
	Bio        string `json:"bio"`
	Avatar     string `json:"avatar"`
	Theme      string `json:"theme"`
	BrandColor string `json:"brand_color"`
	TimeZone   string `json:"time_zone"`
}

// Run starts one consumer per auth user topic and blocks until ctx is done.
func Run(ctx context.Context, logger *slog.Logger, repo *storage.Repository, dedupe *inbox.Repository, brokers string, groupID string) {
	topics := map[string]kafkax.Handler{
		"auth.user.created.v1": upsertHandler(logger, repo),
		"auth.user.updated.v1": upsertHandler(logger, repo),
		"auth.user.deleted.v1": deleteHandler(logger, repo),
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

func upsertHandler(logger *slog.Logger, repo *storage.Repository) kafkax.Handler {
	return func(ctx context.Context, msg kafka.Message) error {
		var evt userEvent
		if err := json.Unmarshal(msg.Value, &evt); err != nil {
			logger.Error("invalid user event payload", "err", err)
			return nil
		}
		if evt.UserID == "" {
			return nil
		}
		if evt.Theme == "" {
			evt.Theme = "light"
		}
		if evt.BrandColor == "" {
			evt.BrandColor = "#292929"
		}
		if evt.TimeZone == "" {
			evt.TimeZone = "UTC"
		}
		return repo.UpsertProfile(ctx, storage.OrganizerProfile{
			UserID:     evt.UserID,
			Username:   evt.Username,
			Name:       evt.Name,
			Bio:        evt.Bio,
			Avatar:     evt.Avatar,
			Theme:      evt.Theme,
			BrandColor: evt.BrandColor,
			TimeZone:   evt.TimeZone,
		})
	}
}

func deleteHandler(logger *slog.Logger, repo *storage.Repository) kafkax.Handler {
	return func(ctx context.Context, msg kafka.Message) error {
		var evt userEvent
		if err := json.Unmarshal(msg.Value, &evt); err != nil {
			logger.Error("invalid user event payload", "err", err)
			return nil
		}
		if evt.UserID == "" {
			return nil
		}
		return repo.DeleteProfile(ctx, evt.UserID)
	}
}
