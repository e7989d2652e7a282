//go:build !protogen

package main

import (
	"context"
	"log/slog"

	"github.com/qclickin/platform/libs/db"
	"github.com/qclickin/platform/services/calendar-service/internal/storage"
)

func startGrpcServer(_ context.Context, _ *slog.Logger, _ *db.Pool, _ *storage.Repository) error {
	return nil
}
