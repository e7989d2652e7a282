//go:build protogen

package grpcserver

import (
	"context"
	"time"

	"github.com/qclickin/platform/libs/db"
	calendarv1 "github.com/qclickin/platform/protos/gen/calendar/v1"
	"github.com/qclickin/platform/services/calendar-service/internal/schedule"
	"github.com/qclickin/platform/services/calendar-service/internal/storage"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/timestamppb"
)

type server struct {
	calendarv1.UnimplementedCalendarServiceServer
	pool *db.Pool
	repo *storage.Repository
}

func Register(grpcServer *grpc.Server, pool *db.Pool, repo *storage.Repository) {
	calendarv1.RegisterCalendarServiceServer(grpcServer, &server{pool: pool, repo: repo})
}

func (s *server) GetAvailabilityConfig(ctx context.Context, req *calendarv1.AvailabilityConfigRequest) (*calendarv1.AvailabilityConfigResponse, error) {
	resp := &calendarv1.AvailabilityConfigResponse{
		EventTypeId:     req.GetEventTypeId(),
		Timezone:        "UTC",
		DurationMinutes: 30,
	}
	if req.GetEventTypeId() == "" || req.GetDate() == "" {
		return resp, nil
	}

	et, err := s.repo.GetEventType(ctx, req.GetEventTypeId())
	if err != nil {
		return resp, nil
	}
	if et.Hidden {
		return nil, status.Error(codes.NotFound, "event type not found")
	}
	resp.OwnerUserId = et.OwnerUserID
	resp.DurationMinutes = int32(et.LengthMinutes)
	resp.MinimumNoticeMinutes = int32(et.MinimumNoticeMinutes)
	resp.BeforeBufferMinutes = int32(et.BeforeBufferMinutes)
	resp.AfterBufferMinutes = int32(et.AfterBufferMinutes)
	resp.RequiresConfirmation = et.RequiresConfirmation
	resp.PriceCents = int64(et.PriceCents)
	resp.Currency = et.Currency
	resp.SeatsPerTimeSlot = 1
	if et.SeatsPerTimeSlot != nil && *et.SeatsPerTimeSlot > 1 {
		resp.SeatsPerTimeSlot = int32(*et.SeatsPerTimeSlot)
	}

	sched, err := s.repo.GetOrCreateSchedule(ctx, et.OwnerUserID, "UTC")
	if err != nil {
		return resp, nil
	}
	resp.Timezone = sched.TimeZone

	loc, err := time.LoadLocation(sched.TimeZone)
	if err != nil {
		loc = time.UTC
	}
	dayLocal, err := time.ParseInLocation("2006-01-02", req.GetDate(), loc)
	if err != nil {
		return resp, nil
	}

	overrides, err := s.repo.OverridesForDay(ctx, et.OwnerUserID, dayLocal)
	if err != nil {
		overrides = nil
	}
	windows, err := schedule.WindowsForDate(sched, overrides, req.GetDate())
	if err != nil {
		return resp, nil
	}
	for _, w := range windows {
		resp.WindowsUtc = append(resp.WindowsUtc, &calendarv1.AvailabilityWindow{
			StartUtc: timestamppb.New(w.Start),
			EndUtc:   timestamppb.New(w.End),
		})
	}
	return resp, nil
}
