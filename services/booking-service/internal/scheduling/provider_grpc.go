//go:build protogen

package scheduling

import (
	"context"
	"time"

	"github.com/qclickin/platform/libs/grpcx"
	calendarv1 "github.com/qclickin/platform/protos/gen/calendar/v1"
)

type grpcProvider struct {
	client calendarv1.CalendarServiceClient
}

// NewProvider prefers the gRPC endpoint when one is configured and falls back
// to the HTTP provider otherwise.
func NewProvider(httpBaseURL, grpcAddr string) (Provider, error) {
	if grpcAddr == "" {
		if httpBaseURL == "" {
			return nil, nil
		}
		return NewHTTPProvider(httpBaseURL), nil
	}
	conn, err := grpcx.Dial(context.Background(), grpcAddr, grpcx.DialOptions{Timeout: 3 * time.Second})
	if err != nil {
		return nil, err
	}
	return &grpcProvider{client: calendarv1.NewCalendarServiceClient(conn)}, nil
}

func (p *grpcProvider) GetAvailabilityConfig(ctx context.Context, eventTypeID, date string) (AvailabilityConfig, error) {
	resp, err := p.client.GetAvailabilityConfig(ctx, &calendarv1.AvailabilityConfigRequest{
		EventTypeId: eventTypeID,
		Date:        date,
	})
	if err != nil {
		return AvailabilityConfig{}, err
	}
	cfg := AvailabilityConfig{
		EventTypeID:          resp.GetEventTypeId(),
		OwnerUserID:          resp.GetOwnerUserId(),
		Timezone:             resp.GetTimezone(),
		DurationMinutes:      int(resp.GetDurationMinutes()),
		SlotStepMinutes:      int(resp.GetDurationMinutes()),
		MinimumNoticeMinutes: int(resp.GetMinimumNoticeMinutes()),
		BeforeBufferMinutes:  int(resp.GetBeforeBufferMinutes()),
		AfterBufferMinutes:   int(resp.GetAfterBufferMinutes()),
		SeatsPerTimeSlot:     int(resp.GetSeatsPerTimeSlot()),
		RequiresConfirmation: resp.GetRequiresConfirmation(),
		PriceCents:           int(resp.GetPriceCents()),
		Currency:             resp.GetCurrency(),
	}
	for _, w := range resp.GetWindowsUtc() {
		if w.GetStartUtc() == nil || w.GetEndUtc() == nil {
			continue
		}
		start := w.GetStartUtc().AsTime()
		end := w.GetEndUtc().AsTime()
		if end.After(start) {
			cfg.WindowsUTC = append(cfg.WindowsUTC, AvailabilityWindow{StartUTC: start, EndUTC: end})
		}
	}
	return cfg, nil
}
