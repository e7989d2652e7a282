// Package scheduling resolves an event type's bookable windows from the
// calendar service.
package scheduling

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type AvailabilityConfig struct {
	EventTypeID          string
	OwnerUserID          string
	Timezone             string
	DurationMinutes      int
	SlotStepMinutes      int
	MinimumNoticeMinutes int
	BeforeBufferMinutes  int
	AfterBufferMinutes   int
	SeatsPerTimeSlot     int
	RequiresConfirmation bool
	PriceCents           int
	Currency             string
	WindowsUTC           []AvailabilityWindow
}

type AvailabilityWindow struct {
	StartUTC time.Time
	EndUTC   time.Time
}

type Provider interface {
	GetAvailabilityConfig(ctx context.Context, eventTypeID, date string) (AvailabilityConfig, error)
}

type httpProvider struct {
	baseURL string
	client  *http.Client
}

func NewHTTPProvider(baseURL string) Provider {
	return &httpProvider{
		baseURL: baseURL,
		client: &http.Client{
			Timeout:   5 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

type availabilityConfigResponse struct {
	EventTypeID          string `json:"event_type_id"`
	OwnerUserID          string `json:"owner_user_id"`
	TimeZone             string `json:"time_zone"`
	DurationMinutes      int    `json:"duration_minutes"`
	SlotStepMinutes      int    `json:"slot_step_minutes"`
	MinimumNoticeMinutes int    `json:"minimum_booking_notice_minutes"`
	BeforeBufferMinutes  int    `json:"before_buffer_minutes"`
	AfterBufferMinutes   int    `json:"after_buffer_minutes"`
	SeatsPerTimeSlot     int    `json:"seats_per_time_slot"`
	RequiresConfirmation bool   `json:"requires_confirmation"`
	PriceCents           int    `json:"price_cents"`
	Currency             string `json:"currency"`
	WindowsUTC           []struct {
		StartUTC string `json:"start_utc"`
		EndUTC   string `json:"end_utc"`
	} `json:"windows_utc"`
}

func (p *httpProvider) GetAvailabilityConfig(ctx context.Context, eventTypeID, date string) (AvailabilityConfig, error) {
	q := url.Values{}
	q.Set("event_type_id", eventTypeID)
	q.Set("date", date)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/internal/v1/availability-config?"+q.Encode(), nil)
	if err != nil {
		return AvailabilityConfig{}, err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return AvailabilityConfig{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return AvailabilityConfig{}, ErrEventTypeNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return AvailabilityConfig{}, fmt.Errorf("availability config request failed: status %d", resp.StatusCode)
	}

	var body availabilityConfigResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return AvailabilityConfig{}, err
	}

	cfg := AvailabilityConfig{
		EventTypeID:          body.EventTypeID,
		OwnerUserID:          body.OwnerUserID,
		Timezone:             body.TimeZone,
		DurationMinutes:      body.DurationMinutes,
		SlotStepMinutes:      body.SlotStepMinutes,
		MinimumNoticeMinutes: body.MinimumNoticeMinutes,
		BeforeBufferMinutes:  body.BeforeBufferMinutes,
		AfterBufferMinutes:   body.AfterBufferMinutes,
		SeatsPerTimeSlot:     body.SeatsPerTimeSlot,
		RequiresConfirmation: body.RequiresConfirmation,
		PriceCents:           body.PriceCents,
		Currency:             body.Currency,
	}
	for _, w := range body.WindowsUTC {
		start, err := time.Parse(time.RFC3339, w.StartUTC)
		if err != nil {
			continue
		}
		end, err := time.Parse(time.RFC3339, w.EndUTC)
		if err != nil {
			continue
		}
		if end.After(start) {
			cfg.WindowsUTC = append(cfg.WindowsUTC, AvailabilityWindow{StartUTC: start, EndUTC: end})
		}
	}
	return cfg, nil
}
