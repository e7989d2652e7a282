package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/qclickin/platform/services/calendar-service/internal/storage"
)

type fakeAvailabilityStore struct {
	eventTypes map[string]storage.EventType
}

func (s *fakeAvailabilityStore) GetEventType(_ context.Context, id string) (storage.EventType, error) {
	et, ok := s.eventTypes[id]
	if !ok {
		return storage.EventType{}, pgx.ErrNoRows
	}
	return et, nil
}

func (s *fakeAvailabilityStore) GetProfileByUserID(context.Context, string) (storage.OrganizerProfile, error) {
	return storage.OrganizerProfile{}, pgx.ErrNoRows
}

func (s *fakeAvailabilityStore) GetOrCreateSchedule(_ context.Context, userID string, defaultTimeZone string) (storage.Schedule, error) {
	return storage.Schedule{
		UserID:   userID,
		TimeZone: defaultTimeZone,
		Windows: []storage.ScheduleWindow{
			{Weekday: 1, StartMinute: 9 * 60, EndMinute: 17 * 60},
		},
	}, nil
}

func (s *fakeAvailabilityStore) OverridesForDay(context.Context, string, time.Time) ([]storage.DateOverride, error) {
	return nil, nil
}

func configRequest(eventTypeID, date string) *http.Request {
	return httptest.NewRequest(http.MethodGet, "/internal/v1/availability-config?event_type_id="+eventTypeID+"&date="+date, nil)
}

func TestAvailabilityConfigHiddenEventType(t *testing.T) {
	store := &fakeAvailabilityStore{eventTypes: map[string]storage.EventType{
		"et-visible": {ID: "et-visible", OwnerUserID: "user-1", LengthMinutes: 30},
		"et-hidden":  {ID: "et-hidden", OwnerUserID: "user-1", LengthMinutes: 30, Hidden: true},
	}}

	// 2026-06-01 is a Monday, inside the fake schedule's weekly window.
	rec := httptest.NewRecorder()
	availabilityConfig(rec, configRequest("et-visible", "2026-06-01"), store)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for visible event type, got %d", rec.Code)
	}
	var resp availabilityConfigResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.WindowsUTC) == 0 {
		t.Fatal("expected at least one window for visible event type")
	}

	// A hidden event type must resolve like a missing one, even by exact id.
	rec = httptest.NewRecorder()
	availabilityConfig(rec, configRequest("et-hidden", "2026-06-01"), store)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for hidden event type, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	availabilityConfig(rec, configRequest("et-unknown", "2026-06-01"), store)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown event type, got %d", rec.Code)
	}
}
