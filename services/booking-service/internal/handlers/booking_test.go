package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/qclickin/platform/services/booking-service/internal/scheduling"
	"github.com/qclickin/platform/services/booking-service/internal/storage"
)

func availConfig(day time.Time) scheduling.AvailabilityConfig {
	return scheduling.AvailabilityConfig{
		DurationMinutes:      30,
		MinimumNoticeMinutes: 120,
		Timezone:             "UTC",
		WindowsUTC: []scheduling.AvailabilityWindow{
			{StartUTC: day.Add(9 * time.Hour), EndUTC: day.Add(17 * time.Hour)},
		},
	}
}

func TestCheckBookable(t *testing.T) {
	h := &BookingHandler{}
	day := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	cfg := availConfig(day)
	now := day.Add(6 * time.Hour)

	start := day.Add(10 * time.Hour)
	if msg := h.checkBookable(start, start.Add(30*time.Minute), cfg, now); msg != "" {
		t.Fatalf("expected bookable, got %q", msg)
	}

	start = day.Add(8 * time.Hour)
	if msg := h.checkBookable(start, start.Add(30*time.Minute), cfg, now); msg == "" {
		t.Fatal("expected rejection outside availability")
	}

	// 09:00 is inside the two-hour notice when now is 08:00.
	start = day.Add(9 * time.Hour)
	if msg := h.checkBookable(start, start.Add(30*time.Minute), cfg, day.Add(8*time.Hour)); msg == "" {
		t.Fatal("expected rejection inside minimum notice")
	}

	// 16:45 plus 30 minutes spills past the window end.
	start = day.Add(16*time.Hour + 45*time.Minute)
	if msg := h.checkBookable(start, start.Add(30*time.Minute), cfg, now); msg == "" {
		t.Fatal("expected rejection past window end")
	}
}

func TestBufferedFootprint(t *testing.T) {
	day := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	cfg := availConfig(day)
	cfg.BeforeBufferMinutes = 10
	cfg.AfterBufferMinutes = 15

	start := day.Add(10 * time.Hour)
	end := start.Add(30 * time.Minute)
	bufStart, bufEnd := bufferedFootprint(start, end, cfg)
	if !bufStart.Equal(day.Add(9*time.Hour + 50*time.Minute)) {
		t.Fatalf("expected footprint start 09:50, got %s", bufStart.Format(time.RFC3339))
	}
	if !bufEnd.Equal(day.Add(10*time.Hour + 45*time.Minute)) {
		t.Fatalf("expected footprint end 10:45, got %s", bufEnd.Format(time.RFC3339))
	}
}

func TestSlotConflictMessage(t *testing.T) {
	// Any foreign overlap blocks, even with seats to spare.
	if msg := slotConflictMessage(storage.SlotOccupancy{Conflicts: 1}, 3); msg != "the requested slot is no longer available" {
		t.Fatalf("expected conflict rejection, got %q", msg)
	}
	// Same-slot bookings consume seats until the slot is full.
	if msg := slotConflictMessage(storage.SlotOccupancy{SameSlot: 2}, 3); msg != "" {
		t.Fatalf("expected open seat, got %q", msg)
	}
	if msg := slotConflictMessage(storage.SlotOccupancy{SameSlot: 3}, 3); msg != "all seats for this slot are taken" {
		t.Fatalf("expected full slot rejection, got %q", msg)
	}
	// Single-seat types never share.
	if msg := slotConflictMessage(storage.SlotOccupancy{SameSlot: 1}, 1); msg != "the requested slot is no longer available" {
		t.Fatalf("expected single-seat rejection, got %q", msg)
	}
	if msg := slotConflictMessage(storage.SlotOccupancy{}, 1); msg != "" {
		t.Fatalf("expected free slot, got %q", msg)
	}
}

func TestBuildAttendeesDedupesGuests(t *testing.T) {
	req := createBookingRequest{
		Attendee: attendeeRequest{Name: "Dana", Email: "dana@example.com"},
		Guests:   []string{"guest@example.com", "Dana@Example.com", "guest@example.com", "not-an-email", ""},
	}
	attendees := buildAttendees(req, "Europe/Berlin")
	if len(attendees) != 2 {
		t.Fatalf("expected 2 attendees, got %d", len(attendees))
	}
	if attendees[0].Email != "dana@example.com" || attendees[0].TimeZone != "Europe/Berlin" {
		t.Fatalf("unexpected primary attendee: %+v", attendees[0])
	}
	if attendees[1].Email != "guest@example.com" {
		t.Fatalf("unexpected guest: %+v", attendees[1])
	}
}

func strptr(s string) *string { return &s }

func TestAttendeeUpdateValidation(t *testing.T) {
	if _, err := (attendeeUpdateRequest{}).toUpdate(); err == nil {
		t.Fatal("expected rejection of empty update")
	}
	if _, err := (attendeeUpdateRequest{Email: strptr("  ")}).toUpdate(); err == nil {
		t.Fatal("expected rejection of blank email")
	}
	if _, err := (attendeeUpdateRequest{Email: strptr("not-an-email")}).toUpdate(); err == nil {
		t.Fatal("expected rejection of malformed email")
	}
	if _, err := (attendeeUpdateRequest{Name: strptr("")}).toUpdate(); err == nil {
		t.Fatal("expected rejection of empty name")
	}

	noShow := true
	upd, err := (attendeeUpdateRequest{
		Email:  strptr(" Dana@Example.com "),
		Name:   strptr(" Dana "),
		NoShow: &noShow,
	}).toUpdate()
	if err != nil {
		t.Fatalf("expected valid update, got %v", err)
	}
	if upd.Email == nil || *upd.Email != "dana@example.com" {
		t.Fatalf("expected normalized email, got %v", upd.Email)
	}
	if upd.Name == nil || *upd.Name != "Dana" {
		t.Fatalf("expected trimmed name, got %v", upd.Name)
	}
	if upd.NoShow == nil || !*upd.NoShow {
		t.Fatal("expected no_show to carry through")
	}
	if upd.TimeZone != nil || upd.Locale != nil || upd.PhoneNumber != nil {
		t.Fatal("expected untouched fields to stay nil")
	}
}

func TestStatsRange(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/bookings/stats/event-types?from=2026-06-01&to=2026-07-01", nil)
	from, to, errMsg := statsRange(req)
	if errMsg != "" {
		t.Fatalf("expected valid range, got %q", errMsg)
	}
	if from.Format("2006-01-02") != "2026-06-01" || to.Format("2006-01-02") != "2026-07-01" {
		t.Fatalf("unexpected range %s..%s", from, to)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/bookings/stats/event-types?from=2026-07-01&to=2026-06-01", nil)
	if _, _, errMsg := statsRange(req); errMsg == "" {
		t.Fatal("expected rejection of inverted range")
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/bookings/stats/event-types?from=June", nil)
	if _, _, errMsg := statsRange(req); errMsg == "" {
		t.Fatal("expected rejection of malformed from")
	}
}

func TestBuildAttendeesDefaults(t *testing.T) {
	req := createBookingRequest{
		Attendee: attendeeRequest{Name: "Dana", Email: "dana@example.com"},
	}
	attendees := buildAttendees(req, "")
	if attendees[0].TimeZone != "UTC" {
		t.Fatalf("expected UTC fallback, got %s", attendees[0].TimeZone)
	}
	if attendees[0].Locale != "en" {
		t.Fatalf("expected en fallback, got %s", attendees[0].Locale)
	}
}
