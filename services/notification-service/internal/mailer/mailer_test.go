package mailer

import (
	"strings"
	"testing"
	"time"
)

func bookingFixture(status string) BookingEvent {
	return BookingEvent{
		UID:       "6f3f1e5e-0000-4000-8000-000000000001",
		Title:     "30 Min Meeting",
		Status:    status,
		StartTime: time.Date(2026, 6, 1, 14, 0, 0, 0, time.UTC),
		EndTime:   time.Date(2026, 6, 1, 14, 30, 0, 0, time.UTC),
	}
}

func TestComposeMessagePendingVsAccepted(t *testing.T) {
	subject, body := composeMessage("booking.created.v1", bookingFixture("PENDING"), "Dana")
	if !strings.HasPrefix(subject, "Booking request") {
		t.Fatalf("unexpected subject for pending booking: %q", subject)
	}
	if !strings.Contains(body, "awaiting confirmation") {
		t.Fatalf("unexpected body: %q", body)
	}

	subject, _ = composeMessage("booking.created.v1", bookingFixture("ACCEPTED"), "Dana")
	if !strings.HasPrefix(subject, "Booking confirmed") {
		t.Fatalf("unexpected subject for accepted booking: %q", subject)
	}
}

func TestComposeMessageIncludesReason(t *testing.T) {
	evt := bookingFixture("CANCELLED")
	evt.CancellationReason = "host unavailable"
	_, body := composeMessage("booking.cancelled.v1", evt, "")
	if !strings.Contains(body, "host unavailable") {
		t.Fatalf("expected reason in body: %q", body)
	}
}

func TestComposeMessageUnknownEvent(t *testing.T) {
	subject, _ := composeMessage("booking.unknown.v1", bookingFixture("ACCEPTED"), "")
	if subject != "" {
		t.Fatalf("expected no message for unknown event, got %q", subject)
	}
}

func TestLocalizedBody(t *testing.T) {
	evt := bookingFixture("ACCEPTED")
	body := localizedBody("Confirmed.", evt, "America/New_York")
	if !strings.Contains(body, "local time") {
		t.Fatalf("expected localized suffix: %q", body)
	}
	// 14:00 UTC on 2026-06-01 is 10:00 EDT.
	if !strings.Contains(body, "10:00") {
		t.Fatalf("expected 10:00 EDT in body: %q", body)
	}
	if got := localizedBody("Confirmed.", evt, "UTC"); got != "Confirmed." {
		t.Fatalf("expected no suffix for UTC, got %q", got)
	}
	if got := localizedBody("Confirmed.", evt, "Not/AZone"); got != "Confirmed." {
		t.Fatalf("expected no suffix for bad zone, got %q", got)
	}
}
