package ics

import (
	"strings"
	"testing"
	"time"
)

func TestEncodeInvite(t *testing.T) {
	body, err := Encode(Invite{
		UID:       "6f3f1e5e-0000-4000-8000-000000000001",
		Title:     "30 Min Meeting",
		Location:  "https://meet.example.com/abc",
		Organizer: "host@example.com",
		Attendees: []string{"dana@example.com"},
		Start:     time.Date(2026, 6, 1, 14, 0, 0, 0, time.UTC),
		End:       time.Date(2026, 6, 1, 14, 30, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	text := string(body)
	for _, want := range []string{
		"BEGIN:VCALENDAR",
		"METHOD:REQUEST",
		"BEGIN:VEVENT",
		"UID:6f3f1e5e-0000-4000-8000-000000000001",
		"SUMMARY:30 Min Meeting",
		"DTSTART:20260601T140000Z",
		"DTEND:20260601T143000Z",
		"ORGANIZER:mailto:host@example.com",
		"ATTENDEE:mailto:dana@example.com",
		"END:VEVENT",
		"END:VCALENDAR",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("encoded invite missing %q:\n%s", want, text)
		}
	}
}

func TestEncodeCancellation(t *testing.T) {
	body, err := Encode(Invite{
		UID:       "6f3f1e5e-0000-4000-8000-000000000002",
		Title:     "30 Min Meeting",
		Start:     time.Date(2026, 6, 1, 14, 0, 0, 0, time.UTC),
		End:       time.Date(2026, 6, 1, 14, 30, 0, 0, time.UTC),
		Method:    MethodCancel,
		Cancelled: true,
	})
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	text := string(body)
	if !strings.Contains(text, "METHOD:CANCEL") {
		t.Fatalf("expected METHOD:CANCEL in:\n%s", text)
	}
	if !strings.Contains(text, "STATUS:CANCELLED") {
		t.Fatalf("expected STATUS:CANCELLED in:\n%s", text)
	}
}
