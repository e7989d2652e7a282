package email

import (
	"strings"
	"testing"
)

func TestBuildMessagePlain(t *testing.T) {
	msg, err := buildMessage("no-reply@qclickin.local", "dana@example.com", "Booking confirmed", "See you there.", nil)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	text := string(msg)
	if !strings.Contains(text, "To: dana@example.com\r\n") {
		t.Fatalf("missing To header:\n%s", text)
	}
	if !strings.Contains(text, "Content-Type: text/plain; charset=utf-8") {
		t.Fatalf("missing content type:\n%s", text)
	}
	if !strings.Contains(text, "See you there.") {
		t.Fatalf("missing body:\n%s", text)
	}
}

func TestBuildMessageWithAttachment(t *testing.T) {
	att := Attachment{
		Filename:    "invite.ics",
		ContentType: "text/calendar; method=REQUEST; charset=utf-8",
		Data:        []byte("BEGIN:VCALENDAR\r\nEND:VCALENDAR\r\n"),
	}
	msg, err := buildMessage("no-reply@qclickin.local", "dana@example.com", "Booking confirmed", "See you there.", []Attachment{att})
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	text := string(msg)
	if !strings.Contains(text, "multipart/mixed; boundary=") {
		t.Fatalf("expected multipart message:\n%s", text)
	}
	if !strings.Contains(text, `attachment; filename="invite.ics"`) {
		t.Fatalf("missing attachment disposition:\n%s", text)
	}
	if !strings.Contains(text, "Content-Transfer-Encoding: base64") {
		t.Fatalf("missing transfer encoding:\n%s", text)
	}
}
