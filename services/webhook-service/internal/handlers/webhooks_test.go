package handlers

import (
	"strings"
	"testing"
)

func TestNormalizeEvents(t *testing.T) {
	events, errMsg := normalizeEvents([]string{"booking.created.v1", " booking.cancelled.v1 ", "booking.created.v1"})
	if errMsg != "" {
		t.Fatalf("unexpected error: %s", errMsg)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events after dedupe, got %d", len(events))
	}

	if _, errMsg := normalizeEvents([]string{"booking.exploded.v1"}); errMsg == "" {
		t.Fatal("expected unknown event type to be rejected")
	}
	if _, errMsg := normalizeEvents(nil); errMsg == "" {
		t.Fatal("expected empty event list to be rejected")
	}
}

func TestValidEndpointURL(t *testing.T) {
	for _, raw := range []string{"https://example.com/hooks", "http://internal:8080/x"} {
		if !validEndpointURL(raw) {
			t.Fatalf("expected %q to be valid", raw)
		}
	}
	for _, raw := range []string{"", "ftp://example.com", "example.com/hooks", "https://"} {
		if validEndpointURL(raw) {
			t.Fatalf("expected %q to be invalid", raw)
		}
	}
}

func TestNewSecretFormat(t *testing.T) {
	s1, s2 := newSecret(), newSecret()
	if !strings.HasPrefix(s1, "whsec_") || len(s1) != len("whsec_")+48 {
		t.Fatalf("unexpected secret format: %q", s1)
	}
	if s1 == s2 {
		t.Fatal("expected secrets to be random")
	}
}
