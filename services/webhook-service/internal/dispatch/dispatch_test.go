package dispatch

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/qclickin/platform/services/webhook-service/internal/storage"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func TestSignAndVerify(t *testing.T) {
	body := []byte(`{"uid":"abc"}`)
	sig := Sign("whsec_test", body)
	if sig == "" || sig[:7] != "sha256=" {
		t.Fatalf("unexpected signature format: %q", sig)
	}
	if !Verify("whsec_test", body, sig) {
		t.Fatal("expected signature to verify")
	}
	if Verify("whsec_other", body, sig) {
		t.Fatal("expected verification to fail with wrong secret")
	}
	if Verify("whsec_test", []byte(`{"uid":"tampered"}`), sig) {
		t.Fatal("expected verification to fail on tampered body")
	}
}

func TestDeliverSignsAndPosts(t *testing.T) {
	var gotSig, gotEvent string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSig = r.Header.Get(SignatureHeader)
		gotEvent = r.Header.Get("X-Webhook-Event")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	w := &Worker{client: &http.Client{Timeout: 5 * time.Second, Transport: otelhttp.NewTransport(http.DefaultTransport)}}
	d := storage.Delivery{
		URL:       srv.URL,
		Secret:    "whsec_test",
		EventID:   "evt-1",
		EventType: "booking.created.v1",
		Payload:   json.RawMessage(`{"uid":"abc"}`),
		CreatedAt: time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC),
	}

	status, err := w.deliver(context.Background(), d)
	if err != nil {
		t.Fatalf("deliver failed: %v", err)
	}
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if gotEvent != "booking.created.v1" {
		t.Fatalf("unexpected event header: %q", gotEvent)
	}
	if !Verify("whsec_test", gotBody, gotSig) {
		t.Fatal("delivered body does not verify against its signature")
	}

	var envelope struct {
		EventID   string          `json:"event_id"`
		EventType string          `json:"event_type"`
		Payload   json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(gotBody, &envelope); err != nil {
		t.Fatalf("invalid envelope: %v", err)
	}
	if envelope.EventID != "evt-1" || envelope.EventType != "booking.created.v1" {
		t.Fatalf("unexpected envelope: %+v", envelope)
	}
}

func TestDeliverNon2xxIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	w := &Worker{client: &http.Client{Timeout: 5 * time.Second}}
	d := storage.Delivery{URL: srv.URL, Secret: "s", EventID: "evt-2", EventType: "booking.cancelled.v1", Payload: json.RawMessage(`{}`)}

	status, err := w.deliver(context.Background(), d)
	if err == nil {
		t.Fatal("expected error for 502 response")
	}
	if status != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", status)
	}
}
