package handlers

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func testHandler() *Handler {
	return New(nil, nil, slog.New(slog.NewTextHandler(io.Discard, nil)), Config{})
}

func TestListPaymentsRequiresIdentity(t *testing.T) {
	h := testHandler()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/billing/payments?booking_uid=b-1", nil)
	rec := httptest.NewRecorder()
	h.ListPayments(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without X-User-Id, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/billing/payments", nil)
	req.Header.Set("X-User-Id", "user-1")
	rec = httptest.NewRecorder()
	h.ListPayments(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without booking_uid, got %d", rec.Code)
	}
}
