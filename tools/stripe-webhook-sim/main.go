package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v79/webhook"
)

func main() {
	var (
		baseURL    = flag.String("base-url", getenv("BASE_URL", "http://localhost:8080"), "gateway base url")
		evtType    = flag.String("type", getenv("STRIPE_EVENT_TYPE", "payment_intent.succeeded"), "stripe event type")
		bookingUID = flag.String("booking-uid", getenv("BOOKING_UID", ""), "booking_uid metadata")
		amount     = flag.Int64("amount", 5000, "amount in cents")
		currency   = flag.String("currency", getenv("CURRENCY", "usd"), "currency code")
		secret     = flag.String("secret", getenv("STRIPE_WEBHOOK_SECRET", ""), "stripe webhook signing secret (whsec_...)")
	)
	flag.Parse()

	if strings.TrimSpace(*secret) == "" {
		fatal("STRIPE_WEBHOOK_SECRET is required")
	}
	if strings.TrimSpace(*bookingUID) == "" {
		fatal("BOOKING_UID is required")
	}

	now := time.Now().UTC()
	eventID := fmt.Sprintf("evt_test_%d", now.UnixNano())

	payload, err := buildEventJSON(eventID, *evtType, now, *bookingUID, *amount, *currency)
	if err != nil {
		fatal(err.Error())
	}

	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    *secret,
		Timestamp: now,
		Scheme:    "v1",
	})

	req, err := http.NewRequest(http.MethodPost, strings.TrimRight(*baseURL, "/")+"/api/v1/billing/webhooks/stripe", bytes.NewReader(payload))
	if err != nil {
		fatal(err.Error())
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Stripe-Signature", signed.Header)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fatal(err.Error())
	}
	defer resp.Body.Close()

	fmt.Printf("status=%d\n", resp.StatusCode)
}

func buildEventJSON(eventID, eventType string, t time.Time, bookingUID string, amount int64, currency string) ([]byte, error) {
	created := t.Unix()
	switch eventType {
	case "payment_intent.succeeded", "payment_intent.payment_failed", "payment_intent.canceled":
		status := "succeeded"
		if eventType == "payment_intent.payment_failed" {
			status = "requires_payment_method"
		}
		if eventType == "payment_intent.canceled" {
			status = "canceled"
		}
		return json.Marshal(map[string]any{
			"id":          eventID,
			"object":      "event",
			"created":     created,
			"type":        eventType,
			"api_version": "2020-08-27",
			"data": map[string]any{
				"object": map[string]any{
					"id":       "pi_test_123",
					"object":   "payment_intent",
					"amount":   amount,
					"currency": strings.ToLower(currency),
					"status":   status,
					"metadata": map[string]any{
						"booking_uid": bookingUID,
					},
				},
			},
		})
	default:
		return nil, fmt.Errorf("unsupported event type: %s", eventType)
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func fatal(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(2)
}
