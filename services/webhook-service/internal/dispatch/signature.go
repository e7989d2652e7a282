package dispatch

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

const SignatureHeader = "X-Webhook-Signature-256"

// Sign returns the signature header value for a payload: the hex HMAC-SHA256
// of the body under the webhook's secret, prefixed with the algorithm.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// Verify checks a received signature header against the body. Receivers can
// use it to authenticate deliveries.
func Verify(secret string, body []byte, signature string) bool {
	return hmac.Equal([]byte(Sign(secret, body)), []byte(signature))
}
