// Package signature verifies that payment confirmations genuinely originate
// from the payment provider, using an HMAC-SHA256 keyed hash over a message
// the provider signed with the shared secret.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Verify reports whether candidate equals the hex HMAC-SHA256 digest of
// message under secret. Comparison is constant-time. A mismatch is a plain
// false, not an error: the caller maps it to an authentication failure and
// must take no state-changing action.
func Verify(secret string, message []byte, candidate string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(message)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(candidate))
}

// PaymentMessage builds the message the provider signs on the client verify
// path: the order and payment identifiers joined by a pipe.
func PaymentMessage(orderID, paymentID string) []byte {
	return []byte(orderID + "|" + paymentID)
}
