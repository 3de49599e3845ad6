package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Sign computes the hex HMAC-SHA256 of "orderID|paymentID" under secret, the
// value the gateway returns to the checkout widget on a successful payment.
func Sign(secret, gatewayOrderID, gatewayPaymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(gatewayOrderID + "|" + gatewayPaymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature reports whether signature is exactly the digest Sign would
// produce. The comparison is constant time.
func VerifySignature(secret, gatewayOrderID, gatewayPaymentID, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}
	expected := Sign(secret, gatewayOrderID, gatewayPaymentID)
	return hmac.Equal([]byte(expected), []byte(signature))
}
