package usecases

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"
)

// VerifyWebhookSignature gates webhook ingestion. Two verification
// strategies share the header space and are tried in sequence:
//
//  1. X-Webhook-Signature: "sha256=<hex>" — HMAC-SHA256 over the raw body.
//  2. X-Webhook-Secret: the raw shared secret itself.
//
// Both comparisons are constant time. An empty configured secret disables
// the gate entirely.
func VerifyWebhookSignature(secret string, body []byte, signatureHeader, secretHeader string) error {
	if secret == "" {
		return nil
	}

	if signatureHeader != "" {
		provided := strings.TrimPrefix(signatureHeader, "sha256=")
		mac := hmac.New(sha256.New, []byte(secret))
		mac.Write(body)
		expected := hex.EncodeToString(mac.Sum(nil))
		if subtle.ConstantTimeCompare([]byte(provided), []byte(expected)) == 1 {
			return nil
		}
		return fmt.Errorf("%w: invalid webhook signature", ErrUnauthorized)
	}

	if secretHeader != "" {
		if subtle.ConstantTimeCompare([]byte(secretHeader), []byte(secret)) == 1 {
			return nil
		}
		return fmt.Errorf("%w: invalid webhook secret", ErrUnauthorized)
	}

	return fmt.Errorf("%w: missing webhook signature", ErrUnauthorized)
}
