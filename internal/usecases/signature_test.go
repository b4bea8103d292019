package usecases

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"testing"
)

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyWebhookSignatureHMAC(t *testing.T) {
	body := []byte(`{"from":{"id":"+5511999"},"message":{"content":"oi"}}`)

	if err := VerifyWebhookSignature("topsecret", body, sign("topsecret", body), ""); err != nil {
		t.Fatalf("valid signature rejected: %v", err)
	}

	err := VerifyWebhookSignature("topsecret", body, sign("wrongsecret", body), "")
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("forged signature error = %v, want ErrUnauthorized", err)
	}

	// Tampered body under a signature of the original body.
	err = VerifyWebhookSignature("topsecret", []byte(`{"tampered":true}`), sign("topsecret", body), "")
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("tampered body error = %v, want ErrUnauthorized", err)
	}
}

func TestVerifyWebhookSignatureRawSecret(t *testing.T) {
	body := []byte(`{}`)

	if err := VerifyWebhookSignature("topsecret", body, "", "topsecret"); err != nil {
		t.Fatalf("matching raw secret rejected: %v", err)
	}
	if err := VerifyWebhookSignature("topsecret", body, "", "nope"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("wrong raw secret error = %v, want ErrUnauthorized", err)
	}
}

func TestVerifyWebhookSignaturePrecedence(t *testing.T) {
	// When both headers are present the signature header decides; a correct
	// raw secret cannot rescue a bad signature.
	body := []byte(`{}`)
	err := VerifyWebhookSignature("topsecret", body, "sha256=deadbeef", "topsecret")
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("bad signature with good raw secret = %v, want ErrUnauthorized", err)
	}
}

func TestVerifyWebhookSignatureDisabled(t *testing.T) {
	if err := VerifyWebhookSignature("", []byte(`{}`), "", ""); err != nil {
		t.Fatalf("empty configured secret should disable verification, got %v", err)
	}
}

func TestVerifyWebhookSignatureMissingHeaders(t *testing.T) {
	if err := VerifyWebhookSignature("topsecret", []byte(`{}`), "", ""); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("missing headers error = %v, want ErrUnauthorized", err)
	}
}
