package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"testing"
)

func sign(body []byte, secret string) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return mac.Sum(nil)
}

func TestVerifyZendesk(t *testing.T) {
	body := []byte(`{"type":"ticket.solved","id":42}`)
	secret := "zendesk-secret"
	sig := hex.EncodeToString(sign(body, secret))

	if !VerifyZendesk(body, sig, secret) {
		t.Error("valid signature rejected")
	}
	if VerifyZendesk([]byte(`{"type":"ticket.solved","id":43}`), sig, secret) {
		t.Error("tampered body accepted")
	}
	if VerifyZendesk(body, sig, "wrong-secret") {
		t.Error("wrong secret accepted")
	}
	if VerifyZendesk(body, "", secret) {
		t.Error("empty signature accepted")
	}
	if VerifyZendesk(body, sig, "") {
		t.Error("empty secret accepted")
	}
}

func TestVerifySunco(t *testing.T) {
	body := []byte(`{"trigger":"message:appUser"}`)
	secret := "sunco-secret"
	sig := base64.StdEncoding.EncodeToString(sign(body, secret))

	if !VerifySunco(body, sig, secret) {
		t.Error("valid signature rejected")
	}
	if VerifySunco(append(body, ' '), sig, secret) {
		t.Error("tampered body accepted")
	}
	// Hex encoding of the right digest must not pass the base64 check.
	if VerifySunco(body, hex.EncodeToString(sign(body, secret)), secret) {
		t.Error("hex-encoded signature accepted on the base64 endpoint")
	}
}
