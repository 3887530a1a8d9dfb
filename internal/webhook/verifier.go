package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
)

// VerifyZendesk checks the hex-encoded HMAC-SHA256 signature Zendesk puts
// in the x-zendesk-webhook-signature header.
func VerifyZendesk(body []byte, signature, secret string) bool {
	if signature == "" || secret == "" {
		return false
	}
	expected := hex.EncodeToString(digest(body, secret))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// VerifySunco checks the base64-encoded HMAC-SHA256 signature Sunshine
// Conversations puts in the x-smooch-signature header.
func VerifySunco(body []byte, signature, secret string) bool {
	if signature == "" || secret == "" {
		return false
	}
	expected := base64.StdEncoding.EncodeToString(digest(body, secret))
	return hmac.Equal([]byte(expected), []byte(signature))
}

func digest(body []byte, secret string) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return mac.Sum(nil)
}
