package handlers

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/npspulse/backend/internal/config"
	"github.com/npspulse/backend/internal/response"
	"github.com/npspulse/backend/internal/store"
	"github.com/npspulse/backend/internal/survey"
	"github.com/npspulse/backend/internal/webhook"
)

const (
	zendeskSecret = "zd-secret"
	suncoSecret   = "sc-secret"
)

func newWebhookFixture(t *testing.T) (*WebhookHandler, store.Store) {
	t.Helper()
	st := store.NewMemory()
	surveys := survey.NewService(st)
	h := NewWebhookHandler(
		webhook.NewService(st),
		response.NewService(st, surveys),
		config.WebhooksConfig{ZendeskSecret: zendeskSecret, SuncoSecret: suncoSecret},
	)
	return h, st
}

func hmacSHA256(body []byte, secret string) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return mac.Sum(nil)
}

func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder) Envelope {
	t.Helper()
	var env Envelope
	if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	return env
}

func storedEvents(t *testing.T, st store.Store, source string) int {
	t.Helper()
	_, total, err := st.Query(context.Background(), store.Query{GSI1PK: "SOURCE#" + source})
	if err != nil {
		t.Fatalf("query events: %v", err)
	}
	return total
}

func TestZendeskWebhookAcceptsValidSignature(t *testing.T) {
	h, st := newWebhookFixture(t)
	body := []byte(`{"type":"ticket.created","ticket":{"id":7}}`)
	sig := hex.EncodeToString(hmacSHA256(body, zendeskSecret))

	req := httptest.NewRequest(http.MethodPost, "/webhooks/zendesk", bytes.NewReader(body))
	req.Header.Set("x-zendesk-webhook-signature", sig)
	rr := httptest.NewRecorder()
	h.Zendesk(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}
	env := decodeEnvelope(t, rr)
	if !env.Success {
		t.Error("success = false")
	}
	if storedEvents(t, st, "zendesk") != 1 {
		t.Error("event not persisted")
	}
}

func TestZendeskWebhookRejectsTamperedBody(t *testing.T) {
	h, st := newWebhookFixture(t)
	body := []byte(`{"type":"ticket.created"}`)
	sig := hex.EncodeToString(hmacSHA256(body, zendeskSecret))

	req := httptest.NewRequest(http.MethodPost, "/webhooks/zendesk", bytes.NewReader([]byte(`{"type":"ticket.created","evil":true}`)))
	req.Header.Set("x-zendesk-webhook-signature", sig)
	rr := httptest.NewRecorder()
	h.Zendesk(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rr.Code)
	}
	env := decodeEnvelope(t, rr)
	if env.Success || env.Error == nil || env.Error.Code != "INVALID_SIGNATURE" {
		t.Errorf("envelope = %+v", env)
	}
	if storedEvents(t, st, "zendesk") != 0 {
		t.Error("rejected event was persisted")
	}
}

func TestSuncoWebhookSignatureEncoding(t *testing.T) {
	h, st := newWebhookFixture(t)
	body := []byte(`{"trigger":"message:appUser"}`)

	// Correct digest but hex-encoded must fail; Sunco uses base64.
	req := httptest.NewRequest(http.MethodPost, "/webhooks/sunco", bytes.NewReader(body))
	req.Header.Set("x-smooch-signature", hex.EncodeToString(hmacSHA256(body, suncoSecret)))
	rr := httptest.NewRecorder()
	h.Sunco(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("hex signature: status = %d, want 401", rr.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/webhooks/sunco", bytes.NewReader(body))
	req.Header.Set("x-smooch-signature", base64.StdEncoding.EncodeToString(hmacSHA256(body, suncoSecret)))
	rr = httptest.NewRecorder()
	h.Sunco(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("base64 signature: status = %d, body %s", rr.Code, rr.Body.String())
	}
	if storedEvents(t, st, "sunco") != 1 {
		t.Error("event not persisted")
	}
}

func TestSurveyResponseWebhook(t *testing.T) {
	h, st := newWebhookFixture(t)

	// The ingestion endpoint needs a survey to attach to.
	surveys := survey.NewService(st)
	sv, err := surveys.Create(context.Background(), uuid.New(), uuid.New(), survey.CreateRequest{
		Title:     "Suporte",
		Questions: []survey.QuestionInput{{Type: "NPS", Text: "Recomendaria?"}},
	})
	if err != nil {
		t.Fatalf("create survey: %v", err)
	}

	payload, _ := json.Marshal(map[string]interface{}{
		"surveyId": sv.ID,
		"answers": []map[string]interface{}{
			{"questionId": sv.Questions[0].ID, "value": "10"},
		},
	})
	req := httptest.NewRequest(http.MethodPost, "/webhooks/survey-response", bytes.NewReader(payload))
	rr := httptest.NewRecorder()
	h.SurveyResponse(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}
	env := decodeEnvelope(t, rr)
	data, ok := env.Data.(map[string]interface{})
	if !ok || data["category"] != "PROMOTER" {
		t.Errorf("data = %v", env.Data)
	}
}
