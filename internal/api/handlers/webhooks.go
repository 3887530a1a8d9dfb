package handlers

import (
	"io"
	"net/http"

	"github.com/npspulse/backend/internal/apperr"
	"github.com/npspulse/backend/internal/config"
	"github.com/npspulse/backend/internal/metrics"
	"github.com/npspulse/backend/internal/models"
	"github.com/npspulse/backend/internal/response"
	"github.com/npspulse/backend/internal/webhook"
)

const maxWebhookBody = 1 << 20 // 1 MiB

type WebhookHandler struct {
	webhooks  *webhook.Service
	responses *response.Service
	cfg       config.WebhooksConfig
}

func NewWebhookHandler(webhooks *webhook.Service, responses *response.Service, cfg config.WebhooksConfig) *WebhookHandler {
	return &WebhookHandler{webhooks: webhooks, responses: responses, cfg: cfg}
}

// Zendesk verifies the hex HMAC signature before anything is persisted.
func (h *WebhookHandler) Zendesk(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		writeError(w, r, apperr.Validation("unreadable body"))
		return
	}
	if !webhook.VerifyZendesk(body, r.Header.Get("x-zendesk-webhook-signature"), h.cfg.ZendeskSecret) {
		writeError(w, r, apperr.Unauthorized("INVALID_SIGNATURE", "Signature verification failed"))
		return
	}

	event, err := h.webhooks.ProcessZendesk(r.Context(), body)
	if err != nil {
		writeError(w, r, err)
		return
	}
	metrics.WebhookEventsTotal.WithLabelValues(models.WebhookSourceZendesk).Inc()
	writeData(w, http.StatusOK, map[string]string{"eventId": event.ID.String()})
}

// Sunco verifies the base64 HMAC signature before anything is persisted.
func (h *WebhookHandler) Sunco(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		writeError(w, r, apperr.Validation("unreadable body"))
		return
	}
	if !webhook.VerifySunco(body, r.Header.Get("x-smooch-signature"), h.cfg.SuncoSecret) {
		writeError(w, r, apperr.Unauthorized("INVALID_SIGNATURE", "Signature verification failed"))
		return
	}

	event, err := h.webhooks.ProcessSunco(r.Context(), body)
	if err != nil {
		writeError(w, r, err)
		return
	}
	metrics.WebhookEventsTotal.WithLabelValues(models.WebhookSourceSunco).Inc()
	writeData(w, http.StatusOK, map[string]string{"eventId": event.ID.String()})
}

// SurveyResponse is the public ingestion endpoint survey links submit to.
func (h *WebhookHandler) SurveyResponse(w http.ResponseWriter, r *http.Request) {
	var input response.ProcessInput
	if err := decodeJSON(r, &input); err != nil {
		writeError(w, r, err)
		return
	}
	if input.Metadata.UserAgent == "" {
		input.Metadata.UserAgent = r.UserAgent()
	}
	if input.Metadata.IPAddress == "" {
		input.Metadata.IPAddress = r.RemoteAddr
	}

	resp, err := h.responses.Process(r.Context(), input)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, map[string]interface{}{
		"responseId": resp.ID,
		"category":   resp.Category,
	})
}
