package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/npspulse/backend/internal/apperr"
	"github.com/npspulse/backend/internal/models"
	"github.com/npspulse/backend/internal/queue"
	"github.com/npspulse/backend/internal/store"
	"github.com/npspulse/backend/internal/survey"
)

// Enqueuer abstracts the queue client so tests can record enqueues.
type Enqueuer interface {
	EnqueueSurveySend(payload queue.SurveySendPayload, delay time.Duration) error
}

// Service fans a send request out into per-recipient Send records and a
// single queue message for the delivery worker.
type Service struct {
	store   store.Store
	surveys *survey.Service
	queue   Enqueuer
}

func NewService(st store.Store, surveys *survey.Service, q Enqueuer) *Service {
	return &Service{store: st, surveys: surveys, queue: q}
}

type SendRequest struct {
	Recipients  []models.Recipient `json:"recipients"`
	Channel     string             `json:"channel"`
	ScheduledAt *time.Time         `json:"scheduledAt"`
}

type SendResult struct {
	SendID         uuid.UUID `json:"sendId"`
	SurveyID       uuid.UUID `json:"surveyId"`
	RecipientCount int       `json:"recipientCount"`
	Status         string    `json:"status"`
}

func sendPK(batchID uuid.UUID) string    { return "SEND#" + batchID.String() }
func recipientSK(addr string) string     { return "RECIPIENT#" + addr }
func surveyGSIPK(id uuid.UUID) string    { return "SURVEY#" + id.String() }
func sendGSISK(batchID uuid.UUID) string { return "SEND#" + batchID.String() }

func (s *Service) SendSurvey(ctx context.Context, tenantID, surveyID uuid.UUID, req SendRequest) (*SendResult, error) {
	sv, err := s.surveys.Get(ctx, tenantID, surveyID)
	if err != nil {
		return nil, err
	}
	if sv.Status != models.SurveyStatusActive {
		return nil, apperr.New(400, "SURVEY_NOT_ACTIVE", "Survey must be active to send")
	}

	channel := req.Channel
	if channel == "" {
		channel = models.ChannelEmail
	}
	if err := validateSend(sv, channel, req.Recipients); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	scheduledAt := now
	if req.ScheduledAt != nil {
		scheduledAt = req.ScheduledAt.UTC()
	}

	batchID := uuid.New()
	snapshot := templateSnapshot(sv, channel)

	for _, r := range req.Recipients {
		send := models.Send{
			ID:          batchID,
			TenantID:    tenantID,
			SurveyID:    surveyID,
			RecipientID: r.ID(),
			Channel:     channel,
			Status:      models.SendStatusPending,
			ScheduledAt: scheduledAt,
			Metadata:    models.SendMetadata{Recipient: r, Template: snapshot},
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		data, err := json.Marshal(send)
		if err != nil {
			return nil, fmt.Errorf("encode send record: %w", err)
		}
		err = s.store.Put(ctx, store.Record{
			PK:       sendPK(batchID),
			SK:       recipientSK(r.ID()),
			GSI1PK:   surveyGSIPK(surveyID),
			GSI1SK:   sendGSISK(batchID),
			Entity:   "SEND",
			TenantID: tenantID.String(),
			Data:     data,
		})
		if err != nil {
			return nil, fmt.Errorf("store send record: %w", err)
		}
	}

	var delay time.Duration
	if scheduledAt.After(now) {
		delay = scheduledAt.Sub(now)
	}
	err = s.queue.EnqueueSurveySend(queue.SurveySendPayload{
		SendID:      batchID,
		SurveyID:    surveyID,
		TenantID:    tenantID,
		Channel:     channel,
		Recipients:  req.Recipients,
		ScheduledAt: scheduledAt,
	}, delay)
	if err != nil {
		return nil, fmt.Errorf("enqueue send batch: %w", err)
	}

	slog.Info("survey send queued",
		"send_id", batchID,
		"survey_id", surveyID,
		"tenant_id", tenantID,
		"channel", channel,
		"recipients", len(req.Recipients))

	return &SendResult{
		SendID:         batchID,
		SurveyID:       surveyID,
		RecipientCount: len(req.Recipients),
		Status:         "QUEUED",
	}, nil
}

func validateSend(sv *models.Survey, channel string, recipients []models.Recipient) error {
	if len(recipients) == 0 {
		return apperr.Validation("at least one recipient is required")
	}
	enabled := false
	for _, ch := range sv.Settings.Channels {
		if ch == channel {
			enabled = true
			break
		}
	}
	if !enabled {
		return apperr.Validation("channel not enabled for this survey: " + channel)
	}
	for i, r := range recipients {
		switch channel {
		case models.ChannelEmail:
			if r.Email == "" {
				return apperr.Validation(fmt.Sprintf("recipient %d: email is required", i))
			}
		case models.ChannelWhatsApp:
			if r.Phone == "" {
				return apperr.Validation(fmt.Sprintf("recipient %d: phone is required", i))
			}
		}
	}
	return nil
}

// templateSnapshot captures the channel template at dispatch time so later
// edits do not change what a historical batch sent.
func templateSnapshot(sv *models.Survey, channel string) models.TemplateSnapshot {
	switch channel {
	case models.ChannelEmail:
		if t := sv.Settings.Templates.Email; t != nil {
			return models.TemplateSnapshot{Subject: t.Subject, Body: t.Body}
		}
	case models.ChannelWhatsApp:
		if t := sv.Settings.Templates.WhatsApp; t != nil {
			return models.TemplateSnapshot{Body: t.Body}
		}
	}
	return models.TemplateSnapshot{}
}
