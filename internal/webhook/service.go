package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/npspulse/backend/internal/models"
	"github.com/npspulse/backend/internal/store"
)

// Service persists verified webhook events and routes them to their
// source-specific handlers.
type Service struct {
	store store.Store
}

func NewService(st store.Store) *Service {
	return &Service{store: st}
}

func (s *Service) ProcessZendesk(ctx context.Context, payload json.RawMessage) (*models.WebhookEvent, error) {
	event, err := s.storeEvent(ctx, models.WebhookSourceZendesk, payload)
	if err != nil {
		return nil, err
	}
	s.handleTicketCreated(event)
	return event, nil
}

func (s *Service) ProcessSunco(ctx context.Context, payload json.RawMessage) (*models.WebhookEvent, error) {
	event, err := s.storeEvent(ctx, models.WebhookSourceSunco, payload)
	if err != nil {
		return nil, err
	}
	s.handleMessageReceived(event)
	return event, nil
}

func (s *Service) storeEvent(ctx context.Context, source string, payload json.RawMessage) (*models.WebhookEvent, error) {
	now := time.Now().UTC()
	event := models.WebhookEvent{
		ID:        uuid.New(),
		Source:    source,
		Type:      eventType(payload),
		Data:      payload,
		Timestamp: now,
		CreatedAt: now,
		UpdatedAt: now,
	}
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("encode webhook event: %w", err)
	}
	err = s.store.Put(ctx, store.Record{
		PK:     "WEBHOOK#" + event.ID.String(),
		SK:     "EVENT",
		GSI1PK: "SOURCE#" + source,
		GSI1SK: "EVENT#" + now.Format(time.RFC3339Nano),
		Entity: "WEBHOOK_EVENT",
		Data:   data,
	})
	if err != nil {
		return nil, fmt.Errorf("store webhook event: %w", err)
	}
	slog.Info("webhook event stored", "event_id", event.ID, "source", source, "type", event.Type)
	return &event, nil
}

// handleTicketCreated will open a survey dispatch when a Zendesk ticket is
// solved. TODO: wire to dispatch once the ticket->survey mapping settings
// exist on the tenant.
func (s *Service) handleTicketCreated(event *models.WebhookEvent) {
	slog.Info("zendesk event received", "event_id", event.ID, "type", event.Type)
}

// handleMessageReceived mirrors the Zendesk stub for Sunshine
// Conversations messages.
func (s *Service) handleMessageReceived(event *models.WebhookEvent) {
	slog.Info("sunco event received", "event_id", event.ID, "type", event.Type)
}

// eventType pulls a best-effort type tag out of the raw payload: Zendesk
// sends "type", Sunco sends "trigger".
func eventType(payload json.RawMessage) string {
	var probe struct {
		Type    string `json:"type"`
		Trigger string `json:"trigger"`
	}
	if err := json.Unmarshal(payload, &probe); err != nil {
		return "unknown"
	}
	if probe.Type != "" {
		return probe.Type
	}
	if probe.Trigger != "" {
		return probe.Trigger
	}
	return "unknown"
}
