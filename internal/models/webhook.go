package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	WebhookSourceZendesk = "zendesk"
	WebhookSourceSunco   = "sunco"
)

// WebhookEvent is the audit record of a verified inbound event. It is
// retained as-is; nothing downstream reads it back.
type WebhookEvent struct {
	ID        uuid.UUID       `json:"id"`
	Source    string          `json:"source"`
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}
