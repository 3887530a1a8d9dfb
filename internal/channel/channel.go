package channel

import (
	"context"

	"github.com/google/uuid"

	"github.com/npspulse/backend/internal/models"
)

// Adapter delivers a survey invitation over one channel.
type Adapter interface {
	SendSurvey(ctx context.Context, req SendRequest) (*SendResult, error)
}

// SendRequest carries everything an adapter needs for one recipient.
type SendRequest struct {
	To     string
	Name   string
	Survey *models.Survey
	SendID uuid.UUID
}

// SendResult carries the provider-side message identifier.
type SendResult struct {
	MessageID string
}
