package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/npspulse/backend/internal/models"
)

const (
	TypeSurveySend = "survey:send"
)

const (
	QueueCritical = "critical"
	QueueDefault  = "default"
	QueueLow      = "low"
)

// SurveySendPayload is the message a dispatch writes for the delivery
// worker. Recipients carries the full batch; per-recipient state lives in
// the Send records, not here.
type SurveySendPayload struct {
	SendID      uuid.UUID          `json:"sendId"`
	SurveyID    uuid.UUID          `json:"surveyId"`
	TenantID    uuid.UUID          `json:"tenantId"`
	Channel     string             `json:"channel"`
	Recipients  []models.Recipient `json:"recipients"`
	ScheduledAt time.Time          `json:"scheduledAt"`
}

func NewSurveySendTask(payload SurveySendPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal survey send payload: %w", err)
	}
	return asynq.NewTask(TypeSurveySend, data), nil
}
