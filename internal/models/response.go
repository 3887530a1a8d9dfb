package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	CategoryPromoter  = "PROMOTER"
	CategoryPassive   = "PASSIVE"
	CategoryDetractor = "DETRACTOR"
)

// Response is one completed survey submission. Immutable once created.
type Response struct {
	ID           uuid.UUID        `json:"id"`
	TenantID     uuid.UUID        `json:"tenantId"`
	SurveyID     uuid.UUID        `json:"surveyId"`
	RespondentID uuid.UUID        `json:"respondentId"`
	Answers      []Answer         `json:"answers"`
	Score        *int             `json:"score,omitempty"`
	Category     *string          `json:"category,omitempty"`
	CompletedAt  time.Time        `json:"completedAt"`
	Metadata     ResponseMetadata `json:"metadata"`
	CreatedAt    time.Time        `json:"createdAt"`
	UpdatedAt    time.Time        `json:"updatedAt"`
}

type Answer struct {
	QuestionID uuid.UUID `json:"questionId"`
	Type       string    `json:"type"`
	Value      string    `json:"value"`
	Text       string    `json:"text,omitempty"`
}

type ResponseMetadata struct {
	Channel   string `json:"channel"`
	UserAgent string `json:"userAgent,omitempty"`
	IPAddress string `json:"ipAddress,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
}

// ClassifyNPS maps a 0-10 score onto the NPS category.
func ClassifyNPS(score int) string {
	switch {
	case score >= 9:
		return CategoryPromoter
	case score >= 7:
		return CategoryPassive
	default:
		return CategoryDetractor
	}
}
