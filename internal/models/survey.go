package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	SurveyStatusDraft    = "DRAFT"
	SurveyStatusActive   = "ACTIVE"
	SurveyStatusPaused   = "PAUSED"
	SurveyStatusArchived = "ARCHIVED"
)

const (
	QuestionTypeNPS    = "NPS"
	QuestionTypeText   = "TEXT"
	QuestionTypeRating = "RATING"
	QuestionTypeChoice = "CHOICE"
)

const (
	ChannelEmail    = "email"
	ChannelWhatsApp = "whatsapp"
)

type Survey struct {
	ID          uuid.UUID      `json:"id"`
	TenantID    uuid.UUID      `json:"tenantId"`
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Questions   []Question     `json:"questions"`
	Settings    SurveySettings `json:"settings"`
	Status      string         `json:"status"`
	CreatedBy   uuid.UUID      `json:"createdBy"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

type Question struct {
	ID       uuid.UUID `json:"id"`
	Type     string    `json:"type"`
	Text     string    `json:"text"`
	Required bool      `json:"required"`
	Options  []string  `json:"options,omitempty"`
}

type SurveySettings struct {
	AllowAnonymous bool             `json:"allowAnonymous"`
	MaxResponses   *int             `json:"maxResponses,omitempty"`
	ExpiresAt      *time.Time       `json:"expiresAt,omitempty"`
	Channels       []string         `json:"channels"`
	Templates      ChannelTemplates `json:"templates"`
}

type ChannelTemplates struct {
	Email    *EmailTemplate    `json:"email,omitempty"`
	WhatsApp *WhatsAppTemplate `json:"whatsapp,omitempty"`
}

type EmailTemplate struct {
	Subject   string `json:"subject"`
	Body      string `json:"body"`
	FromName  string `json:"fromName"`
	FromEmail string `json:"fromEmail"`
}

type WhatsAppTemplate struct {
	Body string `json:"body"`
}

// SurveyListItem is the reduced shape returned by survey listings.
type SurveyListItem struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// NPSQuestion returns the first NPS-type question, if any.
func (s *Survey) NPSQuestion() *Question {
	for i := range s.Questions {
		if s.Questions[i].Type == QuestionTypeNPS {
			return &s.Questions[i]
		}
	}
	return nil
}

// QuestionByID resolves a question by id; nil when it no longer exists.
func (s *Survey) QuestionByID(id uuid.UUID) *Question {
	for i := range s.Questions {
		if s.Questions[i].ID == id {
			return &s.Questions[i]
		}
	}
	return nil
}
