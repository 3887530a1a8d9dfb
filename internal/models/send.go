package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	SendStatusPending   = "PENDING"
	SendStatusSent      = "SENT"
	SendStatusDelivered = "DELIVERED"
	SendStatusFailed    = "FAILED"
	SendStatusBounced   = "BOUNCED"
)

// Send is one recipient's delivery attempt within a send batch. ID is the
// batch identifier shared by every recipient of a single send call; the
// (batch, recipient) pair is unique.
type Send struct {
	ID           uuid.UUID    `json:"id"`
	TenantID     uuid.UUID    `json:"tenantId"`
	SurveyID     uuid.UUID    `json:"surveyId"`
	RecipientID  string       `json:"recipientId"`
	Channel      string       `json:"channel"`
	Status       string       `json:"status"`
	ScheduledAt  time.Time    `json:"scheduledAt"`
	SentAt       *time.Time   `json:"sentAt,omitempty"`
	DeliveredAt  *time.Time   `json:"deliveredAt,omitempty"`
	FailedAt     *time.Time   `json:"failedAt,omitempty"`
	ErrorMessage string       `json:"errorMessage,omitempty"`
	MessageID    string       `json:"messageId,omitempty"`
	Metadata     SendMetadata `json:"metadata"`
	CreatedAt    time.Time    `json:"createdAt"`
	UpdatedAt    time.Time    `json:"updatedAt"`
}

// SendMetadata snapshots the recipient and the chosen template at send
// time, so later template edits do not rewrite historical sends.
type SendMetadata struct {
	Recipient Recipient        `json:"recipient"`
	Template  TemplateSnapshot `json:"template"`
}

type TemplateSnapshot struct {
	Subject string `json:"subject,omitempty"`
	Body    string `json:"body,omitempty"`
}

type Recipient struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// ID is the recipient identifier used as the send record's sort key:
// the email address, falling back to the phone number.
func (r Recipient) ID() string {
	if r.Email != "" {
		return r.Email
	}
	return r.Phone
}

// SendStatusTerminal reports whether the status is final for a delivery attempt.
func SendStatusTerminal(status string) bool {
	switch status {
	case SendStatusDelivered, SendStatusFailed, SendStatusBounced:
		return true
	}
	return false
}
