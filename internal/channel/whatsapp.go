package channel

import (
	"context"
	"fmt"

	"github.com/nyaruka/phonenumbers"
	"github.com/twilio/twilio-go"
	api "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/npspulse/backend/internal/config"
)

// defaultRegion interprets phone numbers given without a country code.
const defaultRegion = "BR"

// WhatsAppAdapter delivers survey invitations through Twilio's WhatsApp
// messaging API.
type WhatsAppAdapter struct {
	client     *twilio.RestClient
	fromNumber string
	baseURL    string
}

func NewWhatsAppAdapter(cfg config.WhatsAppConfig, baseURL string) *WhatsAppAdapter {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	return &WhatsAppAdapter{
		client:     client,
		fromNumber: cfg.FromNumber,
		baseURL:    baseURL,
	}
}

func (a *WhatsAppAdapter) SendSurvey(ctx context.Context, req SendRequest) (*SendResult, error) {
	tmpl := req.Survey.Settings.Templates.WhatsApp
	if tmpl == nil {
		return nil, fmt.Errorf("survey %s has no whatsapp template", req.Survey.ID)
	}

	to, err := NormalizePhone(req.To)
	if err != nil {
		return nil, err
	}

	surveyURL := SurveyURL(a.baseURL, req.Survey.ID, req.SendID)
	body := Render(tmpl.Body, map[string]string{
		"name":        req.Name,
		"surveyTitle": req.Survey.Title,
		"surveyUrl":   surveyURL,
	})
	body = fmt.Sprintf("%s\n\n%s", body, surveyURL)

	params := &api.CreateMessageParams{}
	params.SetTo("whatsapp:" + to)
	params.SetFrom("whatsapp:" + a.fromNumber)
	params.SetBody(body)

	resp, err := a.client.Api.CreateMessage(params)
	if err != nil {
		return nil, fmt.Errorf("twilio send: %w", err)
	}

	messageID := ""
	if resp.Sid != nil {
		messageID = *resp.Sid
	}
	return &SendResult{MessageID: messageID}, nil
}

// NormalizePhone validates the number and formats it as E.164.
func NormalizePhone(phone string) (string, error) {
	num, err := phonenumbers.Parse(phone, defaultRegion)
	if err != nil {
		return "", fmt.Errorf("parse phone %q: %w", phone, err)
	}
	if !phonenumbers.IsValidNumber(num) {
		return "", fmt.Errorf("invalid phone number: %s", phone)
	}
	return phonenumbers.Format(num, phonenumbers.E164), nil
}
