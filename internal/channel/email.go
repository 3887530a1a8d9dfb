package channel

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/npspulse/backend/internal/config"
	"github.com/npspulse/backend/internal/models"
)

// EmailAdapter delivers survey invitations through SendGrid.
type EmailAdapter struct {
	client      *sendgrid.Client
	defaultFrom mail.Email
	baseURL     string
}

func NewEmailAdapter(cfg config.EmailConfig, baseURL string) *EmailAdapter {
	return &EmailAdapter{
		client:      sendgrid.NewSendClient(cfg.SendGridKey),
		defaultFrom: *mail.NewEmail(cfg.FromName, cfg.FromEmail),
		baseURL:     baseURL,
	}
}

func (a *EmailAdapter) SendSurvey(ctx context.Context, req SendRequest) (*SendResult, error) {
	tmpl := req.Survey.Settings.Templates.Email
	if tmpl == nil {
		return nil, fmt.Errorf("survey %s has no email template", req.Survey.ID)
	}

	vars := map[string]string{
		"name":        req.Name,
		"surveyTitle": req.Survey.Title,
		"surveyUrl":   SurveyURL(a.baseURL, req.Survey.ID, req.SendID),
	}
	subject := Render(tmpl.Subject, vars)
	body := Render(tmpl.Body, vars)

	from := a.defaultFrom
	if tmpl.FromEmail != "" {
		from = *mail.NewEmail(tmpl.FromName, tmpl.FromEmail)
	}
	to := mail.NewEmail(req.Name, req.To)

	surveyURL := SurveyURL(a.baseURL, req.Survey.ID, req.SendID)
	unsubURL := UnsubscribeURL(a.baseURL, req.SendID)
	html := a.htmlBody(req.Survey, body, surveyURL, unsubURL)
	text := fmt.Sprintf("%s\n\nResponda em: %s\n\nPara não receber mais pesquisas: %s", body, surveyURL, unsubURL)

	message := mail.NewSingleEmail(&from, subject, to, text, html)
	resp, err := a.client.SendWithContext(ctx, message)
	if err != nil {
		return nil, fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("sendgrid API error: %d %s", resp.StatusCode, resp.Body)
	}

	messageID := ""
	if ids := resp.Headers["X-Message-Id"]; len(ids) > 0 {
		messageID = ids[0]
	}
	return &SendResult{MessageID: messageID}, nil
}

func (a *EmailAdapter) htmlBody(sv *models.Survey, body, surveyURL, unsubURL string) string {
	return fmt.Sprintf(`<html><body>
<h2>%s</h2>
<p>%s</p>
<p>%s</p>
<p><a href="%s" style="display:inline-block;padding:12px 24px;background:#4f46e5;color:#fff;text-decoration:none;border-radius:6px;">Responder pesquisa</a></p>
<p style="font-size:12px;color:#888;"><a href="%s">Não quero mais receber pesquisas</a></p>
</body></html>`, sv.Title, sv.Description, body, surveyURL, unsubURL)
}
