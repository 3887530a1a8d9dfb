package survey

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/npspulse/backend/internal/apperr"
	"github.com/npspulse/backend/internal/models"
	"github.com/npspulse/backend/internal/store"
)

// Service owns the survey lifecycle. All reads and writes are scoped to
// the caller's tenant; a survey belonging to another tenant is reported
// as not found, never as forbidden.
type Service struct {
	store store.Store
}

func NewService(st store.Store) *Service {
	return &Service{store: st}
}

func surveyPK(id uuid.UUID) string { return "SURVEY#" + id.String() }
func tenantPK(id uuid.UUID) string { return "TENANT#" + id.String() }

type ListParams struct {
	Status    string
	Page      int
	Limit     int
	SortBy    string
	Ascending bool
}

type CreateRequest struct {
	Title       string                 `json:"title"`
	Description string                 `json:"description"`
	Questions   []QuestionInput        `json:"questions"`
	Settings    *models.SurveySettings `json:"settings"`
}

type QuestionInput struct {
	ID       uuid.UUID `json:"id"`
	Type     string    `json:"type"`
	Text     string    `json:"text"`
	Required bool      `json:"required"`
	Options  []string  `json:"options"`
}

type UpdateRequest struct {
	Title       *string         `json:"title"`
	Description *string         `json:"description"`
	Questions   []QuestionInput `json:"questions"`
	Settings    *SettingsPatch  `json:"settings"`
	Status      *string         `json:"status"`
}

// SettingsPatch carries only the settings fields present in the update
// body; absent fields keep their stored value.
type SettingsPatch struct {
	AllowAnonymous *bool                   `json:"allowAnonymous"`
	MaxResponses   *int                    `json:"maxResponses"`
	ExpiresAt      *time.Time              `json:"expiresAt"`
	Channels       []string                `json:"channels"`
	Templates      models.ChannelTemplates `json:"templates"`
}

func (s *Service) List(ctx context.Context, tenantID uuid.UUID, params ListParams) ([]models.SurveyListItem, int, error) {
	if params.Status != "" && !validStatus(params.Status) {
		return nil, 0, apperr.Validation("unknown survey status: " + params.Status)
	}

	recs, total, err := s.store.Query(ctx, store.Query{
		GSI1PK:    tenantPK(tenantID),
		SKPrefix:  "SURVEY#",
		Status:    params.Status,
		Page:      params.Page,
		Limit:     params.Limit,
		SortBy:    params.SortBy,
		Ascending: params.Ascending,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("list surveys: %w", err)
	}

	items := make([]models.SurveyListItem, 0, len(recs))
	for _, rec := range recs {
		var sv models.Survey
		if err := json.Unmarshal(rec.Data, &sv); err != nil {
			return nil, 0, fmt.Errorf("decode survey %s: %w", rec.PK, err)
		}
		items = append(items, models.SurveyListItem{
			ID:          sv.ID,
			Title:       sv.Title,
			Description: sv.Description,
			Status:      sv.Status,
			CreatedAt:   sv.CreatedAt,
			UpdatedAt:   sv.UpdatedAt,
		})
	}
	return items, total, nil
}

func (s *Service) Get(ctx context.Context, tenantID, surveyID uuid.UUID) (*models.Survey, error) {
	rec, err := s.store.Get(ctx, surveyPK(surveyID), "METADATA")
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("SURVEY_NOT_FOUND", "Survey not found")
		}
		return nil, fmt.Errorf("get survey: %w", err)
	}
	var sv models.Survey
	if err := json.Unmarshal(rec.Data, &sv); err != nil {
		return nil, fmt.Errorf("decode survey: %w", err)
	}
	if sv.TenantID != tenantID {
		return nil, apperr.NotFound("SURVEY_NOT_FOUND", "Survey not found")
	}
	return &sv, nil
}

func (s *Service) Create(ctx context.Context, tenantID, createdBy uuid.UUID, req CreateRequest) (*models.Survey, error) {
	if err := validateCreate(req); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	sv := models.Survey{
		ID:          uuid.New(),
		TenantID:    tenantID,
		Title:       req.Title,
		Description: req.Description,
		Questions:   buildQuestions(req.Questions),
		Settings:    defaultSettings(req.Settings, req.Title),
		Status:      models.SurveyStatusDraft,
		CreatedBy:   createdBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.put(ctx, &sv); err != nil {
		return nil, fmt.Errorf("create survey: %w", err)
	}
	return &sv, nil
}

func (s *Service) Update(ctx context.Context, tenantID, surveyID uuid.UUID, req UpdateRequest) (*models.Survey, error) {
	sv, err := s.Get(ctx, tenantID, surveyID)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		sv.Title = *req.Title
	}
	if req.Description != nil {
		sv.Description = *req.Description
	}
	if req.Questions != nil {
		if err := validateQuestions(req.Questions); err != nil {
			return nil, err
		}
		sv.Questions = buildQuestions(req.Questions)
	}
	if req.Settings != nil {
		for _, ch := range req.Settings.Channels {
			if !validChannel(ch) {
				return nil, apperr.Validation("unknown channel: " + ch)
			}
		}
		sv.Settings = mergeSettings(sv.Settings, *req.Settings)
	}
	if req.Status != nil {
		if !validStatus(*req.Status) {
			return nil, apperr.Validation("unknown survey status: " + *req.Status)
		}
		sv.Status = *req.Status
	}
	sv.UpdatedAt = time.Now().UTC()

	if err := s.put(ctx, sv); err != nil {
		return nil, fmt.Errorf("update survey: %w", err)
	}
	return sv, nil
}

func (s *Service) Delete(ctx context.Context, tenantID, surveyID uuid.UUID) error {
	if _, err := s.Get(ctx, tenantID, surveyID); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, surveyPK(surveyID), "METADATA"); err != nil {
		return fmt.Errorf("delete survey: %w", err)
	}
	return nil
}

func (s *Service) put(ctx context.Context, sv *models.Survey) error {
	data, err := json.Marshal(sv)
	if err != nil {
		return fmt.Errorf("encode survey: %w", err)
	}
	return s.store.Put(ctx, store.Record{
		PK:        surveyPK(sv.ID),
		SK:        "METADATA",
		GSI1PK:    tenantPK(sv.TenantID),
		GSI1SK:    surveyPK(sv.ID),
		Entity:    "SURVEY",
		TenantID:  sv.TenantID.String(),
		Data:      data,
		CreatedAt: sv.CreatedAt,
		UpdatedAt: sv.UpdatedAt,
	})
}

// buildQuestions assigns fresh ids only where the input carries none, so
// an update keeps the ids of questions that survived the edit.
func buildQuestions(inputs []QuestionInput) []models.Question {
	questions := make([]models.Question, 0, len(inputs))
	for _, in := range inputs {
		id := in.ID
		if id == uuid.Nil {
			id = uuid.New()
		}
		questions = append(questions, models.Question{
			ID:       id,
			Type:     in.Type,
			Text:     in.Text,
			Required: in.Required,
			Options:  in.Options,
		})
	}
	return questions
}

// defaultSettings fills the gaps a create request leaves open: anonymous
// responses are allowed, email is the delivery channel, and a stock email
// template is generated unless one was provided.
func defaultSettings(in *models.SurveySettings, title string) models.SurveySettings {
	settings := models.SurveySettings{AllowAnonymous: true}
	if in != nil {
		settings = *in
	}
	if len(settings.Channels) == 0 {
		settings.Channels = []string{models.ChannelEmail}
	}
	if settings.Templates.Email == nil {
		settings.Templates.Email = &models.EmailTemplate{
			Subject:   "Pesquisa NPS: " + title,
			Body:      "Olá! Gostaríamos de saber sua opinião sobre nossos serviços.",
			FromName:  "Equipe NPS",
			FromEmail: "noreply@nps-saas.com",
		}
	}
	return settings
}

// mergeSettings applies a settings update field by field; fields absent
// from the patch keep their stored value.
func mergeSettings(current models.SurveySettings, patch SettingsPatch) models.SurveySettings {
	if patch.AllowAnonymous != nil {
		current.AllowAnonymous = *patch.AllowAnonymous
	}
	if patch.MaxResponses != nil {
		current.MaxResponses = patch.MaxResponses
	}
	if patch.ExpiresAt != nil {
		current.ExpiresAt = patch.ExpiresAt
	}
	if len(patch.Channels) > 0 {
		current.Channels = patch.Channels
	}
	if patch.Templates.Email != nil {
		current.Templates.Email = patch.Templates.Email
	}
	if patch.Templates.WhatsApp != nil {
		current.Templates.WhatsApp = patch.Templates.WhatsApp
	}
	return current
}
