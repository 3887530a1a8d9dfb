package response

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/npspulse/backend/internal/apperr"
	"github.com/npspulse/backend/internal/models"
	"github.com/npspulse/backend/internal/store"
	"github.com/npspulse/backend/internal/survey"
)

// Service ingests and reads survey responses. Responses are immutable;
// there is no update or delete path.
type Service struct {
	store   store.Store
	surveys *survey.Service
}

func NewService(st store.Store, surveys *survey.Service) *Service {
	return &Service{store: st, surveys: surveys}
}

func responsePK(id uuid.UUID) string  { return "RESPONSE#" + id.String() }
func surveyGSIPK(id uuid.UUID) string { return "SURVEY#" + id.String() }

type ProcessInput struct {
	SurveyID uuid.UUID               `json:"surveyId"`
	SendID   *uuid.UUID              `json:"sendId,omitempty"`
	Answers  []AnswerInput           `json:"answers"`
	Metadata models.ResponseMetadata `json:"metadata"`
}

type AnswerInput struct {
	QuestionID uuid.UUID `json:"questionId"`
	Value      string    `json:"value"`
	Text       string    `json:"text,omitempty"`
}

// Process classifies and persists an incoming submission. This is the
// public ingestion path: the tenant is taken from the survey, not from an
// authenticated caller.
func (s *Service) Process(ctx context.Context, input ProcessInput) (*models.Response, error) {
	if len(input.Answers) == 0 {
		return nil, apperr.Validation("at least one answer is required")
	}

	sv, err := s.loadSurvey(ctx, input.SurveyID)
	if err != nil {
		return nil, err
	}

	answers := make([]models.Answer, 0, len(input.Answers))
	var score *int
	var category *string
	for _, in := range input.Answers {
		// A question deleted after the send went out still gets its
		// answer recorded, typed as free text.
		qType := models.QuestionTypeText
		if q := sv.QuestionByID(in.QuestionID); q != nil {
			qType = q.Type
		}
		answers = append(answers, models.Answer{
			QuestionID: in.QuestionID,
			Type:       qType,
			Value:      in.Value,
			Text:       in.Text,
		})

		if qType == models.QuestionTypeNPS && score == nil {
			n, err := strconv.Atoi(in.Value)
			if err != nil {
				return nil, apperr.Validation("NPS answer must be an integer score")
			}
			if n < 0 || n > 10 {
				return nil, apperr.Validation("NPS score must be between 0 and 10")
			}
			cat := models.ClassifyNPS(n)
			score, category = &n, &cat
		}
	}

	metadata := input.Metadata
	if metadata.Channel == "" {
		metadata.Channel = "web"
	}

	now := time.Now().UTC()
	resp := models.Response{
		ID:           uuid.New(),
		TenantID:     sv.TenantID,
		SurveyID:     sv.ID,
		RespondentID: uuid.New(),
		Answers:      answers,
		Score:        score,
		Category:     category,
		CompletedAt:  now,
		Metadata:     metadata,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	data, err := json.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("encode response: %w", err)
	}
	err = s.store.Put(ctx, store.Record{
		PK:       responsePK(resp.ID),
		SK:       "METADATA",
		GSI1PK:   surveyGSIPK(sv.ID),
		GSI1SK:   responsePK(resp.ID),
		Entity:   "RESPONSE",
		TenantID: sv.TenantID.String(),
		Data:     data,
	})
	if err != nil {
		return nil, fmt.Errorf("store response: %w", err)
	}

	slog.Info("response processed",
		"response_id", resp.ID,
		"survey_id", sv.ID,
		"tenant_id", sv.TenantID,
		"category", derefOr(category, "NONE"))
	return &resp, nil
}

type ListParams struct {
	DateFrom *time.Time
	DateTo   *time.Time
	Page     int
	Limit    int
}

// ListBySurvey returns a page of responses for a tenant-owned survey.
func (s *Service) ListBySurvey(ctx context.Context, tenantID, surveyID uuid.UUID, params ListParams) ([]models.Response, int, error) {
	if _, err := s.surveys.Get(ctx, tenantID, surveyID); err != nil {
		return nil, 0, err
	}

	recs, total, err := s.store.Query(ctx, store.Query{
		GSI1PK:      surveyGSIPK(surveyID),
		SKPrefix:    "RESPONSE#",
		CreatedFrom: params.DateFrom,
		CreatedTo:   params.DateTo,
		Page:        params.Page,
		Limit:       params.Limit,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("list responses: %w", err)
	}

	responses := make([]models.Response, 0, len(recs))
	for _, rec := range recs {
		var resp models.Response
		if err := json.Unmarshal(rec.Data, &resp); err != nil {
			return nil, 0, fmt.Errorf("decode response %s: %w", rec.PK, err)
		}
		responses = append(responses, resp)
	}
	return responses, total, nil
}

// Summary aggregates a survey's NPS figures. Score is promoter% minus
// detractor%, over responses that carried an NPS answer.
type Summary struct {
	SurveyID       uuid.UUID `json:"surveyId"`
	TotalResponses int       `json:"totalResponses"`
	Promoters      int       `json:"promoters"`
	Passives       int       `json:"passives"`
	Detractors     int       `json:"detractors"`
	NPSScore       *float64  `json:"npsScore,omitempty"`
}

func (s *Service) Summarize(ctx context.Context, tenantID, surveyID uuid.UUID) (*Summary, error) {
	if _, err := s.surveys.Get(ctx, tenantID, surveyID); err != nil {
		return nil, err
	}

	recs, _, err := s.store.Query(ctx, store.Query{
		GSI1PK:   surveyGSIPK(surveyID),
		SKPrefix: "RESPONSE#",
	})
	if err != nil {
		return nil, fmt.Errorf("load responses: %w", err)
	}

	summary := Summary{SurveyID: surveyID, TotalResponses: len(recs)}
	for _, rec := range recs {
		var resp models.Response
		if err := json.Unmarshal(rec.Data, &resp); err != nil {
			return nil, fmt.Errorf("decode response %s: %w", rec.PK, err)
		}
		if resp.Category == nil {
			continue
		}
		switch *resp.Category {
		case models.CategoryPromoter:
			summary.Promoters++
		case models.CategoryPassive:
			summary.Passives++
		case models.CategoryDetractor:
			summary.Detractors++
		}
	}

	scored := summary.Promoters + summary.Passives + summary.Detractors
	if scored > 0 {
		nps := (float64(summary.Promoters) - float64(summary.Detractors)) / float64(scored) * 100
		summary.NPSScore = &nps
	}
	return &summary, nil
}

func (s *Service) loadSurvey(ctx context.Context, surveyID uuid.UUID) (*models.Survey, error) {
	rec, err := s.store.Get(ctx, "SURVEY#"+surveyID.String(), "METADATA")
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
	return &sv, nil
}

func derefOr(s *string, fallback string) string {
	if s != nil {
		return *s
	}
	return fallback
}
