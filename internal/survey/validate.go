package survey

import (
	"fmt"

	"github.com/npspulse/backend/internal/apperr"
	"github.com/npspulse/backend/internal/models"
)

func validStatus(status string) bool {
	switch status {
	case models.SurveyStatusDraft, models.SurveyStatusActive,
		models.SurveyStatusPaused, models.SurveyStatusArchived:
		return true
	}
	return false
}

func validQuestionType(t string) bool {
	switch t {
	case models.QuestionTypeNPS, models.QuestionTypeText,
		models.QuestionTypeRating, models.QuestionTypeChoice:
		return true
	}
	return false
}

func validChannel(c string) bool {
	return c == models.ChannelEmail || c == models.ChannelWhatsApp
}

func validateCreate(req CreateRequest) error {
	if req.Title == "" {
		return apperr.Validation("title is required")
	}
	if err := validateQuestions(req.Questions); err != nil {
		return err
	}
	if req.Settings != nil {
		for _, ch := range req.Settings.Channels {
			if !validChannel(ch) {
				return apperr.Validation("unknown channel: " + ch)
			}
		}
	}
	return nil
}

func validateQuestions(questions []QuestionInput) error {
	if len(questions) == 0 {
		return apperr.Validation("at least one question is required")
	}
	for i, q := range questions {
		if q.Text == "" {
			return apperr.Validation(fmt.Sprintf("question %d: text is required", i))
		}
		if !validQuestionType(q.Type) {
			return apperr.Validation(fmt.Sprintf("question %d: unknown type %q", i, q.Type))
		}
		if q.Type == models.QuestionTypeChoice && len(q.Options) == 0 {
			return apperr.Validation(fmt.Sprintf("question %d: choice questions need options", i))
		}
	}
	return nil
}
