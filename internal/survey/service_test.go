package survey

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/npspulse/backend/internal/apperr"
	"github.com/npspulse/backend/internal/models"
	"github.com/npspulse/backend/internal/store"
)

func newTestService() *Service {
	return NewService(store.NewMemory())
}

func minimalCreate() CreateRequest {
	return CreateRequest{
		Title: "Atendimento",
		Questions: []QuestionInput{
			{Type: models.QuestionTypeNPS, Text: "De 0 a 10, quanto você nos recomendaria?", Required: true},
		},
	}
}

func TestCreateDefaults(t *testing.T) {
	svc := newTestService()
	tenantID, userID := uuid.New(), uuid.New()

	sv, err := svc.Create(context.Background(), tenantID, userID, minimalCreate())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if sv.Status != models.SurveyStatusDraft {
		t.Errorf("status = %q, want DRAFT", sv.Status)
	}
	if !sv.Settings.AllowAnonymous {
		t.Error("AllowAnonymous should default to true")
	}
	if len(sv.Settings.Channels) != 1 || sv.Settings.Channels[0] != models.ChannelEmail {
		t.Errorf("channels = %v, want [email]", sv.Settings.Channels)
	}
	tmpl := sv.Settings.Templates.Email
	if tmpl == nil {
		t.Fatal("default email template not generated")
	}
	if tmpl.Subject != "Pesquisa NPS: Atendimento" {
		t.Errorf("template subject = %q", tmpl.Subject)
	}
	if sv.Questions[0].ID == uuid.Nil {
		t.Error("question id not assigned")
	}
	if sv.CreatedBy != userID {
		t.Errorf("createdBy = %s, want %s", sv.CreatedBy, userID)
	}
}

func TestCreateValidation(t *testing.T) {
	svc := newTestService()
	tenantID, userID := uuid.New(), uuid.New()

	cases := []struct {
		name string
		req  CreateRequest
	}{
		{"no title", CreateRequest{Questions: minimalCreate().Questions}},
		{"no questions", CreateRequest{Title: "x"}},
		{"unknown type", CreateRequest{Title: "x", Questions: []QuestionInput{{Type: "SLIDER", Text: "q"}}}},
		{"choice without options", CreateRequest{Title: "x", Questions: []QuestionInput{{Type: models.QuestionTypeChoice, Text: "q"}}}},
		{"unknown channel", CreateRequest{
			Title:     "x",
			Questions: minimalCreate().Questions,
			Settings:  &models.SurveySettings{Channels: []string{"pigeon"}},
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tenantID, userID, tc.req)
			var appErr *apperr.Error
			if !errors.As(err, &appErr) || appErr.Code != "VALIDATION_ERROR" {
				t.Fatalf("err = %v, want VALIDATION_ERROR", err)
			}
		})
	}
}

func TestGetTenantMismatch(t *testing.T) {
	svc := newTestService()
	owner := uuid.New()

	sv, err := svc.Create(context.Background(), owner, uuid.New(), minimalCreate())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	_, err = svc.Get(context.Background(), uuid.New(), sv.ID)
	var appErr *apperr.Error
	if !errors.As(err, &appErr) || appErr.Code != "SURVEY_NOT_FOUND" || appErr.Status != 404 {
		t.Fatalf("cross-tenant get: err = %v, want 404 SURVEY_NOT_FOUND", err)
	}

	got, err := svc.Get(context.Background(), owner, sv.ID)
	if err != nil {
		t.Fatalf("owner get: %v", err)
	}
	if got.ID != sv.ID {
		t.Errorf("got survey %s, want %s", got.ID, sv.ID)
	}
}

func TestUpdatePreservesQuestionIDs(t *testing.T) {
	svc := newTestService()
	tenantID := uuid.New()

	sv, err := svc.Create(context.Background(), tenantID, uuid.New(), minimalCreate())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	keptID := sv.Questions[0].ID

	updated, err := svc.Update(context.Background(), tenantID, sv.ID, UpdateRequest{
		Questions: []QuestionInput{
			{ID: keptID, Type: models.QuestionTypeNPS, Text: "rewritten"},
			{Type: models.QuestionTypeText, Text: "anything else?"},
		},
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Questions[0].ID != keptID {
		t.Error("existing question id was reassigned")
	}
	if updated.Questions[1].ID == uuid.Nil {
		t.Error("new question did not get an id")
	}
	if !updated.UpdatedAt.After(sv.UpdatedAt) && !updated.UpdatedAt.Equal(sv.UpdatedAt) {
		t.Error("updatedAt not refreshed")
	}
}

func TestUpdateSettingsMergeKeepsTemplates(t *testing.T) {
	svc := newTestService()
	tenantID := uuid.New()

	sv, err := svc.Create(context.Background(), tenantID, uuid.New(), minimalCreate())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	updated, err := svc.Update(context.Background(), tenantID, sv.ID, UpdateRequest{
		Settings: &SettingsPatch{
			Channels: []string{models.ChannelEmail, models.ChannelWhatsApp},
		},
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Settings.Templates.Email == nil {
		t.Error("settings merge dropped the email template")
	}
	if len(updated.Settings.Channels) != 2 {
		t.Errorf("channels = %v", updated.Settings.Channels)
	}
}

func TestUpdateSettingsOmittedFieldsKeepStoredValues(t *testing.T) {
	svc := newTestService()
	tenantID := uuid.New()

	sv, err := svc.Create(context.Background(), tenantID, uuid.New(), minimalCreate())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !sv.Settings.AllowAnonymous {
		t.Fatal("precondition: AllowAnonymous defaults to true")
	}

	updated, err := svc.Update(context.Background(), tenantID, sv.ID, UpdateRequest{
		Settings: &SettingsPatch{
			Channels: []string{models.ChannelWhatsApp},
		},
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if !updated.Settings.AllowAnonymous {
		t.Error("channels-only patch flipped allowAnonymous to false")
	}

	off := false
	updated, err = svc.Update(context.Background(), tenantID, sv.ID, UpdateRequest{
		Settings: &SettingsPatch{AllowAnonymous: &off},
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Settings.AllowAnonymous {
		t.Error("explicit allowAnonymous=false not applied")
	}
	if len(updated.Settings.Channels) != 1 || updated.Settings.Channels[0] != models.ChannelWhatsApp {
		t.Errorf("channels = %v, want previous patch kept", updated.Settings.Channels)
	}
}

func TestListFilterAndPaginate(t *testing.T) {
	svc := newTestService()
	tenantID := uuid.New()
	ctx := context.Background()

	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		sv, err := svc.Create(ctx, tenantID, uuid.New(), minimalCreate())
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		ids = append(ids, sv.ID)
	}
	active := models.SurveyStatusActive
	if _, err := svc.Update(ctx, tenantID, ids[0], UpdateRequest{Status: &active}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	items, total, err := svc.List(ctx, tenantID, ListParams{Status: models.SurveyStatusActive})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 1 || len(items) != 1 || items[0].ID != ids[0] {
		t.Fatalf("filtered list = %d items (total %d)", len(items), total)
	}

	items, total, err = svc.List(ctx, tenantID, ListParams{Page: 2, Limit: 2})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 3 || len(items) != 1 {
		t.Fatalf("page 2 = %d items, total %d; want 1 item, total 3", len(items), total)
	}

	_, _, err = svc.List(ctx, tenantID, ListParams{Status: "BOGUS"})
	var appErr *apperr.Error
	if !errors.As(err, &appErr) || appErr.Code != "VALIDATION_ERROR" {
		t.Fatalf("bogus status: err = %v, want VALIDATION_ERROR", err)
	}
}
