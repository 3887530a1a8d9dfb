package tenant

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/npspulse/backend/internal/models"
	"github.com/npspulse/backend/internal/store"
)

func newUser(tenantID uuid.UUID, email string) *models.User {
	now := time.Now().UTC()
	return &models.User{
		ID:        uuid.New(),
		TenantID:  tenantID,
		Email:     email,
		Name:      "Ana",
		Role:      models.RoleAdmin,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestCreateAndGetTenant(t *testing.T) {
	svc := NewService(store.NewMemory())

	created, err := svc.Create(context.Background(), "Acme")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	got, err := svc.GetByID(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Name != "Acme" || got.Settings.Timezone != "UTC" || got.Settings.Language != "pt-BR" {
		t.Errorf("tenant = %+v", got)
	}
}

func TestUpdateSettingsShallowMerge(t *testing.T) {
	svc := NewService(store.NewMemory())
	created, err := svc.Create(context.Background(), "Acme")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	tz := "America/Sao_Paulo"
	updated, err := svc.UpdateSettings(context.Background(), created.ID, SettingsPatch{Timezone: &tz})
	if err != nil {
		t.Fatalf("UpdateSettings: %v", err)
	}
	if updated.Settings.Timezone != tz {
		t.Errorf("timezone = %q", updated.Settings.Timezone)
	}
	if updated.Settings.Language != "pt-BR" {
		t.Errorf("untouched language changed to %q", updated.Settings.Language)
	}

	integrations := models.IntegrationSettings{
		Zendesk: models.ZendeskIntegration{Enabled: true, Subdomain: "acme"},
	}
	updated, err = svc.UpdateSettings(context.Background(), created.ID, SettingsPatch{Integrations: &integrations})
	if err != nil {
		t.Fatalf("UpdateSettings: %v", err)
	}
	if updated.Settings.Timezone != tz {
		t.Error("previous timezone patch lost")
	}
	if !updated.Settings.Integrations.Zendesk.Enabled {
		t.Errorf("integrations = %+v", updated.Settings.Integrations)
	}
}

func TestCreateUserEmailUniqueness(t *testing.T) {
	svc := NewService(store.NewMemory())
	tenantID := uuid.New()

	if err := svc.CreateUser(context.Background(), newUser(tenantID, "ana@example.com")); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	err := svc.CreateUser(context.Background(), newUser(tenantID, "ANA@example.com"))
	if !errors.Is(err, store.ErrConflict) {
		t.Fatalf("duplicate email: err = %v, want ErrConflict", err)
	}

	got, err := svc.GetUserByEmail(context.Background(), "Ana@Example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail: %v", err)
	}
	if got.Email != "ana@example.com" {
		t.Errorf("user email = %q", got.Email)
	}
}
