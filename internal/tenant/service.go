package tenant

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/npspulse/backend/internal/models"
	"github.com/npspulse/backend/internal/store"
)

// Service reads and writes Tenant and User entities. Tenants are never
// hard-deleted; settings updates are shallow merges.
type Service struct {
	store store.Store
}

func NewService(st store.Store) *Service {
	return &Service{store: st}
}

func tenantPK(id uuid.UUID) string { return "TENANT#" + id.String() }
func userPK(id uuid.UUID) string   { return "USER#" + id.String() }

func userEmailPK(email string) string {
	return "USEREMAIL#" + strings.ToLower(email)
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	rec, err := s.store.Get(ctx, tenantPK(id), "METADATA")
	if err != nil {
		return nil, fmt.Errorf("get tenant: %w", err)
	}
	var t models.Tenant
	if err := json.Unmarshal(rec.Data, &t); err != nil {
		return nil, fmt.Errorf("decode tenant: %w", err)
	}
	t.CreatedAt, t.UpdatedAt = rec.CreatedAt, rec.UpdatedAt
	return &t, nil
}

func (s *Service) Create(ctx context.Context, name string) (*models.Tenant, error) {
	now := time.Now().UTC()
	t := models.Tenant{
		ID:        uuid.New(),
		Name:      name,
		Settings:  models.DefaultTenantSettings(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	data, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("encode tenant: %w", err)
	}
	err = s.store.Put(ctx, store.Record{
		PK:       tenantPK(t.ID),
		SK:       "METADATA",
		GSI1PK:   tenantPK(t.ID),
		GSI1SK:   "METADATA",
		Entity:   "TENANT",
		TenantID: t.ID.String(),
		Data:     data,
	})
	if err != nil {
		return nil, fmt.Errorf("create tenant: %w", err)
	}
	return &t, nil
}

// SettingsPatch replaces any provided top-level settings field wholesale.
type SettingsPatch struct {
	Timezone     *string                     `json:"timezone"`
	Language     *string                     `json:"language"`
	Integrations *models.IntegrationSettings `json:"integrations"`
}

func (s *Service) UpdateSettings(ctx context.Context, id uuid.UUID, patch SettingsPatch) (*models.Tenant, error) {
	var t models.Tenant
	_, err := s.store.Update(ctx, tenantPK(id), "METADATA", func(rec *store.Record) error {
		if err := json.Unmarshal(rec.Data, &t); err != nil {
			return fmt.Errorf("decode tenant: %w", err)
		}
		if patch.Timezone != nil {
			t.Settings.Timezone = *patch.Timezone
		}
		if patch.Language != nil {
			t.Settings.Language = *patch.Language
		}
		if patch.Integrations != nil {
			t.Settings.Integrations = *patch.Integrations
		}
		t.UpdatedAt = time.Now().UTC()
		data, err := json.Marshal(t)
		if err != nil {
			return fmt.Errorf("encode tenant: %w", err)
		}
		rec.Data = data
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("update tenant settings: %w", err)
	}
	return &t, nil
}

func (s *Service) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	rec, err := s.store.Get(ctx, userPK(id), "METADATA")
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	var u models.User
	if err := json.Unmarshal(rec.Data, &u); err != nil {
		return nil, fmt.Errorf("decode user: %w", err)
	}
	return &u, nil
}

// GetUserByEmail resolves the email uniqueness pointer, then the user.
func (s *Service) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	rec, err := s.store.Get(ctx, userEmailPK(email), "METADATA")
	if err != nil {
		return nil, err
	}
	var ptr struct {
		UserID uuid.UUID `json:"userId"`
	}
	if err := json.Unmarshal(rec.Data, &ptr); err != nil {
		return nil, fmt.Errorf("decode user email pointer: %w", err)
	}
	return s.GetUserByID(ctx, ptr.UserID)
}

// CreateUser writes the user and its email uniqueness pointer. Returns
// store.ErrConflict when the email is already taken.
func (s *Service) CreateUser(ctx context.Context, u *models.User) error {
	ptr, err := json.Marshal(map[string]string{"userId": u.ID.String()})
	if err != nil {
		return fmt.Errorf("encode user email pointer: %w", err)
	}
	err = s.store.PutNew(ctx, store.Record{
		PK:       userEmailPK(u.Email),
		SK:       "METADATA",
		GSI1PK:   userEmailPK(u.Email),
		GSI1SK:   "METADATA",
		Entity:   "USER_EMAIL",
		TenantID: u.TenantID.String(),
		Data:     ptr,
	})
	if err != nil {
		return err
	}

	data, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	err = s.store.PutNew(ctx, store.Record{
		PK:       userPK(u.ID),
		SK:       "METADATA",
		GSI1PK:   tenantPK(u.TenantID),
		GSI1SK:   userPK(u.ID),
		Entity:   "USER",
		TenantID: u.TenantID.String(),
		Data:     data,
	})
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}
