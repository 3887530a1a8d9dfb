package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/npspulse/backend/internal/apperr"
	"github.com/npspulse/backend/internal/config"
	"github.com/npspulse/backend/internal/models"
	"github.com/npspulse/backend/internal/store"
	"github.com/npspulse/backend/internal/tenant"
)

type fakeTokenCache struct {
	keys map[string]bool
}

func (f *fakeTokenCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if f.keys == nil {
		f.keys = map[string]bool{}
	}
	f.keys[key] = true
	return nil
}

func (f *fakeTokenCache) Exists(ctx context.Context, key string) (bool, error) {
	return f.keys[key], nil
}

func newTestService() *Service {
	return NewService(
		tenant.NewService(store.NewMemory()),
		&fakeTokenCache{},
		config.AuthConfig{
			JWTSecret:  "test-secret",
			AccessTTL:  time.Hour,
			RefreshTTL: 24 * time.Hour,
		},
	)
}

func signup(t *testing.T, svc *Service, email string) *AuthResult {
	t.Helper()
	result, err := svc.Signup(context.Background(), SignupRequest{
		Email:      email,
		Password:   "correct horse battery",
		Name:       "Ana",
		TenantName: "Acme",
	})
	if err != nil {
		t.Fatalf("Signup: %v", err)
	}
	return result
}

func TestSignup(t *testing.T) {
	svc := newTestService()
	result := signup(t, svc, "ana@example.com")

	if result.User.Role != models.RoleAdmin {
		t.Errorf("role = %q, want ADMIN", result.User.Role)
	}
	if result.User.PasswordHash != "" {
		t.Error("password hash leaked in API shape")
	}
	if result.Tokens.AccessToken == "" || result.Tokens.RefreshToken == "" {
		t.Error("tokens missing")
	}
	if result.Tokens.ExpiresIn != 3600 {
		t.Errorf("expiresIn = %d, want 3600", result.Tokens.ExpiresIn)
	}

	tnt, err := svc.tenants.GetByID(context.Background(), result.User.TenantID)
	if err != nil {
		t.Fatalf("tenant not created: %v", err)
	}
	if tnt.Name != "Acme" {
		t.Errorf("tenant name = %q", tnt.Name)
	}
	if tnt.Settings.Language != "pt-BR" || tnt.Settings.Timezone != "UTC" {
		t.Errorf("tenant defaults = %+v", tnt.Settings)
	}
}

func TestSignupDuplicateEmail(t *testing.T) {
	svc := newTestService()
	signup(t, svc, "ana@example.com")

	_, err := svc.Signup(context.Background(), SignupRequest{
		Email:    "Ana@Example.com", // email uniqueness is case-insensitive
		Password: "another password",
		Name:     "Other Ana",
	})
	var appErr *apperr.Error
	if !errors.As(err, &appErr) || appErr.Code != "USER_EXISTS" || appErr.Status != 409 {
		t.Fatalf("err = %v, want 409 USER_EXISTS", err)
	}
}

func TestLogin(t *testing.T) {
	svc := newTestService()
	signup(t, svc, "ana@example.com")

	result, err := svc.Login(context.Background(), LoginRequest{
		Email:    "ana@example.com",
		Password: "correct horse battery",
	})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if result.Tokens.AccessToken == "" {
		t.Error("no access token")
	}

	for _, req := range []LoginRequest{
		{Email: "ana@example.com", Password: "wrong"},
		{Email: "nobody@example.com", Password: "correct horse battery"},
	} {
		_, err := svc.Login(context.Background(), req)
		var appErr *apperr.Error
		if !errors.As(err, &appErr) || appErr.Code != "INVALID_CREDENTIALS" {
			t.Fatalf("login %q: err = %v, want INVALID_CREDENTIALS", req.Email, err)
		}
	}
}

func TestRefresh(t *testing.T) {
	svc := newTestService()
	result := signup(t, svc, "ana@example.com")

	tokens, err := svc.Refresh(context.Background(), result.Tokens.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if tokens.AccessToken == "" || tokens.RefreshToken == "" {
		t.Error("refresh did not mint a new pair")
	}

	// An access token must not pass as a refresh token.
	_, err = svc.Refresh(context.Background(), result.Tokens.AccessToken)
	var appErr *apperr.Error
	if !errors.As(err, &appErr) || appErr.Code != "INVALID_TOKEN" {
		t.Fatalf("refresh with access token: err = %v, want INVALID_TOKEN", err)
	}

	if _, err = svc.Refresh(context.Background(), "garbage"); err == nil {
		t.Fatal("garbage token accepted")
	}
}

func TestLogoutRevokesRefreshToken(t *testing.T) {
	svc := newTestService()
	result := signup(t, svc, "ana@example.com")

	if err := svc.Logout(context.Background(), result.Tokens.RefreshToken); err != nil {
		t.Fatalf("Logout: %v", err)
	}

	_, err := svc.Refresh(context.Background(), result.Tokens.RefreshToken)
	var appErr *apperr.Error
	if !errors.As(err, &appErr) || appErr.Code != "INVALID_TOKEN" {
		t.Fatalf("refresh after logout: err = %v, want INVALID_TOKEN", err)
	}
}

func TestSignupValidation(t *testing.T) {
	svc := newTestService()

	cases := []SignupRequest{
		{Email: "", Password: "long enough pw", Name: "x"},
		{Email: "not-an-email", Password: "long enough pw", Name: "x"},
		{Email: "a@b.c", Password: "short", Name: "x"},
		{Email: "a@b.c", Password: "long enough pw", Name: ""},
	}
	for _, req := range cases {
		_, err := svc.Signup(context.Background(), req)
		var appErr *apperr.Error
		if !errors.As(err, &appErr) || appErr.Code != "VALIDATION_ERROR" {
			t.Fatalf("signup %+v: err = %v, want VALIDATION_ERROR", req, err)
		}
	}
}
