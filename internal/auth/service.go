package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/npspulse/backend/internal/apperr"
	"github.com/npspulse/backend/internal/config"
	"github.com/npspulse/backend/internal/models"
	"github.com/npspulse/backend/internal/store"
	"github.com/npspulse/backend/internal/tenant"
)

// TokenCache holds revoked refresh tokens until they expire.
type TokenCache interface {
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Exists(ctx context.Context, key string) (bool, error)
}

type Service struct {
	tenants    *tenant.Service
	tokens     TokenCache
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewService(ts *tenant.Service, tokens TokenCache, cfg config.AuthConfig) *Service {
	return &Service{
		tenants:    ts,
		tokens:     tokens,
		secret:     []byte(cfg.JWTSecret),
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
	}
}

type SignupRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	Name       string `json:"name"`
	TenantName string `json:"tenantName,omitempty"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthTokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn"`
}

type AuthResult struct {
	User   models.User `json:"user"`
	Tokens AuthTokens  `json:"tokens"`
}

func (s *Service) Signup(ctx context.Context, req SignupRequest) (*AuthResult, error) {
	if err := validateSignup(req); err != nil {
		return nil, err
	}

	tenantName := req.TenantName
	if tenantName == "" {
		tenantName = req.Name
	}
	t, err := s.tenants.Create(ctx, tenantName)
	if err != nil {
		return nil, fmt.Errorf("create tenant: %w", err)
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	user := &models.User{
		ID:           uuid.New(),
		TenantID:     t.ID,
		Email:        strings.ToLower(req.Email),
		Name:         req.Name,
		Role:         models.RoleAdmin,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.tenants.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, apperr.Conflict("USER_EXISTS", "User already exists")
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	tokens, err := s.generateTokens(user)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: user.Public(), Tokens: *tokens}, nil
}

func (s *Service) Login(ctx context.Context, req LoginRequest) (*AuthResult, error) {
	user, err := s.tenants.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.Unauthorized("INVALID_CREDENTIALS", "Invalid credentials")
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if !CheckPassword(req.Password, user.PasswordHash) {
		return nil, apperr.Unauthorized("INVALID_CREDENTIALS", "Invalid credentials")
	}

	tokens, err := s.generateTokens(user)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: user.Public(), Tokens: *tokens}, nil
}

func (s *Service) Refresh(ctx context.Context, refreshToken string) (*AuthTokens, error) {
	claims, err := s.parseRefresh(ctx, refreshToken)
	if err != nil {
		return nil, err
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, apperr.Unauthorized("INVALID_TOKEN", "Invalid refresh token")
	}
	user, err := s.tenants.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("USER_NOT_FOUND", "User not found")
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	return s.generateTokens(user)
}

// Logout denylists the refresh token until its natural expiry; access
// tokens stay valid until they expire on their own.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	claims, err := s.parseRefresh(ctx, refreshToken)
	if err != nil {
		return err
	}
	ttl := s.refreshTTL
	if claims.ExpiresAt != nil {
		ttl = time.Until(claims.ExpiresAt.Time)
	}
	if ttl <= 0 {
		return nil
	}
	if err := s.tokens.Set(ctx, denylistKey(claims.ID), "1", ttl); err != nil {
		return fmt.Errorf("denylist refresh token: %w", err)
	}
	return nil
}

type refreshClaims struct {
	Type string `json:"type"`
	jwt.RegisteredClaims
}

func (s *Service) parseRefresh(ctx context.Context, tokenStr string) (*refreshClaims, error) {
	claims := &refreshClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, apperr.Unauthorized("INVALID_TOKEN", "Invalid refresh token")
	}
	if claims.Type != "refresh" {
		return nil, apperr.Unauthorized("INVALID_TOKEN", "Invalid token type")
	}
	revoked, err := s.tokens.Exists(ctx, denylistKey(claims.ID))
	if err != nil {
		return nil, fmt.Errorf("check token denylist: %w", err)
	}
	if revoked {
		return nil, apperr.Unauthorized("INVALID_TOKEN", "Refresh token revoked")
	}
	return claims, nil
}

func (s *Service) generateTokens(user *models.User) (*AuthTokens, error) {
	now := time.Now().UTC()

	access := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		Sub:      user.ID.String(),
		Email:    user.Email,
		TenantID: user.TenantID.String(),
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
		},
	})
	accessStr, err := access.SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	refresh := jwt.NewWithClaims(jwt.SigningMethodHS256, &refreshClaims{
		Type: "refresh",
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.refreshTTL)),
		},
	})
	refreshStr, err := refresh.SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}

	return &AuthTokens{
		AccessToken:  accessStr,
		RefreshToken: refreshStr,
		ExpiresIn:    int64(s.accessTTL.Seconds()),
	}, nil
}

func denylistKey(jti string) string {
	return "auth:denylist:" + jti
}

func validateSignup(req SignupRequest) error {
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		return apperr.Validation("a valid email is required")
	}
	if len(req.Password) < 8 {
		return apperr.Validation("password must be at least 8 characters")
	}
	if req.Name == "" {
		return apperr.Validation("name is required")
	}
	return nil
}
