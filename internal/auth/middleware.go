package auth

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/npspulse/backend/internal/tenant"
)

// Claims is the access token payload.
type Claims struct {
	Sub      string `json:"sub"`
	Email    string `json:"email"`
	TenantID string `json:"tenant_id"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// Middleware validates the bearer token and loads the user and tenant
// into the request context.
func (s *Service) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			writeAuthError(w, "UNAUTHORIZED", "Missing authorization header")
			return
		}
		tokenStr, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			writeAuthError(w, "UNAUTHORIZED", "Invalid authorization header")
			return
		}

		claims := &Claims{}
		token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return s.secret, nil
		})
		if err != nil || !token.Valid {
			writeAuthError(w, "UNAUTHORIZED", "Invalid or expired token")
			return
		}

		userID, err := uuid.Parse(claims.Sub)
		if err != nil {
			writeAuthError(w, "UNAUTHORIZED", "Invalid token subject")
			return
		}

		ctx := r.Context()
		user, err := s.tenants.GetUserByID(ctx, userID)
		if err != nil {
			writeAuthError(w, "UNAUTHORIZED", "User no longer exists")
			return
		}
		t, err := s.tenants.GetByID(ctx, user.TenantID)
		if err != nil {
			writeAuthError(w, "UNAUTHORIZED", "Tenant no longer exists")
			return
		}

		ctx = tenant.WithUser(ctx, user)
		ctx = tenant.WithTenant(ctx, t)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole gates a route to the given roles. Must run after Middleware.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := tenant.UserFromContext(r.Context())
			if user == nil {
				writeAuthError(w, "UNAUTHORIZED", "Authentication required")
				return
			}
			for _, role := range roles {
				if user.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"success": false,
				"error":   map[string]string{"code": "FORBIDDEN", "message": "Insufficient permissions"},
			})
		})
	}
}

func writeAuthError(w http.ResponseWriter, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"error":   map[string]string{"code": code, "message": message},
	})
}
