package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/Varun5711/tokenqueue/internal/logger"
	"github.com/Varun5711/tokenqueue/internal/service"
)

type contextKey string

const (
	UserIDKey  contextKey = "user_id"
	TokenIDKey contextKey = "token_id"
)

type TokenValidator interface {
	Handle(ctx context.Context, accessToken string) (*service.TokenValidation, error)
}

type AuthMiddleware struct {
	tokens TokenValidator
	log    *logger.Logger
}

func NewAuthMiddleware(tokens TokenValidator, log *logger.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		tokens: tokens,
		log:    log,
	}
}

// RequireAuth admits requests carrying a valid bearer token and stores the
// token's user id in the request context.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r.Header.Get("Authorization"))
		if token == "" {
			http.Error(w, "Authorization header required", http.StatusUnauthorized)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		result, err := m.tokens.Handle(ctx, token)
		if err != nil {
			m.log.Error("Failed to validate token: %v", err)
			http.Error(w, "Service unavailable", http.StatusServiceUnavailable)
			return
		}
		if result == nil || !result.IsValid {
			http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
			return
		}

		ctx = context.WithValue(r.Context(), UserIDKey, result.UserID)
		ctx = context.WithValue(ctx, TokenIDKey, result.TokenID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}

func GetUserID(ctx context.Context) string {
	if userID, ok := ctx.Value(UserIDKey).(string); ok {
		return userID
	}
	return ""
}

// GetTokenID returns the id of the bearer token that authenticated the
// request.
func GetTokenID(ctx context.Context) string {
	if tokenID, ok := ctx.Value(TokenIDKey).(string); ok {
		return tokenID
	}
	return ""
}
