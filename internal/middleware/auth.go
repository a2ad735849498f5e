package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"

	"github.com/habitguard/study-server/internal/audit"
	apperrors "github.com/habitguard/study-server/internal/errors"
)

type contextKey string

const UserIDContextKey contextKey = "user_id"

// GetUserID returns the authenticated user, or "" outside an authenticated route.
func GetUserID(ctx context.Context) string {
	if userID, ok := ctx.Value(UserIDContextKey).(string); ok {
		return userID
	}
	return ""
}

// WithUserID attaches an authenticated user to ctx.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserIDContextKey, userID)
}

// AuthMiddleware verifies HS256 bearer tokens issued by the account service.
type AuthMiddleware struct {
	secret []byte
}

func NewAuthMiddleware(secret string) *AuthMiddleware {
	return &AuthMiddleware{secret: []byte(secret)}
}

func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractToken(r)
		if token == "" {
			writeError(w, apperrors.Unauthorized("Missing authentication token"))
			return
		}

		userID, err := m.verify(token)
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				audit.RecordRequest(r, audit.Event{Type: audit.EventTokenExpired})
				writeError(w, apperrors.TokenExpired())
				return
			}
			log.Warn().Err(err).Msg("auth middleware: invalid token attempt")
			audit.RecordRequest(r, audit.Event{
				Type:   audit.EventAuthFailure,
				Fields: map[string]any{"reason": err.Error()},
			})
			writeError(w, apperrors.InvalidToken("Invalid token"))
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
	})
}

func (m *AuthMiddleware) verify(tokenStr string) (string, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", jwt.ErrTokenInvalidClaims
	}

	if userID, ok := claims["user_id"].(string); ok && userID != "" {
		return userID, nil
	}
	if sub, err := claims.GetSubject(); err == nil && sub != "" {
		return sub, nil
	}
	return "", jwt.ErrTokenInvalidClaims
}

// extractToken accepts a query parameter for EventSource clients, which
// cannot set headers.
func extractToken(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}

	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	}

	return ""
}
