package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
)

// TokenValidator defines the interface for validating bearer tokens.
type TokenValidator interface {
	ValidateToken(tokenString string) (*TokenClaims, error)
}

// TokenClaims represents the claims we expect from the token validator.
type TokenClaims struct {
	AccountID string
	Username  string
	Role      string
}

type contextKeyAccountID struct{}
type contextKeyUsername struct{}

var (
	ContextKeyAccountID = contextKeyAccountID{}
	ContextKeyUsername  = contextKeyUsername{}
)

// GetAccountID retrieves the authenticated account ID from the context.
func GetAccountID(ctx context.Context) string {
	id, ok := ctx.Value(ContextKeyAccountID).(string)
	if !ok {
		return ""
	}
	return id
}

// GetUsername retrieves the authenticated username from the context.
func GetUsername(ctx context.Context) string {
	name, ok := ctx.Value(ContextKeyUsername).(string)
	if !ok {
		return ""
	}
	return name
}

// RequireAuth enforces a valid bearer token and stores the account identity
// in the request context.
func RequireAuth(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			authHeader := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", GetRequestID(ctx),
				)
				writeUnauthorized(w, "Missing or invalid Authorization header")
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", GetRequestID(ctx),
				)
				writeUnauthorized(w, "Invalid or expired token")
				return
			}

			ctx = context.WithValue(ctx, ContextKeyAccountID, claims.AccountID)
			ctx = context.WithValue(ctx, ContextKeyUsername, claims.Username)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"` + description + `"}`))
}
