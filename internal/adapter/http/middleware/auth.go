package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/iho/walletledger/internal/infrastructure/auth"
	"github.com/iho/walletledger/internal/infrastructure/logger"
)

// OwnerIDHeader carries the caller identity when token authentication is disabled.
const OwnerIDHeader = "X-Owner-ID"

type contextKey string

const ownerContextKey contextKey = "owner_id"

// TokenVerifier verifies bearer tokens.
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// AuthRecorder counts rejected credentials. May be nil.
type AuthRecorder interface {
	ObserveAuthFailure(reason string)
}

// Auth requires a valid bearer token and stores its subject as the caller's owner id.
func Auth(verifier TokenVerifier, recorder AuthRecorder) func(http.Handler) http.Handler {
	fail := func(w http.ResponseWriter, reason, message string) {
		if recorder != nil {
			recorder.ObserveAuthFailure(reason)
		}
		reject(w, http.StatusUnauthorized, message, "Unauthorized")
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				fail(w, "missing", "missing authorization header")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				fail(w, "malformed", "invalid authorization header format")
				return
			}

			claims, err := verifier.Verify(parts[1])
			if err != nil {
				if errors.Is(err, auth.ErrExpiredToken) {
					fail(w, "expired", "token has expired")
					return
				}
				fail(w, "invalid", "invalid token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithOwner(r.Context(), claims.OwnerID())))
		})
	}
}

// HeaderIdentity trusts the X-Owner-ID header. Only for deployments with authentication disabled.
func HeaderIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		owner := strings.TrimSpace(r.Header.Get(OwnerIDHeader))
		if owner == "" {
			reject(w, http.StatusUnauthorized, "missing "+OwnerIDHeader+" header", "Unauthorized")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithOwner(r.Context(), owner)))
	})
}

// WithOwner returns ctx carrying ownerID, also attached to the request logger.
func WithOwner(ctx context.Context, ownerID string) context.Context {
	ctx = context.WithValue(ctx, ownerContextKey, ownerID)
	return logger.WithField(ctx, "owner_id", ownerID)
}

// OwnerFromContext extracts the authenticated owner id.
func OwnerFromContext(ctx context.Context) (string, bool) {
	owner, ok := ctx.Value(ownerContextKey).(string)
	return owner, ok && owner != ""
}
