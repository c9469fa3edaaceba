package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	h "eventregistration/internal/delivery/http/helpers"
	"eventregistration/internal/domain"
)

// UserIDHeader carries the caller identity when no token verifier is configured.
const UserIDHeader = "X-User-Id"

type contextKey string

const userIDKey contextKey = "userID"

// SetUserID returns a context with the caller's user ID set. Used by RequireCaller.
func SetUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserIDFromContext returns the caller's user ID from the context, if present.
func UserIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(userIDKey).(int64)
	return id, ok
}

// RequireCaller returns a wrapper that resolves the caller identity and stores it in
// the request context.
//
// With a verifier, the caller is the subject of a Bearer token and a missing or
// invalid token is answered with 401. Without one, the caller is read from the
// X-User-Id header and a missing or malformed header is answered with 400.
func RequireCaller(verifier domain.TokenVerifier, logger *slog.Logger) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			var userID int64
			if verifier != nil {
				id, ok := bearerCaller(w, r, verifier, logger)
				if !ok {
					return
				}
				userID = id
			} else {
				raw := strings.TrimSpace(r.Header.Get(UserIDHeader))
				if raw == "" {
					h.WriteJSONError(w, http.StatusBadRequest, h.ErrCodeBadRequest, "missing "+UserIDHeader+" header")
					return
				}
				id, err := strconv.ParseInt(raw, 10, 64)
				if err != nil || id <= 0 {
					h.WriteJSONError(w, http.StatusBadRequest, h.ErrCodeBadRequest, "invalid "+UserIDHeader+" header")
					return
				}
				userID = id
			}
			next(w, r.WithContext(SetUserID(r.Context(), userID)))
		}
	}
}

func bearerCaller(w http.ResponseWriter, r *http.Request, verifier domain.TokenVerifier, logger *slog.Logger) (int64, bool) {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, "missing authorization header")
		return 0, false
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(auth, prefix) {
		h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, "invalid authorization format")
		return 0, false
	}
	token := strings.TrimSpace(auth[len(prefix):])
	if token == "" {
		h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, "missing token")
		return 0, false
	}
	userID, err := verifier.Verify(token)
	if err != nil {
		logger.DebugContext(r.Context(), "token rejected", "path", r.URL.Path, "err", err)
		h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, "invalid or expired token")
		return 0, false
	}
	return userID, true
}
