package jwt

import (
	"context"
	"net/http"
	"strings"

	"chatsync/internal/pkg/errs"
	"chatsync/internal/pkg/logx"
	"chatsync/internal/pkg/resp"
)

// Context key type for storing the Claims struct, preventing key collisions with other packages.
type contextKey string

// ContextAuthClaimsKey is the key used to store the parsed Claims (user identity) in the request Context.
const ContextAuthClaimsKey contextKey = "auth_claims"

// TokenFromRequest extracts the raw bearer token from the Authorization header,
// falling back to the "token" query parameter. The fallback exists for the
// WebSocket upgrade, where browsers cannot set custom headers.
func TokenFromRequest(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && parts[0] == "Bearer" {
			return parts[1]
		}
		return ""
	}

	return r.URL.Query().Get("token")
}

// RequireAuth returns a middleware that rejects requests without a valid bearer
// token (HTTP 401, no retry). On success the parsed Claims are injected into
// the request Context.
func RequireAuth(secretKey string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := TokenFromRequest(r)
			if tokenString == "" {
				resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
				return
			}

			claims, err := ParseToken(tokenString, secretKey)
			if err != nil {
				logx.Warn("Rejected request with invalid or expired JWT", "error", err)
				resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
				return
			}

			ctx := context.WithValue(r.Context(), ContextAuthClaimsKey, claims)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetClaimsFromContext safely extracts the authenticated Claims from the request Context.
// A nil return means the request did not pass through RequireAuth.
func GetClaimsFromContext(r *http.Request) *Claims {
	claims, ok := r.Context().Value(ContextAuthClaimsKey).(*Claims)

	if !ok {
		return nil
	}

	return claims
}
