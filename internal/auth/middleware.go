package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rs/zerolog/hlog"

	"github.com/Godfather59/score-app/internal/models"
)

type contextKey string

// UserClaimsKey is the context key for verified token claims.
const UserClaimsKey = contextKey("userClaims")

// Verifier validates a raw token string.
type Verifier interface {
	Verify(token string) (*Claims, error)
}

// TokenExtractor pulls a raw token out of a request. It returns "" when the
// request carries none.
type TokenExtractor func(r *http.Request) string

// FromAuthHeader reads "Authorization: Bearer <token>". The scheme is
// matched case-insensitively.
func FromAuthHeader(r *http.Request) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(r.Header.Get("Authorization")), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// FromQuery reads the token from a query parameter. Browsers cannot set
// headers on websocket upgrades.
func FromQuery(param string) TokenExtractor {
	return func(r *http.Request) string {
		return r.URL.Query().Get(param)
	}
}

// ContextWithClaims returns a copy of ctx carrying claims.
func ContextWithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, UserClaimsKey, claims)
}

// ClaimsFromContext returns the claims stored by Authenticate.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(UserClaimsKey).(*Claims)
	return claims, ok && claims != nil
}

// Authenticate rejects requests without a valid token with 401 and stores the
// verified claims in the request context. Extractors are tried in order;
// the Authorization header is used when none are given.
func Authenticate(verifier Verifier, extractors ...TokenExtractor) func(http.Handler) http.Handler {
	if len(extractors) == 0 {
		extractors = []TokenExtractor{FromAuthHeader}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var tokenStr string
			for _, extract := range extractors {
				if tokenStr = extract(r); tokenStr != "" {
					break
				}
			}
			if tokenStr == "" {
				writeError(w, http.StatusUnauthorized, "No token provided")
				return
			}

			claims, err := verifier.Verify(tokenStr)
			if err != nil {
				hlog.FromRequest(r).Debug().Err(err).Msg("Rejected auth token")
				writeError(w, http.StatusUnauthorized, "Invalid token")
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithClaims(r.Context(), claims)))
		})
	}
}

// RequireRoles allows the request through only when the authenticated
// role is in roles. It must run after Authenticate.
func RequireRoles(roles ...models.Role) func(http.Handler) http.Handler {
	allowed := make(map[models.Role]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "No token provided")
				return
			}
			if _, ok := allowed[claims.Role]; !ok {
				hlog.FromRequest(r).Info().
					Str("user_id", claims.UserID).
					Str("role", string(claims.Role)).
					Msg("Insufficient role for route")
				writeError(w, http.StatusForbidden, "Access denied")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": message})
}
