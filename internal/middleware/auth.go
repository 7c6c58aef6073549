package middleware

import (
	"net/http"
	"strings"

	"github.com/Nizarll/darsi/internal/auth"
	"github.com/Nizarll/darsi/internal/httputil"
	"github.com/Nizarll/darsi/internal/models"
)

// Auth verifies session tokens and attaches their claims to the request
// context. It authenticates only; role checks are opt-in via RequireRole.
type Auth struct {
	tokens *auth.TokenService
}

func NewAuth(tokens *auth.TokenService) *Auth {
	return &Auth{tokens: tokens}
}

// RequireAuth rejects requests without a token (401) or with a token that
// fails verification (403).
func (a *Auth) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := tokenFromRequest(r)
		if token == "" {
			httputil.WriteError(w, http.StatusUnauthorized, "Access token required")
			return
		}

		claims, err := a.tokens.Verify(token)
		if err != nil {
			httputil.WriteError(w, http.StatusForbidden, "Invalid or expired token")
			return
		}

		next.ServeHTTP(w, withClaims(r, claims))
	})
}

// OptionalAuth attaches claims when a valid token is present and otherwise
// passes the request through untouched.
func (a *Auth) OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token := tokenFromRequest(r); token != "" {
			if claims, err := a.tokens.Verify(token); err == nil {
				r = withClaims(r, claims)
			}
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole must run after RequireAuth.
func RequireRole(role models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := auth.ClaimsFromContext(r.Context())
			if !ok {
				httputil.WriteError(w, http.StatusUnauthorized, "Access token required")
				return
			}
			if claims.Role != role {
				httputil.WriteError(w, http.StatusForbidden, "Insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func withClaims(r *http.Request, claims *auth.Claims) *http.Request {
	if rd := requestDataFrom(r.Context()); rd != nil {
		rd.UserID = claims.UserID
	}
	return r.WithContext(auth.WithClaims(r.Context(), claims))
}

// Bearer header first, then the session cookie.
func tokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		parts := strings.SplitN(h, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			if t := strings.TrimSpace(parts[1]); t != "" {
				return t
			}
		}
	}
	if c, err := r.Cookie(auth.CookieName); err == nil && c.Value != "" {
		return c.Value
	}
	return ""
}
