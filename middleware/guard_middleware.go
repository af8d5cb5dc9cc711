// Package middleware wires the guard components into the HTTP layer:
// identity extraction, request metadata for audit events, activity
// touches and page-level authorization.
package middleware

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/diu-mct/access-guard/guard/audit"
	"github.com/diu-mct/access-guard/guard/authz"
	"github.com/diu-mct/access-guard/guard/ratelimit"
	"github.com/diu-mct/access-guard/guard/session"
	"github.com/diu-mct/access-guard/identity"
	"github.com/diu-mct/access-guard/models"
	"github.com/diu-mct/access-guard/utils"
)

// authTokenCookieName is the cookie fallback for the identity token
// (Authorization header takes precedence)
const authTokenCookieName = "auth_token"

// GuardMiddleware provides the route-level access checks
type GuardMiddleware struct {
	guard    *authz.Guard
	sessions *session.Monitor
	limiter  *ratelimit.Limiter
	logger   *zap.Logger
}

// NewGuardMiddleware creates a new GuardMiddleware
func NewGuardMiddleware(guard *authz.Guard, sessions *session.Monitor, limiter *ratelimit.Limiter, logger *zap.Logger) *GuardMiddleware {
	return &GuardMiddleware{
		guard:    guard,
		sessions: sessions,
		limiter:  limiter,
		logger:   logger,
	}
}

// RequestMeta stamps audit metadata (caller IP, user agent, page URL)
// onto the request context so every recorded event carries it.
func (m *GuardMiddleware) RequestMeta(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		meta := audit.RequestMeta{
			IPAddress: clientIP(r),
			UserAgent: r.UserAgent(),
			PageURL:   r.URL.String(),
		}
		next.ServeHTTP(w, r.WithContext(audit.WithRequestMeta(r.Context(), meta)))
	})
}

// ExtractIdentity parses the identity token when present and stores the
// identity on the context. Requests without a token pass through with a
// nil identity; the guard decides what that means per page.
func (m *GuardMiddleware) ExtractIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractToken(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}

		ident, err := identity.IdentityFromToken(token)
		if err != nil {
			m.logger.Debug("identity token rejected", zap.Error(err))
			next.ServeHTTP(w, r)
			return
		}

		// Any authenticated request counts as user activity
		if m.sessions != nil {
			m.sessions.Touch()
		}

		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), ident)))
	})
}

// RequireRole gates a route on an authorization decision for the given
// role. Denials answer with the decision body so the front end can
// redirect.
func (m *GuardMiddleware) RequireRole(role models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			ident := IdentityFromContext(ctx)

			decision := m.guard.Authorize(ctx, ident, role)
			if !decision.Allowed {
				status := http.StatusForbidden
				if ident == nil {
					status = http.StatusUnauthorized
				}
				m.logger.Debug("page access denied",
					zap.String("role", string(role)),
					zap.String("reason", decision.Reason))
				_ = utils.WriteJSON(w, status, decision)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RateLimit gates a route on the sliding-window limiter, keyed by the
// authenticated user or the caller IP for anonymous requests.
func (m *GuardMiddleware) RateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		identifier := clientIP(r)
		if ident := IdentityFromContext(ctx); ident != nil {
			identifier = ident.UID
		}

		if !m.limiter.IsAllowed(ctx, identifier) {
			_ = utils.WriteTooManyRequests(w, "Too many requests, slow down")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// extractToken extracts the identity token from the Authorization header
// or the auth_token cookie. The header takes precedence.
func extractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	if cookie, err := r.Cookie(authTokenCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	return ""
}

// clientIP returns the caller address, honoring X-Forwarded-For from the
// hosting proxy.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if idx := strings.Index(fwd, ","); idx > 0 {
			return strings.TrimSpace(fwd[:idx])
		}
		return strings.TrimSpace(fwd)
	}
	host := r.RemoteAddr
	if idx := strings.LastIndex(host, ":"); idx > 0 {
		return host[:idx]
	}
	return host
}
