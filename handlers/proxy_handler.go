package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/diu-mct/access-guard/app"
	"github.com/diu-mct/access-guard/guard"
	"github.com/diu-mct/access-guard/middleware"
	"github.com/diu-mct/access-guard/utils"
)

// AIProxyHandler forwards a request body to the named AI upstream. The
// rate limit key is the caller's UID, so a burst from one student never
// starves another.
func AIProxyHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		service := chi.URLParam(r, "service")
		if !deps.Proxy.HasUpstream(service) {
			_ = utils.WriteBadRequest(w, "unknown AI service", map[string]interface{}{"service": service})
			return
		}

		ident := middleware.IdentityFromContext(ctx)
		if ident == nil {
			_ = utils.WriteUnauthorized(w, "")
			return
		}

		deps.Sessions.Touch()

		resp, err := deps.Proxy.Forward(ctx, service, ident.UID, ident.Subject(), r.Body)
		if err != nil {
			if errors.Is(err, guard.ErrRateLimitExceeded) {
				_ = utils.WriteTooManyRequests(w, "Too many requests, please slow down")
				return
			}
			deps.Logger.Error("upstream forward failed",
				zap.String("service", service), zap.Error(err))
			_ = utils.WriteInternalError(w, "AI service unavailable")
			return
		}
		defer resp.Body.Close()

		w.Header().Set("Content-Type", resp.Header.Get("Content-Type"))
		w.WriteHeader(resp.StatusCode)
		if _, err := io.Copy(w, resp.Body); err != nil {
			deps.Logger.Warn("upstream response copy interrupted",
				zap.String("service", service), zap.Error(err))
		}
	}
}
