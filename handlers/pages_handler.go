package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/diu-mct/access-guard/app"
	"github.com/diu-mct/access-guard/middleware"
	"github.com/diu-mct/access-guard/models"
	"github.com/diu-mct/access-guard/utils"
)

// pageRoles maps feature pages to the role they require
var pageRoles = map[string]models.Role{
	"home":      models.RoleAny,
	"chat":      models.RoleStudent,
	"images":    models.RoleStudent,
	"animation": models.RoleStudent,
	"models3d":  models.RoleStudent,
	"sandbox":   models.RoleStudent,
	"admin":     models.RoleAdmin,
}

// PageAccessHandler runs the authorization decision for a feature page
// and returns it. The front end redirects based on the decision body.
func PageAccessHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		page := chi.URLParam(r, "page")
		role, ok := pageRoles[page]
		if !ok {
			_ = utils.WriteBadRequest(w, "unknown page", map[string]interface{}{"page": page})
			return
		}

		ident := middleware.IdentityFromContext(ctx)
		decision := deps.Guard.Authorize(ctx, ident, role)

		status := http.StatusOK
		if !decision.Allowed {
			status = http.StatusForbidden
			if ident == nil {
				status = http.StatusUnauthorized
			}
		}
		_ = utils.WriteJSON(w, status, decision)
	}
}

// SessionStateHandler returns the current session security snapshot
func SessionStateHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteOK(w, deps.Sessions.State())
	}
}
