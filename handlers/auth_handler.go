package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/diu-mct/access-guard/app"
	"github.com/diu-mct/access-guard/middleware"
	"github.com/diu-mct/access-guard/models"
	"github.com/diu-mct/access-guard/utils"
)

// signInRequest is the credential payload for the provider passthrough
type signInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// signInResponse carries the identity and its token back to the page
type signInResponse struct {
	Identity *models.Identity `json:"identity"`
	Token    string           `json:"token"`
}

// SignInHandler exchanges credentials at the identity provider. Provider
// errors are returned verbatim so the page can display them; each
// failure records a failed-login event.
func SignInHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req signInRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if err := utils.ValidateStruct(req); err != nil {
			if verr, ok := err.(*utils.ValidationError); ok {
				_ = utils.WriteBadRequest(w, verr.Message, verr.FieldDetails())
				return
			}
			_ = utils.WriteBadRequest(w, "invalid credentials payload", nil)
			return
		}

		ident, token, err := deps.Identity.SignIn(ctx, req.Email, req.Password)
		if err != nil {
			deps.Logger.Debug("sign-in rejected", zap.String("email", req.Email))
			deps.Audit.Record(ctx, models.EventFailedLogin, models.Subject{Email: req.Email}, nil)
			// The provider's own message passes through verbatim
			_ = utils.WriteUnauthorized(w, err.Error())
			return
		}

		deps.Sessions.SignIn(ident.UID)
		_ = utils.WriteOK(w, signInResponse{Identity: ident, Token: token})
	}
}

// SignOutHandler revokes the current identity's sessions
func SignOutHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		ident := middleware.IdentityFromContext(ctx)
		if ident == nil {
			_ = utils.WriteUnauthorized(w, "")
			return
		}

		if err := deps.Identity.SignOut(ctx, ident.UID); err != nil {
			deps.Logger.Warn("sign-out failed", zap.String("uid", ident.UID), zap.Error(err))
			_ = utils.WriteInternalError(w, "sign-out failed")
			return
		}

		_ = utils.WriteOK(w, nil)
	}
}
