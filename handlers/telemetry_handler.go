package handlers

import (
	"net/http"

	"github.com/diu-mct/access-guard/app"
	"github.com/diu-mct/access-guard/guard/threat"
	"github.com/diu-mct/access-guard/middleware"
	"github.com/diu-mct/access-guard/models"
	"github.com/diu-mct/access-guard/utils"
)

// subjectFor derives the audit subject from the request identity
func subjectFor(r *http.Request) models.Subject {
	return middleware.IdentityFromContext(r.Context()).Subject()
}

// NavigationHandler counts a browser history transition
func NavigationHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deps.Sessions.Touch()
		deps.Detector.ObserveNavigation(r.Context(), subjectFor(r))
		_ = utils.WriteOK(w, nil)
	}
}

// ClickHandler counts a click interaction
func ClickHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deps.Sessions.Touch()
		deps.Detector.ObserveClick(r.Context(), subjectFor(r))
		_ = utils.WriteOK(w, nil)
	}
}

// pasteReport carries the pasted clipboard text for inspection. The
// content is inspected in memory and never stored.
type pasteReport struct {
	Content string `json:"content"`
}

// PasteHandler inspects pasted clipboard text for credential-like
// substrings
func PasteHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var report pasteReport
		if !decodeJSON(w, r, &report) {
			return
		}

		deps.Sessions.Touch()
		flagged := deps.Detector.InspectPaste(r.Context(), subjectFor(r), report.Content)
		_ = utils.WriteOK(w, map[string]bool{"flagged": flagged})
	}
}

// WindowMetricsHandler stores the latest window geometry sample for the
// dev-tools probe
func WindowMetricsHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var sample threat.WindowMetrics
		if !decodeJSON(w, r, &sample) {
			return
		}

		deps.Samples.Put(sample)
		_ = utils.WriteOK(w, nil)
	}
}

// ActivityHandler records a qualifying user interaction (pointer, key,
// scroll, touch)
func ActivityHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deps.Sessions.Touch()
		_ = utils.WriteOK(w, nil)
	}
}
