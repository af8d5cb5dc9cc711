package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/diu-mct/access-guard/app"
	"github.com/diu-mct/access-guard/models"
	"github.com/diu-mct/access-guard/utils"
)

const (
	defaultEventLimit = 50
	maxEventLimit     = 500
)

// pagination reads limit/offset query parameters with bounded defaults
func pagination(r *http.Request) (limit, offset int) {
	limit = defaultEventLimit
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
		limit = v
	}
	if limit > maxEventLimit {
		limit = maxEventLimit
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && v > 0 {
		offset = v
	}
	return limit, offset
}

// ListEventsHandler is the auditor's query surface over the security
// event sink. Exactly one filter applies per request: severity,
// event_type, user_id, or a start/end range.
func ListEventsHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		q := r.URL.Query()
		limit, offset := pagination(r)

		var (
			events []*models.SecurityEvent
			err    error
		)
		switch {
		case q.Get("severity") != "":
			events, err = deps.Events.GetBySeverity(ctx, models.Severity(q.Get("severity")), limit, offset)
		case q.Get("event_type") != "":
			events, err = deps.Events.GetByEventType(ctx, q.Get("event_type"), limit, offset)
		case q.Get("user_id") != "":
			events, err = deps.Events.GetBySubject(ctx, q.Get("user_id"), limit, offset)
		case q.Get("start") != "" && q.Get("end") != "":
			var start, end time.Time
			if start, err = time.Parse(time.RFC3339, q.Get("start")); err != nil {
				_ = utils.WriteBadRequest(w, "invalid start time, expected RFC3339", nil)
				return
			}
			if end, err = time.Parse(time.RFC3339, q.Get("end")); err != nil {
				_ = utils.WriteBadRequest(w, "invalid end time, expected RFC3339", nil)
				return
			}
			events, err = deps.Events.GetByDateRange(ctx, start, end, limit, offset)
		default:
			_ = utils.WriteBadRequest(w, "one filter required: severity, event_type, user_id, or start+end", nil)
			return
		}
		if err != nil {
			deps.Logger.Error("event query failed", zap.Error(err))
			_ = utils.WriteInternalError(w, "failed to query security events")
			return
		}

		_ = utils.WriteOK(w, map[string]interface{}{
			"events": events,
			"count":  len(events),
			"limit":  limit,
			"offset": offset,
		})
	}
}

// GetEventHandler retrieves a single security event by ID
func GetEventHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			_ = utils.WriteBadRequest(w, "invalid event id", nil)
			return
		}

		event, err := deps.Events.GetByID(r.Context(), id)
		if err != nil {
			deps.Logger.Error("event lookup failed", zap.String("id", id.String()), zap.Error(err))
			_ = utils.WriteInternalError(w, "failed to retrieve security event")
			return
		}
		if event == nil {
			_ = utils.WriteJSON(w, http.StatusNotFound, utils.ErrorResponse{
				Error:   "not_found",
				Message: "security event not found",
			})
			return
		}

		_ = utils.WriteOK(w, event)
	}
}
