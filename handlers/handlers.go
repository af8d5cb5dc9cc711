// Package handlers implements the thin HTTP surface over the guard
// core: sign-in passthrough, page gates, telemetry intake, the AI proxy
// entry and the auditor's event view.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/diu-mct/access-guard/utils"
)

// decodeJSON decodes a request body into dst, answering 400 on failure
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		_ = utils.WriteBadRequest(w, "invalid request body", nil)
		return false
	}
	return true
}
