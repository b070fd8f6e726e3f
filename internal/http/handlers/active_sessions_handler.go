package handlers

import (
	"net/http"

	"rupeeflow/internal/meter"
)

// NewActiveSessionsHandler returns the GET /sessions/active handler.
func NewActiveSessionsHandler(engine *meter.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"count":    engine.ActiveCount(),
			"sessions": engine.ActiveSessions(),
		})
	}
}
