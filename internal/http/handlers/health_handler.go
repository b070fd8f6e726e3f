package handlers

import (
	"net/http"

	"rupeeflow/internal/meter"
)

// NewHealthHandler returns the GET /health handler.
func NewHealthHandler(engine *meter.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status":          "ok",
			"active_sessions": engine.ActiveCount(),
		})
	}
}
