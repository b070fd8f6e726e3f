package handlers

import (
	"errors"
	"net/http"
	"strings"

	"rupeeflow/internal/meter"
)

// NewReadingHandler returns the GET /sessions/reading handler, the polling
// counterpart of the websocket reading stream.
func NewReadingHandler(engine *meter.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := strings.TrimSpace(r.URL.Query().Get("session_id"))
		if sessionID == "" {
			writeError(w, http.StatusBadRequest, "session_id is required")
			return
		}

		reading, err := engine.Reading(sessionID)
		if err != nil {
			if errors.Is(err, meter.ErrNotFound) {
				writeError(w, http.StatusNotFound, "session not found")
				return
			}
			writeError(w, http.StatusInternalServerError, "failed to read session")
			return
		}

		writeJSON(w, http.StatusOK, reading)
	}
}
