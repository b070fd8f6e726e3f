package handlers

import (
	"net/http"

	"rupeeflow/internal/http/middleware"
	"rupeeflow/internal/repository"
)

// NewSessionsMeHandler returns the GET /sessions/me handler serving the caller's
// finished session history. repo may be nil when no database is configured.
func NewSessionsMeHandler(repo *repository.SessionRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerRef, ok := middleware.OwnerRefFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing owner context")
			return
		}

		if repo == nil {
			writeJSON(w, http.StatusOK, map[string]interface{}{"sessions": []interface{}{}})
			return
		}

		records, err := repo.GetSessionsByOwner(r.Context(), ownerRef, 50)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to fetch sessions")
			return
		}

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"sessions": records,
		})
	}
}
