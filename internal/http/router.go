package httpserver

import "net/http"

// Routes groups handlers.
type Routes struct {
	WS             http.HandlerFunc
	Reading        http.HandlerFunc
	ActiveSessions http.HandlerFunc
	SessionsMe     http.HandlerFunc
	Health         http.HandlerFunc
	Metrics        http.Handler
}

// NewRouter registers endpoints.
func NewRouter(routes Routes) http.Handler {
	mux := http.NewServeMux()
	if routes.WS != nil {
		mux.Handle("/ws", method(http.MethodGet, routes.WS))
	}
	if routes.Reading != nil {
		mux.Handle("/sessions/reading", method(http.MethodGet, routes.Reading))
	}
	if routes.ActiveSessions != nil {
		mux.Handle("/sessions/active", method(http.MethodGet, routes.ActiveSessions))
	}
	if routes.SessionsMe != nil {
		mux.Handle("/sessions/me", method(http.MethodGet, routes.SessionsMe))
	}
	if routes.Health != nil {
		mux.Handle("/health", method(http.MethodGet, routes.Health))
	}
	if routes.Metrics != nil {
		mux.Handle("/metrics", routes.Metrics)
	}
	return mux
}

func method(expected string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != expected {
			w.Header().Set("Allow", expected)
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		handler(w, r)
	}
}
