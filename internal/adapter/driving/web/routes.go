package web

import "net/http"

// RegisterRoutes registers the status page and settings form routes on mux.
func RegisterRoutes(mux *http.ServeMux, h *Handler) {
	mux.HandleFunc("GET /{$}", h.StatusPage)
	mux.HandleFunc("POST /settings", requireCSRF(h.UpdateSettings))
}
