// Package httphandler implements the REST API driving adapter.
package httphandler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/ericfisherdev/actionwatch/internal/application"
	"github.com/ericfisherdev/actionwatch/internal/domain/model"
)

// Engine is the slice of application.PollService the API drives.
type Engine interface {
	State() model.State
	Subscribe(ctx context.Context) <-chan model.State
	Refresh(ctx context.Context) error
	ApplySettings(ctx context.Context, patch model.SettingsPatch) error
}

var _ Engine = (*application.PollService)(nil)

// Handler is the HTTP driving adapter that serves the REST API.
type Handler struct {
	engine Engine
	logger *slog.Logger
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(engine Engine, logger *slog.Logger) *Handler {
	return &Handler{
		engine: engine,
		logger: logger,
	}
}

// RegisterAPIRoutes registers all REST API routes on mux.
func RegisterAPIRoutes(mux *http.ServeMux, h *Handler) {
	mux.HandleFunc("GET /api/v1/status", h.GetStatus)
	mux.HandleFunc("GET /api/v1/status/stream", h.StreamStatus)
	mux.HandleFunc("GET /api/v1/settings", h.GetSettings)
	mux.HandleFunc("PATCH /api/v1/settings", h.UpdateSettings)
	mux.HandleFunc("POST /api/v1/refresh", h.Refresh)
	mux.HandleFunc("GET /api/v1/health", h.Health)
}

// ApplyMiddleware wraps next with logging and recovery middleware.
func ApplyMiddleware(next http.Handler, logger *slog.Logger) http.Handler {
	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(logger, next)
	wrapped = loggingMiddleware(logger, wrapped)

	return wrapped
}

// NewServeMux creates an http.Handler with the API routes registered and
// wrapped with logging and recovery middleware.
func NewServeMux(h *Handler, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()
	RegisterAPIRoutes(mux, h)
	return ApplyMiddleware(mux, logger)
}

// GetStatus returns the current observable snapshot.
func (h *Handler) GetStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, toStatusResponse(h.engine.State()))
}

// StreamStatus streams snapshots as Server-Sent Events, one "data:" line of
// JSON per change, until the client disconnects or the server shuts down.
func (h *Handler) StreamStatus(w http.ResponseWriter, r *http.Request) {
	rc := http.NewResponseController(w)
	// The server read and write timeouts would otherwise cut the stream.
	_ = rc.SetWriteDeadline(time.Time{})
	_ = rc.SetReadDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	if err := rc.Flush(); err != nil {
		h.logger.Error("status stream not supported", "error", err)
		return
	}

	for st := range h.engine.Subscribe(r.Context()) {
		data, err := json.Marshal(toStatusResponse(st))
		if err != nil {
			h.logger.Error("failed to encode status event", "error", err)
			return
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			return
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}

// GetSettings returns the loaded settings with the token redacted.
func (h *Handler) GetSettings(w http.ResponseWriter, _ *http.Request) {
	settings, ok := h.engine.State().Settings()
	if !ok {
		writeError(w, http.StatusConflict, application.ErrSettingsNotLoaded.Error())
		return
	}

	writeJSON(w, http.StatusOK, toSettingsResponse(settings))
}

// UpdateSettings applies a partial settings update. The present fields are
// persisted and published as one batch before the response is written.
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req UpdateSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if !h.engine.State().Loaded() {
		writeError(w, http.StatusConflict, application.ErrSettingsNotLoaded.Error())
		return
	}

	if err := h.engine.ApplySettings(r.Context(), req.toPatch()); err != nil {
		if errors.Is(err, application.ErrSettingsNotLoaded) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		h.logger.Error("failed to update settings", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	settings, _ := h.engine.State().Settings()
	writeJSON(w, http.StatusOK, toSettingsResponse(settings))
}

// Refresh runs one poll cycle now and returns the resulting snapshot.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.Refresh(r.Context()); err != nil {
		h.logger.Warn("refresh did not complete", "error", err)
		writeError(w, http.StatusServiceUnavailable, "refresh did not complete")
		return
	}

	writeJSON(w, http.StatusOK, toStatusResponse(h.engine.State()))
}

// Health returns a simple health check response.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}
