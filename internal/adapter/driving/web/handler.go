// Package web implements the HTML GUI driving adapter using templ components.
package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/ericfisherdev/actionwatch/internal/application"
	"github.com/ericfisherdev/actionwatch/internal/domain/model"
)

// Engine is the slice of application.PollService the status page drives.
type Engine interface {
	State() model.State
	ApplySettings(ctx context.Context, patch model.SettingsPatch) error
}

var _ Engine = (*application.PollService)(nil)

// Handler is the web GUI driving adapter that serves HTML via templ components.
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

// StatusPage renders the status page with the full HTML layout.
func (h *Handler) StatusPage(w http.ResponseWriter, r *http.Request) {
	token := csrfToken(w, r)

	var flash string
	if r.URL.Query().Get("saved") == "1" {
		flash = "Settings saved"
	}

	page := toStatusPageViewModel(h.engine.State(), token, flash)
	layout := Layout(page.Title, StatusPage(page))

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := layout.Render(r.Context(), w); err != nil {
		h.logger.Error("failed to render status page", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

// UpdateSettings applies the settings form and redirects back to the status
// page. An empty token field leaves the stored token unchanged. Routes wrap
// it in requireCSRF.
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	interval, err := strconv.Atoi(strings.TrimSpace(r.PostFormValue("refresh_interval")))
	if err != nil {
		http.Error(w, "refresh interval must be a number", http.StatusBadRequest)
		return
	}

	owner := strings.TrimSpace(r.PostFormValue("owner"))
	repo := strings.TrimSpace(r.PostFormValue("repo"))
	patch := model.SettingsPatch{Owner: &owner, Repo: &repo, RefreshInterval: &interval}

	switch token := strings.TrimSpace(r.PostFormValue("token")); {
	case r.PostFormValue("clear_token") != "":
		cleared := ""
		patch.Token = &cleared
	case token != "":
		patch.Token = &token
	}

	if err := h.engine.ApplySettings(r.Context(), patch); err != nil {
		if errors.Is(err, application.ErrSettingsNotLoaded) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		h.logger.Error("failed to save settings", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, "/?saved=1", http.StatusSeeOther)
}
