package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/actionwatch/internal/application"
	"github.com/ericfisherdev/actionwatch/internal/domain/model"
)

// fakeEngine records applied patches against a real StateStore.
type fakeEngine struct {
	state *application.StateStore

	mu        sync.Mutex
	patches   []model.SettingsPatch
	updateErr error
}

func newFakeEngine(settings *model.Settings) *fakeEngine {
	f := &fakeEngine{state: application.NewStateStore()}
	if settings != nil {
		f.state.SetSettings(*settings)
	}
	return f
}

func (f *fakeEngine) State() model.State { return f.state.Get() }

func (f *fakeEngine) ApplySettings(_ context.Context, patch model.SettingsPatch) error {
	f.mu.Lock()
	f.patches = append(f.patches, patch)
	f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	settings, ok := f.state.Get().Settings()
	if !ok {
		return application.ErrSettingsNotLoaded
	}
	f.state.SetSettings(patch.Clamped().Apply(settings))
	return nil
}

func (f *fakeEngine) applied() []model.SettingsPatch {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.SettingsPatch(nil), f.patches...)
}

func setupMux(engine *fakeEngine) *http.ServeMux {
	mux := http.NewServeMux()
	RegisterRoutes(mux, NewHandler(engine, slog.Default()))
	return mux
}

func postSettings(mux http.Handler, form url.Values, cookie string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/settings", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if cookie != "" {
		req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: cookie})
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestStatusPage_RendersStatusAndForm(t *testing.T) {
	engine := newFakeEngine(&model.Settings{Token: "ghp_secret", Owner: "octo", Repo: "hello", RefreshInterval: 15})
	engine.state.SetStatus("completed success")
	mux := setupMux(engine)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))

	body := rec.Body.String()
	assert.Contains(t, body, "<title>octo/hello · actionwatch</title>")
	assert.Contains(t, body, `data-tone="success">completed success</p>`)
	assert.Contains(t, body, `name="owner" value="octo"`)
	assert.Contains(t, body, `min="5" max="60" value="15"`)
	assert.Contains(t, body, `name="clear_token"`)
	assert.NotContains(t, body, "ghp_secret")

	var csrf *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == csrfCookieName {
			csrf = c
		}
	}
	require.NotNil(t, csrf, "csrf cookie is issued")
	assert.Contains(t, body, `name="csrf_token" value="`+csrf.Value+`"`)
}

func TestStatusPage_BeforeLoad(t *testing.T) {
	mux := setupMux(newFakeEngine(nil))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "No repository configured")
	assert.Contains(t, body, `data-tone="pending">Loading</p>`)
	assert.Contains(t, body, "Settings are still loading.")
	assert.NotContains(t, body, "<form")
}

func TestStatusPage_EscapesUserInput(t *testing.T) {
	engine := newFakeEngine(&model.Settings{Owner: `<script>alert(1)</script>`, Repo: `"x"`, RefreshInterval: 5})
	mux := setupMux(engine)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	body := rec.Body.String()
	assert.NotContains(t, body, "<script>alert(1)</script>")
	assert.Contains(t, body, "&lt;script&gt;alert(1)&lt;/script&gt;")
	assert.Contains(t, body, `value="&#34;x&#34;"`)
}

func TestUpdateSettings(t *testing.T) {
	engine := newFakeEngine(&model.Settings{Token: "old", Owner: "octo", Repo: "hello", RefreshInterval: 5})
	mux := setupMux(engine)

	form := url.Values{
		"csrf_token":       {"tok"},
		"owner":            {" hubot "},
		"repo":             {"world"},
		"token":            {""},
		"refresh_interval": {"120"},
	}
	rec := postSettings(mux, form, "tok")

	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/?saved=1", rec.Header().Get("Location"))

	settings, ok := engine.State().Settings()
	require.True(t, ok)
	assert.Equal(t, model.Settings{Token: "old", Owner: "hubot", Repo: "world", RefreshInterval: 60}, settings)

	patches := engine.applied()
	require.Len(t, patches, 1, "the form is applied as one batch")
	assert.Nil(t, patches[0].Token, "empty token field leaves token unchanged")
}

func TestUpdateSettings_Token(t *testing.T) {
	tests := []struct {
		name      string
		token     string
		clear     bool
		wantToken string
	}{
		{name: "new token", token: "ghp_new", wantToken: "ghp_new"},
		{name: "clear token", clear: true, wantToken: ""},
		{name: "clear wins over new", token: "ghp_new", clear: true, wantToken: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := newFakeEngine(&model.Settings{Token: "old", Owner: "o", Repo: "r", RefreshInterval: 5})
			mux := setupMux(engine)

			form := url.Values{
				"csrf_token":       {"tok"},
				"owner":            {"o"},
				"repo":             {"r"},
				"token":            {tt.token},
				"refresh_interval": {"5"},
			}
			if tt.clear {
				form.Set("clear_token", "on")
			}
			rec := postSettings(mux, form, "tok")

			require.Equal(t, http.StatusSeeOther, rec.Code)
			settings, _ := engine.State().Settings()
			assert.Equal(t, tt.wantToken, settings.Token)
		})
	}
}

func TestUpdateSettings_Rejected(t *testing.T) {
	loaded := &model.Settings{Owner: "o", Repo: "r", RefreshInterval: 5}

	tests := []struct {
		name       string
		settings   *model.Settings
		updateErr  error
		formToken  string
		cookie     string
		interval   string
		wantStatus int
	}{
		{name: "missing csrf cookie", settings: loaded, formToken: "tok", interval: "5", wantStatus: http.StatusForbidden},
		{name: "mismatched csrf", settings: loaded, formToken: "tok", cookie: "other", interval: "5", wantStatus: http.StatusForbidden},
		{name: "non-numeric interval", settings: loaded, formToken: "tok", cookie: "tok", interval: "soon", wantStatus: http.StatusBadRequest},
		{name: "not loaded", settings: nil, formToken: "tok", cookie: "tok", interval: "5", wantStatus: http.StatusConflict},
		{name: "store failure", settings: loaded, updateErr: errors.New("disk full"), formToken: "tok", cookie: "tok", interval: "5", wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := newFakeEngine(tt.settings)
			engine.updateErr = tt.updateErr
			mux := setupMux(engine)

			form := url.Values{
				"csrf_token":       {tt.formToken},
				"owner":            {"changed"},
				"repo":             {"r"},
				"refresh_interval": {tt.interval},
			}
			rec := postSettings(mux, form, tt.cookie)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if settings, ok := engine.State().Settings(); ok {
				assert.Equal(t, "o", settings.Owner, "rejected form must not apply")
			}
		})
	}
}

func TestStatusTone(t *testing.T) {
	tests := []struct {
		status string
		want   string
	}{
		{status: "Loading", want: "pending"},
		{status: "in progress", want: "pending"},
		{status: "queued", want: "pending"},
		{status: "completed success", want: "success"},
		{status: "completed failure", want: "failure"},
		{status: "completed cancelled", want: "failure"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, statusTone(tt.status), tt.status)
	}
}
