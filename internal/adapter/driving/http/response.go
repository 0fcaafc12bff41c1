package httphandler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ericfisherdev/actionwatch/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// StatusResponse is the JSON representation of an observable snapshot.
type StatusResponse struct {
	Status    string            `json:"status"`
	Loaded    bool              `json:"loaded"`
	Settings  *SettingsResponse `json:"settings"`
	UpdatedAt string            `json:"updated_at,omitempty"`
}

// SettingsResponse is the JSON representation of the settings. The token
// itself is never returned.
type SettingsResponse struct {
	Owner           string `json:"owner"`
	Repo            string `json:"repo"`
	RefreshInterval int    `json:"refresh_interval"`
	HasToken        bool   `json:"has_token"`
}

// UpdateSettingsRequest is the JSON body for the settings PATCH endpoint.
// Absent fields are left unchanged.
type UpdateSettingsRequest struct {
	Owner           *string `json:"owner"`
	Repo            *string `json:"repo"`
	Token           *string `json:"token"`
	RefreshInterval *int    `json:"refresh_interval"`
}

func (r UpdateSettingsRequest) toPatch() model.SettingsPatch {
	return model.SettingsPatch{
		Owner:           r.Owner,
		Repo:            r.Repo,
		Token:           r.Token,
		RefreshInterval: r.RefreshInterval,
	}
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

// toStatusResponse converts a domain State to its JSON response representation.
// Settings is null until the first load.
func toStatusResponse(st model.State) StatusResponse {
	resp := StatusResponse{
		Status: st.Status,
		Loaded: st.Loaded(),
	}
	if settings, ok := st.Settings(); ok {
		sr := toSettingsResponse(settings)
		resp.Settings = &sr
	}
	if !st.UpdatedAt.IsZero() {
		resp.UpdatedAt = st.UpdatedAt.UTC().Format(time.RFC3339)
	}
	return resp
}

// toSettingsResponse converts domain Settings to its JSON representation.
func toSettingsResponse(s model.Settings) SettingsResponse {
	return SettingsResponse{
		Owner:           s.Owner,
		Repo:            s.Repo,
		RefreshInterval: s.RefreshInterval,
		HasToken:        s.HasToken(),
	}
}
