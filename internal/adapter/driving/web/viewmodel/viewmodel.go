// Package viewmodel defines presentation-ready structs for templ components.
// View models decouple template rendering from domain model types.
package viewmodel

// Status tones drive the badge styling on the status page.
const (
	ToneSuccess = "success"
	ToneFailure = "failure"
	TonePending = "pending"
)

// StatusPageViewModel holds presentation-ready data for the status page.
type StatusPageViewModel struct {
	Title     string
	CSRFToken string
	Flash     string

	Status    string
	Tone      string
	Loaded    bool
	UpdatedAt string

	Settings SettingsFormViewModel
}

// SettingsFormViewModel holds the values prefilled into the settings form.
// The token itself is never rendered.
type SettingsFormViewModel struct {
	Owner           string
	Repo            string
	RefreshInterval int
	MinInterval     int
	MaxInterval     int
	HasToken        bool
}
