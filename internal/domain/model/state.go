package model

import "time"

// State is the observable snapshot published by the poll service. Values are
// treated as immutable: the With* methods return modified copies.
//
// Settings are absent until the first successful load; use Settings() to
// read them together with the loaded flag.
type State struct {
	Status    string
	UpdatedAt time.Time

	settings Settings
	loaded   bool
}

// NewState returns the initial snapshot: status "Loading", no settings.
func NewState() State {
	return State{Status: StatusLoading}
}

// Settings returns the loaded settings and true, or the zero value and false
// before the first load.
func (s State) Settings() (Settings, bool) {
	return s.settings, s.loaded
}

// Loaded reports whether settings have been loaded.
func (s State) Loaded() bool {
	return s.loaded
}

// WithSettings returns a copy of s carrying settings.
func (s State) WithSettings(settings Settings) State {
	s.settings = settings
	s.loaded = true
	return s
}

// WithStatus returns a copy of s carrying status.
func (s State) WithStatus(status string) State {
	s.Status = status
	return s
}
