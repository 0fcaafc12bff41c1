package web

import (
	"strings"
	"time"

	vm "github.com/ericfisherdev/actionwatch/internal/adapter/driving/web/viewmodel"
	"github.com/ericfisherdev/actionwatch/internal/domain/model"
)

// toStatusPageViewModel converts an observable snapshot into the status page
// view model. Before the first settings load the form shows defaults.
func toStatusPageViewModel(st model.State, csrf, flash string) vm.StatusPageViewModel {
	settings, loaded := st.Settings()
	if !loaded {
		settings = model.Settings{RefreshInterval: model.DefaultRefreshInterval}
	}

	page := vm.StatusPageViewModel{
		Title:     "actionwatch",
		CSRFToken: csrf,
		Flash:     flash,
		Status:    st.Status,
		Tone:      statusTone(st.Status),
		Loaded:    loaded,
		Settings: vm.SettingsFormViewModel{
			Owner:           settings.Owner,
			Repo:            settings.Repo,
			RefreshInterval: settings.RefreshInterval,
			MinInterval:     model.MinRefreshInterval,
			MaxInterval:     model.MaxRefreshInterval,
			HasToken:        settings.HasToken(),
		},
	}
	if settings.HasTarget() {
		page.Title = settings.FullName() + " · actionwatch"
	}
	if !st.UpdatedAt.IsZero() {
		page.UpdatedAt = st.UpdatedAt.Local().Format(time.DateTime)
	}

	return page
}

// statusTone maps a normalised status string to a badge tone.
func statusTone(status string) string {
	switch {
	case strings.Contains(status, "success"):
		return vm.ToneSuccess
	case strings.Contains(status, "completed"):
		return vm.ToneFailure
	default:
		return vm.TonePending
	}
}
