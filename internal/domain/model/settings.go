package model

import (
	"strings"
	"time"
)

// Refresh interval bounds, in seconds.
const (
	MinRefreshInterval     = 5
	MaxRefreshInterval     = 60
	DefaultRefreshInterval = 5
)

// Settings holds the user-configurable polling parameters for the watched
// repository. Token may be empty for public repositories.
type Settings struct {
	Token           string
	Owner           string
	Repo            string
	RefreshInterval int // Seconds, always within [MinRefreshInterval, MaxRefreshInterval].
}

// ClampRefreshInterval forces seconds into [MinRefreshInterval, MaxRefreshInterval].
func ClampRefreshInterval(seconds int) int {
	if seconds < MinRefreshInterval {
		return MinRefreshInterval
	}
	if seconds > MaxRefreshInterval {
		return MaxRefreshInterval
	}
	return seconds
}

// HasTarget reports whether both owner and repo are set, i.e. whether there
// is anything to poll.
func (s Settings) HasTarget() bool {
	return s.Owner != "" && s.Repo != ""
}

// FullName returns "owner/repo".
func (s Settings) FullName() string {
	return s.Owner + "/" + s.Repo
}

// Interval returns the clamped refresh interval as a duration.
func (s Settings) Interval() time.Duration {
	return time.Duration(ClampRefreshInterval(s.RefreshInterval)) * time.Second
}

// HasToken reports whether a non-blank token is configured.
func (s Settings) HasToken() bool {
	return strings.TrimSpace(s.Token) != ""
}

// Redacted returns a copy of the settings safe to log or serialize: the
// token is replaced by a fixed mask when present.
func (s Settings) Redacted() Settings {
	if s.Token != "" {
		s.Token = "********"
	}
	return s
}

// SettingsPatch is a partial settings change. Nil fields are left as they are.
type SettingsPatch struct {
	Owner           *string
	Repo            *string
	Token           *string
	RefreshInterval *int
}

// Empty reports whether the patch changes nothing.
func (p SettingsPatch) Empty() bool {
	return p.Owner == nil && p.Repo == nil && p.Token == nil && p.RefreshInterval == nil
}

// Clamped returns a copy of p whose refresh interval, if present, lies
// within [MinRefreshInterval, MaxRefreshInterval].
func (p SettingsPatch) Clamped() SettingsPatch {
	if p.RefreshInterval != nil {
		seconds := ClampRefreshInterval(*p.RefreshInterval)
		p.RefreshInterval = &seconds
	}
	return p
}

// Apply returns s with every field present in p replaced.
func (p SettingsPatch) Apply(s Settings) Settings {
	if p.Owner != nil {
		s.Owner = *p.Owner
	}
	if p.Repo != nil {
		s.Repo = *p.Repo
	}
	if p.Token != nil {
		s.Token = *p.Token
	}
	if p.RefreshInterval != nil {
		s.RefreshInterval = *p.RefreshInterval
	}
	return s
}

// Fields names the fields present in p, for logging.
func (p SettingsPatch) Fields() []string {
	var fields []string
	if p.Owner != nil {
		fields = append(fields, "owner")
	}
	if p.Repo != nil {
		fields = append(fields, "repo")
	}
	if p.Token != nil {
		fields = append(fields, "token")
	}
	if p.RefreshInterval != nil {
		fields = append(fields, "refresh_interval")
	}
	return fields
}
