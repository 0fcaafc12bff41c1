// Package application contains use-case orchestration services.
package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ericfisherdev/actionwatch/internal/domain/model"
	"github.com/ericfisherdev/actionwatch/internal/domain/port/driven"
)

// ErrSettingsNotLoaded is returned by settings updates when called before
// the first poll cycle has loaded settings. No change is made.
var ErrSettingsNotLoaded = errors.New("settings not loaded yet")

// DefaultFetchTimeout bounds a single status fetch when no other timeout is configured.
const DefaultFetchTimeout = 10 * time.Second

// refreshRequest represents a manual refresh trigger.
type refreshRequest struct {
	done chan struct{}
}

// PollService periodically fetches the latest workflow run status, publishes
// it to the StateStore, and notifies when a run goes from "in progress" to
// "completed".
type PollService struct {
	settings     driven.SettingsStore
	fetcher      driven.StatusFetcher
	notifier     driven.NotificationSink
	state        *StateStore
	fetchTimeout time.Duration

	// cfgMu serializes a cycle's load+publish of settings against
	// ApplySettings, so a cycle never republishes values an edit just
	// replaced and never sees half of a batch.
	cfgMu sync.Mutex

	refreshCh  chan refreshRequest
	intervalCh chan time.Duration
}

// NewPollService creates a new PollService with all required dependencies.
// fetchTimeout caps each fetch; the effective timeout is the smaller of it
// and the refresh interval, so cycles never stack up.
func NewPollService(
	settings driven.SettingsStore,
	fetcher driven.StatusFetcher,
	notifier driven.NotificationSink,
	state *StateStore,
	fetchTimeout time.Duration,
) *PollService {
	if fetchTimeout <= 0 {
		fetchTimeout = DefaultFetchTimeout
	}
	return &PollService{
		settings:     settings,
		fetcher:      fetcher,
		notifier:     notifier,
		state:        state,
		fetchTimeout: fetchTimeout,
		refreshCh:    make(chan refreshRequest),
		intervalCh:   make(chan time.Duration, 1),
	}
}

// Start runs the poll loop: an immediate cycle, then one cycle per refresh
// interval. It also serves manual refresh requests and re-arms the timer when
// the interval is changed. Start blocks until the context is canceled.
func (s *PollService) Start(ctx context.Context) {
	interval := s.pollOnce(ctx)

	timer := time.NewTimer(interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("poll service stopped")
			return
		case <-timer.C:
			interval = s.pollOnce(ctx)
			timer.Reset(interval)
		case d := <-s.intervalCh:
			slog.Debug("refresh interval changed, rearming timer", "interval", d)
			resetTimer(timer, d)
		case req := <-s.refreshCh:
			interval = s.pollOnce(ctx)
			resetTimer(timer, interval)
			close(req.done)
		}
	}
}

// Run starts the poll loop in its own goroutine. The returned channel is
// closed once Start has returned, i.e. after ctx is canceled and any
// in-flight cycle has finished.
func (s *PollService) Run(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Start(ctx)
	}()
	return done
}

// Refresh runs a poll cycle immediately, bypassing the refresh interval. It
// blocks until the cycle completes or the context is canceled.
func (s *PollService) Refresh(ctx context.Context) error {
	req := refreshRequest{done: make(chan struct{})}

	select {
	case s.refreshCh <- req:
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-req.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// State returns the current observable snapshot.
func (s *PollService) State() model.State {
	return s.state.Get()
}

// Subscribe streams observable snapshots until ctx is canceled.
func (s *PollService) Subscribe(ctx context.Context) <-chan model.State {
	return s.state.Subscribe(ctx)
}

// UpdateOwner changes the watched repository owner.
func (s *PollService) UpdateOwner(ctx context.Context, owner string) error {
	return s.ApplySettings(ctx, model.SettingsPatch{Owner: &owner})
}

// UpdateRepo changes the watched repository name.
func (s *PollService) UpdateRepo(ctx context.Context, repo string) error {
	return s.ApplySettings(ctx, model.SettingsPatch{Repo: &repo})
}

// UpdateToken changes the API token. An empty token disables authorization.
func (s *PollService) UpdateToken(ctx context.Context, token string) error {
	return s.ApplySettings(ctx, model.SettingsPatch{Token: &token})
}

// UpdateRefreshInterval changes the poll interval. Out-of-range values are
// clamped to [model.MinRefreshInterval, model.MaxRefreshInterval]. The
// pending sleep is re-armed with the new interval.
func (s *PollService) UpdateRefreshInterval(ctx context.Context, seconds int) error {
	return s.ApplySettings(ctx, model.SettingsPatch{RefreshInterval: &seconds})
}

// ApplySettings writes every field present in patch to the durable store and
// publishes them to the live state as one snapshot. It holds cfgMu for the
// whole batch, so a poll cycle sees either none or all of the changes.
//
// If a write fails, the fields written before it are still published so the
// live state matches the store, and the error is returned. Before the first
// load it changes nothing and returns ErrSettingsNotLoaded.
func (s *PollService) ApplySettings(ctx context.Context, patch model.SettingsPatch) error {
	patch = patch.Clamped()

	s.cfgMu.Lock()
	defer s.cfgMu.Unlock()

	if !s.state.Get().Loaded() {
		slog.Debug("settings update ignored, not loaded yet", "fields", patch.Fields())
		return ErrSettingsNotLoaded
	}

	saved, err := s.persist(ctx, patch)
	if saved.Empty() {
		return err
	}

	s.state.Update(func(st model.State) model.State {
		current, _ := st.Settings()
		return st.WithSettings(saved.Apply(current))
	})

	if saved.RefreshInterval != nil {
		s.rearm(time.Duration(*saved.RefreshInterval) * time.Second)
	}

	slog.Info("settings updated", "fields", saved.Fields())
	return err
}

// persist writes the fields of patch in order and returns the subset that
// reached the store.
func (s *PollService) persist(ctx context.Context, patch model.SettingsPatch) (model.SettingsPatch, error) {
	var saved model.SettingsPatch

	if patch.Owner != nil {
		if err := s.settings.SetOwner(ctx, *patch.Owner); err != nil {
			return saved, fmt.Errorf("saving owner: %w", err)
		}
		saved.Owner = patch.Owner
	}
	if patch.Repo != nil {
		if err := s.settings.SetRepo(ctx, *patch.Repo); err != nil {
			return saved, fmt.Errorf("saving repo: %w", err)
		}
		saved.Repo = patch.Repo
	}
	if patch.Token != nil {
		if err := s.settings.SetToken(ctx, *patch.Token); err != nil {
			return saved, fmt.Errorf("saving token: %w", err)
		}
		saved.Token = patch.Token
	}
	if patch.RefreshInterval != nil {
		if err := s.settings.SetRefreshInterval(ctx, *patch.RefreshInterval); err != nil {
			return saved, fmt.Errorf("saving refresh interval: %w", err)
		}
		saved.RefreshInterval = patch.RefreshInterval
	}

	return saved, nil
}

// rearm hands d to the poll loop. Delivery is latest-wins.
func (s *PollService) rearm(d time.Duration) {
	select {
	case s.intervalCh <- d:
	default:
		// A previous change is still pending; replace it with the latest.
		select {
		case <-s.intervalCh:
		default:
		}
		select {
		case s.intervalCh <- d:
		default:
		}
	}
}

// pollOnce runs one cycle and returns how long to sleep before the next.
func (s *PollService) pollOnce(ctx context.Context) time.Duration {
	start := time.Now()

	settings, ok := s.loadSettings(ctx)
	if !ok {
		return time.Duration(model.DefaultRefreshInterval) * time.Second
	}
	interval := settings.Interval()

	if !settings.HasTarget() {
		slog.Debug("owner or repo not configured, skipping fetch")
		return interval
	}

	previous := s.state.Get().Status
	current := s.fetchStatus(ctx, settings, interval)

	tr := model.Transition{Previous: previous, Current: current}
	if tr.Completed() {
		success := tr.Success()
		slog.Info("workflow run completed", "repo", settings.FullName(), "status", current, "success", success)
		if err := s.notifier.Notify(ctx, success); err != nil {
			slog.Error("notification failed", "repo", settings.FullName(), "error", err)
		}
	}

	s.state.SetStatus(current)

	slog.Debug("poll cycle complete",
		"repo", settings.FullName(),
		"previous", previous,
		"status", current,
		"duration", time.Since(start).Round(time.Millisecond),
	)

	return interval
}

// loadSettings reads settings from the store and publishes them. On a store
// failure the last published settings are reused; ok is false only when
// nothing was ever loaded.
func (s *PollService) loadSettings(ctx context.Context) (model.Settings, bool) {
	s.cfgMu.Lock()
	defer s.cfgMu.Unlock()

	settings, err := s.settings.FetchAll(ctx)
	if err != nil {
		slog.Error("load settings failed", "error", err)
		return s.state.Get().Settings()
	}

	s.state.SetSettings(settings)
	return settings, true
}

// fetchStatus returns the normalized status of the latest run, or
// model.StatusLoading on any failure.
func (s *PollService) fetchStatus(ctx context.Context, settings model.Settings, interval time.Duration) string {
	timeout := min(s.fetchTimeout, interval)

	fetchCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	run, err := s.fetcher.FetchStatus(fetchCtx, settings)
	if err != nil {
		if errors.Is(err, driven.ErrNoRuns) {
			slog.Warn("no workflow runs found", "repo", settings.FullName())
		} else {
			slog.Error("fetch status failed", "repo", settings.FullName(), "error", err)
		}
		return model.StatusLoading
	}

	return run.String()
}

// resetTimer stops t, drains a pending fire, and re-arms it with d.
func resetTimer(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(d)
}
