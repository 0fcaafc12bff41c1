package application

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ericfisherdev/actionwatch/internal/domain/model"
)

// StateStore holds the single current model.State snapshot. Readers load an
// immutable snapshot through an atomic pointer and never block; writers are
// serialized by a mutex so read-modify-write updates are never lost.
type StateStore struct {
	current atomic.Pointer[model.State]

	mu   sync.Mutex // Serializes writers and guards subs.
	subs map[chan model.State]struct{}
	now  func() time.Time
}

// NewStateStore creates a StateStore holding model.NewState().
func NewStateStore() *StateStore {
	s := &StateStore{
		subs: make(map[chan model.State]struct{}),
		now:  time.Now,
	}
	initial := model.NewState()
	s.current.Store(&initial)
	return s
}

// Get returns the current snapshot.
func (s *StateStore) Get() model.State {
	return *s.current.Load()
}

// Update applies fn to the current snapshot and publishes the result.
// fn runs under the writer lock and must not call back into the store.
func (s *StateStore) Update(fn func(model.State) model.State) model.State {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := fn(*s.current.Load())
	next.UpdatedAt = s.now()
	s.current.Store(&next)

	for ch := range s.subs {
		offer(ch, next)
	}

	return next
}

// SetStatus publishes a new status, keeping the current settings.
func (s *StateStore) SetStatus(status string) model.State {
	return s.Update(func(st model.State) model.State {
		return st.WithStatus(status)
	})
}

// SetSettings publishes new settings, keeping the current status.
func (s *StateStore) SetSettings(settings model.Settings) model.State {
	return s.Update(func(st model.State) model.State {
		return st.WithSettings(settings)
	})
}

// Subscribe returns a channel that receives the current snapshot immediately
// and every subsequent one. Delivery is latest-wins: a slow reader only ever
// misses intermediate snapshots, never the newest. The channel is closed
// when ctx is canceled.
func (s *StateStore) Subscribe(ctx context.Context) <-chan model.State {
	ch := make(chan model.State, 1)

	s.mu.Lock()
	s.subs[ch] = struct{}{}
	ch <- *s.current.Load()
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.subs, ch)
		close(ch)
		s.mu.Unlock()
	}()

	return ch
}

// offer delivers st to a buffered channel of capacity 1, replacing any
// snapshot the subscriber has not read yet. Callers hold s.mu.
func offer(ch chan model.State, st model.State) {
	for {
		select {
		case ch <- st:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}
