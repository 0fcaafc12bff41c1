package application_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/actionwatch/internal/application"
	"github.com/ericfisherdev/actionwatch/internal/domain/model"
)

func TestStateStore_Initial(t *testing.T) {
	store := application.NewStateStore()

	st := store.Get()
	assert.Equal(t, model.StatusLoading, st.Status)
	assert.False(t, st.Loaded())
}

func TestStateStore_SetStatusKeepsSettings(t *testing.T) {
	store := application.NewStateStore()
	store.SetSettings(model.Settings{Owner: "octo", Repo: "hello", RefreshInterval: 10})
	store.SetStatus("in progress")

	st := store.Get()
	assert.Equal(t, "in progress", st.Status)
	s, ok := st.Settings()
	require.True(t, ok)
	assert.Equal(t, "octo", s.Owner)
	assert.False(t, st.UpdatedAt.IsZero())
}

func TestStateStore_ConcurrentUpdatesAreNotLost(t *testing.T) {
	store := application.NewStateStore()
	store.SetSettings(model.Settings{RefreshInterval: 5})

	const n = 50
	var wg sync.WaitGroup
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			store.Update(func(st model.State) model.State {
				s, _ := st.Settings()
				s.RefreshInterval++
				return st.WithSettings(s)
			})
		}()
	}
	wg.Wait()

	s, _ := store.Get().Settings()
	assert.Equal(t, 5+n, s.RefreshInterval)
}

func TestStateStore_SubscribeReceivesLatest(t *testing.T) {
	store := application.NewStateStore()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := store.Subscribe(ctx)

	initial := <-ch
	assert.Equal(t, model.StatusLoading, initial.Status)

	// Without reading in between, only the newest snapshot is kept.
	for i := range 5 {
		store.SetStatus(fmt.Sprintf("status %d", i))
	}

	select {
	case st := <-ch:
		assert.Equal(t, "status 4", st.Status)
	case <-time.After(time.Second):
		t.Fatal("no snapshot delivered")
	}
}

func TestStateStore_SubscribeClosesOnCancel(t *testing.T) {
	store := application.NewStateStore()
	ctx, cancel := context.WithCancel(context.Background())

	ch := store.Subscribe(ctx)
	<-ch
	cancel()

	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("channel not closed after cancel")
	}

	// Publishing after the subscriber is gone must not block or panic.
	store.SetStatus("completed success")
}
