package httphandler_test

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httphandler "github.com/ericfisherdev/actionwatch/internal/adapter/driving/http"
)

func TestNewServer_Timeouts(t *testing.T) {
	srv := httphandler.NewServer(context.Background(), ":0", http.NewServeMux())

	assert.Equal(t, ":0", srv.Addr)
	assert.Equal(t, 5*time.Second, srv.ReadHeaderTimeout)
	assert.Equal(t, 30*time.Second, srv.WriteTimeout)
	require.NotNil(t, srv.BaseContext)
}

func TestNewServer_ShutdownEndsOpenStreams(t *testing.T) {
	engine := newFakeEngine()
	engine.state.SetSettings(loadedSettings)

	serverCtx, cancelServer := context.WithCancel(context.Background())
	defer cancelServer()

	server := httptest.NewUnstartedServer(nil)
	server.Config = httphandler.NewServer(serverCtx, "", setupMux(engine))
	server.Start()
	t.Cleanup(server.Close)

	resp, err := server.Client().Get(server.URL + "/api/v1/status/stream")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	streamDone := make(chan struct{})
	firstEvent := make(chan struct{})
	go func() {
		defer close(streamDone)
		scanner := bufio.NewScanner(resp.Body)
		sent := false
		for scanner.Scan() {
			if !sent && strings.HasPrefix(scanner.Text(), "data: ") {
				close(firstEvent)
				sent = true
			}
		}
	}()

	select {
	case <-firstEvent:
	case <-time.After(5 * time.Second):
		t.Fatal("no event received on the stream")
	}

	// The process cancels its root context before shutting the server down.
	cancelServer()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	start := time.Now()
	require.NoError(t, server.Config.Shutdown(shutdownCtx))
	assert.Less(t, time.Since(start), 2*time.Second)

	select {
	case <-streamDone:
	case <-time.After(2 * time.Second):
		t.Fatal("stream still open after shutdown")
	}
}
