package httphandler

import (
	"context"
	"net"
	"net/http"
	"time"
)

// NewServer returns an http.Server for h with the service's timeouts. Every
// request context derives from ctx, so canceling ctx ends long-lived status
// streams and lets Shutdown drain instead of waiting out its deadline.
func NewServer(ctx context.Context, addr string, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
}
