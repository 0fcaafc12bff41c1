// Package github implements the StatusFetcher port using the go-github library.
package github

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	gh "github.com/google/go-github/v82/github"
	"github.com/gregjones/httpcache"

	"github.com/gofri/go-github-ratelimit/v2/github_ratelimit"

	"github.com/ericfisherdev/actionwatch/internal/domain/model"
	"github.com/ericfisherdev/actionwatch/internal/domain/port/driven"
)

// DefaultBaseURL is the public GitHub REST API root.
const DefaultBaseURL = "https://api.github.com/"

// Request headers sent on every Actions API call.
const (
	apiVersion   = "2022-11-28"
	acceptHeader = "application/vnd.github+json"
)

// Compile-time interface satisfaction check.
var _ driven.StatusFetcher = (*Client)(nil)

// Client implements the driven.StatusFetcher port. The token lives in the
// settings passed to each call, so the underlying go-github client is
// rebuilt whenever the token changes and reused otherwise.
type Client struct {
	httpClient *http.Client
	baseURL    *url.URL

	mu     sync.Mutex
	cached *gh.Client
	token  string // Token the cached client was built with.
}

// NewClient creates a new GitHub API client with the following transport stack:
//  1. httpcache (ETag-based conditional request caching, always revalidated)
//  2. go-github-ratelimit (secondary rate limit middleware, sleeps on 429)
//  3. fixed API-version and Accept headers
//  4. go-github (GitHub REST API client, bearer auth when a token is set)
func NewClient(baseURL string) (*Client, error) {
	cacheTransport := httpcache.NewMemoryCacheTransport()
	rateLimitClient := github_ratelimit.NewClient(cacheTransport)
	return NewClientWithHTTPClient(rateLimitClient, baseURL)
}

// NewClientWithHTTPClient creates a Client with a custom http.Client and base URL.
// Tests use it to point the client at an httptest server.
func NewClientWithHTTPClient(httpClient *http.Client, baseURL string) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}

	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}

	hc := *httpClient
	base := hc.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	hc.Transport = &headerTransport{base: base}

	return &Client{
		httpClient: &hc,
		baseURL:    u,
	}, nil
}

// FetchStatus returns the status of the most recent workflow run of
// settings.Owner/settings.Repo. The Actions API lists runs newest first, so
// only the first entry is requested. An empty list yields driven.ErrNoRuns.
func (c *Client) FetchStatus(ctx context.Context, settings model.Settings) (model.RunStatus, error) {
	repoFullName := settings.FullName()

	opts := &gh.ListWorkflowRunsOptions{
		ListOptions: gh.ListOptions{PerPage: 1},
	}

	runs, resp, err := c.clientFor(settings.Token).Actions.ListRepositoryWorkflowRuns(ctx, settings.Owner, settings.Repo, opts)
	if err != nil {
		return model.RunStatus{}, fmt.Errorf("listing workflow runs for %s: %w", repoFullName, err)
	}

	if runs == nil || len(runs.WorkflowRuns) == 0 || runs.WorkflowRuns[0] == nil {
		return model.RunStatus{}, fmt.Errorf("listing workflow runs for %s: %w", repoFullName, driven.ErrNoRuns)
	}

	logRateLimit(resp, repoFullName+"/actions/runs", runs.GetTotalCount())

	return mapWorkflowRun(runs.WorkflowRuns[0]), nil
}

// clientFor returns a go-github client authorized with token, or an
// unauthenticated one when token is empty.
func (c *Client) clientFor(token string) *gh.Client {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cached != nil && c.token == token {
		return c.cached
	}

	client := gh.NewClient(c.httpClient)
	client.BaseURL = c.baseURL
	if token != "" {
		client = client.WithAuthToken(token)
	}

	c.cached = client
	c.token = token
	return client
}

// mapWorkflowRun converts a go-github WorkflowRun to a domain model RunStatus.
// It uses GetXxx() helper methods exclusively to avoid nil pointer panics.
func mapWorkflowRun(run *gh.WorkflowRun) model.RunStatus {
	return model.RunStatus{
		ID:         run.GetID(),
		Status:     run.GetStatus(),
		Conclusion: run.GetConclusion(),
	}
}

// logRateLimit logs the GitHub API rate limit status after each call.
func logRateLimit(resp *gh.Response, endpoint string, total int) {
	if resp == nil {
		return
	}

	slog.Debug("github api call",
		"endpoint", endpoint,
		"total_runs", total,
		"rate_remaining", resp.Rate.Remaining,
		"rate_limit", resp.Rate.Limit,
	)

	if resp.Rate.Limit > 0 && resp.Rate.Remaining < 10 {
		slog.Warn("github rate limit low",
			"remaining", resp.Rate.Remaining,
			"reset_in", time.Until(resp.Rate.Reset.Time).Round(time.Second),
		)
	}
}

// headerTransport pins the API version and media type on every request. It
// also marks every request max-age=0: GitHub answers run listings with
// "private, max-age=60", and without it httpcache would serve a cached run
// for up to a minute instead of revalidating with If-None-Match.
type headerTransport struct {
	base http.RoundTripper
}

// RoundTrip sets the headers on a clone of req and delegates to base.
func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	r.Header.Set("X-GitHub-Api-Version", apiVersion)
	r.Header.Set("Accept", acceptHeader)
	r.Header.Set("Cache-Control", "max-age=0")
	return t.base.RoundTrip(r)
}
