// Package ghauth seeds the stored GitHub token from the gh CLI credentials.
package ghauth

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/cli/go-gh/v2/pkg/auth"

	"github.com/ericfisherdev/actionwatch/internal/domain/port/driven"
)

// Lookup returns a token for host and a description of where it came from.
// An empty token means none was found.
type Lookup func(host string) (token string, source string)

// DefaultLookup reads GH_TOKEN, GITHUB_TOKEN, the gh config file and the
// system keyring, in the order gh itself uses.
var DefaultLookup Lookup = auth.TokenForHost

// HostFromAPIURL maps a REST API base URL to the host gh stores credentials
// under. The public API lives on api.github.com but gh keys it as github.com.
func HostFromAPIURL(apiURL string) string {
	u, err := url.Parse(apiURL)
	if err != nil || u.Hostname() == "" {
		return "github.com"
	}
	host := strings.ToLower(u.Hostname())
	if host == "api.github.com" {
		return "github.com"
	}
	return host
}

// SeedToken stores the gh token for host when the store has no token yet.
// It reports whether a token was written. A populated store is never
// overwritten.
func SeedToken(ctx context.Context, store driven.SettingsStore, host string, lookup Lookup, logger *slog.Logger) (bool, error) {
	current, err := store.GetToken(ctx)
	if err != nil {
		return false, fmt.Errorf("read stored token: %w", err)
	}
	if current != "" {
		return false, nil
	}

	token, source := lookup(host)
	if token == "" {
		logger.Info("no gh credentials found", "host", host)
		return false, nil
	}

	if err := store.SetToken(ctx, token); err != nil {
		return false, fmt.Errorf("store gh token: %w", err)
	}

	logger.Info("seeded github token from gh", "host", host, "source", source)
	return true, nil
}
