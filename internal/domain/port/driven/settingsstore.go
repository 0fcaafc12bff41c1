// Package driven declares the ports the application layer depends on.
package driven

import (
	"context"
	"errors"

	"github.com/ericfisherdev/actionwatch/internal/domain/model"
)

// ErrEncryptionKeyInvalid is returned when a configured secret key is not a
// 32-byte AES-256 key.
var ErrEncryptionKeyInvalid = errors.New("encryption key must be 32 bytes (64 hex characters)")

// SettingsStore defines the driven port for durable settings persistence.
// Values survive process restarts. Missing values read as their defaults:
// empty strings and model.DefaultRefreshInterval.
type SettingsStore interface {
	GetToken(ctx context.Context) (string, error)
	SetToken(ctx context.Context, token string) error

	GetOwner(ctx context.Context) (string, error)
	SetOwner(ctx context.Context, owner string) error

	GetRepo(ctx context.Context) (string, error)
	SetRepo(ctx context.Context, repo string) error

	// GetRefreshInterval and SetRefreshInterval work in seconds. Both clamp
	// to [model.MinRefreshInterval, model.MaxRefreshInterval].
	GetRefreshInterval(ctx context.Context) (int, error)
	SetRefreshInterval(ctx context.Context, seconds int) error

	// FetchAll reads every field in one call.
	FetchAll(ctx context.Context) (model.Settings, error)
}
