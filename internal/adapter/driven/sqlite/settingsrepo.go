package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ericfisherdev/actionwatch/internal/domain/model"
	"github.com/ericfisherdev/actionwatch/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.SettingsStore = (*SettingsRepo)(nil)

// Settings columns. Only these names are ever interpolated into SQL.
const (
	colToken           = "token"
	colOwner           = "owner"
	colRepo            = "repo"
	colRefreshInterval = "refresh_interval"
)

// SettingsRepo is the SQLite implementation of the SettingsStore port
// interface. All settings live in the single row of the settings table.
// The token is sealed with AES-256-GCM when a Cipher is configured.
type SettingsRepo struct {
	db     *DB
	cipher *Cipher // nil stores the token as plaintext.
}

// NewSettingsRepo creates a new SettingsRepo backed by the given DB. cipher
// may be nil to disable token encryption.
func NewSettingsRepo(db *DB, cipher *Cipher) *SettingsRepo {
	return &SettingsRepo{db: db, cipher: cipher}
}

// GetToken returns the decrypted token, or "" if none is stored.
func (r *SettingsRepo) GetToken(ctx context.Context) (string, error) {
	var stored string
	if err := r.getColumn(ctx, colToken, &stored); err != nil {
		return "", err
	}
	return r.openToken(stored)
}

// SetToken stores token, encrypting it when a cipher is configured.
func (r *SettingsRepo) SetToken(ctx context.Context, token string) error {
	sealed := token
	if r.cipher != nil {
		var err error
		sealed, err = r.cipher.Encrypt(token)
		if err != nil {
			return fmt.Errorf("encrypt token: %w", err)
		}
	}
	return r.setColumn(ctx, colToken, sealed)
}

// GetOwner returns the stored repository owner.
func (r *SettingsRepo) GetOwner(ctx context.Context) (string, error) {
	var owner string
	err := r.getColumn(ctx, colOwner, &owner)
	return owner, err
}

// SetOwner stores the repository owner.
func (r *SettingsRepo) SetOwner(ctx context.Context, owner string) error {
	return r.setColumn(ctx, colOwner, owner)
}

// GetRepo returns the stored repository name.
func (r *SettingsRepo) GetRepo(ctx context.Context) (string, error) {
	var repo string
	err := r.getColumn(ctx, colRepo, &repo)
	return repo, err
}

// SetRepo stores the repository name.
func (r *SettingsRepo) SetRepo(ctx context.Context, repo string) error {
	return r.setColumn(ctx, colRepo, repo)
}

// GetRefreshInterval returns the stored interval in seconds, clamped to the valid range.
func (r *SettingsRepo) GetRefreshInterval(ctx context.Context) (int, error) {
	seconds := model.DefaultRefreshInterval
	if err := r.getColumn(ctx, colRefreshInterval, &seconds); err != nil {
		return 0, err
	}
	return model.ClampRefreshInterval(seconds), nil
}

// SetRefreshInterval clamps seconds into the valid range and stores it.
func (r *SettingsRepo) SetRefreshInterval(ctx context.Context, seconds int) error {
	return r.setColumn(ctx, colRefreshInterval, model.ClampRefreshInterval(seconds))
}

// FetchAll reads every setting in a single query.
func (r *SettingsRepo) FetchAll(ctx context.Context) (model.Settings, error) {
	const query = `
		SELECT token, owner, repo, refresh_interval
		FROM settings
		WHERE id = 1
	`

	s := model.Settings{RefreshInterval: model.DefaultRefreshInterval}
	var stored string

	err := r.db.Reader.QueryRowContext(ctx, query).Scan(&stored, &s.Owner, &s.Repo, &s.RefreshInterval)
	if errors.Is(err, sql.ErrNoRows) {
		return s, nil
	}
	if err != nil {
		return model.Settings{}, fmt.Errorf("fetch settings: %w", err)
	}

	s.Token, err = r.openToken(stored)
	if err != nil {
		return model.Settings{}, err
	}
	s.RefreshInterval = model.ClampRefreshInterval(s.RefreshInterval)

	return s, nil
}

// getColumn scans a single settings column into dest. dest keeps its
// current value (the default) when the row does not exist.
func (r *SettingsRepo) getColumn(ctx context.Context, column string, dest any) error {
	query := fmt.Sprintf(`SELECT %s FROM settings WHERE id = 1`, column)

	err := r.db.Reader.QueryRowContext(ctx, query).Scan(dest)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("get %s: %w", column, err)
	}
	return nil
}

// setColumn upserts a single settings column. On conflict only that column
// and updated_at change.
func (r *SettingsRepo) setColumn(ctx context.Context, column string, value any) error {
	query := fmt.Sprintf(`
		INSERT INTO settings (id, %[1]s)
		VALUES (1, ?)
		ON CONFLICT(id) DO UPDATE SET
			%[1]s = excluded.%[1]s,
			updated_at = CURRENT_TIMESTAMP
	`, column)

	if _, err := r.db.Writer.ExecContext(ctx, query, value); err != nil {
		return fmt.Errorf("set %s: %w", column, err)
	}
	return nil
}

// openToken decrypts a stored token when needed.
func (r *SettingsRepo) openToken(stored string) (string, error) {
	if !isEncrypted(stored) {
		return stored, nil
	}
	if r.cipher == nil {
		return "", ErrEncryptionKeyNotSet
	}

	token, err := r.cipher.Decrypt(stored)
	if err != nil {
		return "", fmt.Errorf("decrypt token: %w", err)
	}
	return token, nil
}
