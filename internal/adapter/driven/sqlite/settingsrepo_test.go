package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/actionwatch/internal/domain/model"
)

func TestSettingsRepo_Defaults(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSettingsRepo(db, nil)
	ctx := context.Background()

	settings, err := repo.FetchAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.Settings{RefreshInterval: model.DefaultRefreshInterval}, settings)

	interval, err := repo.GetRefreshInterval(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.DefaultRefreshInterval, interval)
}

func TestSettingsRepo_StringRoundTrip(t *testing.T) {
	values := []string{"", "octo-org", "Hello World", "o'reilly", `"quoted"`, "ünïcødé", "a/b?c=d&e", "null"}

	db := setupTestDB(t)
	repo := NewSettingsRepo(db, nil)
	ctx := context.Background()

	for _, v := range values {
		require.NoError(t, repo.SetOwner(ctx, v))
		got, err := repo.GetOwner(ctx)
		require.NoError(t, err)
		assert.Equal(t, v, got, "owner round trip")

		require.NoError(t, repo.SetRepo(ctx, v))
		got, err = repo.GetRepo(ctx)
		require.NoError(t, err)
		assert.Equal(t, v, got, "repo round trip")

		require.NoError(t, repo.SetToken(ctx, v))
		got, err = repo.GetToken(ctx)
		require.NoError(t, err)
		assert.Equal(t, v, got, "token round trip")
	}
}

func TestSettingsRepo_SettersAreIndependent(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSettingsRepo(db, nil)
	ctx := context.Background()

	require.NoError(t, repo.SetToken(ctx, "ghp_abc"))
	require.NoError(t, repo.SetOwner(ctx, "octo"))
	require.NoError(t, repo.SetRepo(ctx, "hello"))
	require.NoError(t, repo.SetRefreshInterval(ctx, 30))

	require.NoError(t, repo.SetOwner(ctx, "hubot"))

	settings, err := repo.FetchAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.Settings{Token: "ghp_abc", Owner: "hubot", Repo: "hello", RefreshInterval: 30}, settings)
}

func TestSettingsRepo_RefreshIntervalClamped(t *testing.T) {
	tests := []struct {
		in   int
		want int
	}{
		{in: 0, want: 5},
		{in: 4, want: 5},
		{in: 5, want: 5},
		{in: 45, want: 45},
		{in: 60, want: 60},
		{in: 61, want: 60},
		{in: 3600, want: 60},
	}

	db := setupTestDB(t)
	repo := NewSettingsRepo(db, nil)
	ctx := context.Background()

	for _, tt := range tests {
		require.NoError(t, repo.SetRefreshInterval(ctx, tt.in))

		got, err := repo.GetRefreshInterval(ctx)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "input %d", tt.in)

		all, err := repo.FetchAll(ctx)
		require.NoError(t, err)
		assert.Equal(t, tt.want, all.RefreshInterval, "input %d", tt.in)
	}
}

func TestSettingsRepo_TokenEncryptedAtRest(t *testing.T) {
	db := setupTestDB(t)
	c, err := NewCipher(testKey())
	require.NoError(t, err)
	repo := NewSettingsRepo(db, c)
	ctx := context.Background()

	require.NoError(t, repo.SetToken(ctx, "ghp_secret"))

	var raw string
	err = db.Reader.QueryRowContext(ctx, `SELECT token FROM settings WHERE id = 1`).Scan(&raw)
	require.NoError(t, err)
	assert.NotContains(t, raw, "ghp_secret")
	assert.True(t, isEncrypted(raw))

	token, err := repo.GetToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ghp_secret", token)

	all, err := repo.FetchAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ghp_secret", all.Token)
}

func TestSettingsRepo_EncryptedTokenWithoutKey(t *testing.T) {
	db := setupTestDB(t)
	c, err := NewCipher(testKey())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, NewSettingsRepo(db, c).SetToken(ctx, "ghp_secret"))

	plainRepo := NewSettingsRepo(db, nil)
	_, err = plainRepo.GetToken(ctx)
	assert.ErrorIs(t, err, ErrEncryptionKeyNotSet)

	_, err = plainRepo.FetchAll(ctx)
	assert.ErrorIs(t, err, ErrEncryptionKeyNotSet)
}

func TestSettingsRepo_PlaintextTokenReadableWithKey(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, NewSettingsRepo(db, nil).SetToken(ctx, "legacy"))

	c, err := NewCipher(testKey())
	require.NoError(t, err)
	token, err := NewSettingsRepo(db, c).GetToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "legacy", token)
}

func TestSettingsRepo_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "actionwatch.db")

	db, err := NewDB(ctx, path)
	require.NoError(t, err)
	require.NoError(t, RunMigrations(db.Writer))

	repo := NewSettingsRepo(db, nil)
	require.NoError(t, repo.SetOwner(ctx, "octo"))
	require.NoError(t, repo.SetRepo(ctx, "hello"))
	require.NoError(t, repo.SetRefreshInterval(ctx, 20))
	require.NoError(t, db.Close())

	reopened, err := NewDB(ctx, path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })
	require.NoError(t, RunMigrations(reopened.Writer), "re-running migrations must be a no-op")

	settings, err := NewSettingsRepo(reopened, nil).FetchAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.Settings{Owner: "octo", Repo: "hello", RefreshInterval: 20}, settings)
	assert.Equal(t, path, reopened.Path())
}
