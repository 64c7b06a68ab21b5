package credstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/notebooklm-cli/internal/domain"
)

func testBundle() domain.Credentials {
	return domain.Credentials{
		Cookies: map[string]string{
			"SID": "s", "HSID": "h", "SSID": "ss", "APISID": "a", "SAPISID": "sa",
		},
		CSRFToken:  "tok",
		SessionID:  "sid",
		CapturedAt: time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auth.json")
	store := New(path)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, testBundle()))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, testBundle(), loaded)
}

func TestSaveSetsOwnerOnlyPermissions(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	path := filepath.Join(dir, "auth.json")
	store := New(path)

	require.NoError(t, store.Save(context.Background(), testBundle()))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	dirInfo, err := os.Stat(dir)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o700), dirInfo.Mode().Perm())
}

func TestSaveLeavesNoTempFileBehind(t *testing.T) {
	dir := t.TempDir()
	store := New(filepath.Join(dir, "auth.json"))

	require.NoError(t, store.Save(context.Background(), testBundle()))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "auth.json", entries[0].Name())
}

func TestLoadMissingFile(t *testing.T) {
	store := New(filepath.Join(t.TempDir(), "auth.json"))

	_, err := store.Load(context.Background())
	assert.ErrorIs(t, err, domain.ErrCredentialsNotFound)
}

func TestLoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auth.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := New(path).Load(context.Background())
	assert.ErrorIs(t, err, domain.ErrCredentialsNotFound)
}

func TestLoadEmptyCookies(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auth.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"cookies":{},"csrf_token":"t"}`), 0o600))

	_, err := New(path).Load(context.Background())
	assert.ErrorIs(t, err, domain.ErrCredentialsNotFound)
}

func TestDeleteIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auth.json")
	store := New(path)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, testBundle()))
	require.NoError(t, store.Delete(ctx))
	require.NoError(t, store.Delete(ctx))

	_, err := store.Load(ctx)
	assert.ErrorIs(t, err, domain.ErrCredentialsNotFound)
}
