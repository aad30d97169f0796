package filevault_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/MensaSverige/swagapp-sub001/credentials"
	"github.com/MensaSverige/swagapp-sub001/credentials/filevault"
	"github.com/stretchr/testify/require"
)

func TestStore_PersistsAcrossOpen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "credentials.vault")

	s, err := filevault.Open(path, "correct horse")
	require.NoError(t, err)

	_, err = s.Load(ctx, credentials.KindAccessToken)
	require.True(t, errors.Is(err, credentials.ErrNotFound))

	require.NoError(t, s.Save(ctx, credentials.KindAccessToken, "access-1"))
	require.NoError(t, s.Save(ctx, credentials.KindRefreshToken, "refresh-1"))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NotContains(t, string(raw), "access-1")

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	reopened, err := filevault.Open(path, "correct horse")
	require.NoError(t, err)
	secret, err := reopened.Load(ctx, credentials.KindRefreshToken)
	require.NoError(t, err)
	require.Equal(t, "refresh-1", secret)

	require.NoError(t, reopened.Erase(ctx, credentials.KindRefreshToken))
	require.NoError(t, reopened.Erase(ctx, credentials.KindRefreshToken))

	again, err := filevault.Open(path, "correct horse")
	require.NoError(t, err)
	_, err = again.Load(ctx, credentials.KindRefreshToken)
	require.True(t, errors.Is(err, credentials.ErrNotFound))
}

func TestStore_WrongPassphrase(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "credentials.vault")

	s, err := filevault.Open(path, "right")
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, credentials.KindAccessToken, "secret"))

	wrong, err := filevault.Open(path, "wrong")
	require.NoError(t, err)
	_, err = wrong.Load(ctx, credentials.KindAccessToken)
	require.ErrorIs(t, err, filevault.ErrDecrypt)
}

func TestStore_RejectsEmptyPassphraseAndCorruptFile(t *testing.T) {
	_, err := filevault.Open(filepath.Join(t.TempDir(), "v"), "")
	require.Error(t, err)

	path := filepath.Join(t.TempDir(), "credentials.vault")
	require.NoError(t, os.WriteFile(path, []byte("nope"), 0o600))
	_, err = filevault.Open(path, "pass")
	require.Error(t, err)
}
