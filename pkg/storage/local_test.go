package storage

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorage(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := NewLocalStorage(LocalConfig{BasePath: dir, URLPrefix: "files/"})
	require.NoError(t, err)
	assert.Equal(t, "/files", s.URLPrefix())

	key := "avatars/big/susan.png"
	require.NoError(t, s.Write(ctx, key, strings.NewReader("png-bytes"), -1, "image/png"))
	assert.FileExists(t, filepath.Join(dir, "avatars", "big", "susan.png"))

	ok, err := s.Exists(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)

	rc, err := s.Read(ctx, key)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))

	require.NoError(t, s.Write(ctx, key, strings.NewReader("replaced"), -1, "image/png"))
	rc, err = s.Read(ctx, key)
	require.NoError(t, err)
	data, _ = io.ReadAll(rc)
	rc.Close()
	assert.Equal(t, "replaced", string(data))

	url, err := s.URL(ctx, key, 0)
	require.NoError(t, err)
	assert.Equal(t, "/files/avatars/big/susan.png", url)

	require.NoError(t, s.Delete(ctx, key))
	require.NoError(t, s.Delete(ctx, key))
	ok, err = s.Exists(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.Read(ctx, key)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocalStorageRejectsEscapingKeys(t *testing.T) {
	s, err := NewLocalStorage(LocalConfig{BasePath: t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, "/media", s.URLPrefix())

	for _, key := range []string{"../secret", "a/../../secret", ".."} {
		err := s.Write(context.Background(), key, strings.NewReader("x"), -1, "")
		assert.Error(t, err, key)
	}
}
