package media

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weiawesome/microblog/pkg/storage"
)

func sampleImage(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newProcessor(t *testing.T) (*AvatarProcessor, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewLocalStorage(storage.LocalConfig{BasePath: dir, URLPrefix: "/media"})
	require.NoError(t, err)
	return NewAvatarProcessor(store, 0), dir
}

func TestProcess_WritesBothSizes(t *testing.T) {
	p, dir := newProcessor(t)

	avatar, err := p.Process(context.Background(), bytes.NewReader(sampleImage(t, 300, 200)), "alice")
	require.NoError(t, err)

	assert.Equal(t, "avatars/big/alice.png", avatar.Big.Key)
	assert.Equal(t, "avatars/little/alice.png", avatar.Little.Key)
	assert.True(t, strings.HasSuffix(avatar.Big.URL, "avatars/big/alice.png"))

	for key, want := range map[string]int{avatar.Big.Key: 128, avatar.Little.Key: 64} {
		img, err := imaging.Open(filepath.Join(dir, filepath.FromSlash(key)))
		require.NoError(t, err)
		assert.Equal(t, want, img.Bounds().Dx(), key)
		assert.Equal(t, want, img.Bounds().Dy(), key)
	}
}

func TestProcess_ReplacesPreviousUpload(t *testing.T) {
	p, dir := newProcessor(t)
	ctx := context.Background()

	_, err := p.Process(ctx, bytes.NewReader(sampleImage(t, 10, 10)), "bob")
	require.NoError(t, err)
	_, err = p.Process(ctx, bytes.NewReader(sampleImage(t, 40, 20)), "bob")
	require.NoError(t, err)

	entries, err := os.ReadDir(filepath.Join(dir, "avatars", "big"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestProcess_InvalidImage(t *testing.T) {
	p, _ := newProcessor(t)

	_, err := p.Process(context.Background(), strings.NewReader("definitely not an image"), "carol")
	assert.ErrorIs(t, err, ErrInvalidImage)
}

func TestURL(t *testing.T) {
	p, _ := newProcessor(t)

	url, err := p.URL(context.Background(), "dave")
	require.NoError(t, err)
	assert.Equal(t, "/media/avatars/big/dave.png", url)
}
