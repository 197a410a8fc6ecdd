// Package media produces avatar derivatives from uploaded images.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/disintegration/imaging"

	pkglog "github.com/weiawesome/microblog/pkg/log"
	"github.com/weiawesome/microblog/pkg/storage"
)

// ErrInvalidImage is returned when the upload cannot be decoded.
var ErrInvalidImage = errors.New("invalid image")

// sizeSpec holds the target dimensions for a single avatar variant.
type sizeSpec struct {
	name   string
	width  int
	height int
}

var avatarSizes = []sizeSpec{
	{name: "big", width: 128, height: 128},
	{name: "little", width: 64, height: 64},
}

// Derivative is one stored avatar variant.
type Derivative struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

// Avatar holds the stored variants of one upload.
type Avatar struct {
	Big    Derivative `json:"big"`
	Little Derivative `json:"little"`
}

// AvatarProcessor resizes uploads and writes the variants to storage.
type AvatarProcessor struct {
	storage storage.Storage
	urlTTL  time.Duration
}

// NewAvatarProcessor creates an AvatarProcessor. urlTTL bounds presigned
// URLs on storage backends that sign them.
func NewAvatarProcessor(store storage.Storage, urlTTL time.Duration) *AvatarProcessor {
	if urlTTL <= 0 {
		urlTTL = 24 * time.Hour
	}
	return &AvatarProcessor{storage: store, urlTTL: urlTTL}
}

// Key returns the storage key of a variant.
func Key(size, username string) string {
	return fmt.Sprintf("avatars/%s/%s.png", size, username)
}

// Process decodes raw and stores a 128x128 and a 64x64 PNG for username,
// replacing earlier uploads. The image is scaled without cropping.
func (p *AvatarProcessor) Process(ctx context.Context, raw io.Reader, username string) (*Avatar, error) {
	l := pkglog.Ctx(ctx)

	img, err := imaging.Decode(raw, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	out := make(map[string]Derivative, len(avatarSizes))
	for _, sz := range avatarSizes {
		resized := imaging.Resize(img, sz.width, sz.height, imaging.Lanczos)

		var buf bytes.Buffer
		if err := imaging.Encode(&buf, resized, imaging.PNG); err != nil {
			return nil, fmt.Errorf("encode %s: %w", sz.name, err)
		}

		key := Key(sz.name, username)
		if err := p.storage.Write(ctx, key, bytes.NewReader(buf.Bytes()), int64(buf.Len()), "image/png"); err != nil {
			return nil, fmt.Errorf("upload %s: %w", sz.name, err)
		}

		url, err := p.storage.URL(ctx, key, p.urlTTL)
		if err != nil {
			return nil, fmt.Errorf("url %s: %w", sz.name, err)
		}

		out[sz.name] = Derivative{Key: key, URL: url}
		l.Debug().Str("size", sz.name).Str("key", key).Msg("stored avatar variant")
	}

	return &Avatar{Big: out["big"], Little: out["little"]}, nil
}

// URL returns where the big avatar of username is served from.
func (p *AvatarProcessor) URL(ctx context.Context, username string) (string, error) {
	return p.storage.URL(ctx, Key("big", username), p.urlTTL)
}
