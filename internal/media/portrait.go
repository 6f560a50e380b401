package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"coachsite/internal/settings"
	"coachsite/internal/validation"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrTooLarge is returned for uploads over the size limit.
var ErrTooLarge = errors.New("file too large")

var imageExt = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// Portraits handles the coach portrait upload.
type Portraits struct {
	storage  Storage
	settings *settings.Service
	maxBytes int64
	logger   zerolog.Logger
}

func NewPortraits(storage Storage, svc *settings.Service, maxBytes int64, logger *zerolog.Logger) *Portraits {
	return &Portraits{
		storage:  storage,
		settings: svc,
		maxBytes: maxBytes,
		logger:   logger.With().Str("component", "media").Logger(),
	}
}

// MaxBytes is the upload limit.
func (p *Portraits) MaxBytes() int64 { return p.maxBytes }

// Upload stores an image read from r and records its URL in the portrait settings.
func (p *Portraits) Upload(ctx context.Context, r io.Reader) (settings.Portrait, error) {
	data, err := io.ReadAll(io.LimitReader(r, p.maxBytes+1))
	if err != nil {
		return settings.Portrait{}, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > p.maxBytes {
		return settings.Portrait{}, fmt.Errorf("%w: limit is %d MB", ErrTooLarge, p.maxBytes>>20)
	}
	if len(data) == 0 {
		return settings.Portrait{}, validation.Invalid("file", "is empty")
	}

	contentType := http.DetectContentType(data)
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}
	ext, ok := imageExt[contentType]
	if !ok {
		return settings.Portrait{}, validation.Invalid("file", "must be a JPEG, PNG, GIF or WebP image")
	}

	key := "portrait/" + uuid.NewString() + ext
	url, err := p.storage.Put(ctx, key, contentType, data)
	if err != nil {
		return settings.Portrait{}, err
	}

	portrait, err := settings.Load[settings.Portrait](ctx, p.settings)
	if err != nil {
		return settings.Portrait{}, err
	}
	portrait.ImageURL = url
	if err := settings.Save(ctx, p.settings, portrait); err != nil {
		return settings.Portrait{}, err
	}

	p.logger.Info().Str("url", url).Int("bytes", len(data)).Msg("portrait uploaded")
	return portrait, nil
}
