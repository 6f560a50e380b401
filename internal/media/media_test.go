package media

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"coachsite/internal/fixture"
	"coachsite/internal/settings"
	"coachsite/internal/validation"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

type fakeS3 struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.input = in
	f.body, _ = io.ReadAll(in.Body)
	return &s3.PutObjectOutput{}, f.err
}

func newPortraits(t *testing.T, storage Storage, max int64) (*Portraits, *settings.Service) {
	t.Helper()
	logger := zerolog.New(io.Discard)
	svc := settings.NewService(fixture.New(nil), &logger)
	return NewPortraits(storage, svc, max, &logger), svc
}

func TestLocalPut(t *testing.T) {
	dir := t.TempDir()
	l := NewLocal(dir, "/media")

	url, err := l.Put(context.Background(), "portrait/a.png", "image/png", []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, "/media/portrait/a.png", url)

	data, err := os.ReadFile(filepath.Join(dir, "portrait", "a.png"))
	require.NoError(t, err)
	assert.Equal(t, []byte("x"), data)
}

func TestLocalPutStaysInsideDir(t *testing.T) {
	dir := t.TempDir()
	l := NewLocal(filepath.Join(dir, "media"), "/media/")

	url, err := l.Put(context.Background(), "../../escape.png", "image/png", []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, "/media/escape.png", url)
	assert.FileExists(t, filepath.Join(dir, "media", "escape.png"))
}

func TestS3Put(t *testing.T) {
	tests := []struct {
		name    string
		opts    S3Options
		wantURL string
	}{
		{"aws url", S3Options{Bucket: "site", Region: "eu-north-1"}, "https://site.s3.eu-north-1.amazonaws.com/portrait/a.png"},
		{"public url", S3Options{Bucket: "site", PublicURL: "https://cdn.example.com/"}, "https://cdn.example.com/portrait/a.png"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeS3{}
			url, err := NewS3WithClient(fake, tt.opts).Put(context.Background(), "portrait/a.png", "image/png", []byte("abc"))
			require.NoError(t, err)
			assert.Equal(t, tt.wantURL, url)
			assert.Equal(t, "site", aws.ToString(fake.input.Bucket))
			assert.Equal(t, "image/png", aws.ToString(fake.input.ContentType))
			assert.Equal(t, int64(3), aws.ToInt64(fake.input.ContentLength))
			assert.Equal(t, []byte("abc"), fake.body)
		})
	}
}

func TestS3PutError(t *testing.T) {
	fake := &fakeS3{err: errors.New("denied")}
	_, err := NewS3WithClient(fake, S3Options{Bucket: "site"}).Put(context.Background(), "k", "image/png", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "s3://site/k")
}

func TestUploadSavesPortraitURL(t *testing.T) {
	p, svc := newPortraits(t, NewLocal(t.TempDir(), "/media/"), 5<<20)
	ctx := context.Background()

	portrait, err := p.Upload(ctx, bytes.NewReader(append(pngHeader, make([]byte, 64)...)))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(portrait.ImageURL, "/media/portrait/"))
	assert.True(t, strings.HasSuffix(portrait.ImageURL, ".png"))
	assert.Equal(t, "Coach portrait", portrait.AltText)

	stored, err := settings.Load[settings.Portrait](ctx, svc)
	require.NoError(t, err)
	assert.Equal(t, portrait.ImageURL, stored.ImageURL)
}

func TestUploadRejects(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		checkFn func(t *testing.T, err error)
	}{
		{"empty", nil, func(t *testing.T, err error) { assert.True(t, validation.IsValidation(err)) }},
		{"not an image", []byte("%PDF-1.4 plain document"), func(t *testing.T, err error) { assert.True(t, validation.IsValidation(err)) }},
		{"too large", append(pngHeader, make([]byte, 2048)...), func(t *testing.T, err error) { assert.ErrorIs(t, err, ErrTooLarge) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, _ := newPortraits(t, NewLocal(t.TempDir(), "/media/"), 1024)
			_, err := p.Upload(context.Background(), bytes.NewReader(tt.data))
			require.Error(t, err)
			tt.checkFn(t, err)
		})
	}
}
