package upload

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/example/foodshop/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var (
	pngBytes  = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), make([]byte, 32)...)
	gifBytes  = append([]byte("GIF89a"), make([]byte, 32)...)
	jpegBytes = append([]byte{0xFF, 0xD8, 0xFF, 0xE0}, make([]byte, 32)...)
)

func newTestUploader(t *testing.T, maxSize int64) (*Uploader, *LocalStorage) {
	t.Helper()
	storage, err := NewLocalStorage(t.TempDir(), "http://localhost:8080/uploads/")
	require.NoError(t, err)

	cfg := &config.UploadConfig{
		MaxSize:      maxSize,
		AllowedTypes: []string{"image/jpeg", "image/jpg", "image/png", "image/webp", "image/gif"},
	}
	return NewUploader(cfg, storage, zap.NewNop()), storage
}

func TestUploader_Accepts(t *testing.T) {
	u, storage := newTestUploader(t, 5<<20)
	ctx := context.Background()

	for name, data := range map[string][]byte{"png": pngBytes, "gif": gifBytes, "jpeg": jpegBytes} {
		t.Run(name, func(t *testing.T) {
			url, err := u.Upload(ctx, "photo."+name, "", bytes.NewReader(data))
			require.NoError(t, err)
			assert.True(t, strings.HasPrefix(url, "http://localhost:8080/uploads/"), url)

			stored, err := os.ReadFile(filepath.Join(storage.Dir(), filepath.Base(url)))
			require.NoError(t, err)
			assert.Equal(t, data, stored)
		})
	}
}

func TestUploader_Rejects(t *testing.T) {
	u, _ := newTestUploader(t, 64)
	ctx := context.Background()

	tests := []struct {
		name     string
		declared string
		data     []byte
		want     error
	}{
		{"empty", "image/png", nil, ErrNoFile},
		{"text content", "", []byte("just some words, not an image"), ErrInvalidType},
		{"declared pdf", "application/pdf", pngBytes, ErrInvalidType},
		{"too large", "image/png", append(append([]byte{}, pngBytes...), make([]byte, 64)...), ErrTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := u.Upload(ctx, "f", tt.declared, bytes.NewReader(tt.data))
			assert.ErrorIs(t, err, tt.want)
		})
	}

	_, err := u.Upload(ctx, "f", "", nil)
	assert.ErrorIs(t, err, ErrNoFile)
}

func TestUploader_DeclaredTypeWithParams(t *testing.T) {
	u, _ := newTestUploader(t, 5<<20)
	_, err := u.Upload(context.Background(), "a.png", "image/png; charset=binary", bytes.NewReader(pngBytes))
	assert.NoError(t, err)
}

func TestLocalStorage_Delete(t *testing.T) {
	u, storage := newTestUploader(t, 5<<20)
	ctx := context.Background()

	url, err := u.Upload(ctx, "a.png", "image/png", bytes.NewReader(pngBytes))
	require.NoError(t, err)

	require.NoError(t, u.Delete(ctx, url))
	_, err = os.Stat(filepath.Join(storage.Dir(), filepath.Base(url)))
	assert.True(t, os.IsNotExist(err))

	assert.NoError(t, u.Delete(ctx, url), "deleting twice is not an error")
	assert.ErrorIs(t, u.Delete(ctx, "https://elsewhere.example.com/a.png"), ErrForeignURL)
	assert.ErrorIs(t, u.Delete(ctx, "http://localhost:8080/uploads/.."), ErrForeignURL)
}

func TestMessage(t *testing.T) {
	assert.Equal(t, "File size too large. Maximum size is 5MB.", Message(ErrTooLarge, 5<<20))
	assert.Equal(t, "Invalid file type. Only JPEG, PNG, WebP, and GIF are allowed.", Message(ErrInvalidType, 5<<20))
	assert.Equal(t, "No file uploaded", Message(ErrNoFile, 5<<20))
	assert.Equal(t, "Upload failed", Message(errors.New("disk full"), 5<<20))
}
