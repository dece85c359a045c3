package storage_test

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/myrjola/foundit/internal/random"
	"github.com/myrjola/foundit/internal/storage"
	"github.com/myrjola/foundit/internal/testhelpers"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) (*storage.ImageStore, string) {
	t.Helper()
	bucket, err := random.Letters(12)
	require.NoError(t, err)
	baseURL := "mem://localhost/" + bucket
	return storage.NewImageStore(baseURL, testhelpers.NewLogger(io.Discard)), baseURL
}

func TestImageStore_SaveLoad(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store, baseURL := newStore(t)

	imageURL, err := store.Save(ctx, "wallet.jpg", strings.NewReader("jpeg bytes"))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(imageURL, baseURL+"/item_images/"), imageURL)
	require.True(t, strings.HasSuffix(imageURL, "_wallet.jpg"), imageURL)

	data, err := store.Load(ctx, imageURL)
	require.NoError(t, err)
	require.Equal(t, "jpeg bytes", string(data))

	name := strings.TrimPrefix(imageURL, baseURL+"/item_images/")
	require.Equal(t, imageURL, store.URL(name))

	other, err := store.Save(ctx, "wallet.jpg", strings.NewReader("other bytes"))
	require.NoError(t, err)
	require.NotEqual(t, imageURL, other)
}

func TestImageStore_errors(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store, baseURL := newStore(t)

	_, err := store.Save(ctx, "empty.jpg", strings.NewReader(""))
	require.ErrorIs(t, err, storage.ErrInvalidImage)

	_, err = store.Load(ctx, baseURL+"/item_images/missing.jpg")
	require.ErrorIs(t, err, storage.ErrNotFound)

	_, err = store.Load(ctx, "file:///etc/passwd")
	require.ErrorIs(t, err, storage.ErrNotFound)

	_, err = store.Load(ctx, store.URL(".."))
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestImageStore_sanitizesFilename(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store, baseURL := newStore(t)

	for _, name := range []string{"../../escape.jpg", `C:\photos\phone.png`, ""} {
		imageURL, err := store.Save(ctx, name, strings.NewReader("x"))
		require.NoError(t, err)
		rest := strings.TrimPrefix(imageURL, baseURL+"/item_images/")
		require.NotContains(t, rest, "/", imageURL)
	}
}
