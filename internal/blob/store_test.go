package blob

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/regenpgc/trialbase/internal/conf"
	"github.com/regenpgc/trialbase/internal/errors"
)

// storeContract runs the behavior every Store implementation shares.
func storeContract(t *testing.T, store Store) {
	t.Helper()
	ctx := t.Context()

	info, err := store.Put(ctx, "images/img1/leaf.jpg", strings.NewReader("jpeg bytes"), PutOptions{
		ContentType: "image/jpeg",
		Metadata:    map[string]string{"observation": "obs1"},
	})
	require.NoError(t, err)
	assert.Equal(t, "images/img1/leaf.jpg", info.Key)
	assert.EqualValues(t, 10, info.Size)
	assert.NotEmpty(t, info.ETag)
	assert.Equal(t, store.Locator("images/img1/leaf.jpg"), info.URL)

	key, ok := store.KeyFor(info.URL)
	require.True(t, ok)
	assert.Equal(t, "images/img1/leaf.jpg", key)

	_, err = store.Put(ctx, "images/img1/leaf.jpg", strings.NewReader("again"), PutOptions{})
	require.ErrorIs(t, err, ErrExists)
	assert.True(t, errors.IsConflict(err))

	got, rc, err := store.Get(ctx, "images/img1/leaf.jpg")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "jpeg bytes", string(data))
	assert.Equal(t, "image/jpeg", got.ContentType)
	assert.Equal(t, map[string]string{"observation": "obs1"}, got.Metadata)

	require.NoError(t, store.Delete(ctx, "images/img1/leaf.jpg"))
	require.NoError(t, store.Delete(ctx, "images/img1/leaf.jpg"), "deleting a missing blob is not an error")

	_, _, err = store.Get(ctx, "images/img1/leaf.jpg")
	require.ErrorIs(t, err, ErrNotFound)
	assert.True(t, errors.IsNotFound(err))

	_, err = store.Put(ctx, "../escape.jpg", strings.NewReader("x"), PutOptions{})
	require.ErrorIs(t, err, ErrInvalidKey)

	_, ok = store.KeyFor("https://elsewhere.example/leaf.jpg")
	assert.False(t, ok)
}

func TestMemoryStore(t *testing.T) {
	t.Parallel()
	t.Attr("driver", string(DriverMemory))

	store := NewMemoryStore()
	storeContract(t, store)
	assert.Equal(t, 0, store.Len())

	_, err := store.SignedURL(t.Context(), "a.jpg", 0)
	require.ErrorIs(t, err, ErrUnsupported)
}

func TestFSStore(t *testing.T) {
	t.Parallel()
	t.Attr("driver", string(DriverFilesystem))

	store, err := NewFSStore(filepath.Join(t.TempDir(), "blobs"))
	require.NoError(t, err)
	storeContract(t, store)

	assert.True(t, strings.HasPrefix(store.Locator("a/b.png"), "file://"))
	_, ok := store.KeyFor("file:///somewhere/else/b.png")
	assert.False(t, ok)
}

func TestNewFSStore_EmptyRoot(t *testing.T) {
	t.Parallel()
	_, err := NewFSStore("  ")
	require.Error(t, err)
	assert.Equal(t, "blob.fsroot", errors.FieldOf(err))
}

func TestCleanKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		key     string
		want    string
		wantErr bool
	}{
		{key: "images/a.jpg", want: "images/a.jpg"},
		{key: "  images/a.jpg ", want: "images/a.jpg"},
		{key: "", wantErr: true},
		{key: "/abs/a.jpg", wantErr: true},
		{key: "images/../a.jpg", wantErr: true},
		{key: "images//a.jpg", wantErr: true},
		{key: "images/./a.jpg", wantErr: true},
		{key: `images\a.jpg`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Parallel()
			got, err := CleanKey(tt.key)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidKey)
				assert.True(t, errors.IsValidation(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOpen(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store, err := Open(ctx, conf.BlobSettings{Driver: "memory"})
	require.NoError(t, err)
	assert.Equal(t, DriverMemory, store.Driver())

	store, err = Open(ctx, conf.BlobSettings{FSRoot: t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, DriverFilesystem, store.Driver())

	_, err = Open(ctx, conf.BlobSettings{Driver: "s3"})
	require.Error(t, err)
	assert.Equal(t, "blob.s3.bucket", errors.FieldOf(err))

	_, err = Open(ctx, conf.BlobSettings{Driver: "gcs"})
	require.Error(t, err)
	assert.Equal(t, "blob.driver", errors.FieldOf(err))
}
