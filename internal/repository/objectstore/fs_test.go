package objectstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	drepo "StockPilot/internal/domain/repository"
)

func TestFilesystemCreateOnly(t *testing.T) {
	ctx := context.Background()
	fs, err := NewFilesystem(t.TempDir())
	require.NoError(t, err)

	key := "raw/2025-06-02/AAPL_2025-06-02T13-40-00Z.parquet"
	require.NoError(t, fs.PutIfAbsent(ctx, key, []byte("one"), "application/octet-stream"))

	err = fs.PutIfAbsent(ctx, key, []byte("two"), "application/octet-stream")
	assert.ErrorIs(t, err, drepo.ErrObjectExists)

	got, err := fs.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []byte("one"), got)
}

func TestFilesystemURIRoundTrip(t *testing.T) {
	fs, err := NewFilesystem(t.TempDir())
	require.NoError(t, err)

	key := "raw/2025-06-02/KO_2025-06-02T13-40-00Z.parquet"
	uri := fs.URI(key)
	assert.Contains(t, uri, "file://")

	back, err := fs.Key(uri)
	require.NoError(t, err)
	assert.Equal(t, key, back)

	_, err = fs.Key("gs://bucket/" + key)
	assert.Error(t, err)
}

func TestFilesystemMissingAndEscapingKeys(t *testing.T) {
	ctx := context.Background()
	fs, err := NewFilesystem(t.TempDir())
	require.NoError(t, err)

	_, err = fs.Get(ctx, "raw/none.parquet")
	assert.ErrorIs(t, err, drepo.ErrNotFound)

	err = fs.PutIfAbsent(ctx, "../outside", []byte("x"), "")
	assert.Error(t, err)
}
