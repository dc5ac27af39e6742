package objectstore_test

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/micromegas/lakehouse/internal/objectstore"
	"github.com/stretchr/testify/require"
)

func TestFileStorePutGetDelete(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := objectstore.Open(ctx, "file://"+dir)
	require.NoError(t, err)

	n, err := store.Put(ctx, "views/log_entries/part1.parquet", bytes.NewReader([]byte("hello")))
	require.NoError(t, err)
	require.Equal(t, int64(5), n)

	_, err = os.Stat(filepath.Join(dir, "views", "log_entries", "part1.parquet"))
	require.NoError(t, err)

	r, err := store.Get(ctx, "views/log_entries/part1.parquet")
	require.NoError(t, err)
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	require.NoError(t, r.Close())
	require.Equal(t, "hello", string(data))

	require.NoError(t, store.Delete(ctx, "views/log_entries/part1.parquet"))
	_, err = store.Get(ctx, "views/log_entries/part1.parquet")
	require.Error(t, err)
}

func TestOpenRejectsUnknownScheme(t *testing.T) {
	_, err := objectstore.Open(context.Background(), "gcs://bucket/prefix")
	require.Error(t, err)
}
