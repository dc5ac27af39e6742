package catalog_test

import (
	"testing"
	"time"

	"github.com/micromegas/lakehouse/internal/catalog"
	"github.com/stretchr/testify/require"
)

func TestLockKeyStableAndDistinct(t *testing.T) {
	begin := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := begin.Add(time.Hour)

	k1 := catalog.LockKey("log_entries", "global", begin, end)
	k2 := catalog.LockKey("log_entries", "global", begin, end)
	require.Equal(t, k1, k2, "lock key must be deterministic for the same tuple")

	k3 := catalog.LockKey("measures", "global", begin, end)
	require.NotEqual(t, k1, k3, "different view sets must hash to different keys")

	k4 := catalog.LockKey("log_entries", "global", begin, end.Add(time.Minute))
	require.NotEqual(t, k1, k4, "different windows must hash to different keys")
}

func TestPartitionIsEmpty(t *testing.T) {
	empty := catalog.Partition{}
	require.True(t, empty.IsEmpty())

	path := "s3://bucket/key.parquet"
	nonEmpty := catalog.Partition{FilePath: &path}
	require.False(t, nonEmpty.IsEmpty())
}
