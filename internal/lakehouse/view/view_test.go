package view_test

import (
	"testing"
	"time"

	"github.com/micromegas/lakehouse/internal/lakehouse/view"
	"github.com/stretchr/testify/require"
)

func TestRegistryMakeUnknownViewSet(t *testing.T) {
	r := view.NewRegistry()
	_, err := r.Make("nonexistent", "global")
	require.Error(t, err)
}

func TestDefaultRegistryKnowsEveryViewSet(t *testing.T) {
	r := view.NewDefaultRegistry()
	for _, name := range []string{"log_entries", "measures", "thread_spans", "processes", "streams", "log_stats"} {
		v, err := r.Make(name, "global")
		require.NoError(t, err, "view set %q should be registered", name)
		require.NotEmpty(t, v.FileSchemaHash())
	}
}

func TestPartitionKeyIsUniquePerSourceHash(t *testing.T) {
	begin := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := begin.Add(time.Hour)
	k1 := view.PartitionKey("log_entries", "global", begin, end, "hash1")
	k2 := view.PartitionKey("log_entries", "global", begin, end, "hash2")
	require.NotEqual(t, k1, k2)
}
