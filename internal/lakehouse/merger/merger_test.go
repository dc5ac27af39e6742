package merger_test

import (
	"testing"
	"time"

	"github.com/micromegas/lakehouse/internal/catalog"
	"github.com/micromegas/lakehouse/internal/lakehouse/merger"
	"github.com/micromegas/lakehouse/internal/lakehouse/view"
	"github.com/stretchr/testify/require"
)

func TestGranularityConversions(t *testing.T) {
	require.Equal(t, time.Hour, time.Duration(merger.Hourly))
	require.Equal(t, 24*time.Hour, time.Duration(merger.Daily))
}

func TestDataframeTimeBoundsEmpty(t *testing.T) {
	min, max := view.DataframeTimeBounds(nil)
	require.Nil(t, min)
	require.Nil(t, max)
}

func TestDataframeTimeBoundsUnionsInputs(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	t1 := t0.Add(time.Hour)
	t2 := t0.Add(2 * time.Hour)
	t3 := t0.Add(3 * time.Hour)
	parts := []catalog.Partition{
		{MinEventTime: &t0, MaxEventTime: &t1},
		{MinEventTime: &t2, MaxEventTime: &t3},
	}
	min, max := view.DataframeTimeBounds(parts)
	require.Equal(t, t0, *min)
	require.Equal(t, t3, *max)
}
