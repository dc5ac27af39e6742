package daemon_test

import (
	"testing"
	"time"

	"github.com/micromegas/lakehouse/internal/lakehouse/daemon"
	"github.com/micromegas/lakehouse/internal/lakehouse/view"
	"github.com/stretchr/testify/require"
)

func TestNewAppliesDefaultsForZeroConfig(t *testing.T) {
	d := daemon.New(nil, view.NewRegistry(), []string{"log_entries"}, daemon.Config{}, nil)
	require.NotNil(t, d)
}

func TestNewAcceptsExplicitConfig(t *testing.T) {
	cfg := daemon.Config{
		TickInterval:      30 * time.Second,
		MaterializeLag:    5 * time.Second,
		MergeInterval:     time.Minute,
		HourlyMergeWindow: time.Hour,
		DailyMergeWindow:  24 * time.Hour,
		ReapInterval:      time.Minute,
	}
	d := daemon.New(nil, view.NewRegistry(), []string{"measures"}, cfg, nil)
	require.NotNil(t, d)
}
