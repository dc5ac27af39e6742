package query_test

import (
	"context"
	"testing"
	"time"

	"github.com/micromegas/lakehouse/internal/lakehouse/query"
	"github.com/micromegas/lakehouse/internal/lakehouse/view"
	"github.com/stretchr/testify/require"
)

func TestMetadataCacheEvictsOverBudget(t *testing.T) {
	c, err := query.NewMetadataCache(16)
	require.NoError(t, err)

	c.Put("a", make([]byte, 8))
	c.Put("b", make([]byte, 8))
	_, ok := c.Get("a")
	require.True(t, ok)

	c.Put("c", make([]byte, 8))
	_, ok = c.Get("b")
	require.False(t, ok, "least-recently-used entry should have been evicted once the budget was exceeded")
}

func TestMetadataCacheInvalidate(t *testing.T) {
	c, err := query.NewMetadataCache(1024)
	require.NoError(t, err)
	c.Put("a", []byte("footer"))
	c.Invalidate("a")
	_, ok := c.Get("a")
	require.False(t, ok)
}

func TestTimeRangePushdownIsAlwaysInexact(t *testing.T) {
	r := query.TimeRangePushdown(time.Now(), time.Now())
	require.False(t, r.Exact)
}

func TestSessionViewInstanceRejectsUnknownViewSet(t *testing.T) {
	registry := view.NewRegistry()
	s := query.NewSession(nil, registry, nil)
	_, err := s.ViewInstance(context.Background(), "nonexistent", "global", time.Time{}, time.Time{})
	require.Error(t, err)
}
