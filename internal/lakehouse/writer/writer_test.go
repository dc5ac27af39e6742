package writer_test

import (
	"context"
	"testing"
	"time"

	"github.com/micromegas/lakehouse/internal/lakehouse/view"
	"github.com/micromegas/lakehouse/internal/lakehouse/writer"
	"github.com/stretchr/testify/require"
)

func TestBuildRejectsUnknownViewSet(t *testing.T) {
	registry := view.NewRegistry()
	_, err := writer.Build(context.Background(), nil, registry, "nonexistent", "global", time.Time{}, time.Time{})
	require.Error(t, err)
}
