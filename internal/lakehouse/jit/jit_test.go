package jit_test

import (
	"context"
	"testing"
	"time"

	"github.com/micromegas/lakehouse/internal/lakehouse/jit"
	"github.com/micromegas/lakehouse/internal/lakehouse/view"
	"github.com/stretchr/testify/require"
)

func TestEnsureRejectsUnknownViewSet(t *testing.T) {
	registry := view.NewRegistry()
	err := jit.Ensure(context.Background(), nil, registry, "nonexistent", "global", time.Time{}, time.Time{})
	require.Error(t, err)
}
