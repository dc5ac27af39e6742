// Package jit implements spec.md §4.G: ensuring, before a query runs, that
// process/stream-scoped view instances exist and cover the requested time
// window. The actual build-or-skip decision and its wall-clock and
// windows-built caps live on view.EnsureCoverage (shared with the writer's idempotence
// and locking discipline); this package is the query surface's entry
// point into that path, keeping JIT a distinct, named component per
// spec.md's module boundaries.
package jit

import (
	"context"
	"fmt"
	"time"

	"github.com/micromegas/lakehouse/internal/lakehouse/lake"
	"github.com/micromegas/lakehouse/internal/lakehouse/view"
)

// Ensure materializes any missing partitions of (viewSetName,
// viewInstanceID) covering [begin, end) before a query scans that view.
func Ensure(ctx context.Context, l *lake.Lake, registry *view.Registry, viewSetName, viewInstanceID string, begin, end time.Time) error {
	v, err := registry.Make(viewSetName, viewInstanceID)
	if err != nil {
		return fmt.Errorf("resolving view %s/%s for JIT update: %w", viewSetName, viewInstanceID, err)
	}
	return v.JITUpdate(ctx, l, view.TimeRange{Begin: begin, End: end})
}
