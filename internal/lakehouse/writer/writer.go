// Package writer implements spec.md §4.E's partition writer entry point:
// resolving a view from the registry and building (or idempotently
// skipping) its partition for one insert-time window. The write algorithm
// itself — idempotence check, advisory lock, decode/transform, file write,
// single-transaction catalog replace — lives on view.BuildPartition so the
// daemon's "advance materialization" task, this package, and the JIT path
// all observe identical locking and idempotence semantics.
package writer

import (
	"context"
	"fmt"
	"time"

	"github.com/micromegas/lakehouse/internal/catalog"
	"github.com/micromegas/lakehouse/internal/lakehouse/lake"
	"github.com/micromegas/lakehouse/internal/lakehouse/view"
)

// Build resolves (viewSetName, viewInstanceID) and builds its partition
// for [beginInsert, endInsert), per spec.md §4.E.
func Build(ctx context.Context, l *lake.Lake, registry *view.Registry, viewSetName, viewInstanceID string, beginInsert, endInsert time.Time) (*catalog.Partition, error) {
	v, err := registry.Make(viewSetName, viewInstanceID)
	if err != nil {
		return nil, fmt.Errorf("resolving view %s/%s: %w", viewSetName, viewInstanceID, err)
	}
	return view.BuildPartition(ctx, l, v, beginInsert, endInsert)
}
