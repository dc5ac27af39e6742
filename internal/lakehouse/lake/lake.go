// Package lake bundles the process-scoped singletons every lakehouse
// component depends on (catalog, object store, analytical SQL engine,
// config), grounded on spec.md §9's "process info, view factory, and
// metadata cache are process-scoped singletons constructed at startup and
// passed explicitly thereafter; no ambient access."
package lake

import (
	"context"
	"fmt"

	"github.com/micromegas/lakehouse/internal/catalog"
	"github.com/micromegas/lakehouse/internal/lakehouse/config"
	"github.com/micromegas/lakehouse/internal/lakehouse/sqlengine"
	"github.com/micromegas/lakehouse/internal/objectstore"
)

// Lake is the shared handle passed explicitly into the writer, merger, JIT
// updater, view registry, and query surface.
type Lake struct {
	Catalog *catalog.Store
	Objects objectstore.Store
	Engine  *sqlengine.Engine
	Config  *config.Config
}

// Open wires the three backing stores from cfg, in the order a daemon or
// server process constructs them at startup.
func Open(ctx context.Context, cfg *config.Config) (*Lake, error) {
	cat, err := catalog.Open(ctx, cfg.SQLConnectionString)
	if err != nil {
		return nil, fmt.Errorf("opening catalog: %w", err)
	}
	objs, err := objectstore.Open(ctx, cfg.ObjectStoreURI)
	if err != nil {
		cat.Close()
		return nil, fmt.Errorf("opening object store: %w", err)
	}
	engine, err := sqlengine.Open(ctx, cfg.DataFusionMemoryBudgetMB)
	if err != nil {
		cat.Close()
		return nil, fmt.Errorf("opening analytical SQL engine: %w", err)
	}
	return &Lake{Catalog: cat, Objects: objs, Engine: engine, Config: cfg}, nil
}

func (l *Lake) Close() error {
	var firstErr error
	if err := l.Engine.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := l.Catalog.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
