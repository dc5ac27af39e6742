// Package sqlengine wraps the embedded analytical SQL engine used for SQL
// batch views' transform/merge queries and for the query surface's
// ad-hoc SQL (component H), grounded on
// `other_examples/manifests/Lychee-Technology-forma` and
// `other_examples/manifests/malbeclabs-doublezero`, both of which pair
// DuckDB with Arrow/Parquet for reading columnar files straight off disk
// or object storage. DuckDB stands in for the original's DataFusion
// engine (see SPEC_FULL.md §2).
package sqlengine

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/marcboeker/go-duckdb/v2"
)

// Engine is a single in-process DuckDB connection pool, mirroring
// spec.md §5's "a configurable byte ceiling" memory budget knob.
type Engine struct {
	db *sql.DB
}

// Open starts an in-memory DuckDB instance with the given memory budget
// (spec.md §6's MICROMEGAS_DATAFUSION_MEMORY_BUDGET_MB).
func Open(ctx context.Context, memoryBudgetMB int) (*Engine, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("opening analytical SQL engine: %w", err)
	}
	if memoryBudgetMB > 0 {
		if _, err := db.ExecContext(ctx, fmt.Sprintf("SET memory_limit='%dMB'", memoryBudgetMB)); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting memory budget: %w", err)
		}
	}
	if _, err := db.ExecContext(ctx, `INSTALL httpfs; LOAD httpfs;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("loading httpfs extension: %w", err)
	}
	return &Engine{db: db}, nil
}

func (e *Engine) Close() error { return e.db.Close() }

// QueryContext runs sql and returns the resulting rows; callers registering
// parquet files as sources use DuckDB's `read_parquet(...)` table function
// directly inside the SQL text (via {source} interpolation — see
// internal/lakehouse/view's SQLBatchView).
func (e *Engine) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	rows, err := e.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("executing analytical query: %w", err)
	}
	return rows, nil
}

// ExecContext runs a statement that produces no rows (DDL, table creation
// from Parquet views).
func (e *Engine) ExecContext(ctx context.Context, query string, args ...any) error {
	if _, err := e.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("executing analytical statement: %w", err)
	}
	return nil
}
