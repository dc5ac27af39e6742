// Package query implements spec.md §4.H: registering materialized views as
// scannable tables for ad-hoc analytical SQL, with time-range pushdown,
// JIT coverage on process/stream-scoped views, a process-wide parquet
// footer-metadata cache, and the supplemented view_instance/get_payload
// accessors. Grounded on sqlengine's embedded-DuckDB stand-in for the
// original's DataFusion TableProvider, and on the teacher's
// internal/storage registry idiom for resolving a logical name to a
// concrete backend.
package query

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"reflect"
	"time"

	"github.com/micromegas/lakehouse/internal/lakehouse/errs"
	"github.com/micromegas/lakehouse/internal/lakehouse/jit"
	"github.com/micromegas/lakehouse/internal/lakehouse/lake"
	"github.com/micromegas/lakehouse/internal/lakehouse/view"
	"github.com/micromegas/lakehouse/internal/parquetio"
)

// Session is one query's worth of state: the shared Lake, the view
// registry, the process-wide metadata cache, and an optional
// SessionConfigurator hook. Sessions are cheap and short-lived — one per
// incoming query, per spec.md §4.H.
type Session struct {
	Lake         *lake.Lake
	Registry     *view.Registry
	Cache        *MetadataCache
	Configurator SessionConfigurator
}

// NewSession builds a Session with a no-op configurator; callers that need
// to extend the session assign Configurator before calling Prepare.
func NewSession(l *lake.Lake, registry *view.Registry, cache *MetadataCache) *Session {
	return &Session{Lake: l, Registry: registry, Cache: cache, Configurator: NoopConfigurator{}}
}

// Prepare runs the SessionConfigurator hook before any query executes.
func (s *Session) Prepare(ctx context.Context) error {
	if s.Configurator == nil {
		return nil
	}
	return s.Configurator.ConfigureSession(ctx, s)
}

// PushdownResult reports whether a pushed-down predicate fully determined
// the result (Exact) or merely narrowed it (Inexact, requiring the caller
// to still apply the filter itself). Per spec.md §4.H this engine always
// declares time-range pushdown Inexact: a partition's [min_event_time,
// max_event_time] bounds may be wider than the rows actually satisfying a
// sub-window predicate, and a view's derived columns (e.g. log_stats'
// bucketed time) aren't provably monotonic with the source predicate.
type PushdownResult struct {
	Exact bool
}

// TimeRangePushdown always reports Inexact, per the reasoning on
// PushdownResult.
func TimeRangePushdown(begin, end time.Time) PushdownResult { return PushdownResult{Exact: false} }

// ViewInstance is the supplemented view_instance(view_set, view_instance_id,
// begin, end) accessor (spec.md's original exposed this as a table
// function in the query engine): it ensures JIT coverage for
// process/stream-scoped views, resolves the live partitions overlapping
// [begin, end), and scans their rows back as a Go slice of the view's row
// type. Grounded on original_source/'s view_instance table function (see
// DESIGN.md) and on view.ScanRows for the reflective decode.
func (s *Session) ViewInstance(ctx context.Context, viewSetName, viewInstanceID string, begin, end time.Time) (any, error) {
	v, err := s.Registry.Make(viewSetName, viewInstanceID)
	if err != nil {
		return nil, fmt.Errorf("resolving view %s/%s: %w", viewSetName, viewInstanceID, err)
	}
	if err := jit.Ensure(ctx, s.Lake, s.Registry, viewSetName, viewInstanceID, begin, end); err != nil {
		return nil, fmt.Errorf("ensuring JIT coverage for %s/%s: %w", viewSetName, viewInstanceID, err)
	}

	parts, err := s.Lake.Catalog.FetchPartitions(ctx, viewSetName, viewInstanceID, v.FileSchemaHash(), begin, end)
	if err != nil {
		return nil, errs.New(errs.KindCatalogIO, "query.Session.ViewInstance", err)
	}
	var paths []string
	for _, p := range parts {
		if p.FilePath != nil {
			paths = append(paths, *p.FilePath)
		}
	}
	if len(paths) == 0 {
		// No data in range: the caller gets an empty slice of the view's row type.
		return reflect.MakeSlice(reflect.SliceOf(reflect.TypeOf(v.RowType()).Elem()), 0, 0).Interface(), nil
	}

	expr := view.ReadParquetExpr(s.Lake.Objects.Root(), paths)
	query := fmt.Sprintf("SELECT * FROM %s", expr)
	if f := v.MakeTimeFilter(begin, end); f != "" {
		query += " WHERE " + f
	}
	rows, err := s.Lake.Engine.QueryContext(ctx, query)
	if err != nil {
		return nil, errs.New(errs.KindDecode, "query.Session.ViewInstance", err)
	}
	defer rows.Close()

	out, _, _, _, err := view.ScanRows(rows, v.RowType(), "")
	if err != nil {
		return nil, errs.New(errs.KindDecode, "query.Session.ViewInstance", err)
	}
	return out, nil
}

// Query runs ad-hoc SQL against the analytical engine, after views
// referenced by name have been registered via RegisterView. This is the
// general entry point used by the gateway's Execute RPC (component J).
func (s *Session) Query(ctx context.Context, sqlText string) (*sql.Rows, error) {
	rows, err := s.Lake.Engine.QueryContext(ctx, sqlText)
	if err != nil {
		return nil, errs.New(errs.KindDecode, "query.Session.Query", err)
	}
	return rows, nil
}

// RegisterView exposes a view's live partitions under a DuckDB VIEW named
// viewSetName, so subsequent ad-hoc SQL can reference it as an ordinary
// table. For process/stream-scoped view sets, pass the specific
// viewInstanceID and a query window so JIT coverage is ensured first; for
// global views pass "global" and the window you intend to query.
func (s *Session) RegisterView(ctx context.Context, viewSetName, viewInstanceID string, begin, end time.Time) error {
	v, err := s.Registry.Make(viewSetName, viewInstanceID)
	if err != nil {
		return fmt.Errorf("resolving view %s/%s: %w", viewSetName, viewInstanceID, err)
	}
	if err := jit.Ensure(ctx, s.Lake, s.Registry, viewSetName, viewInstanceID, begin, end); err != nil {
		return fmt.Errorf("ensuring JIT coverage for %s/%s: %w", viewSetName, viewInstanceID, err)
	}
	parts, err := s.Lake.Catalog.FetchPartitions(ctx, viewSetName, viewInstanceID, v.FileSchemaHash(), begin, end)
	if err != nil {
		return errs.New(errs.KindCatalogIO, "query.Session.RegisterView", err)
	}
	var paths []string
	for _, p := range parts {
		if p.FilePath != nil {
			paths = append(paths, *p.FilePath)
		}
	}
	if len(paths) == 0 {
		return fmt.Errorf("no partitions cover %s/%s for [%s, %s)", viewSetName, viewInstanceID, begin, end)
	}
	expr := view.ReadParquetExpr(s.Lake.Objects.Root(), paths)
	ddl := fmt.Sprintf(`CREATE OR REPLACE VIEW "%s" AS SELECT * FROM %s`, viewSetName, expr)
	if err := s.Lake.Engine.ExecContext(ctx, ddl); err != nil {
		return errs.New(errs.KindDecode, "query.Session.RegisterView", err)
	}
	for _, p := range parts {
		if p.FilePath != nil {
			s.cacheFooter(ctx, *p.FilePath, p.FileSize)
		}
	}
	return nil
}

// cacheFooter warms the metadata cache for a partition file, best-effort:
// a cache miss only costs an extra read on the next query, never a
// correctness issue, so errors here are swallowed.
func (s *Session) cacheFooter(ctx context.Context, path string, fileSize int64) {
	if s.Cache == nil {
		return
	}
	if _, ok := s.Cache.Get(path); ok {
		return
	}
	rc, err := s.Lake.Objects.Get(ctx, path)
	if err != nil {
		return
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return
	}
	const trailerSize = 8
	n, err := parquetio.FooterLength(int64(len(data)), data)
	if err != nil || n > len(data)-trailerSize {
		return
	}
	footerEnd := len(data) - trailerSize
	s.Cache.Put(path, append([]byte(nil), data[footerEnd-n:footerEnd]...))
}

// GetPayload is the supplemented get_payload(block_id) raw-blob accessor
// (spec.md's original exposes this as a debugging/inspection table
// function): it streams the object store's bytes at key verbatim,
// without attempting to decode them as a block envelope. Grounded on
// original_source/'s get_payload function (see DESIGN.md).
func (s *Session) GetPayload(ctx context.Context, key string) (io.ReadCloser, error) {
	rc, err := s.Lake.Objects.Get(ctx, key)
	if err != nil {
		return nil, errs.New(errs.KindObjectStoreIO, "query.Session.GetPayload", err)
	}
	return rc, nil
}
