package view

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/micromegas/lakehouse/internal/catalog"
	"github.com/micromegas/lakehouse/internal/lakehouse/errs"
	"github.com/micromegas/lakehouse/internal/lakehouse/hashutil"
	"github.com/micromegas/lakehouse/internal/lakehouse/lake"
)

// SQLBatchView implements the log_stats/processes/streams view family
// (spec.md §4.C): views that consume other registered tables through three
// configurable queries — count_src, transform, merge — each with
// interpolation slots {begin}, {end}, {source}.
type SQLBatchView struct {
	viewSetName       string
	schemaHash        string
	rowType           any
	sourceViewSetName string
	sourceInstanceID  string
	countSrcQuery     string // {begin},{end},{source} -> single integer count
	transformQuery    string // {begin},{end},{source} -> rows for this view
	mergeQuery        string // {source} -> merged rows, for GetMergePartitionsQuery
	eventTimeColumn   string
}

func NewSQLBatchView(viewSetName, schemaHash string, rowType any, sourceViewSetName, sourceInstanceID, countSrcQuery, transformQuery, mergeQuery, eventTimeColumn string) *SQLBatchView {
	return &SQLBatchView{
		viewSetName: viewSetName, schemaHash: schemaHash, rowType: rowType,
		sourceViewSetName: sourceViewSetName, sourceInstanceID: sourceInstanceID,
		countSrcQuery: countSrcQuery, transformQuery: transformQuery, mergeQuery: mergeQuery,
		eventTimeColumn: eventTimeColumn,
	}
}

func (v *SQLBatchView) ViewSetName() string    { return v.viewSetName }
func (v *SQLBatchView) ViewInstanceID() string { return "global" }
func (v *SQLBatchView) FileSchemaHash() string { return v.schemaHash }
func (v *SQLBatchView) RowType() any           { return v.rowType }

func (v *SQLBatchView) MakeBatchPartitionSpec(ctx context.Context, l *lake.Lake, existing []catalog.Partition, beginInsert, endInsert time.Time) (*PartitionSpec, error) {
	srcParts, err := l.Catalog.FetchPartitions(ctx, v.sourceViewSetName, v.sourceInstanceID, "", beginInsert, endInsert)
	if err != nil {
		return nil, errs.New(errs.KindCatalogIO, "view.SQLBatchView.MakeBatchPartitionSpec", err)
	}
	ids := make([]string, 0, len(srcParts))
	for _, p := range srcParts {
		if p.FilePath != nil {
			ids = append(ids, *p.FilePath)
		}
	}
	return &PartitionSpec{
		ViewSetName: v.viewSetName, ViewInstanceID: v.ViewInstanceID(), SchemaHash: v.schemaHash,
		BeginInsertTime: beginInsert, EndInsertTime: endInsert,
		SourcePartitions: srcParts, SourceDataHash: hashutil.SortedOrderedHash(ids),
	}, nil
}

func (v *SQLBatchView) BuildBatch(ctx context.Context, l *lake.Lake, spec *PartitionSpec) (Result, error) {
	paths := sourceFilePaths(spec.SourcePartitions)
	if len(paths) == 0 {
		return Result{}, nil
	}
	sourceExpr := readParquetExpr(l.Objects.Root(), paths)
	query := interpolate(v.transformQuery, spec.BeginInsertTime, spec.EndInsertTime, sourceExpr)

	rows, err := l.Engine.QueryContext(ctx, query)
	if err != nil {
		return Result{}, errs.New(errs.KindDecode, "view.SQLBatchView.BuildBatch", err)
	}
	defer rows.Close()

	out, minT, maxT, hasBound, err := scanInto(rows, v.rowType, v.eventTimeColumn)
	if err != nil {
		return Result{}, errs.New(errs.KindDecode, "view.SQLBatchView.BuildBatch", err)
	}
	n := reflect.ValueOf(out).Len()
	if n == 0 {
		return Result{}, nil
	}
	return Result{Rows: out, NumRows: n, MinEventTime: minT, MaxEventTime: maxT, HasEventTime: hasBound}, nil
}

func (v *SQLBatchView) JITUpdate(ctx context.Context, l *lake.Lake, queryRange TimeRange) error {
	return nil // global SQL-batch views are fed by the daemon, not JIT
}

func (v *SQLBatchView) MakeTimeFilter(begin, end time.Time) string {
	if v.eventTimeColumn == "" {
		return ""
	}
	return fmt.Sprintf("%s BETWEEN %d AND %d", v.eventTimeColumn, begin.UnixNano(), end.UnixNano())
}

func (v *SQLBatchView) GetMergePartitionsQuery() string { return v.mergeQuery }

func sourceFilePaths(parts []catalog.Partition) []string {
	paths := make([]string, 0, len(parts))
	for _, p := range parts {
		if p.FilePath != nil {
			paths = append(paths, *p.FilePath)
		}
	}
	return paths
}

// readParquetExpr builds the DuckDB read_parquet(...) table expression
// substituted for {source}.
func readParquetExpr(storeRoot string, paths []string) string {
	quoted := make([]string, len(paths))
	for i, p := range paths {
		quoted[i] = "'" + strings.TrimSuffix(storeRoot, "/") + "/" + p + "'"
	}
	return "read_parquet([" + strings.Join(quoted, ",") + "])"
}

// interpolate substitutes {begin}/{end}/{source}. begin/end are rendered as
// plain epoch-nanosecond integers, matching the int64 encoding of every
// view's `time` column (spec.md §4.B), not as quoted timestamp literals.
func interpolate(query string, begin, end time.Time, source string) string {
	r := strings.NewReplacer(
		"{begin}", fmt.Sprintf("%d", begin.UnixNano()),
		"{end}", fmt.Sprintf("%d", end.UnixNano()),
		"{source}", source,
	)
	return r.Replace(query)
}
