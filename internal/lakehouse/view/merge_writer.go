package view

import (
	"context"
	"time"

	"github.com/micromegas/lakehouse/internal/catalog"
	"github.com/micromegas/lakehouse/internal/lakehouse/errs"
	"github.com/micromegas/lakehouse/internal/lakehouse/hashutil"
	"github.com/micromegas/lakehouse/internal/lakehouse/lake"
	"github.com/micromegas/lakehouse/internal/parquetio"
)

func writeParquet(ctx context.Context, l *lake.Lake, key string, rows any) (parquetio.WriteResult, error) {
	wr, err := parquetio.WriteBatch(ctx, l.Objects, key, rows, l.Config.PartitionRowGroupRows)
	if err != nil {
		return parquetio.WriteResult{}, errs.New(errs.KindObjectStoreIO, "view.writeParquet", err)
	}
	return wr, nil
}

// MergePartitions runs v's merge query over inputs (a set of finer-grain
// partitions) and writes the result as one new coarser partition spanning
// [beginInsert, endInsert), per spec.md §4.F. It does not retire inputs —
// the merger package (component F) does that once the new partition is
// durably written, matching spec.md §4.F's "replace ... retire inputs"
// ordering.
func MergePartitions(ctx context.Context, l *lake.Lake, v View, inputs []catalog.Partition, beginInsert, endInsert time.Time) (*catalog.Partition, error) {
	paths := sourceFilePaths(inputs)
	ids := make([]string, len(inputs))
	for i, p := range inputs {
		if p.FilePath != nil {
			ids[i] = *p.FilePath
		} else {
			ids[i] = p.SourceDataHash
		}
	}
	sourceDataHash := hashutil.SortedOrderedHash(ids)

	next := catalog.Partition{
		ViewSetName: v.ViewSetName(), ViewInstanceID: v.ViewInstanceID(), FileSchemaHash: v.FileSchemaHash(),
		BeginInsertTime: beginInsert, EndInsertTime: endInsert, SourceDataHash: sourceDataHash,
	}

	if len(paths) == 0 {
		return &next, nil
	}

	query := interpolate(v.GetMergePartitionsQuery(), beginInsert, endInsert, readParquetExpr(l.Objects.Root(), paths))
	rows, err := l.Engine.QueryContext(ctx, query)
	if err != nil {
		return nil, errs.New(errs.KindDecode, "view.MergePartitions", err)
	}
	defer rows.Close()

	eventTimeColumn := dataframeTimeColumn(v)
	out, minT, maxT, hasBound, err := scanInto(rows, v.RowType(), eventTimeColumn)
	if err != nil {
		return nil, errs.New(errs.KindDecode, "view.MergePartitions", err)
	}

	key := PartitionKey(v.ViewSetName(), v.ViewInstanceID(), beginInsert, endInsert, sourceDataHash)
	wr, err := writeParquet(ctx, l, key, out)
	if err != nil {
		return nil, err
	}
	next.FilePath = &key
	next.FileSize = wr.FileSize
	next.NumRows = wr.NumRows
	if hasBound {
		next.MinEventTime = &minT
		next.MaxEventTime = &maxT
	} else {
		next.MinEventTime, next.MaxEventTime = DataframeTimeBounds(inputs)
	}
	return &next, nil
}

// DataframeTimeBounds computes min(min_event_time)/max(max_event_time)
// across a set of source partitions, the supplemented helper grounded on
// original_source/rust/.../dataframe_time_bounds.rs: used when a merge
// query's own result carries no distinguished event-time column, so the
// merged partition's range must be derived from its inputs' metadata
// instead.
func DataframeTimeBounds(parts []catalog.Partition) (*time.Time, *time.Time) {
	var min, max *time.Time
	for _, p := range parts {
		if p.MinEventTime != nil && (min == nil || p.MinEventTime.Before(*min)) {
			min = p.MinEventTime
		}
		if p.MaxEventTime != nil && (max == nil || p.MaxEventTime.After(*max)) {
			max = p.MaxEventTime
		}
	}
	return min, max
}

func dataframeTimeColumn(v View) string {
	switch bv := v.(type) {
	case *BlockSourcedView:
		return bv.eventTimeColumn
	case *SQLBatchView:
		return bv.eventTimeColumn
	default:
		return ""
	}
}
