// Package parquetio writes and reads lakehouse partition files: columnar,
// row-group structured, with dictionary encoding for low-cardinality
// columns, per spec.md §4's "Partition file format". Grounded on
// github.com/xitongsys/parquet-go (already indirect in the teacher's
// go.mod) and promoted to a direct dependency here, since hand-writing the
// much older unversioned apache/arrow/go/arrow columnar builder API without
// a compiler to check it against is too risky for this exercise (see
// DESIGN.md).
package parquetio

import (
	"bytes"
	"context"
	"fmt"
	"reflect"

	"github.com/micromegas/lakehouse/internal/objectstore"
	"github.com/xitongsys/parquet-go-source/buffer"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"
)

// WriteResult summarizes a completed partition file write, feeding directly
// into the catalog.Partition row (file_size, num_rows).
type WriteResult struct {
	NumRows  int64
	FileSize int64
}

// WriteBatch serializes rows, a slice of structs carrying xitongsys/
// parquet-go struct tags (per internal/batch's *Row types, typically the
// Batch.Rows field itself), to a new partition file at key. It splits into
// multiple row groups once rowGroupRows is exceeded, per spec.md §4.E step
// 5 ("one row group if small, else split at a configurable row/byte
// threshold").
func WriteBatch(ctx context.Context, store objectstore.Store, key string, rows any, rowGroupRows int64) (WriteResult, error) {
	rv := reflect.ValueOf(rows)
	if rv.Kind() != reflect.Slice {
		return WriteResult{}, fmt.Errorf("writing %q: rows must be a slice, got %T", key, rows)
	}
	numRows := rv.Len()
	if numRows == 0 {
		return WriteResult{}, nil
	}
	rowType := reflect.New(rv.Type().Elem()).Interface()

	buf := buffer.NewBufferFile()
	pw, err := writer.NewParquetWriter(buf, rowType, 4)
	if err != nil {
		return WriteResult{}, fmt.Errorf("creating parquet writer for %q: %w", key, err)
	}
	pw.RowGroupSize = rowGroupRows * 1024 // parquet-go sizes in bytes; approximate via row count * 1KiB/row
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for i := 0; i < numRows; i++ {
		if err := pw.Write(rv.Index(i).Interface()); err != nil {
			return WriteResult{}, fmt.Errorf("writing row %d to %q: %w", i, key, err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		return WriteResult{}, fmt.Errorf("finalizing parquet file %q: %w", key, err)
	}

	data := buf.Bytes()
	n, err := store.Put(ctx, key, bytes.NewReader(data))
	if err != nil {
		return WriteResult{}, fmt.Errorf("uploading partition file %q: %w", key, err)
	}
	return WriteResult{NumRows: int64(numRows), FileSize: n}, nil
}
