package view

import (
	"database/sql"
	"time"
)

// ScanRows is scanInto exported for the query surface (component H), which
// needs to decode ad-hoc DuckDB result sets into a view's row type the same
// way the transform/merge paths do.
func ScanRows(rs *sql.Rows, rowType any, eventTimeColumn string) (out any, minT, maxT time.Time, hasBound bool, err error) {
	return scanInto(rs, rowType, eventTimeColumn)
}

// ReadParquetExpr is readParquetExpr exported for the query surface, which
// builds its own read_parquet(...) table expressions over a view's live
// partition files rather than over a transform's {source} slot.
func ReadParquetExpr(storeRoot string, paths []string) string {
	return readParquetExpr(storeRoot, paths)
}
