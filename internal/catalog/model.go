// Package catalog implements the relational partition metadata store
// (spec.md §4.D): the lakehouse_partitions and temporary_files tables, and
// the advisory-lock mechanism guarding concurrent partition builds.
//
// Grounded on internal/storage/dolt/store.go's connection/retry/tracing
// idiom; the catalog is MySQL-wire compatible (go-sql-driver/mysql), so
// advisory locking uses MySQL's GET_LOCK()/RELEASE_LOCK()
// rather than Postgres advisory locks (the original source's sqlx::PgPool).
package catalog

import "time"

// Partition is one row of lakehouse_partitions, per spec.md §4.D's
// relational schema.
type Partition struct {
	ViewSetName    string
	ViewInstanceID string
	FileSchemaHash string

	BeginInsertTime time.Time
	EndInsertTime   time.Time

	MinEventTime *time.Time
	MaxEventTime *time.Time

	Updated time.Time

	FilePath *string
	FileSize int64
	NumRows  int64

	SourceDataHash string
}

// IsEmpty reports whether this is an empty-partition row (spec.md §4.E
// step 5: "write an empty-partition row (file_path=NULL, num_rows=0)").
func (p Partition) IsEmpty() bool { return p.FilePath == nil }

// TemporaryFile is one row of temporary_files: a retired partition file
// kept around until in-flight queries can no longer reference it.
type TemporaryFile struct {
	FilePath   string
	Expiration time.Time
}

// overlaps reports whether [begin, end) intersects [qBegin, qEnd), matching
// spec.md §4.D's overlap test: begin_insert < end_q AND end_insert > begin_q.
func overlaps(begin, end, qBegin, qEnd time.Time) bool {
	return begin.Before(qEnd) && end.After(qBegin)
}
