// Package view implements the view registry (spec.md §4.C): a name →
// view-factory table where each view knows its schema, schema hash,
// source-fetch query, transform SQL, and merge SQL. Grounded on the
// teacher's internal/storage's small-interface-plus-registry idiom
// (storage.Storage + factory.RegisterBackend), generalized here from a
// single storage backend to many logical tables.
package view

import (
	"context"
	"time"

	"github.com/micromegas/lakehouse/internal/catalog"
	"github.com/micromegas/lakehouse/internal/lakehouse/lake"
)

// TimeRange is a half-open [Begin, End) window, used both for a
// partition's insert-time window and for a query's inferred event-time
// range.
type TimeRange struct {
	Begin time.Time
	End   time.Time
}

// PartitionSpec identifies exactly which source blocks or source
// partitions contribute to a prospective partition build, and its
// idempotence key, per spec.md §4.C's make_batch_partition_spec contract.
type PartitionSpec struct {
	ViewSetName      string
	ViewInstanceID   string
	SchemaHash       string
	BeginInsertTime  time.Time
	EndInsertTime    time.Time
	SourceBlocks     []catalog.BlockRef
	SourcePartitions []catalog.Partition
	SourceDataHash   string
}

// View is implemented by every registered logical table, per spec.md
// §4.C's contract.
type View interface {
	ViewSetName() string
	ViewInstanceID() string
	FileSchemaHash() string
	// RowType returns a pointer to the zero value of the row struct used
	// for the parquet schema (internal/batch's *Row types).
	RowType() any

	// MakeBatchPartitionSpec identifies the source blocks/partitions for
	// [beginInsert, endInsert) and computes source_data_hash.
	MakeBatchPartitionSpec(ctx context.Context, l *lake.Lake, existing []catalog.Partition, beginInsert, endInsert time.Time) (*PartitionSpec, error)

	// BuildBatch executes the view's transform (block decode or SQL
	// transform query) over spec, producing rows to write.
	BuildBatch(ctx context.Context, l *lake.Lake, spec *PartitionSpec) (Result, error)

	// JITUpdate materializes any missing partitions covering queryRange.
	// No-op for global batched views.
	JITUpdate(ctx context.Context, l *lake.Lake, queryRange TimeRange) error

	// MakeTimeFilter returns a SQL predicate pushed into scans of this
	// view's event-time column, or "" if the view has none.
	MakeTimeFilter(begin, end time.Time) string

	// GetMergePartitionsQuery returns the SQL that merges N partitions of
	// granularity G into one of granularity 2G+, with {source} bound to a
	// virtual table over the inputs.
	GetMergePartitionsQuery() string
}

// Result is a view's transform output: either an empty partition (no
// rows, per spec.md §4.E step 5) or a set of rows with event-time bounds.
type Result struct {
	Rows         any
	NumRows      int
	MinEventTime time.Time
	MaxEventTime time.Time
	HasEventTime bool
}

func (r Result) Empty() bool { return r.NumRows == 0 }

// Factory builds a View instance for a given view-instance id ("global"
// for cross-process views, or a process/stream id for JIT views).
type Factory func(viewInstanceID string) (View, error)

// Registry is the name -> view-factory table, per spec.md §4.C.
type Registry struct {
	factories map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

func (r *Registry) Register(viewSetName string, f Factory) {
	r.factories[viewSetName] = f
}

func (r *Registry) Make(viewSetName, viewInstanceID string) (View, error) {
	f, ok := r.factories[viewSetName]
	if !ok {
		return nil, &UnknownViewSetError{ViewSetName: viewSetName}
	}
	return f(viewInstanceID)
}

func (r *Registry) ViewSetNames() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	return names
}

type UnknownViewSetError struct{ ViewSetName string }

func (e *UnknownViewSetError) Error() string { return "unknown view set: " + e.ViewSetName }
