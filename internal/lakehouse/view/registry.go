package view

import (
	"reflect"

	"github.com/micromegas/lakehouse/internal/batch"
	"github.com/micromegas/lakehouse/internal/lakehouse/hashutil"
)

// NewDefaultRegistry builds the registry of every view-set named in
// spec.md §3: the three block-sourced views (log_entries and measures as
// global views, thread_spans as a per-stream JIT factory) and the three
// SQL-batch views.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()

	logSchemaHash := hashutil.SchemaHash("log_entries", rowFieldNames(batch.LogEntryRow{}))
	measureSchemaHash := hashutil.SchemaHash("measures", rowFieldNames(batch.MeasureRow{}))
	spanSchemaHash := hashutil.SchemaHash("thread_spans", rowFieldNames(batch.ThreadSpanRow{}))
	processSchemaHash := hashutil.SchemaHash("processes", rowFieldNames(batch.ProcessRow{}))
	streamSchemaHash := hashutil.SchemaHash("streams", rowFieldNames(batch.StreamRow{}))
	logStatsSchemaHash := hashutil.SchemaHash("log_stats", []string{"bucket_time", "process_id", "level", "count"})

	r.Register("log_entries", func(string) (View, error) {
		return NewBlockSourcedView("log_entries", "log", logSchemaHash, &batch.LogEntryRow{},
			func() batch.BlockProcessor { return batch.LogBlockProcessor{} },
			"SELECT * FROM {source} ORDER BY time", "time"), nil
	})
	r.Register("measures", func(string) (View, error) {
		return NewBlockSourcedView("measures", "metrics", measureSchemaHash, &batch.MeasureRow{},
			func() batch.BlockProcessor { return batch.MeasureBlockProcessor{} },
			"SELECT * FROM {source} ORDER BY time", "time"), nil
	})
	r.Register("thread_spans", func(instanceID string) (View, error) {
		return NewStreamScopedView("thread_spans", instanceID, spanSchemaHash, &batch.ThreadSpanRow{},
			func() batch.BlockProcessor { return batch.ThreadSpanBlockProcessor{} },
			"SELECT * FROM {source} ORDER BY begin_time", "begin_time"), nil
	})
	r.Register("processes", func(string) (View, error) {
		return NewSQLBatchView("processes", processSchemaHash, &batch.ProcessRow{},
			"streams", "global",
			"SELECT count(*) FROM {source}",
			"SELECT * FROM {source}",
			"SELECT DISTINCT * FROM {source}", "start_time"), nil
	})
	r.Register("streams", func(string) (View, error) {
		return NewSQLBatchView("streams", streamSchemaHash, &batch.StreamRow{},
			"processes", "global",
			"SELECT count(*) FROM {source}",
			"SELECT * FROM {source}",
			"SELECT DISTINCT * FROM {source}", ""), nil
	})
	r.Register("log_stats", func(string) (View, error) {
		return NewSQLBatchView("log_stats", logStatsSchemaHash, &LogStatsRow{},
			"log_entries", "global",
			"SELECT count(*) FROM {source}",
			`SELECT epoch_ns(date_trunc('minute', to_timestamp(time/1e9))) AS bucket_time,
			        process_id, level, count(*) AS count
			 FROM {source}
			 WHERE time BETWEEN {begin} AND {end}
			 GROUP BY 1, 2, 3`,
			`SELECT bucket_time, process_id, level, sum(count) AS count
			 FROM {source} GROUP BY 1, 2, 3`, "bucket_time"), nil
	})
	return r
}

// LogStatsRow is the log_stats view's row shape, a supplemented
// aggregation view grounded on spec.md §3's view-set list.
type LogStatsRow struct {
	BucketTime int64  `parquet:"name=bucket_time, type=INT64"`
	ProcessID  string `parquet:"name=process_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	Level      int32  `parquet:"name=level, type=INT32"`
	Count      int64  `parquet:"name=count, type=INT64"`
}

func rowFieldNames(row any) []string {
	t := reflect.TypeOf(row)
	names := make([]string, t.NumField())
	for i := range names {
		names[i] = t.Field(i).Name
	}
	return names
}
