package batch

// Row schemas for each view kind, per spec.md §4.B. Struct tags follow
// xitongsys/parquet-go's schema-from-struct-tag convention (the same
// library object storage's partition writer uses to serialize these rows
// to disk) so a Batch's Rows slice can be written directly by a
// writer.ParquetWriter without a separate schema-description step.
//
// Low-cardinality string columns (target, filename, name, unit, thread_id)
// use PLAIN_DICTIONARY encoding, matching spec.md's "dictionary<utf8>"
// schema notation.

// LogEntryRow is one row of the log_entries view.
type LogEntryRow struct {
	Time       int64  `parquet:"name=time, type=INT64"`
	Target     string `parquet:"name=target, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Filename   string `parquet:"name=filename, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Line       int32  `parquet:"name=line, type=INT32"`
	Level      int32  `parquet:"name=level, type=INT32"`
	Msg        string `parquet:"name=msg, type=BYTE_ARRAY, convertedtype=UTF8"`
	ProcessID  string `parquet:"name=process_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	StreamID   string `parquet:"name=stream_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	BlockID    string `parquet:"name=block_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	Properties []byte `parquet:"name=properties, type=BYTE_ARRAY"`
}

// MeasureRow is one row of the measures view.
type MeasureRow struct {
	Time       int64   `parquet:"name=time, type=INT64"`
	Name       string  `parquet:"name=name, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Unit       string  `parquet:"name=unit, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Value      float64 `parquet:"name=value, type=DOUBLE"`
	ProcessID  string  `parquet:"name=process_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	StreamID   string  `parquet:"name=stream_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	Properties []byte  `parquet:"name=properties, type=BYTE_ARRAY"`
}

// ThreadSpanRow is one row of the thread_spans view. Depth is negative for
// spans whose end was clamped to the block boundary (an unterminated begin
// at block-close time), per spec.md §4.B's span reconstruction rule.
type ThreadSpanRow struct {
	BeginTime  int64  `parquet:"name=begin_time, type=INT64"`
	EndTime    int64  `parquet:"name=end_time, type=INT64"`
	DurationNS int64  `parquet:"name=duration_ns, type=INT64"`
	Depth      int32  `parquet:"name=depth, type=INT32"`
	Name       string `parquet:"name=name, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Filename   string `parquet:"name=filename, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Line       int32  `parquet:"name=line, type=INT32"`
	Target     string `parquet:"name=target, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	ThreadID   string `parquet:"name=thread_id, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	ProcessID  string `parquet:"name=process_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	StreamID   string `parquet:"name=stream_id, type=BYTE_ARRAY, convertedtype=UTF8"`
}

// ProcessRow is one row of the processes view, a wide row aggregated from
// block-header columns per spec.md §4.B.
type ProcessRow struct {
	ProcessID       string            `parquet:"name=process_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	Exe             string            `parquet:"name=exe, type=BYTE_ARRAY, convertedtype=UTF8"`
	Username        string            `parquet:"name=username, type=BYTE_ARRAY, convertedtype=UTF8"`
	Hostname        string            `parquet:"name=hostname, type=BYTE_ARRAY, convertedtype=UTF8"`
	Distro          string            `parquet:"name=distro, type=BYTE_ARRAY, convertedtype=UTF8"`
	CPUBrand        string            `parquet:"name=cpu_brand, type=BYTE_ARRAY, convertedtype=UTF8"`
	TSCFrequency    int64             `parquet:"name=tsc_frequency, type=INT64"`
	StartTime       int64             `parquet:"name=start_time, type=INT64"`
	StartTicks      int64             `parquet:"name=start_ticks, type=INT64"`
	ParentProcessID string            `parquet:"name=parent_process_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	Properties      map[string]string `parquet:"name=properties, type=MAP, keytype=BYTE_ARRAY, keyconvertedtype=UTF8, valuetype=BYTE_ARRAY, valueconvertedtype=UTF8"`
}

// StreamRow is one row of the streams view.
type StreamRow struct {
	StreamID           string   `parquet:"name=stream_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	ProcessID          string   `parquet:"name=process_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	Tags               []string `parquet:"name=tags, type=LIST, valuetype=BYTE_ARRAY, valueconvertedtype=UTF8"`
	DependenciesMetadata []byte `parquet:"name=dependencies_metadata, type=BYTE_ARRAY"`
	ObjectsMetadata    []byte   `parquet:"name=objects_metadata, type=BYTE_ARRAY"`
	Properties         []byte   `parquet:"name=properties, type=BYTE_ARRAY"`
}
