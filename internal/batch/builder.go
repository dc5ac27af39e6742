package batch

import (
	"sort"
	"time"
)

// Batch is the builder's output: a typed slice of rows for one view kind
// plus its event-time bounds. It stands in for the Arrow RecordBatch named
// in spec.md §4.B — see DESIGN.md for why this repo represents a batch as a
// row-oriented struct slice instead of an Arrow columnar buffer.
type Batch struct {
	SchemaName   string
	Rows         any
	NumRows      int
	MinEventTime time.Time
	MaxEventTime time.Time
	HasEventTime bool
}

// Builder is implemented by every per-view-kind builder, per spec.md §4.B's
// contract: append, nb_rows, event_time_bounds, finish.
type Builder interface {
	NbRows() int
	EventTimeBounds() (min, max time.Time, ok bool)
	Finish() Batch
}

func nsToTime(ns int64) time.Time { return time.Unix(0, ns).UTC() }

// --- log_entries ---------------------------------------------------------

// LogEntryBuilder accumulates log_entries rows.
type LogEntryBuilder struct {
	rows     []LogEntryRow
	minNS    int64
	maxNS    int64
	hasBound bool
}

func NewLogEntryBuilder() *LogEntryBuilder { return &LogEntryBuilder{} }

func (b *LogEntryBuilder) Append(row LogEntryRow) {
	b.rows = append(b.rows, row)
	b.bound(row.Time)
}

func (b *LogEntryBuilder) bound(ns int64) {
	if !b.hasBound || ns < b.minNS {
		b.minNS = ns
	}
	if !b.hasBound || ns > b.maxNS {
		b.maxNS = ns
	}
	b.hasBound = true
}

func (b *LogEntryBuilder) NbRows() int { return len(b.rows) }

func (b *LogEntryBuilder) EventTimeBounds() (time.Time, time.Time, bool) {
	if !b.hasBound {
		return time.Time{}, time.Time{}, false
	}
	return nsToTime(b.minNS), nsToTime(b.maxNS), true
}

func (b *LogEntryBuilder) Finish() Batch {
	sort.Slice(b.rows, func(i, j int) bool { return b.rows[i].Time < b.rows[j].Time })
	min, max, ok := b.EventTimeBounds()
	return Batch{SchemaName: "log_entries", Rows: b.rows, NumRows: len(b.rows), MinEventTime: min, MaxEventTime: max, HasEventTime: ok}
}

// --- measures -------------------------------------------------------------

// MeasureBuilder accumulates measures rows.
type MeasureBuilder struct {
	rows     []MeasureRow
	minNS    int64
	maxNS    int64
	hasBound bool
}

func NewMeasureBuilder() *MeasureBuilder { return &MeasureBuilder{} }

func (b *MeasureBuilder) Append(row MeasureRow) {
	b.rows = append(b.rows, row)
	if !b.hasBound || row.Time < b.minNS {
		b.minNS = row.Time
	}
	if !b.hasBound || row.Time > b.maxNS {
		b.maxNS = row.Time
	}
	b.hasBound = true
}

func (b *MeasureBuilder) NbRows() int { return len(b.rows) }

func (b *MeasureBuilder) EventTimeBounds() (time.Time, time.Time, bool) {
	if !b.hasBound {
		return time.Time{}, time.Time{}, false
	}
	return nsToTime(b.minNS), nsToTime(b.maxNS), true
}

func (b *MeasureBuilder) Finish() Batch {
	sort.Slice(b.rows, func(i, j int) bool { return b.rows[i].Time < b.rows[j].Time })
	min, max, ok := b.EventTimeBounds()
	return Batch{SchemaName: "measures", Rows: b.rows, NumRows: len(b.rows), MinEventTime: min, MaxEventTime: max, HasEventTime: ok}
}

// --- thread_spans -----------------------------------------------------------

type spanFrame struct {
	beginNS  int64
	depth    int32
	name     string
	filename string
	target   string
	threadID string
	line     int32
}

// ThreadSpanBuilder reconstructs spans with a per-thread depth-tracking
// stack machine, per spec.md §4.B.
type ThreadSpanBuilder struct {
	processID string
	streamID  string
	stacks    map[string][]spanFrame
	rows      []ThreadSpanRow
	minNS     int64
	maxNS     int64
	hasBound  bool
}

func NewThreadSpanBuilder(processID, streamID string) *ThreadSpanBuilder {
	return &ThreadSpanBuilder{
		processID: processID,
		streamID:  streamID,
		stacks:    make(map[string][]spanFrame),
	}
}

// AppendBegin pushes a new frame onto threadID's stack. depth is recorded
// at begin-time, as spec.md §4.B requires.
func (b *ThreadSpanBuilder) AppendBegin(threadID, name, filename, target string, line int32, beginNS int64) {
	stack := b.stacks[threadID]
	depth := int32(len(stack)) + 1
	stack = append(stack, spanFrame{
		beginNS: beginNS, depth: depth, name: name, filename: filename,
		target: target, threadID: threadID, line: line,
	})
	b.stacks[threadID] = stack
}

// AppendEnd pops the innermost open frame on threadID's stack and emits a
// completed row. An end with no matching begin is discarded silently, per
// spec.md §4.B.
func (b *ThreadSpanBuilder) AppendEnd(threadID string, endNS int64) {
	stack := b.stacks[threadID]
	if len(stack) == 0 {
		return
	}
	top := stack[len(stack)-1]
	b.stacks[threadID] = stack[:len(stack)-1]
	b.emit(top, endNS, top.depth)
}

// CloseBlock flushes any still-open frames at the end of one source block,
// clamping end_time to blockEndNS and marking depth negative, per spec.md
// §4.B and the Open Question #3 decision recorded in DESIGN.md. Each
// builder processes one block at a time; call CloseBlock after feeding all
// of a block's events before moving to the next block.
func (b *ThreadSpanBuilder) CloseBlock(blockEndNS int64) {
	for threadID, stack := range b.stacks {
		for _, f := range stack {
			b.emit(f, blockEndNS, -f.depth)
		}
		delete(b.stacks, threadID)
	}
}

func (b *ThreadSpanBuilder) emit(f spanFrame, endNS int64, depth int32) {
	b.rows = append(b.rows, ThreadSpanRow{
		BeginTime:  f.beginNS,
		EndTime:    endNS,
		DurationNS: endNS - f.beginNS,
		Depth:      depth,
		Name:       f.name,
		Filename:   f.filename,
		Line:       f.line,
		Target:     f.target,
		ThreadID:   f.threadID,
		ProcessID:  b.processID,
		StreamID:   b.streamID,
	})
	if !b.hasBound || f.beginNS < b.minNS {
		b.minNS = f.beginNS
	}
	if !b.hasBound || endNS > b.maxNS {
		b.maxNS = endNS
	}
	b.hasBound = true
}

func (b *ThreadSpanBuilder) NbRows() int { return len(b.rows) }

func (b *ThreadSpanBuilder) EventTimeBounds() (time.Time, time.Time, bool) {
	if !b.hasBound {
		return time.Time{}, time.Time{}, false
	}
	return nsToTime(b.minNS), nsToTime(b.maxNS), true
}

func (b *ThreadSpanBuilder) Finish() Batch {
	sort.Slice(b.rows, func(i, j int) bool { return b.rows[i].BeginTime < b.rows[j].BeginTime })
	min, max, ok := b.EventTimeBounds()
	return Batch{SchemaName: "thread_spans", Rows: b.rows, NumRows: len(b.rows), MinEventTime: min, MaxEventTime: max, HasEventTime: ok}
}

// --- processes / streams ----------------------------------------------------

// ProcessesBuilder accumulates processes rows. There is no distinguished
// event-time column; StartTime is used for bounds bookkeeping only.
type ProcessesBuilder struct {
	rows     []ProcessRow
	minNS    int64
	maxNS    int64
	hasBound bool
}

func NewProcessesBuilder() *ProcessesBuilder { return &ProcessesBuilder{} }

func (b *ProcessesBuilder) Append(row ProcessRow) {
	b.rows = append(b.rows, row)
	if !b.hasBound || row.StartTime < b.minNS {
		b.minNS = row.StartTime
	}
	if !b.hasBound || row.StartTime > b.maxNS {
		b.maxNS = row.StartTime
	}
	b.hasBound = true
}

func (b *ProcessesBuilder) NbRows() int { return len(b.rows) }

func (b *ProcessesBuilder) EventTimeBounds() (time.Time, time.Time, bool) {
	if !b.hasBound {
		return time.Time{}, time.Time{}, false
	}
	return nsToTime(b.minNS), nsToTime(b.maxNS), true
}

func (b *ProcessesBuilder) Finish() Batch {
	min, max, ok := b.EventTimeBounds()
	return Batch{SchemaName: "processes", Rows: b.rows, NumRows: len(b.rows), MinEventTime: min, MaxEventTime: max, HasEventTime: ok}
}

// StreamsBuilder accumulates streams rows.
type StreamsBuilder struct {
	rows []StreamRow
}

func NewStreamsBuilder() *StreamsBuilder { return &StreamsBuilder{} }

func (b *StreamsBuilder) Append(row StreamRow) { b.rows = append(b.rows, row) }

func (b *StreamsBuilder) NbRows() int { return len(b.rows) }

func (b *StreamsBuilder) EventTimeBounds() (time.Time, time.Time, bool) {
	return time.Time{}, time.Time{}, false
}

func (b *StreamsBuilder) Finish() Batch {
	return Batch{SchemaName: "streams", Rows: b.rows, NumRows: len(b.rows)}
}
