package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/micromegas/lakehouse/internal/wire"
)

// BlockRef is a read-only row from the ingestion-owned blocks table: enough
// metadata for the partition writer to fetch and order source blocks
// without decoding them. Per spec.md §6, blocks/streams/processes are
// "foreign contents ... read-only from the core".
type BlockRef struct {
	BlockID      string
	StreamID     string
	ProcessID    string
	InsertTime   time.Time
	BeginTime    time.Time
	EndTime      time.Time
	BeginTicks   int64
	EndTicks     int64
	NbObjects    int32
	ObjectOffset int64
	PayloadPath  string
}

// StreamMeta is a read-only row from the ingestion-owned streams table.
type StreamMeta struct {
	StreamID           string
	ProcessID          string
	Tags               []string
	Properties         map[string]string
	DependenciesMeta    []byte
	ObjectsMeta         []byte
}

// ProcessMeta is a read-only row from the ingestion-owned processes table.
type ProcessMeta struct {
	ProcessID       string
	Exe             string
	Username        string
	Host            string
	StartTimeUTC    time.Time
	StartTicks      int64
	TSCFrequency    int64
	ParentProcessID *string
}

// FetchBlocksForWindow returns, in ascending (block_id, object_offset)
// order per spec.md §5's determinism guarantee, the blocks of streamID (or
// every stream tagged tag when streamID is empty) whose insert_time falls
// in [begin, end).
func (s *Store) FetchBlocksForWindow(ctx context.Context, streamID, tag string, begin, end time.Time) ([]BlockRef, error) {
	query := `
		SELECT b.block_id, b.stream_id, b.process_id, b.insert_time,
		       b.begin_time, b.end_time, b.begin_ticks, b.end_ticks,
		       b.nb_objects, b.object_offset, b.payload_path
		FROM blocks b`
	args := []any{}
	where := `WHERE b.insert_time >= ? AND b.insert_time < ?`
	args = append(args, begin, end)
	if streamID != "" {
		where += ` AND b.stream_id = ?`
		args = append(args, streamID)
	} else if tag != "" {
		query += ` JOIN streams s ON s.stream_id = b.stream_id`
		where += ` AND FIND_IN_SET(?, s.tags) > 0`
		args = append(args, tag)
	}
	query += " " + where + " ORDER BY b.block_id, b.object_offset"

	rows, err := s.queryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("fetching blocks for window: %w", err)
	}
	defer rows.Close()

	var out []BlockRef
	for rows.Next() {
		var b BlockRef
		if err := rows.Scan(&b.BlockID, &b.StreamID, &b.ProcessID, &b.InsertTime,
			&b.BeginTime, &b.EndTime, &b.BeginTicks, &b.EndTicks,
			&b.NbObjects, &b.ObjectOffset, &b.PayloadPath); err != nil {
			return nil, fmt.Errorf("scanning block row: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// StreamUDTs is the decoded pair of UDT lists a stream declares, cached by
// callers per stream id since it never changes after stream creation.
type StreamUDTs struct {
	DependenciesUDTs []wire.UDT
	ObjectsUDTs      []wire.UDT
}

// FetchStreamUDTs looks up a stream's dependencies_metadata/objects_metadata
// columns (stored as JSON-encoded UDT descriptor lists by ingestion) for use
// by the block codec (component A).
func (s *Store) FetchStreamUDTs(ctx context.Context, streamID string) (*StreamUDTs, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT dependencies_metadata, objects_metadata FROM streams WHERE stream_id = ?`, streamID)
	var depBytes, objBytes []byte
	if err := row.Scan(&depBytes, &objBytes); err != nil {
		return nil, fmt.Errorf("fetching stream UDTs for %q: %w", streamID, err)
	}
	var out StreamUDTs
	if err := json.Unmarshal(depBytes, &out.DependenciesUDTs); err != nil {
		return nil, fmt.Errorf("decoding dependencies_metadata for stream %q: %w", streamID, err)
	}
	if err := json.Unmarshal(objBytes, &out.ObjectsUDTs); err != nil {
		return nil, fmt.Errorf("decoding objects_metadata for stream %q: %w", streamID, err)
	}
	return &out, nil
}

// FetchProcess looks up a single process's metadata, used to convert block
// monotonic ticks to wall-clock nanoseconds (spec.md §4.B).
func (s *Store) FetchProcess(ctx context.Context, processID string) (*ProcessMeta, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT process_id, exe, username, host, start_time_utc, start_ticks,
		       tsc_frequency, parent_process_id
		FROM processes WHERE process_id = ?`, processID)
	var p ProcessMeta
	var parent *string
	if err := row.Scan(&p.ProcessID, &p.Exe, &p.Username, &p.Host, &p.StartTimeUTC,
		&p.StartTicks, &p.TSCFrequency, &parent); err != nil {
		return nil, fmt.Errorf("fetching process %q: %w", processID, err)
	}
	p.ParentProcessID = parent
	return &p, nil
}
