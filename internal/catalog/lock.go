package catalog

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
)

// LockKey derives the MySQL GET_LOCK() name for a (view, insert-time window)
// build, so two writers targeting the same partition serialize instead of
// racing, per spec.md §4.E step 2's "acquire per-partition advisory lock".
//
// The original source takes a Postgres advisory lock keyed by a 64-bit hash
// of the same tuple (metadata_compat.rs); GET_LOCK() takes a string name
// instead of an integer, so the hash is rendered as hex.
func LockKey(viewSetName, viewInstanceID string, begin, end time.Time) string {
	h := xxhash.New()
	_, _ = h.WriteString(viewSetName)
	_, _ = h.WriteString("\x00")
	_, _ = h.WriteString(viewInstanceID)
	_, _ = h.WriteString("\x00")
	_, _ = h.WriteString(begin.UTC().Format(time.RFC3339Nano))
	_, _ = h.WriteString("\x00")
	_, _ = h.WriteString(end.UTC().Format(time.RFC3339Nano))
	return "lakehouse_partition_" + strconv.FormatUint(h.Sum64(), 16)
}

// AcquireLock blocks up to timeout waiting for the named advisory lock and
// returns a release function. The lock is held on a single dedicated
// connection (sql.Conn) for the lifetime of the build, since MySQL
// GET_LOCK()/RELEASE_LOCK() are session-scoped.
func (s *Store) AcquireLock(ctx context.Context, key string, timeout time.Duration) (release func(context.Context) error, err error) {
	ctx, span := catalogTracer.Start(ctx, "catalog.AcquireLock")
	defer func() { endSpan(span, err) }()

	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("reserving connection for advisory lock: %w", err)
	}

	start := time.Now()
	var acquired int
	err = conn.QueryRowContext(ctx, `SELECT GET_LOCK(?, ?)`, key, int(timeout.Seconds())).Scan(&acquired)
	catalogMetrics.lockWaitMs.Record(ctx, float64(time.Since(start).Milliseconds()))
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("acquiring advisory lock %q: %w", key, err)
	}
	if acquired != 1 {
		conn.Close()
		return nil, fmt.Errorf("timed out waiting for advisory lock %q", key)
	}

	release = func(releaseCtx context.Context) error {
		defer conn.Close()
		var released int
		if err := conn.QueryRowContext(releaseCtx, `SELECT RELEASE_LOCK(?)`, key).Scan(&released); err != nil {
			return fmt.Errorf("releasing advisory lock %q: %w", key, err)
		}
		return nil
	}
	return release, nil
}
