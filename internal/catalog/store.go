package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-sql-driver/mysql"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Store is the catalog connection: a single process-wide pool, per spec.md
// §5's "Catalog connection pool: single instance per process".
type Store struct {
	db     *sql.DB
	closed atomic.Bool
}

// catalogTracer mirrors internal/storage/dolt/store.go's doltTracer: a
// package-scoped tracer bound to the global (possibly no-op) provider.
var catalogTracer = otel.Tracer("github.com/micromegas/lakehouse/catalog")

var catalogMetrics struct {
	retryCount   metric.Int64Counter
	lockWaitMs   metric.Float64Histogram
	tickDelayMs  metric.Float64Histogram
}

func init() {
	m := otel.Meter("github.com/micromegas/lakehouse/catalog")
	catalogMetrics.retryCount, _ = m.Int64Counter("lakehouse.catalog.retry_count",
		metric.WithDescription("catalog operations retried due to transient errors"),
		metric.WithUnit("{retry}"))
	catalogMetrics.lockWaitMs, _ = m.Float64Histogram("lakehouse.catalog.lock_wait_ms",
		metric.WithDescription("time spent waiting for an advisory lock"),
		metric.WithUnit("ms"))
	catalogMetrics.tickDelayMs, _ = m.Float64Histogram("lakehouse.daemon.task_tick_delay_ms",
		metric.WithDescription("scheduled minus actual daemon tick time, per spec.md §4.I"),
		metric.WithUnit("ms"))
}

// Open connects to the catalog using the MySQL-wire driver (either a real
// MySQL server or a Dolt sql-server in server mode; both speak the same
// wire protocol, per internal/storage/dolt's server-mode path).
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening catalog connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging catalog: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	if s.closed.CompareAndSwap(false, true) {
		return s.db.Close()
	}
	return nil
}

func spanSQL(q string) string {
	if len(q) > 300 {
		return q[:300] + "…"
	}
	return q
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	var merr *mysql.MySQLError
	if errors.As(err, &merr) {
		switch merr.Number {
		case 1205, // lock wait timeout exceeded
			1213, // deadlock found when trying to get lock
			1040, // too many connections
			2006, // server has gone away
			2013: // lost connection to server during query
			return true
		}
		return false
	}
	errStr := strings.ToLower(err.Error())
	// Transient server-mode and network errors (connection reset, deadlock,
	// lock wait timeout) are retried; everything else (syntax errors,
	// constraint violations) is permanent. Matches internal/storage/dolt's
	// retry split.
	switch {
	case strings.Contains(errStr, "driver: bad connection"),
		strings.Contains(errStr, "invalid connection"),
		strings.Contains(errStr, "broken pipe"),
		strings.Contains(errStr, "connection reset"),
		strings.Contains(errStr, "connection refused"),
		strings.Contains(errStr, "database is read only"),
		strings.Contains(errStr, "lost connection"),
		strings.Contains(errStr, "gone away"),
		strings.Contains(errStr, "i/o timeout"),
		strings.Contains(errStr, "unknown database"):
		return true
	}
	return false
}

func (s *Store) withRetry(ctx context.Context, op func() error) error {
	attempts := 0
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 30 * time.Second
	err := backoff.Retry(func() error {
		attempts++
		err := op()
		if err != nil && isRetryable(err) {
			return err
		}
		if err != nil {
			return backoff.Permanent(err)
		}
		return nil
	}, backoff.WithContext(bo, ctx))
	if attempts > 1 {
		catalogMetrics.retryCount.Add(ctx, int64(attempts-1))
	}
	return err
}

func (s *Store) execContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	ctx, span := catalogTracer.Start(ctx, "catalog.exec",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "mysql"),
			attribute.String("db.operation", "exec"),
			attribute.String("db.statement", spanSQL(query)),
		))
	var result sql.Result
	err := s.withRetry(ctx, func() error {
		var execErr error
		result, execErr = s.db.ExecContext(ctx, query, args...)
		return execErr
	})
	endSpan(span, err)
	return result, err
}

func (s *Store) queryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	ctx, span := catalogTracer.Start(ctx, "catalog.query",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "mysql"),
			attribute.String("db.operation", "query"),
			attribute.String("db.statement", spanSQL(query)),
		))
	var rows *sql.Rows
	err := s.withRetry(ctx, func() error {
		var qerr error
		rows, qerr = s.db.QueryContext(ctx, query, args...)
		return qerr
	})
	endSpan(span, err)
	return rows, err
}

func (s *Store) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS lakehouse_partitions (
			view_set_name VARCHAR(255) NOT NULL,
			view_instance_id VARCHAR(255) NOT NULL,
			file_schema_hash VARCHAR(64) NOT NULL,
			begin_insert_time DATETIME(6) NOT NULL,
			end_insert_time DATETIME(6) NOT NULL,
			min_event_time DATETIME(6) NULL,
			max_event_time DATETIME(6) NULL,
			updated DATETIME(6) NOT NULL,
			file_path TEXT NULL,
			file_size BIGINT NOT NULL DEFAULT 0,
			num_rows BIGINT NOT NULL DEFAULT 0,
			source_data_hash VARCHAR(64) NOT NULL,
			PRIMARY KEY (view_set_name, view_instance_id, file_schema_hash,
				begin_insert_time, end_insert_time, source_data_hash)
		)`,
		`CREATE TABLE IF NOT EXISTS temporary_files (
			file_path VARCHAR(1024) PRIMARY KEY,
			expiration DATETIME(6) NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS migration (version INT NOT NULL)`,
	}
	for _, stmt := range stmts {
		if _, err := s.execContext(ctx, stmt); err != nil {
			return fmt.Errorf("running migration statement: %w", err)
		}
	}
	// Required index per spec.md §4.D, added separately because MySQL has
	// no CREATE INDEX IF NOT EXISTS; a duplicate-key-name error means a
	// prior migration already created it.
	_, err := s.db.ExecContext(ctx,
		`CREATE INDEX idx_partitions_range ON lakehouse_partitions
			(view_set_name, view_instance_id, file_schema_hash, begin_insert_time, end_insert_time)`)
	if err != nil && !isDuplicateIndexError(err) {
		return fmt.Errorf("creating partitions range index: %w", err)
	}
	return nil
}

func isDuplicateIndexError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key name") || strings.Contains(msg, "already exists")
}
