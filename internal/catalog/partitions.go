package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// FetchPartitions returns the live partitions for (viewSet, viewInstance,
// schemaHash) whose insert-time window overlaps [begin, end), per spec.md
// §4.D's overlap test and required range index.
func (s *Store) FetchPartitions(ctx context.Context, viewSet, viewInstance, schemaHash string, begin, end time.Time) ([]Partition, error) {
	rows, err := s.queryContext(ctx, `
		SELECT view_set_name, view_instance_id, file_schema_hash,
		       begin_insert_time, end_insert_time, min_event_time, max_event_time,
		       updated, file_path, file_size, num_rows, source_data_hash
		FROM lakehouse_partitions
		WHERE view_set_name = ? AND view_instance_id = ? AND file_schema_hash = ?
		  AND begin_insert_time < ? AND end_insert_time > ?
		ORDER BY begin_insert_time`,
		viewSet, viewInstance, schemaHash, end, begin)
	if err != nil {
		return nil, fmt.Errorf("fetching partitions: %w", err)
	}
	defer rows.Close()

	var out []Partition
	for rows.Next() {
		var p Partition
		var filePath sql.NullString
		var minEvent, maxEvent sql.NullTime
		if err := rows.Scan(&p.ViewSetName, &p.ViewInstanceID, &p.FileSchemaHash,
			&p.BeginInsertTime, &p.EndInsertTime, &minEvent, &maxEvent,
			&p.Updated, &filePath, &p.FileSize, &p.NumRows, &p.SourceDataHash); err != nil {
			return nil, fmt.Errorf("scanning partition row: %w", err)
		}
		if filePath.Valid {
			v := filePath.String
			p.FilePath = &v
		}
		if minEvent.Valid {
			v := minEvent.Time
			p.MinEventTime = &v
		}
		if maxEvent.Valid {
			v := maxEvent.Time
			p.MaxEventTime = &v
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// FindMatchingSourceHash returns the partition in (view, window, schema)
// whose source_data_hash equals want, if any — the idempotent-write check
// in spec.md §4.E step 1.
func (s *Store) FindMatchingSourceHash(ctx context.Context, viewSet, viewInstance, schemaHash string, begin, end time.Time, want string) (*Partition, error) {
	parts, err := s.FetchPartitions(ctx, viewSet, viewInstance, schemaHash, begin, end)
	if err != nil {
		return nil, err
	}
	for _, p := range parts {
		if p.BeginInsertTime.Equal(begin) && p.EndInsertTime.Equal(end) && p.SourceDataHash == want {
			return &p, nil
		}
	}
	return nil, nil
}

// ReplacePartition performs spec.md §4.E step 6 / §4.F's retirement step in
// a single catalog transaction: move any pre-existing row for the same
// (view, window, schema) into temporary_files with the given expiration,
// then insert the new row. old may be nil (no prior row).
func (s *Store) ReplacePartition(ctx context.Context, old *Partition, next Partition, retentionGrace time.Duration) error {
	ctx, span := catalogTracer.Start(ctx, "catalog.ReplacePartition")
	defer span.End()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning replace-partition transaction: %w", err)
	}
	defer tx.Rollback()

	if old != nil && old.FilePath != nil {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO temporary_files (file_path, expiration) VALUES (?, ?)
			 ON DUPLICATE KEY UPDATE expiration = VALUES(expiration)`,
			*old.FilePath, time.Now().Add(retentionGrace)); err != nil {
			return fmt.Errorf("moving superseded file to temporary_files: %w", err)
		}
	}
	if old != nil {
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM lakehouse_partitions
			WHERE view_set_name = ? AND view_instance_id = ? AND file_schema_hash = ?
			  AND begin_insert_time = ? AND end_insert_time = ? AND source_data_hash = ?`,
			old.ViewSetName, old.ViewInstanceID, old.FileSchemaHash,
			old.BeginInsertTime, old.EndInsertTime, old.SourceDataHash); err != nil {
			return fmt.Errorf("deleting superseded partition row: %w", err)
		}
	}

	if err := insertPartitionTx(ctx, tx, next); err != nil {
		return err
	}
	return tx.Commit()
}

func insertPartitionTx(ctx context.Context, tx *sql.Tx, p Partition) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO lakehouse_partitions
			(view_set_name, view_instance_id, file_schema_hash,
			 begin_insert_time, end_insert_time, min_event_time, max_event_time,
			 updated, file_path, file_size, num_rows, source_data_hash)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ViewSetName, p.ViewInstanceID, p.FileSchemaHash,
		p.BeginInsertTime, p.EndInsertTime, p.MinEventTime, p.MaxEventTime,
		time.Now(), p.FilePath, p.FileSize, p.NumRows, p.SourceDataHash)
	if err != nil {
		return fmt.Errorf("inserting partition row: %w", err)
	}
	return nil
}

// RetireBySchema moves every partition of (viewSet, viewInstance) whose
// schema hash differs from currentSchemaHash into temporary_files, per
// spec.md §4.I's "retire by schema hash" daemon task.
func (s *Store) RetireBySchema(ctx context.Context, viewSet, viewInstance, currentSchemaHash string, retentionGrace time.Duration) (int, error) {
	rows, err := s.queryContext(ctx, `
		SELECT view_set_name, view_instance_id, file_schema_hash,
		       begin_insert_time, end_insert_time, file_path, source_data_hash
		FROM lakehouse_partitions
		WHERE view_set_name = ? AND view_instance_id = ? AND file_schema_hash <> ?`,
		viewSet, viewInstance, currentSchemaHash)
	if err != nil {
		return 0, fmt.Errorf("listing stale-schema partitions: %w", err)
	}
	type key struct {
		viewSet, viewInstance, schemaHash, sourceHash string
		begin, end                                    time.Time
		filePath                                      sql.NullString
	}
	var stale []key
	for rows.Next() {
		var k key
		if err := rows.Scan(&k.viewSet, &k.viewInstance, &k.schemaHash, &k.begin, &k.end, &k.filePath, &k.sourceHash); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scanning stale-schema partition: %w", err)
		}
		stale = append(stale, k)
	}
	rows.Close()

	count := 0
	for _, k := range stale {
		old := Partition{ViewSetName: k.viewSet, ViewInstanceID: k.viewInstance, FileSchemaHash: k.schemaHash,
			BeginInsertTime: k.begin, EndInsertTime: k.end, SourceDataHash: k.sourceHash}
		if k.filePath.Valid {
			v := k.filePath.String
			old.FilePath = &v
		}
		if err := s.retirePartitionRow(ctx, old, retentionGrace); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

// RetirePartitions retires every live partition of (viewSet, viewInstance)
// whose insert window overlaps [begin, end), the supplemented admin
// operation grounded on
// original_source/rust/.../retire_partitions_table_function.rs.
func (s *Store) RetirePartitions(ctx context.Context, viewSet, viewInstance string, begin, end time.Time, retentionGrace time.Duration) (int, error) {
	rows, err := s.queryContext(ctx, `
		SELECT file_schema_hash, begin_insert_time, end_insert_time, file_path, source_data_hash
		FROM lakehouse_partitions
		WHERE view_set_name = ? AND view_instance_id = ?
		  AND begin_insert_time < ? AND end_insert_time > ?`,
		viewSet, viewInstance, end, begin)
	if err != nil {
		return 0, fmt.Errorf("listing partitions to retire: %w", err)
	}
	type row struct {
		schemaHash, sourceHash string
		begin, end             time.Time
		filePath               sql.NullString
	}
	var victims []row
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.schemaHash, &r.begin, &r.end, &r.filePath, &r.sourceHash); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scanning partition to retire: %w", err)
		}
		victims = append(victims, r)
	}
	rows.Close()

	count := 0
	for _, r := range victims {
		old := Partition{ViewSetName: viewSet, ViewInstanceID: viewInstance, FileSchemaHash: r.schemaHash,
			BeginInsertTime: r.begin, EndInsertTime: r.end, SourceDataHash: r.sourceHash}
		if r.filePath.Valid {
			v := r.filePath.String
			old.FilePath = &v
		}
		if err := s.retirePartitionRow(ctx, old, retentionGrace); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

func (s *Store) retirePartitionRow(ctx context.Context, old Partition, retentionGrace time.Duration) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning retire transaction: %w", err)
	}
	defer tx.Rollback()

	if old.FilePath != nil {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO temporary_files (file_path, expiration) VALUES (?, ?)
			 ON DUPLICATE KEY UPDATE expiration = VALUES(expiration)`,
			*old.FilePath, time.Now().Add(retentionGrace)); err != nil {
			return fmt.Errorf("moving retired file to temporary_files: %w", err)
		}
	}
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM lakehouse_partitions
		WHERE view_set_name = ? AND view_instance_id = ? AND file_schema_hash = ?
		  AND begin_insert_time = ? AND end_insert_time = ? AND source_data_hash = ?`,
		old.ViewSetName, old.ViewInstanceID, old.FileSchemaHash,
		old.BeginInsertTime, old.EndInsertTime, old.SourceDataHash); err != nil {
		return fmt.Errorf("deleting retired partition row: %w", err)
	}
	return tx.Commit()
}

// ReapExpiredTemporaryFiles deletes catalog rows where expiration < now and
// returns their paths for the caller to batch-delete from object storage,
// per spec.md §4.I's "reap temporary files" task.
func (s *Store) ReapExpiredTemporaryFiles(ctx context.Context, now time.Time) ([]string, error) {
	rows, err := s.queryContext(ctx, `SELECT file_path FROM temporary_files WHERE expiration < ?`, now)
	if err != nil {
		return nil, fmt.Errorf("listing expired temporary files: %w", err)
	}
	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning temporary file path: %w", err)
		}
		paths = append(paths, p)
	}
	rows.Close()
	if len(paths) == 0 {
		return nil, nil
	}
	if _, err := s.execContext(ctx, `DELETE FROM temporary_files WHERE expiration < ?`, now); err != nil {
		return nil, fmt.Errorf("deleting expired temporary_files rows: %w", err)
	}
	return paths, nil
}
