// Package merger implements spec.md §4.F: combining finer-grain partitions
// into coarser ones using each view's merge query, and retiring the
// superseded inputs. Grounded on the teacher's daemon task idiom
// (cmd/bd/daemon_event_loop.go) generalized from a single periodic job to
// one invoked per (view, granularity) pair.
package merger

import (
	"context"
	"fmt"
	"time"

	"github.com/micromegas/lakehouse/internal/catalog"
	"github.com/micromegas/lakehouse/internal/lakehouse/errs"
	"github.com/micromegas/lakehouse/internal/lakehouse/lake"
	"github.com/micromegas/lakehouse/internal/lakehouse/view"
)

// Granularity names a G-aligned bucket size spec.md §4.F merges into.
type Granularity time.Duration

const (
	Hourly Granularity = Granularity(time.Hour)
	Daily  Granularity = Granularity(24 * time.Hour)
)

// MergeUp collects every live partition of v whose insert window falls
// into each G-aligned bucket in [rangeBegin, rangeEnd), and where a bucket
// holds more than one partition (or any partition finer than G), replaces
// them with a single partition built from v's merge query, per spec.md
// §4.F. Returns the number of buckets merged.
func MergeUp(ctx context.Context, l *lake.Lake, v view.View, target Granularity, rangeBegin, rangeEnd time.Time) (int, error) {
	bucketSize := time.Duration(target)
	merged := 0
	for bucketStart := rangeBegin.Truncate(bucketSize); bucketStart.Before(rangeEnd); bucketStart = bucketStart.Add(bucketSize) {
		bucketEnd := bucketStart.Add(bucketSize)
		overlapping, err := l.Catalog.FetchPartitions(ctx, v.ViewSetName(), v.ViewInstanceID(), v.FileSchemaHash(), bucketStart, bucketEnd)
		if err != nil {
			return merged, errs.New(errs.KindCatalogIO, "merger.MergeUp.fetch", err)
		}
		var inputs []catalog.Partition
		for _, p := range overlapping {
			if !p.BeginInsertTime.Before(bucketStart) && !p.EndInsertTime.After(bucketEnd) {
				inputs = append(inputs, p)
			}
		}
		if !needsMerge(inputs, bucketStart, bucketEnd) {
			continue
		}

		lockKey := catalog.LockKey(v.ViewSetName()+":merge", v.ViewInstanceID(), bucketStart, bucketEnd)
		release, err := l.Catalog.AcquireLock(ctx, lockKey, 30*time.Second)
		if err != nil {
			return merged, errs.New(errs.KindCatalogIO, "merger.MergeUp.lock", err)
		}

		result, err := mergeBucket(ctx, l, v, inputs, bucketStart, bucketEnd)
		release(ctx)
		if err != nil {
			return merged, err
		}
		if result {
			merged++
		}
	}
	return merged, nil
}

func mergeBucket(ctx context.Context, l *lake.Lake, v view.View, inputs []catalog.Partition, bucketStart, bucketEnd time.Time) (bool, error) {
	next, err := view.MergePartitions(ctx, l, v, inputs, bucketStart, bucketEnd)
	if err != nil {
		return false, fmt.Errorf("merging %s partitions [%s,%s): %w", v.ViewSetName(), bucketStart, bucketEnd, err)
	}

	// Retire the inputs before inserting the merged row: RetirePartitions
	// matches by window overlap, so it would also retire the merged row.
	for i := range inputs {
		if _, err := l.Catalog.RetirePartitions(ctx, v.ViewSetName(), v.ViewInstanceID(), inputs[i].BeginInsertTime, inputs[i].EndInsertTime, l.Config.RetentionGrace); err != nil {
			return false, errs.New(errs.KindCatalogIO, "merger.mergeBucket.retire", err)
		}
	}
	if err := l.Catalog.ReplacePartition(ctx, nil, *next, l.Config.RetentionGrace); err != nil {
		return false, errs.New(errs.KindCatalogIO, "merger.mergeBucket.insert", err)
	}
	return true, nil
}

// needsMerge reports whether inputs should be replaced: more than one
// partition in the bucket, or a single partition whose window is strictly
// finer than the bucket.
func needsMerge(inputs []catalog.Partition, bucketStart, bucketEnd time.Time) bool {
	if len(inputs) > 1 {
		return true
	}
	if len(inputs) == 1 {
		p := inputs[0]
		return !(p.BeginInsertTime.Equal(bucketStart) && p.EndInsertTime.Equal(bucketEnd))
	}
	return false
}
