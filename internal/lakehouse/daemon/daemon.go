// Package daemon implements spec.md §4.I: the background scheduler that
// advances every daemon-fed view's materialization, merges small
// partitions into larger ones, and reaps expired temporary files on its
// own cadence. Stale-schema retirement is RetireStaleSchemas, which Run
// does not schedule; it runs once per call (cmd/analytics-srv calls it at
// startup). Grounded on
// cmd/bd/daemon_event_loop.go's ticker-driven select loop (signal-handling
// and file-watching are dropped; this daemon has nothing analogous to
// watch, only time).
package daemon

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/micromegas/lakehouse/internal/lakehouse/lake"
	"github.com/micromegas/lakehouse/internal/lakehouse/merger"
	"github.com/micromegas/lakehouse/internal/lakehouse/view"
	"github.com/micromegas/lakehouse/internal/lakehouse/writer"
)

// Config controls the daemon's cadence. Every interval defaults to a
// sensible value in New if left zero.
type Config struct {
	// TickInterval is both the daemon's materialization granularity and
	// how often it attempts to advance each global view's coverage.
	TickInterval time.Duration
	// MaterializeLag holds back the advancing edge by this much, giving
	// slow-arriving blocks time to land before their window is closed.
	MaterializeLag time.Duration
	// MergeInterval is how often the daemon looks for hourly/daily
	// merge-up opportunities.
	MergeInterval time.Duration
	// HourlyMergeWindow/DailyMergeWindow bound how far back each
	// granularity's merge-up scans for merge candidates.
	HourlyMergeWindow time.Duration
	DailyMergeWindow  time.Duration
	// ReapInterval is how often retired files past their retention grace
	// are deleted from object storage.
	ReapInterval time.Duration
}

func (c Config) withDefaults() Config {
	if c.TickInterval <= 0 {
		c.TickInterval = time.Minute
	}
	if c.MaterializeLag <= 0 {
		c.MaterializeLag = 10 * time.Second
	}
	if c.MergeInterval <= 0 {
		c.MergeInterval = 15 * time.Minute
	}
	if c.HourlyMergeWindow <= 0 {
		c.HourlyMergeWindow = 6 * time.Hour
	}
	if c.DailyMergeWindow <= 0 {
		c.DailyMergeWindow = 7 * 24 * time.Hour
	}
	if c.ReapInterval <= 0 {
		c.ReapInterval = 30 * time.Minute
	}
	return c
}

// Daemon runs the background maintenance tasks for one or more global
// ("daemon-fed") view sets. Process/stream-scoped views (thread_spans) are
// materialized on demand by the JIT path instead and are never passed
// here.
type Daemon struct {
	lake     *lake.Lake
	registry *view.Registry
	viewSets []string
	cfg      Config
	log      *slog.Logger

	mu       sync.Mutex
	advanced map[string]time.Time
}

// New builds a Daemon that advances viewSets (each resolved with view
// instance id "global"). log defaults to slog.Default() if nil.
func New(l *lake.Lake, registry *view.Registry, viewSets []string, cfg Config, log *slog.Logger) *Daemon {
	if log == nil {
		log = slog.Default()
	}
	return &Daemon{
		lake: l, registry: registry, viewSets: viewSets,
		cfg: cfg.withDefaults(), log: log,
		advanced: make(map[string]time.Time),
	}
}

// Run blocks, driving the scheduler loop until ctx is cancelled.
func (d *Daemon) Run(ctx context.Context) error {
	advanceTicker := time.NewTicker(d.cfg.TickInterval)
	defer advanceTicker.Stop()
	mergeTicker := time.NewTicker(d.cfg.MergeInterval)
	defer mergeTicker.Stop()
	reapTicker := time.NewTicker(d.cfg.ReapInterval)
	defer reapTicker.Stop()

	d.log.Info("lakehouse daemon starting", "view_sets", d.viewSets, "tick_interval", d.cfg.TickInterval)

	for {
		select {
		case <-ctx.Done():
			d.log.Info("lakehouse daemon stopping")
			return ctx.Err()
		case now := <-advanceTicker.C:
			d.advanceAll(ctx, now)
		case now := <-mergeTicker.C:
			d.mergeAll(ctx, now)
		case now := <-reapTicker.C:
			d.reap(ctx, now)
		}
	}
}

// advanceAll builds each global view's partition for the window since it
// was last advanced, per spec.md §4.I's "advance materialization" task.
func (d *Daemon) advanceAll(ctx context.Context, now time.Time) {
	cutoff := now.Add(-d.cfg.MaterializeLag)
	for _, name := range d.viewSets {
		d.mu.Lock()
		begin, ok := d.advanced[name]
		d.mu.Unlock()
		if !ok {
			begin = cutoff.Add(-d.cfg.TickInterval)
		}
		if !begin.Before(cutoff) {
			continue
		}
		start := time.Now()
		if _, err := writer.Build(ctx, d.lake, d.registry, name, "global", begin, cutoff); err != nil {
			d.log.Error("advance materialization failed", "view_set", name, "error", err)
			continue
		}
		d.log.Info("advanced materialization", "view_set", name,
			"begin", begin, "end", cutoff, "tick_delay", start.Sub(now))
		d.mu.Lock()
		d.advanced[name] = cutoff
		d.mu.Unlock()
	}
}

// mergeAll runs hourly and daily merge-up passes over each view set, per
// spec.md §4.F.
func (d *Daemon) mergeAll(ctx context.Context, now time.Time) {
	for _, name := range d.viewSets {
		v, err := d.registry.Make(name, "global")
		if err != nil {
			d.log.Error("resolving view for merge-up failed", "view_set", name, "error", err)
			continue
		}
		if n, err := merger.MergeUp(ctx, d.lake, v, merger.Hourly, now.Add(-d.cfg.HourlyMergeWindow), now); err != nil {
			d.log.Error("hourly merge-up failed", "view_set", name, "error", err)
		} else if n > 0 {
			d.log.Info("merged partitions", "view_set", name, "granularity", "hourly", "count", n)
		}
		if n, err := merger.MergeUp(ctx, d.lake, v, merger.Daily, now.Add(-d.cfg.DailyMergeWindow), now); err != nil {
			d.log.Error("daily merge-up failed", "view_set", name, "error", err)
		} else if n > 0 {
			d.log.Info("merged partitions", "view_set", name, "granularity", "daily", "count", n)
		}
	}
}

// reap deletes expired temporary files from both the catalog and object
// storage, per spec.md §4.I's "reap temporary files" task.
func (d *Daemon) reap(ctx context.Context, now time.Time) {
	paths, err := d.lake.Catalog.ReapExpiredTemporaryFiles(ctx, now)
	if err != nil {
		d.log.Error("listing expired temporary files failed", "error", err)
		return
	}
	if len(paths) == 0 {
		return
	}
	if err := d.lake.Objects.Delete(ctx, paths...); err != nil {
		d.log.Error("deleting expired temporary files failed", "count", len(paths), "error", err)
		return
	}
	d.log.Info("reaped temporary files", "count", len(paths))
}

// RetireStaleSchemas retires, for every managed view set, any live
// partition whose schema hash no longer matches the view's current
// FileSchemaHash() — run once at startup so a binary upgrade that changes
// a row schema doesn't leave unreadable old-schema partitions live.
func (d *Daemon) RetireStaleSchemas(ctx context.Context) error {
	for _, name := range d.viewSets {
		v, err := d.registry.Make(name, "global")
		if err != nil {
			return err
		}
		n, err := d.lake.Catalog.RetireBySchema(ctx, name, "global", v.FileSchemaHash(), d.lake.Config.RetentionGrace)
		if err != nil {
			return err
		}
		if n > 0 {
			d.log.Info("retired stale-schema partitions", "view_set", name, "count", n)
		}
	}
	return nil
}
