// Package batch accumulates decoded wire events into columnar record
// batches, one builder per view kind (log_entries, measures, thread_spans,
// processes, streams), per spec.md §4.B.
package batch

import "time"

// Process carries the block-header fields needed to convert monotonic tick
// timestamps to wall-clock nanoseconds, per spec.md's data model.
type Process struct {
	ProcessID      string
	Exe            string
	Username       string
	Hostname       string
	Distro         string
	CPUBrand       string
	TSCFrequency   int64 // Hz; 0 means "unknown, estimate it"
	StartTimeNS    int64 // wall-clock nanoseconds since epoch
	StartTicks     int64
	ParentProcessID string
	Properties     map[string]string

	// LastBlockEndTicks/LastBlockEndTimeNS, when both set, let ConvertTicks
	// estimate a TSC frequency when the process didn't report one. Ingestion
	// is expected to populate these from the most recent block it has seen
	// for the stream.
	LastBlockEndTicks  int64
	LastBlockEndTimeNS int64
}

// estimatedFrequency derives a TSC frequency from a second (ticks, wall-ns)
// sample when the process itself reported none, per spec.md §4.B.
func (p *Process) estimatedFrequency() (int64, bool) {
	if p.LastBlockEndTicks <= p.StartTicks || p.LastBlockEndTimeNS <= p.StartTimeNS {
		return 0, false
	}
	deltaTicks := p.LastBlockEndTicks - p.StartTicks
	deltaNS := p.LastBlockEndTimeNS - p.StartTimeNS
	// freq (Hz) = ticks / seconds = ticks * 1e9 / ns
	freq := int64(float64(deltaTicks) * 1e9 / float64(deltaNS))
	if freq <= 0 {
		return 0, false
	}
	return freq, true
}

// ConvertTicks converts a monotonic tick count to wall-clock nanoseconds
// since epoch, per spec.md §4.B:
//
//	ns = process.start_time_ns + (ticks - process.start_ticks) * 1e9 / process.tsc_frequency
//
// When TSCFrequency is zero, it is estimated from LastBlockEnd*; if
// estimation is impossible the function falls back to returning
// fallbackNS unchanged (the block's own reported wall-clock bound), per
// spec.md's "fall back to block timings if estimation fails".
func (p *Process) ConvertTicks(ticks int64, fallbackNS int64) int64 {
	freq := p.TSCFrequency
	if freq <= 0 {
		if est, ok := p.estimatedFrequency(); ok {
			freq = est
		} else {
			return fallbackNS
		}
	}
	deltaTicks := ticks - p.StartTicks
	deltaNS := int64(float64(deltaTicks) * 1e9 / float64(freq))
	return p.StartTimeNS + deltaNS
}

// ConvertTicksTime is ConvertTicks rendered as a time.Time.
func (p *Process) ConvertTicksTime(ticks int64, fallback time.Time) time.Time {
	ns := p.ConvertTicks(ticks, fallback.UnixNano())
	return time.Unix(0, ns).UTC()
}
