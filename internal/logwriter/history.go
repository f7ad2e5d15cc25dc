package logwriter

import "sync"

// historyBuckets is the ring size: one byte per hour for two days,
// matching original_source/log/receive_log.c's p_log_his array used to
// paint the AFD GUI's per-host history bar.
const historyBuckets = 48

// History is the 48-byte highest-severity-per-hour ring a receive-log
// writer maintains per host, so the GUI can render a color bar without
// re-scanning the log file (spec §4.2, original_source's
// "next_his_time"/"log_his" bucket-advance logic).
type History struct {
	mu      sync.Mutex
	buckets [historyBuckets]Severity
	cursor  int
	lastAdvanceHour int64
	initialized bool
}

// NewHistory returns a zeroed ring; all buckets read as SeverityInfo
// until Record is called.
func NewHistory() *History {
	return &History{}
}

// Record folds sev into the current hour's bucket, taking the maximum
// severity seen in that hour, and advances the cursor whenever the
// wall-clock hour (epochHour, caller-supplied so the ring stays
// deterministic and testable) moves forward.
func (h *History) Record(epochHour int64, sev Severity) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.initialized {
		h.lastAdvanceHour = epochHour
		h.initialized = true
	}
	for h.lastAdvanceHour < epochHour {
		h.cursor = (h.cursor + 1) % historyBuckets
		h.buckets[h.cursor] = SeverityInfo
		h.lastAdvanceHour++
	}
	if sev > h.buckets[h.cursor] {
		h.buckets[h.cursor] = sev
	}
}

// Snapshot returns the ring ordered oldest-to-newest, the layout the
// GUI tile renderer expects (spec §4.2 "a 48-byte severity-per-hour
// history ring for GUI tiles").
func (h *History) Snapshot() [historyBuckets]Severity {
	h.mu.Lock()
	defer h.mu.Unlock()

	var out [historyBuckets]Severity
	for i := 0; i < historyBuckets; i++ {
		src := (h.cursor + 1 + i) % historyBuckets
		out[i] = h.buckets[src]
	}
	return out
}
