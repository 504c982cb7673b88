package progress

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/kanalyze-tools/kanalyze/internal/metrics"
)

// DefaultInterval is the tick interval used by the default Reporter
// returned by Track, matching the 30-second cadence of the reporter this
// package is modeled on.
const DefaultInterval = 30 * time.Second

// Reporter runs a single background goroutine that periodically logs the
// progress of every live Tracker registered with it. The zero value is not
// usable; construct with NewReporter.
type Reporter struct {
	interval time.Duration
	logger   *slog.Logger

	mu       sync.Mutex
	trackers []*Tracker
	started  bool
}

// NewReporter constructs a Reporter with the given tick interval. The
// background goroutine does not start until the first call to
// [Reporter.Track].
func NewReporter(interval time.Duration, logger *slog.Logger) *Reporter {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Reporter{interval: interval, logger: logger}
}

var defaultReporter = NewReporter(DefaultInterval, nil)

// Track registers a new Tracker for a named task against the default,
// process-wide Reporter and starts its background goroutine if this is the
// first call. total is the expected number of items, or -1 if unknown.
func Track(name string, total int64) *Tracker {
	return defaultReporter.Track(name, total)
}

// Track registers a new Tracker for a named task against r, starting r's
// background goroutine if this is the first call.
func (r *Reporter) Track(name string, total int64) *Tracker {
	t := &Tracker{id: uuid.NewString(), name: name, total: total}

	r.mu.Lock()
	r.trackers = append(r.trackers, t)
	if !r.started {
		r.started = true
		go r.run()
	}
	r.mu.Unlock()

	metrics.ProgressTrackersActive.Inc()
	return t
}

func (r *Reporter) run() {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for range ticker.C {
		r.tick()
	}
}

func (r *Reporter) tick() {
	r.mu.Lock()
	snapshot := make([]*Tracker, len(r.trackers))
	copy(snapshot, r.trackers)
	r.mu.Unlock()

	var stillLive []*Tracker
	for _, t := range snapshot {
		r.logOne(t)

		if !t.finished.Load() {
			stillLive = append(stillLive, t)
		} else {
			metrics.ProgressTrackersActive.Dec()
		}
	}

	// Keep trackers registered by Track while this tick was logging.
	r.mu.Lock()
	r.trackers = append(stillLive, r.trackers[len(snapshot):]...)
	r.mu.Unlock()
}

func (r *Reporter) logOne(t *Tracker) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Warn("progress: recovered panic while reporting tracker", "task", t.name, "panic", rec)
		}
	}()

	r.logger.Info(t.line(), "tracker_id", t.id)
}

// Tracker reports progress against a single named task. All methods are
// safe to call concurrently from any goroutine.
type Tracker struct {
	id        string // uuid, for correlating this tracker's lines across ticks in structured logs
	name      string
	total     int64 // -1 if unknown
	completed atomic.Int64
	finished  atomic.Bool
}

// OneDone increments the completed count by 1.
func (t *Tracker) OneDone() {
	t.completed.Add(1)
}

// Done adds n to the completed count.
func (t *Tracker) Done(n int64) {
	t.completed.Add(n)
}

// Close marks the tracker finished. The reporter emits one more line for
// it on the next tick and then forgets it. Close is idempotent.
func (t *Tracker) Close() {
	t.finished.Store(true)
}

func (t *Tracker) line() string {
	completed := t.completed.Load()
	finished := t.finished.Load()

	var msg string
	if t.total >= 0 {
		pct := 0
		if t.total > 0 {
			pct = int(completed * 100 / t.total)
		}
		msg = fmt.Sprintf("%s finished %d of %d (%d%%) items", t.name, completed, t.total, pct)
	} else {
		msg = fmt.Sprintf("%s finished %d items", t.name, completed)
	}

	if finished {
		msg += " and is done"
	}
	return msg
}
