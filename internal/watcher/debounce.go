package watcher

import (
	"sort"
	"sync"
	"time"

	"image-pipeline/internal/metrics"
)

// Debouncer coalesces file-change notifications into batches. Each Notify
// call (re)starts the quiet-period timer, so the timer measures quiet time,
// not total elapsed time; when it fires the pending set is drained
// atomically and handed to the drain callback.
//
// Notifications arriving while a drain is in flight land in a fresh pending
// set for the next cycle. Nothing is ever dropped, but repeated changes to
// one path inside a window coalesce into a single regeneration.
type Debouncer struct {
	delay time.Duration
	drain func(paths []string)

	mu      sync.Mutex
	pending map[string]struct{}
	timer   *time.Timer

	// afterFunc is replaceable in tests to drive the timer manually.
	afterFunc func(d time.Duration, fn func()) *time.Timer
}

// NewDebouncer creates a Debouncer that waits for delay of quiet before
// invoking drain with the sorted pending paths.
func NewDebouncer(delay time.Duration, drain func(paths []string)) *Debouncer {
	return &Debouncer{
		delay:     delay,
		drain:     drain,
		pending:   make(map[string]struct{}),
		afterFunc: time.AfterFunc,
	}
}

// Notify adds a path to the pending set and resets the quiet-period timer.
func (d *Debouncer) Notify(relPath string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.pending[relPath] = struct{}{}
	metrics.DebouncePendingPaths.Set(float64(len(d.pending)))

	// Reset, not additive: a stream of events keeps pushing the deadline.
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = d.afterFunc(d.delay, d.fire)
}

// fire drains the pending set and runs the callback outside the lock.
func (d *Debouncer) fire() {
	d.mu.Lock()
	paths := make([]string, 0, len(d.pending))
	for p := range d.pending {
		paths = append(paths, p)
	}
	d.pending = make(map[string]struct{})
	d.timer = nil
	metrics.DebouncePendingPaths.Set(0)
	d.mu.Unlock()

	if len(paths) == 0 {
		return
	}
	sort.Strings(paths)

	metrics.DebounceBatchesTotal.Inc()
	d.drain(paths)
}

// Flush drains any pending paths immediately, without waiting for the quiet
// period. Used at shutdown so observed changes are never lost.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.mu.Unlock()

	d.fire()
}

// Stop cancels the timer and discards pending paths.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.pending = make(map[string]struct{})
	metrics.DebouncePendingPaths.Set(0)
}

// PendingCount returns the number of paths awaiting regeneration.
func (d *Debouncer) PendingCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}
