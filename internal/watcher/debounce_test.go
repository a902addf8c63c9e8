package watcher

import (
	"reflect"
	"sync"
	"testing"
	"time"
)

// manualTimer replaces the debouncer's timer hook so tests drive the quiet
// period by hand instead of sleeping.
type manualTimer struct {
	mu     sync.Mutex
	fn     func()
	resets int
}

func (m *manualTimer) afterFunc(_ time.Duration, fn func()) *time.Timer {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fn = fn
	m.resets++
	// A stopped real timer keeps Notify's timer.Stop() calls harmless.
	t := time.NewTimer(time.Hour)
	t.Stop()
	return t
}

func (m *manualTimer) fire() {
	m.mu.Lock()
	fn := m.fn
	m.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (m *manualTimer) resetCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resets
}

func newTestDebouncer() (*Debouncer, *manualTimer, *[][]string) {
	var batches [][]string
	d := NewDebouncer(300*time.Millisecond, func(paths []string) {
		batches = append(batches, paths)
	})
	mt := &manualTimer{}
	d.afterFunc = mt.afterFunc
	return d, mt, &batches
}

func TestDebouncerCoalescesBurst(t *testing.T) {
	d, mt, batches := newTestDebouncer()

	d.Notify("a.jpg")
	d.Notify("b.jpg")
	d.Notify("a.jpg")
	d.Notify("c/d.png")

	if len(*batches) != 0 {
		t.Fatal("drained before the quiet period elapsed")
	}
	if got := d.PendingCount(); got != 3 {
		t.Errorf("PendingCount() = %d, want 3 (a.jpg coalesced)", got)
	}
	// Every notification pushes the deadline out again.
	if mt.resetCount() != 4 {
		t.Errorf("timer armed %d times, want 4", mt.resetCount())
	}

	mt.fire()

	if len(*batches) != 1 {
		t.Fatalf("batches = %d, want 1", len(*batches))
	}
	want := []string{"a.jpg", "b.jpg", "c/d.png"}
	if !reflect.DeepEqual((*batches)[0], want) {
		t.Errorf("batch = %v, want %v", (*batches)[0], want)
	}
	if d.PendingCount() != 0 {
		t.Error("pending set not cleared after drain")
	}
}

func TestDebouncerSeparateWindows(t *testing.T) {
	d, mt, batches := newTestDebouncer()

	d.Notify("a.jpg")
	mt.fire()
	d.Notify("b.jpg")
	mt.fire()

	if len(*batches) != 2 {
		t.Fatalf("batches = %d, want 2", len(*batches))
	}
	if (*batches)[0][0] != "a.jpg" || (*batches)[1][0] != "b.jpg" {
		t.Errorf("unexpected batches: %v", *batches)
	}
}

func TestDebouncerNotifyDuringDrain(t *testing.T) {
	var batches [][]string
	var d *Debouncer
	mt := &manualTimer{}

	d = NewDebouncer(300*time.Millisecond, func(paths []string) {
		batches = append(batches, paths)
		// A change arriving while the drain is running lands in a fresh
		// pending set, not the one being drained.
		if len(batches) == 1 {
			d.Notify("late.jpg")
		}
	})
	d.afterFunc = mt.afterFunc

	d.Notify("a.jpg")
	mt.fire()

	if len(batches) != 1 || batches[0][0] != "a.jpg" {
		t.Fatalf("first batch = %v, want [a.jpg]", batches)
	}
	if d.PendingCount() != 1 {
		t.Fatalf("PendingCount() = %d, want 1 pending late path", d.PendingCount())
	}

	mt.fire()
	if len(batches) != 2 || batches[1][0] != "late.jpg" {
		t.Errorf("second batch = %v, want [late.jpg]", batches)
	}
}

func TestDebouncerFireWithNothingPending(t *testing.T) {
	d, mt, batches := newTestDebouncer()

	d.Notify("a.jpg")
	mt.fire()
	// Stale timer callback after the set was already drained.
	mt.fire()

	if len(*batches) != 1 {
		t.Errorf("batches = %d, want 1 (empty drain suppressed)", len(*batches))
	}
}

func TestDebouncerFlush(t *testing.T) {
	d, _, batches := newTestDebouncer()

	d.Notify("a.jpg")
	d.Flush()

	if len(*batches) != 1 || (*batches)[0][0] != "a.jpg" {
		t.Errorf("Flush() batches = %v, want [[a.jpg]]", *batches)
	}

	// Flush with nothing pending drains nothing.
	d.Flush()
	if len(*batches) != 1 {
		t.Errorf("empty Flush() drained a batch")
	}
}

func TestDebouncerStopDiscardsPending(t *testing.T) {
	d, mt, batches := newTestDebouncer()

	d.Notify("a.jpg")
	d.Stop()
	mt.fire()

	if len(*batches) != 0 {
		t.Errorf("batches = %d after Stop, want 0", len(*batches))
	}
	if d.PendingCount() != 0 {
		t.Error("pending set survived Stop")
	}
}
