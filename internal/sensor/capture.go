package sensor

import (
	"math"
	"sync"
	"time"
)

// Capture is the single-slot handoff between the comparator edge handler
// and the measurement routine. Only one capture is ever outstanding: Arm
// resets the slot at the start of a window, the first Latch in a window
// wins, and the ready channel carries the one "measurement ready" signal.
type Capture struct {
	mu    sync.Mutex
	armed bool
	done  bool
	start time.Time
	count uint16

	ready chan struct{}
}

// NewCapture creates an unarmed capture slot.
func NewCapture() *Capture {
	return &Capture{ready: make(chan struct{}, 1)}
}

// Arm resets the slot for a new measurement window starting at start.
func (c *Capture) Arm(start time.Time) {
	c.mu.Lock()
	c.armed = true
	c.done = false
	c.start = start
	c.count = 0
	c.mu.Unlock()

	// Drain a stale signal left by a window that was abandoned on timeout.
	select {
	case <-c.ready:
	default:
	}
}

// Latch records the counter value for a threshold crossing at ts. The first
// trigger per window wins; later triggers are no-ops — the comparator
// usually fires several times per physical crossing. Returns whether this
// call latched the value.
func (c *Capture) Latch(ts time.Time, tick time.Duration) bool {
	c.mu.Lock()
	if !c.armed || c.done {
		c.mu.Unlock()
		return false
	}
	c.done = true
	c.count = countSince(c.start, ts, tick)
	c.mu.Unlock()

	select {
	case c.ready <- struct{}{}:
	default:
	}
	return true
}

// Ready returns the channel signalled once per completed capture.
func (c *Capture) Ready() <-chan struct{} {
	return c.ready
}

// Result returns the latched count and whether this window captured at all.
func (c *Capture) Result() (uint16, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count, c.done
}

// countSince converts elapsed wall time into counter units, saturating at
// the 16-bit limit.
func countSince(start, ts time.Time, tick time.Duration) uint16 {
	elapsed := ts.Sub(start)
	if elapsed < 0 {
		return 0
	}
	n := elapsed / tick
	if n > math.MaxUint16 {
		return math.MaxUint16
	}
	return uint16(n)
}
