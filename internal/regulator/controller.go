package regulator

import "time"

// ActionCounts tracks the number of each decision outcome since startup.
type ActionCounts struct {
	Opened int
	Closed int
	Held   int
}

// Heartbeat contains information for a heartbeat event.
type Heartbeat struct {
	Timestamp time.Time
	Uptime    time.Duration
	Counts    ActionCounts
}

// Controller runs the decision cadence over a stream of stabilized readings.
// It holds the reading from the last decision point and emits one Decision
// every ResponseWindow observed cycles.
type Controller struct {
	params        Params
	previous      uint16
	primed        bool
	cycles        int
	counts        ActionCounts
	startTime     time.Time
	lastHeartbeat time.Time
}

// NewController creates a controller with the given parameters. The
// startTime is used for calculating uptime in heartbeat events.
func NewController(params Params, startTime time.Time) *Controller {
	return &Controller{
		params:        params,
		startTime:     startTime,
		lastHeartbeat: startTime,
	}
}

// Observe feeds one measurement cycle's stabilized reading to the
// controller. On decision ticks it returns the Decision; between ticks it
// returns nil. The first observed reading seeds the previous value, so the
// first decision extrapolates from a real trend instead of from zero.
func (c *Controller) Observe(current uint16) *Decision {
	if !c.primed {
		c.previous = current
		c.primed = true
	}

	c.cycles++
	if c.cycles < c.params.ResponseWindow {
		return nil
	}
	c.cycles = 0

	d := Evaluate(current, c.previous, c.params)
	c.previous = current

	switch d.Action {
	case ActionOpened:
		c.counts.Opened++
	case ActionClosed:
		c.counts.Closed++
	case ActionHeld:
		c.counts.Held++
	}
	return &d
}

// Primed returns whether the controller has seen at least one reading.
func (c *Controller) Primed() bool {
	return c.primed
}

// Counts returns the decision outcome counts since startup.
func (c *Controller) Counts() ActionCounts {
	return c.counts
}

// CheckHeartbeat returns heartbeat data if the interval has elapsed since
// the last heartbeat (or startup). Returns nil before the first reading, if
// the interval has not elapsed, or if interval is <= 0 (disabled).
func (c *Controller) CheckHeartbeat(now time.Time, interval time.Duration) *Heartbeat {
	if interval <= 0 {
		return nil
	}
	if !c.primed {
		return nil
	}
	if now.Sub(c.lastHeartbeat) < interval {
		return nil
	}

	c.lastHeartbeat = now
	return &Heartbeat{
		Timestamp: now,
		Uptime:    now.Sub(c.startTime),
		Counts:    c.counts,
	}
}
