// Package status tracks the daemon's current state for reporting.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/valve-regulator/internal/regulator"
)

// Config holds the effective runtime configuration for display.
type Config struct {
	PollMs         int64
	WindowMs       int64
	HeartbeatMs    int64
	Target         uint16
	Hysteresis     uint16
	ResponseWindow int
	Steepness      int
	MotorOpenMs    int64
	MotorCloseMs   int64
	Broker         string
	HTTPAddr       string
	CommandPort    string
}

// Snapshot is a point-in-time copy of the daemon's state.
type Snapshot struct {
	Reading       uint16 // stabilized thermistor reading, lower = hotter
	LastAction    regulator.Action
	Ready         bool // false until the first reading has been taken
	Counts        regulator.ActionCounts
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Config        Config
}

// Uptime returns how long the daemon has been running.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds the daemon's state behind a mutex. All methods are safe
// for concurrent use.
type Tracker struct {
	mu            sync.RWMutex
	reading       uint16
	lastAction    regulator.Action
	ready         bool
	counts        regulator.ActionCounts
	startTime     time.Time
	mqttConnected bool
	config        Config
	now           func() time.Time
}

// NewTracker creates a Tracker. startTime is when the daemon started.
func NewTracker(startTime time.Time, config Config) *Tracker {
	return &Tracker{
		lastAction: regulator.ActionHeld,
		startTime:  startTime,
		config:     config,
		now:        time.Now,
	}
}

// Update records the latest regulation cycle's state.
func (t *Tracker) Update(reading uint16, action regulator.Action, ready bool, counts regulator.ActionCounts) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.reading = reading
	t.lastAction = action
	t.ready = ready
	t.counts = counts
}

// SetMQTTConnected records the broker connection state.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.mqttConnected = connected
}

// Snapshot returns a copy of the current state.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return Snapshot{
		Reading:       t.reading,
		LastAction:    t.lastAction,
		Ready:         t.ready,
		Counts:        t.counts,
		StartTime:     t.startTime,
		Now:           t.now(),
		MQTTConnected: t.mqttConnected,
		Config:        t.config,
	}
}
