// Package sensor implements the capacitor charge-timing temperature
// measurement.
//
// The thermistor sits in series with a capacitor on the charge line. The
// hotter the thermistor, the lower its resistance, the faster the capacitor
// charges, the sooner the comparator fires — so lower counts mean higher
// temperature. A 30 kΩ thermistor against a 1 µF capacitor reads around
// 13500 counts in roughly 10 ms; jitter of ~100 counts is normal even with
// a plain resistor in place of the thermistor.
package sensor

import (
	"context"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/sweeney/valve-regulator/internal/gpio"
)

const (
	// DefaultTick is the counter resolution: 625ns matches the 1.6 MHz
	// timer the calibration constants were established against.
	DefaultTick = 625 * time.Nanosecond

	// DefaultChargeTimeout bounds the wait for a threshold crossing, so a
	// disconnected thermistor cannot stall the loop forever.
	DefaultChargeTimeout = 500 * time.Millisecond

	// DefaultWindow is the full measurement window. The slack after the
	// capture lets the capacitor discharge fully before the next charge;
	// 50 ms would do, the rest of the second sets the regulation cadence.
	DefaultWindow = time.Second

	// ColdCount is the reading reported when no threshold crossing occurs
	// within the timeout: the slowest possible charge reads as coldest,
	// which drives the regulator toward opening the valve.
	ColdCount uint16 = math.MaxUint16
)

// Meter runs complete measurement windows against the sensing hardware.
type Meter struct {
	hw      gpio.Sensor
	capture *Capture

	tick          time.Duration
	chargeTimeout time.Duration
	window        time.Duration
	now           func() time.Time
}

// Option configures a Meter.
type Option func(*Meter)

// WithTick sets the counter resolution.
func WithTick(d time.Duration) Option {
	return func(m *Meter) { m.tick = d }
}

// WithChargeTimeout sets the bound on the threshold-crossing wait.
func WithChargeTimeout(d time.Duration) Option {
	return func(m *Meter) { m.chargeTimeout = d }
}

// WithWindow sets the full measurement window duration.
func WithWindow(d time.Duration) Option {
	return func(m *Meter) { m.window = d }
}

// WithClock sets the time source. Tests pin it for exact counts.
func WithClock(now func() time.Time) Option {
	return func(m *Meter) { m.now = now }
}

// NewMeter creates a Meter and registers its threshold handler on the
// sensing hardware.
func NewMeter(hw gpio.Sensor, opts ...Option) *Meter {
	m := &Meter{
		hw:            hw,
		capture:       NewCapture(),
		tick:          DefaultTick,
		chargeTimeout: DefaultChargeTimeout,
		window:        DefaultWindow,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	hw.OnThreshold(m.handleThreshold)
	return m
}

// handleThreshold runs on the GPIO event goroutine. It does exactly two
// things: latch the counter value and start the capacitor discharging.
func (m *Meter) handleThreshold(ts time.Time) {
	if m.capture.Latch(ts, m.tick) {
		if err := m.hw.SetCharge(false); err != nil {
			log.Printf("sensor: de-energize after capture: %v", err)
		}
	}
}

// Measure runs one complete measurement window: charge, capture (or time
// out), discharge. It blocks for the full window so the capacitor is
// discharged before the next call; the regulation loop runs nothing else
// concurrently with it. Returns the raw counter value, with ColdCount
// standing in when the comparator never fired.
func (m *Meter) Measure(ctx context.Context) (uint16, error) {
	start := m.now()
	m.capture.Arm(start)

	if err := m.hw.SetCharge(true); err != nil {
		return 0, fmt.Errorf("energize sense line: %w", err)
	}

	timeout := time.NewTimer(m.chargeTimeout)
	defer timeout.Stop()
	select {
	case <-m.capture.Ready():
	case <-timeout.C:
	case <-ctx.Done():
		if err := m.hw.SetCharge(false); err != nil {
			log.Printf("sensor: de-energize on cancel: %v", err)
		}
		return 0, ctx.Err()
	}

	// On capture the handler already dropped the line; Result decides
	// which case we are in, so a late trigger racing the timeout still
	// counts.
	count, ok := m.capture.Result()
	if !ok {
		if err := m.hw.SetCharge(false); err != nil {
			return 0, fmt.Errorf("de-energize sense line: %w", err)
		}
		log.Printf("sensor: no threshold crossing within %v, clamping to cold", m.chargeTimeout)
		count = ColdCount
	}

	// Let the capacitor discharge for the remainder of the window.
	if rem := m.window - m.now().Sub(start); rem > 0 {
		t := time.NewTimer(rem)
		defer t.Stop()
		select {
		case <-t.C:
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}

	return count, nil
}
