// Package valve issues timed directional pulses to the valve motor. Each
// pulse moves the valve by one fixed increment; there is no positional
// feedback or endstop, so position accumulates only through decision
// history. Software never limits travel — running against the mechanical
// stop is a physical constraint, not a software one.
package valve

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sweeney/valve-regulator/internal/gpio"
)

// Direction of one valve increment.
type Direction string

const (
	DirectionOpen  Direction = "open"
	DirectionClose Direction = "close"
)

// Default pulse durations. Closing runs longer than opening to help not
// overshoot the target temperature.
const (
	DefaultOpenTime  = 200 * time.Millisecond
	DefaultCloseTime = 400 * time.Millisecond
)

// Driver moves the valve by one increment in a direction.
type Driver interface {
	Pulse(ctx context.Context, dir Direction) error
}

// Actuator drives the motor lines with timed pulses.
type Actuator struct {
	motor     gpio.Motor
	openTime  time.Duration
	closeTime time.Duration

	// mu serializes pulses; there is never more than one motor command
	// outstanding, and never both lines high.
	mu sync.Mutex
}

// New creates an Actuator with the given pulse durations.
func New(motor gpio.Motor, openTime, closeTime time.Duration) *Actuator {
	if openTime <= 0 {
		openTime = DefaultOpenTime
	}
	if closeTime <= 0 {
		closeTime = DefaultCloseTime
	}
	return &Actuator{motor: motor, openTime: openTime, closeTime: closeTime}
}

// Pulse drives exactly one motor line high for the configured duration and
// returns it low before returning. The call blocks for the full pulse; the
// line is returned low even when the context is cancelled mid-pulse.
func (a *Actuator) Pulse(ctx context.Context, dir Direction) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	set, d := a.motor.SetOpen, a.openTime
	if dir == DirectionClose {
		set, d = a.motor.SetClose, a.closeTime
	}

	if err := set(true); err != nil {
		return fmt.Errorf("drive %s line high: %w", dir, err)
	}

	t := time.NewTimer(d)
	defer t.Stop()
	var ctxErr error
	select {
	case <-t.C:
	case <-ctx.Done():
		ctxErr = ctx.Err()
	}

	if err := set(false); err != nil {
		return fmt.Errorf("drive %s line low: %w", dir, err)
	}
	return ctxErr
}
