// Package regulator contains the pure control algorithm for the valve.
// This package has NO external dependencies (no GPIO, MQTT, OS, or time.Sleep).
// Time is always injectable via time.Time parameters.
//
// The thermistor reading scale is inverted: lower values mean higher
// physical temperature. All decision logic below is written against that
// scale.
package regulator

import (
	"fmt"
	"time"
)

// Action is the outcome of one regulation decision.
type Action string

const (
	ActionOpened Action = "OPENED"
	ActionClosed Action = "CLOSED"
	ActionHeld   Action = "HELD"
)

// Wire tags for the one-byte action encoding on the command channel.
const (
	TagOpened byte = '+'
	TagClosed byte = '-'
	TagHeld   byte = ' '
)

// Tag returns the one-byte wire encoding of the action.
func (a Action) Tag() byte {
	switch a {
	case ActionOpened:
		return TagOpened
	case ActionClosed:
		return TagClosed
	default:
		return TagHeld
	}
}

// ActionFromTag decodes a wire tag. Returns false for unknown tags.
func ActionFromTag(b byte) (Action, bool) {
	switch b {
	case TagOpened:
		return ActionOpened, true
	case TagClosed:
		return ActionClosed, true
	case TagHeld:
		return ActionHeld, true
	}
	return ActionHeld, false
}

// Params holds the control parameters. They are resolved once at startup
// and never mutated afterwards.
type Params struct {
	// Target is the thermistor reading to regulate toward (lower = hotter).
	Target uint16
	// Hysteresis is the tolerance band around Target inside which the
	// valve is not moved. Readings jitter, so this should not be too small.
	Hysteresis uint16
	// ResponseWindow is the number of measurement cycles between decisions.
	// The radiator reacts to valve movements only after minutes, so acting
	// on every cycle causes overreaction.
	ResponseWindow int
	// Steepness is the extrapolation multiplier for the predicted reading.
	// Larger values regulate more aggressively. Must be a power of two in
	// 1..16.
	Steepness int
	// MotorOpen and MotorClose are the pulse durations for one valve
	// increment in each direction. Closing faster than opening helps not
	// to overshoot the target.
	MotorOpen  time.Duration
	MotorClose time.Duration
}

// Validate range-checks the parameters.
func (p Params) Validate() error {
	if p.Target < 500 || p.Target > 32267 {
		return fmt.Errorf("target %d out of range 500..32267", p.Target)
	}
	if p.Hysteresis > 499 {
		return fmt.Errorf("hysteresis %d out of range 0..499", p.Hysteresis)
	}
	if p.ResponseWindow < 1 {
		return fmt.Errorf("response window %d must be at least 1", p.ResponseWindow)
	}
	if p.Steepness < 1 || p.Steepness > 16 || p.Steepness&(p.Steepness-1) != 0 {
		return fmt.Errorf("steepness %d must be a power of two in 1..16", p.Steepness)
	}
	if p.MotorOpen <= 0 {
		return fmt.Errorf("motor open duration %v must be positive", p.MotorOpen)
	}
	if p.MotorClose <= 0 {
		return fmt.Errorf("motor close duration %v must be positive", p.MotorClose)
	}
	return nil
}

// Decision is the result of evaluating one decision tick.
type Decision struct {
	Action   Action
	Current  uint16
	Previous uint16
	// Trend is the signed reading change since the previous decision.
	Trend int32
	// Predicted is the extrapolated reading: Current + Steepness*Trend.
	Predicted int32
}

// Evaluate computes the regulation decision for one tick. It is a pure
// function: identical inputs always yield the identical action.
//
// The valve is moved in increments only, never to absolute positions, so
// this is a pure integral regulator with no proportional or differential
// term. The advantage is that the absolute valve position, which cannot be
// known without endstops, never enters the computation. Extrapolating the
// trend anticipates the thermal lag between a valve movement and the sensor
// seeing it, which damps the oscillation a plain threshold decision causes.
//
// All arithmetic is in int32: the widest intermediate, 16*trend with trend
// spanning the full 16-bit range, stays far from the int32 limits.
func Evaluate(current, previous uint16, p Params) Decision {
	trend := int32(current) - int32(previous)
	predicted := int32(current) + int32(p.Steepness)*trend

	d := Decision{
		Action:    ActionHeld,
		Current:   current,
		Previous:  previous,
		Trend:     trend,
		Predicted: predicted,
	}

	switch {
	case predicted < int32(p.Target)-int32(p.Hysteresis):
		// Falling reading means the radiator is overshooting hot;
		// throttle it. Strictly below the band, the band edge holds.
		d.Action = ActionClosed
	case predicted > int32(p.Target)+int32(p.Hysteresis):
		// Rising reading means the room is cooling; open up.
		d.Action = ActionOpened
	}
	return d
}
