//go:build !linux

package gpio

import (
	"errors"
	"time"
)

var errUnsupported = errors.New("gpio: not supported on this platform (requires Linux)")

// RealSensor is not available on non-Linux platforms.
type RealSensor struct{}

// NewRealSensor returns an error on non-Linux platforms.
func NewRealSensor(pinCharge, pinComparator int) (*RealSensor, error) {
	return nil, errUnsupported
}

func (s *RealSensor) SetCharge(on bool) error          { return errUnsupported }
func (s *RealSensor) OnThreshold(fn func(ts time.Time)) {}
func (s *RealSensor) Close() error                     { return nil }

// RealMotor is not available on non-Linux platforms.
type RealMotor struct{}

// NewRealMotor returns an error on non-Linux platforms.
func NewRealMotor(pinOpen, pinClose int) (*RealMotor, error) {
	return nil, errUnsupported
}

func (m *RealMotor) SetOpen(on bool) error  { return errUnsupported }
func (m *RealMotor) SetClose(on bool) error { return errUnsupported }
func (m *RealMotor) Close() error           { return nil }
