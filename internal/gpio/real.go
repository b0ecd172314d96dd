//go:build linux

package gpio

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

const chipName = "gpiochip0"

// RealSensor drives the charge line and watches the comparator line on
// actual hardware using the Linux GPIO character device.
type RealSensor struct {
	chip       *gpiocdev.Chip
	charge     *gpiocdev.Line
	comparator *gpiocdev.Line

	// handler holds a func(time.Time). Edge events can arrive before
	// OnThreshold is called, so dispatch goes through an atomic slot
	// instead of requiring the callback at line-request time.
	handler atomic.Value
}

// NewRealSensor requests the charge line as output (initially low, capacitor
// discharging) and the comparator line as input with rising-edge events.
func NewRealSensor(pinCharge, pinComparator int) (*RealSensor, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	s := &RealSensor{chip: chip}

	charge, err := chip.RequestLine(pinCharge, gpiocdev.AsOutput(0))
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request charge pin %d: %w", pinCharge, err)
	}
	s.charge = charge

	comparator, err := chip.RequestLine(pinComparator,
		gpiocdev.AsInput,
		gpiocdev.WithRisingEdge,
		gpiocdev.WithEventHandler(s.dispatch))
	if err != nil {
		charge.Close()
		chip.Close()
		return nil, fmt.Errorf("request comparator pin %d: %w", pinComparator, err)
	}
	s.comparator = comparator

	return s, nil
}

func (s *RealSensor) dispatch(gpiocdev.LineEvent) {
	if fn, ok := s.handler.Load().(func(time.Time)); ok {
		fn(time.Now())
	}
}

// OnThreshold registers the threshold-crossing handler.
func (s *RealSensor) OnThreshold(fn func(ts time.Time)) {
	s.handler.Store(fn)
}

// SetCharge drives the sensing line.
func (s *RealSensor) SetCharge(on bool) error {
	v := 0
	if on {
		v = 1
	}
	if err := s.charge.SetValue(v); err != nil {
		return fmt.Errorf("set charge line: %w", err)
	}
	return nil
}

// Close drives the charge line low so the capacitor is left discharging,
// then releases the lines and chip.
func (s *RealSensor) Close() error {
	var errs []error

	if s.charge != nil {
		if err := s.charge.SetValue(0); err != nil {
			errs = append(errs, fmt.Errorf("lower charge line: %w", err))
		}
		if err := s.charge.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close charge line: %w", err))
		}
	}
	if s.comparator != nil {
		if err := s.comparator.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close comparator line: %w", err))
		}
	}
	if s.chip != nil {
		if err := s.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

// RealMotor drives the valve motor lines on actual hardware.
type RealMotor struct {
	chip      *gpiocdev.Chip
	openLine  *gpiocdev.Line
	closeLine *gpiocdev.Line
}

// NewRealMotor requests both motor lines as outputs, initially low. The
// motor draws about 15 mA, so the lines drive it directly; they must never
// be reconfigured as inputs while the motor is connected.
func NewRealMotor(pinOpen, pinClose int) (*RealMotor, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	openLine, err := chip.RequestLine(pinOpen, gpiocdev.AsOutput(0))
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request open pin %d: %w", pinOpen, err)
	}

	closeLine, err := chip.RequestLine(pinClose, gpiocdev.AsOutput(0))
	if err != nil {
		openLine.Close()
		chip.Close()
		return nil, fmt.Errorf("request close pin %d: %w", pinClose, err)
	}

	return &RealMotor{
		chip:      chip,
		openLine:  openLine,
		closeLine: closeLine,
	}, nil
}

// SetOpen drives the open-direction line.
func (m *RealMotor) SetOpen(on bool) error {
	v := 0
	if on {
		v = 1
	}
	if err := m.openLine.SetValue(v); err != nil {
		return fmt.Errorf("set open line: %w", err)
	}
	return nil
}

// SetClose drives the close-direction line.
func (m *RealMotor) SetClose(on bool) error {
	v := 0
	if on {
		v = 1
	}
	if err := m.closeLine.SetValue(v); err != nil {
		return fmt.Errorf("set close line: %w", err)
	}
	return nil
}

// Close drives both motor lines low before releasing them, so the motor is
// never left running across a daemon restart.
func (m *RealMotor) Close() error {
	var errs []error

	for _, l := range []struct {
		name string
		line *gpiocdev.Line
	}{
		{"open", m.openLine},
		{"close", m.closeLine},
	} {
		if l.line == nil {
			continue
		}
		if err := l.line.SetValue(0); err != nil {
			errs = append(errs, fmt.Errorf("lower %s line: %w", l.name, err))
		}
		if err := l.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s line: %w", l.name, err))
		}
	}
	if m.chip != nil {
		if err := m.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
