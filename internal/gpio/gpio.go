// Package gpio provides the GPIO line abstraction for the valve controller.
// The real implementation uses the Linux GPIO character device.
// The fake implementations allow testing without hardware.
package gpio

import "time"

// Sensor drives the capacitor charge line and delivers comparator
// threshold-crossing events for the temperature measurement.
type Sensor interface {
	// SetCharge energizes (true) or de-energizes (false) the sensing line,
	// starting a capacitor charge through the thermistor or letting it
	// discharge.
	SetCharge(on bool) error

	// OnThreshold registers the handler called on each rising edge of the
	// comparator line. The handler runs on the event-delivery goroutine
	// and must be short and non-blocking; a single physical threshold
	// crossing commonly produces several electrical edges.
	OnThreshold(fn func(ts time.Time))

	// Close releases GPIO resources.
	Close() error
}

// Motor drives the two valve motor lines. Callers must never drive both
// lines high at once; the actuator enforces this.
type Motor interface {
	// SetOpen drives the open-direction line.
	SetOpen(on bool) error

	// SetClose drives the close-direction line.
	SetClose(on bool) error

	// Close releases GPIO resources.
	Close() error
}

// Pin definitions (BCM numbering)
const (
	DefaultPinCharge     = 23 // capacitor charge line, through the thermistor
	DefaultPinComparator = 24 // threshold comparator output
	DefaultPinOpen       = 26 // valve motor, open direction
	DefaultPinClose      = 16 // valve motor, close direction
)
