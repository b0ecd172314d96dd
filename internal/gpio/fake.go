package gpio

import (
	"sync"
	"time"
)

// FakeSensor is a test double for the sensing lines. It records charge-line
// transitions and lets tests fire threshold events, either manually via
// Trigger or synchronously on each charge start via AutoTrigger.
type FakeSensor struct {
	mu      sync.Mutex
	handler func(time.Time)

	charging    bool
	transitions []bool

	auto      bool
	autoDelay time.Duration

	// Now supplies timestamps for auto triggers. Defaults to time.Now;
	// tests pin it alongside the meter clock for exact counts.
	Now func() time.Time

	// SetChargeError, if set, will be returned by SetCharge.
	SetChargeError error

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakeSensor creates a FakeSensor.
func NewFakeSensor() *FakeSensor {
	return &FakeSensor{Now: time.Now}
}

// SetCharge records the transition. With AutoTrigger armed, energizing the
// line fires the threshold handler synchronously, timestamped delay after
// the charge start.
func (f *FakeSensor) SetCharge(on bool) error {
	f.mu.Lock()
	if f.SetChargeError != nil {
		err := f.SetChargeError
		f.mu.Unlock()
		return err
	}
	f.charging = on
	f.transitions = append(f.transitions, on)

	var fire func(time.Time)
	var ts time.Time
	if on && f.auto && f.handler != nil {
		fire = f.handler
		ts = f.Now().Add(f.autoDelay)
	}
	f.mu.Unlock()

	// Fire outside the lock: the handler de-energizes the line, which
	// re-enters SetCharge.
	if fire != nil {
		fire(ts)
	}
	return nil
}

// OnThreshold stores the handler.
func (f *FakeSensor) OnThreshold(fn func(ts time.Time)) {
	f.mu.Lock()
	f.handler = fn
	f.mu.Unlock()
}

// Trigger fires the threshold handler with the given timestamp, as the
// comparator edge would. Safe to call repeatedly to simulate the electrical
// retriggers a single physical crossing produces.
func (f *FakeSensor) Trigger(ts time.Time) {
	f.mu.Lock()
	h := f.handler
	f.mu.Unlock()
	if h != nil {
		h(ts)
	}
}

// AutoTrigger makes every subsequent SetCharge(true) fire the threshold
// handler with a timestamp delay after the charge start.
func (f *FakeSensor) AutoTrigger(delay time.Duration) {
	f.mu.Lock()
	f.auto = true
	f.autoDelay = delay
	f.mu.Unlock()
}

// Charging reports the current charge-line level.
func (f *FakeSensor) Charging() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.charging
}

// Transitions returns a copy of the recorded charge-line transitions.
func (f *FakeSensor) Transitions() []bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]bool, len(f.transitions))
	copy(out, f.transitions)
	return out
}

// Close marks the sensor as closed.
func (f *FakeSensor) Close() error {
	f.mu.Lock()
	f.Closed = true
	f.mu.Unlock()
	return nil
}

// MotorTransition records one motor line level change.
type MotorTransition struct {
	Line string // "open" or "close"
	On   bool
}

// FakeMotor is a test double for the motor lines, recording every level
// change in order.
type FakeMotor struct {
	mu sync.Mutex

	openHigh  bool
	closeHigh bool

	// Transitions records every SetOpen/SetClose call in order.
	transitions []MotorTransition

	// SetError, if set, will be returned by SetOpen and SetClose.
	SetError error

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakeMotor creates a FakeMotor.
func NewFakeMotor() *FakeMotor {
	return &FakeMotor{}
}

// SetOpen records the open-line transition.
func (f *FakeMotor) SetOpen(on bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SetError != nil {
		return f.SetError
	}
	f.openHigh = on
	f.transitions = append(f.transitions, MotorTransition{Line: "open", On: on})
	return nil
}

// SetClose records the close-line transition.
func (f *FakeMotor) SetClose(on bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SetError != nil {
		return f.SetError
	}
	f.closeHigh = on
	f.transitions = append(f.transitions, MotorTransition{Line: "close", On: on})
	return nil
}

// Levels returns the current levels of the open and close lines.
func (f *FakeMotor) Levels() (open, closed bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.openHigh, f.closeHigh
}

// Transitions returns a copy of the recorded transitions.
func (f *FakeMotor) Transitions() []MotorTransition {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]MotorTransition, len(f.transitions))
	copy(out, f.transitions)
	return out
}

// Close marks the motor as closed.
func (f *FakeMotor) Close() error {
	f.mu.Lock()
	f.Closed = true
	f.mu.Unlock()
	return nil
}
