package valve

import "context"

// Fake records pulses for test assertions.
type Fake struct {
	// Pulses contains the directions of all pulses, in order.
	Pulses []Direction

	// PulseError, if set, will be returned by Pulse.
	PulseError error
}

// NewFake creates a Fake driver.
func NewFake() *Fake {
	return &Fake{}
}

// Pulse records the direction.
func (f *Fake) Pulse(ctx context.Context, dir Direction) error {
	if f.PulseError != nil {
		return f.PulseError
	}
	f.Pulses = append(f.Pulses, dir)
	return nil
}
