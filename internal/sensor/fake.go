package sensor

import (
	"context"
	"errors"
)

// FakeMeter returns scripted raw counts without touching hardware. Each
// call to Measure consumes the next sample; when samples are exhausted the
// last one repeats.
type FakeMeter struct {
	// Samples contains scripted raw counts to return.
	Samples []uint16

	// index tracks current position in Samples
	index int

	// MeasureError, if set, will be returned by Measure.
	MeasureError error

	// Calls counts Measure invocations.
	Calls int
}

// NewFakeMeter creates a FakeMeter with the given samples.
func NewFakeMeter(samples []uint16) *FakeMeter {
	return &FakeMeter{Samples: samples}
}

// Measure returns the next scripted sample.
func (f *FakeMeter) Measure(ctx context.Context) (uint16, error) {
	f.Calls++
	if f.MeasureError != nil {
		return 0, f.MeasureError
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if len(f.Samples) == 0 {
		return 0, errors.New("no samples configured")
	}

	sample := f.Samples[f.index]
	if f.index < len(f.Samples)-1 {
		f.index++
	}
	return sample, nil
}
