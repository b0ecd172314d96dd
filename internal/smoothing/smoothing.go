// Package smoothing stabilizes raw per-window counter captures. Thermistor
// readouts jitter by around a hundred counts, so the regulator never sees a
// raw capture directly.
package smoothing

// Filter turns raw counter captures into a stabilized reading.
type Filter interface {
	// Update folds in a new raw count and returns the stabilized value.
	Update(raw uint16) uint16

	// Value returns the current stabilized value without updating.
	Value() uint16
}

// wideRangeLimit: targets below this use the eight-sample filter, whose 8x
// accumulator requires readings to stay well under an eighth of the range.
const wideRangeLimit = 7000

// ForTarget selects the filter policy for the configured target reading and
// seeds it with the target, so the first cycles don't transient toward zero.
// The choice is made once at startup, not per update.
func ForTarget(target uint16) Filter {
	if target < wideRangeLimit {
		return NewEightSample(target)
	}
	return NewTwoPoint(target)
}

// EightSample approximates an 8-sample exponential moving average: new
// readings weigh in at about 12%. The accumulator holds 8x the average,
// which is why this policy is limited to narrow-range targets.
type EightSample struct {
	acc   uint32 // 8x the stabilized value
	value uint16
}

// NewEightSample creates the filter seeded at seed.
func NewEightSample(seed uint16) *EightSample {
	return &EightSample{acc: uint32(seed) * 8, value: seed}
}

// Update replaces one average-weight sample in the accumulator with the new
// raw count. The divide truncates; the calibration constants assume that.
func (f *EightSample) Update(raw uint16) uint16 {
	f.acc -= uint32(f.value)
	f.acc += uint32(raw)
	f.value = uint16(f.acc / 8)
	return f.value
}

// Value returns the current stabilized value.
func (f *EightSample) Value() uint16 {
	return f.value
}

// TwoPoint averages the new reading with the previous stabilized value,
// rounding to nearest. Coarser smoothing than EightSample, but safe across
// the full 16-bit range.
type TwoPoint struct {
	value uint16
}

// NewTwoPoint creates the filter seeded at seed.
func NewTwoPoint(seed uint16) *TwoPoint {
	return &TwoPoint{value: seed}
}

// Update averages the raw count with the previous value.
func (f *TwoPoint) Update(raw uint16) uint16 {
	f.value = uint16((uint32(raw) + uint32(f.value) + 1) / 2)
	return f.value
}

// Value returns the current stabilized value.
func (f *TwoPoint) Value() uint16 {
	return f.value
}

// String names the policy, for startup logging.
func (f *EightSample) String() string { return "eight-sample" }

// String names the policy, for startup logging.
func (f *TwoPoint) String() string { return "two-point" }
