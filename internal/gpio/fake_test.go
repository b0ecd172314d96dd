package gpio

import (
	"errors"
	"testing"
	"time"
)

func TestFakeSensorRecordsTransitions(t *testing.T) {
	f := NewFakeSensor()

	if err := f.SetCharge(true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !f.Charging() {
		t.Error("expected charging after SetCharge(true)")
	}
	if err := f.SetCharge(false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.Charging() {
		t.Error("expected not charging after SetCharge(false)")
	}

	got := f.Transitions()
	if len(got) != 2 || got[0] != true || got[1] != false {
		t.Errorf("transitions: got %v, want [true false]", got)
	}
}

func TestFakeSensorTrigger(t *testing.T) {
	f := NewFakeSensor()

	var seen []time.Time
	f.OnThreshold(func(ts time.Time) { seen = append(seen, ts) })

	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	f.Trigger(t0)
	f.Trigger(t0.Add(time.Millisecond))

	if len(seen) != 2 {
		t.Fatalf("expected 2 events, got %d", len(seen))
	}
	if !seen[0].Equal(t0) {
		t.Errorf("first event: got %v, want %v", seen[0], t0)
	}
}

func TestFakeSensorTriggerWithoutHandler(t *testing.T) {
	f := NewFakeSensor()
	// Must not panic.
	f.Trigger(time.Now())
}

func TestFakeSensorAutoTrigger(t *testing.T) {
	f := NewFakeSensor()
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	f.Now = func() time.Time { return t0 }

	var seen []time.Time
	// Handler de-energizes the line, as the meter's does.
	f.OnThreshold(func(ts time.Time) {
		seen = append(seen, ts)
		if err := f.SetCharge(false); err != nil {
			t.Errorf("re-entrant SetCharge: %v", err)
		}
	})

	f.AutoTrigger(13 * time.Millisecond)
	if err := f.SetCharge(true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(seen) != 1 {
		t.Fatalf("expected 1 event, got %d", len(seen))
	}
	want := t0.Add(13 * time.Millisecond)
	if !seen[0].Equal(want) {
		t.Errorf("event timestamp: got %v, want %v", seen[0], want)
	}
	if f.Charging() {
		t.Error("expected line low after the handler de-energized it")
	}
}

func TestFakeSensorChargeError(t *testing.T) {
	f := NewFakeSensor()
	f.SetChargeError = errors.New("simulated error")

	if err := f.SetCharge(true); err == nil {
		t.Error("expected error to be returned")
	}
	if len(f.Transitions()) != 0 {
		t.Error("failed SetCharge should not record a transition")
	}
}

func TestFakeMotorRecordsTransitions(t *testing.T) {
	f := NewFakeMotor()

	f.SetOpen(true)
	f.SetOpen(false)
	f.SetClose(true)
	f.SetClose(false)

	got := f.Transitions()
	want := []MotorTransition{
		{Line: "open", On: true},
		{Line: "open", On: false},
		{Line: "close", On: true},
		{Line: "close", On: false},
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d transitions, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("transition %d: got %+v, want %+v", i, got[i], want[i])
		}
	}

	open, closed := f.Levels()
	if open || closed {
		t.Errorf("expected both lines low, got open=%v close=%v", open, closed)
	}
}

func TestFakeMotorError(t *testing.T) {
	f := NewFakeMotor()
	f.SetError = errors.New("simulated error")

	if err := f.SetOpen(true); err == nil {
		t.Error("expected error from SetOpen")
	}
	if err := f.SetClose(true); err == nil {
		t.Error("expected error from SetClose")
	}
}

func TestFakeClose(t *testing.T) {
	s := NewFakeSensor()
	m := NewFakeMotor()

	if err := s.Close(); err != nil {
		t.Errorf("sensor close: %v", err)
	}
	if err := m.Close(); err != nil {
		t.Errorf("motor close: %v", err)
	}
	if !s.Closed || !m.Closed {
		t.Error("expected both fakes marked closed")
	}
}
