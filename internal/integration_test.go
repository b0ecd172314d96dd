package internal

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"testing"
	"time"

	"github.com/sweeney/valve-regulator/internal/gpio"
	"github.com/sweeney/valve-regulator/internal/mqtt"
	"github.com/sweeney/valve-regulator/internal/regulator"
	"github.com/sweeney/valve-regulator/internal/sensor"
	"github.com/sweeney/valve-regulator/internal/smoothing"
	"github.com/sweeney/valve-regulator/internal/telemetry"
	"github.com/sweeney/valve-regulator/internal/valve"
)

// TestIntegrationFullFlow runs the complete measurement-to-actuation flow
// on fake hardware: charge-timing capture through the smoothing filter and
// regulator into motor pulses, telemetry replies, and MQTT payloads.
func TestIntegrationFullFlow(t *testing.T) {
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	// Pin both clocks and use a 1ms counter tick so a trigger N ms after
	// charge-on captures exactly N counts.
	hw := gpio.NewFakeSensor()
	hw.Now = func() time.Time { return start }
	meter := sensor.NewMeter(hw,
		sensor.WithClock(func() time.Time { return start }),
		sensor.WithTick(time.Millisecond),
		sensor.WithWindow(0))

	params := regulator.Params{
		Target:         5800,
		Hysteresis:     50,
		ResponseWindow: 2,
		Steepness:      4,
		MotorOpen:      time.Millisecond,
		MotorClose:     time.Millisecond,
	}
	if err := params.Validate(); err != nil {
		t.Fatalf("params: %v", err)
	}

	filter := smoothing.ForTarget(params.Target)
	ctrl := regulator.NewController(params, start)
	motor := &gpio.FakeMotor{}
	actuator := valve.New(motor, params.MotorOpen, params.MotorClose)
	responder := telemetry.NewResponder(true)
	publisher := mqtt.NewFakePublisher()

	ctx := context.Background()

	// One regulation cycle: measure, stabilize, decide, actuate, report.
	cycle := func(raw uint16) *regulator.Decision {
		t.Helper()
		hw.AutoTrigger(time.Duration(raw) * time.Millisecond)
		got, err := meter.Measure(ctx)
		if err != nil {
			t.Fatalf("Measure: %v", err)
		}
		if got != raw {
			t.Fatalf("raw capture: got %d, want %d", got, raw)
		}

		stabilized := filter.Update(got)
		responder.SetReading(stabilized)

		decision := ctrl.Observe(stabilized)
		if decision == nil {
			return nil
		}

		switch decision.Action {
		case regulator.ActionOpened:
			if err := actuator.Pulse(ctx, valve.DirectionOpen); err != nil {
				t.Fatalf("open pulse: %v", err)
			}
		case regulator.ActionClosed:
			if err := actuator.Pulse(ctx, valve.DirectionClose); err != nil {
				t.Fatalf("close pulse: %v", err)
			}
		}
		responder.SetAction(decision.Action)

		if err := publisher.Publish(mqtt.ValveEvent{
			Timestamp: start,
			Action:    decision.Action,
			Reading:   stabilized,
			Trend:     decision.Trend,
			Predicted: decision.Predicted,
		}); err != nil {
			t.Fatalf("publish: %v", err)
		}
		return decision
	}

	// Phase 1: steady at the target. The filter is seeded at the target,
	// so readings stay in the dead band and the valve holds.
	for i := 0; i < 4; i++ {
		cycle(5800)
	}
	if len(motor.Transitions()) != 0 {
		t.Fatalf("steady phase: unexpected motor activity: %v", motor.Transitions())
	}
	for _, ev := range publisher.Events {
		if ev.Action != regulator.ActionHeld {
			t.Fatalf("steady phase: got %s, want HELD", ev.Action)
		}
	}

	// Phase 2: the radiator overheats (readings drop). The downward trend
	// extrapolates below the band and the valve closes.
	publisher.Reset()
	var closed *regulator.Decision
	for i := 0; i < 12 && closed == nil; i++ {
		if d := cycle(5000); d != nil && d.Action == regulator.ActionClosed {
			closed = d
		}
	}
	if closed == nil {
		t.Fatal("hot phase: valve never closed")
	}
	if closed.Predicted >= int32(params.Target)-int32(params.Hysteresis) {
		t.Errorf("hot phase: predicted %d should be below the band", closed.Predicted)
	}

	transitions := motor.Transitions()
	if len(transitions) != 2 {
		t.Fatalf("hot phase: motor transitions: got %v", transitions)
	}
	if transitions[0].Line != "close" || !transitions[0].On || transitions[1].On {
		t.Errorf("hot phase: expected a close pulse, got %v", transitions)
	}

	// The command port reports the movement once, then reverts to held.
	reply := responder.Handle(telemetry.RequestReading)
	if len(reply) != telemetry.ReplySize {
		t.Fatalf("reply length: got %d", len(reply))
	}
	if reply[2] != '-' {
		t.Errorf("reply tag: got %q, want '-'", reply[2])
	}
	if got := binary.LittleEndian.Uint16(reply[:2]); got != filter.Value() {
		t.Errorf("reply reading: got %d, want %d", got, filter.Value())
	}
	if again := responder.Handle(telemetry.RequestReading); again[2] != ' ' {
		t.Errorf("second reply tag: got %q, want ' '", again[2])
	}

	// The published payload carries the decision.
	last := publisher.Payloads[len(publisher.Payloads)-1]
	var payload mqtt.Payload
	if err := json.Unmarshal(last, &payload); err != nil {
		t.Fatalf("payload is not valid JSON: %v", err)
	}
	if payload.Valve.Action != "CLOSED" {
		t.Errorf("payload action: got %q, want CLOSED", payload.Valve.Action)
	}

	// Phase 3: the radiator cools well past the target and the valve opens.
	var opened *regulator.Decision
	for i := 0; i < 24 && opened == nil; i++ {
		if d := cycle(6500); d != nil && d.Action == regulator.ActionOpened {
			opened = d
		}
	}
	if opened == nil {
		t.Fatal("cold phase: valve never opened")
	}

	transitions = motor.Transitions()
	final := transitions[len(transitions)-2:]
	if final[0].Line != "open" || !final[0].On || final[1].On {
		t.Errorf("cold phase: expected an open pulse, got %v", final)
	}
}
