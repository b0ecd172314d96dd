package mqtt

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sweeney/valve-regulator/internal/regulator"
)

var errTest = errors.New("test error")

func TestFormatPayload(t *testing.T) {
	event := ValveEvent{
		Timestamp: time.Date(2025, 1, 15, 10, 30, 0, 0, time.UTC),
		Action:    regulator.ActionClosed,
		Reading:   5900,
		Trend:     -100,
		Predicted: 5400,
	}

	data, err := FormatPayload(event)
	if err != nil {
		t.Fatalf("FormatPayload failed: %v", err)
	}

	var payload Payload
	if err := json.Unmarshal(data, &payload); err != nil {
		t.Fatalf("payload is not valid JSON: %v", err)
	}

	if payload.Valve.Timestamp != "2025-01-15T10:30:00Z" {
		t.Errorf("timestamp: got %q", payload.Valve.Timestamp)
	}
	if payload.Valve.Action != "CLOSED" {
		t.Errorf("action: got %q, want CLOSED", payload.Valve.Action)
	}
	if payload.Valve.Reading != 5900 {
		t.Errorf("reading: got %d, want 5900", payload.Valve.Reading)
	}
	if payload.Valve.Trend != -100 || payload.Valve.Predicted != 5400 {
		t.Errorf("trend/predicted: got %d/%d, want -100/5400",
			payload.Valve.Trend, payload.Valve.Predicted)
	}
}

func TestFormatSystemPayload(t *testing.T) {
	event := SystemEvent{
		Timestamp: time.Date(2025, 1, 15, 10, 30, 0, 0, time.UTC),
		Event:     "SHUTDOWN",
		Reason:    "SIGTERM",
	}

	data, err := FormatSystemPayload(event)
	if err != nil {
		t.Fatalf("FormatSystemPayload failed: %v", err)
	}

	var payload SystemPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		t.Fatalf("payload is not valid JSON: %v", err)
	}
	if payload.System.Event != "SHUTDOWN" || payload.System.Reason != "SIGTERM" {
		t.Errorf("system payload: got %+v", payload.System)
	}
	if payload.System.Heartbeat != nil {
		t.Error("heartbeat should be absent")
	}
}

func TestFormatSystemPayloadOmitsEmptyReason(t *testing.T) {
	event := SystemEvent{
		Timestamp: time.Date(2025, 1, 15, 10, 30, 0, 0, time.UTC),
		Event:     "STARTUP",
	}

	data, err := FormatSystemPayload(event)
	if err != nil {
		t.Fatalf("FormatSystemPayload failed: %v", err)
	}
	if strings.Contains(string(data), "reason") {
		t.Errorf("empty reason should be omitted: %s", data)
	}
}

func TestFormatSystemPayloadHeartbeat(t *testing.T) {
	event := SystemEvent{
		Timestamp: time.Date(2025, 1, 15, 10, 30, 0, 0, time.UTC),
		Event:     "HEARTBEAT",
		Heartbeat: &HeartbeatInfo{
			UptimeSeconds: 3600,
			Counts:        regulator.ActionCounts{Opened: 2, Closed: 3, Held: 25},
		},
	}

	data, err := FormatSystemPayload(event)
	if err != nil {
		t.Fatalf("FormatSystemPayload failed: %v", err)
	}

	var payload SystemPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		t.Fatalf("payload is not valid JSON: %v", err)
	}
	hb := payload.System.Heartbeat
	if hb == nil {
		t.Fatal("heartbeat missing from payload")
	}
	if hb.UptimeSeconds != 3600 || hb.Opened != 2 || hb.Closed != 3 || hb.Held != 25 {
		t.Errorf("heartbeat payload: got %+v", hb)
	}
}

func TestFormatSystemPayloadRawPassthrough(t *testing.T) {
	raw := []byte(`{"status":{"ready":true}}`)
	event := SystemEvent{Event: "STARTUP", RawPayload: raw}

	data, err := FormatSystemPayload(event)
	if err != nil {
		t.Fatalf("FormatSystemPayload failed: %v", err)
	}
	if string(data) != string(raw) {
		t.Errorf("raw payload not passed through: got %s", data)
	}
}

func TestFakePublisherRecordsEvents(t *testing.T) {
	pub := NewFakePublisher()

	event := ValveEvent{
		Timestamp: time.Now(),
		Action:    regulator.ActionOpened,
		Reading:   6200,
	}
	if err := pub.Publish(event); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	if len(pub.Events) != 1 {
		t.Fatalf("events recorded: got %d, want 1", len(pub.Events))
	}
	if pub.Events[0].Action != regulator.ActionOpened {
		t.Errorf("action: got %s", pub.Events[0].Action)
	}
	if len(pub.Payloads) != 1 {
		t.Fatalf("payloads recorded: got %d, want 1", len(pub.Payloads))
	}

	var payload Payload
	if err := json.Unmarshal(pub.Payloads[0], &payload); err != nil {
		t.Fatalf("recorded payload is not valid JSON: %v", err)
	}
}

func TestFakePublisherErrorsAndReset(t *testing.T) {
	pub := NewFakePublisher()
	pub.PublishError = errTest

	if err := pub.Publish(ValveEvent{}); err == nil {
		t.Error("expected configured publish error")
	}
	if len(pub.Events) != 0 {
		t.Error("failed publish must not be recorded")
	}

	pub.PublishError = nil
	pub.Publish(ValveEvent{Action: regulator.ActionHeld})
	pub.PublishSystem(SystemEvent{Event: "STARTUP"})
	pub.Reset()
	if len(pub.Events) != 0 || len(pub.SystemEvents) != 0 {
		t.Error("Reset must clear recorded events")
	}

	if pub.Closed {
		t.Error("publisher should not start closed")
	}
	pub.Close()
	if !pub.Closed {
		t.Error("Close must mark the publisher closed")
	}
}
