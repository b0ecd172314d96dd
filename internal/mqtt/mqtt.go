// Package mqtt provides MQTT publishing with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/valve-regulator/internal/regulator"
)

// Topic is the MQTT topic for valve regulation events.
const Topic = "energy/radiator/valve/events"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "energy/radiator/valve/system"

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a valve event to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event ValveEvent) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// ValveEvent records one regulation decision.
type ValveEvent struct {
	Timestamp time.Time
	Action    regulator.Action
	Reading   uint16 // stabilized thermistor reading, lower = hotter
	Trend     int32
	Predicted int32
}

// HeartbeatInfo carries heartbeat details on a system event.
type HeartbeatInfo struct {
	UptimeSeconds int64
	Counts        regulator.ActionCounts
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	Heartbeat  *HeartbeatInfo
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	Valve ValvePayload `json:"valve"`
}

// ValvePayload contains the valve event details.
type ValvePayload struct {
	Timestamp string `json:"timestamp"`
	Action    string `json:"action"`
	Reading   uint16 `json:"reading"`
	Trend     int32  `json:"trend"`
	Predicted int32  `json:"predicted"`
}

// FormatPayload creates the JSON payload for a valve event.
func FormatPayload(event ValveEvent) ([]byte, error) {
	payload := Payload{
		Valve: ValvePayload{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Action:    string(event.Action),
			Reading:   event.Reading,
			Trend:     event.Trend,
			Predicted: event.Predicted,
		},
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string            `json:"timestamp"`
	Event     string            `json:"event"`
	Reason    string            `json:"reason,omitempty"`
	Heartbeat *HeartbeatPayload `json:"heartbeat,omitempty"`
}

// HeartbeatPayload is the JSON representation of heartbeat info.
type HeartbeatPayload struct {
	UptimeSeconds int64 `json:"uptime_seconds"`
	Opened        int   `json:"opened"`
	Closed        int   `json:"closed"`
	Held          int   `json:"held"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	inner := SystemPayloadInner{
		Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
		Event:     event.Event,
		Reason:    event.Reason,
	}
	if event.Heartbeat != nil {
		inner.Heartbeat = &HeartbeatPayload{
			UptimeSeconds: event.Heartbeat.UptimeSeconds,
			Opened:        event.Heartbeat.Counts.Opened,
			Closed:        event.Heartbeat.Counts.Closed,
			Held:          event.Heartbeat.Counts.Held,
		}
	}
	return json.Marshal(SystemPayload{System: inner})
}
