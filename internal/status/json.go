package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the wire form of a status snapshot.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the snapshot fields.
type StatusInner struct {
	Timestamp     string `json:"timestamp"`
	Event         string `json:"event,omitempty"`
	Reason        string `json:"reason,omitempty"`
	Reading       uint16 `json:"reading"`
	LastAction    string `json:"last_action"`
	Ready         bool   `json:"ready"`
	Opened        int    `json:"opened"`
	Closed        int    `json:"closed"`
	Held          int    `json:"held"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	MQTTConnected bool   `json:"mqtt_connected"`

	Target         uint16 `json:"target"`
	Hysteresis     uint16 `json:"hysteresis"`
	ResponseWindow int    `json:"response_window"`
	Steepness      int    `json:"steepness"`
}

func buildInner(s Snapshot) StatusInner {
	return StatusInner{
		Timestamp:      s.Now.UTC().Format(time.RFC3339),
		Reading:        s.Reading,
		LastAction:     string(s.LastAction),
		Ready:          s.Ready,
		Opened:         s.Counts.Opened,
		Closed:         s.Counts.Closed,
		Held:           s.Counts.Held,
		UptimeSeconds:  int64(s.Uptime().Seconds()),
		MQTTConnected:  s.MQTTConnected,
		Target:         s.Config.Target,
		Hysteresis:     s.Config.Hysteresis,
		ResponseWindow: s.Config.ResponseWindow,
		Steepness:      s.Config.Steepness,
	}
}

// FormatJSON renders a snapshot as indented JSON for the HTTP endpoint.
func FormatJSON(s Snapshot) ([]byte, error) {
	return json.MarshalIndent(StatusJSON{Status: buildInner(s)}, "", "  ")
}

// FormatStatusEvent renders a snapshot as a system event payload, tagged
// with the event name and optional reason.
func FormatStatusEvent(s Snapshot, event, reason string) ([]byte, error) {
	inner := buildInner(s)
	inner.Event = event
	inner.Reason = reason
	return json.Marshal(StatusJSON{Status: inner})
}
