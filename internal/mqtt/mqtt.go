// Package mqtt publishes decoded minutes and daemon lifecycle events, with an
// abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/dcf77-sensor/internal/logic"
)

// Topic is the MQTT topic for decoder events.
const Topic = "time/dcf77/sensor/events"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "time/dcf77/sensor/system"

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a decoder event to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event Event) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// EventType names a decoder event.
type EventType string

const (
	EventSync        EventType = "SYNC"
	EventBeaconError EventType = "BEACON_ERROR"
)

// Event is a minute boundary outcome.
type Event struct {
	Timestamp time.Time
	Type      EventType
	Decoded   *logic.Timestamp // EventSync only
	Err       error            // EventBeaconError only
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	DCF77 DCF77Payload `json:"dcf77"`
}

// DCF77Payload contains the decoder event details.
type DCF77Payload struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Time      string `json:"time,omitempty"`
	Zone      string `json:"zone,omitempty"`
	Weekday   int    `json:"weekday,omitempty"`
	Kind      string `json:"kind,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

// FormatPayload creates the JSON payload for a decoder event.
func FormatPayload(event Event) ([]byte, error) {
	p := DCF77Payload{
		Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
		Event:     string(event.Type),
	}
	if event.Decoded != nil {
		p.Time = event.Decoded.Time().Format(time.RFC3339)
		p.Zone = string(event.Decoded.Zone)
		p.Weekday = event.Decoded.Weekday
	}
	if event.Err != nil {
		p.Kind = string(logic.KindOf(event.Err))
		p.Reason = event.Err.Error()
	}
	return json.Marshal(Payload{DCF77: p})
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}
