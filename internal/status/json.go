package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	State         string       `json:"state"`
	Synced        bool         `json:"synced"`
	LastSync      *SyncJSON    `json:"last_sync,omitempty"`
	LastError     *ErrorJSON   `json:"last_error,omitempty"`
	Bits          string       `json:"bits"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Counts        CountsJSON   `json:"counts"`
	Network       *NetworkJSON `json:"network,omitempty"`
	Config        ConfigJSON   `json:"config"`
}

// SyncJSON is the last decoded minute.
type SyncJSON struct {
	Time       string `json:"time"`
	Zone       string `json:"zone"`
	ReceivedAt string `json:"received_at"`
}

// ErrorJSON is the last engine error.
type ErrorJSON struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	At      string `json:"at"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of notification counts.
type CountsJSON struct {
	Ticks        int    `json:"ticks"`
	Syncs        int    `json:"syncs"`
	TickErrors   int    `json:"tick_errors"`
	BeaconErrors int    `json:"beacon_errors"`
	Dropped      uint64 `json:"dropped"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	Chip           string `json:"chip"`
	DataPin        int    `json:"data_pin"`
	EnablePin      int    `json:"enable_pin"`
	SampleOffsetMs int64  `json:"sample_offset_ms"`
	HeartbeatMs    int64  `json:"heartbeat_ms"`
	Broker         string `json:"broker"`
	HTTPPort       string `json:"http_port"`
	Simulate       bool   `json:"simulate,omitempty"`
	SetClock       bool   `json:"set_clock,omitempty"`
}

func buildInner(snap Snapshot) StatusInner {
	inner := StatusInner{
		State:         snap.State.String(),
		Synced:        snap.Synced(),
		Bits:          snap.Bits,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			Ticks:        snap.Counts.Ticks,
			Syncs:        snap.Counts.Syncs,
			TickErrors:   snap.Counts.TickErrors,
			BeaconErrors: snap.Counts.BeaconErrors,
			Dropped:      snap.Dropped,
		},
		Config: ConfigJSON{
			Chip:           snap.Config.Chip,
			DataPin:        snap.Config.DataPin,
			EnablePin:      snap.Config.EnablePin,
			SampleOffsetMs: snap.Config.SampleOffsetMs,
			HeartbeatMs:    snap.Config.HeartbeatMs,
			Broker:         snap.Config.Broker,
			HTTPPort:       snap.Config.HTTPPort,
			Simulate:       snap.Config.Simulate,
			SetClock:       snap.Config.SetClock,
		},
	}

	if snap.LastSync != nil {
		inner.LastSync = &SyncJSON{
			Time:       snap.LastSync.Time().Format(time.RFC3339),
			Zone:       string(snap.LastSync.Zone),
			ReceivedAt: snap.LastSyncAt.UTC().Format(time.RFC3339),
		}
	}
	if snap.LastError != "" {
		inner.LastError = &ErrorJSON{
			Kind:    string(snap.LastErrorKind),
			Message: snap.LastError,
			At:      snap.LastErrorAt.UTC().Format(time.RFC3339),
		}
	}
	return inner
}

func buildNetwork(snap Snapshot, inner *StatusInner) {
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	buildNetwork(snap, &inner)

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	buildNetwork(snap, &inner)

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
