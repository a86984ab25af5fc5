package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/dcf77-sensor/internal/receiver"
	"github.com/sweeney/dcf77-sensor/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		switch {
		case days > 0:
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		case h > 0:
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		case m > 0:
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"stateClass": func(s receiver.State) string {
		switch s {
		case receiver.StateAccumulating:
			return "locked"
		case receiver.StateIdle:
			return "idle"
		}
		return "pending"
	},
	"utc": func(t time.Time) string {
		return t.UTC().Format(time.RFC3339)
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="5">
<title>DCF77 Sensor</title>
<style>
body { font-family: monospace; max-width: 640px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.locked { color: green; font-weight: bold; }
.idle { color: #888; }
.pending { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
.bits { word-break: break-all; }
</style>
</head>
<body>
<h1>DCF77 Sensor</h1>

<h2>Decoder</h2>
<table>
<tr><th>State</th><td id="state" class="{{stateClass .State}}">{{.State}}</td></tr>
<tr><th>Frame</th><td class="bits">{{if .Bits}}{{.Bits}}{{else}}empty{{end}} ({{len .Bits}} bits)</td></tr>
{{if .LastSync}}<tr><th>Last minute</th><td id="last-sync">{{.LastSync}} {{.LastSync.Zone}}</td></tr>
<tr><th>Received</th><td>{{utc .LastSyncAt}}</td></tr>{{else}}<tr><th>Last minute</th><td id="last-sync" class="pending">not synced</td></tr>{{end}}
{{if .LastError}}<tr><th>Last error</th><td>{{.LastErrorKind}}: {{.LastError}} at {{utc .LastErrorAt}}</td></tr>{{end}}
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>Counts</h2>
<table>
<tr><th>Ticks</th><td>{{.Counts.Ticks}}</td></tr>
<tr><th>Syncs</th><td>{{.Counts.Syncs}}</td></tr>
<tr><th>Tick errors</th><td>{{.Counts.TickErrors}}</td></tr>
<tr><th>Beacon errors</th><td>{{.Counts.BeaconErrors}}</td></tr>
<tr><th>Dropped</th><td>{{.Dropped}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{utc .StartTime}}</td></tr>
<tr><th>Receiver</th><td>{{if .Config.Simulate}}simulated{{else}}{{.Config.Chip}} data {{.Config.DataPin}}, enable {{.Config.EnablePin}}{{end}}</td></tr>
<tr><th>Sample offset</th><td>{{.Config.SampleOffsetMs}}ms</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>Set clock</th><td>{{if .Config.SetClock}}yes{{else}}no{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPPort}}</td></tr>
</table>

<p><a href="/index.json">JSON</a> <a href="/metrics">metrics</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	indexTmpl.Execute(w, data)
}
