package web

import (
	"fmt"
	"html/template"
	"io"
	"sort"
	"time"

	"github.com/sweeney/home-safety-sensor/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Home Safety</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.ok { color: green; }
.warn { color: orange; font-weight: bold; }
.crit { color: red; font-weight: bold; }
.unknown { color: #888; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>Home Safety</h1>

<h2>State</h2>
<table>
<tr><th>Alert level</th><td id="level" class="{{.LevelClass}}">{{.Level}}</td></tr>
<tr><th>Sequence</th><td id="sequence">{{if .HasReading}}{{.Last.Sequence}}{{else}}-{{end}}</td></tr>
{{range .Sensors}}<tr><th>{{.Name}}</th><td id="{{.ID}}" class="{{.Class}}">{{.Value}}</td></tr>
{{end}}</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{if .Config.Broker}}{{.Config.Broker}}{{else}}none{{end}}</td></tr>
{{range .TargetRows}}<tr><th>{{.Name}}</th><td class="{{if .Present}}connected{{else}}disconnected{{end}}">{{if .Present}}present{{else}}absent{{end}}</td></tr>
{{end}}{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>Alert Counts</h2>
<table>
<tr><th>Temperature high</th><td>{{.Counts.TempHigh}}</td></tr>
<tr><th>Temperature low</th><td>{{.Counts.TempLow}}</td></tr>
<tr><th>Gas</th><td>{{.Counts.Gas}}</td></tr>
<tr><th>Motion</th><td>{{.Counts.Motion}}</td></tr>
<tr><th>Door closed</th><td>{{.Counts.DoorClosed}}</td></tr>
<tr><th>Door opened</th><td>{{.Counts.DoorOpen}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Sample</th><td>{{.Config.SampleMs}}ms</td></tr>
<tr><th>Aggregate</th><td>{{.Config.AggregateMs}}ms</td></tr>
<tr><th>Temperature</th><td>{{.Config.Thresholds.TempLow}}..{{.Config.Thresholds.TempHigh}}C</td></tr>
<tr><th>Door closed</th><td>&le; {{.Config.Thresholds.DoorClosedCM}}cm</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
<script>
(function() {
  var level = document.getElementById("level");
  var seq = document.getElementById("sequence");
  var classes = { INFO: "ok", WARNING: "warn", CRITICAL: "crit" };

  setInterval(function() {
    fetch("/index.json").then(function(r) { return r.json(); }).then(function(j) {
      level.textContent = j.status.alert_level;
      level.className = classes[j.status.alert_level] || "unknown";
      if (j.status.sequence !== null) { seq.textContent = j.status.sequence; }
    }).catch(function() {
      level.className = "unknown";
    });
  }, {{.RefreshMs}});
})();
</script>
</body>
</html>
`

type sensorRow struct {
	Name, ID, Value, Class string
}

type targetRow struct {
	Name    string
	Present bool
}

func renderHTML(w io.Writer, snap status.Snapshot) {
	refresh := snap.Config.AggregateMs
	if refresh <= 0 {
		refresh = 2000
	}
	data := struct {
		status.Snapshot
		Uptime     time.Duration
		Level      string
		LevelClass string
		Sensors    []sensorRow
		TargetRows []targetRow
		RefreshMs  int64
	}{
		Snapshot:   snap,
		Uptime:     snap.Uptime(),
		Level:      "UNKNOWN",
		LevelClass: "unknown",
		Sensors:    sensorRows(snap),
		TargetRows: targetRows(snap.Targets),
		RefreshMs:  refresh,
	}
	if snap.HasReading {
		data.Level = snap.Last.AlertLevel.String()
		data.LevelClass = map[string]string{"INFO": "ok", "WARNING": "warn", "CRITICAL": "crit"}[data.Level]
	}
	indexTmpl.Execute(w, data)
}

func sensorRows(snap status.Snapshot) []sensorRow {
	r := snap.Last
	unknown := func(name, id string) sensorRow {
		return sensorRow{Name: name, ID: id, Value: "unknown", Class: "unknown"}
	}
	rows := make([]sensorRow, 0, 5)

	if snap.HasReading && r.TempValid {
		class := "ok"
		th := snap.Config.Thresholds
		if int(r.Temperature) > th.TempHigh || int(r.Temperature) < th.TempLow {
			class = "warn"
		}
		rows = append(rows, sensorRow{"Temperature", "temperature", fmt.Sprintf("%dC", r.Temperature), class})
	} else {
		rows = append(rows, unknown("Temperature", "temperature"))
	}

	if snap.HasReading && r.HumidityValid {
		rows = append(rows, sensorRow{"Humidity", "humidity", fmt.Sprintf("%d%%", r.Humidity), "ok"})
	} else {
		rows = append(rows, unknown("Humidity", "humidity"))
	}

	switch {
	case !snap.HasReading || !r.GasValid:
		rows = append(rows, unknown("Gas", "gas"))
	case r.Gas:
		rows = append(rows, sensorRow{"Gas", "gas", "DETECTED", "crit"})
	default:
		rows = append(rows, sensorRow{"Gas", "gas", "clear", "ok"})
	}

	switch {
	case !snap.HasReading || !r.MotionValid:
		rows = append(rows, unknown("Motion", "motion"))
	case r.Motion:
		rows = append(rows, sensorRow{"Motion", "motion", "detected", "warn"})
	default:
		rows = append(rows, sensorRow{"Motion", "motion", "clear", "ok"})
	}

	switch {
	case !snap.HasReading || !r.DistanceValid:
		rows = append(rows, unknown("Door", "door"))
	case r.DoorClosed:
		rows = append(rows, sensorRow{"Door", "door", fmt.Sprintf("closed (%dcm)", r.Distance), "ok"})
	default:
		rows = append(rows, sensorRow{"Door", "door", fmt.Sprintf("open (%dcm)", r.Distance), "ok"})
	}
	return rows
}

func targetRows(targets map[string]bool) []targetRow {
	names := make([]string, 0, len(targets))
	for name := range targets {
		names = append(names, name)
	}
	sort.Strings(names)
	rows := make([]targetRow, len(names))
	for i, name := range names {
		rows[i] = targetRow{Name: name, Present: targets[name]}
	}
	return rows
}
