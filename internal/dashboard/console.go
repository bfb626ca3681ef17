package dashboard

import (
	"fmt"
	"strings"

	tm "github.com/buger/goterm"

	"github.com/sweeney/home-safety-sensor/internal/logic"
	"github.com/sweeney/home-safety-sensor/internal/message"
)

// Render formats a reading as a console table.
func Render(r message.Reading, color bool) string {
	paint := func(s string, c int) string {
		if !color {
			return s
		}
		return tm.Color(s, c)
	}

	var b strings.Builder
	title := fmt.Sprintf("Dashboard update #%d  %s", r.Sequence, r.Timestamp.Local().Format(TimestampLayout))
	if color {
		title = tm.Bold(title)
	}
	b.WriteString(title + "\n")

	t := tm.NewTable(0, 8, 2, ' ', 0)
	if r.TempValid {
		fmt.Fprintf(t, "Temperature\t%dC\n", r.Temperature)
	} else {
		fmt.Fprintf(t, "Temperature\t%s\n", paint("INVALID", tm.YELLOW))
	}
	if r.HumidityValid {
		fmt.Fprintf(t, "Humidity\t%d%%\n", r.Humidity)
	} else {
		fmt.Fprintf(t, "Humidity\t%s\n", paint("INVALID", tm.YELLOW))
	}
	switch {
	case !r.GasValid:
		fmt.Fprintf(t, "Smoke/Gas\t%s\n", paint("INVALID", tm.YELLOW))
	case r.Gas:
		fmt.Fprintf(t, "Smoke/Gas\t%s\n", paint("DETECTED", tm.RED))
	default:
		fmt.Fprintf(t, "Smoke/Gas\t%s\n", paint("clear", tm.GREEN))
	}
	switch {
	case !r.MotionValid:
		fmt.Fprintf(t, "Motion\t%s\n", paint("INVALID", tm.YELLOW))
	case r.Motion:
		fmt.Fprintf(t, "Motion\t%s\n", paint("DETECTED", tm.YELLOW))
	default:
		fmt.Fprintf(t, "Motion\t%s\n", paint("clear", tm.GREEN))
	}
	if r.DistanceValid {
		door := paint("OPEN", tm.YELLOW)
		if r.DoorClosed {
			door = paint("CLOSED", tm.GREEN)
		}
		fmt.Fprintf(t, "Door\t%s (%dcm)\n", door, r.Distance)
	} else {
		fmt.Fprintf(t, "Door\t%s\n", paint("INVALID", tm.YELLOW))
	}
	fmt.Fprintf(t, "Alert level\t%s\n", paint(r.AlertLevel.String(), levelColor(r.AlertLevel)))
	b.WriteString(t.String())
	b.WriteString("\n")
	return b.String()
}

func levelColor(s logic.Severity) int {
	switch s {
	case logic.SeverityCritical:
		return tm.RED
	case logic.SeverityWarning:
		return tm.YELLOW
	default:
		return tm.GREEN
	}
}
