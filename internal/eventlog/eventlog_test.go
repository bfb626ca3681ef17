package eventlog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sweeney/home-safety-sensor/internal/logic"
	"github.com/sweeney/home-safety-sensor/internal/message"
)

func openTemp(t *testing.T, recent int) (*Logger, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "home_safety.log")
	l, err := Open(path, recent)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l, path
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func TestHandleAppendsAndFlushes(t *testing.T) {
	l, path := openTemp(t, 10)

	alert := logic.Alert{Kind: logic.AlertDoorOpen, Severity: logic.SeverityInfo, Value: 42, Description: "Door opened"}
	l.Handle("home/safety/events", message.AlertText(alert).Encode())
	l.Handle("home/safety/events", message.LogText("Aggregator started").Encode())

	// Visible without Close: every line is flushed.
	want := "EVENT: [INFO] Door opened (value=42)\nEVENT: [LOG] Aggregator started\n"
	if got := readFile(t, path); got != want {
		t.Errorf("file:\n%q\nwant:\n%q", got, want)
	}
}

func TestOpenAppendsToExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "home_safety.log")
	if err := os.WriteFile(path, []byte("EVENT: earlier\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	l, err := Open(path, 0)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := l.Append("log", "[LOG] later"); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if got := readFile(t, path); got != "EVENT: earlier\nEVENT: [LOG] later\n" {
		t.Errorf("file: %q", got)
	}
}

func TestHandleIgnoresBadPayload(t *testing.T) {
	l, path := openTemp(t, 10)

	l.Handle("home/safety/events", []byte{0x02})
	l.Handle("home/safety/events", message.EncodePulse(logic.PulseGas))

	if got := readFile(t, path); got != "" {
		t.Errorf("expected nothing logged, got %q", got)
	}
	if len(l.Recent()) != 0 {
		t.Error("expected empty history")
	}
}

func TestRecentKeepsNewest(t *testing.T) {
	l, _ := openTemp(t, 3)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	i := 0
	l.now = func() time.Time {
		i++
		return base.Add(time.Duration(i) * time.Second)
	}

	for _, s := range []string{"a", "b", "c", "d", "e"} {
		if err := l.Append("log", s); err != nil {
			t.Fatal(err)
		}
	}

	got := l.Recent()
	if len(got) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(got))
	}
	var texts []string
	for _, e := range got {
		texts = append(texts, e.Text)
	}
	if strings.Join(texts, ",") != "c,d,e" {
		t.Errorf("recent: got %v, want [c d e]", texts)
	}
	if !got[0].Time.Before(got[2].Time) {
		t.Error("expected oldest first")
	}
}

func TestRecentKind(t *testing.T) {
	l, _ := openTemp(t, 5)
	l.Handle("", message.AlertText(logic.Alert{Kind: logic.AlertMotion, Description: "Motion detected", Value: 1}).Encode())

	got := l.Recent()
	if len(got) != 1 || got[0].Kind != "alert" {
		t.Errorf("recent: got %+v", got)
	}
}

func TestOpenError(t *testing.T) {
	if _, err := Open(filepath.Join(t.TempDir(), "missing", "x.log"), 1); err == nil {
		t.Error("expected error for missing directory")
	}
}
